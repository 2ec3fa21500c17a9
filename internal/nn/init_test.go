package nn_test

import (
	"math"
	"testing"

	"github.com/born-ml/blocks/internal/nn"
	"github.com/born-ml/blocks/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestXavier_Bounds(t *testing.T) {
	data := make([]float32, 784*128)
	nn.DefaultXavier().Fill(nn.InitDesc{Name: "w", Shape: tensor.Shape{784, 128}, Seed: 1}, data)

	bound := float32(math.Sqrt(3 / (float64(784+128) / 2)))
	var nonZero int
	for _, v := range data {
		assert.LessOrEqual(t, v, bound)
		assert.GreaterOrEqual(t, v, -bound)
		if v != 0 {
			nonZero++
		}
	}
	assert.Greater(t, nonZero, len(data)/2)
}

func TestInitializers_Deterministic(t *testing.T) {
	inits := map[string]nn.Initializer{
		"uniform":  nn.Uniform{Scale: 0.1},
		"normal":   nn.Normal{Sigma: 0.01},
		"xavier":   nn.DefaultXavier(),
		"gaussian": nn.Xavier{Gaussian: true, Magnitude: 2},
	}
	for name, init := range inits {
		t.Run(name, func(t *testing.T) {
			desc := nn.InitDesc{Name: "w", Shape: tensor.Shape{8, 8}, Seed: 99}
			a := make([]float32, 64)
			b := make([]float32, 64)
			c := make([]float32, 64)
			init.Fill(desc, a)
			init.Fill(desc, b)
			desc.Seed = 100
			init.Fill(desc, c)

			assert.Equal(t, a, b)
			assert.NotEqual(t, a, c)
		})
	}
}

func TestInitialize_SeedReproducible(t *testing.T) {
	build := func(seed uint64) []float32 {
		layer := nn.NewDense(6, 4, newBackend())
		require.NoError(t, nn.InitializeAll(layer, nn.DefaultXavier(), nn.InitConfig{Seed: seed}))
		w, err := layer.Weight().Data(cpu0)
		require.NoError(t, err)
		return w.Data()
	}
	assert.Equal(t, build(5), build(5))
	assert.NotEqual(t, build(5), build(6))
}

func TestInitialize_BiasDefaultsToZero(t *testing.T) {
	d := nn.NewParameterDict("layer_", newBackend())
	w, _ := d.Get("weight", nn.WithShape(3))
	bias, _ := d.Get("bias", nn.WithShape(3))
	require.NoError(t, d.Initialize(nn.One(), nn.InitConfig{}))

	wd, _ := w.Data(cpu0)
	bd, _ := bias.Data(cpu0)
	assert.Equal(t, []float32{1, 1, 1}, wd.Data())
	assert.Equal(t, []float32{0, 0, 0}, bd.Data())
}

func TestInitialize_NamesGetDistinctStreams(t *testing.T) {
	d := nn.NewParameterDict("", newBackend())
	a, _ := d.Get("a", nn.WithShape(16))
	b, _ := d.Get("b", nn.WithShape(16))
	require.NoError(t, d.Initialize(nn.Uniform{Scale: 1}, nn.InitConfig{Seed: 1}))

	ad, _ := a.Data(cpu0)
	bd, _ := b.Data(cpu0)
	assert.NotEqual(t, ad.Data(), bd.Data())
}
