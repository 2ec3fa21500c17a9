package nn_test

import (
	"slices"
	"testing"

	"github.com/born-ml/blocks/internal/nn"
	"github.com/born-ml/blocks/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func randomTensor(t *testing.T, b backendT, seed uint64, shape tensor.Shape, scale float32) *tensor.Tensor[float32, backendT] {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	data := make([]float32, shape.NumElements())
	for i := range data {
		data[i] = (rng.Float32()*2 - 1) * scale
	}
	x, err := tensor.FromSlice(data, shape, b)
	require.NoError(t, err)
	return x
}

func TestScope_Naming(t *testing.T) {
	s := nn.NewScope("net_")
	assert.Equal(t, "net_dense0_", s.Next("dense"))
	assert.Equal(t, "net_dense1_", s.Next("dense"))
	assert.Equal(t, "net_centered0_", s.Next("centered"))

	b := newBackend()
	root := nn.NewSequential(b)
	assert.Equal(t, "sequential0_", root.Prefix())

	d := nn.NewDense(4, 2, b, nn.WithScope(root.Scope()))
	assert.Equal(t, "sequential0_dense0_", d.Prefix())
	assert.Equal(t, "sequential0_dense0", d.Name())
	assert.Equal(t, "sequential0_dense0_weight", d.Weight().Name())

	named := nn.NewDense(4, 2, b, nn.WithPrefix("mydense_"))
	assert.Equal(t, "mydense_bias", named.Bias().Name())
}

func TestCentered_MeanIsZero(t *testing.T) {
	b := newBackend()
	layer := nn.NewCentered(b)

	cases := []struct {
		shape tensor.Shape
		scale float32
	}{
		{tensor.Shape{5}, 1},
		{tensor.Shape{4, 3}, 10},
		{tensor.Shape{2, 3, 4}, 1000},
		{tensor.Shape{1, 1}, 0.5},
		{tensor.Shape{64, 784}, 255},
	}
	for i, tc := range cases {
		t.Run(tc.shape.String(), func(t *testing.T) {
			x := randomTensor(t, b, uint64(i+1), tc.shape, tc.scale)

			out, err := layer.Forward(cpu0, x)
			require.NoError(t, err)
			assert.Equal(t, tc.shape, out.Shape())
			assert.True(t, nn.IsCentered(x, out), "mean %g", out.Mean().Item())
		})
	}
}

func TestCentered_KnownValues(t *testing.T) {
	b := newBackend()
	x, _ := tensor.FromSlice([]float32{1, 2, 3, 4, 5}, tensor.Shape{5}, b)

	out, err := nn.NewCentered(b).Forward(cpu0, x)
	require.NoError(t, err)
	assert.Equal(t, []float32{-2, -1, 0, 1, 2}, out.Data())
	assert.Empty(t, slices.Collect(nn.NewCentered(b).Params().Keys()))
}

func TestCollectParameters_TwoChildren(t *testing.T) {
	b := newBackend()
	root := nn.NewSequential(b, nn.WithPrefix("net_"))
	root.Add(
		nn.NewDense(8, 4, b, nn.WithScope(root.Scope())),
		nn.NewDense(2, 8, b, nn.WithScope(root.Scope())),
	)

	params, err := root.CollectParameters()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"net_dense0_weight", "net_dense0_bias",
		"net_dense1_weight", "net_dense1_bias",
	}, slices.Collect(params.Keys()))
}

func TestCollectParameters_Collision(t *testing.T) {
	b := newBackend()
	root := nn.NewSequential(b)
	root.Add(
		nn.NewDense(8, 4, b, nn.WithPrefix("same_")),
		nn.NewDense(8, 4, b, nn.WithPrefix("same_")),
	)

	_, err := root.CollectParameters()
	require.ErrorIs(t, err, nn.ErrNameCollision)
}

func TestCollectParameters_SharedBlock(t *testing.T) {
	b := newBackend()
	root := nn.NewSequential(b)
	shared := nn.NewDense(4, 4, b, nn.WithScope(root.Scope()))
	root.Add(shared, shared)

	params, err := root.CollectParameters()
	require.NoError(t, err)
	assert.Equal(t, 2, params.Len())
}

func TestDense_InfersInputWidth(t *testing.T) {
	b := newBackend()
	layer := nn.NewDense(128, 0, b)
	require.NoError(t, nn.InitializeAll(layer, nn.DefaultXavier(), nn.InitConfig{Seed: 7}))

	assert.Equal(t, 0, layer.InUnits())
	assert.True(t, layer.Weight().IsDeferred())
	assert.True(t, layer.Bias().IsInitialized(cpu0))

	out, err := layer.Forward(cpu0, randomTensor(t, b, 1, tensor.Shape{3, 784}, 1))
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{3, 128}, out.Shape())
	assert.Equal(t, 784, layer.InUnits())

	w, err := layer.Weight().Data(cpu0)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{784, 128}, w.Shape())

	_, err = layer.Forward(cpu0, randomTensor(t, b, 2, tensor.Shape{3, 10}, 1))
	require.ErrorIs(t, err, nn.ErrShapeMismatch)
}

func TestDense_ForwardBeforeInitialize(t *testing.T) {
	b := newBackend()
	layer := nn.NewDense(4, 3, b)

	_, err := layer.Forward(cpu0, randomTensor(t, b, 1, tensor.Shape{2, 3}, 1))
	require.ErrorIs(t, err, nn.ErrUninitialized)

	require.NoError(t, nn.InitializeAll(layer, nil, nn.InitConfig{}))
	_, err = layer.Forward(tensor.CPUContext(1), randomTensor(t, b, 1, tensor.Shape{2, 3}, 1))
	require.ErrorIs(t, err, nn.ErrUninitialized)
}

func TestDense_KnownValues(t *testing.T) {
	b := newBackend()
	layer := nn.NewDense(2, 2, b)
	require.NoError(t, nn.InitializeAll(layer, nn.Zero(), nn.InitConfig{}))

	w, _ := tensor.FromSlice([]float32{1, -1, 2, 1}, tensor.Shape{2, 2}, b)
	bias, _ := tensor.FromSlice([]float32{0.5, -0.5}, tensor.Shape{2}, b)
	require.NoError(t, layer.Weight().SetData(cpu0, w))
	require.NoError(t, layer.Bias().SetData(cpu0, bias))

	x, _ := tensor.FromSlice([]float32{1, 1, 1, -1}, tensor.Shape{2, 2}, b)
	out, err := layer.Forward(cpu0, x)
	require.NoError(t, err)
	// [1,1]@W = [3, 0] + b = [3.5, -0.5] -> relu [3.5, 0]
	// [1,-1]@W = [-1, -2] + b = [-0.5, -2.5] -> relu [0, 0]
	assert.Equal(t, []float32{3.5, 0, 0, 0}, out.Data())

	linear := nn.NewDense(2, 2, b, nn.WithActivation(nn.ActivationNone))
	require.NoError(t, nn.InitializeAll(linear, nn.Zero(), nn.InitConfig{}))
	require.NoError(t, linear.Weight().SetData(cpu0, w))
	require.NoError(t, linear.Bias().SetData(cpu0, bias))
	out, err = linear.Forward(cpu0, x)
	require.NoError(t, err)
	assert.Equal(t, []float32{3.5, -0.5, -0.5, -2.5}, out.Data())
}

func TestDense_FlattensHigherRank(t *testing.T) {
	b := newBackend()
	layer := nn.NewDense(5, 0, b)
	require.NoError(t, nn.InitializeAll(layer, nil, nn.InitConfig{}))

	out, err := layer.Forward(cpu0, randomTensor(t, b, 3, tensor.Shape{2, 1, 28, 28}, 1))
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 5}, out.Shape())
	assert.Equal(t, 784, layer.InUnits())

	_, err = layer.Forward(cpu0, randomTensor(t, b, 3, tensor.Shape{4}, 1))
	require.ErrorIs(t, err, nn.ErrShapeMismatch)
}

func TestDense_OutputIsNonNegative(t *testing.T) {
	b := newBackend()
	layer := nn.NewDense(20, 10, b)
	require.NoError(t, nn.InitializeAll(layer, nn.DefaultXavier(), nn.InitConfig{Seed: 3}))

	out, err := layer.Forward(cpu0, randomTensor(t, b, 4, tensor.Shape{2, 10}, 5))
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 20}, out.Shape())
	for _, v := range out.Data() {
		assert.GreaterOrEqual(t, v, float32(0))
	}
}

func TestSequential_ThreeLayerNet(t *testing.T) {
	b := newBackend()
	net := nn.NewSequential(b)
	net.Add(
		nn.NewDense(128, 784, b, nn.WithScope(net.Scope())),
		nn.NewDense(64, 128, b, nn.WithScope(net.Scope())),
		nn.NewDense(10, 64, b, nn.WithScope(net.Scope())),
	)
	require.NoError(t, nn.InitializeAll(net, nn.DefaultXavier(), nn.InitConfig{Seed: 11}))

	out, err := net.Forward(cpu0, randomTensor(t, b, 5, tensor.Shape{2, 784}, 1))
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 10}, out.Shape())
	for _, v := range out.Data() {
		assert.GreaterOrEqual(t, v, float32(0))
	}

	params, err := net.CollectParameters()
	require.NoError(t, err)
	assert.Equal(t, 6, params.Len())

	assert.Equal(t, 3, net.Len())
	assert.Equal(t, "Dense(128 -> 64, relu)", net.At(1).String())
	assert.Equal(t, "Sequential(\n"+
		"  (0): Dense(784 -> 128, relu)\n"+
		"  (1): Dense(128 -> 64, relu)\n"+
		"  (2): Dense(64 -> 10, relu)\n"+
		")", net.String())
}

func TestSequential_PropagatesErrors(t *testing.T) {
	b := newBackend()
	net := nn.NewSequential(b)
	net.Add(nn.NewCentered(b, nn.WithScope(net.Scope())), nn.NewDense(3, 4, b, nn.WithScope(net.Scope())))

	_, err := net.Forward(cpu0, randomTensor(t, b, 1, tensor.Shape{2, 4}, 1))
	require.ErrorIs(t, err, nn.ErrUninitialized)
}
