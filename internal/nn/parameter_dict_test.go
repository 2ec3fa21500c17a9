package nn_test

import (
	"slices"
	"testing"

	"github.com/born-ml/blocks/internal/nn"
	"github.com/born-ml/blocks/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParameterDict_GetIsIdempotent(t *testing.T) {
	shapes := []tensor.Shape{{3}, {3, 4}, {2, 3, 4}, {1, 1}}
	for _, shape := range shapes {
		t.Run(shape.String(), func(t *testing.T) {
			d := nn.NewParameterDict("net_", newBackend())

			first, err := d.Get("weight", nn.WithShape(shape...))
			require.NoError(t, err)
			second, err := d.Get("weight", nn.WithShape(shape...))
			require.NoError(t, err)

			assert.Same(t, first, second)
			assert.Equal(t, "net_weight", first.Name())
			assert.Equal(t, 1, d.Len())

			bigger := append(shape.Clone(), 5)
			_, err = d.Get("weight", nn.WithShape(bigger...))
			require.ErrorIs(t, err, nn.ErrShapeMismatch)
		})
	}
}

func TestParameterDict_GetFillsUnknownDims(t *testing.T) {
	d := nn.NewParameterDict("", newBackend())

	p, err := d.Get("weight", nn.WithShape(0, 10))
	require.NoError(t, err)

	same, err := d.Get("weight", nn.WithShape(784, 0))
	require.NoError(t, err)
	assert.Same(t, p, same)
	assert.Equal(t, tensor.Shape{784, 10}, p.Shape())

	_, err = d.Get("weight", nn.WithShape(784, 11))
	require.ErrorIs(t, err, nn.ErrShapeMismatch)

	// No shape means "whatever it already is".
	again, err := d.Get("weight")
	require.NoError(t, err)
	assert.Same(t, p, again)
}

func TestParameterDict_Lookup(t *testing.T) {
	d := nn.NewParameterDict("block_", newBackend())
	p, _ := d.Get("bias", nn.WithShape(3))

	got, err := d.Lookup("block_bias")
	require.NoError(t, err)
	assert.Same(t, p, got)

	_, err = d.Lookup("bias")
	require.ErrorIs(t, err, nn.ErrKeyNotFound)
}

func TestParameterDict_KeysOrderedAndRestartable(t *testing.T) {
	d := nn.NewParameterDict("m_", newBackend())
	for _, name := range []string{"z", "a", "m"} {
		_, err := d.Get(name, nn.WithShape(1))
		require.NoError(t, err)
	}

	want := []string{"m_z", "m_a", "m_m"}
	assert.Equal(t, want, slices.Collect(d.Keys()))
	assert.Equal(t, want, slices.Collect(d.Keys()))

	// Early termination.
	var first []string
	for k := range d.Keys() {
		first = append(first, k)
		break
	}
	assert.Equal(t, []string{"m_z"}, first)
}

func TestParameterDict_Merge(t *testing.T) {
	b := newBackend()
	a := nn.NewParameterDict("a_", b)
	c := nn.NewParameterDict("c_", b)
	pa, _ := a.Get("weight", nn.WithShape(2))
	pc, _ := c.Get("weight", nn.WithShape(2))

	all := nn.NewParameterDict("", b)
	require.NoError(t, all.Merge(a, c))
	assert.Equal(t, []string{"a_weight", "c_weight"}, slices.Collect(all.Keys()))

	got, err := all.Lookup("c_weight")
	require.NoError(t, err)
	assert.Same(t, pc, got)

	// The same handle reached twice is shared, not a collision.
	require.NoError(t, all.Merge(a))
	assert.Equal(t, 2, all.Len())

	// A different handle with the same name collides and leaves the dict unchanged.
	other := nn.NewParameterDict("a_", b)
	_, _ = other.Get("weight", nn.WithShape(2))
	_, _ = other.Get("extra", nn.WithShape(1))
	err = all.Merge(other)
	require.ErrorIs(t, err, nn.ErrNameCollision)
	assert.Equal(t, 2, all.Len())

	got, _ = all.Lookup("a_weight")
	assert.Same(t, pa, got)
}

func TestParameterDict_Select(t *testing.T) {
	d := nn.NewParameterDict("dense0_", newBackend())
	_, _ = d.Get("weight", nn.WithShape(2, 2))
	_, _ = d.Get("bias", nn.WithShape(2))

	weights, err := d.Select(".*weight$")
	require.NoError(t, err)
	assert.Equal(t, []string{"dense0_weight"}, slices.Collect(weights.Keys()))

	_, err = d.Select("(")
	require.Error(t, err)
}

func TestParameterDict_InitializeCollectsErrors(t *testing.T) {
	d := nn.NewParameterDict("", newBackend())
	_, _ = d.Get("known", nn.WithShape(2))
	_, _ = d.Get("unknown", nn.WithShape(0))

	err := d.Initialize(nn.One(), nn.InitConfig{})
	require.ErrorIs(t, err, nn.ErrShapeUndefined)

	known, _ := d.Lookup("known")
	assert.True(t, known.IsInitialized(cpu0))
}
