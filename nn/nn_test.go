// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn_test

import (
	"testing"

	"github.com/born-ml/blocks/autodiff"
	"github.com/born-ml/blocks/backend/cpu"
	"github.com/born-ml/blocks/nn"
	"github.com/born-ml/blocks/optim"
	"github.com/born-ml/blocks/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type backendT = *autodiff.Backend[*cpu.Backend]

// scale multiplies its input by a learned scalar.
type scale[B tensor.Backend] struct {
	*nn.BlockBase[B]
	factor *nn.Parameter[B]
}

func newScale[B tensor.Backend](backend B, opts ...nn.BlockOption) *scale[B] {
	base := nn.NewBlockBase("scale", backend, opts...)
	factor, _ := base.Params().Get("factor", nn.WithShape(1), nn.WithInit(nn.One()))
	return &scale[B]{BlockBase: base, factor: factor}
}

func (s *scale[B]) Forward(ctx tensor.Context, x *tensor.Tensor[float32, B]) (*tensor.Tensor[float32, B], error) {
	f, err := s.factor.Data(ctx)
	if err != nil {
		return nil, err
	}
	return x.Mul(f), nil
}

func TestCustomBlockInSequential(t *testing.T) {
	backend := autodiff.New(cpu.New())
	ctx := tensor.CPUContext(0)

	net := nn.NewSequential(backend)
	net.Add(
		newScale(backend, nn.WithScope(net.Scope())),
		nn.NewCentered(backend, nn.WithScope(net.Scope())),
	)

	params, err := net.CollectParameters()
	require.NoError(t, err)
	assert.Equal(t, []string{"sequential0_scale0_factor"}, keys(params))

	require.NoError(t, nn.InitializeAll(net, nn.DefaultXavier(), nn.InitConfig{Seed: 1}))

	x, err := tensor.FromSlice([]float32{1, 2, 3, 6}, tensor.Shape{2, 2}, backend)
	require.NoError(t, err)
	out, err := net.Forward(ctx, x)
	require.NoError(t, err)
	assert.Equal(t, []float32{-2, -1, 0, 3}, out.Data())
	assert.True(t, nn.IsCentered(x, out))
}

func TestCustomBlockTrains(t *testing.T) {
	backend := autodiff.New(cpu.New())
	ctx := tensor.CPUContext(0)

	s := newScale(backend)
	require.NoError(t, nn.InitializeAll[backendT](s, nn.Zero(), nn.InitConfig{}))
	params, err := s.CollectParameters()
	require.NoError(t, err)

	trainer := optim.NewTrainer(params, optim.NewSGD(optim.SGDConfig{LR: 0.5}))

	// d/dfactor of -sum(factor * x) is -sum(x).
	x := tensor.Ones[float32](tensor.Shape{2}, backend)
	err = backend.Record(func() error {
		out, err := s.Forward(ctx, x)
		if err != nil {
			return err
		}
		return nn.Backward(out.Sum().MulScalar(-1), params, ctx)
	})
	require.NoError(t, err)

	grad, err := s.factor.Grad(ctx)
	require.NoError(t, err)
	assert.Equal(t, []float32{-2}, grad.Data())

	require.NoError(t, trainer.Step(1))
	w, err := s.factor.Data(ctx)
	require.NoError(t, err)
	assert.Equal(t, []float32{2}, w.Data()) // 1 - 0.5 * (-2)
}

func TestDenseDeferredShape(t *testing.T) {
	backend := autodiff.New(cpu.New())
	layer := nn.NewDense(3, 0, backend)
	require.NoError(t, nn.InitializeAll[backendT](layer, nn.DefaultXavier(), nn.InitConfig{Seed: 1}))
	assert.True(t, layer.Weight().IsDeferred())

	_, err := layer.Forward(tensor.CPUContext(0), tensor.Ones[float32](tensor.Shape{4, 5}, backend))
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{5, 3}, layer.Weight().Shape())

	_, err = layer.Forward(tensor.CPUContext(0), tensor.Ones[float32](tensor.Shape{4, 6}, backend))
	assert.ErrorIs(t, err, nn.ErrShapeMismatch)
}

func keys[B tensor.Backend](d *nn.ParameterDict[B]) []string {
	var out []string
	for k := range d.Keys() {
		out = append(out, k)
	}
	return out
}
