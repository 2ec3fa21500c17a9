package nn

import (
	"fmt"

	"github.com/born-ml/blocks/internal/autodiff"
	"github.com/born-ml/blocks/internal/tensor"
	"gonum.org/v1/gonum/blas/blas32"
)

// Backward computes gradients of loss over the operations recorded on its
// backend and stores them in the accumulators of params on ctx.
//
// GradWrite parameters are overwritten (zeroed if loss does not depend on
// them), GradAdd parameters accumulate, GradNull parameters are skipped.
// A non-scalar loss is treated as its sum.
func Backward[B autodiff.BackwardCapable](loss *tensor.Tensor[float32, B], params *ParameterDict[B], ctx tensor.Context) error {
	grads := autodiff.Backward(loss, loss.Backend())

	for name, p := range params.All() {
		if p.GradReq() == GradNull {
			continue
		}
		data, err := p.Data(ctx)
		if err != nil {
			return fmt.Errorf("backward: %w", err)
		}
		acc, err := p.Grad(ctx)
		if err != nil {
			return fmt.Errorf("backward: %w", err)
		}

		g, ok := grads[data.Raw()]
		switch {
		case !ok && p.GradReq() == GradWrite:
			acc.Raw().Zero()
		case !ok:
		case !g.Shape().Equal(acc.Shape()):
			return fmt.Errorf("backward: gradient for %q has shape %v, want %v", name, g.Shape(), acc.Shape())
		case p.GradReq() == GradWrite:
			if err := acc.Raw().CopyFrom(g); err != nil {
				return fmt.Errorf("backward: %q: %w", name, err)
			}
		default:
			blas32.Axpy(1, vector(g.AsFloat32()), vector(acc.Raw().AsFloat32()))
		}
	}
	return nil
}

func vector(data []float32) blas32.Vector {
	return blas32.Vector{N: len(data), Inc: 1, Data: data}
}
