// Package optim implements optimization algorithms and the Trainer that
// applies them to a parameter registry.
//
// This package provides:
//   - Optimizer interface: update rule over flat float32 buffers
//   - SGD: Stochastic Gradient Descent with momentum and weight decay
//   - Adam: Adaptive Moment Estimation
//   - Trainer: aggregates per-context gradients and keeps replicas in sync
//
// Example usage:
//
//	params, _ := net.CollectParameters()
//	trainer := optim.NewTrainer(params, optim.NewSGD(optim.SGDConfig{LR: 0.1}))
//
//	for x, y := range loader.Batches() {
//	    err := backend.Record(func() error {
//	        out, err := net.Forward(ctx, x)
//	        ...
//	        return nn.Backward(loss, params, ctx)
//	    })
//	    err = trainer.Step(batchSize)
//	}
package optim

import "gonum.org/v1/gonum/blas/blas32"

// Optimizer is the update rule applied by a Trainer.
//
// Update receives one parameter's weight and its aggregated, rescaled
// gradient and updates weight in place. key identifies the parameter across
// steps so the optimizer can keep per-parameter state. grad may be used as
// scratch space.
type Optimizer interface {
	Update(key string, weight, grad []float32)

	// LR returns the current learning rate.
	LR() float32

	// SetLR updates the learning rate, e.g. from a schedule.
	SetLR(lr float32)
}

func vector(data []float32) blas32.Vector {
	return blas32.Vector{N: len(data), Inc: 1, Data: data}
}

// applyWeightDecay adds wd * weight to grad.
func applyWeightDecay(wd float32, weight, grad []float32) {
	if wd != 0 {
		blas32.Axpy(wd, vector(weight), vector(grad))
	}
}
