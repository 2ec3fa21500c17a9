package optim

import (
	"fmt"

	"github.com/born-ml/blocks/internal/nn"
	"github.com/born-ml/blocks/internal/tensor"
	"gonum.org/v1/gonum/blas/blas32"
)

// Trainer applies an Optimizer to every parameter of a registry.
//
// Parameters are replicated per context; each replica collects the gradient
// of its own data shard. Step sums the replicas' gradients, rescales the sum
// by 1/batchSize, updates the first replica and copies the result to the
// others, so all replicas hold identical values after every step.
type Trainer[B tensor.Backend] struct {
	params  *nn.ParameterDict[B]
	opt     Optimizer
	scratch map[string][]float32
}

// NewTrainer creates a trainer over params.
func NewTrainer[B tensor.Backend](params *nn.ParameterDict[B], opt Optimizer) *Trainer[B] {
	return &Trainer[B]{
		params:  params,
		opt:     opt,
		scratch: make(map[string][]float32),
	}
}

// Optimizer returns the update rule.
func (t *Trainer[B]) Optimizer() Optimizer {
	return t.opt
}

// LearningRate returns the optimizer's learning rate.
func (t *Trainer[B]) LearningRate() float32 {
	return t.opt.LR()
}

// SetLearningRate updates the optimizer's learning rate.
func (t *Trainer[B]) SetLearningRate(lr float32) {
	t.opt.SetLR(lr)
}

// Step performs one optimization step. batchSize is the total number of
// examples the gradients were summed over, across all contexts.
//
// Parameters with GradNull are skipped. A parameter without storage fails
// with nn.ErrUninitialized and stops the step.
func (t *Trainer[B]) Step(batchSize int) error {
	if batchSize <= 0 {
		return fmt.Errorf("trainer: batch size must be positive, got %d", batchSize)
	}
	rescale := 1 / float32(batchSize)

	for name, p := range t.params.All() {
		if p.GradReq() == nn.GradNull {
			continue
		}
		data, grads := p.ListData(), p.ListGrad()
		if len(data) == 0 {
			return fmt.Errorf("trainer: %q has no storage: %w", name, nn.ErrUninitialized)
		}

		buf := t.reduce(name, grads)
		blas32.Scal(rescale, vector(buf))

		weight := data[0].Raw()
		t.opt.Update(name, weight.AsFloat32(), buf)
		for _, replica := range data[1:] {
			if err := replica.Raw().CopyFrom(weight); err != nil {
				return fmt.Errorf("trainer: broadcast %q: %w", name, err)
			}
		}
	}
	return nil
}

// reduce sums the per-context gradients into the scratch buffer for name.
func (t *Trainer[B]) reduce(name string, grads []*tensor.Tensor[float32, B]) []float32 {
	first := grads[0].Raw().AsFloat32()
	buf, ok := t.scratch[name]
	if !ok || len(buf) != len(first) {
		buf = make([]float32, len(first))
		t.scratch[name] = buf
	}
	copy(buf, first)
	for _, g := range grads[1:] {
		blas32.Axpy(1, vector(g.Raw().AsFloat32()), vector(buf))
	}
	return buf
}

// ZeroGrad clears the gradients of every parameter.
func (t *Trainer[B]) ZeroGrad() {
	t.params.ZeroGrad()
}
