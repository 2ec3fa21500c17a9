package optim

import "gonum.org/v1/gonum/blas/blas32"

// SGD implements Stochastic Gradient Descent optimizer with optional momentum.
//
// Update rule without momentum:
//
//	param = param - lr * (gradient + wd * param)
//
// Update rule with momentum:
//
//	velocity = momentum * velocity + (gradient + wd * param)
//	param = param - lr * velocity
//
// Momentum helps accelerate SGD in relevant directions and dampens oscillations.
type SGD struct {
	lr         float32
	momentum   float32
	wd         float32
	velocities map[string][]float32
}

// SGDConfig holds configuration for SGD optimizer.
type SGDConfig struct {
	LR          float32 // Learning rate (default: 0.01)
	Momentum    float32 // Momentum factor (default: 0.0, range: [0, 1))
	WeightDecay float32 // L2 penalty (default: 0)
}

// NewSGD creates a new SGD optimizer.
func NewSGD(config SGDConfig) *SGD {
	if config.LR == 0 {
		config.LR = 0.01
	}
	return &SGD{
		lr:         config.LR,
		momentum:   config.Momentum,
		wd:         config.WeightDecay,
		velocities: make(map[string][]float32),
	}
}

// Update applies one SGD step to weight.
func (s *SGD) Update(key string, weight, grad []float32) {
	applyWeightDecay(s.wd, weight, grad)

	if s.momentum == 0 {
		blas32.Axpy(-s.lr, vector(grad), vector(weight))
		return
	}

	velocity, ok := s.velocities[key]
	if !ok {
		velocity = make([]float32, len(weight))
		s.velocities[key] = velocity
	}
	v := vector(velocity)
	blas32.Scal(s.momentum, v)
	blas32.Axpy(1, vector(grad), v)
	blas32.Axpy(-s.lr, v, vector(weight))
}

// LR returns the current learning rate.
func (s *SGD) LR() float32 {
	return s.lr
}

// SetLR updates the learning rate.
func (s *SGD) SetLR(lr float32) {
	s.lr = lr
}
