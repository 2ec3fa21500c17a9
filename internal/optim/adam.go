package optim

import "math"

// Adam implements the Adam (Adaptive Moment Estimation) optimizer.
//
// Update rule:
//
//	m_t = beta1 * m_{t-1} + (1-beta1) * gradient       // First moment
//	v_t = beta2 * v_{t-1} + (1-beta2) * gradient²      // Second moment
//	m_hat = m_t / (1 - beta1^t)                        // Bias correction
//	v_hat = v_t / (1 - beta2^t)                        // Bias correction
//	param = param - lr * m_hat / (sqrt(v_hat) + eps)  // Parameter update
//
// The timestep t is counted per parameter.
//
// Reference: "Adam: A Method for Stochastic Optimization" (Kingma & Ba, 2014)
type Adam struct {
	lr    float32
	beta1 float32
	beta2 float32
	eps   float32
	wd    float32
	state map[string]*adamState
}

type adamState struct {
	t    int
	m, v []float32
}

// AdamConfig holds configuration for Adam optimizer.
type AdamConfig struct {
	LR          float32    // Learning rate (default: 0.001)
	Betas       [2]float32 // Coefficients for computing running averages (default: [0.9, 0.999])
	Eps         float32    // Term for numerical stability (default: 1e-8)
	WeightDecay float32    // L2 penalty (default: 0)
}

// NewAdam creates a new Adam optimizer with default hyperparameters where
// not specified.
func NewAdam(config AdamConfig) *Adam {
	if config.LR == 0 {
		config.LR = 0.001
	}
	if config.Betas[0] == 0 {
		config.Betas[0] = 0.9
	}
	if config.Betas[1] == 0 {
		config.Betas[1] = 0.999
	}
	if config.Eps == 0 {
		config.Eps = 1e-8
	}
	return &Adam{
		lr:    config.LR,
		beta1: config.Betas[0],
		beta2: config.Betas[1],
		eps:   config.Eps,
		wd:    config.WeightDecay,
		state: make(map[string]*adamState),
	}
}

// Update applies one Adam step to weight.
func (a *Adam) Update(key string, weight, grad []float32) {
	applyWeightDecay(a.wd, weight, grad)

	st, ok := a.state[key]
	if !ok {
		st = &adamState{m: make([]float32, len(weight)), v: make([]float32, len(weight))}
		a.state[key] = st
	}
	st.t++

	biasCorrection1 := float32(1.0 - math.Pow(float64(a.beta1), float64(st.t)))
	biasCorrection2 := float32(1.0 - math.Pow(float64(a.beta2), float64(st.t)))

	for i, g := range grad {
		st.m[i] = a.beta1*st.m[i] + (1.0-a.beta1)*g
		st.v[i] = a.beta2*st.v[i] + (1.0-a.beta2)*g*g

		mHat := st.m[i] / biasCorrection1
		vHat := st.v[i] / biasCorrection2

		weight[i] -= a.lr * mHat / (float32(math.Sqrt(float64(vHat))) + a.eps)
	}
}

// LR returns the current learning rate.
func (a *Adam) LR() float32 {
	return a.lr
}

// SetLR updates the learning rate.
func (a *Adam) SetLR(lr float32) {
	a.lr = lr
}
