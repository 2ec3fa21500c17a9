package nn

import (
	"fmt"
	"slices"

	"github.com/born-ml/blocks/internal/tensor"
)

// GradReq controls how a parameter's gradient accumulator is written.
type GradReq int

// Gradient modes.
const (
	GradWrite GradReq = iota // Backward overwrites the accumulator
	GradAdd                  // Backward adds into the accumulator
	GradNull                 // No gradient is tracked
)

// String returns the mode name.
func (g GradReq) String() string {
	switch g {
	case GradWrite:
		return "write"
	case GradAdd:
		return "add"
	case GradNull:
		return "null"
	default:
		return fmt.Sprintf("GradReq(%d)", int(g))
	}
}

// ParameterOption configures a Parameter at construction.
type ParameterOption func(*parameterConfig)

type parameterConfig struct {
	shape         tensor.Shape
	gradReq       GradReq
	init          Initializer
	allowDeferred bool
}

// WithShape declares the parameter shape. A 0 dimension is inferred later.
func WithShape(dims ...int) ParameterOption {
	return func(c *parameterConfig) { c.shape = tensor.Shape(dims).Clone() }
}

// WithGradReq sets the gradient mode (default GradWrite).
func WithGradReq(req GradReq) ParameterOption {
	return func(c *parameterConfig) { c.gradReq = req }
}

// WithInit attaches a parameter-specific initializer that takes precedence
// over the one passed to Initialize.
func WithInit(init Initializer) ParameterOption {
	return func(c *parameterConfig) { c.init = init }
}

// WithAllowDeferredInit lets Initialize postpone allocation until the shape
// is resolved, as if InitConfig.AllowDeferred were set for this parameter.
func WithAllowDeferredInit() ParameterOption {
	return func(c *parameterConfig) { c.allowDeferred = true }
}

// Parameter is a named, lazily allocated trainable tensor.
//
// A Parameter may be created before its shape is known. Storage is allocated
// per context by Initialize once the shape is fully resolved; until then Data
// and Grad fail with ErrUninitialized.
//
// Example:
//
//	w := nn.NewParameter("dense0_weight", backend, nn.WithShape(0, 128))
//	_ = w.Initialize(nn.DefaultXavier(), nn.InitConfig{AllowDeferred: true})
//	_ = w.SetShape(tensor.Shape{784, 128})
//	_ = w.FinishDeferredInit()
//	data, _ := w.Data(tensor.CPUContext(0))
type Parameter[B tensor.Backend] struct {
	name    string
	backend B
	cfg     parameterConfig

	ctxs []tensor.Context                             // Contexts with storage, in allocation order
	data map[tensor.Context]*tensor.Tensor[float32, B] // Per-context values
	grad map[tensor.Context]*tensor.Tensor[float32, B] // Per-context gradient accumulators

	deferred *deferredInit // Pending Initialize waiting for a shape
}

type deferredInit struct {
	init Initializer
	cfg  InitConfig
}

// NewParameter creates a parameter with no storage.
func NewParameter[B tensor.Backend](name string, backend B, opts ...ParameterOption) *Parameter[B] {
	p := &Parameter[B]{
		name:    name,
		backend: backend,
		data:    make(map[tensor.Context]*tensor.Tensor[float32, B]),
		grad:    make(map[tensor.Context]*tensor.Tensor[float32, B]),
	}
	for _, opt := range opts {
		opt(&p.cfg)
	}
	return p
}

// Name returns the fully-qualified parameter name.
func (p *Parameter[B]) Name() string {
	return p.name
}

// Shape returns the declared or inferred shape. Unknown dimensions are 0; a
// nil shape means nothing is known yet.
func (p *Parameter[B]) Shape() tensor.Shape {
	return p.cfg.shape.Clone()
}

// GradReq returns the gradient mode.
func (p *Parameter[B]) GradReq() GradReq {
	return p.cfg.gradReq
}

// Init returns the parameter-specific initializer, if any.
func (p *Parameter[B]) Init() Initializer {
	return p.cfg.init
}

// IsInitialized reports whether storage exists for ctx.
func (p *Parameter[B]) IsInitialized(ctx tensor.Context) bool {
	_, ok := p.data[ctx]
	return ok
}

// IsDeferred reports whether an Initialize call is waiting for the shape.
func (p *Parameter[B]) IsDeferred() bool {
	return p.deferred != nil
}

// Contexts returns the contexts holding storage, in allocation order.
func (p *Parameter[B]) Contexts() []tensor.Context {
	return slices.Clone(p.ctxs)
}

// SetShape merges shape into the parameter's shape, filling unknown
// dimensions. Conflicting known dimensions fail with ErrShapeMismatch.
func (p *Parameter[B]) SetShape(shape tensor.Shape) error {
	if !p.cfg.shape.Compatible(shape) {
		return paramError("set shape", p.name, ErrShapeMismatch, "have %v, got %v", p.cfg.shape, shape)
	}
	p.cfg.shape = p.cfg.shape.Fill(shape)
	return nil
}

// Initialize allocates and fills storage on every context in cfg.Contexts
// that does not hold it yet (all of them when cfg.Force is set).
//
// init is used unless the parameter has its own initializer. If the shape is
// not fully known the call fails with ErrShapeUndefined, or, when deferred
// initialization is allowed, is remembered until FinishDeferredInit.
// If gradient tracking is on, a zero gradient accumulator is allocated too.
func (p *Parameter[B]) Initialize(init Initializer, cfg InitConfig) error {
	if err := tensor.CheckContexts(cfg.Contexts); err != nil {
		return paramError("initialize", p.name, err, "contexts %v", cfg.Contexts)
	}
	if !p.cfg.shape.IsKnown() {
		if p.cfg.allowDeferred || cfg.AllowDeferred {
			p.deferred = &deferredInit{init: init, cfg: cfg}
			return nil
		}
		return paramError("initialize", p.name, ErrShapeUndefined, "shape %v", p.cfg.shape)
	}
	p.deferred = nil
	return p.allocate(init, cfg)
}

// FinishDeferredInit completes a pending Initialize once the shape is known.
// It is a no-op if nothing is pending.
func (p *Parameter[B]) FinishDeferredInit() error {
	if p.deferred == nil {
		return nil
	}
	if !p.cfg.shape.IsKnown() {
		return paramError("finish deferred init", p.name, ErrShapeUndefined, "shape %v", p.cfg.shape)
	}
	pending := p.deferred
	p.deferred = nil
	return p.allocate(pending.init, pending.cfg)
}

func (p *Parameter[B]) allocate(init Initializer, cfg InitConfig) error {
	var targets []tensor.Context
	for _, ctx := range cfg.contexts() {
		if cfg.Force || !p.IsInitialized(ctx) {
			targets = append(targets, ctx)
		}
	}
	if len(targets) == 0 {
		return nil
	}

	// Values are generated once so that every replica starts identical.
	shape := p.cfg.shape.Clone()
	values := make([]float32, shape.NumElements())
	desc := InitDesc{Name: p.name, Shape: shape, Seed: cfg.seedFor(p.name)}
	resolveInit(p.name, p.cfg.init, init).Fill(desc, values)

	for _, ctx := range targets {
		t, err := tensor.FromSlice(values, shape, p.backend)
		if err != nil {
			return fmt.Errorf("initialize %q on %s: %w", p.name, ctx, err)
		}
		if !p.IsInitialized(ctx) {
			p.ctxs = append(p.ctxs, ctx)
		}
		p.data[ctx] = t
		if p.cfg.gradReq != GradNull {
			p.grad[ctx] = tensor.Zeros[float32](shape, p.backend)
		}
	}
	return nil
}

// Data returns the parameter value on ctx.
func (p *Parameter[B]) Data(ctx tensor.Context) (*tensor.Tensor[float32, B], error) {
	t, ok := p.data[ctx]
	if !ok {
		return nil, p.uninitialized("data", ctx)
	}
	return t, nil
}

// Grad returns the gradient accumulator on ctx.
func (p *Parameter[B]) Grad(ctx tensor.Context) (*tensor.Tensor[float32, B], error) {
	if p.cfg.gradReq == GradNull {
		return nil, paramError("grad", p.name, ErrGradientNotTracked, "grad_req is %s", p.cfg.gradReq)
	}
	g, ok := p.grad[ctx]
	if !ok {
		return nil, p.uninitialized("grad", ctx)
	}
	return g, nil
}

func (p *Parameter[B]) uninitialized(op string, ctx tensor.Context) error {
	if p.deferred != nil {
		return paramError(op, p.name, ErrUninitialized, "initialization on %s is deferred until the shape is known", ctx)
	}
	return paramError(op, p.name, ErrUninitialized, "no storage on %s", ctx)
}

// ListData returns the values on every context, in allocation order.
func (p *Parameter[B]) ListData() []*tensor.Tensor[float32, B] {
	out := make([]*tensor.Tensor[float32, B], 0, len(p.ctxs))
	for _, ctx := range p.ctxs {
		out = append(out, p.data[ctx])
	}
	return out
}

// ListGrad returns the gradient accumulators on every context, in allocation
// order. It is empty when gradients are not tracked.
func (p *Parameter[B]) ListGrad() []*tensor.Tensor[float32, B] {
	out := make([]*tensor.Tensor[float32, B], 0, len(p.ctxs))
	for _, ctx := range p.ctxs {
		if g, ok := p.grad[ctx]; ok {
			out = append(out, g)
		}
	}
	return out
}

// SetData overwrites the value on ctx. values must have the parameter's shape.
func (p *Parameter[B]) SetData(ctx tensor.Context, values *tensor.Tensor[float32, B]) error {
	t, err := p.Data(ctx)
	if err != nil {
		return err
	}
	if !values.Shape().Equal(t.Shape()) {
		return paramError("set data", p.name, ErrShapeMismatch, "have %v, got %v", t.Shape(), values.Shape())
	}
	return t.Raw().CopyFrom(values.Raw())
}

// ZeroGrad clears the gradient accumulators on every context.
func (p *Parameter[B]) ZeroGrad() {
	for _, g := range p.grad {
		g.Raw().Zero()
	}
}

// Reset moves the parameter to a new set of contexts, keeping the current
// value. Storage on contexts not in ctxs is released.
func (p *Parameter[B]) Reset(ctxs []tensor.Context) error {
	if err := tensor.CheckContexts(ctxs); err != nil {
		return paramError("reset", p.name, err, "contexts %v", ctxs)
	}
	if len(p.ctxs) == 0 {
		if p.deferred != nil {
			p.deferred.cfg.Contexts = slices.Clone(ctxs)
			return nil
		}
		return p.uninitialized("reset", tensor.CPUContext(0))
	}

	src := p.data[p.ctxs[0]]
	data := make(map[tensor.Context]*tensor.Tensor[float32, B], len(ctxs))
	grad := make(map[tensor.Context]*tensor.Tensor[float32, B], len(ctxs))
	for _, ctx := range ctxs {
		data[ctx] = src.Clone()
		if p.cfg.gradReq != GradNull {
			grad[ctx] = tensor.Zeros[float32](src.Shape(), p.backend)
		}
	}
	p.ctxs = slices.Clone(ctxs)
	p.data = data
	p.grad = grad
	return nil
}

// String returns a short description such as
// "Parameter dense0_weight (shape=(784, 128), dtype=float32)".
func (p *Parameter[B]) String() string {
	return fmt.Sprintf("Parameter %s (shape=%v, dtype=%s)", p.name, p.cfg.shape, tensor.Float32)
}
