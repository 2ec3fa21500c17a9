package nn

import (
	"errors"
	"fmt"
	"iter"
	"regexp"

	"github.com/born-ml/blocks/internal/tensor"
)

// ParameterDict is a prefixed, insertion-ordered registry of parameters.
//
// Parameters created through Get are named prefix + localName. A dict that
// results from Merge may hold parameters from several prefixes; names stay
// unique across it.
type ParameterDict[B tensor.Backend] struct {
	prefix  string
	backend B
	order   []string                 // Fully-qualified names in insertion order
	params  map[string]*Parameter[B] // Fully-qualified name -> parameter
}

// NewParameterDict creates an empty registry.
func NewParameterDict[B tensor.Backend](prefix string, backend B) *ParameterDict[B] {
	return &ParameterDict[B]{
		prefix:  prefix,
		backend: backend,
		params:  make(map[string]*Parameter[B]),
	}
}

// Prefix returns the registry prefix.
func (d *ParameterDict[B]) Prefix() string {
	return d.prefix
}

// Len returns the number of parameters.
func (d *ParameterDict[B]) Len() int {
	return len(d.order)
}

// Get returns the parameter named prefix+localName, creating it if needed.
//
// For an existing parameter, a WithShape option must be compatible with the
// current shape; unknown dimensions on either side are filled in. Other
// options are ignored for existing parameters.
func (d *ParameterDict[B]) Get(localName string, opts ...ParameterOption) (*Parameter[B], error) {
	name := d.prefix + localName
	if p, ok := d.params[name]; ok {
		var cfg parameterConfig
		for _, opt := range opts {
			opt(&cfg)
		}
		if cfg.shape != nil {
			if err := p.SetShape(cfg.shape); err != nil {
				return nil, fmt.Errorf("get %q: %w", localName, err)
			}
		}
		return p, nil
	}

	p := NewParameter(name, d.backend, opts...)
	d.add(p)
	return p, nil
}

func (d *ParameterDict[B]) add(p *Parameter[B]) {
	d.order = append(d.order, p.Name())
	d.params[p.Name()] = p
}

// Lookup returns the parameter with the given fully-qualified name.
func (d *ParameterDict[B]) Lookup(name string) (*Parameter[B], error) {
	p, ok := d.params[name]
	if !ok {
		return nil, paramError("lookup", name, ErrKeyNotFound, "")
	}
	return p, nil
}

// Keys yields fully-qualified names in insertion order.
// The sequence can be ranged over any number of times.
func (d *ParameterDict[B]) Keys() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, name := range d.order {
			if !yield(name) {
				return
			}
		}
	}
}

// All yields (name, parameter) pairs in insertion order.
func (d *ParameterDict[B]) All() iter.Seq2[string, *Parameter[B]] {
	return func(yield func(string, *Parameter[B]) bool) {
		for _, name := range d.order {
			if !yield(name, d.params[name]) {
				return
			}
		}
	}
}

// Merge adds every parameter of others to d.
//
// The same *Parameter reachable through several registries is a shared
// parameter and is kept once. Two distinct parameters with the same name fail
// with ErrNameCollision, leaving d unchanged.
func (d *ParameterDict[B]) Merge(others ...*ParameterDict[B]) error {
	pending := make(map[string]*Parameter[B])
	var order []string
	for _, other := range others {
		for name, p := range other.All() {
			existing, ok := d.params[name]
			if !ok {
				existing, ok = pending[name]
			}
			if ok {
				if existing != p {
					return paramError("merge", name, ErrNameCollision, "defined by more than one registry")
				}
				continue
			}
			pending[name] = p
			order = append(order, name)
		}
	}
	for _, name := range order {
		d.add(pending[name])
	}
	return nil
}

// Select returns a new registry holding the parameters whose names match the
// regular expression pattern.
func (d *ParameterDict[B]) Select(pattern string) (*ParameterDict[B], error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("select: %w", err)
	}
	out := NewParameterDict(d.prefix, d.backend)
	for name, p := range d.All() {
		if re.MatchString(name) {
			out.add(p)
		}
	}
	return out, nil
}

// Initialize initializes every parameter, collecting all failures.
func (d *ParameterDict[B]) Initialize(init Initializer, cfg InitConfig) error {
	var errs []error
	for _, p := range d.All() {
		if err := p.Initialize(init, cfg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ZeroGrad clears every gradient accumulator.
func (d *ParameterDict[B]) ZeroGrad() {
	for _, p := range d.All() {
		p.ZeroGrad()
	}
}

// Reset moves every parameter to the given contexts.
func (d *ParameterDict[B]) Reset(ctxs []tensor.Context) error {
	for _, p := range d.All() {
		if err := p.Reset(ctxs); err != nil {
			return err
		}
	}
	return nil
}
