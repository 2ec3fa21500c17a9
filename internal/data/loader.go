package data

import (
	"fmt"
	"iter"

	"github.com/born-ml/blocks/internal/tensor"
	"golang.org/x/exp/rand"
)

// LoaderOption configures a Loader.
type LoaderOption func(*loaderConfig)

type loaderConfig struct {
	shuffle  bool
	seed     uint64
	dropLast bool
}

// WithShuffle visits examples in a seeded random order that changes on
// every pass.
func WithShuffle(seed uint64) LoaderOption {
	return func(c *loaderConfig) {
		c.shuffle = true
		c.seed = seed
	}
}

// WithDropLast skips a final batch smaller than the batch size.
func WithDropLast() LoaderOption {
	return func(c *loaderConfig) { c.dropLast = true }
}

// Loader batches a Dataset into tensors.
//
// Example:
//
//	loader, _ := data.NewLoader(ds, 64, backend, data.WithShuffle(1))
//	for x, y := range loader.Batches() {
//	    // x: [64, 784] float32, y: [64] int32
//	}
type Loader[B tensor.Backend] struct {
	ds        Dataset
	batchSize int
	backend   B
	cfg       loaderConfig
	pass      uint64
}

// NewLoader creates a loader over ds.
func NewLoader[B tensor.Backend](ds Dataset, batchSize int, backend B, opts ...LoaderOption) (*Loader[B], error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("loader: batch size must be positive, got %d", batchSize)
	}
	l := &Loader[B]{ds: ds, batchSize: batchSize, backend: backend}
	for _, opt := range opts {
		opt(&l.cfg)
	}
	return l, nil
}

// BatchSize returns the configured batch size.
func (l *Loader[B]) BatchSize() int {
	return l.batchSize
}

// NumBatches returns the number of batches per pass.
func (l *Loader[B]) NumBatches() int {
	n := l.ds.Len() / l.batchSize
	if !l.cfg.dropLast && l.ds.Len()%l.batchSize != 0 {
		n++
	}
	return n
}

// Batches returns one pass over the dataset. Each call starts a new pass;
// batches are built lazily as the sequence is consumed.
func (l *Loader[B]) Batches() iter.Seq2[*tensor.Tensor[float32, B], *tensor.Tensor[int32, B]] {
	order := l.order()
	return func(yield func(*tensor.Tensor[float32, B], *tensor.Tensor[int32, B]) bool) {
		featShape := l.ds.FeatureShape()
		stride := featShape.NumElements()

		for start := 0; start < len(order); start += l.batchSize {
			end := min(start+l.batchSize, len(order))
			if l.cfg.dropLast && end-start < l.batchSize {
				return
			}

			n := end - start
			x := tensor.Zeros[float32](append(tensor.Shape{n}, featShape...), l.backend)
			y := tensor.Zeros[int32](tensor.Shape{n}, l.backend)
			xs, ys := x.Data(), y.Data()
			for i, idx := range order[start:end] {
				features, label := l.ds.Example(idx)
				copy(xs[i*stride:(i+1)*stride], features)
				ys[i] = label
			}

			if !yield(x, y) {
				return
			}
		}
	}
}

func (l *Loader[B]) order() []int {
	n := l.ds.Len()
	if l.cfg.shuffle {
		rng := rand.New(rand.NewSource(l.cfg.seed + l.pass))
		l.pass++
		return rng.Perm(n)
	}
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	return order
}

// Shard is the part of a batch assigned to one context.
type Shard[B tensor.Backend] struct {
	Ctx    tensor.Context
	Data   *tensor.Tensor[float32, B]
	Labels *tensor.Tensor[int32, B]
}

// Split divides a batch along its first dimension over ctxs. Earlier shards
// take one extra example when the batch does not divide evenly; contexts
// beyond the batch size receive nothing. Each context may appear only once.
func Split[B tensor.Backend](x *tensor.Tensor[float32, B], y *tensor.Tensor[int32, B], ctxs []tensor.Context) ([]Shard[B], error) {
	n := x.Shape()[0]
	if y.Shape()[0] != n {
		return nil, fmt.Errorf("split: %d examples but %d labels", n, y.Shape()[0])
	}
	if len(ctxs) == 0 {
		return nil, fmt.Errorf("split: no contexts")
	}
	if err := tensor.CheckContexts(ctxs); err != nil {
		return nil, fmt.Errorf("split: %w", err)
	}

	parts := min(len(ctxs), n)
	stride := x.NumElements() / max(n, 1)
	xs, ys := x.Data(), y.Data()

	shards := make([]Shard[B], 0, parts)
	start := 0
	for i := range parts {
		size := n / parts
		if i < n%parts {
			size++
		}
		end := start + size

		shape := append(tensor.Shape{size}, x.Shape()[1:]...)
		xd, err := tensor.FromSlice(xs[start*stride:end*stride], shape, x.Backend())
		if err != nil {
			return nil, fmt.Errorf("split: %w", err)
		}
		yd, err := tensor.FromSlice(ys[start:end], tensor.Shape{size}, y.Backend())
		if err != nil {
			return nil, fmt.Errorf("split: %w", err)
		}
		shards = append(shards, Shard[B]{Ctx: ctxs[i], Data: xd, Labels: yd})
		start = end
	}
	return shards, nil
}
