// Package train runs the supervised training loop over a block: batches are
// split across contexts, recorded, differentiated and applied by a Trainer.
package train

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/born-ml/blocks/internal/autodiff"
	"github.com/born-ml/blocks/internal/ctxlog"
	"github.com/born-ml/blocks/internal/data"
	"github.com/born-ml/blocks/internal/nn"
	"github.com/born-ml/blocks/internal/optim"
	"github.com/born-ml/blocks/internal/tensor"
)

// lossDecay weights the running loss toward its history.
const lossDecay = 0.99

// Backend is an autodiff backend with scoped recording.
type Backend interface {
	autodiff.BackwardCapable
	Record(fn func() error) error
}

// EpochStats summarizes one epoch.
type EpochStats struct {
	Epoch         int
	Loss          float64 // Moving average of the batch loss at the end of the epoch
	TrainAccuracy float64 // Accuracy accumulated over the epoch's batches
	TestAccuracy  float64 // NaN without a test set
	Duration      time.Duration
}

// Result collects the per-epoch statistics of a run.
type Result struct {
	Epochs []EpochStats
}

// Final returns the statistics of the last epoch.
func (r *Result) Final() EpochStats {
	if len(r.Epochs) == 0 {
		return EpochStats{Loss: math.NaN(), TrainAccuracy: math.NaN(), TestAccuracy: math.NaN()}
	}
	return r.Epochs[len(r.Epochs)-1]
}

// Driver trains a network on a dataset.
type Driver[B Backend] struct {
	cfg     Config
	backend B
	ctxs    []tensor.Context
	net     nn.Block[B]
	params  *nn.ParameterDict[B]
	trainer *optim.Trainer[B]
	loss    *nn.SoftmaxCrossEntropyLoss[B]
	train   *data.Loader[B]
	test    *data.Loader[B]
}

// NewDriver builds the network described by cfg, initializes it on the
// configured contexts and prepares loaders. test may be nil.
func NewDriver[B Backend](cfg Config, backend B, trainSet, testSet data.Dataset) (*Driver[B], error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	ctxs, err := tensor.ParseContexts(cfg.Contexts)
	if err != nil {
		return nil, err
	}

	net := NewMLP(backend, cfg.Hidden, cfg.Classes, cfg.Centered)
	return newDriver(cfg, backend, ctxs, net, trainSet, testSet)
}

// NewDriverForBlock trains an arbitrary block. Its architecture fields in
// cfg (Hidden, Classes, Centered) are ignored.
func NewDriverForBlock[B Backend](cfg Config, backend B, net nn.Block[B], trainSet, testSet data.Dataset) (*Driver[B], error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	ctxs, err := tensor.ParseContexts(cfg.Contexts)
	if err != nil {
		return nil, err
	}
	return newDriver(cfg, backend, ctxs, net, trainSet, testSet)
}

func newDriver[B Backend](cfg Config, backend B, ctxs []tensor.Context, net nn.Block[B], trainSet, testSet data.Dataset) (*Driver[B], error) {
	initCfg := nn.InitConfig{Seed: cfg.Seed, Contexts: ctxs}
	if err := nn.InitializeAll(net, nn.DefaultXavier(), initCfg); err != nil {
		return nil, fmt.Errorf("failed to initialize %s: %w", net.Prefix(), err)
	}
	params, err := net.CollectParameters()
	if err != nil {
		return nil, err
	}

	trainLoader, err := data.NewLoader(trainSet, cfg.BatchSize, backend, data.WithShuffle(cfg.Seed))
	if err != nil {
		return nil, err
	}
	var testLoader *data.Loader[B]
	if testSet != nil {
		if testLoader, err = data.NewLoader(testSet, cfg.BatchSize, backend); err != nil {
			return nil, err
		}
	}

	return &Driver[B]{
		cfg:     cfg,
		backend: backend,
		ctxs:    ctxs,
		net:     net,
		params:  params,
		trainer: optim.NewTrainer(params, newOptimizer(cfg)),
		loss:    nn.NewSoftmaxCrossEntropyLoss[B](),
		train:   trainLoader,
		test:    testLoader,
	}, nil
}

func newOptimizer(cfg Config) optim.Optimizer {
	if cfg.Optimizer == OptimizerAdam {
		return optim.NewAdam(optim.AdamConfig{
			LR:          float32(cfg.LearningRate),
			WeightDecay: float32(cfg.WeightDecay),
		})
	}
	return optim.NewSGD(optim.SGDConfig{
		LR:          float32(cfg.LearningRate),
		Momentum:    float32(cfg.Momentum),
		WeightDecay: float32(cfg.WeightDecay),
	})
}

// NewMLP builds a Sequential of ReLU Dense layers of the given widths
// followed by a linear output layer of classes units. Input widths are
// inferred on the first forward pass. centered prepends a Centered block.
func NewMLP[B tensor.Backend](backend B, hidden []int, classes int, centered bool) *nn.Sequential[B] {
	net := nn.NewSequential(backend)
	if centered {
		net.Add(nn.NewCentered(backend, nn.WithScope(net.Scope())))
	}
	for _, units := range hidden {
		net.Add(nn.NewDense(units, 0, backend, nn.WithScope(net.Scope())))
	}
	net.Add(nn.NewDense(classes, 0, backend, nn.WithScope(net.Scope()), nn.WithActivation(nn.ActivationNone)))
	return net
}

// Net returns the trained block.
func (d *Driver[B]) Net() nn.Block[B] {
	return d.net
}

// Params returns the parameters being optimized.
func (d *Driver[B]) Params() *nn.ParameterDict[B] {
	return d.params
}

// Run trains for the configured number of epochs. It stops early with the
// context's error if ctx is canceled between batches.
func (d *Driver[B]) Run(ctx context.Context) (*Result, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Info("starting training",
		"net", d.net.Prefix(),
		"params", d.params.Len(),
		"contexts", fmt.Sprint(d.ctxs),
		"batches_per_epoch", d.train.NumBatches(),
		"optimizer", d.cfg.Optimizer)

	result := &Result{}
	acc := nn.NewAccuracy()
	movingLoss := math.NaN()

	for epoch := range d.cfg.Epochs {
		start := time.Now()
		acc.Reset()

		batch := 0
		for x, y := range d.train.Batches() {
			if err := ctx.Err(); err != nil {
				return result, err
			}

			cur, err := d.step(x, y, acc)
			if err != nil {
				return result, fmt.Errorf("epoch %d batch %d: %w", epoch, batch, err)
			}
			if math.IsNaN(movingLoss) {
				movingLoss = cur
			} else {
				movingLoss = lossDecay*movingLoss + (1-lossDecay)*cur
			}
			logger.Debug("batch done", "epoch", epoch, "batch", batch, "loss", cur, "moving_loss", movingLoss)
			batch++
		}

		_, trainAcc := acc.Get()
		testAcc := math.NaN()
		if d.test != nil {
			var err error
			if testAcc, err = d.Evaluate(d.test); err != nil {
				return result, fmt.Errorf("epoch %d: evaluate: %w", epoch, err)
			}
		}

		stats := EpochStats{
			Epoch:         epoch,
			Loss:          movingLoss,
			TrainAccuracy: trainAcc,
			TestAccuracy:  testAcc,
			Duration:      time.Since(start),
		}
		result.Epochs = append(result.Epochs, stats)
		logger.Info("epoch complete",
			"epoch", epoch,
			"loss", stats.Loss,
			"train_acc", stats.TrainAccuracy,
			"test_acc", stats.TestAccuracy,
			"duration", stats.Duration)
	}
	return result, nil
}

// step trains on one batch and returns its mean loss.
func (d *Driver[B]) step(x *tensor.Tensor[float32, B], y *tensor.Tensor[int32, B], acc *nn.Accuracy) (float64, error) {
	shards, err := data.Split(x, y, d.ctxs)
	if err != nil {
		return 0, err
	}
	if len(shards) < len(d.ctxs) {
		// Idle contexts must not contribute the previous batch's gradients.
		d.trainer.ZeroGrad()
	}

	var total float64
	for _, shard := range shards {
		err := d.backend.Record(func() error {
			out, err := d.net.Forward(shard.Ctx, shard.Data)
			if err != nil {
				return err
			}
			loss, err := d.loss.Forward(out, shard.Labels)
			if err != nil {
				return err
			}
			for _, v := range loss.Data() {
				total += float64(v)
			}
			if err := acc.Update(shard.Labels.Raw(), out.Raw()); err != nil {
				return err
			}
			return nn.Backward(loss, d.params, shard.Ctx)
		})
		if err != nil {
			return 0, fmt.Errorf("%s: %w", shard.Ctx, err)
		}
	}

	n := x.Shape()[0]
	if err := d.trainer.Step(n); err != nil {
		return 0, err
	}
	return total / float64(n), nil
}

// Evaluate returns the accuracy of the network over every batch of loader,
// computed on the first context without recording.
func (d *Driver[B]) Evaluate(loader *data.Loader[B]) (float64, error) {
	acc := nn.NewAccuracy()
	for x, y := range loader.Batches() {
		out, err := d.net.Forward(d.ctxs[0], x)
		if err != nil {
			return 0, err
		}
		if err := acc.Update(y.Raw(), out.Raw()); err != nil {
			return 0, err
		}
	}
	_, value := acc.Get()
	return value, nil
}

// LoadDatasets returns the train and test sets selected by cfg: MNIST from
// DataDir, or a synthetic MNIST-like problem split 80/20.
func LoadDatasets(cfg Config) (trainSet, testSet *data.ArrayDataset, err error) {
	if cfg.DataDir != "" {
		if trainSet, err = data.LoadMNIST(cfg.DataDir, true, cfg.MaxSamples); err != nil {
			return nil, nil, fmt.Errorf("train set: %w", err)
		}
		if testSet, err = data.LoadMNIST(cfg.DataDir, false, cfg.MaxSamples); err != nil {
			return nil, nil, fmt.Errorf("test set: %w", err)
		}
		return trainSet, testSet, nil
	}

	synth := data.MNISTLike(cfg.SyntheticSamples, cfg.Seed)
	synth.Classes = cfg.Classes
	all, err := data.Synthetic(synth)
	if err != nil {
		return nil, nil, err
	}
	cut := all.Len() * 4 / 5
	if trainSet, err = all.Slice(0, cut); err != nil {
		return nil, nil, err
	}
	if testSet, err = all.Slice(cut, all.Len()); err != nil {
		return nil, nil, err
	}
	return trainSet, testSet, nil
}
