package train_test

import (
	"bytes"
	"context"
	"math"
	"strings"
	"testing"

	"github.com/born-ml/blocks/internal/autodiff"
	"github.com/born-ml/blocks/internal/backend/cpu"
	"github.com/born-ml/blocks/internal/ctxlog"
	"github.com/born-ml/blocks/internal/data"
	"github.com/born-ml/blocks/internal/nn"
	"github.com/born-ml/blocks/internal/tensor"
	"github.com/born-ml/blocks/internal/train"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallProblem(t *testing.T) (trainSet, testSet *data.ArrayDataset) {
	t.Helper()
	all, err := data.Synthetic(data.SyntheticConfig{Samples: 250, Classes: 3, Features: 8, Noise: 0.05, Seed: 7})
	require.NoError(t, err)
	trainSet, err = all.Slice(0, 200)
	require.NoError(t, err)
	testSet, err = all.Slice(200, 250)
	require.NoError(t, err)
	return trainSet, testSet
}

func smallConfig() train.Config {
	cfg := train.DefaultConfig()
	cfg.Epochs = 10
	cfg.BatchSize = 20
	cfg.LearningRate = 0.5
	cfg.Hidden = []int{16}
	cfg.Classes = 3
	return cfg
}

func TestNewMLP(t *testing.T) {
	b := autodiff.New(cpu.New())
	net := train.NewMLP(b, []int{128, 64}, 10, true)

	require.Equal(t, 4, net.Len())
	assert.Equal(t, "Centered", net.At(0).String())
	assert.Equal(t, "sequential0_dense0_", net.At(1).Prefix())
	assert.Equal(t, "Dense(None -> 10, linear)", net.At(3).String())

	params, err := net.CollectParameters()
	require.NoError(t, err)
	assert.Equal(t, 6, params.Len())
}

func TestDriver_Run(t *testing.T) {
	trainSet, testSet := smallProblem(t)
	b := autodiff.New(cpu.New())

	d, err := train.NewDriver(smallConfig(), b, trainSet, testSet)
	require.NoError(t, err)

	var logs bytes.Buffer
	ctx := ctxlog.WithLogger(context.Background(), ctxlog.New("info", "text", &logs))

	result, err := d.Run(ctx)
	require.NoError(t, err)
	require.Len(t, result.Epochs, 10)

	first, final := result.Epochs[0], result.Final()
	assert.Less(t, final.Loss, first.Loss)
	assert.Greater(t, final.TrainAccuracy, 0.7)
	assert.Greater(t, final.TestAccuracy, 0.7)
	assert.Equal(t, 9, final.Epoch)

	assert.Equal(t, 10, strings.Count(logs.String(), "epoch complete"))

	// The first layer inferred its input width from the data.
	w, err := d.Params().Lookup("sequential0_dense0_weight")
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{8, 16}, w.Shape())
}

func TestDriver_MultiContextReplicasAgree(t *testing.T) {
	trainSet, _ := smallProblem(t)
	b := autodiff.New(cpu.New())

	cfg := smallConfig()
	cfg.Epochs = 2
	cfg.BatchSize = 21 // uneven split, last batch of 11
	cfg.Contexts = []string{"cpu(0)", "cpu(1)"}

	d, err := train.NewDriver(cfg, b, trainSet, nil)
	require.NoError(t, err)

	result, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, math.IsNaN(result.Final().TestAccuracy), "no test set gives NaN")

	for name, p := range d.Params().All() {
		replicas := p.ListData()
		require.Len(t, replicas, 2, name)
		assert.Equal(t, replicas[0].Data(), replicas[1].Data(), name)
	}
}

func TestDriver_Deterministic(t *testing.T) {
	trainSet, testSet := smallProblem(t)
	cfg := smallConfig()
	cfg.Epochs = 2

	run := func() *train.Result {
		d, err := train.NewDriver(cfg, autodiff.New(cpu.New()), trainSet, testSet)
		require.NoError(t, err)
		result, err := d.Run(context.Background())
		require.NoError(t, err)
		return result
	}

	assert.Equal(t, run().Final().Loss, run().Final().Loss)
}

func TestDriver_Canceled(t *testing.T) {
	trainSet, _ := smallProblem(t)
	d, err := train.NewDriver(smallConfig(), autodiff.New(cpu.New()), trainSet, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result, err := d.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, result.Epochs)
}

func TestDriver_ShapeMismatch(t *testing.T) {
	trainSet, _ := smallProblem(t)
	b := autodiff.New(cpu.New())

	// The first layer expects 5 inputs, the data has 8.
	net := nn.NewSequential(b)
	net.Add(nn.NewDense(3, 5, b, nn.WithScope(net.Scope()), nn.WithActivation(nn.ActivationNone)))

	d, err := train.NewDriverForBlock(smallConfig(), b, net, trainSet, nil)
	require.NoError(t, err)

	_, err = d.Run(context.Background())
	assert.ErrorIs(t, err, nn.ErrShapeMismatch)
}

func TestNewDriver_InvalidConfig(t *testing.T) {
	trainSet, _ := smallProblem(t)
	cfg := smallConfig()
	cfg.Optimizer = "lbfgs"

	_, err := train.NewDriver(cfg, autodiff.New(cpu.New()), trainSet, nil)
	assert.Error(t, err)
}

func TestLoadDatasets_Synthetic(t *testing.T) {
	cfg := train.DefaultConfig()
	cfg.SyntheticSamples = 100

	trainSet, testSet, err := train.LoadDatasets(cfg)
	require.NoError(t, err)
	assert.Equal(t, 80, trainSet.Len())
	assert.Equal(t, 20, testSet.Len())
	assert.Equal(t, tensor.Shape{784}, trainSet.FeatureShape())
}
