package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_Version(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"version"}, &out, &out))
	assert.Equal(t, "blocks "+version+"\n", out.String())
}

func TestRun_UnknownCommand(t *testing.T) {
	var out, errOut bytes.Buffer
	err := run(context.Background(), []string{"serve"}, &out, &errOut)
	assert.ErrorContains(t, err, `unknown command "serve"`)
	assert.Contains(t, errOut.String(), "Commands:")
}

func TestRun_Inspect(t *testing.T) {
	var out, errOut bytes.Buffer
	err := run(context.Background(),
		[]string{"inspect", "-hidden", "8", "-classes", "3", "-features", "5"}, &out, &errOut)
	require.NoError(t, err)

	s := out.String()
	assert.Contains(t, s, "Dense(5 -> 8, relu)")
	assert.Contains(t, s, "Dense(8 -> 3, linear)")
	assert.Contains(t, s, "sequential0_dense0_weight (shape=(5, 8)")
	assert.Contains(t, s, "4 parameters, 75 values")
}

func TestRun_InspectBadHidden(t *testing.T) {
	var out, errOut bytes.Buffer
	err := run(context.Background(), []string{"inspect", "-hidden", "8,x"}, &out, &errOut)
	assert.ErrorContains(t, err, "-hidden")
}

func TestRun_TrainSynthetic(t *testing.T) {
	var out, errOut bytes.Buffer
	err := run(context.Background(), []string{
		"train", "-synthetic", "100", "-epochs", "1", "-batch", "25", "-hidden", "8", "-log-format", "json",
	}, &out, &errOut)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "Epoch 0. Loss:")
	assert.Contains(t, errOut.String(), `"msg":"epoch complete"`)
}

func TestRun_TrainConfigFileWithOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "train.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`
epochs            = 5
synthetic_samples = 60
hidden            = [4]
optimizer         = "adam"
learning_rate     = 0.01
`), 0o600))

	flags := newConfigFlags("train", &bytes.Buffer{})
	cfg, err := flags.config([]string{"-config", path, "-epochs", "2"})
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Epochs)
	assert.Equal(t, 60, cfg.SyntheticSamples)
	assert.Equal(t, []int{4}, cfg.Hidden)
	assert.Equal(t, "adam", cfg.Optimizer)
	assert.Equal(t, 64, cfg.BatchSize)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"cpu(0)", "cpu(1)"}, splitList(" cpu(0), ,cpu(1) "))
	assert.Nil(t, splitList(""))
}
