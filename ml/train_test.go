package ml

import (
	"bytes"
	"context"
	"log"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	xorInputs  = [][]float64{{0, 0}, {0, 1}, {1, 0}, {1, 1}}
	xorTargets = [][]float64{{0}, {1}, {1}, {0}}
)

// XOR is not linearly separable, so convergence exercises forward, backward
// and the hidden layer together.
func TestTrainXORConverges(t *testing.T) {
	nw, err := NewNetwork[Sigmoid]([]int{2, 4, 1}, 0.5, WithRandSource(NewSeededSource(1)))
	require.NoError(t, err)

	require.NoError(t, nw.Train(xorInputs, xorTargets, 3000))

	loss, err := nw.MSE(xorInputs, xorTargets)
	require.NoError(t, err)
	require.Less(t, loss, 0.05)

	for i, in := range xorInputs {
		out, err := nw.Forward(in)
		require.NoError(t, err)
		assert.InDelta(t, xorTargets[i][0], out[0], 0.2, "input %v", in)
	}
}

// countingLinear is Linear that counts forward activations.
type countingLinear struct{ Linear }

var countedActivations int

func (countingLinear) Activate(x float64) float64 {
	countedActivations++
	return x
}

func TestTrainSkipsLossWhenUnused(t *testing.T) {
	nw, err := NewNetwork[countingLinear]([]int{2, 1}, 0.01, WithRandSource(NewSeededSource(3)))
	require.NoError(t, err)

	// One output neuron, four samples: one activation per forward pass.
	countedActivations = 0
	require.NoError(t, nw.Train(xorInputs, xorTargets, 3))
	assert.Equal(t, 3*len(xorInputs), countedActivations)

	countedActivations = 0
	cfg := TrainingConfig{Epochs: 3, OnEpoch: func(int, float64) bool { return true }}
	require.NoError(t, nw.TrainWithConfig(context.Background(), xorInputs, xorTargets, cfg))
	assert.Equal(t, 2*3*len(xorInputs), countedActivations)
}

func TestTrainIsDeterministic(t *testing.T) {
	a := newTestNetwork[Tanh](t, []int{2, 3, 1}, 0.2)
	b := newTestNetwork[Tanh](t, []int{2, 3, 1}, 0.2)

	require.NoError(t, a.Train(xorInputs, xorTargets, 25))
	require.NoError(t, b.Train(xorInputs, xorTargets, 25))

	for i := range a.weights {
		require.True(t, Equal(a.weights[i], b.weights[i]))
		require.True(t, Equal(a.biases[i], b.biases[i]))
	}
}

func TestTrainBatchSizeMismatch(t *testing.T) {
	nw := newTestNetwork[Sigmoid](t, []int{2, 2, 1}, 0.5)
	err := nw.Train(xorInputs, xorTargets[:3], 1)
	require.ErrorIs(t, err, ErrBatchSizeMismatch)
}

func TestTrainReportsSampleErrors(t *testing.T) {
	nw := newTestNetwork[Sigmoid](t, []int{2, 2, 1}, 0.5)
	err := nw.Train([][]float64{{0, 1}, {1}}, [][]float64{{1}, {0}}, 3)
	require.ErrorIs(t, err, ErrInputSizeMismatch)
	assert.Contains(t, err.Error(), "epoch 1")
	assert.Contains(t, err.Error(), "sample 1")
}

func TestTrainWithConfigStopsOnCallback(t *testing.T) {
	nw := newTestNetwork[Sigmoid](t, []int{2, 3, 1}, 0.5)

	var epochs []int
	cfg := TrainingConfig{
		Epochs: 100,
		OnEpoch: func(epoch int, loss float64) bool {
			epochs = append(epochs, epoch)
			assert.GreaterOrEqual(t, loss, 0.0)
			return epoch < 3
		},
	}
	require.NoError(t, nw.TrainWithConfig(context.Background(), xorInputs, xorTargets, cfg))
	assert.Equal(t, []int{1, 2, 3}, epochs)
}

func TestTrainWithConfigCanceled(t *testing.T) {
	nw := newTestNetwork[Sigmoid](t, []int{2, 3, 1}, 0.5)
	before := nw.Weights()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	path := filepath.Join(t.TempDir(), "canceled.json")
	err := nw.TrainWithConfig(ctx, xorInputs, xorTargets, TrainingConfig{Epochs: 10, ModelPath: path})
	require.ErrorIs(t, err, context.Canceled)
	for i := range before {
		assert.True(t, Equal(before[i], nw.weights[i]))
	}

	// The interrupted model is still saved.
	loaded, err := LoadNetwork[Sigmoid](path)
	require.NoError(t, err)
	assert.Equal(t, nw.Layers(), loaded.Layers())
}

func TestTrainWithConfigCancelBetweenEpochs(t *testing.T) {
	nw := newTestNetwork[Sigmoid](t, []int{2, 3, 1}, 0.5)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	completed := 0
	cfg := TrainingConfig{
		Epochs: 50,
		OnEpoch: func(epoch int, _ float64) bool {
			completed = epoch
			if epoch == 4 {
				cancel()
			}
			return true
		},
	}
	err := nw.TrainWithConfig(ctx, xorInputs, xorTargets, cfg)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 4, completed)
}

func TestTrainWithConfigLogsProgress(t *testing.T) {
	nw := newTestNetwork[Sigmoid](t, []int{2, 3, 1}, 0.5)
	var buf bytes.Buffer

	cfg := TrainingConfig{
		Epochs:       10,
		VerboseEvery: 5,
		Logger:       log.New(&buf, "", 0),
	}
	require.NoError(t, nw.TrainWithConfig(context.Background(), xorInputs, xorTargets, cfg))

	out := buf.String()
	assert.Contains(t, out, "Epoch 1 of 10")
	assert.Contains(t, out, "Epoch 5 of 10")
	assert.Contains(t, out, "Epoch 10 of 10")
	assert.NotContains(t, out, "Epoch 2 of 10")
	assert.Contains(t, out, "Training complete")
}

func TestTrainWithConfigSavesModel(t *testing.T) {
	nw := newTestNetwork[Sigmoid](t, []int{2, 3, 1}, 0.5)
	path := filepath.Join(t.TempDir(), "model.gob")

	require.NoError(t, nw.TrainWithConfig(context.Background(), xorInputs, xorTargets, TrainingConfig{Epochs: 5, ModelPath: path}))

	loaded, err := LoadNetwork[Sigmoid](path)
	require.NoError(t, err)
	for i := range nw.weights {
		assert.True(t, Equal(nw.weights[i], loaded.weights[i]))
	}
}

func TestEpochReturnsLoss(t *testing.T) {
	nw := newTestNetwork[Sigmoid](t, []int{2, 4, 1}, 0.5)

	loss, err := nw.Epoch(xorInputs, xorTargets)
	require.NoError(t, err)

	want, err := nw.MSE(xorInputs, xorTargets)
	require.NoError(t, err)
	assert.Equal(t, want, loss)
	assert.Nil(t, nw.Cache())
}
