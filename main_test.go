package main

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/b0tShaman/neuro-mlp/data"
	"github.com/b0tShaman/neuro-mlp/ml"
)

var discard = log.New(io.Discard, "", 0)

func TestParseFlags(t *testing.T) {
	opts, err := parseFlags([]string{"-layers", "3, 8,2", "-lr", "0.1", "-epochs", "10", "-activation", "tanh", "-seed", "7"})
	require.NoError(t, err)
	assert.Equal(t, []int{3, 8, 2}, opts.layers)
	assert.Equal(t, 0.1, opts.lr)
	assert.Equal(t, 10, opts.epochs)
	assert.Equal(t, "tanh", opts.activation)
	assert.Equal(t, uint64(7), opts.seed)

	_, err = parseFlags([]string{"-layers", "2,x,1"})
	require.Error(t, err)
}

func TestRunUnknownActivation(t *testing.T) {
	opts, err := parseFlags([]string{"-activation", "softmax", "-epochs", "1"})
	require.NoError(t, err)
	require.ErrorIs(t, run(context.Background(), opts, discard), ml.ErrUnknownActivation)
}

func TestRunInvalidTopology(t *testing.T) {
	opts, err := parseFlags([]string{"-layers", "2,0,1", "-epochs", "1"})
	require.NoError(t, err)
	require.ErrorIs(t, run(context.Background(), opts, discard), ml.ErrInvalidTopology)
}

func TestRunSavesAndReloadsModel(t *testing.T) {
	model := filepath.Join(t.TempDir(), "xor.json")
	opts, err := parseFlags([]string{"-epochs", "20", "-seed", "3", "-model", model})
	require.NoError(t, err)

	require.NoError(t, run(context.Background(), opts, discard))
	first, err := ml.LoadNetwork[ml.Sigmoid](model)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 4, 1}, first.Layers())

	// A second run continues from the saved weights.
	require.NoError(t, run(context.Background(), opts, discard))
	second, err := ml.LoadNetwork[ml.Sigmoid](model)
	require.NoError(t, err)
	assert.False(t, ml.Equal(first.Weights()[0], second.Weights()[0]))
}

func TestRunFromCSV(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "and.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("x1,x2,y\n0,0,0\n0,1,0\n1,0,0\n1,1,1\n"), 0o644))

	opts, err := parseFlags([]string{"-data", csvPath, "-header", "-layers", "2,1", "-epochs", "5", "-model", filepath.Join(dir, "and.gob")})
	require.NoError(t, err)
	require.NoError(t, run(context.Background(), opts, discard))

	_, err = ml.LoadNetwork[ml.Sigmoid](filepath.Join(dir, "and.gob"))
	require.NoError(t, err)
}

// --- Benchmarks: Full Network Training ---

func benchmarkXORTraining(b *testing.B, epochs int) {
	ds := data.XOR()
	for n := 0; n < b.N; n++ {
		nw, err := ml.NewNetwork[ml.Sigmoid]([]int{2, 4, 1}, 0.5, ml.WithRandSource(ml.NewSeededSource(1)))
		if err != nil {
			b.Fatal(err)
		}
		if err := nw.Train(ds.Inputs, ds.Targets, epochs); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkTrainXOR_100(b *testing.B)  { benchmarkXORTraining(b, 100) }
func BenchmarkTrainXOR_1000(b *testing.B) { benchmarkXORTraining(b, 1000) }
