package ml

import (
	"context"
	"fmt"
	"log"
	"time"
)

type TrainingConfig struct {
	Epochs       int
	VerboseEvery int    // How often to log progress (in epochs), 0 = about every 1%
	ModelPath    string // Saved after the last epoch when set

	Logger *log.Logger // nil disables progress output

	// OnEpoch runs after every epoch with the dataset MSE; returning false
	// stops training at that boundary.
	OnEpoch func(epoch int, loss float64) bool
}

// Train runs epochs full passes of Forward then Backward over every
// (input, target) pair in order. It neither shuffles nor stops early.
func (nw *Network[A]) Train(inputs, targets [][]float64, epochs int) error {
	return nw.TrainWithConfig(context.Background(), inputs, targets, TrainingConfig{Epochs: epochs})
}

// TrainWithConfig is Train with progress logging, a per-epoch callback and
// cancellation. ctx is checked between epochs, never inside one; a canceled
// run keeps the completed epochs, still saves to ModelPath and returns ctx.Err().
func (nw *Network[A]) TrainWithConfig(ctx context.Context, inputs, targets [][]float64, cfg TrainingConfig) error {
	if len(inputs) != len(targets) {
		return fmt.Errorf("%d inputs, %d targets: %w", len(inputs), len(targets), ErrBatchSizeMismatch)
	}

	every := cfg.VerboseEvery
	if every <= 0 {
		every = max(cfg.Epochs/100, 1)
	}

	var stopErr error
	start := time.Now()
	for epoch := 1; epoch <= cfg.Epochs; epoch++ {
		if stopErr = ctx.Err(); stopErr != nil {
			if cfg.Logger != nil {
				cfg.Logger.Printf("Interrupted before epoch %d", epoch)
			}
			break
		}

		if err := nw.pass(inputs, targets); err != nil {
			return fmt.Errorf("epoch %d: %w", epoch, err)
		}

		logNow := cfg.Logger != nil && (epoch%every == 0 || epoch == 1)
		if !logNow && cfg.OnEpoch == nil {
			continue
		}
		loss, err := nw.MSE(inputs, targets)
		if err != nil {
			return fmt.Errorf("epoch %d loss: %w", epoch, err)
		}
		if logNow {
			cfg.Logger.Printf("Epoch %d of %d | Loss: %.6f | Time: %v", epoch, cfg.Epochs, loss, time.Since(start))
		}
		if cfg.OnEpoch != nil && !cfg.OnEpoch(epoch, loss) {
			break
		}
	}

	if cfg.Logger != nil {
		cfg.Logger.Printf("Training complete. Total time: %v", time.Since(start))
	}
	if cfg.ModelPath != "" {
		if err := nw.Save(cfg.ModelPath); err != nil {
			return err
		}
	}
	return stopErr
}

// Epoch runs one Forward/Backward pass over every sample in order and
// returns the dataset MSE measured after the updates.
func (nw *Network[A]) Epoch(inputs, targets [][]float64) (float64, error) {
	if err := nw.pass(inputs, targets); err != nil {
		return 0, err
	}
	return nw.MSE(inputs, targets)
}

func (nw *Network[A]) pass(inputs, targets [][]float64) error {
	if len(inputs) != len(targets) {
		return fmt.Errorf("%d inputs, %d targets: %w", len(inputs), len(targets), ErrBatchSizeMismatch)
	}
	for j := range inputs {
		outputs, err := nw.Forward(inputs[j])
		if err != nil {
			return fmt.Errorf("sample %d: %w", j, err)
		}
		if err := nw.Backward(outputs, targets[j]); err != nil {
			return fmt.Errorf("sample %d: %w", j, err)
		}
	}
	return nil
}
