package ml

import (
	"errors"
	"fmt"
)

// Every sentinel is prefixed with "ml: ". Callers match them with errors.Is;
// the engine adds context with fmt.Errorf("...: %w", ErrX).
var (
	// ErrShapeMismatch is returned when the operands of a matrix operation
	// have incompatible dimensions.
	ErrShapeMismatch = errors.New("ml: shape mismatch")

	// ErrInvalidTopology is returned when a network is built (or loaded) with
	// fewer than two layers, a non-positive layer size or a non-positive
	// learning rate.
	ErrInvalidTopology = errors.New("ml: invalid topology")

	// ErrInputSizeMismatch is returned by a forward pass whose input length
	// differs from the input layer size.
	ErrInputSizeMismatch = errors.New("ml: input size mismatch")

	// ErrTargetSizeMismatch is returned by a backward pass whose target length
	// differs from the output layer size.
	ErrTargetSizeMismatch = errors.New("ml: target size mismatch")

	// ErrStaleActivationCache is returned when a backward pass has no matching
	// forward pass to read activations from.
	ErrStaleActivationCache = errors.New("ml: stale or missing activation cache")

	// ErrCorruptRecord is returned when a persisted network cannot be decoded
	// into a valid layers/learning_rate/weights/biases record.
	ErrCorruptRecord = errors.New("ml: corrupt network record")

	// ErrPersistenceIO is returned when the file system fails during save/load.
	ErrPersistenceIO = errors.New("ml: persistence i/o failure")

	// ErrEncodeRecord is returned when a network cannot be serialized, for
	// instance because a weight is NaN or Inf.
	ErrEncodeRecord = errors.New("ml: cannot encode network record")

	// ErrNumericOverflow is returned when a forward pass produces NaN or Inf.
	ErrNumericOverflow = errors.New("ml: numeric overflow")

	// ErrBatchSizeMismatch is returned when training inputs and targets differ in count.
	ErrBatchSizeMismatch = errors.New("ml: input and target batch sizes differ")

	// ErrUnknownActivation is returned by ActivationByName for unregistered names.
	ErrUnknownActivation = errors.New("ml: unknown activation")
)

// ShapeError describes a failed matrix operation. It unwraps to ErrShapeMismatch.
type ShapeError struct {
	Op    string
	ARows int
	ACols int
	BRows int
	BCols int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("ml: %s shape mismatch: [%d, %d] vs [%d, %d]",
		e.Op, e.ARows, e.ACols, e.BRows, e.BCols)
}

func (e *ShapeError) Unwrap() error {
	return ErrShapeMismatch
}

func shapeError(op string, a, b *Matrix) error {
	return &ShapeError{Op: op, ARows: a.rows, ACols: a.cols, BRows: b.rows, BCols: b.cols}
}
