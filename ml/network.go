package ml

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Network is a fully connected feedforward network whose every layer uses
// the activation A. A must be a concrete type such as Sigmoid; its zero
// value is the one used.
//
// A Network is not safe for concurrent use.
type Network[A Activation] struct {
	layers       []int
	weights      []*Matrix // weights[i] is layers[i+1] x layers[i]
	biases       []*Matrix // biases[i] is layers[i+1] x 1
	learningRate float64
	act          A

	// data caches the column activations of the last Forward call.
	// Backward consumes and clears it.
	data *Activations
}

// Activations holds one column vector per layer, as produced by a forward pass.
type Activations struct {
	data []*Matrix
}

// Len is the number of cached layers.
func (c *Activations) Len() int { return len(c.data) }

// Layer returns a copy of the cached activations of layer i.
func (c *Activations) Layer(i int) []float64 { return c.data[i].RawData() }

// Output returns a copy of the final layer's activations.
func (c *Activations) Output() []float64 { return c.data[len(c.data)-1].RawData() }

type networkOptions struct {
	src RandSource
}

// Option configures NewNetwork.
type Option func(*networkOptions)

// WithRandSource sets the generator used for weight and bias initialization.
func WithRandSource(src RandSource) Option {
	return func(o *networkOptions) {
		o.src = src
	}
}

// NewNetwork builds a network with random weights and biases in [-1, 1).
// layers[0] is the input size and the last entry the output size.
func NewNetwork[A Activation](layers []int, learningRate float64, opts ...Option) (*Network[A], error) {
	if err := validateTopology(layers, learningRate); err != nil {
		return nil, err
	}

	o := networkOptions{src: DefaultRandSource}
	for _, opt := range opts {
		opt(&o)
	}

	nw := &Network[A]{
		layers:       append([]int(nil), layers...),
		weights:      make([]*Matrix, 0, len(layers)-1),
		biases:       make([]*Matrix, 0, len(layers)-1),
		learningRate: learningRate,
	}
	for i := 0; i < len(layers)-1; i++ {
		nw.weights = append(nw.weights, Random(layers[i+1], layers[i], o.src))
		nw.biases = append(nw.biases, Random(layers[i+1], 1, o.src))
	}
	return nw, nil
}

func validateTopology(layers []int, learningRate float64) error {
	if len(layers) < 2 {
		return fmt.Errorf("network needs at least an input and an output layer, got %d: %w", len(layers), ErrInvalidTopology)
	}
	for i, n := range layers {
		if n <= 0 {
			return fmt.Errorf("layer %d has %d neurons: %w", i, n, ErrInvalidTopology)
		}
	}
	if !(learningRate > 0) || math.IsInf(learningRate, 1) {
		return fmt.Errorf("learning rate %v must be positive and finite: %w", learningRate, ErrInvalidTopology)
	}
	return nil
}

// -------- ACCESSORS -------- //

// Layers returns a copy of the layer sizes.
func (nw *Network[A]) Layers() []int { return append([]int(nil), nw.layers...) }

func (nw *Network[A]) LearningRate() float64 { return nw.learningRate }

// Weights returns deep copies of the weight matrices.
func (nw *Network[A]) Weights() []*Matrix { return cloneAll(nw.weights) }

// Biases returns deep copies of the bias column vectors.
func (nw *Network[A]) Biases() []*Matrix { return cloneAll(nw.biases) }

// Cache returns the activations left by the last Forward call, or nil if
// there is none (never run, or already consumed by Backward).
func (nw *Network[A]) Cache() *Activations {
	if nw.data == nil {
		return nil
	}
	return &Activations{data: cloneAll(nw.data.data)}
}

func cloneAll(ms []*Matrix) []*Matrix {
	out := make([]*Matrix, len(ms))
	for i, m := range ms {
		out[i] = m.Clone()
	}
	return out
}

// -------- FORWARD -------- //

// Forward runs inputs through every layer, caches each layer's activations
// for the following Backward call and returns the output layer.
func (nw *Network[A]) Forward(inputs []float64) ([]float64, error) {
	cache, err := nw.ForwardCache(inputs)
	if cache == nil {
		return nil, err
	}
	nw.data = cache
	return cache.Output(), err
}

// ForwardCache is Forward without touching the network's own cache: the
// activations are handed back for use with BackwardWith.
//
// A NaN or Inf output yields ErrNumericOverflow together with the cache.
func (nw *Network[A]) ForwardCache(inputs []float64) (*Activations, error) {
	if len(inputs) != nw.layers[0] {
		return nil, fmt.Errorf("got %d inputs, network expects %d: %w", len(inputs), nw.layers[0], ErrInputSizeMismatch)
	}

	current := Transpose(FromRow(inputs))
	cache := &Activations{data: make([]*Matrix, 0, len(nw.layers))}
	cache.data = append(cache.data, current)

	for i := range nw.weights {
		z, err := MatMul(nw.weights[i], current)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i+1, err)
		}
		z, err = Add(z, nw.biases[i])
		if err != nil {
			return nil, fmt.Errorf("layer %d bias: %w", i+1, err)
		}
		current = Map(z, nw.act.Activate)
		cache.data = append(cache.data, current)
	}

	if floats.HasNaN(current.data) || hasInf(current.data) {
		return cache, fmt.Errorf("forward pass output %v: %w", current.data, ErrNumericOverflow)
	}
	return cache, nil
}

func hasInf(s []float64) bool {
	for _, v := range s {
		if math.IsInf(v, 0) {
			return true
		}
	}
	return false
}

// -------- BACKWARD -------- //

// Backward updates every weight and bias once from the error between
// outputs and targets. outputs must be the slice returned by the Forward
// call immediately before; the cache is consumed either way.
func (nw *Network[A]) Backward(outputs, targets []float64) error {
	cache := nw.data
	nw.data = nil

	if len(targets) != nw.layers[len(nw.layers)-1] {
		return fmt.Errorf("got %d targets, network outputs %d: %w", len(targets), nw.layers[len(nw.layers)-1], ErrTargetSizeMismatch)
	}
	if cache == nil {
		return fmt.Errorf("backward without a preceding forward pass: %w", ErrStaleActivationCache)
	}
	if !floats.Equal(outputs, cache.data[len(cache.data)-1].data) {
		return fmt.Errorf("outputs do not match the cached forward pass: %w", ErrStaleActivationCache)
	}
	return nw.backward(cache, targets)
}

// BackwardWith is Backward against an explicit cache from ForwardCache.
// The cache must come from this network's current weights.
func (nw *Network[A]) BackwardWith(cache *Activations, targets []float64) error {
	if len(targets) != nw.layers[len(nw.layers)-1] {
		return fmt.Errorf("got %d targets, network outputs %d: %w", len(targets), nw.layers[len(nw.layers)-1], ErrTargetSizeMismatch)
	}
	if cache == nil || len(cache.data) != len(nw.layers) {
		return fmt.Errorf("cache does not match network layers: %w", ErrStaleActivationCache)
	}
	for i, c := range cache.data {
		if c.rows != nw.layers[i] || c.cols != 1 {
			return fmt.Errorf("cached layer %d is [%d, %d], want [%d, 1]: %w", i, c.rows, c.cols, nw.layers[i], ErrStaleActivationCache)
		}
	}
	return nw.backward(cache, targets)
}

// backward walks the layers from output to input. The error sent to the
// previous layer is computed with the weights as they were before this
// layer's update, so every layer sees the gradient of the same network.
func (nw *Network[A]) backward(cache *Activations, targets []float64) error {
	outputs := cache.data[len(cache.data)-1]

	errs, err := Sub(Transpose(FromRow(targets)), outputs)
	if err != nil {
		return err
	}
	gradients := Map(outputs, nw.act.Derivative)

	for i := len(nw.weights) - 1; i >= 0; i-- {
		gradients, err = Multiply(gradients, errs)
		if err != nil {
			return fmt.Errorf("layer %d gradient: %w", i+1, err)
		}
		gradients = Scale(gradients, nw.learningRate)

		deltaW, err := MatMul(gradients, Transpose(cache.data[i]))
		if err != nil {
			return fmt.Errorf("layer %d weight delta: %w", i+1, err)
		}

		errs, err = MatMul(Transpose(nw.weights[i]), errs)
		if err != nil {
			return fmt.Errorf("layer %d error propagation: %w", i+1, err)
		}

		nw.weights[i].addInPlace(deltaW)
		nw.biases[i].addInPlace(gradients)

		gradients = Map(cache.data[i], nw.act.Derivative)
	}
	return nil
}

// MSE is the mean squared error of the network over a dataset. It runs
// forward passes through ForwardCache and leaves the Backward cache alone.
func (nw *Network[A]) MSE(inputs, targets [][]float64) (float64, error) {
	if len(inputs) != len(targets) {
		return 0, fmt.Errorf("%d inputs, %d targets: %w", len(inputs), len(targets), ErrBatchSizeMismatch)
	}
	if len(inputs) == 0 {
		return 0, nil
	}
	total, count := 0.0, 0
	for i := range inputs {
		cache, err := nw.ForwardCache(inputs[i])
		if err != nil {
			return 0, fmt.Errorf("sample %d: %w", i, err)
		}
		out := cache.data[len(cache.data)-1].data
		if len(targets[i]) != len(out) {
			return 0, fmt.Errorf("sample %d has %d targets, network outputs %d: %w", i, len(targets[i]), len(out), ErrTargetSizeMismatch)
		}
		d := floats.Distance(out, targets[i], 2)
		total += d * d
		count += len(out)
	}
	return total / float64(count), nil
}
