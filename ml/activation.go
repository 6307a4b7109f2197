package ml

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Activation is the elementwise strategy applied after every dense transform.
//
// Derivative is expressed in terms of the activated value y = Activate(x):
// the engine only keeps post-activation values, so the backward pass feeds
// cached outputs straight into Derivative.
type Activation interface {
	Activate(x float64) float64
	Derivative(y float64) float64
}

// Sigmoid squashes into (0, 1).
type Sigmoid struct{}

func (Sigmoid) Activate(x float64) float64   { return 1.0 / (1.0 + math.Exp(-x)) }
func (Sigmoid) Derivative(y float64) float64 { return y * (1.0 - y) }

// Tanh squashes into (-1, 1).
type Tanh struct{}

func (Tanh) Activate(x float64) float64   { return math.Tanh(x) }
func (Tanh) Derivative(y float64) float64 { return 1.0 - y*y }

// ReLU passes positive values through and clamps the rest to zero.
type ReLU struct{}

func (ReLU) Activate(x float64) float64 {
	if x > 0 {
		return x
	}
	return 0
}

func (ReLU) Derivative(y float64) float64 {
	if y > 0 {
		return 1
	}
	return 0
}

// Linear is the identity.
type Linear struct{}

func (Linear) Activate(x float64) float64   { return x }
func (Linear) Derivative(y float64) float64 { return 1 }

var activationMap = map[string]Activation{
	"linear":  Linear{},
	"sigmoid": Sigmoid{},
	"tanh":    Tanh{},
	"relu":    ReLU{},
}

// ActivationByName looks up a built-in activation ("sigmoid", "tanh", "relu", "linear").
func ActivationByName(name string) (Activation, error) {
	act, ok := activationMap[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%q (known: %s): %w", name, strings.Join(ActivationNames(), ", "), ErrUnknownActivation)
	}
	return act, nil
}

// ActivationNames lists the registered activation names in sorted order.
func ActivationNames() []string {
	names := make([]string, 0, len(activationMap))
	for name := range activationMap {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
