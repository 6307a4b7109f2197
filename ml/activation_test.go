package ml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/diff/fd"
)

// Derivative takes the activated value; it must agree with the numeric
// derivative of Activate at the pre-activation point.
func TestActivationDerivatives(t *testing.T) {
	for _, name := range ActivationNames() {
		act, err := ActivationByName(name)
		require.NoError(t, err)

		for _, x := range []float64{-2.5, -0.7, 0.3, 1.9} {
			want := fd.Derivative(act.Activate, x, &fd.Settings{Formula: fd.Central})
			got := act.Derivative(act.Activate(x))
			assert.InDelta(t, want, got, 1e-6, "%s at %v", name, x)
		}
	}
}

func TestActivationByName(t *testing.T) {
	act, err := ActivationByName("Sigmoid")
	require.NoError(t, err)
	assert.Equal(t, Sigmoid{}, act)

	_, err = ActivationByName("softplus")
	require.ErrorIs(t, err, ErrUnknownActivation)

	assert.Equal(t, []string{"linear", "relu", "sigmoid", "tanh"}, ActivationNames())
}
