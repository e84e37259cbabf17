package layers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nyquixt/TENT/tensor"
)

func TestReLUForward(t *testing.T) {
	r := NewReLU()

	input := &tensor.Tensor{Data: []float64{-2, -0.5, 0, 0.5, 3}, Shape: []int{1, 5}}
	out, err := r.Forward(input)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0, 0.5, 3}, out.Data)
	assert.Equal(t, input.Shape, out.Shape)
}

func TestReLUBackwardGatesGradient(t *testing.T) {
	r := NewReLU()

	input := &tensor.Tensor{Data: []float64{-2, -0.5, 0, 0.5, 3}, Shape: []int{1, 5}}
	_, err := r.Forward(input)
	require.NoError(t, err)

	gradOut := &tensor.Tensor{Data: []float64{1, 2, 3, 4, 5}, Shape: []int{1, 5}}
	inputGrad, err := r.Backward(gradOut)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0, 4, 5}, inputGrad.Data)
}

func TestReLUBackwardErrors(t *testing.T) {
	r := NewReLU()

	_, err := r.Backward(tensor.New(1, 5))
	assert.Error(t, err, "backward before forward")

	_, err = r.Forward(tensor.New(1, 5))
	require.NoError(t, err)
	_, err = r.Backward(tensor.New(1, 3))
	assert.Error(t, err, "mismatched gradient size")
}
