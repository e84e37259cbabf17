package layers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nyquixt/TENT/tensor"
)

func onesKernelConv() *Conv2D {
	c := NewConv2D(1, 1, 2, 2)
	for i := range c.W.Data {
		c.W.Data[i] = 1
	}
	c.B.Zero()
	return c
}

func TestConv2DForwardKnownValues(t *testing.T) {
	c := onesKernelConv()
	input := &tensor.Tensor{
		Data:  []float64{1, 2, 3, 4, 5, 6, 7, 8, 9},
		Shape: []int{1, 1, 3, 3},
	}
	out, err := c.Forward(input)
	require.NoError(t, err)
	require.Equal(t, []int{1, 1, 2, 2}, out.Shape)

	// Each output is the sum of a 2x2 window.
	assert.Equal(t, []float64{12, 16, 24, 28}, out.Data)
}

func TestConv2DForwardBias(t *testing.T) {
	c := onesKernelConv()
	c.B.Data[0] = 0.5
	input := tensor.New(1, 1, 2, 2)
	out, err := c.Forward(input)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5}, out.Data)
}

func TestConv2DBackwardKnownValues(t *testing.T) {
	c := onesKernelConv()
	input := &tensor.Tensor{
		Data:  []float64{1, 2, 3, 4, 5, 6, 7, 8, 9},
		Shape: []int{1, 1, 3, 3},
	}
	_, err := c.Forward(input)
	require.NoError(t, err)

	gradOut := &tensor.Tensor{
		Data:  []float64{1, 1, 1, 1},
		Shape: []int{1, 1, 2, 2},
	}
	inputGrad, err := c.Backward(gradOut)
	require.NoError(t, err)

	assert.Equal(t, []float64{4}, c.GradB.Data)
	assert.Equal(t, []float64{12, 16, 24, 28}, c.GradW.Data)

	// Every input position receives one contribution per window covering it.
	assert.Equal(t, []float64{1, 2, 1, 2, 4, 2, 1, 2, 1}, inputGrad.Data)
}

func TestConv2DBackwardRewritesGrads(t *testing.T) {
	c := onesKernelConv()
	input := tensor.New(1, 1, 3, 3)
	for i := range input.Data {
		input.Data[i] = float64(i)
	}
	gradOut := tensor.New(1, 1, 2, 2)
	for i := range gradOut.Data {
		gradOut.Data[i] = 1
	}

	_, err := c.Forward(input)
	require.NoError(t, err)
	_, err = c.Backward(gradOut)
	require.NoError(t, err)
	first := c.GradW.Clone()

	_, err = c.Forward(input)
	require.NoError(t, err)
	_, err = c.Backward(gradOut)
	require.NoError(t, err)

	// Gradients are rewritten, not accumulated across calls.
	assert.True(t, tensor.Equal(first, c.GradW))
}

func TestConv2DInputValidation(t *testing.T) {
	c := NewConv2D(1, 1, 5, 5)
	_, err := c.Forward(tensor.New(3, 3))
	assert.Error(t, err)
	_, err = c.Forward(tensor.New(1, 2, 8, 8))
	assert.Error(t, err)
	_, err = c.Forward(tensor.New(1, 1, 3, 3))
	assert.Error(t, err, "input smaller than kernel")
	_, err = c.Backward(tensor.New(1, 1, 2, 2))
	assert.Error(t, err, "backward without forward")
}
