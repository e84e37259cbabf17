package layers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nyquixt/TENT/tensor"
)

func TestMaxPool2DForward(t *testing.T) {
	mp := NewMaxPool2D(2)

	input := &tensor.Tensor{
		Data: []float64{
			1, 3, 2, 4,
			5, 6, 7, 8,
			-1, -2, 0, 1,
			-3, -4, 2, 3,
		},
		Shape: []int{1, 1, 4, 4},
	}
	out, err := mp.Forward(input)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1, 2, 2}, out.Shape)
	assert.Equal(t, []float64{6, 8, -1, 3}, out.Data)
}

func TestMaxPool2DBackwardRoutesToArgmax(t *testing.T) {
	mp := NewMaxPool2D(2)

	input := &tensor.Tensor{
		Data: []float64{
			1, 3, 2, 4,
			5, 6, 7, 8,
			-1, -2, 0, 1,
			-3, -4, 2, 3,
		},
		Shape: []int{1, 1, 4, 4},
	}
	_, err := mp.Forward(input)
	require.NoError(t, err)

	gradOut := &tensor.Tensor{Data: []float64{10, 20, 30, 40}, Shape: []int{1, 1, 2, 2}}
	inputGrad, err := mp.Backward(gradOut)
	require.NoError(t, err)

	want := []float64{
		0, 0, 0, 0,
		10, 0, 0, 20,
		30, 0, 0, 0,
		0, 0, 0, 40,
	}
	assert.Equal(t, want, inputGrad.Data)
	assert.Equal(t, input.Shape, inputGrad.Shape)
}

func TestMaxPool2DMultiChannelBatch(t *testing.T) {
	mp := NewMaxPool2D(2)

	input := tensor.New(2, 2, 2, 2)
	for i := range input.Data {
		input.Data[i] = float64(i)
	}
	out, err := mp.Forward(input)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2, 1, 1}, out.Shape)
	// Each 2x2 window maxes at its last element.
	assert.Equal(t, []float64{3, 7, 11, 15}, out.Data)
}

func TestMaxPool2DErrors(t *testing.T) {
	mp := NewMaxPool2D(2)

	_, err := mp.Forward(tensor.New(1, 1, 3, 3))
	assert.Error(t, err, "3x3 not divisible by pool size 2")

	_, err = mp.Forward(tensor.New(4, 4))
	assert.Error(t, err, "input must be 4-D")

	_, err = mp.Backward(tensor.New(1, 1, 2, 2))
	assert.Error(t, err, "backward before forward")
}
