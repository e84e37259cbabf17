package layers

import (
	"fmt"

	"github.com/Nyquixt/TENT/tensor"
)

// ReLU applies max(0, x) elementwise.
type ReLU struct {
	// Cached activation mask for backward pass
	lastMask  []bool
	lastShape []int
}

// NewReLU creates a ReLU activation layer.
func NewReLU() *ReLU {
	return &ReLU{}
}

// Forward applies the rectifier to any tensor shape.
func (r *ReLU) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	output := tensor.New(input.Shape...)
	r.lastMask = make([]bool, len(input.Data))
	r.lastShape = append([]int(nil), input.Shape...)
	for i, v := range input.Data {
		if v > 0 {
			output.Data[i] = v
			r.lastMask[i] = true
		}
	}
	return output, nil
}

// Backward gates the gradient by the forward activation mask.
func (r *ReLU) Backward(gradOut *tensor.Tensor) (*tensor.Tensor, error) {
	if r.lastMask == nil {
		return nil, fmt.Errorf("relu: no cached mask for backward pass")
	}
	if len(gradOut.Data) != len(r.lastMask) {
		return nil, fmt.Errorf("relu: gradient size %d does not match activation %d", len(gradOut.Data), len(r.lastMask))
	}
	inputGrad := tensor.New(r.lastShape...)
	for i, on := range r.lastMask {
		if on {
			inputGrad.Data[i] = gradOut.Data[i]
		}
	}
	return inputGrad, nil
}
