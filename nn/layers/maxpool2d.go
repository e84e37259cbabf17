package layers

import (
	"fmt"
	"math"

	"github.com/Nyquixt/TENT/tensor"
)

// MaxPool2D is a p×p max pooling layer with stride p.
type MaxPool2D struct {
	p int

	// Cached for backward pass: source index of each pooled maximum
	lastArgmax []int
	lastShape  []int
}

// NewMaxPool2D creates a MaxPool2D with pool size p.
func NewMaxPool2D(p int) *MaxPool2D {
	return &MaxPool2D{p: p}
}

// Forward pools a [batch, C, H, W] tensor. H and W must be divisible by p.
func (mp *MaxPool2D) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	if len(input.Shape) != 4 {
		return nil, fmt.Errorf("maxpool2d: input must be a 4-D tensor, got %v", input.Shape)
	}
	batchSize, channels, height, width := input.Shape[0], input.Shape[1], input.Shape[2], input.Shape[3]
	if height%mp.p != 0 || width%mp.p != 0 {
		return nil, fmt.Errorf("maxpool2d: input %dx%d not divisible by pool size %d", height, width, mp.p)
	}
	outHeight, outWidth := height/mp.p, width/mp.p

	output := tensor.New(batchSize, channels, outHeight, outWidth)
	mp.lastArgmax = make([]int, len(output.Data))
	mp.lastShape = append([]int(nil), input.Shape...)

	for b := 0; b < batchSize; b++ {
		for c := 0; c < channels; c++ {
			inBase := b*channels*height*width + c*height*width
			outBase := b*channels*outHeight*outWidth + c*outHeight*outWidth
			for y := 0; y < outHeight; y++ {
				for x := 0; x < outWidth; x++ {
					best := math.Inf(-1)
					bestIdx := -1
					for dy := 0; dy < mp.p; dy++ {
						for dx := 0; dx < mp.p; dx++ {
							idx := inBase + (y*mp.p+dy)*width + (x*mp.p + dx)
							if v := input.Data[idx]; v > best {
								best = v
								bestIdx = idx
							}
						}
					}
					outIdx := outBase + y*outWidth + x
					output.Data[outIdx] = best
					mp.lastArgmax[outIdx] = bestIdx
				}
			}
		}
	}

	return output, nil
}

// Backward routes each output gradient to the position of its maximum.
func (mp *MaxPool2D) Backward(gradOut *tensor.Tensor) (*tensor.Tensor, error) {
	if mp.lastArgmax == nil {
		return nil, fmt.Errorf("maxpool2d: no cached argmax for backward pass")
	}
	if len(gradOut.Data) != len(mp.lastArgmax) {
		return nil, fmt.Errorf("maxpool2d: gradient size %d does not match pooled output %d", len(gradOut.Data), len(mp.lastArgmax))
	}
	inputGrad := tensor.New(mp.lastShape...)
	for outIdx, inIdx := range mp.lastArgmax {
		inputGrad.Data[inIdx] += gradOut.Data[outIdx]
	}
	return inputGrad, nil
}
