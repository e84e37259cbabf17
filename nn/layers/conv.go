package layers

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/Nyquixt/TENT/tensor"
)

// Conv2D is a 2D convolutional layer (valid padding, stride 1).
type Conv2D struct {
	inChan, outChan int // number of input/output channels
	kh, kw          int // kernel height and width

	W *tensor.Tensor // weights: [outChan, inChan, kh, kw]
	B *tensor.Tensor // bias: [outChan]

	// Gradient storage, rewritten on every Backward call
	GradW *tensor.Tensor
	GradB *tensor.Tensor

	// Cached input for backward pass
	lastInput *tensor.Tensor
}

// NewConv2D creates a new Conv2D layer with He-initialized weights.
func NewConv2D(inChan, outChan, kh, kw int) *Conv2D {
	c := &Conv2D{
		inChan:  inChan,
		outChan: outChan,
		kh:      kh,
		kw:      kw,
		W:       tensor.New(outChan, inChan, kh, kw),
		B:       tensor.New(outChan),
		GradW:   tensor.New(outChan, inChan, kh, kw),
		GradB:   tensor.New(outChan),
	}
	scale := math.Sqrt(2.0 / float64(inChan*kh*kw))
	for i := range c.W.Data {
		c.W.Data[i] = rand.NormFloat64() * scale
	}
	return c
}

// OutputShape returns the spatial output dimensions for a given input size.
func (c *Conv2D) OutputShape(inH, inW int) (outH, outW int) {
	return inH - c.kh + 1, inW - c.kw + 1
}

// Forward performs the convolution on a [batch, inChan, H, W] tensor.
func (c *Conv2D) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	if len(input.Shape) != 4 {
		return nil, fmt.Errorf("conv2d: input must be a 4-D tensor, got %v", input.Shape)
	}
	batchSize, inChan, height, width := input.Shape[0], input.Shape[1], input.Shape[2], input.Shape[3]
	if inChan != c.inChan {
		return nil, fmt.Errorf("conv2d: expected %d input channels, got %d", c.inChan, inChan)
	}

	outHeight := height - c.kh + 1
	outWidth := width - c.kw + 1
	if outHeight <= 0 || outWidth <= 0 {
		return nil, fmt.Errorf("conv2d: input %dx%d smaller than kernel %dx%d", height, width, c.kh, c.kw)
	}

	output := tensor.New(batchSize, c.outChan, outHeight, outWidth)

	// Cache input for backward pass
	c.lastInput = input

	for b := 0; b < batchSize; b++ {
		for oc := 0; oc < c.outChan; oc++ {
			for y := 0; y < outHeight; y++ {
				for x := 0; x < outWidth; x++ {
					sum := c.B.Data[oc]
					for ic := 0; ic < c.inChan; ic++ {
						for dy := 0; dy < c.kh; dy++ {
							for dx := 0; dx < c.kw; dx++ {
								wIdx := oc*c.inChan*c.kh*c.kw + ic*c.kh*c.kw + dy*c.kw + dx
								inIdx := b*c.inChan*height*width + ic*height*width + (y+dy)*width + (x + dx)
								sum += input.Data[inIdx] * c.W.Data[wIdx]
							}
						}
					}
					outIdx := b*c.outChan*outHeight*outWidth + oc*outHeight*outWidth + y*outWidth + x
					output.Data[outIdx] = sum
				}
			}
		}
	}

	return output, nil
}

// Backward computes parameter gradients and the input gradient.
func (c *Conv2D) Backward(gradOut *tensor.Tensor) (*tensor.Tensor, error) {
	if c.lastInput == nil {
		return nil, fmt.Errorf("conv2d: no cached input for backward pass")
	}
	if len(gradOut.Shape) != 4 {
		return nil, fmt.Errorf("conv2d: gradOut must be a 4-D tensor, got %v", gradOut.Shape)
	}

	batchSize, _, outHeight, outWidth := gradOut.Shape[0], gradOut.Shape[1], gradOut.Shape[2], gradOut.Shape[3]
	inHeight, inWidth := c.lastInput.Shape[2], c.lastInput.Shape[3]

	c.GradW.Zero()
	c.GradB.Zero()

	// Bias gradients: sum over batch and spatial positions
	for oc := 0; oc < c.outChan; oc++ {
		for b := 0; b < batchSize; b++ {
			for y := 0; y < outHeight; y++ {
				for x := 0; x < outWidth; x++ {
					gradIdx := b*c.outChan*outHeight*outWidth + oc*outHeight*outWidth + y*outWidth + x
					c.GradB.Data[oc] += gradOut.Data[gradIdx]
				}
			}
		}
	}

	// Weight gradients
	for oc := 0; oc < c.outChan; oc++ {
		for ic := 0; ic < c.inChan; ic++ {
			for dy := 0; dy < c.kh; dy++ {
				for dx := 0; dx < c.kw; dx++ {
					wGradIdx := oc*c.inChan*c.kh*c.kw + ic*c.kh*c.kw + dy*c.kw + dx
					for b := 0; b < batchSize; b++ {
						for y := 0; y < outHeight; y++ {
							for x := 0; x < outWidth; x++ {
								inIdx := b*c.inChan*inHeight*inWidth + ic*inHeight*inWidth + (y+dy)*inWidth + (x + dx)
								gradIdx := b*c.outChan*outHeight*outWidth + oc*outHeight*outWidth + y*outWidth + x
								c.GradW.Data[wGradIdx] += c.lastInput.Data[inIdx] * gradOut.Data[gradIdx]
							}
						}
					}
				}
			}
		}
	}

	// Input gradients (transposed convolution)
	inputGrad := tensor.New(c.lastInput.Shape...)
	for b := 0; b < batchSize; b++ {
		for ic := 0; ic < c.inChan; ic++ {
			for y := 0; y < inHeight; y++ {
				for x := 0; x < inWidth; x++ {
					sum := 0.0
					for oc := 0; oc < c.outChan; oc++ {
						for dy := 0; dy < c.kh; dy++ {
							for dx := 0; dx < c.kw; dx++ {
								oy := y - dy
								ox := x - dx
								if oy >= 0 && oy < outHeight && ox >= 0 && ox < outWidth {
									wIdx := oc*c.inChan*c.kh*c.kw + ic*c.kh*c.kw + dy*c.kw + dx
									gradIdx := b*c.outChan*outHeight*outWidth + oc*outHeight*outWidth + oy*outWidth + ox
									sum += c.W.Data[wIdx] * gradOut.Data[gradIdx]
								}
							}
						}
					}
					inGradIdx := b*c.inChan*inHeight*inWidth + ic*inHeight*inWidth + y*inWidth + x
					inputGrad.Data[inGradIdx] = sum
				}
			}
		}
	}

	return inputGrad, nil
}
