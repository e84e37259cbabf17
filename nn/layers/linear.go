package layers

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/Nyquixt/TENT/tensor"
)

// Linear is a fully-connected layer computing y = x W^T + b.
type Linear struct {
	inDim, outDim int

	W *tensor.Tensor // [outDim, inDim]
	B *tensor.Tensor // [outDim]

	// Gradient storage, rewritten on every Backward call
	GradW *tensor.Tensor
	GradB *tensor.Tensor

	// Cached input for backward pass
	lastInput *tensor.Tensor
}

// NewLinear creates a Linear layer with Xavier-initialized weights.
func NewLinear(inDim, outDim int) *Linear {
	l := &Linear{
		inDim:  inDim,
		outDim: outDim,
		W:      tensor.New(outDim, inDim),
		B:      tensor.New(outDim),
		GradW:  tensor.New(outDim, inDim),
		GradB:  tensor.New(outDim),
	}
	scale := math.Sqrt(2.0 / float64(inDim+outDim))
	for i := range l.W.Data {
		l.W.Data[i] = rand.NormFloat64() * scale
	}
	return l
}

// Forward computes the affine map for a [batch, inDim] tensor.
func (l *Linear) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	if len(input.Shape) != 2 || input.Shape[1] != l.inDim {
		return nil, fmt.Errorf("linear: expected [batch, %d] input, got %v", l.inDim, input.Shape)
	}
	batchSize := input.Shape[0]
	l.lastInput = input

	x := mat.NewDense(batchSize, l.inDim, input.Data)
	w := mat.NewDense(l.outDim, l.inDim, l.W.Data)

	out := tensor.New(batchSize, l.outDim)
	y := mat.NewDense(batchSize, l.outDim, out.Data)
	y.Mul(x, w.T())

	for b := 0; b < batchSize; b++ {
		for j := 0; j < l.outDim; j++ {
			out.Data[b*l.outDim+j] += l.B.Data[j]
		}
	}
	return out, nil
}

// Backward computes parameter gradients and the input gradient.
func (l *Linear) Backward(gradOut *tensor.Tensor) (*tensor.Tensor, error) {
	if l.lastInput == nil {
		return nil, fmt.Errorf("linear: no cached input for backward pass")
	}
	if len(gradOut.Shape) != 2 || gradOut.Shape[1] != l.outDim {
		return nil, fmt.Errorf("linear: expected [batch, %d] gradient, got %v", l.outDim, gradOut.Shape)
	}
	batchSize := gradOut.Shape[0]

	g := mat.NewDense(batchSize, l.outDim, gradOut.Data)
	x := mat.NewDense(batchSize, l.inDim, l.lastInput.Data)
	w := mat.NewDense(l.outDim, l.inDim, l.W.Data)

	// dW = g^T x
	gw := mat.NewDense(l.outDim, l.inDim, l.GradW.Data)
	gw.Mul(g.T(), x)

	// dB = column sums of g
	l.GradB.Zero()
	for b := 0; b < batchSize; b++ {
		for j := 0; j < l.outDim; j++ {
			l.GradB.Data[j] += gradOut.Data[b*l.outDim+j]
		}
	}

	// dX = g W
	inputGrad := tensor.New(batchSize, l.inDim)
	gx := mat.NewDense(batchSize, l.inDim, inputGrad.Data)
	gx.Mul(g, w)

	return inputGrad, nil
}
