package layers

import (
	"fmt"

	"github.com/Nyquixt/TENT/tensor"
)

// Flatten reshapes [batch, C, H, W] to [batch, C*H*W].

type Flatten struct {
	lastShape []int
}

func NewFlatten() *Flatten { return &Flatten{} }

func (f *Flatten) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	if len(x.Shape) < 2 {
		return nil, fmt.Errorf("flatten: input must have a batch dimension, got %v", x.Shape)
	}
	f.lastShape = append([]int(nil), x.Shape...)
	features := 1
	for _, d := range x.Shape[1:] {
		features *= d
	}
	y := tensor.New(x.Shape[0], features)
	copy(y.Data, x.Data)
	return y, nil
}

func (f *Flatten) Backward(g *tensor.Tensor) (*tensor.Tensor, error) {
	if f.lastShape == nil {
		return nil, fmt.Errorf("flatten: no cached shape for backward pass")
	}
	out := tensor.New(f.lastShape...)
	if len(out.Data) != len(g.Data) {
		return nil, fmt.Errorf("flatten: gradient size %d does not match input %d", len(g.Data), len(out.Data))
	}
	copy(out.Data, g.Data)
	return out, nil
}
