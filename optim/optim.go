// Package optim implements the first-order gradient optimizers used for
// test-time entropy minimization and for checkpoint training.
package optim

import (
	"errors"
	"fmt"
	"math"

	"github.com/Nyquixt/TENT/tensor"
)

// ErrUnimplemented is returned by Build for an unknown optimizer method.
var ErrUnimplemented = errors.New("unimplemented optimization strategy")

// Param is a named parameter tensor paired with its gradient storage.
// Value and Grad must stay live for the lifetime of the optimizer.
type Param struct {
	Name  string
	Value *tensor.Tensor
	Grad  *tensor.Tensor
}

// Hyperparams carries the optimizer configuration.
type Hyperparams struct {
	Method    string // "Adam" or "SGD"
	LR        float64
	Beta      float64 // Adam first-moment decay; second moment is fixed at 0.999
	WD        float64 // weight decay
	Momentum  float64
	Dampening float64
	Nesterov  bool
}

// State is a deep copy of an optimizer's mutable state, used for episodic
// reset. Adam populates Step, M and V; SGD populates Buf.
type State struct {
	Step int
	M    [][]float64
	V    [][]float64
	Buf  [][]float64
}

// Optimizer applies gradient updates to a fixed parameter group.
type Optimizer interface {
	// Step applies one update using the parameters' current gradients.
	Step() error
	// ZeroGrad zeroes all parameter gradients.
	ZeroGrad()
	// Snapshot deep-copies the optimizer's mutable state.
	Snapshot() *State
	// Restore loads a state previously produced by Snapshot.
	Restore(*State) error
}

// Build constructs the optimizer named by hp.Method over params.
// Unknown methods fail with ErrUnimplemented; there is no silent default.
func Build(hp Hyperparams, params []Param) (Optimizer, error) {
	switch hp.Method {
	case "Adam":
		return newAdam(hp, params), nil
	case "SGD":
		return newSGD(hp, params), nil
	default:
		return nil, fmt.Errorf("optimizer method %q: %w", hp.Method, ErrUnimplemented)
	}
}

func zeroGrads(params []Param) {
	for _, p := range params {
		p.Grad.Zero()
	}
}

// Adam

type adam struct {
	params []Param
	lr     float64
	beta1  float64
	beta2  float64
	eps    float64
	wd     float64

	step int
	m    [][]float64
	v    [][]float64
}

func newAdam(hp Hyperparams, params []Param) *adam {
	a := &adam{
		params: params,
		lr:     hp.LR,
		beta1:  hp.Beta,
		beta2:  0.999,
		eps:    1e-8,
		wd:     hp.WD,
		m:      make([][]float64, len(params)),
		v:      make([][]float64, len(params)),
	}
	for i, p := range params {
		a.m[i] = make([]float64, len(p.Value.Data))
		a.v[i] = make([]float64, len(p.Value.Data))
	}
	return a
}

func (a *adam) Step() error {
	a.step++
	bc1 := 1 - math.Pow(a.beta1, float64(a.step))
	bc2 := 1 - math.Pow(a.beta2, float64(a.step))
	for i, p := range a.params {
		for j := range p.Value.Data {
			g := p.Grad.Data[j]
			if a.wd != 0 {
				g += a.wd * p.Value.Data[j]
			}
			a.m[i][j] = a.beta1*a.m[i][j] + (1-a.beta1)*g
			a.v[i][j] = a.beta2*a.v[i][j] + (1-a.beta2)*g*g
			mHat := a.m[i][j] / bc1
			vHat := a.v[i][j] / bc2
			p.Value.Data[j] -= a.lr * mHat / (math.Sqrt(vHat) + a.eps)
		}
	}
	return nil
}

func (a *adam) ZeroGrad() { zeroGrads(a.params) }

func (a *adam) Snapshot() *State {
	s := &State{Step: a.step, M: make([][]float64, len(a.m)), V: make([][]float64, len(a.v))}
	for i := range a.m {
		s.M[i] = append([]float64(nil), a.m[i]...)
		s.V[i] = append([]float64(nil), a.v[i]...)
	}
	return s
}

func (a *adam) Restore(s *State) error {
	if len(s.M) != len(a.m) || len(s.V) != len(a.v) {
		return fmt.Errorf("adam: state holds %d moment buffers, optimizer has %d", len(s.M), len(a.m))
	}
	a.step = s.Step
	for i := range a.m {
		copy(a.m[i], s.M[i])
		copy(a.v[i], s.V[i])
	}
	return nil
}

// SGD with momentum, dampening and optional Nesterov acceleration.

type sgd struct {
	params    []Param
	lr        float64
	momentum  float64
	dampening float64
	wd        float64
	nesterov  bool

	// nil entry until the first step with momentum
	buf [][]float64
}

func newSGD(hp Hyperparams, params []Param) *sgd {
	return &sgd{
		params:    params,
		lr:        hp.LR,
		momentum:  hp.Momentum,
		dampening: hp.Dampening,
		wd:        hp.WD,
		nesterov:  hp.Nesterov,
		buf:       make([][]float64, len(params)),
	}
}

func (o *sgd) Step() error {
	for i, p := range o.params {
		firstStep := o.buf[i] == nil
		if o.momentum != 0 && firstStep {
			o.buf[i] = make([]float64, len(p.Value.Data))
		}
		for j := range p.Value.Data {
			g := p.Grad.Data[j]
			if o.wd != 0 {
				g += o.wd * p.Value.Data[j]
			}
			if o.momentum != 0 {
				// The momentum buffer starts as the raw gradient and is
				// dampened only on subsequent steps.
				if firstStep {
					o.buf[i][j] = g
				} else {
					o.buf[i][j] = o.momentum*o.buf[i][j] + (1-o.dampening)*g
				}
				if o.nesterov {
					g += o.momentum * o.buf[i][j]
				} else {
					g = o.buf[i][j]
				}
			}
			p.Value.Data[j] -= o.lr * g
		}
	}
	return nil
}

func (o *sgd) ZeroGrad() { zeroGrads(o.params) }

func (o *sgd) Snapshot() *State {
	s := &State{Buf: make([][]float64, len(o.buf))}
	for i := range o.buf {
		if o.buf[i] != nil {
			s.Buf[i] = append([]float64(nil), o.buf[i]...)
		}
	}
	return s
}

func (o *sgd) Restore(s *State) error {
	if len(s.Buf) != len(o.buf) {
		return fmt.Errorf("sgd: state holds %d momentum buffers, optimizer has %d", len(s.Buf), len(o.buf))
	}
	for i := range o.buf {
		if s.Buf[i] == nil {
			o.buf[i] = nil
		} else {
			o.buf[i] = append([]float64(nil), s.Buf[i]...)
		}
	}
	return nil
}
