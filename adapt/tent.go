package adapt

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Nyquixt/TENT/config"
	"github.com/Nyquixt/TENT/nn"
	"github.com/Nyquixt/TENT/optim"
	"github.com/Nyquixt/TENT/tensor"
)

// Tent adapts by entropy minimization: on every batch it takes a configured
// number of gradient steps on the normalization layers' scale and bias
// parameters, leaving everything else frozen.
type Tent struct {
	model    *nn.LeNet5
	opt      optim.Optimizer
	steps    int
	episodic bool

	// Snapshots captured at wrap time for episodic reset
	paramSnap map[string]*tensor.Tensor
	optSnap   *optim.State
}

// NewTent configures the model for training-mode statistics, collects the
// normalization parameters, builds the optimizer and snapshots the initial
// state. An unknown optimizer method fails here, before any training step.
func NewTent(model *nn.LeNet5, cfg config.OptimConfig, episodic bool, logger *zap.Logger) (*Tent, error) {
	configureModel(model)
	params := collectParams(model)

	opt, err := optim.Build(optim.Hyperparams{
		Method:    cfg.Method,
		LR:        cfg.LR,
		Beta:      cfg.Beta,
		WD:        cfg.WD,
		Momentum:  cfg.Momentum,
		Dampening: cfg.Dampening,
		Nesterov:  cfg.Nesterov,
	}, params)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(params))
	for i, p := range params {
		names[i] = p.Name
	}
	logger.Info("params for adaptation", zap.Strings("params", names))
	logger.Info("optimizer for adaptation",
		zap.String("method", cfg.Method), zap.Float64("lr", cfg.LR), zap.Int("steps", cfg.Steps))

	t := &Tent{
		model:    model,
		opt:      opt,
		steps:    cfg.Steps,
		episodic: episodic,
	}
	t.snapshot(params)
	return t, nil
}

// configureModel puts the model in training mode for statistics while
// disabling running-estimate tracking, so normalization always follows the
// current batch.
func configureModel(model *nn.LeNet5) {
	model.Train()
	for _, nb := range model.BatchNorms() {
		nb.BN.TrackRunning = false
	}
}

// collectParams gathers exactly the normalization scale/bias parameters; all
// other parameters stay frozen because the optimizer never sees them.
func collectParams(model *nn.LeNet5) []optim.Param {
	var params []optim.Param
	for _, nb := range model.BatchNorms() {
		params = append(params,
			optim.Param{Name: nb.Name + ".weight", Value: nb.BN.Gamma, Grad: nb.BN.GradGamma},
			optim.Param{Name: nb.Name + ".bias", Value: nb.BN.Beta, Grad: nb.BN.GradBeta},
		)
	}
	return params
}

// Predict runs the configured number of entropy-minimization steps on the
// batch and returns the predictions computed before the final update.
func (t *Tent) Predict(x *tensor.Tensor) (*tensor.Tensor, error) {
	if t.episodic {
		if err := t.Reset(); err != nil {
			return nil, err
		}
	}
	var out *tensor.Tensor
	for i := 0; i < t.steps; i++ {
		logits, err := t.forwardAndAdapt(x)
		if err != nil {
			return nil, err
		}
		out = logits
	}
	return out, nil
}

func (t *Tent) forwardAndAdapt(x *tensor.Tensor) (*tensor.Tensor, error) {
	logits, err := t.model.Forward(x)
	if err != nil {
		return nil, err
	}
	probs, err := nn.Softmax(logits)
	if err != nil {
		return nil, err
	}
	if _, err := t.model.Backward(nn.EntropyGrad(probs)); err != nil {
		return nil, err
	}
	if err := t.opt.Step(); err != nil {
		return nil, err
	}
	t.opt.ZeroGrad()
	return logits, nil
}

// Reset restores the adapted parameters and the optimizer state captured at
// wrap time, bit-for-bit.
func (t *Tent) Reset() error {
	for _, p := range collectParams(t.model) {
		snap, ok := t.paramSnap[p.Name]
		if !ok {
			return fmt.Errorf("tent: no snapshot for parameter %s", p.Name)
		}
		if err := p.Value.CopyFrom(snap); err != nil {
			return fmt.Errorf("tent: restore %s: %w", p.Name, err)
		}
	}
	return t.opt.Restore(t.optSnap)
}

func (t *Tent) snapshot(params []optim.Param) {
	t.paramSnap = make(map[string]*tensor.Tensor, len(params))
	for _, p := range params {
		t.paramSnap[p.Name] = p.Value.Clone()
	}
	t.optSnap = t.opt.Snapshot()
}
