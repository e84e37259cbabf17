package adapt

import (
	"github.com/Nyquixt/TENT/nn"
	"github.com/Nyquixt/TENT/tensor"
)

// Source evaluates the frozen model as-is: running normalization statistics,
// no statistic updates and no gradient steps.
type Source struct {
	model *nn.LeNet5
}

// NewSource puts the model in evaluation mode and returns it unmodified
// otherwise.
func NewSource(model *nn.LeNet5) *Source {
	model.Eval()
	return &Source{model: model}
}

func (s *Source) Predict(x *tensor.Tensor) (*tensor.Tensor, error) {
	return s.model.Forward(x)
}

// Reset has nothing to restore; the condition is recoverable by design.
func (s *Source) Reset() error {
	return ErrResetUnsupported
}
