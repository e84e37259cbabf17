package adapt

import (
	"go.uber.org/zap"

	"github.com/Nyquixt/TENT/nn"
	"github.com/Nyquixt/TENT/tensor"
)

// Norm adapts by re-estimating normalization statistics from each test batch
// alone. No running average or other cross-batch estimation is used.
type Norm struct {
	model *nn.LeNet5
}

// NewNorm configures every batch-norm layer for per-batch statistics and
// logs which sublayers are affected.
func NewNorm(model *nn.LeNet5, logger *zap.Logger) *Norm {
	names := CollectStats(model)
	logger.Info("stats for adaptation", zap.Strings("layers", names))

	model.Train()
	for _, nb := range model.BatchNorms() {
		nb.BN.TrackRunning = false
		nb.BN.ResetStats()
	}
	return &Norm{model: model}
}

// CollectStats returns the names of the normalization sublayers whose
// statistics the wrapper re-estimates.
func CollectStats(model *nn.LeNet5) []string {
	var names []string
	for _, nb := range model.BatchNorms() {
		names = append(names, nb.Name+".running_mean", nb.Name+".running_var")
	}
	return names
}

func (n *Norm) Predict(x *tensor.Tensor) (*tensor.Tensor, error) {
	return n.model.Forward(x)
}

// Reset reinitializes the statistic trackers to the per-batch-only state
// with no statistics yet observed.
func (n *Norm) Reset() error {
	for _, nb := range n.model.BatchNorms() {
		nb.BN.ResetStats()
	}
	return nil
}
