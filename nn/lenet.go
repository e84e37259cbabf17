package nn

import (
	"github.com/Nyquixt/TENT/nn/layers"
	"github.com/Nyquixt/TENT/tensor"
)

// NamedBatchNorm pairs a batch-norm layer with its parameter-name prefix.
type NamedBatchNorm struct {
	Name string
	BN   *layers.BatchNorm2D
}

// LeNet5 is the batch-normalized LeNet-5 digit classifier for 28x28
// single-channel inputs:
//
//	Conv(1,6,5) -> BN -> ReLU -> MaxPool2 ->
//	Conv(6,16,5) -> BN -> ReLU -> MaxPool2 ->
//	Flatten -> Linear(256,120) -> ReLU -> Linear(120,84) -> ReLU -> Linear(84,10)
type LeNet5 struct {
	Conv1 *layers.Conv2D
	BN1   *layers.BatchNorm2D
	Conv2 *layers.Conv2D
	BN2   *layers.BatchNorm2D
	FC1   *layers.Linear
	FC2   *layers.Linear
	FC3   *layers.Linear

	seq *Sequential
}

// NewLeNet5 constructs the network with randomly initialized weights.
func NewLeNet5() *LeNet5 {
	m := &LeNet5{
		Conv1: layers.NewConv2D(1, 6, 5, 5),
		BN1:   layers.NewBatchNorm2D(6),
		Conv2: layers.NewConv2D(6, 16, 5, 5),
		BN2:   layers.NewBatchNorm2D(16),
		FC1:   layers.NewLinear(16*4*4, 120),
		FC2:   layers.NewLinear(120, 84),
		FC3:   layers.NewLinear(84, 10),
	}
	m.seq = &Sequential{Layers: []Module{
		m.Conv1, m.BN1, layers.NewReLU(), layers.NewMaxPool2D(2),
		m.Conv2, m.BN2, layers.NewReLU(), layers.NewMaxPool2D(2),
		layers.NewFlatten(),
		m.FC1, layers.NewReLU(),
		m.FC2, layers.NewReLU(),
		m.FC3,
	}}
	return m
}

// Forward maps a [batch, 1, 28, 28] tensor to [batch, 10] logits.
func (m *LeNet5) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	return m.seq.Forward(x)
}

// Backward propagates a [batch, 10] logits gradient through the network,
// accumulating parameter gradients in each layer.
func (m *LeNet5) Backward(grad *tensor.Tensor) (*tensor.Tensor, error) {
	return m.seq.Backward(grad)
}

// Train puts batch-norm layers into batch-statistics mode.
func (m *LeNet5) Train() {
	m.BN1.Training = true
	m.BN2.Training = true
}

// Eval puts batch-norm layers into running-statistics mode.
func (m *LeNet5) Eval() {
	m.BN1.Training = false
	m.BN2.Training = false
}

// BatchNorms returns the batch-norm layers in network order.
func (m *LeNet5) BatchNorms() []NamedBatchNorm {
	return []NamedBatchNorm{
		{Name: "bn1", BN: m.BN1},
		{Name: "bn2", BN: m.BN2},
	}
}

// NamedParams returns every persistent tensor of the model keyed by its
// checkpoint parameter name. The returned tensors are the live parameters,
// not copies.
func (m *LeNet5) NamedParams() map[string]*tensor.Tensor {
	return map[string]*tensor.Tensor{
		"conv1.weight":     m.Conv1.W,
		"conv1.bias":       m.Conv1.B,
		"bn1.weight":       m.BN1.Gamma,
		"bn1.bias":         m.BN1.Beta,
		"bn1.running_mean": m.BN1.RunningMean,
		"bn1.running_var":  m.BN1.RunningVar,
		"conv2.weight":     m.Conv2.W,
		"conv2.bias":       m.Conv2.B,
		"bn2.weight":       m.BN2.Gamma,
		"bn2.bias":         m.BN2.Beta,
		"bn2.running_mean": m.BN2.RunningMean,
		"bn2.running_var":  m.BN2.RunningVar,
		"fc1.weight":       m.FC1.W,
		"fc1.bias":         m.FC1.B,
		"fc2.weight":       m.FC2.W,
		"fc2.bias":         m.FC2.B,
		"fc3.weight":       m.FC3.W,
		"fc3.bias":         m.FC3.B,
	}
}

// TrainableParams returns the weight and bias tensors updated by full
// training, paired with their gradients, in a stable order.
func (m *LeNet5) TrainableParams() (names []string, values, grads []*tensor.Tensor) {
	type entry struct {
		name        string
		value, grad *tensor.Tensor
	}
	entries := []entry{
		{"conv1.weight", m.Conv1.W, m.Conv1.GradW},
		{"conv1.bias", m.Conv1.B, m.Conv1.GradB},
		{"bn1.weight", m.BN1.Gamma, m.BN1.GradGamma},
		{"bn1.bias", m.BN1.Beta, m.BN1.GradBeta},
		{"conv2.weight", m.Conv2.W, m.Conv2.GradW},
		{"conv2.bias", m.Conv2.B, m.Conv2.GradB},
		{"bn2.weight", m.BN2.Gamma, m.BN2.GradGamma},
		{"bn2.bias", m.BN2.Beta, m.BN2.GradBeta},
		{"fc1.weight", m.FC1.W, m.FC1.GradW},
		{"fc1.bias", m.FC1.B, m.FC1.GradB},
		{"fc2.weight", m.FC2.W, m.FC2.GradW},
		{"fc2.bias", m.FC2.B, m.FC2.GradB},
		{"fc3.weight", m.FC3.W, m.FC3.GradW},
		{"fc3.bias", m.FC3.B, m.FC3.GradB},
	}
	for _, e := range entries {
		names = append(names, e.name)
		values = append(values, e.value)
		grads = append(grads, e.grad)
	}
	return names, values, grads
}
