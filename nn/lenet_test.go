package nn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nyquixt/TENT/tensor"
)

func TestLeNet5ForwardShape(t *testing.T) {
	model := NewLeNet5()
	model.Train()

	input := tensor.New(3, 1, 28, 28)
	for i := range input.Data {
		input.Data[i] = float64(i%7) * 0.1
	}
	logits, err := model.Forward(input)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 10}, logits.Shape)
}

func TestLeNet5BackwardPopulatesGrads(t *testing.T) {
	model := NewLeNet5()
	model.Train()

	input := tensor.New(2, 1, 28, 28)
	for i := range input.Data {
		input.Data[i] = float64(i%5)*0.2 - 0.4
	}
	logits, err := model.Forward(input)
	require.NoError(t, err)

	grad := tensor.New(logits.Shape...)
	for i := range grad.Data {
		grad.Data[i] = 0.1
	}
	inputGrad, err := model.Backward(grad)
	require.NoError(t, err)
	assert.Equal(t, input.Shape, inputGrad.Shape)

	_, _, grads := model.TrainableParams()
	nonzero := false
	for _, g := range grads {
		for _, v := range g.Data {
			if v != 0 {
				nonzero = true
			}
		}
	}
	assert.True(t, nonzero, "backward should write parameter gradients")
}

func TestLeNet5TrainEvalTogglesBatchNorms(t *testing.T) {
	model := NewLeNet5()

	model.Train()
	for _, named := range model.BatchNorms() {
		assert.True(t, named.BN.Training, named.Name)
	}
	model.Eval()
	for _, named := range model.BatchNorms() {
		assert.False(t, named.BN.Training, named.Name)
	}
}

func TestLeNet5NamedParams(t *testing.T) {
	model := NewLeNet5()
	params := model.NamedParams()

	assert.Len(t, params, 18)
	for _, name := range []string{
		"conv1.weight", "conv1.bias",
		"bn1.weight", "bn1.bias", "bn1.running_mean", "bn1.running_var",
		"conv2.weight", "conv2.bias",
		"bn2.weight", "bn2.bias", "bn2.running_mean", "bn2.running_var",
		"fc1.weight", "fc1.bias",
		"fc2.weight", "fc2.bias",
		"fc3.weight", "fc3.bias",
	} {
		assert.Contains(t, params, name)
	}

	// Live tensors, not copies: writes through the map hit the model.
	params["fc3.bias"].Data[0] = 42
	assert.Equal(t, 42.0, model.FC3.B.Data[0])

	assert.Equal(t, []int{6, 1, 5, 5}, params["conv1.weight"].Shape)
	assert.Equal(t, []int{16, 6, 5, 5}, params["conv2.weight"].Shape)
	assert.Equal(t, []int{120, 256}, params["fc1.weight"].Shape)
	assert.Equal(t, []int{10, 84}, params["fc3.weight"].Shape)
}

func TestLeNet5TrainableParamsExcludeRunningStats(t *testing.T) {
	model := NewLeNet5()
	names, values, grads := model.TrainableParams()

	require.Len(t, names, 14)
	require.Len(t, values, 14)
	require.Len(t, grads, 14)
	for i, name := range names {
		assert.NotContains(t, name, "running")
		assert.True(t, tensor.SameShape(values[i], grads[i]), name)
	}
}
