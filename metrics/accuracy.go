// Package metrics computes evaluation metrics over wrapped models.
package metrics

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/Nyquixt/TENT/adapt"
	"github.com/Nyquixt/TENT/tensor"
)

// CleanAccuracy feeds the inputs through the model in batches of batchSize
// and returns the fraction of argmax predictions matching the labels.
// Adaptation side effects of the model's Predict contract are part of the
// measurement: batches are processed in order, once.
func CleanAccuracy(model adapt.Model, inputs *tensor.Tensor, labels []int, batchSize int) (float64, error) {
	if len(inputs.Shape) != 4 {
		return 0, fmt.Errorf("inputs must be a 4-D tensor, got %v", inputs.Shape)
	}
	n := inputs.Shape[0]
	if len(labels) != n {
		return 0, fmt.Errorf("got %d labels for %d inputs", len(labels), n)
	}
	if batchSize <= 0 {
		return 0, fmt.Errorf("batch size must be positive (got %d)", batchSize)
	}
	if n == 0 {
		return 0, fmt.Errorf("empty evaluation set")
	}

	sampleSize := 1
	for _, d := range inputs.Shape[1:] {
		sampleSize *= d
	}

	correct := make([]float64, 0, n)
	for lo := 0; lo < n; lo += batchSize {
		hi := lo + batchSize
		if hi > n {
			hi = n
		}
		batch := &tensor.Tensor{
			Data:  inputs.Data[lo*sampleSize : hi*sampleSize],
			Shape: append([]int{hi - lo}, inputs.Shape[1:]...),
		}
		logits, err := model.Predict(batch)
		if err != nil {
			return 0, err
		}
		classes := logits.Shape[1]
		for i := 0; i < hi-lo; i++ {
			if argmax(logits.Data[i*classes:(i+1)*classes]) == labels[lo+i] {
				correct = append(correct, 1)
			} else {
				correct = append(correct, 0)
			}
		}
	}

	return stat.Mean(correct, nil), nil
}

func argmax(row []float64) int {
	best := 0
	for i, v := range row {
		if v > row[best] {
			best = i
		}
	}
	return best
}
