package nn

import (
	"fmt"
	"math"

	"github.com/Nyquixt/TENT/tensor"
)

// Softmax applies the softmax function to each row of a [batch, classes] tensor.
func Softmax(logits *tensor.Tensor) (*tensor.Tensor, error) {
	if len(logits.Shape) != 2 {
		return nil, fmt.Errorf("softmax expects a 2-D [batch, classes] tensor, got %v", logits.Shape)
	}
	n, c := logits.Shape[0], logits.Shape[1]
	out := tensor.New(n, c)
	for i := 0; i < n; i++ {
		row := logits.Data[i*c : (i+1)*c]
		maxLogit := row[0]
		for _, v := range row {
			if v > maxLogit {
				maxLogit = v
			}
		}
		expSum := 0.0
		for j, v := range row {
			e := math.Exp(v - maxLogit)
			out.Data[i*c+j] = e
			expSum += e
		}
		for j := 0; j < c; j++ {
			out.Data[i*c+j] /= expSum
		}
	}
	return out, nil
}

// SoftmaxEntropy returns the mean Shannon entropy of the given softmax
// probabilities, averaged over the batch.
func SoftmaxEntropy(probs *tensor.Tensor) float64 {
	n, c := probs.Shape[0], probs.Shape[1]
	total := 0.0
	for i := 0; i < n; i++ {
		total += rowEntropy(probs.Data[i*c : (i+1)*c])
	}
	return total / float64(n)
}

// EntropyGrad computes the gradient of the batch-mean softmax entropy with
// respect to the logits. For a single row, dH/dz_j = -p_j * (log p_j + H(p)).
func EntropyGrad(probs *tensor.Tensor) *tensor.Tensor {
	n, c := probs.Shape[0], probs.Shape[1]
	grad := tensor.New(n, c)
	invN := 1.0 / float64(n)
	for i := 0; i < n; i++ {
		row := probs.Data[i*c : (i+1)*c]
		h := rowEntropy(row)
		for j, p := range row {
			if p <= 0 {
				continue
			}
			grad.Data[i*c+j] = -p * (math.Log(p) + h) * invN
		}
	}
	return grad
}

// CrossEntropyGrad computes (softmax - onehot)/batch, the gradient of the mean
// cross-entropy loss with respect to the logits, and returns the loss as well.
func CrossEntropyGrad(probs *tensor.Tensor, labels []int) (float64, *tensor.Tensor, error) {
	n, c := probs.Shape[0], probs.Shape[1]
	if len(labels) != n {
		return 0, nil, fmt.Errorf("got %d labels for batch of %d", len(labels), n)
	}
	grad := tensor.New(n, c)
	invN := 1.0 / float64(n)
	loss := 0.0
	for i, label := range labels {
		if label < 0 || label >= c {
			return 0, nil, fmt.Errorf("label %d out of range [0, %d)", label, c)
		}
		p := probs.Data[i*c+label]
		if p < 1e-10 {
			p = 1e-10
		}
		loss -= math.Log(p) * invN
		for j := 0; j < c; j++ {
			grad.Data[i*c+j] = probs.Data[i*c+j] * invN
		}
		grad.Data[i*c+label] -= invN
	}
	return loss, grad, nil
}

func rowEntropy(p []float64) float64 {
	h := 0.0
	for _, v := range p {
		if v > 0 {
			h -= v * math.Log(v)
		}
	}
	return h
}
