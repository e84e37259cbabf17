package layers

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/Nyquixt/TENT/tensor"
)

// BatchNorm2D normalizes each channel of a [batch, C, H, W] tensor.
//
// In training mode the layer normalizes by the statistics of the current
// batch alone; in evaluation mode it normalizes by the running estimates.
// Running-statistic tracking can be disabled independently, which is how the
// test-time adaptation wrappers pin the layer to per-batch statistics with no
// cross-batch memory.
type BatchNorm2D struct {
	numFeatures int
	Eps         float64
	Momentum    float64

	Gamma *tensor.Tensor // learnable scale: [C]
	Beta  *tensor.Tensor // learnable shift: [C]

	// Gradient storage, rewritten on every Backward call
	GradGamma *tensor.Tensor
	GradBeta  *tensor.Tensor

	RunningMean *tensor.Tensor // [C]
	RunningVar  *tensor.Tensor // [C]

	Training     bool // normalize by batch statistics
	TrackRunning bool // update running estimates from batch statistics

	// Statistics of the most recent normalized batch, nil until the first
	// forward pass and after ResetStats.
	LastBatchMean []float64
	LastBatchVar  []float64

	// Cached values for backward pass
	lastXHat   *tensor.Tensor
	lastInvStd []float64
	lastMode   bool
}

// NewBatchNorm2D creates a BatchNorm2D over numFeatures channels with
// identity affine parameters and zero-mean unit-variance running estimates.
func NewBatchNorm2D(numFeatures int) *BatchNorm2D {
	bn := &BatchNorm2D{
		numFeatures:  numFeatures,
		Eps:          1e-5,
		Momentum:     0.1,
		Gamma:        tensor.New(numFeatures),
		Beta:         tensor.New(numFeatures),
		GradGamma:    tensor.New(numFeatures),
		GradBeta:     tensor.New(numFeatures),
		RunningMean:  tensor.New(numFeatures),
		RunningVar:   tensor.New(numFeatures),
		TrackRunning: true,
	}
	for i := 0; i < numFeatures; i++ {
		bn.Gamma.Data[i] = 1
		bn.RunningVar.Data[i] = 1
	}
	return bn
}

// NumFeatures returns the number of normalized channels.
func (bn *BatchNorm2D) NumFeatures() int { return bn.numFeatures }

// ResetStats discards the per-batch statistic snapshot, restoring the
// "no statistics yet" state.
func (bn *BatchNorm2D) ResetStats() {
	bn.LastBatchMean = nil
	bn.LastBatchVar = nil
}

// Forward normalizes a [batch, C, H, W] tensor.
func (bn *BatchNorm2D) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	if len(input.Shape) != 4 {
		return nil, fmt.Errorf("batchnorm2d: input must be a 4-D tensor, got %v", input.Shape)
	}
	batchSize, channels, height, width := input.Shape[0], input.Shape[1], input.Shape[2], input.Shape[3]
	if channels != bn.numFeatures {
		return nil, fmt.Errorf("batchnorm2d: expected %d channels, got %d", bn.numFeatures, channels)
	}

	output := tensor.New(input.Shape...)
	bn.lastXHat = tensor.New(input.Shape...)
	bn.lastInvStd = make([]float64, channels)
	bn.lastMode = bn.Training

	plane := height * width
	m := batchSize * plane

	var mean, variance []float64
	if bn.Training {
		mean = make([]float64, channels)
		variance = make([]float64, channels)
		values := make([]float64, m)
		for c := 0; c < channels; c++ {
			k := 0
			for b := 0; b < batchSize; b++ {
				base := b*channels*plane + c*plane
				copy(values[k:k+plane], input.Data[base:base+plane])
				k += plane
			}
			mu, unbiased := stat.MeanVariance(values, nil)
			mean[c] = mu
			// Normalization uses the biased estimate.
			if m > 1 {
				variance[c] = unbiased * float64(m-1) / float64(m)
			}
		}
		bn.LastBatchMean = append([]float64(nil), mean...)
		bn.LastBatchVar = append([]float64(nil), variance...)

		if bn.TrackRunning {
			for c := 0; c < channels; c++ {
				runVar := variance[c]
				if m > 1 {
					// Running estimates keep the unbiased variance.
					runVar = variance[c] * float64(m) / float64(m-1)
				}
				bn.RunningMean.Data[c] = (1-bn.Momentum)*bn.RunningMean.Data[c] + bn.Momentum*mean[c]
				bn.RunningVar.Data[c] = (1-bn.Momentum)*bn.RunningVar.Data[c] + bn.Momentum*runVar
			}
		}
	} else {
		mean = bn.RunningMean.Data
		variance = bn.RunningVar.Data
	}

	for c := 0; c < channels; c++ {
		invStd := 1.0 / math.Sqrt(variance[c]+bn.Eps)
		bn.lastInvStd[c] = invStd
		gamma, beta := bn.Gamma.Data[c], bn.Beta.Data[c]
		for b := 0; b < batchSize; b++ {
			base := b*channels*plane + c*plane
			for i := 0; i < plane; i++ {
				xhat := (input.Data[base+i] - mean[c]) * invStd
				bn.lastXHat.Data[base+i] = xhat
				output.Data[base+i] = gamma*xhat + beta
			}
		}
	}

	return output, nil
}

// Backward computes gradients for Gamma and Beta and the input gradient.
// In training mode the input gradient flows through the batch statistics.
func (bn *BatchNorm2D) Backward(gradOut *tensor.Tensor) (*tensor.Tensor, error) {
	if bn.lastXHat == nil {
		return nil, fmt.Errorf("batchnorm2d: no cached activation for backward pass")
	}
	if !tensor.SameShape(gradOut, bn.lastXHat) {
		return nil, fmt.Errorf("batchnorm2d: gradient shape %v does not match input %v", gradOut.Shape, bn.lastXHat.Shape)
	}
	batchSize, channels := gradOut.Shape[0], gradOut.Shape[1]
	plane := gradOut.Shape[2] * gradOut.Shape[3]
	m := float64(batchSize * plane)

	bn.GradGamma.Zero()
	bn.GradBeta.Zero()

	inputGrad := tensor.New(gradOut.Shape...)
	for c := 0; c < channels; c++ {
		sumDy := 0.0
		sumDyXHat := 0.0
		for b := 0; b < batchSize; b++ {
			base := b*channels*plane + c*plane
			for i := 0; i < plane; i++ {
				dy := gradOut.Data[base+i]
				sumDy += dy
				sumDyXHat += dy * bn.lastXHat.Data[base+i]
			}
		}
		bn.GradGamma.Data[c] = sumDyXHat
		bn.GradBeta.Data[c] = sumDy

		scale := bn.Gamma.Data[c] * bn.lastInvStd[c]
		for b := 0; b < batchSize; b++ {
			base := b*channels*plane + c*plane
			for i := 0; i < plane; i++ {
				dy := gradOut.Data[base+i]
				if bn.lastMode {
					xhat := bn.lastXHat.Data[base+i]
					inputGrad.Data[base+i] = scale * (dy - sumDy/m - xhat*sumDyXHat/m)
				} else {
					// Eval-mode statistics are constants.
					inputGrad.Data[base+i] = scale * dy
				}
			}
		}
	}

	return inputGrad, nil
}
