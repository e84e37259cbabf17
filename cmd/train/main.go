// train: Standalone trainer producing the LeNet-5 MNIST checkpoint consumed
// by the evaluation harness.
//
// Usage:
//
//	train --epochs=10 --lr=0.01 --output=lenet5-mnist.json
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/Nyquixt/TENT/checkpoint"
	"github.com/Nyquixt/TENT/dataset"
	"github.com/Nyquixt/TENT/nn"
	"github.com/Nyquixt/TENT/optim"
	"github.com/Nyquixt/TENT/tensor"
)

var (
	epochs       = flag.Int("epochs", 5, "Number of training epochs")
	learningRate = flag.Float64("lr", 0.01, "Learning rate")
	momentum     = flag.Float64("momentum", 0.9, "SGD momentum")
	batchSize    = flag.Int("batch", 64, "Minibatch size")
	samples      = flag.Int("samples", 0, "Cap on training samples (0 = full split)")
	dataDir      = flag.String("data", "./data", "MNIST cache directory")
	seed         = flag.Int64("seed", 42, "Random seed")
	outputFile   = flag.String("output", "lenet5-mnist.json", "Output checkpoint file (JSON)")
)

func main() {
	flag.Parse()
	rng := rand.New(rand.NewSource(*seed))

	fmt.Printf("Configuration:\n")
	fmt.Printf("  Epochs:        %d\n", *epochs)
	fmt.Printf("  Learning Rate: %.4f\n", *learningRate)
	fmt.Printf("  Momentum:      %.2f\n", *momentum)
	fmt.Printf("  Batch Size:    %d\n", *batchSize)
	fmt.Println()

	fmt.Println("Loading MNIST training split...")
	inputs, labels, err := dataset.LoadTrain(*dataDir, *samples)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading MNIST: %v\n", err)
		os.Exit(1)
	}
	n := inputs.Shape[0]
	fmt.Printf("Loaded %d samples\n", n)

	model := nn.NewLeNet5()
	model.Train()

	names, values, grads := model.TrainableParams()
	params := make([]optim.Param, len(values))
	for i := range values {
		params[i] = optim.Param{Name: names[i], Value: values[i], Grad: grads[i]}
	}
	opt, err := optim.Build(optim.Hyperparams{
		Method:   "SGD",
		LR:       *learningRate,
		Momentum: *momentum,
	}, params)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building optimizer: %v\n", err)
		os.Exit(1)
	}

	sampleSize := 28 * 28
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}

	fmt.Println("Starting training...")
	totalStart := time.Now()
	for epoch := 0; epoch < *epochs; epoch++ {
		epochStart := time.Now()
		rng.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })

		epochLoss := 0.0
		batches := 0
		for lo := 0; lo+*batchSize <= n; lo += *batchSize {
			batch := tensor.New(*batchSize, 1, 28, 28)
			batchLabels := make([]int, *batchSize)
			for i := 0; i < *batchSize; i++ {
				src := order[lo+i]
				copy(batch.Data[i*sampleSize:(i+1)*sampleSize], inputs.Data[src*sampleSize:(src+1)*sampleSize])
				batchLabels[i] = labels[src]
			}

			loss, err := trainStep(model, opt, batch, batchLabels)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error at batch %d: %v\n", batches, err)
				os.Exit(1)
			}
			epochLoss += loss
			batches++
		}

		fmt.Printf("Epoch %d/%d | Loss: %.6f | Time: %.2fs\n",
			epoch+1, *epochs, epochLoss/float64(batches), time.Since(epochStart).Seconds())
	}
	fmt.Printf("Training complete! Total time: %.2fs\n", time.Since(totalStart).Seconds())

	fmt.Printf("Saving checkpoint to %s...\n", *outputFile)
	if err := checkpoint.Write(*outputFile, model); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Done!")
}

func trainStep(model *nn.LeNet5, opt optim.Optimizer, batch *tensor.Tensor, labels []int) (float64, error) {
	logits, err := model.Forward(batch)
	if err != nil {
		return 0, err
	}
	probs, err := nn.Softmax(logits)
	if err != nil {
		return 0, err
	}
	loss, grad, err := nn.CrossEntropyGrad(probs, labels)
	if err != nil {
		return 0, err
	}
	if _, err := model.Backward(grad); err != nil {
		return 0, err
	}
	if err := opt.Step(); err != nil {
		return 0, err
	}
	opt.ZeroGrad()
	return loss, nil
}
