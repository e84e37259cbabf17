// Package dataset loads the MNIST evaluation split with a deterministic
// rotation corruption applied after channel normalization.
package dataset

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	mnist "github.com/petar/GoMNIST"

	"github.com/Nyquixt/TENT/tensor"
)

const (
	baseURL = "https://storage.googleapis.com/cvdf-datasets/mnist/"

	// Fixed per-channel normalization constants of the MNIST training split.
	Mean = 0.1307
	Std  = 0.3081

	// Images are consumed in fixed-size chunks without shuffling.
	chunkSize = 100

	imageSide = 28
)

var testFiles = [2]string{"t10k-images-idx3-ubyte.gz", "t10k-labels-idx1-ubyte.gz"}
var trainFiles = [2]string{"train-images-idx3-ubyte.gz", "train-labels-idx1-ubyte.gz"}

// LoadRotatedTest returns the MNIST test partition with every image rotated
// by the given angle. Images are scaled to [0,1], normalized with the fixed
// mean/std constants and then rotated, in that order.
//
// maxExamples <= 0 loads the whole split. Otherwise whole chunks are
// accumulated while chunkSize*i < maxExamples and the concatenation is then
// truncated to exactly maxExamples. Selection happens at chunk granularity,
// not as a plain prefix take; see assembleRotated.
func LoadRotatedTest(dir string, rotation float64, maxExamples int) (*tensor.Tensor, []int, error) {
	set, err := readSet(dir, testFiles)
	if err != nil {
		return nil, nil, err
	}
	return assembleRotated(set, rotation, maxExamples)
}

// LoadTrain returns up to limit examples of the MNIST training partition,
// normalized but not rotated. limit <= 0 loads the whole split.
func LoadTrain(dir string, limit int) (*tensor.Tensor, []int, error) {
	set, err := readSet(dir, trainFiles)
	if err != nil {
		return nil, nil, err
	}
	n := set.Count()
	if limit > 0 && limit < n {
		n = limit
	}
	inputs := tensor.New(n, 1, imageSide, imageSide)
	labels := make([]int, n)
	for i := 0; i < n; i++ {
		img, label := set.Get(i)
		copy(inputs.Data[i*imageSide*imageSide:], normalize(img))
		labels[i] = int(label)
	}
	return inputs, labels, nil
}

func readSet(dir string, files [2]string) (*mnist.Set, error) {
	if err := ensureDownloaded(dir, files[:]); err != nil {
		return nil, err
	}
	set, err := mnist.ReadSet(filepath.Join(dir, files[0]), filepath.Join(dir, files[1]))
	if err != nil {
		return nil, fmt.Errorf("read mnist set: %w", err)
	}
	if set.NRow != imageSide || set.NCol != imageSide {
		return nil, fmt.Errorf("expected %dx%d images, got %dx%d", imageSide, imageSide, set.NRow, set.NCol)
	}
	return set, nil
}

func assembleRotated(set *mnist.Set, rotation float64, maxExamples int) (*tensor.Tensor, []int, error) {
	n := set.Count()
	numChunks := (n + chunkSize - 1) / chunkSize

	var images [][]float64
	var labels []int
	for i := 0; i < numChunks; i++ {
		lo := i * chunkSize
		hi := lo + chunkSize
		if hi > n {
			hi = n
		}
		for j := lo; j < hi; j++ {
			img, label := set.Get(j)
			images = append(images, Rotate(normalize(img), imageSide, imageSide, rotation))
			labels = append(labels, int(label))
		}
		// The chunk that crosses the cap is accumulated in full before the
		// loop stops; the truncation below trims the overshoot.
		if maxExamples > 0 && chunkSize*i >= maxExamples {
			break
		}
	}

	if maxExamples > 0 && len(images) > maxExamples {
		images = images[:maxExamples]
		labels = labels[:maxExamples]
	}

	inputs := tensor.New(len(images), 1, imageSide, imageSide)
	for i, img := range images {
		copy(inputs.Data[i*imageSide*imageSide:], img)
	}
	return inputs, labels, nil
}

func normalize(img mnist.RawImage) []float64 {
	out := make([]float64, len(img))
	for i, b := range img {
		out[i] = (float64(b)/255.0 - Mean) / Std
	}
	return out
}

// ensureDownloaded fetches any missing MNIST archive into dir. The directory
// acts as a persistent cache; files already present are never re-fetched.
func ensureDownloaded(dir string, files []string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	for _, f := range files {
		localPath := filepath.Join(dir, f)
		if _, err := os.Stat(localPath); err == nil {
			continue
		}
		if err := downloadFile(localPath, baseURL+f); err != nil {
			return fmt.Errorf("download %s: %w", f, err)
		}
	}
	return nil
}

func downloadFile(localPath, url string) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	tmp := localPath + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, localPath)
}
