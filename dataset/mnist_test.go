package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mnist "github.com/petar/GoMNIST"

	"github.com/Nyquixt/TENT/tensor"
)

func syntheticSet(n int) *mnist.Set {
	set := &mnist.Set{NRow: imageSide, NCol: imageSide}
	for i := 0; i < n; i++ {
		img := make(mnist.RawImage, imageSide*imageSide)
		for j := range img {
			img[j] = byte(i % 251)
		}
		set.Images = append(set.Images, img)
		set.Labels = append(set.Labels, mnist.Label(i%10))
	}
	return set
}

func TestNormalize(t *testing.T) {
	img := mnist.RawImage{0, 255}
	out := normalize(img)
	assert.InDelta(t, (0-Mean)/Std, out[0], 1e-12)
	assert.InDelta(t, (1-Mean)/Std, out[1], 1e-12)
}

func TestAssembleRotatedFullSet(t *testing.T) {
	set := syntheticSet(230)
	inputs, labels, err := assembleRotated(set, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{230, 1, imageSide, imageSide}, inputs.Shape)
	assert.Len(t, labels, 230)
	assert.Equal(t, 9, labels[229])
}

func TestAssembleRotatedCapAtChunkBoundary(t *testing.T) {
	set := syntheticSet(500)
	inputs, labels, err := assembleRotated(set, 0, 200)
	require.NoError(t, err)
	assert.Equal(t, 200, inputs.Shape[0])
	assert.Len(t, labels, 200)
}

func TestAssembleRotatedCapInsideChunk(t *testing.T) {
	// A cap of 150 pulls in two whole chunks before truncating.
	set := syntheticSet(500)
	inputs, labels, err := assembleRotated(set, 0, 150)
	require.NoError(t, err)
	assert.Equal(t, 150, inputs.Shape[0])
	assert.Len(t, labels, 150)

	// The 150th example really is image index 149.
	want := (float64(149%251)/255.0 - Mean) / Std
	assert.InDelta(t, want, inputs.Data[149*imageSide*imageSide], 1e-12)
}

func TestAssembleRotatedCapBeyondSet(t *testing.T) {
	set := syntheticSet(130)
	inputs, labels, err := assembleRotated(set, 0, 1000)
	require.NoError(t, err)
	assert.Equal(t, 130, inputs.Shape[0])
	assert.Len(t, labels, 130)
}

func TestAssembleRotatedDeterministic(t *testing.T) {
	set := syntheticSet(150)

	first, firstLabels, err := assembleRotated(set, 30, 120)
	require.NoError(t, err)
	second, secondLabels, err := assembleRotated(set, 30, 120)
	require.NoError(t, err)

	assert.True(t, tensor.Equal(first, second), "repeated loads must be bit-identical")
	assert.Equal(t, firstLabels, secondLabels)
}

func TestAssembleRotatedAppliesRotationAfterNormalization(t *testing.T) {
	set := &mnist.Set{NRow: imageSide, NCol: imageSide}
	img := make(mnist.RawImage, imageSide*imageSide)
	img[0] = 255 // top-left pixel
	set.Images = append(set.Images, img)
	set.Labels = append(set.Labels, 3)

	inputs, labels, err := assembleRotated(set, 180, 0)
	require.NoError(t, err)
	require.Equal(t, []int{1, 1, imageSide, imageSide}, inputs.Shape)
	assert.Equal(t, []int{3}, labels)

	bright := (1 - Mean) / Std
	dark := (0 - Mean) / Std
	// 180 degrees moves the bright pixel to the bottom-right corner; the
	// background stays at the normalized zero level, not literal zero.
	assert.InDelta(t, bright, inputs.Data[imageSide*imageSide-1], 1e-12)
	assert.InDelta(t, dark, inputs.Data[0], 1e-12)
}
