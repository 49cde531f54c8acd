// Package vgg builds the frozen VGG-19 feature backbone used for style
// and content feature extraction.
//
// Only the convolutional prefix of the network is constructed (29 layers,
// through relu5_1). The classifier head is never needed: feature maps are
// tapped at intermediate depths, not at the final output.
package vgg

// layerKind distinguishes the three layer types in the backbone prefix.
type layerKind int

const (
	kindConv layerKind = iota
	kindReLU
	kindPool
)

// layerSpec describes one layer of the torchvision VGG-19 "features"
// sequence. Conv layers carry their channel counts; index matches the
// torchvision numbering so weight names ("features.N.weight") resolve
// directly.
type layerSpec struct {
	index       int
	kind        layerKind
	inChannels  int // conv only
	outChannels int // conv only
}

// NumLayers is the length of the backbone prefix: everything through
// conv5_1 and its activation.
const NumLayers = 29

// TapIndices lists the layer indices whose outputs are captured during
// extraction, in increasing depth: conv1_1 through conv5_1.
var TapIndices = [5]int{0, 5, 10, 19, 28}

// ContentTapIndex selects which of the five taps carries content
// structure (conv4_1). The same tap also participates in the style set.
const ContentTapIndex = 3

// architecture is the VGG-19 features prefix. All convs are 3x3 stride 1
// pad 1; all pools are 2x2 stride 2.
var architecture = []layerSpec{
	{index: 0, kind: kindConv, inChannels: 3, outChannels: 64},
	{index: 1, kind: kindReLU},
	{index: 2, kind: kindConv, inChannels: 64, outChannels: 64},
	{index: 3, kind: kindReLU},
	{index: 4, kind: kindPool},
	{index: 5, kind: kindConv, inChannels: 64, outChannels: 128},
	{index: 6, kind: kindReLU},
	{index: 7, kind: kindConv, inChannels: 128, outChannels: 128},
	{index: 8, kind: kindReLU},
	{index: 9, kind: kindPool},
	{index: 10, kind: kindConv, inChannels: 128, outChannels: 256},
	{index: 11, kind: kindReLU},
	{index: 12, kind: kindConv, inChannels: 256, outChannels: 256},
	{index: 13, kind: kindReLU},
	{index: 14, kind: kindConv, inChannels: 256, outChannels: 256},
	{index: 15, kind: kindReLU},
	{index: 16, kind: kindConv, inChannels: 256, outChannels: 256},
	{index: 17, kind: kindReLU},
	{index: 18, kind: kindPool},
	{index: 19, kind: kindConv, inChannels: 256, outChannels: 512},
	{index: 20, kind: kindReLU},
	{index: 21, kind: kindConv, inChannels: 512, outChannels: 512},
	{index: 22, kind: kindReLU},
	{index: 23, kind: kindConv, inChannels: 512, outChannels: 512},
	{index: 24, kind: kindReLU},
	{index: 25, kind: kindConv, inChannels: 512, outChannels: 512},
	{index: 26, kind: kindReLU},
	{index: 27, kind: kindPool},
	{index: 28, kind: kindConv, inChannels: 512, outChannels: 512},
}

// ConvIndices returns the torchvision layer indices that carry weights,
// in order. Used by tests and fixture generation.
func ConvIndices() []int {
	var out []int
	for _, spec := range architecture {
		if spec.kind == kindConv {
			out = append(out, spec.index)
		}
	}
	return out
}

// ConvChannels returns (inChannels, outChannels) for the conv layer at
// the given torchvision index, or ok=false if the index is not a conv.
func ConvChannels(index int) (in, out int, ok bool) {
	for _, spec := range architecture {
		if spec.index == index && spec.kind == kindConv {
			return spec.inChannels, spec.outChannels, true
		}
	}
	return 0, 0, false
}
