// Package imaging converts between image.Image and the [1,3,H,W] tensors
// the optimization loop works on, and derives style palettes for preview
// output.
package imaging

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"golang.org/x/image/draw"

	"github.com/gogh-ml/gogh/internal/tensor"
)

// Decode reads and decodes an image from r. The source label is used in
// error reporting only.
func Decode(r io.Reader, source string) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, &DecodeError{Source: source, Err: err}
	}
	return img, nil
}

// DecodeFile reads and decodes an image from disk.
func DecodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &DecodeError{Source: path, Err: err}
	}
	defer f.Close()
	return Decode(f, path)
}

// Preprocess resizes img to size x size with Catmull-Rom resampling and
// converts it to a [1,3,size,size] tensor with channel values in [0,1].
// Alpha is composited over black.
func Preprocess(img image.Image, size int, backend tensor.Backend) (*tensor.Tensor, error) {
	if size <= 0 {
		return nil, fmt.Errorf("imaging: invalid processing size %d", size)
	}

	resized := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(resized, resized.Bounds(), img, img.Bounds(), draw.Src, nil)

	data := make([]float32, 3*size*size)
	plane := size * size
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			i := resized.PixOffset(x, y)
			p := y*size + x
			data[p] = float32(resized.Pix[i]) / 255.0
			data[plane+p] = float32(resized.Pix[i+1]) / 255.0
			data[2*plane+p] = float32(resized.Pix[i+2]) / 255.0
		}
	}

	return tensor.FromSlice(data, tensor.Shape{1, 3, size, size}, backend)
}

// ToImage converts a [1,3,H,W] tensor back to an image. Values are
// clamped to [0,1] before quantization so out-of-range intermediates
// never wrap.
func ToImage(t *tensor.Tensor) (image.Image, error) {
	shape := t.Shape()
	if len(shape) != 4 || shape[0] != 1 || shape[1] != 3 {
		return nil, fmt.Errorf("imaging: expected tensor shape [1,3,H,W], got %v", shape)
	}
	height, width := shape[2], shape[3]
	plane := height * width
	data := t.Data()

	out := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			p := y*width + x
			out.SetRGBA(x, y, color.RGBA{
				R: quantize(data[p]),
				G: quantize(data[plane+p]),
				B: quantize(data[2*plane+p]),
				A: 255,
			})
		}
	}
	return out, nil
}

func quantize(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}
