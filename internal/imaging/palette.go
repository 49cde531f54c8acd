package imaging

import (
	"image"
	"math"
	"sort"

	"github.com/cenkalti/dominantcolor"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"
)

// maxPaletteSamples bounds the pixel count fed to kmeans.
const maxPaletteSamples = 12000

// Palette extracts the k most prominent colors of an image, dominant
// first. Used to summarize the style image in CLI output; it plays no
// part in the optimization itself.
//
// Clustering runs k-means over a subsampled pixel set; if partitioning
// fails or degenerates, the dominantcolor heuristic serves as fallback.
func Palette(img image.Image, k int) []colorful.Color {
	if k <= 0 {
		return nil
	}
	if p := kmeansPalette(img, k); len(p) > 0 {
		return p
	}
	return dominantPalette(img, k)
}

func kmeansPalette(img image.Image, k int) []colorful.Color {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	if width == 0 || height == 0 {
		return nil
	}

	step := 1
	if width*height > maxPaletteSamples {
		step = int(math.Sqrt(float64(width*height)/float64(maxPaletteSamples))) + 1
	}

	dataset := make(clusters.Observations, 0, maxPaletteSamples)
	for y := b.Min.Y; y < b.Max.Y; y += step {
		for x := b.Min.X; x < b.Max.X; x += step {
			r16, g16, b16, a16 := img.At(x, y).RGBA()
			if a16 == 0 {
				continue
			}
			dataset = append(dataset, clusters.Coordinates{
				float64(r16) / 65535.0,
				float64(g16) / 65535.0,
				float64(b16) / 65535.0,
			})
		}
	}
	if len(dataset) < k {
		return nil
	}

	km := kmeans.New()
	cc, err := km.Partition(dataset, k)
	if err != nil || len(cc) == 0 {
		return nil
	}

	sort.Slice(cc, func(i, j int) bool {
		return len(cc[i].Observations) > len(cc[j].Observations)
	})

	out := make([]colorful.Color, 0, k)
	for _, c := range cc {
		if len(c.Center) < 3 {
			continue
		}
		out = append(out, colorful.Color{
			R: c.Center[0],
			G: c.Center[1],
			B: c.Center[2],
		}.Clamped())
	}
	return out
}

func dominantPalette(img image.Image, k int) []colorful.Color {
	candidates := dominantcolor.FindWeight(img, k)
	out := make([]colorful.Color, 0, len(candidates))
	for _, c := range candidates {
		col, ok := colorful.MakeColor(c.RGBA)
		if !ok {
			continue
		}
		out = append(out, col.Clamped())
	}
	return out
}
