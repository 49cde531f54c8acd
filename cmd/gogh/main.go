// Package main provides the gogh style transfer CLI.
package main

import (
	"context"
	"errors"
	"flag"
	"image/png"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gogh-ml/gogh"
	"github.com/gogh-ml/gogh/internal/imaging"
)

func main() {
	var (
		contentPath   = flag.String("content", "", "content image path (png/jpeg/gif)")
		stylePath     = flag.String("style", "", "style image path (png/jpeg/gif)")
		outPath       = flag.String("out", "out.png", "output image path (png)")
		weightsPath   = flag.String("weights", "vgg19_features.safetensors", "VGG-19 weights file")
		size          = flag.Int("size", 512, "processing size: 256, 384, 512 or 768")
		iterations    = flag.Int("iterations", 200, "optimization iterations (50-500)")
		styleWeight   = flag.Float64("style-weight", 1.0, "style loss weight (0.1-10)")
		contentWeight = flag.Float64("content-weight", 1.0, "content loss weight (0.1-10)")
	)
	flag.Parse()

	if *contentPath == "" || *stylePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*contentPath, *stylePath, *outPath, *weightsPath, *size, *iterations,
		float32(*styleWeight), float32(*contentWeight)); err != nil {
		log.Fatalf("gogh: %v", err)
	}
}

func run(contentPath, stylePath, outPath, weightsPath string, size, iterations int, styleWeight, contentWeight float32) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	content, err := imaging.DecodeFile(contentPath)
	if err != nil {
		return err
	}
	style, err := imaging.DecodeFile(stylePath)
	if err != nil {
		return err
	}

	log.Printf("style palette of %s:", stylePath)
	for _, c := range gogh.StylePalette(style, 5) {
		log.Printf("  %s", c.Hex())
	}

	model, err := gogh.NewModel(weightsPath)
	if err != nil {
		return err
	}

	start := time.Now()
	result, err := model.Transfer(ctx, content, style, gogh.Options{
		StyleWeight:    styleWeight,
		ContentWeight:  contentWeight,
		Iterations:     iterations,
		ProcessingSize: size,
		OnProgress: func(p gogh.Progress) {
			log.Printf("iteration %d/%d: loss=%.4f (style=%.4f content=%.4f)",
				p.Iteration, p.TotalIterations, p.TotalLoss, p.StyleLoss, p.ContentLoss)
		},
	})
	if err != nil {
		if errors.Is(err, context.Canceled) && result != nil {
			log.Printf("interrupted, writing best result so far")
		} else {
			return err
		}
	}
	log.Printf("finished in %s", time.Since(start).Round(time.Millisecond))

	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()
	if err := png.Encode(out, result); err != nil {
		return err
	}
	log.Printf("wrote %s", outPath)
	return nil
}
