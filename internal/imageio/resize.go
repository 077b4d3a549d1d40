package imageio

import (
	"image"
	"log/slog"

	"github.com/disintegration/gift"
)

// Downscale loads inputPath, shrinks both dimensions by integer floor
// division by factor using a Lanczos filter, and saves the result to
// outputPath.
func Downscale(inputPath, outputPath string, factor int) error {
	img, err := decode(inputPath)
	if err != nil {
		return err
	}

	out, err := DownscaleImage(img, factor)
	if err != nil {
		return err
	}

	if err := Save(out, outputPath); err != nil {
		return err
	}

	slog.Info("Downscaled image",
		"input", inputPath,
		"output", outputPath,
		"factor", factor,
		"width", out.Bounds().Dx(),
		"height", out.Bounds().Dy(),
	)
	return nil
}

// DownscaleImage returns img resized to (w/factor)×(h/factor) as 8-bit gray.
func DownscaleImage(img image.Image, factor int) (*image.Gray, error) {
	b := img.Bounds()
	if factor <= 0 {
		return nil, &InvalidScaleFactorError{Factor: factor, Width: b.Dx(), Height: b.Dy()}
	}
	w, h := b.Dx()/factor, b.Dy()/factor
	if w == 0 || h == 0 {
		return nil, &InvalidScaleFactorError{Factor: factor, Width: b.Dx(), Height: b.Dy()}
	}

	g := gift.New(gift.Resize(w, h, gift.LanczosResampling))
	dst := image.NewGray(g.Bounds(b))
	g.Draw(dst, toGray(img))
	return dst, nil
}
