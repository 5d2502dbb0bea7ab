package quality

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"

	_ "golang.org/x/image/webp"
)

// Source supplies quality metrics for an encoded image.
type Source interface {
	Analyze(ctx context.Context, image []byte) (Metrics, error)
}

// DefaultMaxPixels bounds the decoded size of an image, 25 megapixels.
const DefaultMaxPixels = 25_000_000

// Analyzer computes metrics locally from the decoded pixels.
type Analyzer struct {
	maxPixels int
}

type Option func(*Analyzer)

// WithMaxPixels rejects images whose header declares more than n pixels.
// Values <= 0 keep the default.
func WithMaxPixels(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.maxPixels = n
		}
	}
}

// NewAnalyzer creates a local quality analyzer
func NewAnalyzer(opts ...Option) *Analyzer {
	a := &Analyzer{maxPixels: DefaultMaxPixels}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

var _ Source = (*Analyzer)(nil)

// Analyze decodes the image and measures it on its 8-bit luma channel.
func (a *Analyzer) Analyze(ctx context.Context, data []byte) (Metrics, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Metrics{}, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	if cfg.Height > 0 && cfg.Width > a.maxPixels/cfg.Height {
		return Metrics{}, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrImageTooLarge, cfg.Width, cfg.Height, a.maxPixels)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Metrics{}, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}

	if err := ctx.Err(); err != nil {
		return Metrics{}, err
	}

	m, err := Measure(img)
	if err != nil {
		return Metrics{}, fmt.Errorf("analyze %s image: %w", format, err)
	}
	return m, nil
}

// Measure computes metrics for an already decoded image.
func Measure(img image.Image) (Metrics, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < 3 || h < 3 {
		return Metrics{}, fmt.Errorf("%w: %dx%d", ErrImageTooSmall, w, h)
	}

	luma := toLuma(img)

	var sum float64
	for _, v := range luma {
		sum += v
	}
	mean := sum / float64(len(luma))

	var sq float64
	for _, v := range luma {
		d := v - mean
		sq += d * d
	}
	contrast := math.Sqrt(sq / float64(len(luma)))

	return Metrics{
		Sharpness:  laplacianVariance(luma, w, h),
		Brightness: mean,
		Contrast:   contrast,
	}, nil
}

// toLuma converts to ITU-R 601 luma, the same weights image/color uses for Gray.
func toLuma(img image.Image) []float64 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := make([]float64, w*h)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			out[y*w+x] = float64((19595*r+38470*g+7471*bl+1<<15)>>24)
		}
	}
	return out
}

// laplacianVariance applies the 4-neighbour Laplacian kernel to interior
// pixels and returns the population variance of the response.
func laplacianVariance(luma []float64, w, h int) float64 {
	n := (w - 2) * (h - 2)
	resp := make([]float64, 0, n)

	var sum float64
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			i := y*w + x
			v := luma[i-w] + luma[i+w] + luma[i-1] + luma[i+1] - 4*luma[i]
			resp = append(resp, v)
			sum += v
		}
	}
	mean := sum / float64(n)

	var sq float64
	for _, v := range resp {
		d := v - mean
		sq += d * d
	}
	return sq / float64(n)
}
