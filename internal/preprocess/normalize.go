// Package preprocess turns raw captures into the fixed square format the
// inference gateways consume.
package preprocess

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"os"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/hammamikhairi/monan/internal/domain"
	"github.com/hammamikhairi/monan/internal/logger"
)

// Compile-time interface check.
var _ domain.Preprocessor = (*Normalizer)(nil)

// DefaultQuality matches a lossless-as-possible re-encode.
const DefaultQuality = 100

// MaxSize bounds the target side to keep a bad flag from allocating
// gigabytes.
const MaxSize = 4096

// Normalizer decodes, resizes and re-encodes images.
type Normalizer struct {
	quality int
	scaler  draw.Scaler
	log     *logger.Logger
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithQuality sets the JPEG quality (1-100).
func WithQuality(q int) Option {
	return func(n *Normalizer) {
		if q >= 1 && q <= 100 {
			n.quality = q
		}
	}
}

// WithScaler sets the resampling kernel. Default is Catmull-Rom.
func WithScaler(s draw.Scaler) Option {
	return func(n *Normalizer) {
		if s != nil {
			n.scaler = s
		}
	}
}

// New creates a Normalizer.
func New(log *logger.Logger, opts ...Option) *Normalizer {
	n := &Normalizer{
		quality: DefaultQuality,
		scaler:  draw.CatmullRom,
		log:     log,
	}
	for _, o := range opts {
		o(n)
	}
	return n
}

// Normalize decodes raw (JPEG, PNG or WebP), stretches it to exactly
// size×size and re-encodes it as JPEG. The aspect ratio is not kept.
// Every failure wraps domain.ErrPreprocess.
func (n *Normalizer) Normalize(ctx context.Context, raw *domain.RawImage, size int) (*domain.ImageArtifact, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: no image", domain.ErrPreprocess)
	}
	if size <= 0 || size > MaxSize {
		return nil, fmt.Errorf("%w: invalid target size %d", domain.ErrPreprocess, size)
	}

	data := raw.Data
	if len(data) == 0 && raw.Path != "" {
		b, err := os.ReadFile(raw.Path)
		if err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", domain.ErrPreprocess, raw.Path, err)
		}
		data = b
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty image", domain.ErrPreprocess)
	}

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decoding: %v", domain.ErrPreprocess, err)
	}
	if src.Bounds().Empty() {
		return nil, fmt.Errorf("%w: image has no pixels", domain.ErrPreprocess)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPreprocess, err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	n.scaler.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: n.quality}); err != nil {
		return nil, fmt.Errorf("%w: encoding: %v", domain.ErrPreprocess, err)
	}

	n.log.Debug("normalized %s (%s %dx%d) to %dx%d, %d bytes",
		raw.ID, format, src.Bounds().Dx(), src.Bounds().Dy(), size, size, buf.Len())

	return &domain.ImageArtifact{
		ID:     raw.ID,
		Size:   size,
		Pixels: dst,
		JPEG:   buf.Bytes(),
	}, nil
}
