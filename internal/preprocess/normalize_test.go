package preprocess

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/monan/internal/domain"
	"github.com/hammamikhairi/monan/internal/logger"
)

func setupNormalizer(t *testing.T) *Normalizer {
	t.Helper()
	return New(logger.New(logger.LevelOff, nil))
}

func solidPNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestNormalizeResizesToSquare(t *testing.T) {
	n := setupNormalizer(t)
	red := color.RGBA{R: 200, A: 255}

	tests := []struct {
		name string
		w, h int
		size int
	}{
		{"landscape down", 120, 80, 32},
		{"portrait down", 40, 90, 24},
		{"upscale", 8, 8, 64},
		{"same", 16, 16, 16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := &domain.RawImage{ID: "img-1", Data: solidPNG(t, tt.w, tt.h, red)}

			art, err := n.Normalize(context.Background(), raw, tt.size)
			require.NoError(t, err)

			assert.Equal(t, "img-1", art.ID)
			assert.Equal(t, tt.size, art.Size)
			assert.Equal(t, image.Rect(0, 0, tt.size, tt.size), art.Pixels.Bounds())

			decoded, err := jpeg.Decode(bytes.NewReader(art.JPEG))
			require.NoError(t, err)
			assert.Equal(t, tt.size, decoded.Bounds().Dx())
			assert.Equal(t, tt.size, decoded.Bounds().Dy())

			r, g, b, _ := art.Pixels.At(tt.size/2, tt.size/2).RGBA()
			assert.InDelta(t, 200, r>>8, 2)
			assert.InDelta(t, 0, g>>8, 2)
			assert.InDelta(t, 0, b>>8, 2)
		})
	}
}

func TestNormalizeReadsPath(t *testing.T) {
	n := setupNormalizer(t)
	path := filepath.Join(t.TempDir(), "dish.png")
	require.NoError(t, os.WriteFile(path, solidPNG(t, 10, 10, color.White), 0o644))

	art, err := n.Normalize(context.Background(), &domain.RawImage{ID: "x", Path: path}, 8)
	require.NoError(t, err)
	assert.Equal(t, 8, art.Size)
}

func TestNormalizeErrors(t *testing.T) {
	n := setupNormalizer(t)
	good := solidPNG(t, 4, 4, color.Black)

	tests := []struct {
		name string
		raw  *domain.RawImage
		size int
	}{
		{"nil image", nil, 16},
		{"empty", &domain.RawImage{ID: "e"}, 16},
		{"corrupt", &domain.RawImage{ID: "c", Data: []byte("definitely not an image")}, 16},
		{"truncated", &domain.RawImage{ID: "t", Data: good[:len(good)/2]}, 16},
		{"zero size", &domain.RawImage{ID: "z", Data: good}, 0},
		{"huge size", &domain.RawImage{ID: "h", Data: good}, MaxSize + 1},
		{"missing file", &domain.RawImage{ID: "m", Path: "/nonexistent/dish.jpg"}, 16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := n.Normalize(context.Background(), tt.raw, tt.size)
			assert.ErrorIs(t, err, domain.ErrPreprocess)
		})
	}
}

func TestNormalizeCancelled(t *testing.T) {
	n := setupNormalizer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := n.Normalize(ctx, &domain.RawImage{ID: "c", Data: solidPNG(t, 4, 4, color.Black)}, 8)
	assert.ErrorIs(t, err, domain.ErrPreprocess)
}

func TestWithQuality(t *testing.T) {
	n := New(logger.New(logger.LevelOff, nil), WithQuality(50), WithQuality(0))
	assert.Equal(t, 50, n.quality)
}
