package acquire

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hammamikhairi/monan/internal/domain"
	"github.com/hammamikhairi/monan/internal/logger"
)

// MaxImageBytes caps the size of a library image.
const MaxImageBytes = 32 << 20

// PromptFunc asks the user a question and returns the answer. It should
// honour ctx cancellation.
type PromptFunc func(ctx context.Context, question string) (string, error)

type pathKey struct{}

// WithPath returns a context carrying a preselected library path, which
// Library.Acquire uses instead of prompting.
func WithPath(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, pathKey{}, path)
}

func pathFrom(ctx context.Context) string {
	p, _ := ctx.Value(pathKey{}).(string)
	return p
}

// Library picks an image file from disk.
type Library struct {
	prompt PromptFunc
	dir    string
	log    *logger.Logger
}

// NewLibrary creates a library acquirer. Relative paths are resolved
// against dir when it is set.
func NewLibrary(prompt PromptFunc, dir string, log *logger.Logger) *Library {
	return &Library{prompt: prompt, dir: dir, log: log}
}

// Acquire asks for a path (unless the context carries one) and reads the
// file. An empty answer or a cancelled context is a user cancellation.
func (l *Library) Acquire(ctx context.Context, _ domain.CaptureSource) (*domain.RawImage, error) {
	path := pathFrom(ctx)
	if path == "" {
		if l.prompt == nil {
			return nil, domain.ErrAcquisitionCancelled
		}
		answer, err := l.prompt(ctx, "Image path (empty to cancel):")
		if err != nil || ctx.Err() != nil {
			l.log.Debug("library: prompt ended: %v", err)
			return nil, domain.ErrAcquisitionCancelled
		}
		path = answer
	}

	path = strings.Trim(strings.TrimSpace(path), `"'`)
	if path == "" {
		return nil, domain.ErrAcquisitionCancelled
	}
	path = l.resolve(path)

	data, err := readLimited(path)
	if err != nil {
		return nil, fmt.Errorf("library: %w", err)
	}

	img := &domain.RawImage{
		ID:         newImageID(),
		Source:     domain.SourceLibrary,
		Path:       path,
		Data:       data,
		AcquiredAt: time.Now(),
	}
	l.log.Info("library: picked %s (%s, %d bytes)", img.ID, path, len(data))
	return img, nil
}

func (l *Library) resolve(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	if !filepath.IsAbs(path) && l.dir != "" {
		return filepath.Join(l.dir, path)
	}
	return path
}

func readLimited(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	data, err := io.ReadAll(io.LimitReader(f, MaxImageBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxImageBytes {
		return nil, fmt.Errorf("%s is larger than %d MB", path, MaxImageBytes>>20)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%s is empty", path)
	}
	return data, nil
}
