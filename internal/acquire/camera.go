package acquire

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/hammamikhairi/monan/internal/domain"
	"github.com/hammamikhairi/monan/internal/logger"
)

// OutPlaceholder in a camera command is replaced by the output file path.
// Without it the path is appended as the last argument.
const OutPlaceholder = "{out}"

// DefaultCameraCommand captures one frame from the default webcam.
var DefaultCameraCommand = []string{"fswebcam", "--no-banner", "-r", "1280x720", OutPlaceholder}

// ParseCommand splits a command line on whitespace. Quoting is not
// supported.
func ParseCommand(s string) []string {
	return strings.Fields(s)
}

// CameraOption configures the Camera.
type CameraOption func(*Camera)

// WithCaptureTimeout bounds one capture. Default 15 s.
func WithCaptureTimeout(d time.Duration) CameraOption {
	return func(c *Camera) { c.timeout = d }
}

// WithTempDir sets the directory for captured frames.
func WithTempDir(dir string) CameraOption {
	return func(c *Camera) { c.tempDir = dir }
}

// Camera takes a photo by running an external capture command that
// writes one image file.
type Camera struct {
	command []string
	tempDir string
	timeout time.Duration
	log     *logger.Logger
}

// NewCamera creates a camera acquirer for the given command.
func NewCamera(command []string, log *logger.Logger, opts ...CameraOption) *Camera {
	c := &Camera{
		command: command,
		timeout: 15 * time.Second,
		log:     log,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

const waitDelay = time.Second

// Acquire runs the capture command. A cancelled context or a command that
// produces no image counts as a user cancellation.
func (c *Camera) Acquire(ctx context.Context, _ domain.CaptureSource) (*domain.RawImage, error) {
	if len(c.command) == 0 {
		return nil, errors.New("camera: no capture command")
	}

	f, err := os.CreateTemp(c.tempDir, "monan-capture-*.jpg")
	if err != nil {
		return nil, fmt.Errorf("camera: temp file: %w", err)
	}
	out := f.Name()
	f.Close()
	defer os.Remove(out)

	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	args := make([]string, 0, len(c.command))
	substituted := false
	for _, a := range c.command[1:] {
		if strings.Contains(a, OutPlaceholder) {
			a = strings.ReplaceAll(a, OutPlaceholder, out)
			substituted = true
		}
		args = append(args, a)
	}
	if !substituted {
		args = append(args, out)
	}

	c.log.Debug("camera: running %s %v", c.command[0], args)
	cmd := exec.CommandContext(runCtx, c.command[0], args...)
	// Wrapper scripts can leave children holding the output pipe after
	// the kill; don't wait on them.
	cmd.WaitDelay = waitDelay
	if output, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return nil, domain.ErrAcquisitionCancelled
		}
		if runCtx.Err() != nil {
			return nil, fmt.Errorf("camera: capture timed out after %s", c.timeout)
		}
		return nil, fmt.Errorf("camera: %w: %s", err, strings.TrimSpace(string(output)))
	}

	data, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("camera: reading capture: %w", err)
	}
	if len(data) == 0 {
		c.log.Debug("camera: capture produced no image")
		return nil, domain.ErrAcquisitionCancelled
	}

	img := &domain.RawImage{
		ID:         newImageID(),
		Source:     domain.SourceCamera,
		Data:       data,
		AcquiredAt: time.Now(),
	}
	c.log.Info("camera: captured %s (%d bytes)", img.ID, len(data))
	return img, nil
}
