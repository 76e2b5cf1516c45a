// Package acquire obtains raw images from the camera command or from the
// local image library, and answers whether either source may be used.
package acquire

import (
	"context"
	"os"
	"os/exec"

	"github.com/oklog/ulid/v2"

	"github.com/hammamikhairi/monan/internal/domain"
	"github.com/hammamikhairi/monan/internal/logger"
)

// Compile-time interface checks.
var (
	_ domain.PermissionChecker = (*Permissions)(nil)
	_ domain.ImageAcquirer     = (*Dispatcher)(nil)
)

// Permissions decides whether a source is usable on this machine. The
// camera needs its capture binary on PATH; the library needs a readable
// directory when one is configured.
type Permissions struct {
	cameraCmd  []string
	libraryDir string
	log        *logger.Logger
}

// NewPermissions creates a checker. An empty libraryDir allows any path.
func NewPermissions(cameraCmd []string, libraryDir string, log *logger.Logger) *Permissions {
	return &Permissions{cameraCmd: cameraCmd, libraryDir: libraryDir, log: log}
}

// VerifyPermissions reports whether source may be used. Denials are
// (false, nil); errors are reserved for a cancelled context.
func (p *Permissions) VerifyPermissions(ctx context.Context, source domain.CaptureSource) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	switch source {
	case domain.SourceCamera:
		if len(p.cameraCmd) == 0 {
			p.log.Debug("camera denied: no capture command configured")
			return false, nil
		}
		if _, err := exec.LookPath(p.cameraCmd[0]); err != nil {
			p.log.Debug("camera denied: %v", err)
			return false, nil
		}
		return true, nil

	case domain.SourceLibrary:
		if p.libraryDir == "" {
			return true, nil
		}
		if _, err := os.ReadDir(p.libraryDir); err != nil {
			p.log.Debug("library denied: %v", err)
			return false, nil
		}
		return true, nil

	default:
		return false, nil
	}
}

// Dispatcher routes an acquisition to the acquirer for its source.
type Dispatcher struct {
	camera  domain.ImageAcquirer
	library domain.ImageAcquirer
}

// NewDispatcher creates a dispatcher. Either acquirer may be nil, in which
// case that source fails with domain.ErrNotImplemented.
func NewDispatcher(camera, library domain.ImageAcquirer) *Dispatcher {
	return &Dispatcher{camera: camera, library: library}
}

// Acquire delegates to the acquirer for source.
func (d *Dispatcher) Acquire(ctx context.Context, source domain.CaptureSource) (*domain.RawImage, error) {
	var a domain.ImageAcquirer
	switch source {
	case domain.SourceCamera:
		a = d.camera
	case domain.SourceLibrary:
		a = d.library
	}
	if a == nil {
		return nil, domain.ErrNotImplemented
	}
	return a.Acquire(ctx, source)
}

func newImageID() string {
	return ulid.Make().String()
}
