package acquire

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/monan/internal/domain"
	"github.com/hammamikhairi/monan/internal/logger"
)

func quiet() *logger.Logger { return logger.New(logger.LevelOff, nil) }

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestPermissions(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	tests := []struct {
		name   string
		perms  *Permissions
		source domain.CaptureSource
		want   bool
	}{
		{"camera binary present", NewPermissions([]string{"sh"}, "", quiet()), domain.SourceCamera, true},
		{"camera binary missing", NewPermissions([]string{"no-such-camera-tool"}, "", quiet()), domain.SourceCamera, false},
		{"camera not configured", NewPermissions(nil, "", quiet()), domain.SourceCamera, false},
		{"library any path", NewPermissions(nil, "", quiet()), domain.SourceLibrary, true},
		{"library dir readable", NewPermissions(nil, dir, quiet()), domain.SourceLibrary, true},
		{"library dir missing", NewPermissions(nil, filepath.Join(dir, "nope"), quiet()), domain.SourceLibrary, false},
		{"unknown source", NewPermissions([]string{"sh"}, "", quiet()), domain.CaptureSource(9), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := tt.perms.VerifyPermissions(ctx, tt.source)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err := NewPermissions([]string{"sh"}, "", quiet()).VerifyPermissions(cancelled, domain.SourceCamera)
	assert.Error(t, err)
}

func TestCameraAcquire(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "frame.jpg", "jpeg-bytes")

	t.Run("placeholder", func(t *testing.T) {
		cam := NewCamera([]string{"cp", src, OutPlaceholder}, quiet(), WithTempDir(dir))
		img, err := cam.Acquire(context.Background(), domain.SourceCamera)
		require.NoError(t, err)
		assert.Equal(t, "jpeg-bytes", string(img.Data))
		assert.Equal(t, domain.SourceCamera, img.Source)
		assert.Len(t, img.ID, 26)
	})

	t.Run("appended output", func(t *testing.T) {
		cam := NewCamera([]string{"cp", src}, quiet(), WithTempDir(dir))
		img, err := cam.Acquire(context.Background(), domain.SourceCamera)
		require.NoError(t, err)
		assert.Equal(t, "jpeg-bytes", string(img.Data))
	})

	t.Run("no image is a cancel", func(t *testing.T) {
		cam := NewCamera([]string{"true"}, quiet(), WithTempDir(dir))
		_, err := cam.Acquire(context.Background(), domain.SourceCamera)
		assert.ErrorIs(t, err, domain.ErrAcquisitionCancelled)
	})

	t.Run("command failure", func(t *testing.T) {
		cam := NewCamera([]string{"false"}, quiet(), WithTempDir(dir))
		_, err := cam.Acquire(context.Background(), domain.SourceCamera)
		require.Error(t, err)
		assert.False(t, errors.Is(err, domain.ErrAcquisitionCancelled))
	})

	// The output path is passed as $1 and ignored, so only the clock can
	// end these commands.
	t.Run("timeout", func(t *testing.T) {
		cam := NewCamera([]string{"sh", "-c", "exec sleep 5", "_", OutPlaceholder}, quiet(),
			WithTempDir(dir), WithCaptureTimeout(50*time.Millisecond))
		_, err := cam.Acquire(context.Background(), domain.SourceCamera)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "timed out")
	})

	t.Run("context cancel", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		cam := NewCamera([]string{"sh", "-c", "exec sleep 5", "_", OutPlaceholder}, quiet(), WithTempDir(dir))
		_, err := cam.Acquire(ctx, domain.SourceCamera)
		assert.ErrorIs(t, err, domain.ErrAcquisitionCancelled)
	})

	leftovers, _ := filepath.Glob(filepath.Join(dir, "monan-capture-*"))
	assert.Empty(t, leftovers)
}

func TestLibraryAcquire(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "pho.jpg", "pho-bytes")
	writeFile(t, dir, "empty.jpg", "")

	answer := func(s string) PromptFunc {
		return func(context.Context, string) (string, error) { return s, nil }
	}

	tests := []struct {
		name       string
		prompt     PromptFunc
		ctxPath    string
		wantData   string
		wantCancel bool
		wantErr    bool
	}{
		{name: "relative answer", prompt: answer("pho.jpg"), wantData: "pho-bytes"},
		{name: "quoted answer", prompt: answer(` "pho.jpg" `), wantData: "pho-bytes"},
		{name: "preselected path", ctxPath: filepath.Join(dir, "pho.jpg"), wantData: "pho-bytes"},
		{name: "empty answer", prompt: answer("  "), wantCancel: true},
		{name: "prompt error", prompt: func(context.Context, string) (string, error) { return "", context.Canceled }, wantCancel: true},
		{name: "no prompt", wantCancel: true},
		{name: "missing file", prompt: answer("bun.jpg"), wantErr: true},
		{name: "empty file", prompt: answer("empty.jpg"), wantErr: true},
		{name: "directory", prompt: answer("."), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lib := NewLibrary(tt.prompt, dir, quiet())
			ctx := context.Background()
			if tt.ctxPath != "" {
				ctx = WithPath(ctx, tt.ctxPath)
			}

			img, err := lib.Acquire(ctx, domain.SourceLibrary)
			switch {
			case tt.wantCancel:
				assert.ErrorIs(t, err, domain.ErrAcquisitionCancelled)
			case tt.wantErr:
				require.Error(t, err)
				assert.False(t, errors.Is(err, domain.ErrAcquisitionCancelled))
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.wantData, string(img.Data))
				assert.Equal(t, domain.SourceLibrary, img.Source)
				assert.Equal(t, filepath.Join(dir, "pho.jpg"), img.Path)
			}
		})
	}
}

type stubAcquirer struct{ id string }

func (s stubAcquirer) Acquire(context.Context, domain.CaptureSource) (*domain.RawImage, error) {
	return &domain.RawImage{ID: s.id}, nil
}

func TestDispatcher(t *testing.T) {
	d := NewDispatcher(stubAcquirer{"cam"}, stubAcquirer{"lib"})

	img, err := d.Acquire(context.Background(), domain.SourceCamera)
	require.NoError(t, err)
	assert.Equal(t, "cam", img.ID)

	img, err = d.Acquire(context.Background(), domain.SourceLibrary)
	require.NoError(t, err)
	assert.Equal(t, "lib", img.ID)

	_, err = NewDispatcher(nil, nil).Acquire(context.Background(), domain.SourceCamera)
	assert.ErrorIs(t, err, domain.ErrNotImplemented)
}

func TestParseCommand(t *testing.T) {
	assert.Equal(t, []string{"fswebcam", "-r", "640x480", "{out}"}, ParseCommand("  fswebcam -r 640x480  {out} "))
	assert.Empty(t, ParseCommand(""))
}
