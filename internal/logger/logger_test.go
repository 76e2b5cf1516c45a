package logger

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevels(t *testing.T) {
	tests := []struct {
		name      string
		level     Level
		wantDebug bool
		wantInfo  bool
	}{
		{"off", LevelOff, false, false},
		{"normal", LevelNormal, false, true},
		{"verbose", LevelVerbose, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := New(tt.level, &buf)

			log.Debug("debug %d", 1)
			assert.Equal(t, tt.wantDebug, bytes.Contains(buf.Bytes(), []byte("[DBG] ")))

			log.Info("info %d", 2)
			assert.Equal(t, tt.wantInfo, bytes.Contains(buf.Bytes(), []byte("info 2")))
		})
	}
}

func TestNamedSharesLevel(t *testing.T) {
	var buf bytes.Buffer
	root := New(LevelNormal, &buf)
	child := root.Named("controller")

	child.Info("hello")
	assert.Contains(t, buf.String(), "controller: hello")

	root.SetLevel(LevelOff)
	buf.Reset()
	child.Error("dropped")
	assert.Empty(t, buf.String())
	assert.Equal(t, LevelOff, child.GetLevel())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelNormal, ParseLevel(false, false))
	assert.Equal(t, LevelVerbose, ParseLevel(true, false))
	assert.Equal(t, LevelOff, ParseLevel(true, true))
}

func TestNewRotatingWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "monan.log")

	w, err := NewRotatingWriter(path)
	require.NoError(t, err)
	defer w.Close()

	log := New(LevelNormal, w)
	log.Info("written to %s", "file")
	assert.FileExists(t, path)
}
