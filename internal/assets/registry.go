// Package assets binds dish image keys to local image files.
package assets

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/hammamikhairi/monan/internal/domain"
	"github.com/hammamikhairi/monan/internal/logger"
)

// Compile-time interface check.
var _ domain.ImageResolver = (*Registry)(nil)

// Extensions tried for each key, in order.
var Extensions = []string{".jpg", ".jpeg", ".png", ".webp"}

// Registry is an immutable key → resource mapping. Safe for concurrent
// reads.
type Registry struct {
	resources map[string]domain.ImageResource
	missing   []string
}

// NewRegistry scans dir once for <key><ext> files for every key. Keys with
// no file are recorded as missing and resolve to false. An unreadable or
// absent directory yields an empty registry.
func NewRegistry(dir string, keys []string, log *logger.Logger) *Registry {
	r := &Registry{resources: make(map[string]domain.ImageResource, len(keys))}

	for _, key := range keys {
		if path, ok := find(dir, key); ok {
			r.resources[key] = domain.ImageResource{Key: key, Path: path}
			continue
		}
		r.missing = append(r.missing, key)
	}
	sort.Strings(r.missing)

	if len(r.missing) > 0 {
		log.Debug("assets: %d of %d keys have no image in %s", len(r.missing), len(keys), dir)
	}
	log.Info("assets: %d images bound from %s", len(r.resources), dir)
	return r
}

// FromMap builds a registry from an explicit mapping.
func FromMap(m map[string]string) *Registry {
	r := &Registry{resources: make(map[string]domain.ImageResource, len(m))}
	for key, path := range m {
		r.resources[key] = domain.ImageResource{Key: key, Path: path}
	}
	return r
}

// Resolve returns the bound resource for key.
func (r *Registry) Resolve(key string) (domain.ImageResource, bool) {
	res, ok := r.resources[key]
	return res, ok
}

// Missing returns the keys that had no image file, sorted.
func (r *Registry) Missing() []string {
	return append([]string(nil), r.missing...)
}

// Len returns the number of bound keys.
func (r *Registry) Len() int { return len(r.resources) }

func find(dir, key string) (string, bool) {
	if dir == "" || key == "" || filepath.Base(key) != key {
		return "", false
	}
	for _, ext := range Extensions {
		path := filepath.Join(dir, key+ext)
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path, true
		}
	}
	return "", false
}
