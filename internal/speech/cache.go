package speech

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/hammamikhairi/monan/internal/logger"
)

const (
	memTTL     = 30 * time.Minute
	memCleanup = 10 * time.Minute
)

// AudioCache remembers synthesized clips keyed by voice and text. Lookups
// go to an expiring in-process map first and then to a directory of .wav
// files that survives restarts. Changing the voice changes every key.
type AudioCache struct {
	voice string
	mem   *gocache.Cache
	disk  *clipDir
	log   *logger.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// NewAudioCache builds a cache for one voice. dir may be empty for a
// memory-only cache; persist=false opens dir read-only, so prefetched
// clips are reused without adding new ones.
func NewAudioCache(voice, dir string, persist bool, log *logger.Logger) *AudioCache {
	log = log.Named("tts-cache")
	return &AudioCache{
		voice: voice,
		mem:   gocache.New(memTTL, memCleanup),
		disk:  openClipDir(dir, persist, log),
		log:   log,
	}
}

// Get looks a clip up. A disk hit is promoted into memory.
func (c *AudioCache) Get(text string) ([]byte, bool) {
	key := c.key(text)
	if v, found := c.mem.Get(key); found {
		c.hits.Add(1)
		return v.([]byte), true
	}
	if clip, found := c.disk.load(key); found {
		c.mem.Set(key, clip, gocache.DefaultExpiration)
		c.hits.Add(1)
		c.log.Debug("loaded %q from disk", truncate(text, 40))
		return clip, true
	}
	c.misses.Add(1)
	return nil, false
}

func (c *AudioCache) Put(text string, clip []byte) {
	key := c.key(text)
	c.mem.Set(key, clip, gocache.DefaultExpiration)
	c.disk.store(key, clip)
	c.log.Debug("stored %q (%d bytes)", truncate(text, 40), len(clip))
}

// Has reports presence without touching the hit counters.
func (c *AudioCache) Has(text string) bool {
	key := c.key(text)
	if _, found := c.mem.Get(key); found {
		return true
	}
	return c.disk.has(key)
}

// Len counts in-memory clips only.
func (c *AudioCache) Len() int { return c.mem.ItemCount() }

func (c *AudioCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Clear drops the memory tier and resets counters. Files stay.
func (c *AudioCache) Clear() {
	c.mem.Flush()
	c.hits.Store(0)
	c.misses.Store(0)
}

func (c *AudioCache) key(text string) string {
	sum := sha256.Sum256([]byte(c.voice + ":" + text))
	return hex.EncodeToString(sum[:])
}

// clipDir is the on-disk tier. A nil *clipDir is a valid empty tier.
type clipDir struct {
	path    string
	persist bool
	log     *logger.Logger
}

func openClipDir(path string, persist bool, log *logger.Logger) *clipDir {
	if path == "" {
		return nil
	}
	if persist {
		if err := os.MkdirAll(path, 0o755); err != nil {
			log.Error("cannot create %s, clips will not persist: %v", path, err)
			persist = false
		}
	}
	return &clipDir{path: path, persist: persist, log: log}
}

func (d *clipDir) file(key string) string { return filepath.Join(d.path, key+".wav") }

func (d *clipDir) load(key string) ([]byte, bool) {
	if d == nil {
		return nil, false
	}
	clip, err := os.ReadFile(d.file(key))
	return clip, err == nil && len(clip) > 0
}

func (d *clipDir) has(key string) bool {
	if d == nil {
		return false
	}
	_, err := os.Stat(d.file(key))
	return err == nil
}

// store writes through a temp file so a crash never leaves a torn clip.
func (d *clipDir) store(key string, clip []byte) {
	if d == nil || !d.persist {
		return
	}
	tmp, err := os.CreateTemp(d.path, key+".*.part")
	if err != nil {
		d.log.Error("persist %s: %v", key[:12], err)
		return
	}
	_, werr := tmp.Write(clip)
	cerr := tmp.Close()
	if werr != nil || cerr != nil {
		os.Remove(tmp.Name())
		d.log.Error("persist %s: write=%v close=%v", key[:12], werr, cerr)
		return
	}
	if err := os.Rename(tmp.Name(), d.file(key)); err != nil {
		os.Remove(tmp.Name())
		d.log.Error("persist %s: %v", key[:12], err)
	}
}
