// Package catalog provides the read-only dish catalog. Records are decoded
// and validated once; the image-key index is built at load time and the
// catalog never changes afterwards.
package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/hammamikhairi/monan/internal/domain"
	"github.com/hammamikhairi/monan/internal/logger"
)

//go:embed foodItems.json
var defaultDataset []byte

// Compile-time interface check.
var _ domain.Catalog = (*Catalog)(nil)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Catalog holds dish records in dataset order. Safe for concurrent reads.
type Catalog struct {
	records []domain.DishRecord
	byID    map[string]int
	byKey   map[string]int
	folded  []string // search keys, parallel to records
	log     *logger.Logger
}

// LoadDefault loads the embedded dataset.
func LoadDefault(log *logger.Logger) (*Catalog, error) {
	return Load(bytes.NewReader(defaultDataset), log)
}

// Load decodes a JSON array of dish records from r. A record missing any
// required field, or a duplicate id or image key, fails the whole load
// with ErrMalformedDataset.
func Load(r io.Reader, log *logger.Logger) (*Catalog, error) {
	var records []domain.DishRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("%w: decoding: %v", domain.ErrMalformedDataset, err)
	}

	validate := validator.New()
	c := &Catalog{
		records: records,
		byID:    make(map[string]int, len(records)),
		byKey:   make(map[string]int, len(records)),
		folded:  make([]string, len(records)),
		log:     log,
	}

	for i := range records {
		rec := &records[i]
		if err := validate.Struct(rec); err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", domain.ErrMalformedDataset, i, err)
		}
		if _, dup := c.byID[rec.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q", domain.ErrMalformedDataset, rec.ID)
		}
		if _, dup := c.byKey[rec.ImageKey]; dup {
			return nil, fmt.Errorf("%w: duplicate image key %q", domain.ErrMalformedDataset, rec.ImageKey)
		}
		c.byID[rec.ID] = i
		c.byKey[rec.ImageKey] = i
		c.folded[i] = Fold(rec.Name + " " + rec.ImageKey)
	}

	log.Info("catalog loaded: %d dishes", len(records))
	return c, nil
}

// Len returns the number of records.
func (c *Catalog) Len() int { return len(c.records) }

// List returns the records in dataset order. The slice is a copy; the
// records share their variation slices with the catalog and must not be
// modified.
func (c *Catalog) List() []domain.DishRecord {
	out := make([]domain.DishRecord, len(c.records))
	copy(out, c.records)
	return out
}

// At returns the record at position i in dataset order.
func (c *Catalog) At(i int) (*domain.DishRecord, bool) {
	if i < 0 || i >= len(c.records) {
		return nil, false
	}
	return &c.records[i], true
}

// Get returns a record by ID.
func (c *Catalog) Get(id string) (*domain.DishRecord, error) {
	i, ok := c.byID[id]
	if !ok {
		c.log.Debug("dish not found: %s", id)
		return nil, domain.ErrNotFound
	}
	return &c.records[i], nil
}

// FindByImageKey returns the unique record whose image key equals key.
// Matching is exact.
func (c *Catalog) FindByImageKey(key string) (*domain.DishRecord, bool) {
	i, ok := c.byKey[key]
	if !ok {
		return nil, false
	}
	return &c.records[i], true
}

// Search returns records whose name or image key contains query, ignoring
// case and Vietnamese diacritics ("pho" matches "Phở").
func (c *Catalog) Search(query string) []domain.DishSummary {
	q := Fold(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	q = strings.ReplaceAll(q, "_", " ")
	c.log.Debug("searching dishes for: %s", q)

	var out []domain.DishSummary
	for i := range c.records {
		if strings.Contains(strings.ReplaceAll(c.folded[i], "_", " "), q) {
			out = append(out, c.records[i].Summary())
		}
	}
	return out
}

var dStroke = strings.NewReplacer("đ", "d")

// Fold lowercases s and strips combining marks. The Vietnamese đ has no
// decomposition and is mapped to d explicitly.
func Fold(s string) string {
	// Chains carry state, so each call builds its own.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return dStroke.Replace(strings.ToLower(out))
}
