package catalog

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/monan/internal/domain"
	"github.com/hammamikhairi/monan/internal/logger"
)

func setupCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := LoadDefault(logger.New(logger.LevelOff, nil))
	require.NoError(t, err)
	return c
}

var defaultKeys = []string{
	"banh_canh", "banh_chung", "banh_cuon", "banh_khot", "banh_mi",
	"banh_trang_nuong", "banh_xeo", "bun", "canh_chua", "chao_long",
	"com_tam", "goi_cuon", "hu_tieu", "mi_quang", "pho",
}

func TestLoadDefault(t *testing.T) {
	c := setupCatalog(t)

	list := c.List()
	require.Len(t, list, len(defaultKeys))
	for i, key := range defaultKeys {
		assert.Equal(t, key, list[i].ImageKey, "dataset order at %d", i)
		assert.NotEmpty(t, list[i].Variations)
	}
}

func TestFindByImageKey(t *testing.T) {
	c := setupCatalog(t)

	for _, key := range defaultKeys {
		t.Run(key, func(t *testing.T) {
			r, ok := c.FindByImageKey(key)
			require.True(t, ok)
			assert.Equal(t, key, r.ImageKey)
		})
	}

	for _, key := range []string{"", "PHO", "pho ", "sushi"} {
		_, ok := c.FindByImageKey(key)
		assert.False(t, ok, "key %q", key)
	}
}

func TestGet(t *testing.T) {
	c := setupCatalog(t)

	tests := []struct {
		id      string
		wantKey string
		wantErr error
	}{
		{"15", "pho", nil},
		{"5", "banh_mi", nil},
		{"nonexistent", "", domain.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			r, err := c.Get(tt.id)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKey, r.ImageKey)
		})
	}
}

func TestLoadMalformed(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)

	tests := []struct {
		name string
		data string
	}{
		{"not json", `{`},
		{"not an array", `{"id":"1"}`},
		{"missing name", `[{"id":"1","image":"pho","origin":"o","recipe":"r","variations":["v"]}]`},
		{"missing variations", `[{"id":"1","name":"Phở","image":"pho","origin":"o","recipe":"r"}]`},
		{"empty variation", `[{"id":"1","name":"Phở","image":"pho","origin":"o","recipe":"r","variations":[""]}]`},
		{"duplicate id", `[
			{"id":"1","name":"Phở","image":"pho","origin":"o","recipe":"r","variations":["v"]},
			{"id":"1","name":"Bún","image":"bun","origin":"o","recipe":"r","variations":["v"]}]`},
		{"duplicate image key", `[
			{"id":"1","name":"Phở","image":"pho","origin":"o","recipe":"r","variations":["v"]},
			{"id":"2","name":"Phở gà","image":"pho","origin":"o","recipe":"r","variations":["v"]}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.data), log)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrMalformedDataset), "got %v", err)
		})
	}
}

func TestLoadSingleRecord(t *testing.T) {
	data := `[{"id":"p1","name":"Phở","image":"pho","origin":"o","recipe":"r","variations":["a","b"]}]`
	c, err := Load(strings.NewReader(data), logger.New(logger.LevelOff, nil))
	require.NoError(t, err)

	r, ok := c.FindByImageKey("pho")
	require.True(t, ok)
	assert.Equal(t, "p1", r.ID)
	assert.Equal(t, []string{"a", "b"}, r.Variations)

	_, ok = c.FindByImageKey("banh_mi")
	assert.False(t, ok)
}

func TestSearch(t *testing.T) {
	c := setupCatalog(t)

	tests := []struct {
		query    string
		wantKeys []string
	}{
		{"phở", []string{"pho"}},
		{"PHO", []string{"pho"}},
		{"banh xeo", []string{"banh_xeo"}},
		{"bánh tráng", []string{"banh_trang_nuong"}},
		{"banh_mi", []string{"banh_mi"}},
		{"cháo", []string{"chao_long"}},
		{"", nil},
		{"pizza", nil},
		// Origin prose is not indexed.
		{"Lang Liêu", nil},
		{"phổ biến", nil},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := c.Search(tt.query)
			var keys []string
			for _, s := range got {
				keys = append(keys, s.ImageKey)
			}
			assert.Equal(t, tt.wantKeys, keys)
		})
	}
}

func TestFold(t *testing.T) {
	assert.Equal(t, "pho", Fold("Phở"))
	assert.Equal(t, "dau do", Fold("Đậu đỏ"))
	assert.Equal(t, "com tam", Fold("Cơm tấm"))
}

func TestAt(t *testing.T) {
	c := setupCatalog(t)
	r, ok := c.At(0)
	require.True(t, ok)
	assert.Equal(t, "banh_canh", r.ImageKey)

	_, ok = c.At(c.Len())
	assert.False(t, ok)
	_, ok = c.At(-1)
	assert.False(t, ok)
}
