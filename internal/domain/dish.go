// Package domain defines the core types and interfaces for the dish
// recognizer. All other packages depend on domain; domain depends on nothing.
package domain

// DishRecord is one entry of the content catalog. Records are loaded once
// at startup and never mutated afterwards.
type DishRecord struct {
	ID         string   `json:"id" validate:"required"`
	Name       string   `json:"name" validate:"required"`
	ImageKey   string   `json:"image" validate:"required"` // asset key and model label
	Origin     string   `json:"origin" validate:"required"`
	Recipe     string   `json:"recipe" validate:"required"`
	Variations []string `json:"variations" validate:"required,dive,required"`
}

// DishSummary is a lightweight view of a record for listing.
type DishSummary struct {
	ID       string
	Name     string
	ImageKey string
}

// Summary returns the listing view of the record.
func (d *DishRecord) Summary() DishSummary {
	return DishSummary{ID: d.ID, Name: d.Name, ImageKey: d.ImageKey}
}

// ImageResource is a bound local image asset for a record.
type ImageResource struct {
	Key  string
	Path string
}
