package display

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/mattn/go-runewidth"

	"github.com/hammamikhairi/monan/internal/scroll"
)

// List geometry. The scroll model works in abstract units where one entry
// is ItemHeight tall; the terminal shows each entry on rowsPerItem rows.
const rowsPerItem = 3

var (
	itemHeight = scroll.ItemHeight(scroll.DefaultImageSize, scroll.DefaultSpacing)
	rowHeight  = itemHeight / rowsPerItem
)

// Palette the list fades between.
const (
	listFg   = "#d4d4d8"
	listName = "#bbf7d0"
	listBg   = "#18181b"
)

// ListEntry is one catalog row.
type ListEntry struct {
	Index    int
	Name     string
	Key      string
	HasImage bool
}

// viewportUnits is the scroll-model height of a panel of rows rows.
func viewportUnits(rows int) float64 {
	return float64(rows) * rowHeight
}

// RenderList draws the rows of the catalog panel visible at offset. Each
// entry's width follows its scale and its colour fades toward the
// background with its opacity. Always returns exactly rows lines.
func RenderList(entries []ListEntry, offset float64, rows, width int) string {
	if rows <= 0 {
		return ""
	}
	if width < 20 {
		width = 20
	}

	first, last := scroll.VisibleRange(offset, viewportUnits(rows), itemHeight, len(entries))

	var lines []string
	for i := first; i < last; i++ {
		lines = append(lines, renderEntry(entries[i], scroll.ItemTransform(offset, i, itemHeight), width)...)
	}

	// Drop the rows of the first entry already scrolled past.
	if skip := int(math.Max(0, offset)/rowHeight) - first*rowsPerItem; skip > 0 {
		lines = lines[min(skip, len(lines)):]
	}
	if len(lines) > rows {
		lines = lines[:rows]
	}
	for len(lines) < rows {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func renderEntry(e ListEntry, tr scroll.Transform, width int) []string {
	full := width - 4
	boxW := int(math.Round(float64(full) * tr.Scale))
	if boxW < 6 || tr.Opacity <= 0 {
		return []string{"", "", ""}
	}
	pad := strings.Repeat(" ", 2+(full-boxW)/2)

	nameStyle := lipgloss.NewStyle().Foreground(fade(listName, tr.Opacity)).Bold(true)
	metaStyle := lipgloss.NewStyle().Foreground(fade(listFg, tr.Opacity))

	slot := "□"
	if e.HasImage {
		slot = "▣"
	}
	name := runewidth.Truncate(fmt.Sprintf("%2d. %s", e.Index+1, e.Name), boxW, "…")
	meta := runewidth.Truncate(fmt.Sprintf("    %s %s", slot, e.Key), boxW, "…")

	return []string{
		pad + nameStyle.Render(name),
		pad + metaStyle.Render(meta),
		"",
	}
}

// fade blends hex toward the panel background; opacity 1 is the colour
// itself, 0 is the background.
func fade(hex string, opacity float64) lipgloss.Color {
	return lipgloss.Color(blend(hex, listBg, opacity))
}

func blend(fg, bg string, opacity float64) string {
	a, err := colorful.Hex(fg)
	if err != nil {
		return fg
	}
	b, err := colorful.Hex(bg)
	if err != nil {
		return fg
	}
	opacity = math.Max(0, math.Min(1, opacity))
	return a.BlendRgb(b, 1-opacity).Clamped().Hex()
}
