package display

import (
	_ "embed"
	"os"
	"strings"

	"github.com/charmbracelet/x/term"
	"github.com/mattn/go-runewidth"
)

//go:embed banner.txt
var bannerArt string

const Tagline = "chụp một món ăn, xem nó là món gì"

// RenderBanner centres the art and Tagline as one block in width columns.
// width <= 0 asks the terminal, falling back to 80.
func RenderBanner(width int) string {
	if width <= 0 {
		width = stdoutColumns()
	}
	block := append(strings.Split(strings.TrimRight(bannerArt, "\n"), "\n"), "", Tagline)

	widest := 0
	for _, row := range block {
		widest = max(widest, runewidth.StringWidth(row))
	}
	indent := strings.Repeat(" ", max(0, width-widest)/2)

	var out strings.Builder
	for _, row := range block {
		if row != "" {
			out.WriteString(indent + BannerStyle.Render(row))
		}
		out.WriteByte('\n')
	}
	return out.String()
}

func stdoutColumns() int {
	w, _, err := term.GetSize(os.Stdout.Fd())
	if err != nil || w <= 0 {
		return 80
	}
	return w
}
