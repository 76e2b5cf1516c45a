package display

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/hammamikhairi/monan/internal/domain"
)

// Section titles of the detail view.
const (
	TitleOrigin     = "Nguồn gốc / Lịch sử"
	TitleRecipe     = "Nguyên liệu chính"
	TitleVariations = "Biến tấu"
	emptyImageSlot  = "[ không có ảnh ]"
)

var (
	detailBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colRule).
			Padding(0, 1)

	detailTitle = fg(colHerb).Bold(true)

	detailSection = fg(colSteam).Bold(true)
)

// Detail is what the modal currently shows and where it came from.
type Detail struct {
	Record     *domain.DishRecord
	FromResult bool // bound to the controller's resolved record
}

// RenderDetail draws the detail view of rec. A nil record renders
// nothing. Text fields are shown as-is; variations keep their order, one
// per line. An image key the resolver does not know leaves an empty slot.
func RenderDetail(rec *domain.DishRecord, images domain.ImageResolver, width int) string {
	if rec == nil {
		return ""
	}
	if width < 30 {
		width = 30
	}
	inner := width - 4

	var b strings.Builder
	b.WriteString(detailTitle.Render(rec.Name))
	b.WriteByte('\n')
	b.WriteString(hintStyle.Render(imageSlot(rec.ImageKey, images)))
	b.WriteString("\n\n")

	section := func(title, body string) {
		b.WriteString(detailSection.Render(title))
		b.WriteByte('\n')
		b.WriteString(infoStyle.Width(inner).Render(body))
		b.WriteString("\n\n")
	}
	section(TitleOrigin, rec.Origin)
	section(TitleRecipe, rec.Recipe)
	section(TitleVariations, strings.Join(rec.Variations, "\n"))

	b.WriteString(hintStyle.Render("esc / close"))
	return detailBox.Width(width - 2).Render(b.String())
}

func imageSlot(key string, images domain.ImageResolver) string {
	if images != nil {
		if res, ok := images.Resolve(key); ok {
			return "▣ " + res.Path
		}
	}
	return emptyImageSlot
}
