package speech

import (
	"fmt"
	"math/rand"

	"github.com/hammamikhairi/monan/internal/domain"
)

// Every spoken string lives here. Keep lines short; the TTS engine
// handles inflection.

func LineWelcome() string {
	return "Xin chào. Hãy chụp một món ăn."
}

func LineBye() string {
	return "Tạm biệt."
}

// LineResolved announces the recognised dish.
func LineResolved(name string) string {
	return fmt.Sprintf("Đây là món %s.", name)
}

func LineNoMatch() string {
	return "Tôi không nhận ra món này."
}

func LineFailed() string {
	return "Không nhận dạng được ảnh. Thử lại nhé."
}

func LineCaptureBusy() string {
	return "Đang nhận dạng, chờ một chút."
}

func LinePermissionDenied() string {
	return "Không có quyền dùng nguồn ảnh này."
}

// LineDishIntro reads the name and origin of a dish opened from the
// catalog.
func LineDishIntro(rec *domain.DishRecord) string {
	if rec == nil {
		return ""
	}
	return rec.Name + ". " + rec.Origin
}

var thinkingFillers = []string{
	"Để tôi xem.",
	"Chờ một chút.",
	"Món gì đây nhỉ?",
	"Để tôi nhìn kỹ.",
}

// LineThinking returns a random filler spoken while classifying.
func LineThinking() string {
	return thinkingFillers[rand.Intn(len(thinkingFillers))]
}

// FixedLines returns every line that does not depend on a dish so they
// can be prefetched at startup.
func FixedLines() []string {
	out := []string{
		LineWelcome(), LineBye(), LineNoMatch(), LineFailed(),
		LineCaptureBusy(), LinePermissionDenied(),
	}
	return append(out, thinkingFillers...)
}
