// Package conversation provides intent parsing and user notification implementations.
package conversation

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/hammamikhairi/monan/internal/domain"
	"github.com/hammamikhairi/monan/internal/logger"
)

// Compile-time interface check.
var _ domain.IntentParser = (*KeywordParser)(nil)

// KeywordParser matches user input to intents using keywords and simple patterns.
type KeywordParser struct {
	log      *logger.Logger
	patterns []patternRule
}

type patternRule struct {
	regex  *regexp.Regexp
	intent domain.IntentType
	// payload builds the intent payload from the submatches. Nil means no
	// payload.
	payload func(m []string) string
}

func group(i int) func([]string) string {
	return func(m []string) string { return strings.TrimSpace(m[i]) }
}

// NewKeywordParser creates a keyword-based intent parser. Vietnamese
// keywords are accepted next to the English ones.
func NewKeywordParser(log *logger.Logger) *KeywordParser {
	p := &KeywordParser{log: log}
	p.patterns = []patternRule{
		{regexp.MustCompile(`(?i)^(camera|cam|c|snap|photo|chụp( ảnh)?)$`), domain.IntentCaptureCamera, nil},
		{regexp.MustCompile(`(?i)^(library|lib|gallery|file|thư viện)(\s+(.+))?$`), domain.IntentCaptureLibrary, group(3)},
		{regexp.MustCompile(`(?i)^(list|catalog|menu|dishes|l|mục lục)$`), domain.IntentShowCatalog, nil},
		{regexp.MustCompile(`(?i)^(hide|hide list|unlist)$`), domain.IntentHideCatalog, nil},
		{regexp.MustCompile(`(?i)^(down|d|j)(\s+(\d+))?$`), domain.IntentScroll, scrollBy(1)},
		{regexp.MustCompile(`(?i)^(up|u|k)(\s+(\d+))?$`), domain.IntentScroll, scrollBy(-1)},
		{regexp.MustCompile(`(?i)^scroll\s+([+-]?\d+)$`), domain.IntentScroll, group(1)},
		{regexp.MustCompile(`(?i)^(open|show|view|xem)\s+(.+)$`), domain.IntentOpenDish, group(2)},
		{regexp.MustCompile(`^(\d{1,3})$`), domain.IntentOpenDish, group(1)},
		{regexp.MustCompile(`(?i)^(close|back|dismiss|x|ok|đóng)$`), domain.IntentClose, nil},
		{regexp.MustCompile(`(?i)^(status|st|info|stats)$`), domain.IntentStatus, nil},
		{regexp.MustCompile(`(?i)^(search|find|tìm)\s+(.+)$`), domain.IntentSearch, group(2)},
		{regexp.MustCompile(`^/(.+)$`), domain.IntentSearch, group(1)},
		{regexp.MustCompile(`(?i)^(help|h|\?)$`), domain.IntentHelp, nil},
		{regexp.MustCompile(`(?i)^(quit|exit|q|thoát)$`), domain.IntentQuit, nil},
	}
	return p
}

// scrollBy turns "down 3" / "up" into a signed item delta.
func scrollBy(sign int) func([]string) string {
	return func(m []string) string {
		n := 1
		if m[3] != "" {
			if v, err := strconv.Atoi(m[3]); err == nil {
				n = v
			}
		}
		return strconv.Itoa(sign * n)
	}
}

// Parse converts user input into an intent.
func (p *KeywordParser) Parse(ctx context.Context, input string) (*domain.Intent, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return &domain.Intent{Type: domain.IntentUnknown}, nil
	}

	p.log.Debug("parsing input: %q", trimmed)

	for _, rule := range p.patterns {
		m := rule.regex.FindStringSubmatch(trimmed)
		if m == nil {
			continue
		}
		p.log.Debug("matched intent: %s", rule.intent)
		intent := &domain.Intent{Type: rule.intent}
		if rule.payload != nil {
			intent.Payload = rule.payload(m)
		}
		return intent, nil
	}

	p.log.Debug("no match, returning unknown intent")
	return &domain.Intent{Type: domain.IntentUnknown, Payload: trimmed}, nil
}

// Help is the command summary printed by the help intent.
const Help = `Commands:
  camera              take a photo and recognise the dish
  library [path]      pick an image file (asks for a path if none given)
  list | hide         show or hide the dish catalog (Mục lục)
  up/down [n]         scroll the catalog, also arrow keys, PgUp/PgDn, mouse wheel
  open <n|key|name>   open a dish from the catalog
  search <text>       find dishes by name, accents optional (also /text)
  close               close the open dish or the last result
  status              model status, phase and last predictions
  help | quit`
