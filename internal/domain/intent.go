package domain

// IntentType classifies what the user wants to do.
type IntentType int

const (
	IntentUnknown IntentType = iota
	IntentCaptureCamera
	IntentCaptureLibrary // payload: optional image path
	IntentShowCatalog
	IntentHideCatalog
	IntentScroll // payload: signed offset delta in list units
	IntentOpenDish
	IntentClose
	IntentStatus
	IntentSearch
	IntentHelp
	IntentQuit
)

// String returns a human-readable intent type.
func (i IntentType) String() string {
	switch i {
	case IntentCaptureCamera:
		return "capture_camera"
	case IntentCaptureLibrary:
		return "capture_library"
	case IntentShowCatalog:
		return "show_catalog"
	case IntentHideCatalog:
		return "hide_catalog"
	case IntentScroll:
		return "scroll"
	case IntentOpenDish:
		return "open_dish"
	case IntentClose:
		return "close"
	case IntentStatus:
		return "status"
	case IntentSearch:
		return "search"
	case IntentHelp:
		return "help"
	case IntentQuit:
		return "quit"
	default:
		return "unknown"
	}
}

// Intent represents a parsed user action.
type Intent struct {
	Type    IntentType
	Payload string
}
