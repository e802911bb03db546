package wizard

import "errors"

var (
	ErrUnknownFlow        = errors.New("unknown flow")
	ErrInvalidMethod      = errors.New("method not available in this flow")
	ErrPayloadMismatch    = errors.New("payload does not match input method")
	ErrUnknownLanguage    = errors.New("unknown target language")
	ErrUnknownTone        = errors.New("unknown tone")
	ErrUnsupportedFeature = errors.New("feature not available in this flow")
)
