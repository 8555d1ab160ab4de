package detector

import "errors"

// Sentinel kinds for detector errors.
var (
	ErrMalformedPayload = errors.New("malformed push payload")
	ErrStopped          = errors.New("detector stopped")
	ErrSubscribe        = errors.New("inbox subscription failed")
)
