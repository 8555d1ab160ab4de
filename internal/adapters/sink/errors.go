package sink

import "errors"

// Sentinel kinds for sink errors.
var (
	ErrDeliveryFailed = errors.New("delivery failed")
	ErrUnknownSink    = errors.New("unknown sink type")
)
