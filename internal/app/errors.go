package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrStopped = errors.New("service stopped")
)
