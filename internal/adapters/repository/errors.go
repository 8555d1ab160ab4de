package repository

import "errors"

// Sentinel kinds for inbox errors.
var (
	ErrEmpty       = errors.New("inbox is empty")
	ErrQueryFailed = errors.New("inbox query failed")
)
