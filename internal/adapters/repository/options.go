package repository

import "github.com/okian/smsrelay/pkg/logger"

// Option applies a configuration option to the FileInbox.
type Option func(*FileInbox)

// WithLogger sets a custom logger for the inbox.
func WithLogger(l logger.Logger) Option {
	return func(f *FileInbox) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithMaxLineSize sets the longest inbox line that will be read.
func WithMaxLineSize(n int) Option {
	return func(f *FileInbox) {
		if n > 0 {
			f.maxLine = n
		}
	}
}
