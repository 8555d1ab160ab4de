package repository

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/goccy/go-json"

	"github.com/okian/smsrelay/pkg/logger"
)

const (
	defaultMaxLineSize = 1 << 20
	readBufferSize     = 4096
)

// fileRecord is the on-disk line format. Field names follow the SMS content
// provider projection (address, body, date in epoch milliseconds).
type fileRecord struct {
	Address string `json:"address"`
	Body    string `json:"body"`
	Date    int64  `json:"date"`
}

// FileInbox is an append-only JSONL inbox. Each line holds one record.
type FileInbox struct {
	path    string
	maxLine int
	mu      sync.Mutex // serializes appends
	logger  logger.Logger
}

// NewFileInbox creates an inbox backed by the file at path. The file does
// not need to exist yet.
func NewFileInbox(path string, opts ...Option) *FileInbox {
	f := &FileInbox{
		path:    filepath.Clean(path),
		maxLine: defaultMaxLineSize,
		logger:  logger.Named("inbox"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Path returns the backing file path.
func (f *FileInbox) Path() string { return f.path }

// Latest scans the file and returns the record with the greatest date.
// Malformed lines are skipped.
func (f *FileInbox) Latest(ctx context.Context) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	file, err := os.Open(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Record{}, ErrEmpty
	}
	if err != nil {
		return Record{}, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}
	defer func() { _ = file.Close() }()

	var (
		latest fileRecord
		found  bool
	)
	err = f.eachLine(ctx, file, func(line []byte) {
		var rec fileRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			f.logger.Debug(ctx, "skipping malformed inbox line", logger.Error(err))
			return
		}
		if !found || rec.Date > latest.Date {
			latest, found = rec, true
		}
	})
	if err != nil {
		return Record{}, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}
	if !found {
		return Record{}, ErrEmpty
	}
	return Record{
		Sender:     latest.Address,
		Body:       latest.Body,
		ReceivedAt: time.UnixMilli(latest.Date),
	}, nil
}

// eachLine calls fn with every non-empty line of r, without the trailing
// newline. Lines longer than maxLine are logged and skipped; reading resumes
// at the next line.
func (f *FileInbox) eachLine(ctx context.Context, r io.Reader, fn func([]byte)) error {
	reader := bufio.NewReaderSize(r, readBufferSize)
	var (
		line     []byte
		overlong bool
	)
	for {
		chunk, err := reader.ReadSlice('\n')
		if !overlong {
			if len(line)+len(bytes.TrimRight(chunk, "\r\n")) > f.maxLine {
				overlong, line = true, line[:0]
			} else {
				line = append(line, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}

		if overlong {
			f.logger.Warn(ctx, "skipping oversized inbox line", logger.Int("max_line", f.maxLine))
		} else if trimmed := bytes.TrimRight(line, "\r\n"); len(trimmed) > 0 {
			fn(trimmed)
		}
		line, overlong = line[:0], false

		if err != nil {
			return nil
		}
	}
}

// Append writes r as a new line.
func (f *FileInbox) Append(_ context.Context, r Record) error {
	line, err := json.Marshal(fileRecord{
		Address: r.Sender,
		Body:    r.Body,
		Date:    r.ReceivedAt.UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("encode inbox record: %w", err)
	}
	line = append(line, '\n')

	f.mu.Lock()
	defer f.mu.Unlock()

	file, err := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open inbox: %w", err)
	}
	if _, err := file.Write(line); err != nil {
		_ = file.Close()
		return fmt.Errorf("write inbox: %w", err)
	}
	return file.Close()
}

// Subscribe calls fn whenever the inbox file is written or created. The
// parent directory is watched so the file may appear after subscription.
func (f *FileInbox) Subscribe(fn func()) (func(), error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(f.path)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(f.path), err)
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != f.path {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
					fn()
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				f.logger.Warn(context.Background(), "inbox watcher error", logger.Error(err))
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			_ = w.Close()
		})
	}, nil
}
