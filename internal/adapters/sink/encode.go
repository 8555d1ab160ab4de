package sink

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"
)

var gzipPool = sync.Pool{
	New: func() any {
		w, _ := gzip.NewWriterLevel(nil, gzip.BestSpeed)
		return w
	},
}

// encodeJSON marshals v.
func encodeJSON(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return b, nil
}

// encodeGzipJSON marshals v straight into a gzip stream. The returned slice
// is owned by the caller.
func encodeGzipJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzipPool.Get().(*gzip.Writer)
	gz.Reset(&buf)
	defer gzipPool.Put(gz)

	if err := json.NewEncoder(gz).Encode(v); err != nil {
		_ = gz.Close()
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("compress payload: %w", err)
	}
	return buf.Bytes(), nil
}
