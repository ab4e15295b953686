package app

import (
	"io"
	"sync"

	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

// recordWriter writes one JSON record per line. Records from concurrent
// listeners and async completions are serialized.
type recordWriter struct {
	mu     sync.Mutex
	w      io.Writer
	pretty bool
}

func newRecordWriter(w io.Writer, indent bool) *recordWriter {
	return &recordWriter{w: w, pretty: indent}
}

// field is one key of an output record, in output order.
type field struct {
	path  string
	value any
}

// buildRecord assembles a JSON object from fields with sjson.
func buildRecord(fields ...field) ([]byte, error) {
	rec := []byte(`{}`)
	for _, f := range fields {
		var err error
		rec, err = sjson.SetBytes(rec, f.path, f.value)
		if err != nil {
			return nil, err
		}
	}
	return rec, nil
}

// write builds and writes a record.
func (rw *recordWriter) write(fields ...field) error {
	rec, err := buildRecord(fields...)
	if err != nil {
		return err
	}
	return rw.writeRaw(rec)
}

func (rw *recordWriter) writeRaw(rec []byte) error {
	if rw.pretty {
		rec = pretty.Pretty(rec)
	} else {
		rec = append(pretty.Ugly(rec), '\n')
	}

	rw.mu.Lock()
	defer rw.mu.Unlock()
	_, err := rw.w.Write(rec)
	return err
}
