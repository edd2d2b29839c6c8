// Package render streams byte templates with ordered placeholder
// substitution. Pages are held in memory as raw bytes and written out
// in segments so a large document never needs a second full-size
// buffer.
package render

import (
	"bytes"
	"io"
	"net/http"
)

// Placeholder binds a literal marker such as "%%FILE_LIST_ROWS%%" to
// the text that replaces it. Values are inserted verbatim; callers
// escape them if they came from the client.
type Placeholder struct {
	Marker string
	Value  string
}

// Stream writes tmpl to w, substituting each table entry at its first
// occurrence. Entries are consumed in order and the scan resumes after
// the substituted marker, so a marker appearing twice is only replaced
// once and an entry whose marker is absent is skipped without error.
// After each segment the writer is flushed if it supports it, so
// clients see output before the document is complete.
func Stream(w io.Writer, tmpl []byte, table []Placeholder) error {
	rest := tmpl
	for _, ph := range table {
		idx := bytes.Index(rest, []byte(ph.Marker))
		if idx < 0 {
			continue
		}
		if err := emit(w, rest[:idx]); err != nil {
			return err
		}
		if err := emit(w, []byte(ph.Value)); err != nil {
			return err
		}
		rest = rest[idx+len(ph.Marker):]
	}
	return emit(w, rest)
}

func emit(w io.Writer, seg []byte) error {
	if len(seg) == 0 {
		return nil
	}
	if _, err := w.Write(seg); err != nil {
		return err
	}
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}
