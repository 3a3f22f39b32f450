package store

import (
	"bytes"
	"context"
	"encoding/json"
	"io"

	"github.com/KMU-MIS-BALJAGUK/linkareer-crawler/pkg/models"
)

// JSONSink streams records as one indented JSON array. Non-ASCII text is
// written verbatim and HTML characters are not escaped.
type JSONSink struct {
	w     io.WriteCloser
	count int
	buf   bytes.Buffer
}

// NewJSONSink creates a JSONSink writing to w
func NewJSONSink(w io.WriteCloser) *JSONSink {
	return &JSONSink{w: w}
}

// Write appends rec to the array
func (s *JSONSink) Write(ctx context.Context, rec *models.ActivityRecord) error {
	s.buf.Reset()
	if s.count == 0 {
		s.buf.WriteString("[\n  ")
	} else {
		s.buf.WriteString(",\n  ")
	}

	enc := json.NewEncoder(&s.buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("  ", "  ")
	if err := enc.Encode(rec); err != nil {
		return err
	}
	// Encode terminates with a newline; the separator owns line breaks
	s.buf.Truncate(s.buf.Len() - 1)

	if _, err := s.w.Write(s.buf.Bytes()); err != nil {
		return err
	}
	s.count++
	return nil
}

// Close terminates the array and closes the writer
func (s *JSONSink) Close() error {
	tail := "\n]\n"
	if s.count == 0 {
		tail = "[]\n"
	}
	if _, err := io.WriteString(s.w, tail); err != nil {
		s.w.Close()
		return err
	}
	return s.w.Close()
}

// JSONLinesSink writes one compact JSON record per line
type JSONLinesSink struct {
	w   io.WriteCloser
	enc *json.Encoder
}

// NewJSONLinesSink creates a JSONLinesSink writing to w
func NewJSONLinesSink(w io.WriteCloser) *JSONLinesSink {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &JSONLinesSink{w: w, enc: enc}
}

func (s *JSONLinesSink) Write(ctx context.Context, rec *models.ActivityRecord) error {
	return s.enc.Encode(rec)
}

func (s *JSONLinesSink) Close() error {
	return s.w.Close()
}
