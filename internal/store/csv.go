package store

import (
	"context"
	"encoding/csv"
	"io"

	"github.com/KMU-MIS-BALJAGUK/linkareer-crawler/pkg/models"
)

// CategorySeparator joins categories inside a single CSV cell
const CategorySeparator = "|"

var csvHeader = []string{
	"detail_url",
	"activity_title",
	"activity_url",
	"activity_category",
	"start_date",
	"end_date",
	"activity_img",
}

// CSVSink writes a header row followed by one row per record. Absent fields
// are empty cells.
type CSVSink struct {
	w      io.WriteCloser
	writer *csv.Writer
	header bool
}

// NewCSVSink creates a CSVSink writing to w
func NewCSVSink(w io.WriteCloser) *CSVSink {
	return &CSVSink{w: w, writer: csv.NewWriter(w)}
}

func (s *CSVSink) Write(ctx context.Context, rec *models.ActivityRecord) error {
	if err := s.writeHeader(); err != nil {
		return err
	}

	row := []string{
		rec.DetailURL,
		models.Deref(rec.Title),
		models.Deref(rec.HomepageURL),
		rec.JoinCategories(CategorySeparator),
		models.Deref(rec.StartDate),
		models.Deref(rec.EndDate),
		models.Deref(rec.ImageURL),
	}
	if err := s.writer.Write(row); err != nil {
		return err
	}
	s.writer.Flush()
	return s.writer.Error()
}

func (s *CSVSink) writeHeader() error {
	if s.header {
		return nil
	}
	s.header = true
	return s.writer.Write(csvHeader)
}

// Close writes the header if nothing was written, then closes the writer
func (s *CSVSink) Close() error {
	if err := s.writeHeader(); err != nil {
		s.w.Close()
		return err
	}
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		s.w.Close()
		return err
	}
	return s.w.Close()
}
