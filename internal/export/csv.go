// Package export writes decoded rows and vessel tracks to files: CSV
// tables, KML tracks and PNG track plots.
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"ais_parser/internal/record"
)

// CSVWriter streams rows as CSV with a header line.
type CSVWriter struct {
	w      *csv.Writer
	header bool
	rows   int
}

// NewCSVWriter creates a CSVWriter on w.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{w: csv.NewWriter(w)}
}

// Write appends rows, writing the header first if needed.
func (c *CSVWriter) Write(rows ...record.Row) error {
	if !c.header {
		if err := c.w.Write(record.Columns); err != nil {
			return fmt.Errorf("write csv header: %w", err)
		}
		c.header = true
	}
	for _, r := range rows {
		if err := c.w.Write(r.Values()); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
		c.rows++
	}
	return nil
}

// Flush writes any buffered data.
func (c *CSVWriter) Flush() error {
	c.w.Flush()
	return c.w.Error()
}

// Rows returns the number of data rows written.
func (c *CSVWriter) Rows() int {
	return c.rows
}
