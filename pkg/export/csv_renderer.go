package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// CSVRenderer renders documents into CSV bytes. Header fields become
// label/value rows ahead of the schedule table.
type CSVRenderer struct{}

// NewCSVRenderer builds a CSV renderer.
func NewCSVRenderer() *CSVRenderer {
	return &CSVRenderer{}
}

// Render produces CSV encoded bytes for the document.
func (r *CSVRenderer) Render(doc Document) ([]byte, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)

	for _, f := range doc.Fields {
		if err := writer.Write([]string{f.Label, f.Value}); err != nil {
			return nil, fmt.Errorf("write csv field: %w", err)
		}
	}
	if len(doc.Headers) > 0 {
		if err := writer.Write(doc.Headers); err != nil {
			return nil, fmt.Errorf("write csv headers: %w", err)
		}
		for _, row := range doc.Rows {
			if err := writer.Write(row); err != nil {
				return nil, fmt.Errorf("write csv row: %w", err)
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
