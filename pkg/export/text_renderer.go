package export

import (
	"bytes"
	"fmt"
	"strings"
)

// TextRenderer renders documents as plain text.
type TextRenderer struct{}

// NewTextRenderer builds a text renderer.
func NewTextRenderer() *TextRenderer {
	return &TextRenderer{}
}

// Render produces a human-readable plain-text report.
func (r *TextRenderer) Render(doc Document) ([]byte, error) {
	buf := &bytes.Buffer{}
	fmt.Fprintln(buf, strings.ToUpper(doc.Title))
	fmt.Fprintln(buf, strings.Repeat("=", len(doc.Title)))
	for _, f := range doc.Fields {
		fmt.Fprintf(buf, "%s: %s\n", f.Label, f.Value)
	}
	if len(doc.Headers) > 0 {
		fmt.Fprintln(buf)
		fmt.Fprintln(buf, strings.Join(doc.Headers, " | "))
		fmt.Fprintln(buf, strings.Repeat("-", len(strings.Join(doc.Headers, " | "))))
		for _, row := range doc.Rows {
			fmt.Fprintln(buf, strings.Join(row, " | "))
		}
	}
	return buf.Bytes(), nil
}
