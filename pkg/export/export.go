// Package export renders student report documents into the supported
// output formats.
package export

// Field is a labelled value in the report header section.
type Field struct {
	Label string
	Value string
}

// Document describes one student report: a header of labelled fields plus a
// tabular weekly schedule.
type Document struct {
	Title   string
	Fields  []Field
	Headers []string
	Rows    [][]string
}

// Renderer converts a document into raw file bytes.
type Renderer interface {
	Render(doc Document) ([]byte, error)
}
