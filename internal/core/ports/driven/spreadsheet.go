package driven

import "io"

// Sheet is a rendered table: a header row plus data rows.
type Sheet struct {
	Name    string
	Columns []string
	Rows    [][]any
}

// SpreadsheetWriter renders sheets into a spreadsheet file.
type SpreadsheetWriter interface {
	Write(w io.Writer, sheets ...Sheet) error
}

// SpreadsheetReader reads the first sheet of a spreadsheet file.
// The first returned row is the header.
type SpreadsheetReader interface {
	ReadRows(r io.Reader) ([][]string, error)
}
