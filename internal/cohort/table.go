package cohort

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// Options controls how tabular input is read and how numeric cells are parsed.
type Options struct {
	// MaxRows limits rows read; 0 means unlimited.
	MaxRows int
	// Delimiter for CSV. If 0, picks '\t' for .tsv files and ',' otherwise.
	Delimiter rune
	// Numeric parsing locale. If DecimalSeparator is 0, auto-detect per value.
	DecimalSeparator   rune
	ThousandsSeparator rune // optional; if 0, auto-detect common separators (',' '.' space)
	// XLSX sheet selection. SheetIndex is 1-based and used when SheetName is empty.
	SheetName  string
	SheetIndex int
}

// DefaultOptions returns reasonable defaults for reading cohort tables.
func DefaultOptions() Options {
	return Options{SheetIndex: 1}
}

// Table is an in-memory table of string cells with ordered column names.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]string

	opt Options
}

// NewTable builds a table from a header and rows. Short rows are padded.
func NewTable(name string, columns []string, rows [][]string) *Table {
	t := &Table{Name: name, Columns: append([]string(nil), columns...), opt: DefaultOptions()}
	for _, r := range rows {
		t.Rows = append(t.Rows, normalizeRow(r, len(columns)))
	}
	return t
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// Index returns the position of a column, or -1. Matching ignores case and
// surrounding whitespace when there is no exact match.
func (t *Table) Index(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	want := strings.ToLower(strings.TrimSpace(name))
	for i, c := range t.Columns {
		if strings.ToLower(strings.TrimSpace(c)) == want {
			return i
		}
	}
	return -1
}

// Has reports whether the column exists.
func (t *Table) Has(name string) bool { return t.Index(name) >= 0 }

// Col returns the position of a column or an ErrColumnNotFound error.
func (t *Table) Col(name string) (int, error) {
	idx := t.Index(name)
	if idx < 0 {
		return -1, &ColumnError{Table: t.Name, Column: name}
	}
	return idx, nil
}

// String returns the trimmed cell at (row, col).
func (t *Table) String(row, col int) string {
	if row < 0 || row >= len(t.Rows) || col < 0 || col >= len(t.Rows[row]) {
		return ""
	}
	return strings.TrimSpace(t.Rows[row][col])
}

// Float parses the cell at (row, col). Empty or non-numeric cells yield NaN.
func (t *Table) Float(row, col int) float64 {
	v := t.String(row, col)
	if v == "" {
		return math.NaN()
	}
	x, ok := parseNumeric(v, t.opt)
	if !ok {
		return math.NaN()
	}
	return x
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	out := &Table{Name: t.Name, Columns: append([]string(nil), t.Columns...), opt: t.opt}
	out.Rows = make([][]string, len(t.Rows))
	for i, r := range t.Rows {
		out.Rows[i] = append([]string(nil), r...)
	}
	return out
}

// DropColumn returns a copy without the column named exactly name. Unlike
// Index it does not fold case, so "x_FM" and "x_fm" are distinct columns.
// Missing columns are a no-op.
func (t *Table) DropColumn(name string) *Table {
	idx := slices.Index(t.Columns, name)
	out := t.Clone()
	if idx < 0 {
		return out
	}
	out.Columns = append(out.Columns[:idx], out.Columns[idx+1:]...)
	for i, r := range out.Rows {
		out.Rows[i] = append(r[:idx], r[idx+1:]...)
	}
	return out
}

// Filter returns a copy holding only rows for which keep returns true.
func (t *Table) Filter(keep func(row int) bool) *Table {
	out := &Table{Name: t.Name, Columns: append([]string(nil), t.Columns...), opt: t.opt}
	for i, r := range t.Rows {
		if keep(i) {
			out.Rows = append(out.Rows, append([]string(nil), r...))
		}
	}
	return out
}

// WriteCSV writes the table with a header row.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, r := range t.Rows {
		if err := cw.Write(r); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Load reads a CSV/TSV or XLSX file depending on its extension.
func Load(path string, opt Options) (*Table, error) {
	if strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		return ReadXLSX(path, opt)
	}
	return ReadCSV(path, opt)
}

// ReadCSV reads a delimited file with a header row.
func ReadCSV(path string, opt Options) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(path)
	}
	return readDelimited(f, filepath.Base(path), delim, opt)
}

func readDelimited(rd io.Reader, name string, delim rune, opt Options) (*Table, error) {
	r := csv.NewReader(rd)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.Comma = delim

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: %w", name, ErrEmptyTable)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}
	t := &Table{Name: name, Columns: header, opt: opt}
	maxRows := opt.MaxRows
	if maxRows <= 0 {
		maxRows = math.MaxInt
	}
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", len(t.Rows)+1, err)
		}
		if len(t.Rows) >= maxRows {
			break
		}
		t.Rows = append(t.Rows, normalizeRow(rec, len(header)))
	}
	return t, nil
}

func normalizeRow(rec []string, ncol int) []string {
	row := make([]string, ncol)
	copy(row, rec)
	return row
}

func sniffDelimiter(path string) rune {
	name := strings.ToLower(path)
	if strings.HasSuffix(name, ".tsv") {
		return '\t'
	}
	return ','
}

// separators picks the decimal and thousands marks of s. An explicit decimal
// separator wins; otherwise the last of ',' and '.' is the decimal mark.
func separators(s string, opt Options) (dec, thou rune) {
	if opt.DecimalSeparator != 0 {
		return opt.DecimalSeparator, opt.ThousandsSeparator
	}
	comma, dot := strings.LastIndexByte(s, ','), strings.LastIndexByte(s, '.')
	switch {
	case comma > dot && dot >= 0:
		return ',', '.'
	case dot > comma && comma >= 0:
		return '.', ','
	case comma >= 0:
		return ',', opt.ThousandsSeparator
	default:
		return '.', opt.ThousandsSeparator
	}
}

// parseNumeric reads locale formatted numbers such as "1.000,5" or "1 000.5".
// "nan" and "na" parse as NaN.
func parseNumeric(s string, opt Options) (float64, bool) {
	raw := strings.TrimSpace(strings.ReplaceAll(s, "\u00A0", " "))
	switch strings.ToLower(raw) {
	case "nan", "na":
		return math.NaN(), true
	}
	dec, thou := separators(raw, opt)
	var drop []rune
	switch {
	case thou == 0:
		for _, sep := range ",. " {
			if sep != dec {
				drop = append(drop, sep)
			}
		}
	case thou != dec:
		drop = []rune{thou}
	}
	raw = strings.Map(func(r rune) rune {
		if r == dec {
			return '.'
		}
		if slices.Contains(drop, r) {
			return -1
		}
		return r
	}, raw)
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
