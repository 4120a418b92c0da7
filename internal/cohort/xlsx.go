package cohort

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"path"
	"path/filepath"
	"strconv"
	"strings"
)

// ReadXLSX reads one worksheet of a .xlsx workbook into a Table. The first row is the header.
// If opt.SheetName is empty the 1-based opt.SheetIndex selects the sheet (default 1).
func ReadXLSX(p string, opt Options) (*Table, error) {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer zr.Close()

	wb, err := openWorkbook(&zr.Reader)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
	}
	entry, err := wb.sheetEntry(opt)
	if err != nil {
		return nil, fmt.Errorf("%w in workbook '%s'.\nAvailable sheets: %s",
			err, filepath.Base(p), strings.Join(wb.sheetNames(), ", "))
	}
	f, err := zr.Open(entry)
	if err != nil {
		return nil, fmt.Errorf("%s: open %s: %w", filepath.Base(p), entry, err)
	}
	defer f.Close()

	rows := &sheetRows{dec: xml.NewDecoder(f), shared: wb.shared}
	header, ok := rows.next()
	if !ok || len(header) == 0 {
		return nil, fmt.Errorf("%s: %w", filepath.Base(p), ErrEmptyTable)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	t := &Table{Name: filepath.Base(p), Columns: header, opt: opt}
	limit := opt.MaxRows
	if limit <= 0 {
		limit = math.MaxInt
	}
	for len(t.Rows) < limit {
		row, ok := rows.next()
		if !ok {
			break
		}
		t.Rows = append(t.Rows, normalizeRow(row, len(header)))
	}
	return t, rows.err
}

type workbookXML struct {
	Sheets []struct {
		Name string `xml:"name,attr"`
		RID  string `xml:"id,attr"`
	} `xml:"sheets>sheet"`
}

type relationshipsXML struct {
	Relationships []struct {
		ID     string `xml:"Id,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

type sharedStringsXML struct {
	Items []struct {
		T string `xml:"t"`
		// rich text runs
		Runs []struct {
			T string `xml:"t"`
		} `xml:"r"`
	} `xml:"si"`
}

// workbook is the parsed workbook index: sheets, their zip entries and the shared strings.
type workbook struct {
	sheets  workbookXML
	targets map[string]string
	shared  []string
}

func openWorkbook(zr *zip.Reader) (*workbook, error) {
	wb := &workbook{targets: map[string]string{}}
	if err := decodeEntry(zr, "xl/workbook.xml", &wb.sheets); err != nil {
		return nil, err
	}
	var rels relationshipsXML
	if err := decodeEntry(zr, "xl/_rels/workbook.xml.rels", &rels); err != nil {
		return nil, err
	}
	for _, r := range rels.Relationships {
		if r.ID != "" && r.Target != "" {
			wb.targets[r.ID] = normalizeRelPath(r.Target)
		}
	}
	var sst sharedStringsXML
	if err := decodeEntry(zr, "xl/sharedStrings.xml", &sst); err != nil {
		return nil, err
	}
	for _, si := range sst.Items {
		var sb strings.Builder
		sb.WriteString(si.T)
		for _, r := range si.Runs {
			sb.WriteString(r.T)
		}
		wb.shared = append(wb.shared, sb.String())
	}
	return wb, nil
}

// decodeEntry unmarshals a zip entry. Missing entries leave v untouched.
func decodeEntry(zr *zip.Reader, name string, v any) error {
	f, err := zr.Open(name)
	if err != nil {
		return nil
	}
	defer f.Close()
	if err := xml.NewDecoder(f).Decode(v); err != nil && err != io.EOF {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}

func (wb *workbook) sheetNames() []string {
	names := make([]string, len(wb.sheets.Sheets))
	for i, s := range wb.sheets.Sheets {
		names[i] = s.Name
	}
	return names
}

// sheetEntry resolves the zip entry of the selected worksheet.
func (wb *workbook) sheetEntry(opt Options) (string, error) {
	if opt.SheetName != "" {
		for _, s := range wb.sheets.Sheets {
			if strings.EqualFold(s.Name, opt.SheetName) {
				if target, ok := wb.targets[s.RID]; ok {
					return target, nil
				}
			}
		}
		return "", fmt.Errorf("sheet '%s' not found", opt.SheetName)
	}
	// SheetIndex is the position in workbook order; sheetId values survive
	// deletes and reorders so they are not used for selection.
	idx := max(opt.SheetIndex, 1)
	if n := len(wb.sheets.Sheets); n > 0 {
		if idx > n {
			return "", fmt.Errorf("sheet index %d out of range (workbook has %d sheets)", idx, n)
		}
		if target, ok := wb.targets[wb.sheets.Sheets[idx-1].RID]; ok {
			return target, nil
		}
	}
	// workbooks without relationships still name sheets sheetN.xml
	return path.Join("xl", "worksheets", fmt.Sprintf("sheet%d.xml", idx)), nil
}

type cellXML struct {
	Ref    string `xml:"r,attr"`
	Type   string `xml:"t,attr"`
	Value  string `xml:"v"`
	Inline string `xml:"is>t"`
}

type rowXML struct {
	Cells []cellXML `xml:"c"`
}

// sheetRows streams the <row> elements of a worksheet.
type sheetRows struct {
	dec    *xml.Decoder
	shared []string
	err    error
}

func (r *sheetRows) next() ([]string, bool) {
	for {
		tok, err := r.dec.Token()
		if err != nil {
			if err != io.EOF {
				r.err = fmt.Errorf("read sheet: %w", err)
			}
			return nil, false
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "row" {
			continue
		}
		var row rowXML
		if err := r.dec.DecodeElement(&row, &se); err != nil {
			r.err = fmt.Errorf("read row: %w", err)
			return nil, false
		}
		return r.cells(row), true
	}
}

// cells places every cell at the column named by its reference; cells without
// a reference follow the previous one.
func (r *sheetRows) cells(row rowXML) []string {
	var out []string
	for _, c := range row.Cells {
		col := colIndexFromRef(c.Ref)
		if col < 0 {
			col = len(out)
		}
		for len(out) <= col {
			out = append(out, "")
		}
		out[col] = r.value(c)
	}
	return out
}

func (r *sheetRows) value(c cellXML) string {
	switch c.Type {
	case "s":
		i, err := strconv.Atoi(strings.TrimSpace(c.Value))
		if err != nil || i < 0 || i >= len(r.shared) {
			return ""
		}
		return r.shared[i]
	case "inlineStr":
		return c.Inline
	default:
		return c.Value
	}
}

// colIndexFromRef converts refs like "C12" to a 0-based column index, -1 when
// the ref has no column letters.
func colIndexFromRef(ref string) int {
	idx := 0
	for _, ch := range strings.ToUpper(ref) {
		if ch < 'A' || ch > 'Z' {
			break
		}
		idx = idx*26 + int(ch-'A') + 1
	}
	return idx - 1
}

// normalizeRelPath converts relationship targets to zip entry names.
// Targets may carry a leading slash ("/xl/worksheets/sheet1.xml"); zip entries never do.
func normalizeRelPath(rel string) string {
	rel = strings.TrimPrefix(rel, "/")
	if strings.HasPrefix(rel, "xl/") {
		return rel
	}
	return "xl/" + rel
}
