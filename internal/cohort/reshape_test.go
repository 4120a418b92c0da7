package cohort

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var longRows = []string{
	"Patient,time,time_in_weeks,FM",
	"10,1,1,0.10",
	"2,1,1,0.80",
	"10,2,4,0.20",
	"2,2,5,0.70",
	"10,3,12,0.30",
	"2,3,13,",
}

func writeCSV(t *testing.T, name string, rows []string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(strings.Join(rows, "\n")), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return p
}

func TestReshapeShapeAndOrder(t *testing.T) {
	tbl, err := Load(writeCSV(t, "long.csv", longRows), DefaultOptions())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	ds, err := Reshape(tbl, "FM", DefaultColumns())
	if err != nil {
		t.Fatalf("reshape: %v", err)
	}
	p, v, c := ds.Shape()
	if p != 2 || v != 3 || c != 1 {
		t.Fatalf("shape = (%d,%d,%d), want (2,3,1)", p, v, c)
	}
	// numeric ids sort numerically: 2 before 10
	if ds.Patients[0] != "2" || ds.Patients[1] != "10" {
		t.Fatalf("patients = %#v", ds.Patients)
	}
	want10 := []float64{0.1, 0.2, 0.3}
	for i, w := range want10 {
		if got := ds.Series[1][i][0]; got != w {
			t.Fatalf("patient 10 visit %d = %v, want %v", i, got, w)
		}
	}
	if !math.IsNaN(ds.Series[0][2][0]) {
		t.Fatalf("missing value should be NaN, got %v", ds.Series[0][2][0])
	}
	if !ds.HasMissing() {
		t.Fatalf("expected HasMissing")
	}
	if len(ds.Grouped) != 2 || ds.Grouped[1].Patient != "10" {
		t.Fatalf("grouped = %#v", ds.Grouped)
	}
	m := ds.Matrix()
	if r, cc := m.Dims(); r != 2 || cc != 3 {
		t.Fatalf("matrix dims = %d,%d", r, cc)
	}
	if m.At(1, 2) != 0.3 {
		t.Fatalf("matrix(1,2) = %v", m.At(1, 2))
	}
}

func TestReshapeLexicalPatientOrder(t *testing.T) {
	tbl := NewTable("long", []string{"Patient", "FM"}, [][]string{
		{"p-b", "1"}, {"p-a", "2"}, {"p-b", "3"}, {"p-a", "4"},
	})
	ds, err := Reshape(tbl, "FM", DefaultColumns())
	if err != nil {
		t.Fatalf("reshape: %v", err)
	}
	if ds.Patients[0] != "p-a" || ds.Flat(0)[0] != 2 || ds.Flat(0)[1] != 4 {
		t.Fatalf("unexpected first patient: %v %v", ds.Patients, ds.Flat(0))
	}
}

func TestReshapeRejectsRagged(t *testing.T) {
	tbl := NewTable("long", []string{"Patient", "FM"}, [][]string{
		{"A", "1"}, {"A", "2"}, {"A", "3"},
		{"B", "1"}, {"B", "2"},
	})
	_, err := Reshape(tbl, "FM", DefaultColumns())
	if !errors.Is(err, ErrRaggedSeries) {
		t.Fatalf("expected ErrRaggedSeries, got %v", err)
	}
	var re *RaggedSeriesError
	if !errors.As(err, &re) || re.Patient != "B" || re.Got != 2 || re.Expected != 3 {
		t.Fatalf("unexpected ragged error: %#v", err)
	}
}

func TestReshapeMissingColumn(t *testing.T) {
	tbl := NewTable("long", []string{"Patient", "FM"}, nil)
	_, err := Reshape(tbl, "ARAT", DefaultColumns())
	if !errors.Is(err, ErrColumnNotFound) {
		t.Fatalf("expected ErrColumnNotFound, got %v", err)
	}
}

func TestWideTable(t *testing.T) {
	tbl, err := Load(writeCSV(t, "long.csv", longRows), DefaultOptions())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	ds, err := Reshape(tbl, "FM", DefaultColumns())
	if err != nil {
		t.Fatalf("reshape: %v", err)
	}
	w := ds.WideTable("Patient")
	var sb strings.Builder
	if err := w.WriteCSV(&sb); err != nil {
		t.Fatalf("write: %v", err)
	}
	got := sb.String()
	if !strings.HasPrefix(got, "Patient,FM_1,FM_2,FM_3\n2,0.8,0.7,\n10,0.1,0.2,0.3\n") {
		t.Fatalf("unexpected wide csv:\n%s", got)
	}
}

func TestParseNumericLocales(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"1.000,5", 1000.5},
		{"1,000.5", 1000.5},
		{"0,25", 0.25},
		{"12", 12},
		{"1e-3", 0.001},
	}
	for _, c := range cases {
		got, ok := parseNumeric(c.in, Options{})
		if !ok || math.Abs(got-c.want) > 1e-12 {
			t.Errorf("parseNumeric(%q) = %v,%v want %v", c.in, got, ok, c.want)
		}
	}
	if _, ok := parseNumeric("abc", Options{}); ok {
		t.Errorf("expected failure for non-numeric input")
	}
}
