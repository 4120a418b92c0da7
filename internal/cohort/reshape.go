package cohort

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/mat"
)

// Columns names the identifying columns of a long-format table.
type Columns struct {
	Patient string
	Time    string
	Weeks   string
}

// DefaultColumns matches the column names used by the clinical exports.
func DefaultColumns() Columns {
	return Columns{Patient: "Patient", Time: "time", Weeks: "time_in_weeks"}
}

// PatientSeries is one patient's domain values in visit order.
type PatientSeries struct {
	Patient string
	Values  []float64
}

// Dataset is a stack of equal-length per-patient time series with shape
// (patients, visits, channels). Channels is always 1 for a single domain.
type Dataset struct {
	Domain   string
	Patients []string
	Series   [][][]float64
	// Grouped is the intermediate per-patient grouping the series were stacked from.
	Grouped []PatientSeries
}

// Shape returns (patients, visits, channels).
func (d *Dataset) Shape() (int, int, int) {
	if d == nil || len(d.Series) == 0 {
		return 0, 0, 0
	}
	v := len(d.Series[0])
	c := 0
	if v > 0 {
		c = len(d.Series[0][0])
	}
	return len(d.Series), v, c
}

// Len returns the number of patients.
func (d *Dataset) Len() int { return len(d.Series) }

// Flat returns the first channel of every series as one row per patient.
func (d *Dataset) Flat(i int) []float64 {
	out := make([]float64, len(d.Series[i]))
	for t, step := range d.Series[i] {
		out[t] = step[0]
	}
	return out
}

// Matrix returns the (patients x visits) view of the first channel.
func (d *Dataset) Matrix() *mat.Dense {
	p, v, _ := d.Shape()
	if p == 0 || v == 0 {
		return &mat.Dense{}
	}
	m := mat.NewDense(p, v, nil)
	for i := 0; i < p; i++ {
		m.SetRow(i, d.Flat(i))
	}
	return m
}

// Subset returns the series at the given row indices, in that order.
func (d *Dataset) Subset(idx []int) [][][]float64 {
	out := make([][][]float64, len(idx))
	for i, j := range idx {
		out[i] = d.Series[j]
	}
	return out
}

// Reshape converts a long-format table into per-patient time series for one domain.
// Rows are grouped by patient in ascending patient order; within a patient the
// upstream row order is kept. Every patient must have the same number of rows.
func Reshape(t *Table, domain string, cols Columns) (*Dataset, error) {
	pcol, err := t.Col(cols.Patient)
	if err != nil {
		return nil, err
	}
	dcol, err := t.Col(domain)
	if err != nil {
		return nil, err
	}

	byPatient := map[string][]float64{}
	var order []string
	for i := range t.Rows {
		id := t.String(i, pcol)
		if _, ok := byPatient[id]; !ok {
			order = append(order, id)
		}
		byPatient[id] = append(byPatient[id], t.Float(i, dcol))
	}
	sortPatientIDs(order)

	ds := &Dataset{Domain: domain, Patients: order}
	ds.Grouped = make([]PatientSeries, len(order))
	for i, id := range order {
		ds.Grouped[i] = PatientSeries{Patient: id, Values: byPatient[id]}
	}
	if err := ds.stack(); err != nil {
		return nil, err
	}
	return ds, nil
}

// stack builds Series from Grouped, failing on unequal lengths.
func (d *Dataset) stack() error {
	d.Series = make([][][]float64, len(d.Grouped))
	if len(d.Grouped) == 0 {
		return nil
	}
	want := len(d.Grouped[0].Values)
	for i, g := range d.Grouped {
		if len(g.Values) != want {
			return &RaggedSeriesError{Patient: g.Patient, Got: len(g.Values), Expected: want}
		}
		s := make([][]float64, want)
		for t, v := range g.Values {
			s[t] = []float64{v}
		}
		d.Series[i] = s
	}
	return nil
}

// HasMissing reports whether any value is NaN.
func (d *Dataset) HasMissing() bool {
	for _, s := range d.Series {
		for _, step := range s {
			for _, v := range step {
				if math.IsNaN(v) {
					return true
				}
			}
		}
	}
	return false
}

// WideTable renders the dataset as one row per patient with one column per visit.
func (d *Dataset) WideTable(patientCol string) *Table {
	_, v, _ := d.Shape()
	cols := []string{patientCol}
	for i := 0; i < v; i++ {
		cols = append(cols, fmt.Sprintf("%s_%d", d.Domain, i+1))
	}
	t := &Table{Name: d.Domain, Columns: cols, opt: DefaultOptions()}
	for i, id := range d.Patients {
		row := []string{id}
		for _, x := range d.Flat(i) {
			if math.IsNaN(x) {
				row = append(row, "")
				continue
			}
			row = append(row, strconv.FormatFloat(x, 'g', -1, 64))
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// sortPatientIDs orders ids numerically when all of them are numbers, lexically otherwise.
func sortPatientIDs(ids []string) {
	nums := make(map[string]float64, len(ids))
	numeric := true
	for _, id := range ids {
		f, err := strconv.ParseFloat(id, 64)
		if err != nil {
			numeric = false
			break
		}
		nums[id] = f
	}
	if numeric {
		sort.SliceStable(ids, func(i, j int) bool { return nums[ids[i]] < nums[ids[j]] })
		return
	}
	sort.Strings(ids)
}
