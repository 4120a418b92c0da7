package cohort

import (
	"fmt"
	"strconv"
)

// ColumnKind identifies what a derived per-patient column holds.
type ColumnKind int

const (
	// KindLabels is the ordered longitudinal cluster label of a domain.
	KindLabels ColumnKind = iota
)

func (k ColumnKind) String() string {
	switch k {
	case KindLabels:
		return "labels"
	default:
		return "kind" + strconv.Itoa(int(k))
	}
}

// ColumnKey names a derived column by domain and kind instead of by ad hoc string.
type ColumnKey struct {
	Domain string
	Kind   ColumnKind
}

// LabelKey is the key of a domain's longitudinal cluster label column.
func LabelKey(domain string) ColumnKey { return ColumnKey{Domain: domain, Kind: KindLabels} }

// Name returns the column identifier, e.g. "longitudinal_fugl_meyer_labels".
func (k ColumnKey) Name() string {
	return fmt.Sprintf("longitudinal_%s_%s", k.Domain, k.Kind)
}

// MergeLabels attaches one label per patient to the feature table.
// Any existing column for key is dropped first, so merging twice for the same
// domain keeps only the latest labels. Feature rows keep their order; rows whose
// patient has no label are dropped.
func MergeLabels(features *Table, patients []string, labels []int, key ColumnKey, patientCol string) (*Table, error) {
	if len(patients) != len(labels) {
		return nil, fmt.Errorf("%w: %d patients, %d labels", ErrLabelCount, len(patients), len(labels))
	}
	byPatient := make(map[string]int, len(patients))
	for i, p := range patients {
		if _, dup := byPatient[p]; dup {
			return nil, &DuplicatePatientError{Patient: p}
		}
		byPatient[p] = labels[i]
	}

	out := features.DropColumn(key.Name())
	pcol, err := out.Col(patientCol)
	if err != nil {
		return nil, err
	}
	out.Columns = append(out.Columns, key.Name())
	kept := out.Rows[:0]
	for i, r := range out.Rows {
		lbl, ok := byPatient[out.String(i, pcol)]
		if !ok {
			continue
		}
		kept = append(kept, append(r, strconv.Itoa(lbl)))
	}
	out.Rows = kept
	return out, nil
}

// Labels reads an integer label column back, returning the label per row.
// Rows with an empty or non-integer label get -1.
func (t *Table) Labels(key ColumnKey) ([]int, error) {
	col, err := t.Col(key.Name())
	if err != nil {
		return nil, err
	}
	out := make([]int, t.Len())
	for i := range t.Rows {
		v, err := strconv.Atoi(t.String(i, col))
		if err != nil {
			v = -1
		}
		out[i] = v
	}
	return out, nil
}
