package cohort

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyTable is returned when an input file has no header row.
	ErrEmptyTable = errors.New("table is empty")
	// ErrColumnNotFound is returned when a required column is missing.
	ErrColumnNotFound = errors.New("column not found")
	// ErrRaggedSeries is returned when patients have unequal visit counts.
	ErrRaggedSeries = errors.New("patients have unequal numbers of visits")
	// ErrDuplicatePatient is returned when a label source lists a patient twice.
	ErrDuplicatePatient = errors.New("duplicate patient in label source")
	// ErrLabelCount is returned when labels and patients differ in length.
	ErrLabelCount = errors.New("label count does not match patient count")
)

// ColumnError names the missing column and the table it was looked up in.
type ColumnError struct {
	Table  string
	Column string
}

func (e *ColumnError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("column %q not found", e.Column)
	}
	return fmt.Sprintf("column %q not found in %s", e.Column, e.Table)
}

func (e *ColumnError) Unwrap() error { return ErrColumnNotFound }

// RaggedSeriesError reports the first patient whose visit count differs from the first patient's.
type RaggedSeriesError struct {
	Patient  string
	Got      int
	Expected int
}

func (e *RaggedSeriesError) Error() string {
	return fmt.Sprintf("cannot stack time series: patient %s has %d visits, expected %d", e.Patient, e.Got, e.Expected)
}

func (e *RaggedSeriesError) Unwrap() error { return ErrRaggedSeries }

// DuplicatePatientError reports a patient that appears more than once in a label source.
type DuplicatePatientError struct {
	Patient string
}

func (e *DuplicatePatientError) Error() string {
	return fmt.Sprintf("ambiguous merge: patient %s has more than one label", e.Patient)
}

func (e *DuplicatePatientError) Unwrap() error { return ErrDuplicatePatient }
