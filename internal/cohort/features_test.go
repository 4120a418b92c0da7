package cohort

import (
	"errors"
	"slices"
	"testing"
)

func featureFixture() *Table {
	return NewTable("features", []string{"Patient", "time", "FM"}, [][]string{
		{"A", "1", "0.1"},
		{"A", "2", "0.2"},
		{"B", "1", "0.9"},
		{"C", "1", "0.5"},
	})
}

func TestColumnKeyName(t *testing.T) {
	if got := LabelKey("FM").Name(); got != "longitudinal_FM_labels" {
		t.Fatalf("name = %q", got)
	}
	if LabelKey("FM") == LabelKey("ARAT") {
		t.Fatalf("keys for different domains must differ")
	}
}

func TestMergeLabelsIdempotent(t *testing.T) {
	key := LabelKey("FM")
	first, err := MergeLabels(featureFixture(), []string{"A", "B", "C"}, []int{0, 1, 1}, key, "Patient")
	if err != nil {
		t.Fatalf("first merge: %v", err)
	}
	second, err := MergeLabels(first, []string{"A", "B", "C"}, []int{1, 0, 2}, key, "Patient")
	if err != nil {
		t.Fatalf("second merge: %v", err)
	}
	count := 0
	for _, c := range second.Columns {
		if c == key.Name() {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("label column appears %d times: %#v", count, second.Columns)
	}
	got, err := second.Labels(key)
	if err != nil {
		t.Fatalf("labels: %v", err)
	}
	want := []int{1, 1, 0, 2}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("labels = %v, want %v", got, want)
		}
	}
	// input tables are not mutated
	if len(first.Columns) != 4 || first.Rows[0][3] != "0" {
		t.Fatalf("first table mutated: %#v", first.Rows[0])
	}
}

func TestMergeLabelsInnerJoin(t *testing.T) {
	out, err := MergeLabels(featureFixture(), []string{"A", "C"}, []int{0, 1}, LabelKey("FM"), "Patient")
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if out.Len() != 3 {
		t.Fatalf("rows = %d, want 3 (B has no label)", out.Len())
	}
	for i := range out.Rows {
		if out.String(i, 0) == "B" {
			t.Fatalf("row for unlabeled patient kept")
		}
	}
}

func TestMergeLabelsRejectsDuplicates(t *testing.T) {
	_, err := MergeLabels(featureFixture(), []string{"A", "A"}, []int{0, 1}, LabelKey("FM"), "Patient")
	if !errors.Is(err, ErrDuplicatePatient) {
		t.Fatalf("expected ErrDuplicatePatient, got %v", err)
	}
	_, err = MergeLabels(featureFixture(), []string{"A"}, []int{0, 1}, LabelKey("FM"), "Patient")
	if !errors.Is(err, ErrLabelCount) {
		t.Fatalf("expected ErrLabelCount, got %v", err)
	}
}

func TestMergeLabelsKeepsCaseDistinctDomain(t *testing.T) {
	upper, err := MergeLabels(featureFixture(), []string{"A", "B", "C"}, []int{0, 1, 1}, LabelKey("FM"), "Patient")
	if err != nil {
		t.Fatalf("FM merge: %v", err)
	}
	lower, err := MergeLabels(upper, []string{"A", "B", "C"}, []int{2, 2, 0}, LabelKey("fm"), "Patient")
	if err != nil {
		t.Fatalf("fm merge: %v", err)
	}
	if !slices.Contains(lower.Columns, "longitudinal_FM_labels") || !slices.Contains(lower.Columns, "longitudinal_fm_labels") {
		t.Fatalf("columns = %#v, want both label columns", lower.Columns)
	}
	got, err := lower.Labels(LabelKey("FM"))
	if err != nil {
		t.Fatalf("FM labels: %v", err)
	}
	if got[2] != 1 {
		t.Fatalf("FM labels overwritten: %v", got)
	}
	got, err = lower.Labels(LabelKey("fm"))
	if err != nil {
		t.Fatalf("fm labels: %v", err)
	}
	if got[0] != 2 || got[3] != 0 {
		t.Fatalf("fm labels = %v", got)
	}
}

func TestDropColumnMissingIsNoop(t *testing.T) {
	tbl := featureFixture()
	out := tbl.DropColumn("longitudinal_FM_labels")
	if len(out.Columns) != len(tbl.Columns) || out.Len() != tbl.Len() {
		t.Fatalf("drop of missing column changed table")
	}
	out = tbl.DropColumn("time")
	if out.Has("time") || len(out.Rows[0]) != 2 || out.Rows[0][1] != "0.1" {
		t.Fatalf("drop failed: %#v %#v", out.Columns, out.Rows[0])
	}
	if !tbl.Has("time") {
		t.Fatalf("source table mutated")
	}
}
