package study_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/KaramelBytes/trajclust/internal/cohort"
	"github.com/KaramelBytes/trajclust/internal/study"
)

func TestSaveLoadRoundTripsRunsAndFeatures(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "stroke")
	s := study.New("stroke", "  acute cohort ", dir)
	if s.Description != "acute cohort" {
		t.Fatalf("description not trimmed: %q", s.Description)
	}
	if _, err := s.LoadFeatures(cohort.DefaultOptions()); !errors.Is(err, study.ErrNoFeatures) {
		t.Fatalf("expected ErrNoFeatures, got %v", err)
	}

	tbl := cohort.NewTable("features", []string{"Patient", "FM", "longitudinal_FM_labels"}, [][]string{
		{"1", "0.5", "0"},
		{"2", "", "1"},
	})
	if err := s.SetFeatures(tbl); err != nil {
		t.Fatalf("set features: %v", err)
	}
	r := s.AddRun(&study.Run{Domain: "FM", Metric: "dtw", K: 2, Sizes: []int{1, 1}})
	if r.ID == "" || r.CreatedAt.IsZero() {
		t.Fatalf("run id/timestamp not assigned: %+v", r)
	}
	s.AddRun(&study.Run{Domain: "UE", Metric: "euclidean", K: 3})
	last := s.AddRun(&study.Run{Domain: "FM", Metric: "euclidean", K: 4})
	if err := s.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := study.Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Name != "stroke" || len(got.Runs) != 3 {
		t.Fatalf("unexpected study: %+v", got)
	}
	if lr := got.LatestRun("FM"); lr == nil || lr.ID != last.ID || lr.K != 4 {
		t.Fatalf("latest FM run = %+v", lr)
	}
	if got.LatestRun("BBS") != nil {
		t.Fatalf("expected no run for unknown domain")
	}
	if d := got.Domains(); len(d) != 2 || d[0] != "FM" || d[1] != "UE" {
		t.Fatalf("domains = %v", d)
	}
	back, err := got.LoadFeatures(cohort.DefaultOptions())
	if err != nil {
		t.Fatalf("load features: %v", err)
	}
	if back.Len() != 2 || back.Rows[1][2] != "1" || back.Rows[1][1] != "" {
		t.Fatalf("features not preserved: %#v", back.Rows)
	}
}

func TestLoadMissingStudy(t *testing.T) {
	if _, err := study.Load(t.TempDir()); err == nil {
		t.Fatalf("expected error for missing study.json")
	}
}

func TestSaveWithoutRoot(t *testing.T) {
	if err := study.New("x", "", "").Save(); err == nil {
		t.Fatalf("expected error without root dir")
	}
}

func TestFindRootFromNestedDir(t *testing.T) {
	root := t.TempDir()
	s := study.New("stroke", "", root)
	if err := s.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}
	nested := filepath.Join(root, "figures", "fm")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	got, err := study.FindRoot(nested)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got != root {
		t.Fatalf("root = %q, want %q", got, root)
	}
	got, err = study.FindRoot(filepath.Join(root, study.MetaFile))
	if err != nil || got != root {
		t.Fatalf("find from file = %q, %v", got, err)
	}
	if _, err := study.FindRoot(t.TempDir()); !errors.Is(err, study.ErrNoStudy) {
		t.Fatalf("err = %v, want ErrNoStudy", err)
	}
}
