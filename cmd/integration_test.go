package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/trajclust/internal/cohort"
	"github.com/KaramelBytes/trajclust/internal/study"
)

// resetFlags clears values that persist on package-level flag variables
// between invocations of rootCmd in the same process.
func resetFlags() {
	cfg = nil
	cfgFile = ""
	debug = false
	initDescription = ""
	listStudies, listRuns, listStudyName = false, false, ""
	reshapeDomain, reshapeOutput = "", ""
	chooseDomain, chooseMetric, chooseMaxClusters, choosePlotClusters, chooseOutDir = "", "", 0, false, ""
	clusterDomain, clusterMetric, clusterK, clusterStudy, clusterFeatures, clusterOutDir = "", "", 0, "", "", ""
	reportStudy, reportDomain, reportOutDir = "", "", ""
	compareStudy, compareA, compareB, compareTitle, compareDomain, compareOutDir = "", "", "", "", "", ""
	studyName = ""
	for _, f := range []*inputFlags{&reshapeInput, &chooseInput, &clusterInput} {
		*f = inputFlags{sheetIndex: 1}
	}
}

// runCmd is a helper to execute the root command with args and return stdout.
func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execCmd(args...)
	if err != nil {
		t.Fatalf("command %v failed: %v\n%s", args, err, out)
	}
	return out
}

func execCmd(args ...string) (string, error) {
	resetFlags()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

const longCSV = `Patient,time,time_in_weeks,FM,UE
1,1,1,0.10,0.9
1,2,4,0.50,0.9
1,3,12,0.90,0.8
2,1,1,0.15,0.9
2,2,5,0.55,0.8
2,3,13,0.85,0.9
3,1,1,0.20,0.1
3,2,4,0.60,0.2
3,3,12,0.95,0.1
4,1,1,0.90,0.2
4,2,4,0.50,0.1
4,3,12,0.10,0.1
5,1,1,0.85,0.1
5,2,5,0.45,0.2
5,3,12,0.15,0.2
6,1,2,0.95,0.9
6,2,4,0.55,0.8
6,3,13,0.05,0.9
`

func writeLong(t *testing.T, dir string) string {
	t.Helper()
	p := filepath.Join(dir, "long.csv")
	if err := os.WriteFile(p, []byte(longCSV), 0o644); err != nil {
		t.Fatalf("write long table: %v", err)
	}
	return p
}

func TestCLI_Init_Cluster_Report_Compare(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	long := writeLong(t, home)

	out := runCmd(t, "init", "stroke", "-d", "acute cohort")
	if !strings.Contains(out, "Study initialized") {
		t.Fatalf("unexpected init output: %s", out)
	}
	if _, err := execCmd("init", "stroke"); err == nil {
		t.Fatalf("expected error re-initializing an existing study")
	}

	out = runCmd(t, "cluster", long, "--domain", "FM", "-k", "2", "--metric", "euclidean", "-s", "stroke")
	if !strings.Contains(out, "- cluster 0: 3 patients") || !strings.Contains(out, "Stored longitudinal_FM_labels") {
		t.Fatalf("unexpected cluster output: %s", out)
	}
	out = runCmd(t, "cluster", long, "--domain", "UE", "-k", "2", "--metric", "dtw", "-s", "stroke")
	if !strings.Contains(out, "longitudinal_UE_labels") {
		t.Fatalf("unexpected cluster output: %s", out)
	}

	dir := filepath.Join(home, ".trajclust", "studies", "stroke")
	s, err := study.Load(dir)
	if err != nil {
		t.Fatalf("load study: %v", err)
	}
	if len(s.Runs) != 2 || s.LatestRun("FM") == nil || s.LatestRun("UE") == nil {
		t.Fatalf("runs not recorded: %+v", s.Runs)
	}
	features, err := s.LoadFeatures(cohort.DefaultOptions())
	if err != nil {
		t.Fatalf("load features: %v", err)
	}
	if features.Len() != 18 || !features.Has("longitudinal_FM_labels") || !features.Has("longitudinal_UE_labels") {
		t.Fatalf("feature table not labelled: %v (%d rows)", features.Columns, features.Len())
	}
	fm, err := features.Labels(cohort.LabelKey("FM"))
	if err != nil {
		t.Fatalf("labels: %v", err)
	}
	// patients 1-3 rise, 4-6 fall; every row of a patient carries its label
	pcol := features.Index("Patient")
	byPatient := map[string]int{}
	for i := range features.Rows {
		p := features.String(i, pcol)
		if l, ok := byPatient[p]; ok && l != fm[i] {
			t.Fatalf("patient %s has labels %d and %d", p, l, fm[i])
		}
		byPatient[p] = fm[i]
	}
	if byPatient["1"] != byPatient["3"] || byPatient["4"] != byPatient["6"] || byPatient["1"] == byPatient["4"] {
		t.Fatalf("unexpected FM clustering: %v", byPatient)
	}
	if _, err := os.Stat(s.LatestRun("FM").Figure); err != nil {
		t.Fatalf("cluster figure missing: %v", err)
	}

	out = runCmd(t, "report", "-s", "stroke", "--domain", "FM")
	for _, name := range []string{"FM_trend.png", "FM_overview.png"} {
		if _, err := os.Stat(filepath.Join(dir, "figures", name)); err != nil {
			t.Fatalf("%s missing: %v\n%s", name, err, out)
		}
	}

	out = runCmd(t, "compare", "-s", "stroke", "--a", "FM", "--b", "UE", "--domain", "FM")
	if !strings.Contains(out, "Patients: 6") || !strings.Contains(out, "[COMMON PATIENTS]") {
		t.Fatalf("unexpected compare output: %s", out)
	}
	if _, err := os.Stat(filepath.Join(dir, "figures", "compare_FM_UE.png")); err != nil {
		t.Fatalf("comparison heatmap missing: %v", err)
	}

	out = runCmd(t, "list", "--runs", "-s", "stroke")
	if strings.Count(out, "\n") != 2 || !strings.Contains(out, "FM k=2 metric=euclidean") {
		t.Fatalf("unexpected runs listing: %s", out)
	}
	out = runCmd(t, "list", "--studies")
	if !strings.Contains(out, "- stroke") {
		t.Fatalf("study not listed: %s", out)
	}
	out = runCmd(t, "study", "show", "-s", "stroke")
	if !strings.Contains(out, "acute cohort") || !strings.Contains(out, "[LATEST RUNS]") {
		t.Fatalf("unexpected study output: %s", out)
	}
}

func TestCLI_ReshapeAndChooseK(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	long := writeLong(t, home)

	wide := filepath.Join(home, "wide.csv")
	out := runCmd(t, "reshape", long, "--domain", "FM", "-o", wide)
	if !strings.Contains(out, "- FM_1: n=6 mean=0.525") {
		t.Fatalf("unexpected visit summary: %s", out)
	}
	b, err := os.ReadFile(wide)
	if err != nil {
		t.Fatalf("read wide: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	if len(lines) != 7 || lines[0] != "Patient,FM_1,FM_2,FM_3" || lines[1] != "1,0.1,0.5,0.9" {
		t.Fatalf("unexpected wide table:\n%s", b)
	}

	figs := filepath.Join(home, "figs")
	out = runCmd(t, "choose-k", long, "--domain", "FM", "--metric", "euclidean", "--max-clusters", "4", "--plot-clusters", "--out", figs)
	if !strings.Contains(out, "| 2 |") || !strings.Contains(out, "| 3 |") {
		t.Fatalf("unexpected choose-k output: %s", out)
	}
	for _, name := range []string{"FM_euclidean_k2.png", "FM_euclidean_k3.png", "FM_euclidean_silhouette.png"} {
		if _, err := os.Stat(filepath.Join(figs, name)); err != nil {
			t.Fatalf("%s missing: %v", name, err)
		}
	}
}

func TestCLI_Errors(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	long := writeLong(t, home)

	if _, err := execCmd("cluster", long, "--domain", "FM", "-k", "2", "-s", "missing"); err == nil {
		t.Fatalf("expected error for unknown study")
	}
	if _, err := execCmd("reshape", long, "--domain", "BBS"); err == nil {
		t.Fatalf("expected error for missing domain column")
	}
	if _, err := execCmd("choose-k", long, "--domain", "FM", "--metric", "cosine"); err == nil {
		t.Fatalf("expected error for unknown metric")
	}
	if _, err := execCmd("list"); err == nil {
		t.Fatalf("expected error without --studies or --runs")
	}
}

func TestCLI_ConfigSetShow(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	runCmd(t, "config", "set", "default_metric", "soft-dtw")
	runCmd(t, "config", "set", "seed", "7")
	out := runCmd(t, "config", "show")
	if !strings.Contains(out, "default_metric: softdtw") || !strings.Contains(out, "seed: 7") {
		t.Fatalf("config not persisted: %s", out)
	}
	if _, err := execCmd("config", "set", "max_clusters", "2"); err == nil {
		t.Fatalf("expected error for max_clusters < 3")
	}
	if _, err := execCmd("config", "set", "nope", "1"); err == nil {
		t.Fatalf("expected error for unknown key")
	}
}

func TestCLI_StudyFromWorkingDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	runCmd(t, "init", "gait")

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	sub := filepath.Join(home, ".trajclust", "studies", "gait", "figures")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.Chdir(sub); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	runCmd(t, "study", "describe", "  walking speed  ")
	out := runCmd(t, "study", "show")
	if !strings.Contains(out, "Name: gait") || !strings.Contains(out, "Description: walking speed\n") || !strings.Contains(out, "Features: (none)") {
		t.Fatalf("unexpected study output: %s", out)
	}
	out = runCmd(t, "list", "--runs")
	if !strings.Contains(out, "(no runs)") {
		t.Fatalf("unexpected runs listing: %s", out)
	}
}
