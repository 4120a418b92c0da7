// Package study persists a clustering study on disk: its metadata, the
// labelled feature table and the history of clustering runs.
package study

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/trajclust/internal/cohort"
	"github.com/KaramelBytes/trajclust/internal/utils"
)

// FeaturesFile is the labelled feature table inside a study directory.
const FeaturesFile = "features.csv"

// ErrNoFeatures is returned when a study has no feature table yet.
var ErrNoFeatures = errors.New("study has no feature table")

// Study represents a clustering study persisted on disk.
type Study struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Features    string    `json:"features,omitempty"`
	Runs        []*Run    `json:"runs"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Not serialized: on-disk location of the study.json
	rootDir string `json:"-"`
}

// New constructs an in-memory study. Call Save() to persist.
func New(name, description, rootDir string) *Study {
	return &Study{
		Name:        name,
		Description: strings.TrimSpace(description),
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		rootDir:     rootDir,
	}
}

// Load reads study.json from dir.
func Load(dir string) (*Study, error) {
	path := filepath.Join(dir, MetaFile)
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("study not found at %s: %w", path, err)
		}
		return nil, fmt.Errorf("read study: %w", err)
	}
	var s Study
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("parse study: %w", err)
	}
	s.rootDir = dir
	return &s, nil
}

// RootDir returns the on-disk study directory.
func (s *Study) RootDir() string { return s.rootDir }

// Path joins elem onto the study directory.
func (s *Study) Path(elem ...string) string {
	return filepath.Join(append([]string{s.rootDir}, elem...)...)
}

// Save writes study.json using atomic write.
func (s *Study) Save() error {
	if s.rootDir == "" {
		return errors.New("study root directory not set")
	}
	if err := utils.EnsureDir(s.rootDir); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}
	s.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal study: %w", err)
	}
	return utils.SafeWriteFile(filepath.Join(s.rootDir, MetaFile), data)
}

// LoadFeatures reads the study's feature table.
func (s *Study) LoadFeatures(opt cohort.Options) (*cohort.Table, error) {
	if s.Features == "" {
		return nil, ErrNoFeatures
	}
	t, err := cohort.ReadCSV(s.Path(s.Features), opt)
	if err != nil {
		return nil, fmt.Errorf("read features: %w", err)
	}
	return t, nil
}

// SetFeatures replaces the study's feature table on disk. Call Save() to
// persist the reference in study.json.
func (s *Study) SetFeatures(t *cohort.Table) error {
	if s.rootDir == "" {
		return errors.New("study root directory not set")
	}
	if err := utils.EnsureDir(s.rootDir); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}
	var buf bytes.Buffer
	if err := t.WriteCSV(&buf); err != nil {
		return fmt.Errorf("encode features: %w", err)
	}
	if err := utils.SafeWriteFile(s.Path(FeaturesFile), buf.Bytes()); err != nil {
		return err
	}
	s.Features = FeaturesFile
	s.UpdatedAt = time.Now()
	return nil
}

// AddRun appends a run, assigning an id and timestamp when missing.
func (s *Study) AddRun(r *Run) *Run {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	s.Runs = append(s.Runs, r)
	s.UpdatedAt = time.Now()
	return r
}

// LatestRun returns the most recent run of domain, or nil.
func (s *Study) LatestRun(domain string) *Run {
	for i := len(s.Runs) - 1; i >= 0; i-- {
		if s.Runs[i].Domain == domain {
			return s.Runs[i]
		}
	}
	return nil
}

// Domains lists the clustered domains in first-run order.
func (s *Study) Domains() []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range s.Runs {
		if !seen[r.Domain] {
			seen[r.Domain] = true
			out = append(out, r.Domain)
		}
	}
	return out
}
