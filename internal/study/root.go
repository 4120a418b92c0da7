package study

import (
	"errors"
	"os"
	"path/filepath"
)

// MetaFile is the metadata file that marks a study directory.
const MetaFile = "study.json"

// ErrNoStudy is returned by FindRoot when no enclosing directory holds MetaFile.
var ErrNoStudy = errors.New("no study.json in this directory or any parent")

// IsStudyDir reports whether dir holds a study.json.
func IsStudyDir(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, MetaFile))
	return err == nil && !info.IsDir()
}

// FindRoot walks up from start to the nearest study directory. An empty start
// means the working directory; a file start begins at its parent.
func FindRoot(start string) (string, error) {
	if start == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		start = wd
	}
	info, err := os.Stat(start)
	if err != nil {
		return "", err
	}
	dir := start
	if !info.IsDir() {
		dir = filepath.Dir(start)
	}
	for !IsStudyDir(dir) {
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNoStudy
		}
		dir = parent
	}
	return dir, nil
}
