package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/trajclust/internal/study"
	"github.com/KaramelBytes/trajclust/internal/utils"
)

var (
	initDescription string
)

var initCmd = &cobra.Command{
	Use:   "init <study-name>",
	Short: "Initialize a new clustering study",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		root, err := defaultStudiesDir()
		if err != nil {
			return err
		}
		dir := filepath.Join(root, name)
		// Refuse to overwrite an existing study.
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			if study.IsStudyDir(dir) {
				return fmt.Errorf("study already exists at %s", dir)
			}
			entries, err := os.ReadDir(dir)
			if err != nil {
				return fmt.Errorf("inspect study directory: %w", err)
			}
			if len(entries) > 0 {
				return fmt.Errorf("directory %s already exists and is not empty; refusing to initialize study", dir)
			}
		} else if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("stat study directory: %w", err)
		}
		if err := utils.EnsureDir(dir); err != nil {
			return err
		}
		s := study.New(name, initDescription, dir)
		if err := s.Save(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Study initialized: %s\n", dir)
		return nil
	},
}

func defaultStudiesDir() (string, error) {
	c, err := settings()
	if err == nil && c.StudiesDir != "" {
		dir := c.StudiesDir
		if strings.HasPrefix(dir, "~") {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("resolve home dir: %w", err)
			}
			dir = strings.TrimPrefix(dir, "~")
			dir = strings.TrimPrefix(dir, string(os.PathSeparator))
			dir = strings.TrimPrefix(dir, "/")
			dir = filepath.Join(home, dir)
		}
		dir = filepath.Clean(dir)
		if err := utils.EnsureDir(dir); err != nil {
			return "", err
		}
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	dir := filepath.Join(home, ".trajclust", "studies")
	if err := utils.EnsureDir(dir); err != nil {
		return "", err
	}
	return dir, nil
}

func resolveStudyDirByName(name string) (string, error) {
	if name == "" {
		return "", errors.New("study name is required")
	}
	root, err := defaultStudiesDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, name), nil
}

// loadStudyByName loads a study from the studies dir. Without a name it uses
// the study enclosing the working directory.
func loadStudyByName(name string) (*study.Study, error) {
	if name == "" {
		dir, err := study.FindRoot("")
		if err != nil {
			return nil, fmt.Errorf("--study not given: %w", err)
		}
		return study.Load(dir)
	}
	dir, err := resolveStudyDirByName(name)
	if err != nil {
		return nil, err
	}
	return study.Load(dir)
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringVarP(&initDescription, "desc", "d", "", "study description")
}
