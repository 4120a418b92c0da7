package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/trajclust/internal/study"
)

var (
	listStudies   bool
	listRuns      bool
	listStudyName string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List studies or clustering runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		if listStudies == listRuns { // either both true or both false
			return fmt.Errorf("specify exactly one of --studies or --runs")
		}
		out := cmd.OutOrStdout()
		if listStudies {
			return listAllStudies(cmd)
		}
		s, err := loadStudyByName(listStudyName)
		if err != nil {
			return err
		}
		if len(s.Runs) == 0 {
			fmt.Fprintln(out, "(no runs)")
			return nil
		}
		for _, r := range s.Runs {
			fmt.Fprintf(out, "- %s: %s k=%d metric=%s sizes=%v (%s)\n",
				r.ID, r.Domain, r.K, r.Metric, r.Sizes, r.CreatedAt.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

func listAllStudies(cmd *cobra.Command) error {
	root, err := defaultStudiesDir()
	if err != nil {
		return err
	}
	dirs, err := os.ReadDir(root)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	found := false
	for _, e := range dirs {
		if !e.IsDir() {
			continue
		}
		if study.IsStudyDir(filepath.Join(root, e.Name())) {
			fmt.Fprintf(out, "- %s\n", e.Name())
			found = true
		}
	}
	if !found {
		fmt.Fprintln(out, "(no studies)")
	}
	return nil
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listStudies, "studies", false, "list studies")
	listCmd.Flags().BoolVar(&listRuns, "runs", false, "list clustering runs of a study")
	listCmd.Flags().StringVarP(&listStudyName, "study", "s", "", "study name for --runs")
}
