package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/trajclust/internal/cohort"
)

var (
	studyName string
)

var studyCmd = &cobra.Command{
	Use:   "study",
	Short: "Inspect or edit a study",
}

var studyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show a study's feature table and latest run per domain",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadStudyByName(studyName)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "[STUDY]\nName: %s\n", s.Name)
		if s.Description != "" {
			fmt.Fprintf(w, "Description: %s\n", s.Description)
		}
		fmt.Fprintf(w, "Directory: %s\n", s.RootDir())
		if features, err := s.LoadFeatures(cohort.DefaultOptions()); err == nil {
			fmt.Fprintf(w, "Features: %s (%d rows; columns: %s)\n", s.Features, features.Len(), strings.Join(features.Columns, ", "))
		} else {
			fmt.Fprintln(w, "Features: (none)")
		}
		domains := s.Domains()
		if len(domains) == 0 {
			return nil
		}
		fmt.Fprintln(w, "\n[LATEST RUNS]")
		for _, d := range domains {
			r := s.LatestRun(d)
			fmt.Fprintf(w, "- %s: k=%d metric=%s sizes=%v inertia=%.4g\n", d, r.K, r.Metric, r.Sizes, r.Inertia)
		}
		return nil
	},
}

var studyDescribeCmd = &cobra.Command{
	Use:   "describe <description>",
	Short: "Set a study's description",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadStudyByName(studyName)
		if err != nil {
			return err
		}
		s.Description = strings.TrimSpace(args[0])
		if err := s.Save(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Updated description of '%s'\n", s.Name)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(studyCmd)
	studyCmd.AddCommand(studyShowCmd)
	studyCmd.AddCommand(studyDescribeCmd)
	studyCmd.PersistentFlags().StringVarP(&studyName, "study", "s", "", "study name (default: the study enclosing the working directory)")
}
