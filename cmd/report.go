package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/trajclust/internal/cohort"
	"github.com/KaramelBytes/trajclust/internal/report"
)

var (
	reportStudy  string
	reportDomain string
	reportOutDir string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render trend and overview figures for a clustered domain",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := settings()
		if err != nil {
			return err
		}
		if reportDomain == "" {
			return fmt.Errorf("--domain is required")
		}
		s, err := loadStudyByName(reportStudy)
		if err != nil {
			return err
		}
		features, err := s.LoadFeatures(cohort.DefaultOptions())
		if err != nil {
			return err
		}
		key := cohort.LabelKey(reportDomain)
		if !features.Has(key.Name()) {
			return fmt.Errorf("study '%s' has no %s column; run cluster first", s.Name, key.Name())
		}
		dir := reportOutDir
		if dir == "" {
			dir = s.Path("figures")
		}

		trend, err := report.ClusterTrend(features, reportDomain, key, c.Columns())
		if err != nil {
			return err
		}
		overview, err := report.ClusterOverview(features, reportDomain, key, c.Columns())
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		for _, f := range []struct {
			name   string
			fig    *report.Figure
			width  float64
			height float64
		}{
			{reportDomain + "_trend", trend, c.PlotWidthIn, c.PlotHeightIn},
			{reportDomain + "_overview", overview, c.PlotWidthIn * 1.5, c.PlotHeightIn * 2},
		} {
			path, err := figurePath(dir, f.name, c)
			if err != nil {
				return err
			}
			if err := f.fig.Save(path, f.width, f.height); err != nil {
				return err
			}
			fmt.Fprintf(w, "✓ Saved %s\n", path)
		}
		if r := s.LatestRun(reportDomain); r != nil {
			fmt.Fprintf(w, "Latest run: %s k=%d metric=%s sizes=%v\n", r.ID, r.K, r.Metric, r.Sizes)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringVarP(&reportStudy, "study", "s", "", "study name (default: the study enclosing the working directory)")
	reportCmd.Flags().StringVar(&reportDomain, "domain", "", "clustered domain to report on")
	reportCmd.Flags().StringVar(&reportOutDir, "out", "", "directory for figures (default: <study>/figures)")
}
