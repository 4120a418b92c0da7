package cmd

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/trajclust/internal/cohort"
	"github.com/KaramelBytes/trajclust/internal/longitudinal"
	"github.com/KaramelBytes/trajclust/internal/report"
	"github.com/KaramelBytes/trajclust/internal/study"
)

var (
	clusterDomain   string
	clusterMetric   string
	clusterK        int
	clusterStudy    string
	clusterFeatures string
	clusterOutDir   string
	clusterInput    inputFlags
)

var clusterCmd = &cobra.Command{
	Use:   "cluster <file>",
	Short: "Cluster a domain and store the size-ordered labels in a study",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := settings()
		if err != nil {
			return err
		}
		if clusterDomain == "" {
			return fmt.Errorf("--domain is required")
		}
		if clusterK < 1 {
			return fmt.Errorf("-k must be at least 1")
		}
		metric, err := metricOrDefault(clusterMetric, c)
		if err != nil {
			return err
		}
		s, err := loadStudyByName(clusterStudy)
		if err != nil {
			return err
		}
		long, err := clusterInput.load(args[0])
		if err != nil {
			return err
		}

		// Feature table: explicit file, else the study's own, else the long table.
		var features *cohort.Table
		switch {
		case clusterFeatures != "":
			if features, err = clusterInput.load(clusterFeatures); err != nil {
				return err
			}
		default:
			features, err = s.LoadFeatures(cohort.DefaultOptions())
			if errors.Is(err, study.ErrNoFeatures) {
				features, err = long, nil
			}
			if err != nil {
				return err
			}
		}

		logger := newLogger()
		driver := longitudinal.NewDriver(c.Settings(), logger)
		out, err := driver.Run(cmd.Context(), long, features, longitudinal.Request{
			Domain:  clusterDomain,
			K:       clusterK,
			Metric:  metric,
			Columns: c.Columns(),
		})
		if err != nil {
			return err
		}
		if dropped := features.Len() - out.Features.Len(); dropped > 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "⚠ Warning: %d feature rows have no %s label and were dropped\n", dropped, clusterDomain)
		}

		dir := clusterOutDir
		if dir == "" {
			dir = s.Path("figures")
		}
		fig, err := report.ClusterPanels(out.Dataset, out.Labels, out.Centroids, report.DefaultPanelOptions())
		if err != nil {
			return err
		}
		figPath, err := figurePath(dir, fmt.Sprintf("%s_%s_k%d", clusterDomain, metric, clusterK), c)
		if err != nil {
			return err
		}
		if err := fig.Save(figPath, c.PlotWidthIn, c.PlotHeightIn*float64(clusterK)/2); err != nil {
			return err
		}

		if err := s.SetFeatures(out.Features); err != nil {
			return err
		}
		run := s.AddRun(&study.Run{
			Domain:  clusterDomain,
			Metric:  string(metric),
			K:       clusterK,
			Seed:    c.Seed,
			Inertia: out.Result.Inertia,
			Sizes:   out.Sizes(),
			Column:  out.Key.Name(),
			Source:  filepath.Base(args[0]),
			Figure:  figPath,
		})
		if err := s.Save(); err != nil {
			return err
		}
		logger.Debug("run recorded", "study", s.Name, "run", run.ID)

		w := cmd.OutOrStdout()
		fmt.Fprint(w, report.RunMarkdown(out, metric))
		fmt.Fprintf(w, "✓ Stored %s in study '%s' (run %s)\n", out.Key.Name(), s.Name, run.ID)
		fmt.Fprintf(w, "✓ Saved clusters to %s\n", figPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(clusterCmd)
	clusterCmd.Flags().StringVar(&clusterDomain, "domain", "", "domain score column to cluster")
	clusterCmd.Flags().StringVar(&clusterMetric, "metric", "", "euclidean | dtw | softdtw (default from config)")
	clusterCmd.Flags().IntVarP(&clusterK, "clusters", "k", 0, "number of clusters")
	clusterCmd.Flags().StringVarP(&clusterStudy, "study", "s", "", "study that receives the labels (default: the study enclosing the working directory)")
	clusterCmd.Flags().StringVar(&clusterFeatures, "features", "", "feature table to label (default: the study's, else the input table)")
	clusterCmd.Flags().StringVar(&clusterOutDir, "out", "", "directory for figures (default: <study>/figures)")
	clusterInput.register(clusterCmd)
}
