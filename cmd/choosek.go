package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/trajclust/internal/cohort"
	"github.com/KaramelBytes/trajclust/internal/longitudinal"
	"github.com/KaramelBytes/trajclust/internal/report"
	"github.com/KaramelBytes/trajclust/internal/tsclust"
)

var (
	chooseDomain       string
	chooseMetric       string
	chooseMaxClusters  int
	choosePlotClusters bool
	chooseOutDir       string
	chooseInput        inputFlags
)

var chooseKCmd = &cobra.Command{
	Use:   "choose-k <file>",
	Short: "Score k = 2..max-1 clusters by silhouette to help pick k",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := settings()
		if err != nil {
			return err
		}
		if chooseDomain == "" {
			return fmt.Errorf("--domain is required")
		}
		metric, err := metricOrDefault(chooseMetric, c)
		if err != nil {
			return err
		}
		maxClusters := chooseMaxClusters
		if maxClusters <= 0 {
			maxClusters = c.MaxClusters
		}
		if choosePlotClusters && chooseOutDir == "" {
			return fmt.Errorf("--out is required with --plot-clusters")
		}
		long, err := chooseInput.load(args[0])
		if err != nil {
			return err
		}
		ds, err := cohort.Reshape(long, chooseDomain, c.Columns())
		if err != nil {
			return err
		}

		driver := longitudinal.NewDriver(c.Settings(), newLogger())
		var onResult longitudinal.ResultFunc
		if choosePlotClusters {
			onResult = func(k int, ds *cohort.Dataset, res *tsclust.Result) error {
				fig, err := report.ClusterPanels(ds, res.Labels, res.Centroids, report.DefaultPanelOptions())
				if err != nil {
					return err
				}
				path, err := figurePath(chooseOutDir, fmt.Sprintf("%s_%s_k%d", chooseDomain, metric, k), c)
				if err != nil {
					return err
				}
				if err := fig.Save(path, c.PlotWidthIn, c.PlotHeightIn*float64(k)/2); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Saved clusters for k=%d to %s\n", k, path)
				return nil
			}
		}
		scores, err := driver.ChooseK(cmd.Context(), ds, maxClusters, metric, onResult)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), report.ScoresMarkdown(chooseDomain, metric, scores))
		if chooseOutDir != "" && len(scores) > 0 {
			fig, err := report.SilhouetteCurve(scores, metric)
			if err != nil {
				return err
			}
			path, err := figurePath(chooseOutDir, fmt.Sprintf("%s_%s_silhouette", chooseDomain, metric), c)
			if err != nil {
				return err
			}
			if err := fig.Save(path, c.PlotWidthIn, c.PlotHeightIn); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Saved silhouette curve to %s\n", path)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chooseKCmd)
	chooseKCmd.Flags().StringVar(&chooseDomain, "domain", "", "domain score column to cluster")
	chooseKCmd.Flags().StringVar(&chooseMetric, "metric", "", "euclidean | dtw | softdtw (default from config)")
	chooseKCmd.Flags().IntVar(&chooseMaxClusters, "max-clusters", 0, "exclusive upper bound of k (default from config)")
	chooseKCmd.Flags().BoolVar(&choosePlotClusters, "plot-clusters", false, "save a cluster figure for every k")
	chooseKCmd.Flags().StringVar(&chooseOutDir, "out", "", "directory for figures")
	chooseInput.register(chooseKCmd)
}
