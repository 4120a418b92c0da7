package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/trajclust/internal/cohort"
	"github.com/KaramelBytes/trajclust/internal/report"
)

var (
	compareStudy  string
	compareA      string
	compareB      string
	compareTitle  string
	compareDomain string
	compareOutDir string
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare two clusterings stored in a study",
	Long: `Cross-tabulates two label columns on the baseline visit and renders the counts
and row/column shares as heatmaps. --a and --b accept a column name or a clustered
domain. With --domain, also draws per-patient lines coloured by --a and dashed by --b.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := settings()
		if err != nil {
			return err
		}
		if compareA == "" || compareB == "" {
			return fmt.Errorf("--a and --b are required")
		}
		s, err := loadStudyByName(compareStudy)
		if err != nil {
			return err
		}
		features, err := s.LoadFeatures(cohort.DefaultOptions())
		if err != nil {
			return err
		}
		a, b := labelColumn(features, compareA), labelColumn(features, compareB)
		ct, err := report.CompareLabelings(features, a, b, c.Columns(), c.BaselineTime)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		fmt.Fprint(w, ct.Markdown())

		dir := compareOutDir
		if dir == "" {
			dir = s.Path("figures")
		}
		title := compareTitle
		if title == "" {
			title = a + " vs " + b
		}
		heat, err := report.ComparisonFigure(ct, title)
		if err != nil {
			return err
		}
		path, err := figurePath(dir, fmt.Sprintf("compare_%s_%s", compareA, compareB), c)
		if err != nil {
			return err
		}
		if err := heat.Save(path, c.PlotWidthIn*2.5, c.PlotHeightIn); err != nil {
			return err
		}
		fmt.Fprintf(w, "✓ Saved %s\n", path)

		if compareDomain != "" {
			lines, err := report.LineComparison(features, compareDomain, a, b, c.Columns())
			if err != nil {
				return err
			}
			path, err := figurePath(dir, fmt.Sprintf("compare_%s_%s_%s_lines", compareA, compareB, compareDomain), c)
			if err != nil {
				return err
			}
			if err := lines.Save(path, c.PlotWidthIn*1.5, c.PlotHeightIn*1.5); err != nil {
				return err
			}
			fmt.Fprintf(w, "✓ Saved %s\n", path)
		}
		return nil
	},
}

// labelColumn resolves a domain name to its label column when the table has
// no column of that name.
func labelColumn(t *cohort.Table, name string) string {
	if key := cohort.LabelKey(name); !t.Has(name) && t.Has(key.Name()) {
		return key.Name()
	}
	return name
}

func init() {
	rootCmd.AddCommand(compareCmd)
	compareCmd.Flags().StringVarP(&compareStudy, "study", "s", "", "study name (default: the study enclosing the working directory)")
	compareCmd.Flags().StringVar(&compareA, "a", "", "first labeling: column or clustered domain (heatmap rows)")
	compareCmd.Flags().StringVar(&compareB, "b", "", "second labeling: column or clustered domain (heatmap columns)")
	compareCmd.Flags().StringVar(&compareTitle, "title", "", "figure title")
	compareCmd.Flags().StringVar(&compareDomain, "domain", "", "also draw per-patient lines of this domain")
	compareCmd.Flags().StringVar(&compareOutDir, "out", "", "directory for figures (default: <study>/figures)")
}
