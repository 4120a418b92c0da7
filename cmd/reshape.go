package cmd

import (
	"bytes"
	"fmt"
	"io"
	"math"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/trajclust/internal/cohort"
	"github.com/KaramelBytes/trajclust/internal/utils"
)

var (
	reshapeDomain string
	reshapeOutput string
	reshapeInput  inputFlags
)

var reshapeCmd = &cobra.Command{
	Use:   "reshape <file>",
	Short: "Reshape a long-format table into one row per patient",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := settings()
		if err != nil {
			return err
		}
		if reshapeDomain == "" {
			return fmt.Errorf("--domain is required")
		}
		long, err := reshapeInput.load(args[0])
		if err != nil {
			return err
		}
		ds, err := cohort.Reshape(long, reshapeDomain, c.Columns())
		if err != nil {
			return err
		}
		p, v, ch := ds.Shape()
		if ds.HasMissing() {
			fmt.Fprintf(cmd.ErrOrStderr(), "⚠ Warning: %s has missing values; clustering will reject them\n", reshapeDomain)
		}
		var buf bytes.Buffer
		if err := ds.WideTable(c.PatientColumn).WriteCSV(&buf); err != nil {
			return err
		}
		if reshapeOutput == "" {
			_, err := cmd.OutOrStdout().Write(buf.Bytes())
			return err
		}
		if err := utils.SafeWriteFile(reshapeOutput, buf.Bytes()); err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "✓ Wrote %d patients x %d visits x %d channel(s) to %s\n", p, v, ch, reshapeOutput)
		writeVisitSummary(w, ds)
		return nil
	},
}

// writeVisitSummary prints the observed count and mean of every wide column.
func writeVisitSummary(w io.Writer, ds *cohort.Dataset) {
	m := ds.Matrix()
	_, cols := m.Dims()
	names := ds.WideTable("").Columns[1:]
	fmt.Fprintln(w, "\n[VISITS]")
	for j := 0; j < cols; j++ {
		var vals []float64
		for _, x := range mat.Col(nil, j, m) {
			if !math.IsNaN(x) {
				vals = append(vals, x)
			}
		}
		if len(vals) == 0 {
			fmt.Fprintf(w, "- %s: n=0\n", names[j])
			continue
		}
		fmt.Fprintf(w, "- %s: n=%d mean=%.3g\n", names[j], len(vals), stat.Mean(vals, nil))
	}
}

func init() {
	rootCmd.AddCommand(reshapeCmd)
	reshapeCmd.Flags().StringVar(&reshapeDomain, "domain", "", "domain score column to reshape")
	reshapeCmd.Flags().StringVarP(&reshapeOutput, "output", "o", "", "write the wide table (CSV) here instead of stdout")
	reshapeInput.register(reshapeCmd)
}
