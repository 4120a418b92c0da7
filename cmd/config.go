package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/trajclust/internal/config"
	"github.com/KaramelBytes/trajclust/internal/tsclust"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set trajclust configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := settings()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "patient_column: %s\n", c.PatientColumn)
		fmt.Fprintf(out, "time_column: %s\n", c.TimeColumn)
		fmt.Fprintf(out, "weeks_column: %s\n", c.WeeksColumn)
		fmt.Fprintf(out, "baseline_time: %s\n", c.BaselineTime)
		fmt.Fprintf(out, "default_metric: %s\n", c.DefaultMetric)
		fmt.Fprintf(out, "max_clusters: %d\n", c.MaxClusters)
		fmt.Fprintf(out, "max_iter: %d\n", c.MaxIter)
		fmt.Fprintf(out, "max_iter_barycenter: %d\n", c.MaxIterBarycenter)
		fmt.Fprintf(out, "tol: %g\n", c.Tol)
		fmt.Fprintf(out, "n_init: %d\n", c.NInit)
		fmt.Fprintf(out, "seed: %d\n", c.Seed)
		fmt.Fprintf(out, "softdtw_gamma: %g\n", c.SoftDTWGamma)
		if c.DTWWindow > 0 {
			fmt.Fprintf(out, "dtw_window: %d\n", c.DTWWindow)
		}
		fmt.Fprintf(out, "studies_dir: %s\n", c.StudiesDir)
		fmt.Fprintf(out, "plot_width_in: %g\n", c.PlotWidthIn)
		fmt.Fprintf(out, "plot_height_in: %g\n", c.PlotHeightIn)
		fmt.Fprintf(out, "plot_format: %s\n", c.PlotFormat)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		c, err := settings()
		if err != nil {
			return err
		}
		if err := setKey(c, key, val); err != nil {
			return err
		}
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func setKey(c *cfgpkg.Global, key, val string) error {
	switch key {
	case "patient_column":
		c.PatientColumn = val
	case "time_column":
		c.TimeColumn = val
	case "weeks_column":
		c.WeeksColumn = val
	case "baseline_time":
		c.BaselineTime = val
	case "default_metric":
		m, err := tsclust.ParseMetric(val)
		if err != nil {
			return fmt.Errorf("invalid default_metric: %w", err)
		}
		c.DefaultMetric = string(m)
	case "max_clusters":
		i, err := strconv.Atoi(val)
		if err != nil || i < 3 {
			return fmt.Errorf("invalid int for max_clusters: %v (need >= 3)", val)
		}
		c.MaxClusters = i
	case "max_iter", "max_iter_barycenter", "n_init", "dtw_window":
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return fmt.Errorf("invalid int for %s: %v", key, val)
		}
		switch key {
		case "max_iter":
			c.MaxIter = i
		case "max_iter_barycenter":
			c.MaxIterBarycenter = i
		case "n_init":
			c.NInit = i
		case "dtw_window":
			c.DTWWindow = i
		}
	case "seed":
		i, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid int for seed: %w", err)
		}
		c.Seed = i
	case "tol", "softdtw_gamma", "plot_width_in", "plot_height_in":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil || f <= 0 {
			return fmt.Errorf("invalid float for %s: %v", key, val)
		}
		switch key {
		case "tol":
			c.Tol = f
		case "softdtw_gamma":
			c.SoftDTWGamma = f
		case "plot_width_in":
			c.PlotWidthIn = f
		case "plot_height_in":
			c.PlotHeightIn = f
		}
	case "plot_format":
		switch val {
		case "png", "svg", "pdf", "jpg", "jpeg", "tif", "tiff", "eps":
			c.PlotFormat = val
		default:
			return fmt.Errorf("invalid plot_format: %s (use png, svg or pdf)", val)
		}
	case "studies_dir":
		c.StudiesDir = val
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
