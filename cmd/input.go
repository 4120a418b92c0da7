package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/trajclust/internal/cohort"
	cfgpkg "github.com/KaramelBytes/trajclust/internal/config"
	"github.com/KaramelBytes/trajclust/internal/tsclust"
)

// inputFlags are the table reading flags shared by commands that take a long table.
type inputFlags struct {
	delimiter  string
	decimal    string
	thousands  string
	maxRows    int
	sheetName  string
	sheetIndex int
}

func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.delimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab'")
	cmd.Flags().StringVar(&f.decimal, "decimal", "", "decimal separator for numbers: '.'|'comma' (auto-detect if omitted)")
	cmd.Flags().StringVar(&f.thousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space' (auto-detect if omitted)")
	cmd.Flags().IntVar(&f.maxRows, "max-rows", 0, "maximum rows to read (0 = unlimited)")
	cmd.Flags().StringVar(&f.sheetName, "sheet-name", "", "XLSX: sheet name to read")
	cmd.Flags().IntVar(&f.sheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
}

func (f *inputFlags) options() (cohort.Options, error) {
	opt := cohort.DefaultOptions()
	opt.MaxRows = f.maxRows
	opt.SheetName = f.sheetName
	if f.sheetIndex > 0 {
		opt.SheetIndex = f.sheetIndex
	}
	switch f.delimiter {
	case "":
	case ",":
		opt.Delimiter = ','
	case "\t", "tab":
		opt.Delimiter = '\t'
	case ";":
		opt.Delimiter = ';'
	default:
		return opt, fmt.Errorf("unsupported --delimiter: %s", f.delimiter)
	}
	// Locale separators
	switch strings.ToLower(strings.TrimSpace(f.decimal)) {
	case ",", "comma":
		opt.DecimalSeparator = ','
	case ".", "dot":
		opt.DecimalSeparator = '.'
	case "":
	default:
		return opt, fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", f.decimal)
	}
	switch strings.ToLower(strings.TrimSpace(f.thousands)) {
	case ",":
		opt.ThousandsSeparator = ','
	case ".":
		opt.ThousandsSeparator = '.'
	case "space", " ":
		opt.ThousandsSeparator = ' '
	case "":
	default:
		return opt, fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", f.thousands)
	}
	return opt, nil
}

// load reads a CSV/TSV/XLSX table with the flag options.
func (f *inputFlags) load(path string) (*cohort.Table, error) {
	opt, err := f.options()
	if err != nil {
		return nil, err
	}
	t, err := cohort.Load(path, opt)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", filepath.Base(path), err)
	}
	return t, nil
}

// settings returns the loaded configuration, loading it on first use.
func settings() (*cfgpkg.Global, error) {
	if cfg != nil {
		return cfg, nil
	}
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	cfg = c
	return cfg, nil
}

// metricOrDefault parses the --metric flag, falling back to default_metric.
func metricOrDefault(flag string, c *cfgpkg.Global) (tsclust.Metric, error) {
	if strings.TrimSpace(flag) == "" {
		flag = c.DefaultMetric
	}
	return tsclust.ParseMetric(flag)
}

// newLogger logs to stderr at debug level under --debug and info otherwise.
func newLogger() *slog.Logger {
	return newLoggerTo(os.Stderr)
}

func newLoggerTo(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// figurePath builds <dir>/<name>.<format>, creating dir.
func figurePath(dir, name string, c *cfgpkg.Global) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	format := strings.TrimPrefix(strings.ToLower(c.PlotFormat), ".")
	if format == "" {
		format = "png"
	}
	return filepath.Join(dir, name+"."+format), nil
}
