package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/trajclust/internal/cohort"
	"github.com/KaramelBytes/trajclust/internal/longitudinal"
	"github.com/KaramelBytes/trajclust/internal/tsclust"
)

const appDir = ".trajclust"

// Global configuration structure.
type Global struct {
	// Column layout of long-format tables
	PatientColumn string `mapstructure:"patient_column" yaml:"patient_column"`
	TimeColumn    string `mapstructure:"time_column" yaml:"time_column"`
	WeeksColumn   string `mapstructure:"weeks_column" yaml:"weeks_column"`
	BaselineTime  string `mapstructure:"baseline_time" yaml:"baseline_time"`

	// Clustering
	DefaultMetric     string  `mapstructure:"default_metric" yaml:"default_metric"`
	MaxClusters       int     `mapstructure:"max_clusters" yaml:"max_clusters"`
	MaxIter           int     `mapstructure:"max_iter" yaml:"max_iter"`
	MaxIterBarycenter int     `mapstructure:"max_iter_barycenter" yaml:"max_iter_barycenter"`
	Tol               float64 `mapstructure:"tol" yaml:"tol"`
	NInit             int     `mapstructure:"n_init" yaml:"n_init"`
	Seed              int64   `mapstructure:"seed" yaml:"seed"`
	SoftDTWGamma      float64 `mapstructure:"softdtw_gamma" yaml:"softdtw_gamma"`
	DTWWindow         int     `mapstructure:"dtw_window" yaml:"dtw_window"`

	StudiesDir string `mapstructure:"studies_dir" yaml:"studies_dir"`

	// Figures
	PlotWidthIn  float64 `mapstructure:"plot_width_in" yaml:"plot_width_in"`
	PlotHeightIn float64 `mapstructure:"plot_height_in" yaml:"plot_height_in"`
	PlotFormat   string  `mapstructure:"plot_format" yaml:"plot_format"`
}

// Columns returns the configured long-format column names.
func (c *Global) Columns() cohort.Columns {
	return cohort.Columns{Patient: c.PatientColumn, Time: c.TimeColumn, Weeks: c.WeeksColumn}
}

// Settings returns the clustering settings derived from the configuration.
func (c *Global) Settings() longitudinal.Settings {
	s := longitudinal.DefaultSettings()
	s.MaxIter = c.MaxIter
	s.MaxIterBarycenter = c.MaxIterBarycenter
	s.Tol = c.Tol
	s.NInit = c.NInit
	s.Seed = c.Seed
	s.Params = tsclust.Params{Gamma: c.SoftDTWGamma, Window: c.DTWWindow}
	return s
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.trajclust/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	var path string
	if cfgFile != "" {
		path = cfgFile
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve home dir: %w", err)
		}
		dir := filepath.Join(home, appDir)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("TRAJCLUST")
	v.AutomaticEnv()

	cols := cohort.DefaultColumns()
	v.SetDefault("patient_column", cols.Patient)
	v.SetDefault("time_column", cols.Time)
	v.SetDefault("weeks_column", cols.Weeks)
	v.SetDefault("baseline_time", "1")

	s := longitudinal.DefaultSettings()
	v.SetDefault("default_metric", string(tsclust.DTW))
	v.SetDefault("max_clusters", 8)
	v.SetDefault("max_iter", s.MaxIter)
	v.SetDefault("max_iter_barycenter", s.MaxIterBarycenter)
	v.SetDefault("tol", s.Tol)
	v.SetDefault("n_init", s.NInit)
	v.SetDefault("seed", s.Seed)
	v.SetDefault("softdtw_gamma", s.Params.Gamma)
	v.SetDefault("dtw_window", 0)

	v.SetDefault("plot_width_in", 8.0)
	v.SetDefault("plot_height_in", 5.0)
	v.SetDefault("plot_format", "png")
	v.SetDefault("studies_dir", "")

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		dir := filepath.Join(home, appDir)
		_ = os.MkdirAll(dir, 0o755)
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	// Resolve studies_dir default: ~/.trajclust/studies
	if c.StudiesDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		c.StudiesDir = filepath.Join(home, appDir, "studies")
	}
	return &c, nil
}
