package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Clip order values.
const (
	ClipBeforeFilter = "before_filter"
	ClipAfterFilter  = "after_filter"
)

// Global configuration structure.
type Global struct {
	// Dataset
	DataPath    string `mapstructure:"data_path" yaml:"data_path"`
	Delimiter   string `mapstructure:"delimiter" yaml:"delimiter"`
	SheetName   string `mapstructure:"sheet_name" yaml:"sheet_name"`
	PreviewRows int    `mapstructure:"preview_rows" yaml:"preview_rows"`

	// Charts
	TopN              int     `mapstructure:"top_n" yaml:"top_n"`
	HistogramBins     int     `mapstructure:"histogram_bins" yaml:"histogram_bins"`
	PriceClipLow      float64 `mapstructure:"price_clip_low" yaml:"price_clip_low"`
	PriceClipHigh     float64 `mapstructure:"price_clip_high" yaml:"price_clip_high"`
	DaysClipHigh      float64 `mapstructure:"days_clip_high" yaml:"days_clip_high"`
	PriceViewQuantile float64 `mapstructure:"price_view_quantile" yaml:"price_view_quantile"`
	ClipOrder         string  `mapstructure:"clip_order" yaml:"clip_order"`

	// Exports
	OutputDir   string `mapstructure:"output_dir" yaml:"output_dir"`
	ChartWidth  int    `mapstructure:"chart_width" yaml:"chart_width"`
	ChartHeight int    `mapstructure:"chart_height" yaml:"chart_height"`
}

// Keys lists the settable keys in display order.
func Keys() []string {
	return []string{
		"data_path", "delimiter", "sheet_name", "preview_rows",
		"top_n", "histogram_bins", "price_clip_low", "price_clip_high", "days_clip_high",
		"price_view_quantile", "clip_order",
		"output_dir", "chart_width", "chart_height",
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_path", "vehicles_us.csv")
	v.SetDefault("delimiter", "")
	v.SetDefault("sheet_name", "")
	v.SetDefault("preview_rows", 5)
	v.SetDefault("top_n", 10)
	v.SetDefault("histogram_bins", 50)
	v.SetDefault("price_clip_low", 0.01)
	v.SetDefault("price_clip_high", 0.99)
	v.SetDefault("days_clip_high", 0.99)
	v.SetDefault("price_view_quantile", 0.95)
	v.SetDefault("clip_order", ClipBeforeFilter)
	v.SetDefault("output_dir", "")
	v.SetDefault("chart_width", 1000)
	v.SetDefault("chart_height", 500)
}

// Dir returns ~/.carlens.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".carlens"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.carlens/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	var path string
	if cfgFile != "" {
		path = cfgFile
	} else {
		dir, err := Dir()
		if err != nil {
			return err
		}
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
// A .env file in the working directory is loaded into the environment first;
// variables already set are not overridden.
func Load(cfgFile string) (*Global, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("CARLENS")
	v.AutomaticEnv()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	// Resolve output_dir default: ~/.carlens/exports
	if c.OutputDir == "" {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		c.OutputDir = filepath.Join(dir, "exports")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks ranges and enumerations.
func (c *Global) Validate() error {
	for _, q := range []struct {
		key string
		val float64
	}{
		{"price_clip_low", c.PriceClipLow},
		{"price_clip_high", c.PriceClipHigh},
		{"days_clip_high", c.DaysClipHigh},
		{"price_view_quantile", c.PriceViewQuantile},
	} {
		if q.val < 0 || q.val > 1 {
			return fmt.Errorf("invalid %s: %v (must be within [0,1])", q.key, q.val)
		}
	}
	if c.PriceClipLow > c.PriceClipHigh {
		return fmt.Errorf("invalid price clip: low %v exceeds high %v", c.PriceClipLow, c.PriceClipHigh)
	}
	switch c.ClipOrder {
	case ClipBeforeFilter, ClipAfterFilter:
	default:
		return fmt.Errorf("invalid clip_order: %s (use %s or %s)", c.ClipOrder, ClipBeforeFilter, ClipAfterFilter)
	}
	if c.HistogramBins <= 0 {
		return fmt.Errorf("invalid histogram_bins: %d (must be positive)", c.HistogramBins)
	}
	if c.TopN < 0 || c.PreviewRows < 0 {
		return errors.New("top_n and preview_rows must not be negative")
	}
	if _, err := c.DelimiterRune(); err != nil {
		return err
	}
	return nil
}

// DelimiterRune resolves the delimiter setting. "" means by file extension;
// "tab" and "\t" select a tab.
func (c *Global) DelimiterRune() (rune, error) {
	switch strings.ToLower(c.Delimiter) {
	case "":
		return 0, nil
	case "tab", `\t`, "\t":
		return '\t', nil
	}
	r := []rune(c.Delimiter)
	if len(r) != 1 {
		return 0, fmt.Errorf("invalid delimiter: %q (use a single character or \"tab\")", c.Delimiter)
	}
	return r[0], nil
}
