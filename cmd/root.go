package cmd

import (
	"fmt"
	"os"
	"strings"

	cfgpkg "github.com/KaramelBytes/carlens/internal/config"
	"github.com/KaramelBytes/carlens/internal/dashboard"
	"github.com/KaramelBytes/carlens/internal/filter"
	"github.com/KaramelBytes/carlens/internal/loader"
	"github.com/KaramelBytes/carlens/internal/utils"
	"github.com/spf13/cobra"
)

var (
	// Global flags (override config if set)
	cfgFile       string
	debug         bool
	flagDataPath  string
	flagDelimiter string
	flagSheetName string

	// Loaded configuration
	cfg    *cfgpkg.Global
	cfgErr error
	logger = utils.Discard()
)

var rootCmd = &cobra.Command{
	Use:   "carlens",
	Short: "carlens: explore used-car listings from the terminal",
	Long: `carlens loads a used-car listings file (CSV, TSV or XLSX), cleans it once, and
renders brand, listing-duration, price and mileage views with optional filters
and percentile-based outlier clipping.`,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Initialize configuration before every command run
	cobra.OnInitialize(loadConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.carlens/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")
	rootCmd.PersistentFlags().StringVar(&flagDataPath, "data", "", "listings file to load (overrides data_path)")
	rootCmd.PersistentFlags().StringVar(&flagDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagSheetName, "sheet", "", "XLSX: sheet name to load (overrides config)")
}

func loadConfig() {
	logger = utils.NewLoggerTo(rootCmd.ErrOrStderr(), rootCmd.ErrOrStderr(), debug, false)
	cfg, cfgErr = nil, nil
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: allow running commands that don't need config
		cfgErr = err
		logger.Warn("failed to load config: %v", err)
		return
	}
	cfg = c

	// Apply CLI overrides if provided
	f := rootCmd.PersistentFlags()
	if f.Changed("data") && flagDataPath != "" {
		cfg.DataPath = flagDataPath
	}
	if f.Changed("delimiter") {
		cfg.Delimiter = flagDelimiter
	}
	if f.Changed("sheet") {
		cfg.SheetName = flagSheetName
	}
	logger.Debug("config loaded: data_path=%s clip_order=%s", cfg.DataPath, cfg.ClipOrder)
}

func requireConfig() error {
	if cfg != nil {
		return nil
	}
	if cfgErr != nil {
		return fmt.Errorf("config: %w", cfgErr)
	}
	return fmt.Errorf("no config loaded")
}

// loadDataset reads the configured listings file.
func loadDataset() (*loader.Result, error) {
	if err := requireConfig(); err != nil {
		return nil, err
	}
	path, err := utils.FindDataFile("", cfg.DataPath)
	if err != nil {
		return nil, fmt.Errorf("locate dataset %q: %w", cfg.DataPath, err)
	}
	delim, err := cfg.DelimiterRune()
	if err != nil {
		return nil, err
	}
	res, err := loader.Load(path, loader.Options{Delimiter: delim, SheetName: cfg.SheetName, SheetIndex: 1})
	if err != nil {
		return nil, err
	}
	logger.Debug("loaded %d rows from %s (%d duplicates)", res.Table.Len(), path, res.Cleaning.Duplicates)
	return res, nil
}

func newSession() (*dashboard.Session, error) {
	res, err := loadDataset()
	if err != nil {
		return nil, err
	}
	return dashboard.NewSession(res.Name, res.Table, logger), nil
}

// stateFromConfig returns the initial widget state seeded from config.
func stateFromConfig() dashboard.State {
	st := dashboard.DefaultState()
	if cfg == nil {
		return st
	}
	st.TopN = cfg.TopN
	st.Bins = cfg.HistogramBins
	st.PriceLow = cfg.PriceClipLow
	st.PriceHigh = cfg.PriceClipHigh
	st.DaysHigh = cfg.DaysClipHigh
	st.PriceView = cfg.PriceViewQuantile
	st.Preview = cfg.PreviewRows
	st.ClipAfterFilter = cfg.ClipOrder == cfgpkg.ClipAfterFilter
	return st
}

// stateFlags are the widget flags shared by chart and dashboard.
type stateFlags struct {
	filters   []string
	clip      []string
	clipOrder string
	brand     string
	topN      int
	bins      int
}

func (f *stateFlags) register(c *cobra.Command) {
	c.Flags().StringArrayVarP(&f.filters, "filter", "f", nil, "filter as column=value[,value...] (repeatable; 'All' leaves a column unconstrained)")
	c.Flags().StringSliceVar(&f.clip, "clip", nil, "enable outlier clipping: price, days (comma-separated)")
	c.Flags().StringVar(&f.clipOrder, "clip-order", "", "before_filter | after_filter (overrides config)")
	c.Flags().StringVar(&f.brand, "brand", "", "brand shown in the price/mileage scatter (default all)")
	c.Flags().IntVar(&f.topN, "top", 0, "number of brands in the frequency chart (overrides top_n)")
	c.Flags().IntVar(&f.bins, "bins", 0, "histogram bins (overrides histogram_bins)")
}

func (f *stateFlags) state() (dashboard.State, error) {
	st := stateFromConfig()
	spec, err := filter.ParseExpr(f.filters...)
	if err != nil {
		return st, err
	}
	st.Filters = spec
	if err := applyClip(&st, f.clip); err != nil {
		return st, err
	}
	switch f.clipOrder {
	case "":
	case cfgpkg.ClipBeforeFilter:
		st.ClipAfterFilter = false
	case cfgpkg.ClipAfterFilter:
		st.ClipAfterFilter = true
	default:
		return st, fmt.Errorf("invalid --clip-order: %s (use %s or %s)", f.clipOrder, cfgpkg.ClipBeforeFilter, cfgpkg.ClipAfterFilter)
	}
	if f.brand != "" {
		st.ScatterBrand = f.brand
	}
	if f.topN > 0 {
		st.TopN = f.topN
	}
	if f.bins > 0 {
		st.Bins = f.bins
	}
	return st, nil
}

func applyClip(st *dashboard.State, names []string) error {
	for _, n := range names {
		switch strings.ToLower(strings.TrimSpace(n)) {
		case "price":
			st.ClipPrice = true
		case "days", "days_listed":
			st.ClipDaysListed = true
		case "":
		default:
			return fmt.Errorf("unsupported --clip: %s (use price or days)", n)
		}
	}
	return nil
}
