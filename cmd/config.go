package cmd

import (
	"fmt"
	"strconv"
	"strings"

	cfgpkg "github.com/KaramelBytes/carlens/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set carlens configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if cfg == nil {
			fmt.Fprintln(out, "No config loaded")
			return nil
		}
		for _, key := range cfgpkg.Keys() {
			v, _ := configValue(cfg, key)
			fmt.Fprintf(out, "%s: %s\n", key, v)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		if err := setConfigValue(cfg, key, val); err != nil {
			return err
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func configValue(c *cfgpkg.Global, key string) (string, error) {
	switch key {
	case "data_path":
		return c.DataPath, nil
	case "delimiter":
		return c.Delimiter, nil
	case "sheet_name":
		return c.SheetName, nil
	case "preview_rows":
		return strconv.Itoa(c.PreviewRows), nil
	case "top_n":
		return strconv.Itoa(c.TopN), nil
	case "histogram_bins":
		return strconv.Itoa(c.HistogramBins), nil
	case "price_clip_low":
		return fmt.Sprintf("%.3f", c.PriceClipLow), nil
	case "price_clip_high":
		return fmt.Sprintf("%.3f", c.PriceClipHigh), nil
	case "days_clip_high":
		return fmt.Sprintf("%.3f", c.DaysClipHigh), nil
	case "price_view_quantile":
		return fmt.Sprintf("%.3f", c.PriceViewQuantile), nil
	case "clip_order":
		return c.ClipOrder, nil
	case "output_dir":
		return c.OutputDir, nil
	case "chart_width":
		return strconv.Itoa(c.ChartWidth), nil
	case "chart_height":
		return strconv.Itoa(c.ChartHeight), nil
	}
	return "", fmt.Errorf("unknown key: %s", key)
}

func setConfigValue(c *cfgpkg.Global, key, val string) error {
	atoi := func() (int, error) {
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return 0, fmt.Errorf("invalid int for %s: %v", key, val)
		}
		return i, nil
	}
	parseFloat := func() (float64, error) {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid float for %s: %v", key, val)
		}
		return f, nil
	}
	var err error
	switch key {
	case "data_path":
		c.DataPath = val
	case "delimiter":
		c.Delimiter = val
	case "sheet_name":
		c.SheetName = val
	case "preview_rows":
		c.PreviewRows, err = atoi()
	case "top_n":
		c.TopN, err = atoi()
	case "histogram_bins":
		c.HistogramBins, err = atoi()
	case "price_clip_low":
		c.PriceClipLow, err = parseFloat()
	case "price_clip_high":
		c.PriceClipHigh, err = parseFloat()
	case "days_clip_high":
		c.DaysClipHigh, err = parseFloat()
	case "price_view_quantile":
		c.PriceViewQuantile, err = parseFloat()
	case "clip_order":
		c.ClipOrder = strings.ToLower(val)
	case "output_dir":
		c.OutputDir = val
	case "chart_width":
		c.ChartWidth, err = atoi()
	case "chart_height":
		c.ChartHeight, err = atoi()
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return err
}
