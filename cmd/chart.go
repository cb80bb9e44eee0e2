package cmd

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/carlens/internal/dashboard"
	"github.com/KaramelBytes/carlens/internal/render"
	"github.com/KaramelBytes/carlens/internal/utils"
	"github.com/spf13/cobra"
)

var (
	chartFlags  stateFlags
	chartFormat string
	chartPNG    string
)

var chartCmd = &cobra.Command{
	Use:       "chart <brands|days|scatter|price>",
	Short:     "Render one chart of the dashboard",
	Args:      cobra.ExactArgs(1),
	ValidArgs: dashboard.ChartNames(),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := chartFlags.state()
		if err != nil {
			return err
		}
		s, err := newSession()
		if err != nil {
			return err
		}
		c, err := s.Chart(strings.ToLower(args[0]), st)
		if err != nil {
			return err
		}
		if c.Error != "" {
			logger.Warn("chart %s: %s", c.Name, c.Error)
		}
		if chartPNG != "" {
			if err := writePNG(chartPNG, c); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %s\n", chartPNG)
			return nil
		}
		return writeFormatted(cmd.OutOrStdout(), chartFormat, c, c.Markdown)
	},
}

func init() {
	rootCmd.AddCommand(chartCmd)
	chartFlags.register(chartCmd)
	chartCmd.Flags().StringVar(&chartFormat, "format", "text", "output format: text | json | yaml")
	chartCmd.Flags().StringVar(&chartPNG, "png", "", "write the chart as a PNG image to this path")
}

func renderOptions() render.Options {
	if cfg == nil {
		return render.Options{}
	}
	return render.Options{Width: cfg.ChartWidth, Height: cfg.ChartHeight}
}

func writePNG(path string, c dashboard.Chart) error {
	var buf bytes.Buffer
	if err := render.PNG(&buf, c, renderOptions()); err != nil {
		return err
	}
	path = utils.ExpandHome(path)
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := utils.SafeWriteFile(path, buf.Bytes()); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return nil
}
