package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/carlens/internal/dashboard"
	"github.com/KaramelBytes/carlens/internal/render"
	"github.com/KaramelBytes/carlens/internal/utils"
	"github.com/spf13/cobra"
)

var (
	dashFlags  stateFlags
	dashFormat string
	dashOutput string
	dashPNG    bool
	dashPNGDir string
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Render every chart plus the raw data preview",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := dashFlags.state()
		if err != nil {
			return err
		}
		s, err := newSession()
		if err != nil {
			return err
		}
		d := s.Render(st)
		out := cmd.OutOrStdout()
		for _, c := range d.Charts() {
			if c.Error != "" {
				logger.Warn("chart %s: %s", c.Name, c.Error)
			}
		}

		if dashPNG {
			dir := dashPNGDir
			if dir == "" {
				dir = cfg.OutputDir
			}
			dir = filepath.Join(utils.ExpandHome(dir), d.SessionID)
			for _, c := range d.Charts() {
				if c.Error != "" {
					continue
				}
				p, err := render.WriteFile(dir, c, renderOptions())
				if err != nil {
					logger.Warn("png %s: %v", c.Name, err)
					continue
				}
				fmt.Fprintf(out, "✓ Wrote %s\n", p)
			}
		}

		if dashOutput != "" {
			if err := writeDashboardFile(dashOutput, d); err != nil {
				return err
			}
			fmt.Fprintf(out, "✓ Wrote dashboard to %s\n", dashOutput)
			return nil
		}
		return writeFormatted(out, dashFormat, d, d.Markdown)
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
	dashFlags.register(dashboardCmd)
	dashboardCmd.Flags().StringVar(&dashFormat, "format", "text", "output format: text | json | yaml")
	dashboardCmd.Flags().StringVarP(&dashOutput, "output", "o", "", "write the dashboard to a file (.json, .yaml or .md)")
	dashboardCmd.Flags().BoolVar(&dashPNG, "png", false, "also export each chart as PNG")
	dashboardCmd.Flags().StringVar(&dashPNGDir, "png-dir", "", "directory for PNG exports (default output_dir)")
}

// writeDashboardFile picks the encoding from the file extension.
func writeDashboardFile(path string, d *dashboard.Dashboard) error {
	path = utils.ExpandHome(path)
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		data, err = utils.PrettyJSON(d)
	case ".yaml", ".yml":
		data, err = utils.PrettyYAML(d)
	case ".md", ".txt", "":
		data = []byte(d.Markdown())
	default:
		return fmt.Errorf("unsupported output extension: %s (use .json, .yaml or .md)", filepath.Ext(path))
	}
	if err != nil {
		return err
	}
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := utils.SafeWriteFile(path, data); err != nil {
		return fmt.Errorf("write dashboard: %w", err)
	}
	return nil
}
