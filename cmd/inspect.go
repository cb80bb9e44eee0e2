package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/KaramelBytes/carlens/internal/listing"
	"github.com/KaramelBytes/carlens/internal/loader"
	"github.com/KaramelBytes/carlens/internal/profile"
	"github.com/KaramelBytes/carlens/internal/utils"
	"github.com/spf13/cobra"
)

var (
	insOutputDir  string
	insSampleRows int
	insTopValues  int
	insGroupBy    []string
	insCorr       bool
	insOutliers   bool
	insOutlierThr float64
	insFormat     string
	insQuiet      bool
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [files...]",
	Short: "Profile one or more listings files (defaults to the configured dataset)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireConfig(); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		opt := profile.DefaultOptions()
		if insSampleRows >= 0 {
			opt.SampleRows = insSampleRows
		}
		if insTopValues > 0 {
			opt.TopValues = insTopValues
		}
		for _, name := range insGroupBy {
			col, ok := listing.ParseColumn(strings.TrimSpace(name))
			if !ok {
				return fmt.Errorf("unsupported --group-by column: %s", name)
			}
			opt.GroupBy = append(opt.GroupBy, col)
		}
		opt.Correlations = insCorr
		opt.Outliers = insOutliers
		if insOutlierThr > 0 {
			opt.OutlierThreshold = insOutlierThr
		}
		delim, err := cfg.DelimiterRune()
		if err != nil {
			return err
		}
		lopt := loader.Options{Delimiter: delim, SheetName: cfg.SheetName, SheetIndex: 1}

		files, err := expandInputs(args)
		if err != nil {
			return err
		}
		total := len(files)
		for i, path := range files {
			if !insQuiet && total > 1 {
				fmt.Fprintf(out, "[%d/%d] Processing %s...\n", i+1, total, filepath.Base(path))
			}
			res, err := loader.Load(path, lopt)
			if err != nil {
				return fmt.Errorf("%s: %w", filepath.Base(path), err)
			}
			rep := profile.Analyze(res.Name, res.Table, &res.Cleaning, opt)
			logger.Debug("profiled %s: %d rows, %d warnings", res.Name, rep.Rows, len(rep.Warnings))

			if insOutputDir == "" {
				if err := writeFormatted(out, insFormat, rep, rep.Markdown); err != nil {
					return err
				}
				continue
			}
			outFile, data, err := reportFile(insOutputDir, path, insFormat, rep)
			if err != nil {
				return err
			}
			if err := utils.SafeWriteFile(outFile, data); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			if !insQuiet {
				fmt.Fprintf(out, "✓ Wrote analysis to %s\n", outFile)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().StringVarP(&insOutputDir, "output-dir", "o", "", "write one report per file into this directory")
	inspectCmd.Flags().IntVar(&insSampleRows, "sample-rows", 5, "number of sample rows to include (0 disables samples)")
	inspectCmd.Flags().IntVar(&insTopValues, "top-values", 8, "number of top values listed per categorical column")
	inspectCmd.Flags().StringSliceVar(&insGroupBy, "group-by", nil, "comma-separated column names to group by (repeatable)")
	inspectCmd.Flags().BoolVar(&insCorr, "correlations", true, "compute Pearson correlations among numeric columns")
	inspectCmd.Flags().BoolVar(&insOutliers, "outliers", true, "compute robust outlier counts (MAD)")
	inspectCmd.Flags().Float64Var(&insOutlierThr, "outlier-threshold", 3.5, "robust |z| threshold for outliers (MAD-based)")
	inspectCmd.Flags().StringVar(&insFormat, "format", "text", "output format: text | json | yaml")
	inspectCmd.Flags().BoolVar(&insQuiet, "quiet", false, "suppress progress and non-essential output")
}

// expandInputs resolves globs and literal paths, deduplicated and sorted. No
// arguments means the configured dataset.
func expandInputs(args []string) ([]string, error) {
	if len(args) == 0 {
		path, err := utils.FindDataFile("", cfg.DataPath)
		if err != nil {
			return nil, fmt.Errorf("locate dataset %q: %w", cfg.DataPath, err)
		}
		return []string{path}, nil
	}
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(utils.ExpandHome(arg))
		if len(matches) == 0 {
			// treat as literal path if exists
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no input files matched")
	}
	sort.Strings(files)
	return files, nil
}

// reportFile picks a non-clobbering output name for a dataset's report.
func reportFile(dir, dataset, format string, rep *profile.Report) (string, []byte, error) {
	if err := utils.EnsureDir(utils.ExpandHome(dir)); err != nil {
		return "", nil, fmt.Errorf("create output dir: %w", err)
	}
	var (
		ext  string
		data []byte
		err  error
	)
	switch strings.ToLower(format) {
	case "", "text", "md", "markdown":
		ext, data = ".summary.md", []byte(rep.Markdown())
	case "json":
		ext = ".summary.json"
		data, err = utils.PrettyJSON(rep)
	case "yaml", "yml":
		ext = ".summary.yaml"
		data, err = utils.PrettyYAML(rep)
	default:
		return "", nil, fmt.Errorf("unsupported --format: %s (use text, json or yaml)", format)
	}
	if err != nil {
		return "", nil, err
	}
	base := filepath.Base(dataset)
	safe := strings.TrimSuffix(base, filepath.Ext(base))
	outFile := filepath.Join(utils.ExpandHome(dir), safe+ext)
	for idx := 2; ; idx++ {
		if _, statErr := os.Stat(outFile); os.IsNotExist(statErr) {
			break
		}
		outFile = filepath.Join(utils.ExpandHome(dir), fmt.Sprintf("%s__%d%s", safe, idx, ext))
	}
	return outFile, data, nil
}
