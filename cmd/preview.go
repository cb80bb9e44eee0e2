package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/KaramelBytes/carlens/internal/listing"
	"github.com/KaramelBytes/carlens/internal/loader"
	"github.com/KaramelBytes/carlens/internal/profile"
	"github.com/KaramelBytes/carlens/internal/utils"
	"github.com/spf13/cobra"
)

var (
	prevRows   int
	prevFormat string
)

// previewOutput is the structured form of the preview command.
type previewOutput struct {
	Dataset  string          `json:"dataset" yaml:"dataset"`
	Rows     int             `json:"rows" yaml:"rows"`
	Columns  []string        `json:"columns" yaml:"columns"`
	Head     [][]string      `json:"head" yaml:"head"`
	Cleaning loader.Cleaning `json:"cleaning" yaml:"cleaning"`
}

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Show the first rows of the cleaned dataset and what cleaning changed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := loadDataset()
		if err != nil {
			return err
		}
		n := prevRows
		if n <= 0 {
			n = cfg.PreviewRows
		}
		out := previewOutput{Dataset: res.Name, Rows: res.Table.Len(), Cleaning: res.Cleaning}
		for _, col := range listing.Columns() {
			out.Columns = append(out.Columns, col.Name())
		}
		head := res.Table.Head(n)
		for i := 0; i < head.Len(); i++ {
			r := head.Row(i)
			rec := make([]string, 0, len(out.Columns))
			for _, col := range listing.Columns() {
				rec = append(rec, r.Value(col).Text)
			}
			out.Head = append(out.Head, rec)
		}
		return writeFormatted(cmd.OutOrStdout(), prevFormat, out, func() string {
			var b strings.Builder
			b.WriteString(fmt.Sprintf("[RAW DATA PREVIEW] %s (%d rows)\n", res.Name, out.Rows))
			b.WriteString(profile.Table(out.Columns, out.Head))
			b.WriteString("\n")
			b.WriteString(profile.CleaningMarkdown(&res.Cleaning))
			return b.String()
		})
	},
}

func init() {
	rootCmd.AddCommand(previewCmd)
	previewCmd.Flags().IntVarP(&prevRows, "rows", "n", 0, "number of rows to show (default preview_rows)")
	previewCmd.Flags().StringVar(&prevFormat, "format", "text", "output format: text | json | yaml")
}

// writeFormatted prints v as JSON or YAML, or the text rendering.
func writeFormatted(w io.Writer, format string, v any, text func() string) error {
	var b []byte
	var err error
	switch strings.ToLower(format) {
	case "", "text", "md", "markdown":
		_, err = fmt.Fprint(w, text())
		return err
	case "json":
		b, err = utils.PrettyJSON(v)
	case "yaml", "yml":
		b, err = utils.PrettyYAML(v)
	default:
		return fmt.Errorf("unsupported --format: %s (use text, json or yaml)", format)
	}
	if err != nil {
		return err
	}
	if len(b) > 0 && b[len(b)-1] != '\n' {
		b = append(b, '\n')
	}
	_, err = w.Write(b)
	return err
}
