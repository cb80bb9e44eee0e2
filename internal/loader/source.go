package loader

import (
	"encoding/csv"
	"io"
	"strings"
	"unicode"
)

// RecordReader yields raw records; the first record is the header. Read
// returns io.EOF after the last record.
type RecordReader interface {
	Read() ([]string, error)
}

// Source opens a tabular file format.
type Source interface {
	Name() string
	CanRead(filename string) bool
	Open(r io.Reader, filename string, opt Options) (RecordReader, error)
}

var registry []Source

// Register adds a source implementation to the registry.
func Register(s Source) {
	registry = append(registry, s)
}

// sourceFor picks a source by filename, falling back to CSV.
func sourceFor(filename string) Source {
	for _, s := range registry {
		if s.CanRead(filename) {
			return s
		}
	}
	return csvSource{}
}

func init() {
	Register(csvSource{})
	Register(xlsxSource{})
}

type csvSource struct{}

func (csvSource) Name() string { return "csv" }

func (csvSource) CanRead(filename string) bool {
	name := strings.ToLower(filename)
	return strings.HasSuffix(name, ".csv") || strings.HasSuffix(name, ".tsv") || strings.HasSuffix(name, ".txt")
}

func (csvSource) Open(r io.Reader, filename string, opt Options) (RecordReader, error) {
	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(filename)
	}
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.Comma = delim
	// Trimming would also swallow empty cells between whitespace delimiters;
	// cleaner.raw trims each field instead.
	cr.TrimLeadingSpace = !unicode.IsSpace(delim)
	return cr, nil
}

func sniffDelimiter(filename string) rune {
	if strings.HasSuffix(strings.ToLower(filename), ".tsv") {
		return '\t'
	}
	return ','
}
