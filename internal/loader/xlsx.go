package loader

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
)

type xlsxSource struct{}

func (xlsxSource) Name() string { return "xlsx" }

func (xlsxSource) CanRead(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".xlsx")
}

// Open selects a worksheet by Options.SheetName, falling back to the 1-based
// Options.SheetIndex (first sheet when unset).
func (xlsxSource) Open(r io.Reader, filename string, opt Options) (RecordReader, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read xlsx: %w", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	book := workbook{
		sheets: parseSheets(zipEntry(zr, "xl/workbook.xml")),
		rels:   parseRelationships(zipEntry(zr, "xl/_rels/workbook.xml.rels")),
	}
	target, err := book.resolve(opt.SheetName, opt.SheetIndex)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	data := zipEntry(zr, target)
	if data == nil {
		return nil, fmt.Errorf("%s: worksheet %s not found", filename, target)
	}
	shared := parseSharedStrings(zipEntry(zr, "xl/sharedStrings.xml"))
	return &sheetReader{dec: xml.NewDecoder(bytes.NewReader(data)), shared: shared}, nil
}

type sheetEntry struct {
	name string
	id   int
	rid  string
}

type workbook struct {
	sheets []sheetEntry
	rels   map[string]string
}

func (w workbook) resolve(name string, index int) (string, error) {
	if name != "" {
		names := make([]string, 0, len(w.sheets))
		for _, s := range w.sheets {
			if strings.EqualFold(s.name, name) {
				if rel, ok := w.rels[s.rid]; ok {
					return normalizeRelPath(rel), nil
				}
			}
			names = append(names, s.name)
		}
		return "", fmt.Errorf("sheet %q not found (available: %s)", name, strings.Join(names, ", "))
	}
	if index <= 0 {
		index = 1
	}
	for _, s := range w.sheets {
		if s.id == index {
			if rel, ok := w.rels[s.rid]; ok {
				return normalizeRelPath(rel), nil
			}
		}
	}
	return path.Join("xl", "worksheets", fmt.Sprintf("sheet%d.xml", index)), nil
}

func zipEntry(zr *zip.Reader, name string) []byte {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil
		}
		defer rc.Close()
		b, _ := io.ReadAll(rc)
		return b
	}
	return nil
}

// startElements calls fn for every start element in data.
func startElements(data []byte, fn func(xml.StartElement)) {
	if len(data) == 0 {
		return
	}
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err != nil {
			return
		}
		if se, ok := tok.(xml.StartElement); ok {
			fn(se)
		}
	}
}

func attr(se xml.StartElement, local string) string {
	for _, a := range se.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

func parseSheets(data []byte) []sheetEntry {
	var out []sheetEntry
	startElements(data, func(se xml.StartElement) {
		if se.Name.Local != "sheet" {
			return
		}
		id, _ := strconv.Atoi(attr(se, "sheetId"))
		out = append(out, sheetEntry{name: attr(se, "name"), id: id, rid: attr(se, "id")})
	})
	return out
}

func parseRelationships(data []byte) map[string]string {
	out := map[string]string{}
	startElements(data, func(se xml.StartElement) {
		if se.Name.Local != "Relationship" {
			return
		}
		id, target := attr(se, "Id"), attr(se, "Target")
		if id != "" && target != "" {
			out[id] = target
		}
	})
	return out
}

func parseSharedStrings(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	dec := xml.NewDecoder(bytes.NewReader(data))
	var out []string
	var buf strings.Builder
	inText := false
	for {
		tok, err := dec.Token()
		if err != nil {
			return out
		}
		switch se := tok.(type) {
		case xml.StartElement:
			switch se.Name.Local {
			case "si":
				buf.Reset()
			case "t":
				inText = true
			}
		case xml.EndElement:
			switch se.Name.Local {
			case "t":
				inText = false
			case "si":
				out = append(out, buf.String())
			}
		case xml.CharData:
			if inText {
				buf.Write(se)
			}
		}
	}
}

// sheetReader streams worksheet rows as string records.
type sheetReader struct {
	dec    *xml.Decoder
	shared []string
}

func (r *sheetReader) Read() ([]string, error) {
	var row []string
	inRow := false
	for {
		tok, err := r.dec.Token()
		if err != nil {
			if err == io.EOF {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("xlsx: %w", err)
		}
		switch se := tok.(type) {
		case xml.StartElement:
			switch {
			case se.Name.Local == "row":
				inRow = true
				row = row[:0]
			case inRow && se.Name.Local == "c":
				idx := colIndexFromRef(attr(se, "r"))
				if idx < 0 {
					idx = len(row)
				}
				for len(row) <= idx {
					row = append(row, "")
				}
				row[idx] = r.cellValue(attr(se, "t"))
			}
		case xml.EndElement:
			if se.Name.Local == "row" && inRow {
				out := make([]string, len(row))
				copy(out, row)
				return out, nil
			}
		}
	}
}

// cellValue consumes tokens up to the end of the current <c> element and
// returns its text, resolving shared-string indexes.
func (r *sheetReader) cellValue(cellType string) string {
	var val strings.Builder
	inValue := false
	for {
		tok, err := r.dec.Token()
		if err != nil {
			return val.String()
		}
		switch se := tok.(type) {
		case xml.StartElement:
			if se.Name.Local == "v" || se.Name.Local == "t" {
				inValue = true
			}
		case xml.EndElement:
			switch se.Name.Local {
			case "v", "t":
				inValue = false
			case "c":
				if cellType == "s" {
					idx, err := strconv.Atoi(strings.TrimSpace(val.String()))
					if err != nil || idx < 0 || idx >= len(r.shared) {
						return ""
					}
					return r.shared[idx]
				}
				return val.String()
			}
		case xml.CharData:
			if inValue {
				val.Write(se)
			}
		}
	}
}

// colIndexFromRef maps a cell reference like "C12" to a 0-based column index.
func colIndexFromRef(ref string) int {
	idx := 0
	n := 0
	for _, ch := range strings.ToUpper(ref) {
		if ch < 'A' || ch > 'Z' {
			break
		}
		idx = idx*26 + int(ch-'A'+1)
		n++
	}
	if n == 0 {
		return -1
	}
	return idx - 1
}

// normalizeRelPath converts relationship targets to ZIP entry names, which
// never carry a leading slash and live under xl/.
func normalizeRelPath(rel string) string {
	rel = strings.TrimPrefix(rel, "/")
	if strings.HasPrefix(rel, "xl/") {
		return rel
	}
	return path.Join("xl", rel)
}
