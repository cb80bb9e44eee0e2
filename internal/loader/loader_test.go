package loader

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/carlens/internal/listing"
)

const header = "price,model_year,model,condition,cylinders,fuel,odometer,transmission,type,paint_color,is_4wd,date_posted,days_listed"

var vehicleRows = []string{
	header,
	"9400,2011.0,bmw x5,good,6.0,gas,145000.0,automatic,SUV,,1.0,2018-06-23,19",
	"25500,,ford f-150,good,6.0,gas,88705.0,automatic,pickup,white,1.0,2018-10-19,50",
	"5500,2013.0,hyundai sonata,like new,4.0,gas,110000.0,automatic,sedan,red,,2019-02-07,79",
	"1500,2003.0,ford f-150,fair,8.0,gas,,automatic,pickup,,,2019-03-22,9",
	"14900,2017.0,chrysler 200,excellent,4.0,gas,80903.0,automatic,sedan,black,,2019-04-02,28",
	"14990,2014.0,chrysler 300,excellent,6.0,gas,57954.0,automatic,sedan,,1.0,2018-06-20,15",
}

func writeCSV(t *testing.T, name string, lines []string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return p
}

func TestLoadCleansVehicleCSV(t *testing.T) {
	p := writeCSV(t, "vehicles_us.csv", vehicleRows)
	res, err := Load(p, Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	tbl := res.Table
	if tbl.Len() != 6 {
		t.Fatalf("rows = %d, want 6", tbl.Len())
	}
	unknown := 0
	for _, r := range tbl.Rows() {
		if r.PaintColor == UnknownPaintColor {
			unknown++
		}
	}
	if unknown != 3 {
		t.Fatalf("unknown paint colors = %d, want 3", unknown)
	}
	if got := tbl.Row(2).Is4WD; got != 0 {
		t.Fatalf("missing is_4wd = %d, want 0", got)
	}
	if got := tbl.Row(0).Is4WD; got != 1 {
		t.Fatalf("is_4wd = %d, want 1", got)
	}
	if got := tbl.Row(1).ModelYear; got != 0 {
		t.Fatalf("missing model_year = %d, want 0", got)
	}
	if got := tbl.Row(3).Odometer; got != 0 {
		t.Fatalf("missing odometer = %d, want 0", got)
	}
	if got := tbl.Row(0).ModelYear; got != 2011 {
		t.Fatalf("model_year = %d, want 2011", got)
	}
	if got := tbl.Row(0).DatePosted.Format(listing.DateLayout); got != "2018-06-23" {
		t.Fatalf("date_posted = %s", got)
	}
	if got := tbl.Row(1).Brand; got != "ford" {
		t.Fatalf("derived brand = %q, want ford", got)
	}

	c := res.Cleaning
	if !c.BrandDerived || c.Source != "csv" || c.Rows != 6 {
		t.Fatalf("cleaning = %#v", c)
	}
	if c.RawMissing["paint_color"] != 3 || c.Filled["paint_color"] != 3 {
		t.Fatalf("paint_color missing/filled = %d/%d", c.RawMissing["paint_color"], c.Filled["paint_color"])
	}
	if c.RawMissing["is_4wd"] != 3 || c.Filled["is_4wd"] != 3 {
		t.Fatalf("is_4wd missing/filled = %d/%d", c.RawMissing["is_4wd"], c.Filled["is_4wd"])
	}
	if c.Duplicates != 0 {
		t.Fatalf("duplicates = %d", c.Duplicates)
	}
}

func TestLoadDoesNotModifySource(t *testing.T) {
	p := writeCSV(t, "vehicles_us.csv", vehicleRows)
	before, _ := os.ReadFile(p)
	if _, err := Load(p, Options{}); err != nil {
		t.Fatalf("Load: %v", err)
	}
	after, _ := os.ReadFile(p)
	if !bytes.Equal(before, after) {
		t.Fatalf("source file changed")
	}
}

func TestLoadKeepsExplicitBrandAndCountsDuplicates(t *testing.T) {
	lines := []string{
		header + ",brand",
		"1000,2010,ford focus,good,4,gas,1000,manual,sedan,blue,,2019-01-01,3,Ford",
		"1000,2010,ford focus,good,4,gas,1000,manual,sedan,blue,,2019-01-01,3,Ford",
		",2012,gmc sierra,good,8,gas,1000,automatic,truck,white,1,2019-01-02,,GMC",
	}
	res, err := Read(strings.NewReader(strings.Join(lines, "\n")), "upload.csv", Options{})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if res.Cleaning.BrandDerived {
		t.Fatalf("brand column present, should not be derived")
	}
	if res.Table.Row(0).Brand != "Ford" {
		t.Fatalf("brand = %q", res.Table.Row(0).Brand)
	}
	if res.Cleaning.Duplicates != 1 {
		t.Fatalf("duplicates = %d, want 1", res.Cleaning.Duplicates)
	}
	last := res.Table.Row(2)
	if _, ok := last.Number(listing.Price); ok {
		t.Fatalf("missing price must stay missing")
	}
	if _, ok := last.Number(listing.DaysListed); ok {
		t.Fatalf("missing days_listed must stay missing")
	}
}

func TestLoadErrors(t *testing.T) {
	cases := []struct {
		name   string
		lines  []string
		column string
		row    int
	}{
		{
			name:   "missing column",
			lines:  []string{strings.Replace(header, ",paint_color", "", 1), "1"},
			column: "paint_color",
		},
		{
			name:   "bad odometer",
			lines:  []string{header, "1,2011,bmw x5,good,6,gas,lots,automatic,SUV,,1,2018-06-23,19"},
			column: "odometer",
			row:    1,
		},
		{
			name:   "fractional cylinders",
			lines:  []string{header, "1,2011,bmw x5,good,6.5,gas,1,automatic,SUV,,1,2018-06-23,19"},
			column: "cylinders",
			row:    1,
		},
		{
			name:   "bad date",
			lines:  []string{header, vehicleRows[1], "1,2011,bmw x5,good,6,gas,1,automatic,SUV,,1,23/06/2018,19"},
			column: "date_posted",
			row:    2,
		},
		{
			name:   "bad price",
			lines:  []string{header, "cheap,2011,bmw x5,good,6,gas,1,automatic,SUV,,1,2018-06-23,19"},
			column: "price",
			row:    1,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(strings.Join(c.lines, "\n")), "x.csv", Options{})
			var pe *listing.ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("want ParseError, got %v", err)
			}
			if pe.Column != c.column || pe.Row != c.row {
				t.Fatalf("ParseError = %#v, want column %s row %d", pe, c.column, c.row)
			}
		})
	}
}

func TestLoadEmptyFile(t *testing.T) {
	_, err := Read(strings.NewReader(""), "empty.csv", Options{})
	var pe *listing.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("want ParseError, got %v", err)
	}
}

func TestLoadTSVByExtension(t *testing.T) {
	lines := make([]string, len(vehicleRows))
	for i, l := range vehicleRows {
		lines[i] = strings.ReplaceAll(l, ",", "\t")
	}
	p := writeCSV(t, "vehicles.tsv", lines)
	res, err := Load(p, Options{})
	if err != nil {
		t.Fatalf("Load tsv: %v", err)
	}
	if res.Table.Len() != 6 || res.Table.Row(4).Brand != "chrysler" {
		t.Fatalf("tsv rows = %d", res.Table.Len())
	}
	// empty cells keep their column: row 0 has no paint_color, row 3 no odometer
	first := res.Table.Row(0)
	if first.PaintColor != UnknownPaintColor || first.Is4WD != 1 || first.DaysListed != 19 {
		t.Fatalf("row 0 misaligned: %+v", first)
	}
	if got := first.DatePosted.Format(listing.DateLayout); got != "2018-06-23" {
		t.Fatalf("row 0 date_posted = %s", got)
	}
	fourth := res.Table.Row(3)
	if fourth.Odometer != 0 || fourth.Transmission != "automatic" || fourth.DaysListed != 9 {
		t.Fatalf("row 3 misaligned: %+v", fourth)
	}
}

func TestLoadXLSX(t *testing.T) {
	p := writeXLSX(t, "Listings", vehicleRows[:3])
	res, err := Load(p, Options{SheetName: "listings"})
	if err != nil {
		t.Fatalf("Load xlsx: %v", err)
	}
	if res.Cleaning.Source != "xlsx" {
		t.Fatalf("source = %q", res.Cleaning.Source)
	}
	if res.Table.Len() != 2 {
		t.Fatalf("rows = %d, want 2", res.Table.Len())
	}
	r := res.Table.Row(0)
	if r.Brand != "bmw" || r.Price != 9400 || r.PaintColor != UnknownPaintColor {
		t.Fatalf("row = %#v", r)
	}

	if _, err := Load(p, Options{SheetName: "Other"}); err == nil || !strings.Contains(err.Error(), "Listings") {
		t.Fatalf("expected sheet-not-found error listing available sheets, got %v", err)
	}
	byIndex, err := Load(p, Options{SheetIndex: 1})
	if err != nil || byIndex.Table.Len() != 2 {
		t.Fatalf("load by index: %v", err)
	}
}

func TestNormalizeRelPath(t *testing.T) {
	tests := []struct{ in, want string }{
		{"/xl/worksheets/sheet1.xml", "xl/worksheets/sheet1.xml"},
		{"xl/worksheets/sheet1.xml", "xl/worksheets/sheet1.xml"},
		{"worksheets/sheet1.xml", "xl/worksheets/sheet1.xml"},
		{"/worksheets/sheet1.xml", "xl/worksheets/sheet1.xml"},
	}
	for _, tt := range tests {
		if got := normalizeRelPath(tt.in); got != tt.want {
			t.Errorf("normalizeRelPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if colIndexFromRef("C12") != 2 || colIndexFromRef("AA3") != 26 || colIndexFromRef("7") != -1 {
		t.Errorf("colIndexFromRef mismatch")
	}
}

// writeXLSX builds a minimal workbook with inline-string cells.
func writeXLSX(t *testing.T, sheet string, lines []string) string {
	t.Helper()
	var rows strings.Builder
	for i, line := range lines {
		fmt.Fprintf(&rows, `<row r="%d">`, i+1)
		for j, cell := range strings.Split(line, ",") {
			if cell == "" {
				continue
			}
			ref := fmt.Sprintf("%c%d", 'A'+j, i+1)
			fmt.Fprintf(&rows, `<c r="%s" t="inlineStr"><is><t>%s</t></is></c>`, ref, cell)
		}
		rows.WriteString(`</row>`)
	}
	files := map[string]string{
		"[Content_Types].xml":        `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"></Types>`,
		"xl/workbook.xml":            fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?><workbook xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"><sheets><sheet name="%s" sheetId="1" r:id="rId1"/></sheets></workbook>`, sheet),
		"xl/_rels/workbook.xml.rels": `<?xml version="1.0" encoding="UTF-8"?><Relationships><Relationship Id="rId1" Target="/xl/worksheets/sheet1.xml"/></Relationships>`,
		"xl/worksheets/sheet1.xml":   `<?xml version="1.0" encoding="UTF-8"?><worksheet><sheetData>` + rows.String() + `</sheetData></worksheet>`,
	}
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create: %v", err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatalf("zip write: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	p := filepath.Join(t.TempDir(), "listings.xlsx")
	if err := os.WriteFile(p, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write xlsx: %v", err)
	}
	return p
}
