package profile

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/KaramelBytes/carlens/internal/listing"
	"github.com/KaramelBytes/carlens/internal/loader"
)

func day(s string) time.Time {
	d, _ := time.Parse(listing.DateLayout, s)
	return d
}

func fixture() *listing.Table {
	rows := []listing.Row{
		{Price: 9400, ModelYear: 2011, Model: "bmw x5", Odometer: 145000, Brand: "bmw", PaintColor: "unknown", DatePosted: day("2018-06-23"), DaysListed: 19},
		{Price: 25500, ModelYear: 2015, Model: "ford f-150", Odometer: 88705, Brand: "ford", PaintColor: "white", DatePosted: day("2018-10-19"), DaysListed: 50},
		{Price: 5500, ModelYear: 2013, Model: "hyundai sonata", Odometer: 110000, Brand: "hyundai", PaintColor: "red", DatePosted: day("2019-02-07"), DaysListed: 79},
		{Price: 1500, ModelYear: 2003, Model: "ford f-150", Odometer: 190000, Brand: "ford", PaintColor: "unknown", DatePosted: day("2019-03-22"), DaysListed: 9},
		{Price: 14900, ModelYear: 2017, Model: "chrysler 200", Odometer: 80903, Brand: "chrysler", PaintColor: "black", DatePosted: day("2019-04-02"), DaysListed: 28},
		{Price: 14990, ModelYear: 2014, Model: "chrysler 300", Odometer: 57954, Brand: "chrysler", PaintColor: "unknown", DatePosted: day("2018-06-20"), DaysListed: 15},
		{Price: 12990, ModelYear: 2015, Model: "toyota camry", Odometer: 79212, Brand: "toyota", PaintColor: "white", DatePosted: day("2018-12-27"), DaysListed: 73},
		{Price: 8990, ModelYear: 2012, Model: "honda pilot", Odometer: 109473, Brand: "honda", PaintColor: "black", DatePosted: day("2019-01-07"), DaysListed: 68},
		{Price: 999999, ModelYear: 2008, Model: "kia sorento", Odometer: 104174, Brand: "kia", PaintColor: "unknown", DatePosted: day("2018-07-16"), Missing: listing.ColumnSet(0).With(listing.DaysListed)},
	}
	return listing.NewTable(rows)
}

func column(t *testing.T, rep *Report, name string) ColumnSummary {
	t.Helper()
	for _, c := range rep.Cols {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("column %s not in report", name)
	return ColumnSummary{}
}

func TestAnalyzeAndMarkdown(t *testing.T) {
	cleaning := &loader.Cleaning{
		Source:       "csv",
		Rows:         9,
		Duplicates:   1,
		RawMissing:   map[string]int{"paint_color": 4, "days_listed": 1},
		Filled:       map[string]int{"paint_color": 4},
		BrandDerived: true,
	}
	opt := DefaultOptions()
	opt.SampleRows = 3
	opt.GroupBy = []listing.Column{listing.Brand}
	rep := Analyze("vehicles_us.csv", fixture(), cleaning, opt)

	if rep.Rows != 9 || len(rep.Cols) != len(listing.Columns()) {
		t.Fatalf("rows/cols = %d/%d", rep.Rows, len(rep.Cols))
	}
	if len(rep.Samples) != 3 {
		t.Fatalf("samples = %d, want 3", len(rep.Samples))
	}

	days := column(t, rep, "days_listed")
	if days.NonNull != 8 || days.Missing != 1 {
		t.Fatalf("days_listed non-null/missing = %d/%d", days.NonNull, days.Missing)
	}
	if days.Min != 9 || days.Max != 79 {
		t.Fatalf("days_listed min/max = %v/%v", days.Min, days.Max)
	}

	price := column(t, rep, "price")
	if price.OutliersCount != 1 || price.OutlierThreshold != 3.5 {
		t.Fatalf("price outliers = %d (thr %v)", price.OutliersCount, price.OutlierThreshold)
	}

	paint := column(t, rep, "paint_color")
	if paint.Kind != "categorical" || paint.TopValues[0].Value != "unknown" || paint.TopValues[0].Count != 4 {
		t.Fatalf("paint_color top = %#v", paint.TopValues)
	}

	posted := column(t, rep, "date_posted")
	if posted.First != "2018-06-20" || posted.Last != "2019-04-02" {
		t.Fatalf("date range = %s..%s", posted.First, posted.Last)
	}

	if len(rep.Groups) == 0 || !strings.HasPrefix(rep.Groups[0].Key, "brand=") {
		t.Fatalf("groups = %#v", rep.Groups)
	}
	if rep.Groups[0].Size != 2 {
		t.Fatalf("largest group size = %d, want 2", rep.Groups[0].Size)
	}

	if rep.Corr == nil {
		t.Fatalf("expected correlations")
	}
	for i := range rep.Corr.Columns {
		if rep.Corr.Values[i][i] != 1 {
			t.Fatalf("diagonal not 1 at %d", i)
		}
		for j := range rep.Corr.Columns {
			if math.Abs(rep.Corr.Values[i][j]-rep.Corr.Values[j][i]) > 1e-12 {
				t.Fatalf("matrix not symmetric at %d,%d", i, j)
			}
		}
	}

	md := rep.Markdown()
	for _, want := range []string{
		"[DATASET SUMMARY]",
		"File: vehicles_us.csv",
		"Rows: 9",
		"- price: numeric-continuous",
		"outliers: 1 above |z|>3.5",
		"unknown(4)",
		"2018-06-20 to 2019-04-02",
		"[CLEANING]",
		"- paint_color: 4 missing, 4 filled",
		"brand derived from model",
		"[GROUP-BY SUMMARY]",
		"[CORRELATIONS]",
		"[HEAD]",
		"| price | model_year |",
		"1 duplicate rows in source",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestAnalyzeSampleRows(t *testing.T) {
	opt := DefaultOptions()
	opt.SampleRows = 0
	rep := Analyze("vehicles_us.csv", fixture(), nil, opt)
	if len(rep.Samples) != 0 || strings.Contains(rep.Markdown(), "[HEAD]") {
		t.Fatalf("samples not disabled: %d", len(rep.Samples))
	}
	opt.SampleRows = -1
	if rep := Analyze("vehicles_us.csv", fixture(), nil, opt); len(rep.Samples) != 5 {
		t.Fatalf("default samples = %d, want 5", len(rep.Samples))
	}
}

func TestAnalyzeEmptyTable(t *testing.T) {
	rep := Analyze("empty.csv", listing.NewTable(nil), nil, DefaultOptions())
	if rep.Rows != 0 || rep.Corr != nil || len(rep.Samples) != 0 {
		t.Fatalf("unexpected report: %#v", rep)
	}
	if md := rep.Markdown(); !strings.Contains(md, "Rows: 0") {
		t.Fatalf("markdown: %s", md)
	}
}

func TestPearsonPerfectCorrelation(t *testing.T) {
	var rows []listing.Row
	for i := 1; i <= 5; i++ {
		rows = append(rows, listing.Row{Price: float64(i * 1000), Odometer: 100000 - i*10000})
	}
	r := pearson(listing.NewTable(rows), listing.Price, listing.Odometer)
	if math.Abs(r+1) > 1e-9 {
		t.Fatalf("r = %v, want -1", r)
	}
}

func TestTableEscapesPipes(t *testing.T) {
	out := Table([]string{"a", "b"}, [][]string{{"x|y", "z"}})
	if !strings.Contains(out, "| x/y | z |") {
		t.Fatalf("table: %s", out)
	}
}
