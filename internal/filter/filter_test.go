package filter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/carlens/internal/listing"
)

func sample() *listing.Table {
	return listing.NewTable([]listing.Row{
		{Price: 9400, ModelYear: 2011, Model: "ford focus", Condition: "good", Fuel: "gas", Type: "sedan", Brand: "ford", Is4WD: 0, DaysListed: 19},
		{Price: 25500, ModelYear: 2015, Model: "ford f-150", Condition: "excellent", Fuel: "gas", Type: "pickup", Brand: "ford", Is4WD: 1, DaysListed: 50},
		{Price: 5500, ModelYear: 2011, Model: "gmc sierra", Condition: "fair", Fuel: "diesel", Type: "pickup", Brand: "gm", Is4WD: 1, DaysListed: 79},
		{Price: 1500, ModelYear: 2003, Model: "", Condition: "good", Fuel: "gas", Type: "sedan", Brand: "", Is4WD: 0, Missing: listing.ColumnSet(0).With(listing.DaysListed)},
	})
}

func brands(t *listing.Table) []string {
	out := make([]string, 0, t.Len())
	for _, r := range t.Rows() {
		out = append(out, r.Brand)
	}
	return out
}

func TestApplySingleColumn(t *testing.T) {
	got, err := Apply(sample(), Spec{listing.Brand: {"ford"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"ford", "ford"}, brands(got))
}

func TestApplyAndAcrossColumnsOrWithin(t *testing.T) {
	spec := Spec{
		listing.Brand: {"ford", "gm"},
		listing.Type:  {"pickup"},
	}
	got, err := Apply(sample(), spec)
	require.NoError(t, err)
	assert.Equal(t, []string{"ford", "gm"}, brands(got))
	for _, r := range got.Rows() {
		assert.Equal(t, "pickup", r.Type)
	}
}

func TestApplyAllIsIdentity(t *testing.T) {
	in := sample()
	for _, spec := range []Spec{
		nil,
		{},
		{listing.Brand: {All}},
		{listing.Brand: {"gm", All}, listing.Condition: {All}},
	} {
		got, err := Apply(in, spec)
		require.NoError(t, err)
		assert.Equal(t, in.Rows(), got.Rows())
	}
}

func TestApplyEmptySelectionMatchesNothing(t *testing.T) {
	got, err := Apply(sample(), Spec{listing.Brand: {}})
	require.NoError(t, err)
	assert.Equal(t, 0, got.Len())
}

func TestApplyOrderIndependent(t *testing.T) {
	a, err := ParseExpr("type=pickup", "fuel=gas")
	require.NoError(t, err)
	b, err := ParseExpr("fuel=gas", "type=pickup")
	require.NoError(t, err)

	ra, err := Apply(sample(), a)
	require.NoError(t, err)
	rb, err := Apply(sample(), b)
	require.NoError(t, err)
	assert.Equal(t, ra.Rows(), rb.Rows())
	assert.Equal(t, 1, ra.Len())
}

func TestApplyDoesNotModifyInput(t *testing.T) {
	in := sample()
	before := in.Rows()
	_, err := Apply(in, Spec{listing.Brand: {"gm"}})
	require.NoError(t, err)
	assert.Equal(t, before, in.Rows())
}

func TestApplyMissingValuesNeverMatch(t *testing.T) {
	got, err := Apply(sample(), Spec{listing.Brand: {""}})
	require.NoError(t, err)
	assert.Equal(t, 0, got.Len())

	got, err = Apply(sample(), Spec{listing.DaysListed: {"0"}})
	require.NoError(t, err)
	assert.Equal(t, 0, got.Len())
}

func TestApplyNumericEquality(t *testing.T) {
	got, err := Apply(sample(), Spec{listing.ModelYear: {"2011", "2011.0"}})
	require.NoError(t, err)
	assert.Equal(t, 2, got.Len())

	got, err = Apply(sample(), Spec{listing.Is4WD: {"1"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"ford", "gm"}, brands(got))

	got, err = Apply(sample(), Spec{listing.ModelYear: {"1999"}})
	require.NoError(t, err)
	assert.Equal(t, 0, got.Len(), "absent values are not an error")
}

func TestInvalidFilters(t *testing.T) {
	cases := map[string]Spec{
		"non numeric year": {listing.ModelYear: {"twenty"}},
		"flag out of range": {listing.Is4WD: {"2"}},
		"bad date":          {listing.DatePosted: {"06/23/2018"}},
		"unknown column":    {listing.Column(99): {"x"}},
	}
	for name, spec := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Apply(sample(), spec)
			var ife *listing.InvalidFilterError
			require.True(t, errors.As(err, &ife), "got %v", err)
			assert.Error(t, spec.Validate())
		})
	}
}

func TestParseSpec(t *testing.T) {
	s, err := ParseSpec(map[string][]string{"Brand": {"ford"}, "paint-color": {"red"}})
	require.NoError(t, err)
	assert.Equal(t, []listing.Column{listing.PaintColor, listing.Brand}, s.Columns())

	_, err = ParseSpec(map[string][]string{"colour": {"red"}})
	var ife *listing.InvalidFilterError
	require.ErrorAs(t, err, &ife)
	assert.Equal(t, "colour", ife.Column)
}

func TestParseExpr(t *testing.T) {
	s, err := ParseExpr("brand=ford, gm", "condition=")
	require.NoError(t, err)
	assert.Equal(t, []string{"ford", "gm"}, s[listing.Brand])
	assert.Empty(t, s[listing.Condition])
	_, present := s[listing.Condition]
	assert.True(t, present)

	_, err = ParseExpr("brand")
	assert.Error(t, err)
}

func TestSpecWhereCopies(t *testing.T) {
	base := Spec{listing.Brand: {"ford"}}
	next := base.Where(listing.Type, "sedan")
	assert.Len(t, base, 1)
	assert.Len(t, next, 2)
}

func TestOptions(t *testing.T) {
	assert.Equal(t, []string{All, "ford", "gm"}, Options(sample(), listing.Brand))
}
