package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/permit-assets/internal/core/domain"
)

func testSites() []domain.SiteMetadata {
	return []domain.SiteMetadata{
		{ID: "101", Nummer: "N-101", Naam: "Acme Chemicals", Gemeente: "Antwerpen", Postcode: "2000", SourceURL: "https://example.org/101.pdf"},
		{ID: "102", Nummer: "N-102", Naam: "Beta Steel", Gemeente: "Gent", Postcode: "9000", SourceURL: "https://example.org/102.pdf"},
	}
}

func strPtr(s string) *string { return &s }

// TestFlattener_Cardinality tests that N assets yield exactly N rows
func TestFlattener_Cardinality(t *testing.T) {
	sites := testSites()
	idx, dups := domain.NewSiteIndex(sites)
	require.Empty(t, dups)

	first := &domain.StructuredResult{
		Source: sites[0].DocumentID(),
		Assets: []domain.AssetRecord{
			{AssetType: "generator", CapacityValue: domain.NumberScalar("500"), CapacityUnit: strPtr("kW")},
			{AssetType: "boiler", CapacityValue: domain.StringScalar("2,5"), CapacityUnit: strPtr("MW")},
			{AssetType: "pump", CountOfUnits: domain.NumberScalar("4")},
		},
	}
	empty := &domain.StructuredResult{Source: sites[1].DocumentID(), Assets: []domain.AssetRecord{}}

	f := NewFlattener()
	out := f.Flatten([]*domain.StructuredResult{first, empty}, idx)

	require.Len(t, out.Rows, 3)
	assert.Empty(t, out.Missing)
	for i, row := range out.Rows {
		assert.Equal(t, "101", row.ID)
		assert.Equal(t, "Acme Chemicals", row.Naam)
		assert.Equal(t, first.Assets[i].AssetType, row.AssetType)
	}
	assert.Equal(t, []string{"101", "N-101", "Acme Chemicals", "Antwerpen", "2000", "generator", "500", "kW", ""}, out.Rows[0].Strings())
}

// TestFlattener_MissingMetadata tests that unknown documents are reported, not joined
func TestFlattener_MissingMetadata(t *testing.T) {
	idx, _ := domain.NewSiteIndex(testSites())
	orphan := &domain.StructuredResult{
		Source: domain.NewDocumentID("999", "https://example.org/999.pdf"),
		Assets: []domain.AssetRecord{{AssetType: "chiller"}},
	}

	f := NewFlattener()
	_, err := f.FlattenOne(orphan, idx)
	assert.ErrorIs(t, err, domain.ErrMissingMetadata)

	out := f.Flatten([]*domain.StructuredResult{orphan}, idx)
	assert.Empty(t, out.Rows)
	require.Len(t, out.Missing, 1)
	assert.Equal(t, orphan.Source, out.Missing[0].Document)
	assert.ErrorIs(t, out.Missing[0], domain.ErrMissingMetadata)
}

func TestEncodeDecodeRows(t *testing.T) {
	idx, _ := domain.NewSiteIndex(testSites())
	id := testSites()[0].DocumentID()
	rows, err := NewFlattener().FlattenOne(&domain.StructuredResult{
		Source: id,
		Assets: []domain.AssetRecord{{AssetType: "transformer", CapacityValue: domain.NumberScalar("1600"), CapacityUnit: strPtr("kVA")}},
	}, idx)
	require.NoError(t, err)

	data, err := EncodeRows(rows)
	require.NoError(t, err)
	got, err := DecodeRows(data)
	require.NoError(t, err)
	assert.Equal(t, rows, got)

	empty, err := EncodeRows(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(empty))
}
