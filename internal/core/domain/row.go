package domain

// FlatRowColumns lists the output table columns in order.
var FlatRowColumns = []string{
	"id",
	"nummer",
	"naam",
	"gemeente",
	"postcode",
	"asset_type",
	"capacity_value",
	"capacity_unit",
	"count_of_units",
}

// FlatRow joins one site with one asset. Rows are created by the flatten
// stage and never mutated afterwards.
type FlatRow struct {
	Document      DocumentID `json:"document"`
	ID            string     `json:"id"`
	Nummer        string     `json:"nummer"`
	Naam          string     `json:"naam"`
	Gemeente      string     `json:"gemeente"`
	Postcode      string     `json:"postcode"`
	AssetType     string     `json:"asset_type"`
	CapacityValue Scalar     `json:"capacity_value"`
	CapacityUnit  *string    `json:"capacity_unit"`
	CountOfUnits  Scalar     `json:"count_of_units"`
}

// NewFlatRow combines site fields and asset fields.
func NewFlatRow(id DocumentID, site SiteMetadata, asset AssetRecord) FlatRow {
	return FlatRow{
		Document:      id,
		ID:            site.ID,
		Nummer:        site.Nummer,
		Naam:          site.Naam,
		Gemeente:      site.Gemeente,
		Postcode:      site.Postcode,
		AssetType:     asset.AssetType,
		CapacityValue: asset.CapacityValue,
		CapacityUnit:  asset.CapacityUnit,
		CountOfUnits:  asset.CountOfUnits,
	}
}

// Values returns the row's cells in FlatRowColumns order.
// Numeric scalars are returned as float64 so spreadsheet writers keep them numeric.
func (r FlatRow) Values() []any {
	unit := ""
	if r.CapacityUnit != nil {
		unit = *r.CapacityUnit
	}
	return []any{
		r.ID,
		r.Nummer,
		r.Naam,
		r.Gemeente,
		r.Postcode,
		r.AssetType,
		scalarCell(r.CapacityValue),
		unit,
		scalarCell(r.CountOfUnits),
	}
}

// Strings returns the row's cells as text in FlatRowColumns order.
func (r FlatRow) Strings() []string {
	unit := ""
	if r.CapacityUnit != nil {
		unit = *r.CapacityUnit
	}
	return []string{
		r.ID,
		r.Nummer,
		r.Naam,
		r.Gemeente,
		r.Postcode,
		r.AssetType,
		r.CapacityValue.String(),
		unit,
		r.CountOfUnits.String(),
	}
}

func scalarCell(s Scalar) any {
	if f, ok := s.Float(); ok {
		return f
	}
	return s.String()
}
