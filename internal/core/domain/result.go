package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Scalar is an optional JSON value that is a number, a string or null.
// Numbers keep their literal text so a result survives a round trip unchanged.
type Scalar struct {
	str   string
	num   json.Number
	isNum bool
	isSet bool
}

// StringScalar returns a Scalar holding s.
func StringScalar(s string) Scalar {
	return Scalar{str: s, isSet: true}
}

// NumberScalar returns a Scalar holding the numeric literal n.
func NumberScalar(n string) Scalar {
	return Scalar{num: json.Number(n), isNum: true, isSet: true}
}

// IsNull reports whether the value is absent.
func (s Scalar) IsNull() bool {
	return !s.isSet
}

// IsNumber reports whether the value is numeric.
func (s Scalar) IsNumber() bool {
	return s.isSet && s.isNum
}

// String renders the value as text. Null renders as the empty string.
func (s Scalar) String() string {
	switch {
	case !s.isSet:
		return ""
	case s.isNum:
		return s.num.String()
	default:
		return s.str
	}
}

// Float returns the numeric value. The second value is false for strings and null.
func (s Scalar) Float() (float64, bool) {
	if !s.IsNumber() {
		return 0, false
	}
	f, err := s.num.Float64()
	if err != nil {
		return 0, false
	}
	return f, true
}

// MarshalJSON implements json.Marshaler.
func (s Scalar) MarshalJSON() ([]byte, error) {
	switch {
	case !s.isSet:
		return []byte("null"), nil
	case s.isNum:
		return []byte(s.num), nil
	default:
		return json.Marshal(s.str)
	}
}

// UnmarshalJSON implements json.Unmarshaler. Only numbers, strings and null are accepted.
func (s *Scalar) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*s = Scalar{}
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}

	switch val := v.(type) {
	case string:
		*s = StringScalar(val)
	case json.Number:
		*s = NumberScalar(val.String())
	default:
		return fmt.Errorf("%w: expected number, string or null, got %s", ErrInvalidInput, trimmed)
	}
	return nil
}

// AssetRecord is one piece of equipment identified in a document.
type AssetRecord struct {
	AssetType     string  `json:"asset_type"`
	CapacityValue Scalar  `json:"capacity_value"`
	CapacityUnit  *string `json:"capacity_unit"`
	CountOfUnits  Scalar  `json:"count_of_units"`
}

// Unit returns the capacity unit, or the empty string when absent.
func (a AssetRecord) Unit() string {
	if a.CapacityUnit == nil {
		return ""
	}
	return *a.CapacityUnit
}

// Validate checks the record's required fields.
func (a AssetRecord) Validate() error {
	if strings.TrimSpace(a.AssetType) == "" {
		return fmt.Errorf("%w: asset_type is required", ErrInvalidInput)
	}
	return nil
}

// StructuredResult is the validated extraction output for one document.
// An empty Assets slice is a valid "no assets found" outcome.
type StructuredResult struct {
	Source DocumentID    `json:"source"`
	Assets []AssetRecord `json:"assets"`
}

// Validate checks the result against the structured result shape.
func (r StructuredResult) Validate() error {
	if r.Source == "" {
		return fmt.Errorf("%w: source is required", ErrInvalidInput)
	}
	for i, a := range r.Assets {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("asset %d: %w", i, err)
		}
	}
	return nil
}

// MarshalJSON always emits assets as an array, never null.
func (r StructuredResult) MarshalJSON() ([]byte, error) {
	type alias StructuredResult
	out := alias(r)
	if out.Assets == nil {
		out.Assets = []AssetRecord{}
	}
	return json.Marshal(out)
}

// ParseStructuredResult decodes and validates a structured_result artifact.
func ParseStructuredResult(data []byte) (*StructuredResult, error) {
	var r StructuredResult
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode structured result: %w", err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if r.Assets == nil {
		r.Assets = []AssetRecord{}
	}
	return &r, nil
}
