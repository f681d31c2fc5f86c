package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/custodia-labs/permit-assets/internal/core/domain"
)

// structuredResultSchema is the JSON Schema every extraction must satisfy
// once entries without an asset type have been dropped.
var structuredResultSchema = map[string]any{
	"$schema":  "http://json-schema.org/draft-07/schema#",
	"type":     "object",
	"required": []string{"source", "assets"},
	"properties": map[string]any{
		"source": map[string]any{"type": "string", "minLength": 1},
		"assets": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":     "object",
				"required": []string{"asset_type"},
				"properties": map[string]any{
					"asset_type":     map[string]any{"type": "string", "minLength": 1},
					"capacity_value": map[string]any{"type": []string{"string", "number", "null"}},
					"capacity_unit":  map[string]any{"type": []string{"string", "null"}},
					"count_of_units": map[string]any{"type": []string{"string", "number", "null"}},
				},
			},
		},
	},
}

// compileResultSchema compiles structuredResultSchema.
func compileResultSchema() (*jsonschema.Schema, error) {
	b, err := json.Marshal(structuredResultSchema)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("structured_result.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("structured_result.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// ResultParser turns untyped backend output into a validated StructuredResult.
type ResultParser struct {
	schema *jsonschema.Schema
}

// NewResultParser compiles the structured result schema.
func NewResultParser() (*ResultParser, error) {
	schema, err := compileResultSchema()
	if err != nil {
		return nil, err
	}
	return &ResultParser{schema: schema}, nil
}

// Parse validates raw backend output for document id.
//
// Accepted envelopes are an object with an "assets" array, a bare array of
// assets, a single asset object, or an empty object. Entries that are not
// objects or lack a non-empty string asset_type are dropped and counted.
// Output must hold exactly one JSON value.
// Anything else is rejected with domain.ErrInvalidInput.
func (p *ResultParser) Parse(id domain.DocumentID, raw string) (*domain.StructuredResult, int, error) {
	body := stripCodeFence(raw)
	if body == "" {
		return nil, 0, fmt.Errorf("%w: empty output", domain.ErrInvalidInput)
	}

	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, 0, fmt.Errorf("%w: output is not JSON: %v", domain.ErrInvalidInput, err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, 0, fmt.Errorf("%w: unexpected content after the JSON value", domain.ErrInvalidInput)
	}

	entries, err := assetEntries(payload)
	if err != nil {
		return nil, 0, err
	}

	kept := make([]any, 0, len(entries))
	dropped := 0
	for _, e := range entries {
		obj, ok := e.(map[string]any)
		if !ok {
			dropped++
			continue
		}
		at, ok := obj["asset_type"].(string)
		if !ok || strings.TrimSpace(at) == "" {
			dropped++
			continue
		}
		obj["asset_type"] = strings.TrimSpace(at)
		kept = append(kept, obj)
	}

	envelope := map[string]any{
		"source": string(id),
		"assets": kept,
	}
	if err := p.schema.Validate(envelope); err != nil {
		return nil, dropped, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return nil, dropped, fmt.Errorf("encode result: %w", err)
	}
	result, err := domain.ParseStructuredResult(data)
	if err != nil {
		return nil, dropped, err
	}
	return result, dropped, nil
}

// assetEntries extracts the asset list from an accepted envelope.
func assetEntries(payload any) ([]any, error) {
	switch v := payload.(type) {
	case []any:
		return v, nil
	case map[string]any:
		if assets, ok := v["assets"]; ok {
			list, ok := assets.([]any)
			if !ok {
				if assets == nil {
					return []any{}, nil
				}
				return nil, fmt.Errorf("%w: assets is not an array", domain.ErrInvalidInput)
			}
			return list, nil
		}
		if _, ok := v["asset_type"]; ok {
			return []any{v}, nil
		}
		if len(v) == 0 {
			return []any{}, nil
		}
		return nil, fmt.Errorf("%w: object has neither assets nor asset_type", domain.ErrInvalidInput)
	default:
		return nil, fmt.Errorf("%w: output is a %T, not an object or array", domain.ErrInvalidInput, payload)
	}
}

// stripCodeFence removes a surrounding markdown code fence, if any.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = ""
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
