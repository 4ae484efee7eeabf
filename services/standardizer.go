package services

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/futureguard/api/model"
)

// FieldKeyStudentID is the catalog field whose value identifies a student
// within an institute (the roll id).
const FieldKeyStudentID = "studentId"

// truthy/falsy tokens accepted for boolean coercion. "paid"/"unpaid" show up
// in fee-status columns.
var boolTokens = map[string]bool{
	"true": true, "yes": true, "y": true, "1": true, "paid": true,
	"false": false, "no": false, "n": false, "0": false, "unpaid": false, "pending": false,
}

// CanonicalRecord is one row after standardization: values keyed by catalog
// fieldKey, split into the ML feature set and identity metadata.
type CanonicalRecord struct {
	RollID   string
	Features map[string]interface{}
	Identity map[string]interface{}
}

// Merged returns features and identity as one map, for persistence.
func (r *CanonicalRecord) Merged() map[string]interface{} {
	out := make(map[string]interface{}, len(r.Features)+len(r.Identity))
	for k, v := range r.Identity {
		out[k] = v
	}
	for k, v := range r.Features {
		out[k] = v
	}
	return out
}

// MergedJSON returns the merged record as JSON for the student record column.
func (r *CanonicalRecord) MergedJSON() ([]byte, error) {
	return json.Marshal(r.Merged())
}

// Standardizer turns raw header->value rows into canonical records using an
// alias map resolved from either a finalized column mapping or the global
// catalog.
type Standardizer struct {
	catalog *Catalog
	aliases map[string]*CatalogField
}

// NewStandardizer builds a standardizer from the catalog's own aliases.
func NewStandardizer(cat *Catalog) *Standardizer {
	return &Standardizer{catalog: cat, aliases: cat.AliasMap()}
}

// NewStandardizerWithMapping builds a standardizer that resolves headers
// through an institute's finalized column mapping. Unmapped columns are
// dropped; headers not present in the mapping fall back to catalog aliases.
func NewStandardizerWithMapping(cat *Catalog, columns []model.MappingColumn) *Standardizer {
	aliases := make(map[string]*CatalogField)
	for _, col := range columns {
		if col.FieldKey == nil {
			continue
		}
		if f := cat.Field(*col.FieldKey); f != nil {
			aliases[NormalizeHeader(col.SourceHeader)] = f
		}
	}
	// Catalog aliases fill the gaps without overriding explicit mappings.
	for alias, f := range cat.AliasMap() {
		if _, ok := aliases[alias]; !ok {
			aliases[alias] = f
		}
	}
	return &Standardizer{catalog: cat, aliases: aliases}
}

// coerceValue converts a raw cell to the field's declared type. The second
// return is false when the value is empty or unparseable, in which case the
// field is treated as absent.
func coerceValue(raw string, fieldType string) (interface{}, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false
	}

	switch fieldType {
	case model.FieldTypeNumber:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, false
		}
		return n, true
	case model.FieldTypeBoolean:
		v, ok := boolTokens[strings.ToLower(raw)]
		if !ok {
			return nil, false
		}
		return v, true
	default: // string, date: pass through trimmed
		return raw, true
	}
}

// StandardizeRow converts one raw row into a canonical record. Returns the
// display names of required catalog fields the row is missing; the caller
// decides file-level policy.
func (s *Standardizer) StandardizeRow(row map[string]string) (CanonicalRecord, []string) {
	rec := CanonicalRecord{
		Features: make(map[string]interface{}),
		Identity: make(map[string]interface{}),
	}

	for header, raw := range row {
		f, ok := s.aliases[NormalizeHeader(header)]
		if !ok {
			continue
		}
		v, ok := coerceValue(raw, f.Type)
		if !ok {
			continue
		}
		if f.UseInML {
			rec.Features[f.FieldKey] = v
		} else {
			rec.Identity[f.FieldKey] = v
		}
	}

	// Catalog defaults for ML fields the row left absent.
	for _, f := range s.catalog.Fields {
		if !f.UseInML || f.DefaultValue == nil {
			continue
		}
		if _, ok := rec.Features[f.FieldKey]; !ok {
			rec.Features[f.FieldKey] = f.DefaultValue
		}
	}

	if v, ok := rec.Identity[FieldKeyStudentID]; ok {
		if id, ok := v.(string); ok {
			rec.RollID = strings.TrimSpace(id)
		}
	}

	var missing []string
	for _, f := range s.catalog.RequiredFields() {
		set := rec.Features
		if !f.UseInML {
			set = rec.Identity
		}
		if v, ok := set[f.FieldKey]; !ok || v == nil {
			missing = append(missing, f.DisplayName)
		}
	}

	return rec, missing
}

// StandardizeRows converts a whole file's rows. Policy is fail-fast: the
// first row missing a required field rejects the file with the missing
// display names, so no partial import ever reaches scoring or aggregation.
func (s *Standardizer) StandardizeRows(rows []map[string]string) ([]CanonicalRecord, error) {
	records := make([]CanonicalRecord, 0, len(rows))
	for i, row := range rows {
		rec, missing := s.StandardizeRow(row)
		if len(missing) > 0 {
			return nil, NewPipelineError(
				KindRequiredFieldsMissing,
				fmt.Sprintf("row %d is missing required fields", i+1),
				missing...,
			)
		}
		records = append(records, rec)
	}
	return records, nil
}
