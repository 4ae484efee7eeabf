package services

import (
	"testing"

	"github.com/futureguard/api/model"
)

func TestStandardizeRowCoercion(t *testing.T) {
	std := NewStandardizer(testCatalog())

	rec, missing := std.StandardizeRow(map[string]string{
		"Roll No":   "R-104",
		"Att %":     "82.5",
		"CGPA":      "7.9",
		"Fees Paid": "Paid",
	})

	if len(missing) != 0 {
		t.Fatalf("row should be complete, missing %v", missing)
	}
	if rec.RollID != "R-104" {
		t.Errorf("RollID = %q, want R-104", rec.RollID)
	}
	if got := rec.Features["attendancePercentage"]; got != 82.5 {
		t.Errorf("attendancePercentage = %v, want 82.5", got)
	}
	if got := rec.Features["cgpa"]; got != 7.9 {
		t.Errorf("cgpa = %v, want 7.9", got)
	}
	if got := rec.Features["feesPaid"]; got != true {
		t.Errorf("feesPaid = %v, want true", got)
	}
	if _, ok := rec.Features["studentId"]; ok {
		t.Error("identity fields must not leak into the ML feature set")
	}
	if got := rec.Identity["studentId"]; got != "R-104" {
		t.Errorf("Identity[studentId] = %v, want R-104", got)
	}
}

func TestStandardizeRowUnparseableValueIsAbsent(t *testing.T) {
	std := NewStandardizer(testCatalog())

	rec, missing := std.StandardizeRow(map[string]string{
		"Roll No": "R-105",
		"Att %":   "eighty",
		"CGPA":    "8.1",
	})

	if _, ok := rec.Features["attendancePercentage"]; ok {
		t.Error("unparseable number should be treated as absent")
	}
	if len(missing) != 1 || missing[0] != "Attendance %" {
		t.Errorf("missing = %v, want [Attendance %%]", missing)
	}
}

func TestStandardizeRowAppliesDefaults(t *testing.T) {
	cat := testCatalog()
	cat.Fields = append(cat.Fields, CatalogField{
		FieldKey:     "lateSubmissionCount",
		DisplayName:  "Late Submissions",
		Type:         "number",
		UseInML:      true,
		DefaultValue: float64(0),
	})
	std := NewStandardizer(cat)

	rec, _ := std.StandardizeRow(map[string]string{
		"Roll No": "R-106",
		"Att %":   "91",
		"CGPA":    "8.8",
	})

	if got := rec.Features["lateSubmissionCount"]; got != float64(0) {
		t.Errorf("default not applied, got %v", got)
	}
}

func TestStandardizerWithMappingOverridesAliases(t *testing.T) {
	cat := testCatalog()
	key := "attendancePercentage"
	std := NewStandardizerWithMapping(cat, []model.MappingColumn{
		{SourceHeader: "Presence Rate", FieldKey: &key, Type: "number"},
	})

	rec, _ := std.StandardizeRow(map[string]string{
		"Roll No":       "R-107",
		"Presence Rate": "64",
		"CGPA":          "6.2",
	})

	if got := rec.Features["attendancePercentage"]; got != 64.0 {
		t.Errorf("mapped header should feed attendancePercentage, got %v", got)
	}
}

func TestStandardizeRowsFailFast(t *testing.T) {
	std := NewStandardizer(testCatalog())

	rows := []map[string]string{
		{"Roll No": "R-1", "Att %": "80", "CGPA": "7.0"},
		{"Roll No": "R-2", "CGPA": "7.5"}, // attendance missing
		{"Roll No": "R-3", "Att %": "90", "CGPA": "9.0"},
	}

	records, err := std.StandardizeRows(rows)
	if err == nil {
		t.Fatal("expected a required-fields error")
	}
	if records != nil {
		t.Error("no partial batch may survive a validation failure")
	}

	pe, ok := AsPipelineError(err)
	if !ok {
		t.Fatalf("expected a PipelineError, got %T", err)
	}
	if pe.Kind != KindRequiredFieldsMissing {
		t.Errorf("kind = %s, want %s", pe.Kind, KindRequiredFieldsMissing)
	}
	if len(pe.Fields) != 1 || pe.Fields[0] != "Attendance %" {
		t.Errorf("fields = %v, want [Attendance %%]", pe.Fields)
	}
}
