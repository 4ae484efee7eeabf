package services

import (
	"testing"
)

func testCatalog() *Catalog {
	return &Catalog{Fields: []CatalogField{
		{
			FieldKey:    "studentId",
			DisplayName: "Student ID",
			Type:        "string",
			Required:    true,
			Synonyms:    []string{"roll no", "roll number", "enrollment no", "student id"},
		},
		{
			FieldKey:    "attendancePercentage",
			DisplayName: "Attendance %",
			Type:        "number",
			Required:    true,
			UseInML:     true,
			Synonyms:    []string{"attendance", "att %", "att%", "attendance percentage"},
		},
		{
			FieldKey:    "cgpa",
			DisplayName: "CGPA",
			Type:        "number",
			Required:    true,
			UseInML:     true,
			Synonyms:    []string{"gpa", "grade point average"},
		},
		{
			FieldKey:    "feesPaid",
			DisplayName: "Fees Paid",
			Type:        "boolean",
			UseInML:     true,
			Synonyms:    []string{"fees status", "fee paid"},
		},
	}}
}

func TestNormalizeHeader(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Student ID", "student id"},
		{"  Roll_No. ", "roll no"},
		{"attendancePercentage", "attendance percentage"},
		{"ATT %", "att"},
		{"CGPA", "cgpa"},
		{"", ""},
	}
	for _, c := range cases {
		if got := NormalizeHeader(c.in); got != c.want {
			t.Errorf("NormalizeHeader(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestDiceCoefficient(t *testing.T) {
	if got := DiceCoefficient("attendance", "attendance"); got != 1.0 {
		t.Errorf("identical strings should score 1.0, got %v", got)
	}
	if got := DiceCoefficient("attendance", "xyz"); got != 0 {
		t.Errorf("disjoint strings should score 0, got %v", got)
	}

	sim := DiceCoefficient("attendance percentage", "attendance percent")
	if sim <= 0.8 {
		t.Errorf("near-identical strings should score high, got %v", sim)
	}
}

func TestMatchExactSynonym(t *testing.T) {
	m := NewHeaderMatcher(DefaultMatchThreshold)
	draft := m.Match([]string{"Roll No", "Att %", "CGPA", "Fees Paid"}, testCatalog())

	wantKeys := []string{"studentId", "attendancePercentage", "cgpa", "feesPaid"}
	if len(draft.Columns) != len(wantKeys) {
		t.Fatalf("expected %d columns, got %d", len(wantKeys), len(draft.Columns))
	}
	for i, col := range draft.Columns {
		if col.FieldKey == nil {
			t.Fatalf("column %q left unmapped", col.SourceHeader)
		}
		if *col.FieldKey != wantKeys[i] {
			t.Errorf("column %q mapped to %q, want %q", col.SourceHeader, *col.FieldKey, wantKeys[i])
		}
	}
	if len(draft.MissingFields) != 0 {
		t.Errorf("no required field should be missing, got %v", draft.MissingFields)
	}
}

func TestMatchFuzzyHeader(t *testing.T) {
	m := NewHeaderMatcher(DefaultMatchThreshold)
	draft := m.Match([]string{"Attendance Percent"}, testCatalog())

	col := draft.Columns[0]
	if col.FieldKey == nil || *col.FieldKey != "attendancePercentage" {
		t.Fatalf("fuzzy header should map to attendancePercentage, got %+v", col)
	}
}

func TestMatchUnknownHeaderStaysUnmapped(t *testing.T) {
	m := NewHeaderMatcher(DefaultMatchThreshold)
	draft := m.Match([]string{"Favourite Color"}, testCatalog())

	col := draft.Columns[0]
	if col.FieldKey != nil {
		t.Errorf("unknown header should stay unmapped, got %q", *col.FieldKey)
	}
	if col.Type != "string" {
		t.Errorf("unmapped column should default to string, got %q", col.Type)
	}
}

func TestMatchDuplicateHeadersFirstWins(t *testing.T) {
	m := NewHeaderMatcher(DefaultMatchThreshold)
	draft := m.Match([]string{"CGPA", "GPA"}, testCatalog())

	first, second := draft.Columns[0], draft.Columns[1]
	if first.FieldKey == nil || *first.FieldKey != "cgpa" {
		t.Fatalf("first header should claim cgpa, got %+v", first)
	}
	if second.FieldKey != nil {
		t.Errorf("second header must not claim an already-claimed field, got %q", *second.FieldKey)
	}
}

func TestMatchReportsMissingRequired(t *testing.T) {
	m := NewHeaderMatcher(DefaultMatchThreshold)
	draft := m.Match([]string{"Roll No"}, testCatalog())

	want := map[string]bool{"Attendance %": true, "CGPA": true}
	if len(draft.MissingFields) != len(want) {
		t.Fatalf("expected %d missing fields, got %v", len(want), draft.MissingFields)
	}
	for _, f := range draft.MissingFields {
		if !want[f] {
			t.Errorf("unexpected missing field %q", f)
		}
	}
}

func TestMatchThresholdRejectsWeakScores(t *testing.T) {
	// A threshold just below 1.0 only accepts exact alias hits.
	m := NewHeaderMatcher(0.99)
	draft := m.Match([]string{"Attendance Percent"}, testCatalog())

	if draft.Columns[0].FieldKey != nil {
		t.Errorf("weak match should be rejected at threshold 1.0, got %q", *draft.Columns[0].FieldKey)
	}
}
