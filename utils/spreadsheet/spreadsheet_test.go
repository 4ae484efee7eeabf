package spreadsheet

import (
	"strings"
	"testing"

	"github.com/futureguard/api/services"
)

func TestParseCSV(t *testing.T) {
	input := "Roll No,Att %,CGPA\nR-1,82,7.9\nR-2,65,5.4\n"

	rows, err := Parse("roster.csv", strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0]["Roll No"] != "R-1" || rows[0]["Att %"] != "82" {
		t.Errorf("first row = %v", rows[0])
	}
	if rows[1]["CGPA"] != "5.4" {
		t.Errorf("second row = %v", rows[1])
	}
}

func TestParseSkipsBlankRows(t *testing.T) {
	input := "Roll No,CGPA\nR-1,7.9\n,\nR-2,5.4\n"

	rows, err := Parse("roster.csv", strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("blank row should be skipped, got %d rows", len(rows))
	}
}

func TestParseRaggedRow(t *testing.T) {
	input := "Roll No,Att %,CGPA\nR-1,82\n"

	rows, err := Parse("roster.csv", strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if _, ok := rows[0]["CGPA"]; ok {
		t.Error("short row must not fabricate a value for the missing cell")
	}
}

func TestParseRejectsWorkbookFormats(t *testing.T) {
	for _, name := range []string{"roster.xlsx", "roster.xls", "roster.pdf", "roster"} {
		_, err := Parse(name, strings.NewReader("x"))
		if !services.IsKind(err, services.KindUnsupportedFileFormat) {
			t.Errorf("%s: got %v, want UNSUPPORTED_FILE_FORMAT", name, err)
		}
	}
}

func TestParseEmptyStream(t *testing.T) {
	_, err := Parse("roster.csv", strings.NewReader(""))
	if !services.IsKind(err, services.KindEmptyFile) {
		t.Errorf("got %v, want EMPTY_FILE", err)
	}
}

func TestParseHeaderOnlyIsZeroRows(t *testing.T) {
	rows, err := Parse("roster.csv", strings.NewReader("Roll No,CGPA\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("header-only file should parse to 0 rows, got %d", len(rows))
	}
}
