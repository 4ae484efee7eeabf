// Package spreadsheet parses uploaded roster files into raw row maps for
// the ingestion pipeline. CSV is the supported interchange format; legacy
// workbook formats are rejected up front with a classified error.
package spreadsheet

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/futureguard/api/services"
)

// supportedExtensions lists the formats Parse accepts.
var supportedExtensions = map[string]bool{
	".csv": true,
}

// rejectedExtensions maps known-but-unsupported formats to a hint.
var rejectedExtensions = map[string]string{
	".xls":  "export the sheet as CSV and upload again",
	".xlsx": "export the sheet as CSV and upload again",
	".ods":  "export the sheet as CSV and upload again",
}

// CheckFormat validates a file name's extension before any bytes are read.
func CheckFormat(filename string) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if supportedExtensions[ext] {
		return nil
	}
	msg := fmt.Sprintf("unsupported file format %q", ext)
	if hint, ok := rejectedExtensions[ext]; ok {
		msg = fmt.Sprintf("unsupported file format %q, %s", ext, hint)
	}
	return services.NewPipelineError(services.KindUnsupportedFileFormat, msg)
}

// Parse reads a CSV stream into row maps keyed by the raw header cells.
// The first record is the header row. Blank lines are skipped by the CSV
// reader; a file with a header but no data rows parses to zero rows, which
// the pipeline classifies as empty.
func Parse(filename string, r io.Reader) ([]map[string]string, error) {
	if err := CheckFormat(filename); err != nil {
		return nil, err
	}

	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1 // ragged rows happen in hand-edited sheets

	header, err := cr.Read()
	if err == io.EOF {
		return nil, services.NewPipelineError(services.KindEmptyFile, "file has no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header row: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows []map[string]string
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", len(rows)+2, err)
		}

		row := make(map[string]string, len(header))
		empty := true
		for i, h := range header {
			if h == "" || i >= len(record) {
				continue
			}
			cell := strings.TrimSpace(record[i])
			row[h] = cell
			if cell != "" {
				empty = false
			}
		}
		if empty {
			continue // skip all-blank rows
		}
		rows = append(rows, row)
	}
	return rows, nil
}
