package services

import (
	"context"
	"fmt"
	"log"

	"github.com/futureguard/api/model"
)

// ParsedFile is one uploaded spreadsheet after parsing: the original file
// name and its rows as raw header -> cell maps.
type ParsedFile struct {
	Name string
	Rows []map[string]string
}

// StudentOutcome reports what one row did to the stored roster.
type StudentOutcome struct {
	RollID            string  `json:"roll_id"`
	RiskLevel         string  `json:"risk_level"`
	PreviousRiskLevel *string `json:"previous_risk_level,omitempty"`
	Success           bool    `json:"success"`
	Created           bool    `json:"created"`
	Explanation       string  `json:"explanation,omitempty"`
	Recommendation    string  `json:"recommendation,omitempty"`
}

// FileError is the serializable form of a per-file pipeline failure.
type FileError struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Fields  []string `json:"fields,omitempty"`
}

// FileSummary is the per-file ingestion report. A file either produces a
// full summary or a classified error; it never half-imports.
type FileSummary struct {
	FileName      string           `json:"file_name"`
	BatchID       string           `json:"batch_id"`
	Skipped       bool             `json:"skipped"`
	TotalRows     int              `json:"total_rows"`
	Created       int              `json:"created"`
	Updated       int              `json:"updated"`
	Unchanged     int              `json:"unchanged"`
	RiskCounts    map[string]int   `json:"risk_counts"`
	SuccessEvents int              `json:"success_events"`
	Students      []StudentOutcome `json:"students,omitempty"`
	Error         *FileError       `json:"error,omitempty"`
}

// UploadService orchestrates the ingestion pipeline for a mentor's upload:
// catalog load, standardization, external scoring, and per-record
// reconciliation. Files are isolated from each other; one bad file never
// aborts its siblings.
type UploadService struct {
	catalog    *CatalogService
	mappings   *MappingService
	scorer     *ScoringClient
	reconciler *ReconcileService
}

// NewUploadService creates a new upload service
func NewUploadService(catalog *CatalogService, mappings *MappingService, scorer *ScoringClient, reconciler *ReconcileService) *UploadService {
	return &UploadService{
		catalog:    catalog,
		mappings:   mappings,
		scorer:     scorer,
		reconciler: reconciler,
	}
}

// ProcessUpload runs the pipeline over every file in the batch. Pipeline
// failures are recorded on the file's summary and processing continues with
// the next file; only infrastructure errors (database, catalog store) abort
// the batch.
func (s *UploadService) ProcessUpload(ctx context.Context, mentor *model.User, files []ParsedFile) ([]FileSummary, error) {
	if mentor.InstituteID == nil {
		return nil, fmt.Errorf("mentor %d has no institute", mentor.ID)
	}

	cat, err := s.catalog.Load(ctx)
	if err != nil {
		return nil, err
	}

	mappingCols, err := s.mappings.AcceptedColumns(ctx, *mentor.InstituteID)
	if err != nil {
		return nil, err
	}

	std := NewStandardizerWithMapping(cat, mappingCols)

	summaries := make([]FileSummary, 0, len(files))
	for _, f := range files {
		summary, err := s.processFile(ctx, mentor, std, f)
		if err != nil {
			if pe, ok := AsPipelineError(err); ok {
				summary.Error = &FileError{
					Code:    string(pe.Kind),
					Message: pe.Message,
					Fields:  pe.Fields,
				}
				summary.Skipped = true
				log.Printf("[UPLOAD] file %s rejected: %v", f.Name, pe)
			} else {
				return nil, fmt.Errorf("failed to process file %s: %w", f.Name, err)
			}
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (s *UploadService) processFile(ctx context.Context, mentor *model.User, std *Standardizer, f ParsedFile) (FileSummary, error) {
	summary := FileSummary{
		FileName:   f.Name,
		BatchID:    NewCorrelationID(),
		TotalRows:  len(f.Rows),
		RiskCounts: map[string]int{},
	}

	if len(f.Rows) == 0 {
		return summary, NewPipelineError(KindEmptyFile, "file has no data rows")
	}

	records, err := std.StandardizeRows(f.Rows)
	if err != nil {
		return summary, err
	}

	scoring := make([]ScoringRecord, 0, len(records))
	byID := make(map[string]CanonicalRecord, len(records))
	for _, rec := range records {
		scoring = append(scoring, ScoringRecord{ID: rec.RollID, Features: rec.Features})
		byID[rec.RollID] = rec
	}

	preds, err := s.scorer.Predict(ctx, scoring)
	if err != nil {
		return summary, err
	}

	for _, pred := range preds {
		rec, ok := byID[pred.ID]
		if !ok {
			return summary, NewPipelineError(KindScoringUnavailable,
				fmt.Sprintf("scorer returned unknown record id %q", pred.ID))
		}

		tr, err := s.reconciler.ReconcileRecord(ctx, mentor, rec, pred)
		if err != nil {
			return summary, err
		}

		summary.RiskCounts[pred.RiskLabel]++
		switch {
		case tr.Created:
			summary.Created++
		case tr.Changed:
			summary.Updated++
		default:
			summary.Unchanged++
		}
		if tr.Success {
			summary.SuccessEvents++
		}

		summary.Students = append(summary.Students, StudentOutcome{
			RollID:            rec.RollID,
			RiskLevel:         pred.RiskLabel,
			PreviousRiskLevel: tr.OldRisk,
			Success:           tr.Success,
			Created:           tr.Created,
			Explanation:       pred.Explanation,
			Recommendation:    pred.Recommendation,
		})
	}

	log.Printf("[UPLOAD] file %s processed: %d rows, %d created, %d updated, %d success events",
		f.Name, summary.TotalRows, summary.Created, summary.Updated, summary.SuccessEvents)
	return summary, nil
}
