package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/futureguard/api/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Transition describes what one scored record did to the stored state:
// whether a student row was created or its risk level changed, whether the
// change counts as a success event, and the counter delta the change
// implies for the aggregation tiers.
type Transition struct {
	Created bool
	Changed bool
	OldRisk *string
	NewRisk string
	Success bool
	Delta   CounterDelta
}

// ComputeTransition derives the transition for a student moving from
// oldRisk (nil when the student is new) to newRisk. A success event fires
// only on the high/medium to low edge, so repeated low results never
// double count and a student who relapses can produce another success on
// the next recovery.
func ComputeTransition(oldRisk *string, newRisk string) Transition {
	t := Transition{NewRisk: newRisk}

	if oldRisk == nil {
		t.Created = true
		t.Delta = riskDelta(newRisk, 1)
		return t
	}

	if *oldRisk == newRisk {
		return t // unchanged, zero delta
	}

	t.Changed = true
	t.OldRisk = oldRisk
	t.Delta = riskDelta(*oldRisk, -1).add(riskDelta(newRisk, 1))

	if (*oldRisk == model.RiskHigh || *oldRisk == model.RiskMedium) && newRisk == model.RiskLow {
		t.Success = true
		t.Delta.Success = 1
	}
	return t
}

// ReconcileService applies scored records to the database. Each record runs
// in its own transaction covering both the student write and the counter
// updates on all three tiers, so a crash can never leave a student counted
// but not stored or vice versa.
type ReconcileService struct {
	db  *gorm.DB
	agg *AggregationService
}

// NewReconcileService creates a new reconcile service
func NewReconcileService(db *gorm.DB, agg *AggregationService) *ReconcileService {
	return &ReconcileService{db: db, agg: agg}
}

// ReconcileRecord upserts one student under the mentor and applies the
// resulting counter delta. Concurrent creates of the same (roll, institute)
// pair lose the insert race on the unique index; the loser retries once and
// lands on the update path. A second duplicate failure surfaces as a
// DUPLICATE_STUDENT_CONFLICT pipeline error.
func (s *ReconcileService) ReconcileRecord(ctx context.Context, mentor *model.User, rec CanonicalRecord, pred Prediction) (Transition, error) {
	tr, err := s.reconcileOnce(ctx, mentor, rec, pred)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		tr, err = s.reconcileOnce(ctx, mentor, rec, pred)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return tr, NewPipelineError(KindDuplicateStudent,
			fmt.Sprintf("student %s was written concurrently, please retry the upload", rec.RollID))
	}
	return tr, err
}

func (s *ReconcileService) reconcileOnce(ctx context.Context, mentor *model.User, rec CanonicalRecord, pred Prediction) (Transition, error) {
	if mentor.InstituteID == nil {
		return Transition{}, fmt.Errorf("mentor %d has no institute", mentor.ID)
	}
	instituteID := *mentor.InstituteID

	merged, err := rec.MergedJSON()
	if err != nil {
		return Transition{}, fmt.Errorf("failed to encode standardized input: %w", err)
	}

	var tr Transition
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.StudentRecord
		findErr := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("roll_id = ? AND institute_id = ?", rec.RollID, instituteID).
			First(&existing).Error

		switch {
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			tr = ComputeTransition(nil, pred.RiskLabel)
			student := model.StudentRecord{
				RollID:            rec.RollID,
				InstituteID:       instituteID,
				MentorID:          mentor.ID,
				RiskLevel:         pred.RiskLabel,
				StandardizedInput: datatypes.JSON(merged),
				MetadataVersion:   1,
				LastUpdatedBy:     mentor.ID,
			}
			if err := tx.Create(&student).Error; err != nil {
				return err // gorm.ErrDuplicatedKey on a lost insert race
			}

		case findErr != nil:
			return findErr

		default:
			old := existing.RiskLevel
			tr = ComputeTransition(&old, pred.RiskLabel)

			updates := map[string]interface{}{
				"standardized_input": datatypes.JSON(merged),
				"last_updated_by":    mentor.ID,
			}
			if tr.Changed {
				updates["previous_risk_level"] = old
				updates["risk_level"] = pred.RiskLabel
				updates["success"] = tr.Success
			}
			if err := tx.Model(&existing).Updates(updates).Error; err != nil {
				return err
			}
		}

		return s.agg.ApplyDeltaTx(tx, mentor, tr.Delta)
	})
	return tr, err
}
