package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/futureguard/api/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrUnlockForbidden and friends guard governance operations.
var (
	ErrSuperAdminMissing = errors.New("superadmin account not found")
	ErrAdminMissing      = errors.New("institute has no admin account")
)

// CounterDelta is a signed change to an actor's risk/success counters. The
// same delta is applied to every tier in scope within one transaction.
type CounterDelta struct {
	RiskHigh   int64
	RiskMedium int64
	RiskLow    int64
	Success    int64
}

// IsZero reports whether the delta changes nothing.
func (d CounterDelta) IsZero() bool {
	return d.RiskHigh == 0 && d.RiskMedium == 0 && d.RiskLow == 0 && d.Success == 0
}

// Negate returns the inverse delta, used for cascading corrections.
func (d CounterDelta) Negate() CounterDelta {
	return CounterDelta{
		RiskHigh:   -d.RiskHigh,
		RiskMedium: -d.RiskMedium,
		RiskLow:    -d.RiskLow,
		Success:    -d.Success,
	}
}

// riskDelta builds a delta of sign n on a single risk level.
func riskDelta(level string, n int64) CounterDelta {
	switch level {
	case model.RiskHigh:
		return CounterDelta{RiskHigh: n}
	case model.RiskMedium:
		return CounterDelta{RiskMedium: n}
	case model.RiskLow:
		return CounterDelta{RiskLow: n}
	}
	return CounterDelta{}
}

// add combines two deltas.
func (d CounterDelta) add(o CounterDelta) CounterDelta {
	return CounterDelta{
		RiskHigh:   d.RiskHigh + o.RiskHigh,
		RiskMedium: d.RiskMedium + o.RiskMedium,
		RiskLow:    d.RiskLow + o.RiskLow,
		Success:    d.Success + o.Success,
	}
}

// snapshotDelta extracts an actor's current risk/success counters as a delta,
// for cascade subtraction.
func snapshotDelta(c model.AggregateCounters) CounterDelta {
	return CounterDelta{
		RiskHigh:   c.RiskHigh,
		RiskMedium: c.RiskMedium,
		RiskLow:    c.RiskLow,
		Success:    c.Success,
	}
}

// AggregationService owns the hierarchical counters: applying signed deltas
// to the mentor/admin/superadmin chain, cascading corrections on deletion,
// and the idempotent active-status flip. Every write path here runs inside a
// caller- or self-owned transaction; counters must never drift from the
// student records that justify them.
type AggregationService struct {
	db *gorm.DB
}

// NewAggregationService creates a new aggregation service
func NewAggregationService(db *gorm.DB) *AggregationService {
	return &AggregationService{db: db}
}

// applyCounters applies a delta to a set of user rows selected by cond.
func applyCounters(tx *gorm.DB, d CounterDelta, cond string, args ...interface{}) error {
	updates := map[string]interface{}{}
	if d.RiskHigh != 0 {
		updates["agg_risk_high"] = gorm.Expr("agg_risk_high + ?", d.RiskHigh)
	}
	if d.RiskMedium != 0 {
		updates["agg_risk_medium"] = gorm.Expr("agg_risk_medium + ?", d.RiskMedium)
	}
	if d.RiskLow != 0 {
		updates["agg_risk_low"] = gorm.Expr("agg_risk_low + ?", d.RiskLow)
	}
	if d.Success != 0 {
		updates["agg_success"] = gorm.Expr("agg_success + ?", d.Success)
	}
	if len(updates) == 0 {
		return nil
	}
	return tx.Model(&model.User{}).Where(cond, args...).UpdateColumns(updates).Error
}

// ApplyDeltaTx applies one delta to all three tiers in the mentor's scope:
// the mentor itself, its institute's admin, and the platform superadmin.
// Must be called inside the same transaction as the student record write
// that produced the delta.
func (s *AggregationService) ApplyDeltaTx(tx *gorm.DB, mentor *model.User, d CounterDelta) error {
	if d.IsZero() {
		return nil
	}
	if mentor.InstituteID == nil {
		return fmt.Errorf("mentor %d has no institute", mentor.ID)
	}

	if err := applyCounters(tx, d, "id = ?", mentor.ID); err != nil {
		return fmt.Errorf("failed to update mentor counters: %w", err)
	}
	if err := applyCounters(tx, d, "role = ? AND institute_id = ?", model.RoleAdmin, *mentor.InstituteID); err != nil {
		return fmt.Errorf("failed to update admin counters: %w", err)
	}
	if err := applyCounters(tx, d, "role = ?", model.RoleSuperAdmin); err != nil {
		return fmt.Errorf("failed to update superadmin counters: %w", err)
	}
	return nil
}

// LoadUser loads one account row, counters included.
func (s *AggregationService) LoadUser(ctx context.Context, id uint, out *model.User) error {
	return s.db.WithContext(ctx).First(out, id).Error
}

// CountersFor reloads an actor's counters for dashboard reads.
func (s *AggregationService) CountersFor(ctx context.Context, userID uint) (*model.AggregateCounters, error) {
	var user model.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		return nil, err
	}
	return &user.Counters, nil
}

// SetActiveStatus flips an actor's active flag and adjusts the parent's
// {active,inactive} pair. Guarded to no-op when the flag is unchanged:
// re-submitting the same status must not double count. Returns whether a
// change happened.
func (s *AggregationService) SetActiveStatus(ctx context.Context, targetID uint, active bool) (bool, error) {
	changed := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var target model.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&target, targetID).Error; err != nil {
			return err
		}

		if target.ActiveStatus == active {
			return nil // idempotent flip guard
		}
		changed = true

		if err := tx.Model(&target).UpdateColumn("active_status", active).Error; err != nil {
			return err
		}

		return s.adjustParentStatusPair(tx, &target, active)
	})
	return changed, err
}

// adjustParentStatusPair moves one unit between the parent's active and
// inactive counters for the flipped child.
func (s *AggregationService) adjustParentStatusPair(tx *gorm.DB, target *model.User, nowActive bool) error {
	var activeCol, inactiveCol string
	var cond string
	var args []interface{}

	switch target.Role {
	case model.RoleMentor:
		if target.InstituteID == nil {
			return nil
		}
		activeCol, inactiveCol = "agg_mentors_active", "agg_mentors_inactive"
		cond, args = "role = ? AND institute_id = ?", []interface{}{model.RoleAdmin, *target.InstituteID}
	case model.RoleAdmin:
		activeCol, inactiveCol = "agg_institutes_active", "agg_institutes_inactive"
		cond, args = "role = ?", []interface{}{model.RoleSuperAdmin}
	default:
		return nil // superadmin has no parent
	}

	from, to := activeCol, inactiveCol
	if nowActive {
		from, to = inactiveCol, activeCol
	}

	return tx.Model(&model.User{}).Where(cond, args...).UpdateColumns(map[string]interface{}{
		from: gorm.Expr(from + " - 1"),
		to:   gorm.Expr(to + " + 1"),
	}).Error
}

// RegisterChild bumps the parent's active/inactive pair when a new actor is
// created under it, so the status counters stay consistent with the roster.
func (s *AggregationService) RegisterChild(tx *gorm.DB, child *model.User) error {
	col := "agg_mentors_active"
	if !child.ActiveStatus {
		col = "agg_mentors_inactive"
	}

	switch child.Role {
	case model.RoleMentor:
		if child.InstituteID == nil {
			return nil
		}
		return tx.Model(&model.User{}).
			Where("role = ? AND institute_id = ?", model.RoleAdmin, *child.InstituteID).
			UpdateColumn(col, gorm.Expr(col+" + 1")).Error
	case model.RoleAdmin:
		col = "agg_institutes_active"
		if !child.ActiveStatus {
			col = "agg_institutes_inactive"
		}
		return tx.Model(&model.User{}).
			Where("role = ?", model.RoleSuperAdmin).
			UpdateColumn(col, gorm.Expr(col+" + 1")).Error
	}
	return nil
}

// unregisterChild is the inverse of RegisterChild, used during cascades.
func (s *AggregationService) unregisterChild(tx *gorm.DB, child *model.User) error {
	switch child.Role {
	case model.RoleMentor:
		if child.InstituteID == nil {
			return nil
		}
		col := "agg_mentors_active"
		if !child.ActiveStatus {
			col = "agg_mentors_inactive"
		}
		return tx.Model(&model.User{}).
			Where("role = ? AND institute_id = ?", model.RoleAdmin, *child.InstituteID).
			UpdateColumn(col, gorm.Expr(col+" - 1")).Error
	case model.RoleAdmin:
		col := "agg_institutes_active"
		if !child.ActiveStatus {
			col = "agg_institutes_inactive"
		}
		return tx.Model(&model.User{}).
			Where("role = ?", model.RoleSuperAdmin).
			UpdateColumn(col, gorm.Expr(col+" - 1")).Error
	}
	return nil
}

// CascadeDeleteMentor removes a mentor: its counter snapshot is subtracted
// from the admin and the superadmin, its student records are deleted, and
// the admin's mentor-status pair is decremented, all in one transaction.
func (s *AggregationService) CascadeDeleteMentor(ctx context.Context, mentorID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var mentor model.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&mentor, mentorID).Error; err != nil {
			return err
		}
		if mentor.Role != model.RoleMentor {
			return fmt.Errorf("user %d is not a mentor", mentorID)
		}

		correction := snapshotDelta(mentor.Counters).Negate()
		if !correction.IsZero() && mentor.InstituteID != nil {
			if err := applyCounters(tx, correction, "role = ? AND institute_id = ?", model.RoleAdmin, *mentor.InstituteID); err != nil {
				return fmt.Errorf("failed to correct admin counters: %w", err)
			}
			if err := applyCounters(tx, correction, "role = ?", model.RoleSuperAdmin); err != nil {
				return fmt.Errorf("failed to correct superadmin counters: %w", err)
			}
		}

		if err := tx.Where("mentor_id = ?", mentor.ID).Delete(&model.StudentRecord{}).Error; err != nil {
			return fmt.Errorf("failed to delete mentor's students: %w", err)
		}

		if err := s.unregisterChild(tx, &mentor); err != nil {
			return err
		}

		if err := tx.Unscoped().Delete(&mentor).Error; err != nil {
			return err
		}

		log.Printf("[AGGREGATION] mentor %d removed, corrected deltas %+v", mentorID, correction)
		return nil
	})
}

// CascadeDeleteInstitute removes an institute with its admin and mentors:
// the admin's counter snapshot (which already rolls up every mentor under
// it) is subtracted from the superadmin, all scoped student records and
// accounts are deleted, and the superadmin's institute-status pair is
// decremented, one transaction end to end.
func (s *AggregationService) CascadeDeleteInstitute(ctx context.Context, instituteID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var institute model.Institute
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&institute, instituteID).Error; err != nil {
			return err
		}

		var admin model.User
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("role = ? AND institute_id = ?", model.RoleAdmin, instituteID).
			First(&admin).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err == nil {
			correction := snapshotDelta(admin.Counters).Negate()
			if !correction.IsZero() {
				if err := applyCounters(tx, correction, "role = ?", model.RoleSuperAdmin); err != nil {
					return fmt.Errorf("failed to correct superadmin counters: %w", err)
				}
			}
			if err := s.unregisterChild(tx, &admin); err != nil {
				return err
			}
		}

		if err := tx.Where("institute_id = ?", instituteID).Delete(&model.StudentRecord{}).Error; err != nil {
			return fmt.Errorf("failed to delete institute's students: %w", err)
		}

		if err := tx.Unscoped().Where("institute_id = ?", instituteID).Delete(&model.User{}).Error; err != nil {
			return fmt.Errorf("failed to delete institute's accounts: %w", err)
		}

		if err := tx.Unscoped().Delete(&institute).Error; err != nil {
			return err
		}

		log.Printf("[AGGREGATION] institute %d removed with all scoped accounts", instituteID)
		return nil
	})
}

// RiskCounts is a recomputed ground-truth view over student records, used by
// the drift audit job.
type RiskCounts struct {
	High   int64
	Medium int64
	Low    int64
}

// RecomputeRiskCounts tallies student records for a scope condition.
func (s *AggregationService) RecomputeRiskCounts(ctx context.Context, cond string, args ...interface{}) (RiskCounts, error) {
	var counts RiskCounts
	type row struct {
		RiskLevel string
		N         int64
	}
	var rows []row
	q := s.db.WithContext(ctx).Model(&model.StudentRecord{}).
		Select("risk_level, count(*) as n").
		Group("risk_level")
	if cond != "" {
		q = q.Where(cond, args...)
	}
	if err := q.Scan(&rows).Error; err != nil {
		return counts, err
	}
	for _, r := range rows {
		switch r.RiskLevel {
		case model.RiskHigh:
			counts.High = r.N
		case model.RiskMedium:
			counts.Medium = r.N
		case model.RiskLow:
			counts.Low = r.N
		}
	}
	return counts, nil
}
