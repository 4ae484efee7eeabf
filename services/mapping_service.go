package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/futureguard/api/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrUnlockForbidden is returned when anyone below the superadmin tries to
// unlock a finalized mapping.
var ErrUnlockForbidden = errors.New("only the superadmin can unlock a finalized mapping")

// MappingService governs per-institute column mappings: building drafts
// from raw headers, saving reviewed mappings, and the lock lifecycle that
// freezes a mapping once uploads depend on it.
type MappingService struct {
	db      *gorm.DB
	catalog *CatalogService
	matcher *HeaderMatcher
}

// NewMappingService creates a new mapping service
func NewMappingService(db *gorm.DB, catalog *CatalogService, matcher *HeaderMatcher) *MappingService {
	return &MappingService{db: db, catalog: catalog, matcher: matcher}
}

// Get returns the institute's stored mapping, or nil when none was saved yet.
func (s *MappingService) Get(ctx context.Context, instituteID uint) (*model.ColumnMapping, error) {
	var mapping model.ColumnMapping
	err := s.db.WithContext(ctx).Where("institute_id = ?", instituteID).First(&mapping).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &mapping, nil
}

// DecodeColumns unpacks a stored mapping's column list.
func DecodeColumns(m *model.ColumnMapping) ([]model.MappingColumn, error) {
	if m == nil || len(m.Columns) == 0 {
		return nil, nil
	}
	var cols []model.MappingColumn
	if err := json.Unmarshal(m.Columns, &cols); err != nil {
		return nil, fmt.Errorf("failed to decode mapping columns: %w", err)
	}
	return cols, nil
}

// BuildDraft fuzzy-matches raw spreadsheet headers against the field
// catalog and returns the draft for human review. Rejected while the
// institute's mapping is locked: a frozen configuration cannot be redrafted
// from underneath running uploads.
func (s *MappingService) BuildDraft(ctx context.Context, instituteID uint, headers []string) (*DraftMapping, error) {
	existing, err := s.Get(ctx, instituteID)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.Locked {
		return nil, NewPipelineError(KindConfigLocked,
			"column mapping is locked, unlock it before drafting a new one")
	}

	cat, err := s.catalog.Load(ctx)
	if err != nil {
		return nil, err
	}

	draft := s.matcher.Match(headers, cat)
	return &draft, nil
}

// Save upserts the institute's reviewed mapping. Rejected when the mapping
// is locked, and when any catalog-required field is left unmapped (partial
// mappings would make every subsequent upload fail row validation).
func (s *MappingService) Save(ctx context.Context, instituteID uint, cols []model.MappingColumn, actor *model.User) (*model.ColumnMapping, error) {
	cat, err := s.catalog.Load(ctx)
	if err != nil {
		return nil, err
	}
	if missing := missingRequired(cat, cols); len(missing) > 0 {
		return nil, NewPipelineError(KindRequiredFieldsMissing,
			"mapping does not cover all required fields", missing...)
	}

	raw, err := json.Marshal(cols)
	if err != nil {
		return nil, fmt.Errorf("failed to encode mapping columns: %w", err)
	}

	var saved model.ColumnMapping
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.ColumnMapping
		findErr := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("institute_id = ?", instituteID).
			First(&existing).Error

		switch {
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			saved = model.ColumnMapping{
				InstituteID: instituteID,
				Columns:     datatypes.JSON(raw),
				UpdatedBy:   actor.ID,
			}
			return tx.Create(&saved).Error

		case findErr != nil:
			return findErr

		case existing.Locked:
			return NewPipelineError(KindConfigLocked,
				"column mapping is locked and cannot be modified")

		default:
			existing.Columns = datatypes.JSON(raw)
			existing.UpdatedBy = actor.ID
			if err := tx.Save(&existing).Error; err != nil {
				return err
			}
			saved = existing
			return nil
		}
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[MAPPING] institute %d mapping saved by user %d (%d columns)", instituteID, actor.ID, len(cols))
	return &saved, nil
}

// SetLock transitions the mapping's lock state. Locking requires every
// catalog-required field to be mapped; unlocking is reserved for the
// superadmin. Both directions are idempotent. Lock changes are written to
// the admin audit log in the same transaction.
func (s *MappingService) SetLock(ctx context.Context, instituteID uint, locked bool, actor *model.User, ip string) (*model.ColumnMapping, error) {
	if !locked && !actor.IsSuperAdmin() {
		return nil, ErrUnlockForbidden
	}

	var result model.ColumnMapping
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var mapping model.ColumnMapping
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("institute_id = ?", instituteID).
			First(&mapping).Error; err != nil {
			return err
		}

		if mapping.Locked == locked {
			result = mapping
			return nil // already in the requested state
		}

		if locked {
			cat, err := s.catalog.Load(ctx)
			if err != nil {
				return err
			}
			cols, err := DecodeColumns(&mapping)
			if err != nil {
				return err
			}
			if missing := missingRequired(cat, cols); len(missing) > 0 {
				return NewPipelineError(KindRequiredFieldsMissing,
					"cannot lock a mapping that does not cover all required fields", missing...)
			}
		}

		mapping.Locked = locked
		mapping.UpdatedBy = actor.ID
		if err := tx.Save(&mapping).Error; err != nil {
			return err
		}

		action := "mapping_lock"
		if !locked {
			action = "mapping_unlock"
		}
		audit := model.AdminAuditLog{
			ActorID:    actor.ID,
			Action:     action,
			Resource:   "column_mappings",
			ResourceID: mapping.ID,
			Description: fmt.Sprintf("mapping for institute %d set to locked=%t", instituteID, locked),
			IPAddress:  ip,
		}
		if err := tx.Create(&audit).Error; err != nil {
			return err
		}

		result = mapping
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// AcceptedColumns returns the institute's mapped columns (entries with a
// field key), or nil when no mapping exists. Uploads use these as header
// aliases on top of the catalog.
func (s *MappingService) AcceptedColumns(ctx context.Context, instituteID uint) ([]model.MappingColumn, error) {
	mapping, err := s.Get(ctx, instituteID)
	if err != nil || mapping == nil {
		return nil, err
	}
	return DecodeColumns(mapping)
}

// missingRequired lists the display names of catalog-required fields not
// claimed by any mapped column.
func missingRequired(cat *Catalog, cols []model.MappingColumn) []string {
	mapped := map[string]bool{}
	for _, c := range cols {
		if c.FieldKey != nil {
			mapped[*c.FieldKey] = true
		}
	}
	var missing []string
	for _, f := range cat.RequiredFields() {
		if !mapped[f.FieldKey] {
			missing = append(missing, f.DisplayName)
		}
	}
	return missing
}
