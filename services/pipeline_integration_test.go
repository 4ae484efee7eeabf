package services

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/futureguard/api/database"
	"github.com/futureguard/api/model"
	"gorm.io/gorm"
)

// Integration coverage for the transactional core: reconciliation deltas
// rolling up the hierarchy, idempotent status flips, cascading deletions,
// and the mapping lock gate.
//
// Requires a running Postgres (see .env) and:
//
//	RUN_INTEGRATION_TESTS=true go test ./services/...
func integrationDB(t *testing.T) *gorm.DB {
	t.Helper()
	if os.Getenv("RUN_INTEGRATION_TESTS") != "true" {
		t.Skip("Skipping integration test. Set RUN_INTEGRATION_TESTS=true to run")
	}

	store, err := database.StartGORM()
	if err != nil {
		t.Fatalf("failed to connect to database: %v", err)
	}
	if err := store.Init(); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	db, ok := store.GetDB().(*gorm.DB)
	if !ok {
		t.Fatal("failed to get GORM DB instance")
	}
	t.Cleanup(func() { store.Close() })
	return db
}

// seedHierarchy creates a throwaway superadmin-admin-mentor chain.
func seedHierarchy(t *testing.T, db *gorm.DB) (super, admin, mentor *model.User, inst *model.Institute) {
	t.Helper()
	stamp := time.Now().UnixNano()

	super = &model.User{
		Email: fmt.Sprintf("super-%d@test.local", stamp), Name: "Super",
		PasswordHash: "x", Role: model.RoleSuperAdmin, ActiveStatus: true,
	}
	if err := db.Create(super).Error; err != nil {
		t.Fatalf("failed to create superadmin: %v", err)
	}

	inst = &model.Institute{Name: fmt.Sprintf("institute-%d", stamp)}
	if err := db.Create(inst).Error; err != nil {
		t.Fatalf("failed to create institute: %v", err)
	}

	admin = &model.User{
		Email: fmt.Sprintf("admin-%d@test.local", stamp), Name: "Admin",
		PasswordHash: "x", Role: model.RoleAdmin, InstituteID: &inst.ID, ActiveStatus: true,
	}
	if err := db.Create(admin).Error; err != nil {
		t.Fatalf("failed to create admin: %v", err)
	}

	mentor = &model.User{
		Email: fmt.Sprintf("mentor-%d@test.local", stamp), Name: "Mentor",
		PasswordHash: "x", Role: model.RoleMentor, InstituteID: &inst.ID, ActiveStatus: true,
	}
	if err := db.Create(mentor).Error; err != nil {
		t.Fatalf("failed to create mentor: %v", err)
	}

	t.Cleanup(func() {
		db.Unscoped().Where("institute_id = ?", inst.ID).Delete(&model.StudentRecord{})
		db.Unscoped().Where("institute_id = ?", inst.ID).Delete(&model.User{})
		db.Unscoped().Delete(inst)
		db.Unscoped().Delete(super)
	})
	return super, admin, mentor, inst
}

func reloadCounters(t *testing.T, db *gorm.DB, id uint) model.AggregateCounters {
	t.Helper()
	var u model.User
	if err := db.First(&u, id).Error; err != nil {
		t.Fatalf("failed to reload user %d: %v", id, err)
	}
	return u.Counters
}

func TestReconcileRollsUpAllTiers(t *testing.T) {
	db := integrationDB(t)
	super, admin, mentor, _ := seedHierarchy(t, db)

	agg := NewAggregationService(db)
	rec := NewReconcileService(db, agg)
	ctx := context.Background()

	record := CanonicalRecord{
		RollID:   "IT-001",
		Features: map[string]interface{}{"cgpa": 4.5},
		Identity: map[string]interface{}{"studentId": "IT-001"},
	}

	// New student at high risk.
	tr, err := rec.ReconcileRecord(ctx, mentor, record, Prediction{ID: "IT-001", RiskLabel: model.RiskHigh})
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if !tr.Created {
		t.Fatal("first sighting should create the student")
	}

	for _, id := range []uint{mentor.ID, admin.ID, super.ID} {
		c := reloadCounters(t, db, id)
		if c.RiskHigh != 1 {
			t.Errorf("user %d RiskHigh = %d, want 1", id, c.RiskHigh)
		}
	}

	// Recovery to low: high decremented, low and success incremented, on
	// every tier.
	tr, err = rec.ReconcileRecord(ctx, mentor, record, Prediction{ID: "IT-001", RiskLabel: model.RiskLow})
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if !tr.Success {
		t.Fatal("high to low should be a success event")
	}

	for _, id := range []uint{mentor.ID, admin.ID, super.ID} {
		c := reloadCounters(t, db, id)
		if c.RiskHigh != 0 || c.RiskLow != 1 || c.Success != 1 {
			t.Errorf("user %d counters = %+v, want high=0 low=1 success=1", id, c)
		}
	}

	// Same risk again: nothing moves.
	before := reloadCounters(t, db, super.ID)
	if _, err = rec.ReconcileRecord(ctx, mentor, record, Prediction{ID: "IT-001", RiskLabel: model.RiskLow}); err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	after := reloadCounters(t, db, super.ID)
	if before != after {
		t.Errorf("unchanged risk must not move counters: %+v -> %+v", before, after)
	}
}

func TestSetActiveStatusIsIdempotent(t *testing.T) {
	db := integrationDB(t)
	_, admin, mentor, _ := seedHierarchy(t, db)

	agg := NewAggregationService(db)
	ctx := context.Background()

	changed, err := agg.SetActiveStatus(ctx, mentor.ID, false)
	if err != nil || !changed {
		t.Fatalf("first flip: changed=%t err=%v", changed, err)
	}

	// Re-submitting the same state must not double count.
	changed, err = agg.SetActiveStatus(ctx, mentor.ID, false)
	if err != nil {
		t.Fatalf("second flip errored: %v", err)
	}
	if changed {
		t.Error("second flip to the same state should be a no-op")
	}

	c := reloadCounters(t, db, admin.ID)
	if c.MentorsInactive != 1 {
		t.Errorf("MentorsInactive = %d, want 1", c.MentorsInactive)
	}
}

func TestCascadeDeleteMentorCorrectsParents(t *testing.T) {
	db := integrationDB(t)
	super, admin, mentor, inst := seedHierarchy(t, db)

	agg := NewAggregationService(db)
	rec := NewReconcileService(db, agg)
	ctx := context.Background()

	for i, level := range []string{model.RiskHigh, model.RiskHigh, model.RiskMedium} {
		r := CanonicalRecord{
			RollID:   fmt.Sprintf("CD-%d", i),
			Features: map[string]interface{}{"cgpa": 5.0},
			Identity: map[string]interface{}{"studentId": fmt.Sprintf("CD-%d", i)},
		}
		if _, err := rec.ReconcileRecord(ctx, mentor, r, Prediction{ID: r.RollID, RiskLabel: level}); err != nil {
			t.Fatalf("reconcile failed: %v", err)
		}
	}

	if err := agg.CascadeDeleteMentor(ctx, mentor.ID); err != nil {
		t.Fatalf("cascade delete failed: %v", err)
	}

	for _, id := range []uint{admin.ID, super.ID} {
		c := reloadCounters(t, db, id)
		if c.RiskHigh != 0 || c.RiskMedium != 0 || c.RiskLow != 0 {
			t.Errorf("user %d still carries deleted mentor's counts: %+v", id, c)
		}
	}

	var remaining int64
	db.Model(&model.StudentRecord{}).Where("institute_id = ?", inst.ID).Count(&remaining)
	if remaining != 0 {
		t.Errorf("mentor's students should be deleted, %d remain", remaining)
	}
}

func TestMappingLockGate(t *testing.T) {
	db := integrationDB(t)
	super, admin, _, inst := seedHierarchy(t, db)

	catalog := NewCatalogService(db, nil)
	mappings := NewMappingService(db, catalog, NewHeaderMatcher(DefaultMatchThreshold))
	ctx := context.Background()

	cat, err := catalog.Load(ctx)
	if err != nil {
		t.Fatalf("failed to load catalog: %v", err)
	}
	if len(cat.RequiredFields()) == 0 {
		t.Skip("field catalog is not seeded, run cmd/seed first")
	}

	// Map every required field so the save and the lock are possible.
	var cols []model.MappingColumn
	for _, f := range cat.RequiredFields() {
		key := f.FieldKey
		cols = append(cols, model.MappingColumn{
			SourceHeader: f.DisplayName, FieldKey: &key, Type: f.Type, Required: true,
		})
	}

	if _, err := mappings.Save(ctx, inst.ID, cols, admin); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if _, err := mappings.SetLock(ctx, inst.ID, true, admin, "127.0.0.1"); err != nil {
		t.Fatalf("lock failed: %v", err)
	}

	// Locked mapping rejects saves.
	if _, err := mappings.Save(ctx, inst.ID, cols, admin); !IsKind(err, KindConfigLocked) {
		t.Errorf("save on locked mapping: got %v, want CONFIG_LOCKED", err)
	}

	// Admins cannot unlock.
	if _, err := mappings.SetLock(ctx, inst.ID, false, admin, "127.0.0.1"); err != ErrUnlockForbidden {
		t.Errorf("admin unlock: got %v, want ErrUnlockForbidden", err)
	}

	// The superadmin can.
	if _, err := mappings.SetLock(ctx, inst.ID, false, super, "127.0.0.1"); err != nil {
		t.Errorf("superadmin unlock failed: %v", err)
	}

	db.Unscoped().Where("institute_id = ?", inst.ID).Delete(&model.ColumnMapping{})
}
