package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/futureguard/api/model"
	"github.com/futureguard/api/utils/auth"
	"gorm.io/gorm"
)

var (
	ErrEmailTaken         = errors.New("email is already registered")
	ErrInstituteNameTaken = errors.New("institute name is already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// UserService manages accounts and institutes. Deletions route through the
// aggregation service so the counter hierarchy is corrected in the same
// transaction as the removal.
type UserService struct {
	db  *gorm.DB
	agg *AggregationService
}

// NewUserService creates a new user service
func NewUserService(db *gorm.DB, agg *AggregationService) *UserService {
	return &UserService{db: db, agg: agg}
}

// Authenticate verifies credentials and returns the account.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := auth.VerifyPassword(user.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// GetByID loads one account.
func (s *UserService) GetByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateMentor registers a mentor under an institute and bumps the admin's
// mentor-status counters in the same transaction.
func (s *UserService) CreateMentor(ctx context.Context, name, email, password string, instituteID uint) (*model.User, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	mentor := &model.User{
		Name:         strings.TrimSpace(name),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: hash,
		Role:         model.RoleMentor,
		InstituteID:  &instituteID,
		ActiveStatus: true,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(mentor).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrEmailTaken
			}
			return err
		}
		return s.agg.RegisterChild(tx, mentor)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[USERS] mentor %s created for institute %d", mentor.Email, instituteID)
	return mentor, nil
}

// CreateInstitute provisions an institute together with its admin account,
// one transaction covering the institute row, the admin row, the wiring
// between them, and the superadmin's institute-status counters.
func (s *UserService) CreateInstitute(ctx context.Context, instituteName, adminName, adminEmail, adminPassword string) (*model.Institute, *model.User, error) {
	hash, err := auth.HashPassword(adminPassword)
	if err != nil {
		return nil, nil, err
	}

	institute := &model.Institute{Name: strings.TrimSpace(instituteName)}
	admin := &model.User{
		Name:         strings.TrimSpace(adminName),
		Email:        strings.ToLower(strings.TrimSpace(adminEmail)),
		PasswordHash: hash,
		Role:         model.RoleAdmin,
		ActiveStatus: true,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(institute).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrInstituteNameTaken
			}
			return err
		}

		admin.InstituteID = &institute.ID
		if err := tx.Create(admin).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrEmailTaken
			}
			return err
		}

		if err := tx.Model(institute).UpdateColumn("admin_id", admin.ID).Error; err != nil {
			return err
		}
		institute.AdminID = &admin.ID

		return s.agg.RegisterChild(tx, admin)
	})
	if err != nil {
		return nil, nil, err
	}

	log.Printf("[USERS] institute %q created with admin %s", institute.Name, admin.Email)
	return institute, admin, nil
}

// ListMentors returns the mentors of one institute.
func (s *UserService) ListMentors(ctx context.Context, instituteID uint) ([]model.User, error) {
	var mentors []model.User
	err := s.db.WithContext(ctx).
		Where("role = ? AND institute_id = ?", model.RoleMentor, instituteID).
		Order("id").
		Find(&mentors).Error
	return mentors, err
}

// ListInstitutes returns every institute with its admin preloaded.
func (s *UserService) ListInstitutes(ctx context.Context) ([]model.Institute, error) {
	var institutes []model.Institute
	err := s.db.WithContext(ctx).Preload("Admin").Order("id").Find(&institutes).Error
	return institutes, err
}

// GetInstitute loads one institute with its admin.
func (s *UserService) GetInstitute(ctx context.Context, id uint) (*model.Institute, error) {
	var institute model.Institute
	if err := s.db.WithContext(ctx).Preload("Admin").First(&institute, id).Error; err != nil {
		return nil, err
	}
	return &institute, nil
}

// DeleteUser removes an account through the cascade appropriate to its
// role: deleting a mentor cascades its students and counter corrections;
// deleting an admin removes the whole institute it runs.
func (s *UserService) DeleteUser(ctx context.Context, target *model.User) error {
	switch target.Role {
	case model.RoleMentor:
		return s.agg.CascadeDeleteMentor(ctx, target.ID)
	case model.RoleAdmin:
		if target.InstituteID == nil {
			return fmt.Errorf("admin %d has no institute", target.ID)
		}
		return s.agg.CascadeDeleteInstitute(ctx, *target.InstituteID)
	}
	return fmt.Errorf("cannot delete account with role %s", target.Role)
}

// DeleteInstitute removes an institute with its admin, mentors, and
// students through the aggregation cascade.
func (s *UserService) DeleteInstitute(ctx context.Context, instituteID uint) error {
	return s.agg.CascadeDeleteInstitute(ctx, instituteID)
}

// UpdateProfile changes the mutable display fields of an account. Role,
// email and institute binding are fixed at creation.
func (s *UserService) UpdateProfile(ctx context.Context, target *model.User, name, department string) error {
	updates := map[string]interface{}{}
	if name != "" {
		updates["name"] = name
	}
	if department != "" {
		updates["department"] = department
	}
	if len(updates) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Model(target).Updates(updates).Error
}

// ChangePassword rehashes the password and bumps the token version so every
// outstanding token dies with the old credential.
func (s *UserService) ChangePassword(ctx context.Context, user *model.User, currentPassword, newPassword string) error {
	if err := auth.VerifyPassword(user.PasswordHash, currentPassword); err != nil {
		return ErrInvalidCredentials
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Model(user).Updates(map[string]interface{}{
		"password_hash": hash,
		"token_version": gorm.Expr("token_version + 1"),
	}).Error
}

// RecordAudit writes one admin audit entry outside any caller transaction.
func (s *UserService) RecordAudit(ctx context.Context, actorID uint, action, resource string, resourceID uint, description, ip string) {
	entry := model.AdminAuditLog{
		ActorID:     actorID,
		Action:      action,
		Resource:    resource,
		ResourceID:  resourceID,
		Description: description,
		IPAddress:   ip,
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		log.Printf("[AUDIT] failed to record %s on %s/%d: %v", action, resource, resourceID, err)
	}
}
