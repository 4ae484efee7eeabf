package database

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/futureguard/api/model"
	"github.com/futureguard/api/utils/auth"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Seeder handles database seeding operations
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db}
}

// SeedAll runs all seed functions
func (s *Seeder) SeedAll() error {
	log.Println("🌱 Starting database seeding...")

	if err := s.SeedSuperAdmin(); err != nil {
		return fmt.Errorf("failed to seed superadmin: %w", err)
	}

	if err := s.SeedFieldCatalog(); err != nil {
		return fmt.Errorf("failed to seed field catalog: %w", err)
	}

	log.Println("✅ Database seeding completed successfully!")
	return nil
}

// SeedSuperAdmin creates the platform superadmin. The superadmin is a
// singleton aggregation root; every upload increments its counters, so it has
// to exist before any ingestion runs.
func (s *Seeder) SeedSuperAdmin() error {
	var count int64
	if err := s.db.Model(&model.User{}).Where("role = ?", model.RoleSuperAdmin).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		log.Println("⏭️  Superadmin already exists, skipping...")
		return nil
	}

	adminEmail := os.Getenv("SUPERADMIN_EMAIL")
	adminPassword := os.Getenv("SUPERADMIN_PASSWORD")

	if adminEmail == "" || adminPassword == "" {
		log.Println("⚠️  SUPERADMIN_EMAIL and SUPERADMIN_PASSWORD not set, skipping superadmin creation")
		return nil
	}

	passwordHash, err := auth.HashPassword(adminPassword)
	if err != nil {
		return err
	}

	superAdmin := model.User{
		Email:        adminEmail,
		PasswordHash: passwordHash,
		Name:         "Platform Superadmin",
		Role:         model.RoleSuperAdmin,
		ActiveStatus: true,
	}

	if err := s.db.Create(&superAdmin).Error; err != nil {
		return err
	}

	log.Printf("✅ Superadmin created: %s", adminEmail)
	return nil
}

type seedField struct {
	FieldKey     string
	DisplayName  string
	Type         string
	Required     bool
	UseInML      bool
	Category     string
	Synonyms     []string
	DefaultValue interface{}
}

var catalogFields = []seedField{
	// Identity / display-only
	{
		FieldKey: "studentId", DisplayName: "Student ID", Type: model.FieldTypeString,
		Required: true, UseInML: false, Category: "identity",
		Synonyms: []string{
			"id", "student id", "student_id", "student no", "student number",
			"student_no", "enrollment id", "enrollment no", "enrollment number",
			"roll", "roll id", "roll no", "roll number", "roll_no",
			"registration id", "registration number",
		},
	},
	{
		FieldKey: "studentName", DisplayName: "Student Name", Type: model.FieldTypeString,
		Required: true, UseInML: false, Category: "identity",
		Synonyms: []string{
			"name", "student name", "student_name", "full name", "full_name",
			"candidate name", "learner name",
		},
	},
	{
		FieldKey: "dateOfBirth", DisplayName: "Date of Birth", Type: model.FieldTypeDate,
		Required: false, UseInML: false, Category: "identity",
		Synonyms: []string{"dob", "date of birth", "birthdate", "birth date", "date_of_birth"},
	},
	{
		FieldKey: "gender", DisplayName: "Gender", Type: model.FieldTypeString,
		Required: false, UseInML: false, Category: "identity",
		Synonyms: []string{"gender", "sex", "male/female", "m/f", "student gender"},
	},

	// Predictive / ML features
	{
		FieldKey: "age", DisplayName: "Age", Type: model.FieldTypeNumber,
		Required: false, UseInML: true, Category: "identity",
		Synonyms: []string{"age", "student age", "student_age", "years", "yrs", "current age"},
	},
	{
		FieldKey: "attendancePercentage", DisplayName: "Attendance %", Type: model.FieldTypeNumber,
		Required: true, UseInML: true, Category: "attendance",
		Synonyms: []string{
			"attendance", "attendance %", "attendance%", "attendance percentage",
			"attendance percent", "att %", "att%", "presence",
		},
	},
	{
		FieldKey: "lateSubmissionCount", DisplayName: "Late Submissions", Type: model.FieldTypeNumber,
		Required: false, UseInML: true, Category: "behavior",
		Synonyms: []string{
			"late submissions", "late submission count", "late work",
			"delayed submissions", "missed deadlines",
		},
		DefaultValue: 0,
	},
	{
		FieldKey: "cgpa", DisplayName: "CGPA / Marks", Type: model.FieldTypeNumber,
		Required: true, UseInML: true, Category: "academic",
		Synonyms: []string{
			"cgpa", "gpa", "grade", "grades", "marks", "score", "percentage",
			"average marks", "overall grade",
		},
	},
	{
		FieldKey: "previousYearPerformance", DisplayName: "Previous Year Performance", Type: model.FieldTypeNumber,
		Required: false, UseInML: true, Category: "academic",
		Synonyms: []string{
			"previous year performance", "last year performance", "previous marks",
			"last year marks", "prior year score",
		},
	},
	{
		FieldKey: "mathScore", DisplayName: "Math Score", Type: model.FieldTypeNumber,
		Required: false, UseInML: true, Category: "academic",
		Synonyms: []string{"math score", "maths score", "mathematics", "math marks", "maths marks"},
	},
	{
		FieldKey: "englishScore", DisplayName: "English Score", Type: model.FieldTypeNumber,
		Required: false, UseInML: true, Category: "academic",
		Synonyms: []string{"english score", "english marks", "language score"},
	},
	{
		FieldKey: "scienceScore", DisplayName: "Science Score", Type: model.FieldTypeNumber,
		Required: false, UseInML: true, Category: "academic",
		Synonyms: []string{"science score", "science marks", "physics chemistry biology"},
	},
	{
		FieldKey: "projectScore", DisplayName: "Project / Practical Score", Type: model.FieldTypeNumber,
		Required: false, UseInML: true, Category: "academic",
		Synonyms: []string{
			"project score", "project marks", "practical score", "practical marks",
			"lab score", "lab marks",
		},
	},
	{
		FieldKey: "totalMarks", DisplayName: "Total Marks", Type: model.FieldTypeNumber,
		Required: false, UseInML: true, Category: "academic",
		Synonyms: []string{"total marks", "overall marks", "marks obtained", "final score"},
	},
	{
		FieldKey: "feesPaid", DisplayName: "Fees Paid", Type: model.FieldTypeBoolean,
		Required: true, UseInML: true, Category: "financial",
		Synonyms: []string{
			"fees paid", "fee paid", "fees", "fee status", "payment status",
			"paid", "paid?", "is paid", "fees cleared",
		},
	},
	{
		FieldKey: "libraryDues", DisplayName: "Library Dues", Type: model.FieldTypeNumber,
		Required: false, UseInML: true, Category: "financial",
		Synonyms: []string{"library dues", "library fine", "book dues", "library pending"},
		DefaultValue: 0,
	},
	{
		FieldKey: "sportsScore", DisplayName: "Sports / Extra-Curricular", Type: model.FieldTypeNumber,
		Required: false, UseInML: true, Category: "extracurricular",
		Synonyms: []string{
			"sports score", "sports marks", "extracurricular", "extra curricular",
			"activities score",
		},
	},
	{
		FieldKey: "behaviorScore", DisplayName: "Behavior / Discipline", Type: model.FieldTypeNumber,
		Required: false, UseInML: true, Category: "behavior",
		Synonyms: []string{"behavior score", "behaviour score", "discipline", "conduct", "character"},
	},
	{
		FieldKey: "scholarshipEligibility", DisplayName: "Scholarship Eligibility", Type: model.FieldTypeBoolean,
		Required: false, UseInML: true, Category: "academic",
		Synonyms: []string{
			"scholarship", "scholarship eligibility", "eligible for scholarship",
			"scholarship status",
		},
	},
	{
		FieldKey: "specialNeedsFlag", DisplayName: "Special Needs", Type: model.FieldTypeBoolean,
		Required: false, UseInML: true, Category: "identity",
		Synonyms: []string{
			"special needs", "special assistance", "disability", "differently abled",
			"handicap",
		},
	},
}

// SeedFieldCatalog inserts the canonical field definitions. Existing keys are
// left untouched so catalog administration survives re-seeding.
func (s *Seeder) SeedFieldCatalog() error {
	var count int64
	if err := s.db.Model(&model.FieldDefinition{}).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		log.Println("⏭️  Field catalog already seeded, skipping...")
		return nil
	}

	for _, f := range catalogFields {
		synonyms, err := json.Marshal(f.Synonyms)
		if err != nil {
			return err
		}

		def := model.FieldDefinition{
			FieldKey:    f.FieldKey,
			DisplayName: f.DisplayName,
			Type:        f.Type,
			Required:    f.Required,
			UseInML:     f.UseInML,
			Category:    f.Category,
			Synonyms:    datatypes.JSON(synonyms),
		}

		if f.DefaultValue != nil {
			dv, err := json.Marshal(f.DefaultValue)
			if err != nil {
				return err
			}
			def.DefaultValue = datatypes.JSON(dv)
		}

		if err := s.db.Create(&def).Error; err != nil {
			return err
		}
	}

	log.Printf("✅ Seeded %d field definitions", len(catalogFields))
	return nil
}
