package main

import (
	"log"

	"github.com/futureguard/api/config"
	"github.com/futureguard/api/database"
	"gorm.io/gorm"
)

// Standalone seeder: runs migrations, then seeds the superadmin account and
// the field catalog. Safe to re-run.
func main() {
	if err := config.LoadENV(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	store, err := database.StartGORM()
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer store.Close()

	if err := store.Init(); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	db, ok := store.GetDB().(*gorm.DB)
	if !ok {
		log.Fatal("failed to get GORM DB instance")
	}

	if err := database.NewSeeder(db).SeedAll(); err != nil {
		log.Fatalf("seeding failed: %v", err)
	}

	log.Println("Seeding complete")
}
