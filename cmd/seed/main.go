package main

import (
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/joho/godotenv"

	"github.com/NikFin25/deanery-bot/config"
	"github.com/NikFin25/deanery-bot/database"
	"github.com/NikFin25/deanery-bot/model"
)

func main() {
	allowListPath := flag.String("allow-list", "", "CSV file with 'full name,group' rows to seed the registration allow-list")
	demoGroup := flag.String("demo-group", "", "create this group with a demo two-week timetable")
	flag.Parse()

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	getEnv, err := config.Get()
	if err != nil {
		log.Fatalf("Failed to read configuration: %v", err)
	}

	// Initialize database connection using GORM
	store, err := database.StartGORM()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer store.Close()

	if err := store.Init(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	db := store.GetDB()

	separator := strings.Repeat("=", 60)
	fmt.Println(separator)
	fmt.Println("Deanery Bot - Database Seeding")
	fmt.Println(separator)

	if *allowListPath != "" {
		created, err := database.SeedAllowList(db, *allowListPath)
		if err != nil {
			log.Fatalf("Failed to seed allow-list: %v", err)
		}
		fmt.Printf("Allow-list: %d new rows\n", created)
	}

	if len(getEnv.DEAN_IDS) > 0 {
		if err := database.SeedStaff(db, getEnv.DEAN_IDS, model.RoleDean); err != nil {
			log.Fatalf("Failed to seed dean roles: %v", err)
		}
		fmt.Printf("Deans: %d ids processed\n", len(getEnv.DEAN_IDS))
	}

	if len(getEnv.ADMIN_IDS) > 0 {
		if err := database.SeedStaff(db, getEnv.ADMIN_IDS, model.RoleAdmin); err != nil {
			log.Fatalf("Failed to seed admin roles: %v", err)
		}
		fmt.Printf("Admins: %d ids processed\n", len(getEnv.ADMIN_IDS))
	}

	if *demoGroup != "" {
		if err := database.SeedDemoGroup(db, *demoGroup); err != nil {
			log.Fatalf("Failed to seed demo group: %v", err)
		}
		fmt.Printf("Demo group %s seeded\n", strings.ToUpper(*demoGroup))
	}

	fmt.Println(separator)
	fmt.Println("Seeding complete")
	fmt.Println(separator)
}
