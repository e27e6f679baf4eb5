//go:build ignore

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/firewatch/firewatch/internal/auth"
	"github.com/firewatch/firewatch/internal/database"
	"github.com/firewatch/firewatch/internal/database/models"
	"github.com/firewatch/firewatch/pkg/config"
	"github.com/firewatch/firewatch/pkg/util"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Server.Env)

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	// Create admin user
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Expiry())
	authService := auth.NewService(db, jwtService)

	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	name := os.Getenv("ADMIN_NAME")

	if email == "" {
		email = "admin@example.com"
	}
	if password == "" {
		password = "admin123!"
	}
	if name == "" {
		name = "Admin"
	}

	resp, err := authService.Register(context.Background(), auth.RegisterInput{
		Email:    email,
		Password: password,
		Name:     name,
		Role:     "admin",
	})

	if err != nil {
		if err == auth.ErrUserExists {
			fmt.Printf("Admin user already exists: %s\n", email)
			return
		}
		log.Fatalf("failed to create admin user: %v", err)
	}

	fmt.Printf("Admin user created successfully!\n")
	fmt.Printf("Email: %s\n", resp.User.Email)
	fmt.Printf("Token: %s\n", resp.Token)

	// Demo extinguishers with a schedule starting tomorrow
	lat, lng := 40.7580, -73.9855
	demo := []models.Asset{
		{
			SerialNumber:      "FE-2024-00001",
			Name:              "Lobby Extinguisher",
			LocationType:      models.LocationTypeFixed,
			FixedLat:          &lat,
			FixedLng:          &lng,
			ValidRadiusMeters: 50,
			Placement:         "Main lobby, east wall",
			IsActive:          true,
		},
		{
			SerialNumber: "FE-2024-00002",
			Name:         "Service Van Extinguisher",
			LocationType: models.LocationTypeMobile,
			Placement:    "Van 12, behind driver seat",
			IsActive:     true,
		},
	}

	for i := range demo {
		if err := db.Where("serial_number = ?", demo[i].SerialNumber).
			FirstOrCreate(&demo[i]).Error; err != nil {
			log.Fatalf("failed to seed asset %s: %v", demo[i].SerialNumber, err)
		}
		fmt.Printf("Asset: %s (%s)\n", demo[i].Name, demo[i].SerialNumber)
	}

	start := time.Now().UTC().AddDate(0, 0, 1).Truncate(time.Hour)
	schedule := models.InspectionSchedule{
		AssetID:    demo[0].ID,
		AssigneeID: &resp.User.ID,
		StartAt:    start,
		EndAt:      start.Add(4 * time.Hour),
		Cadence:    models.CadenceMonthly,
		IsActive:   true,
	}
	if err := db.Where("asset_id = ?", demo[0].ID).
		FirstOrCreate(&schedule).Error; err != nil {
		log.Fatalf("failed to seed schedule: %v", err)
	}
	fmt.Printf("Schedule: %s -> %s\n", schedule.StartAt.Format(time.RFC3339), schedule.EndAt.Format(time.RFC3339))
}
