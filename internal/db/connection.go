package db

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/aegisai/backend/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Connect initializes the database connection. Retries with exponential
// backoff so the service can come up before the database does.
func Connect() {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
		os.Getenv("DB_SSLMODE"),
	)

	const maxRetries = 3

	var err error
	for attempt := 0; attempt < maxRetries; attempt++ {
		DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Error),
		})
		if err == nil {
			log.Println("Database connected successfully")
			return
		}

		wait := time.Duration(1<<attempt) * time.Second
		log.Printf("Connection attempt %d failed: %v", attempt+1, err)
		if attempt < maxRetries-1 {
			log.Printf("Retrying in %s...", wait)
			time.Sleep(wait)
		}
	}

	log.Fatal("Failed to connect to database after all retries:", err)
}

// AutoMigrate runs database migrations
func AutoMigrate() {
	migrations := []struct {
		name  string
		model any
	}{
		{"User", &models.User{}},
		{"Prediction", &models.Prediction{}},
		{"ModelMetadata", &models.ModelMetadata{}},
		{"DriftLog", &models.DriftLog{}},
		{"PerformanceLog", &models.PerformanceLog{}},
		{"SystemHealthLog", &models.SystemHealthLog{}},
		{"TrustScore", &models.TrustScore{}},
		{"GovernanceEvent", &models.GovernanceEvent{}},
		{"Incident", &models.Incident{}},
		{"LLMInteraction", &models.LLMInteraction{}},
		{"LLMAlert", &models.LLMAlert{}},
	}

	for _, m := range migrations {
		if err := DB.AutoMigrate(m.model); err != nil {
			log.Printf("%s migration failed: %v", m.name, err)
			return
		}
	}

	log.Println("All database migrations completed successfully")
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}
