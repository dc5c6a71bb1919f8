package main

import (
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/aegisai/backend/internal/db"
	"github.com/aegisai/backend/internal/models"
	"github.com/aegisai/backend/internal/services"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

const predictionCount = 50

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Connect to database
	db.Connect()

	// Run migrations first
	log.Println("Running database migrations...")
	db.AutoMigrate()

	log.Println("Seeding database with sample data...")

	if err := seedAdminUser(); err != nil {
		log.Printf("Error seeding admin user: %v", err)
	}
	if err := seedPredictions(); err != nil {
		log.Printf("Error seeding predictions: %v", err)
	}
	if err := seedPerformanceLog(); err != nil {
		log.Printf("Error seeding performance log: %v", err)
	}

	log.Println("Database seeding completed successfully!")
}

// seedAdminUser creates the admin account from ADMIN_EMAIL/ADMIN_PASSWORD
// if it does not exist yet.
func seedAdminUser() error {
	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		log.Println("ADMIN_EMAIL/ADMIN_PASSWORD not set, skipping admin user")
		return nil
	}

	var existing models.User
	if err := db.DB.Where("email = ?", email).First(&existing).Error; err == nil {
		log.Printf("User already exists: %s", email)
		return nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user := models.User{
		Email:     email,
		Password:  string(hashed),
		FirstName: "Admin",
		LastName:  "User",
		Role:      models.RoleAdmin,
	}
	if err := db.DB.Create(&user).Error; err != nil {
		return err
	}

	log.Printf("Created user: %s (%s)", user.Email, user.Role)
	return nil
}

// seedPredictions inserts sample predictions spread over the last 24 hours
// so the monitoring dashboard has data to show.
func seedPredictions() error {
	var count int64
	db.DB.Model(&models.Prediction{}).Count(&count)
	if count > 0 {
		log.Printf("Predictions table already has %d rows, skipping", count)
		return nil
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	baseTime := time.Now().Add(-24 * time.Hour)

	creditHistories := []string{"Good", "Fair", "Poor"}
	employmentTypes := []string{"Full-time", "Part-time", "Self-employed"}

	predictions := make([]models.Prediction, 0, predictionCount)
	for i := 0; i < predictionCount; i++ {
		income := float64(30000 + rng.Intn(120001))
		age := 25 + rng.Intn(41)
		loanAmount := float64(10000 + rng.Intn(490001))
		creditHistory := creditHistories[rng.Intn(len(creditHistories))]
		employmentType := employmentTypes[rng.Intn(len(employmentTypes))]
		existingDebts := float64(rng.Intn(100001))

		prob := 0.5
		switch creditHistory {
		case "Good":
			prob += 0.3
		case "Fair":
			prob += 0.1
		default:
			prob -= 0.2
		}
		if income > 80000 {
			prob += 0.1
		}
		if loanAmount < 100000 {
			prob += 0.1
		}
		if existingDebts < 20000 {
			prob += 0.1
		}
		prob = clamp(prob+rng.Float64()*0.2-0.1, 0.1, 0.95)

		risk := models.RiskHigh
		if prob > 0.7 {
			risk = models.RiskLow
		} else if prob > 0.4 {
			risk = models.RiskMedium
		}

		userID := fmt.Sprintf("user_%03d", rng.Intn(10)+1)

		predictions = append(predictions, models.Prediction{
			Timestamp:           baseTime.Add(time.Duration(i) * 24 * time.Hour / predictionCount),
			ModelVersion:        "seed",
			Income:              income,
			Age:                 age,
			LoanAmount:          loanAmount,
			CreditHistory:       creditHistory,
			EmploymentType:      employmentType,
			ExistingDebts:       existingDebts,
			UserID:              &userID,
			ApprovalProbability: prob,
			RiskCategory:        risk,
			ConfidenceScore:     0.75 + rng.Float64()*0.2,
			ProcessingTimeMs:    30 + rng.Float64()*70,
		})
	}

	if err := db.DB.Create(&predictions).Error; err != nil {
		return err
	}

	log.Printf("Inserted %d predictions", len(predictions))
	return nil
}

// seedPerformanceLog derives a metrics entry from the seeded predictions so
// the performance trend and degradation check have data.
func seedPerformanceLog() error {
	var count int64
	db.DB.Model(&models.PerformanceLog{}).Count(&count)
	if count > 0 {
		log.Printf("Performance log already has %d rows, skipping", count)
		return nil
	}

	var predictions []models.Prediction
	if err := db.DB.Find(&predictions).Error; err != nil {
		return err
	}
	if len(predictions) == 0 {
		return nil
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	yTrue := make([]int, len(predictions))
	yPred := make([]int, len(predictions))
	for i, p := range predictions {
		if p.ApprovalProbability > 0.5 {
			yPred[i] = 1
		}
		// Ground truth mostly agrees with the model
		yTrue[i] = yPred[i]
		if rng.Float64() < 0.05 {
			yTrue[i] = 1 - yTrue[i]
		}
	}

	metrics := services.CalculateMetrics(yTrue, yPred)
	perf := services.NewPerformanceService(db.DB)
	if err := perf.LogPerformance(metrics, len(predictions), "seed", "24h"); err != nil {
		return err
	}

	log.Printf("Inserted performance log over %d predictions", len(predictions))
	return nil
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
