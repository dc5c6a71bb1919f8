package services

import (
	"errors"
	"testing"
	"time"

	"github.com/aegisai/backend/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.Prediction{},
		&models.DriftLog{},
		&models.PerformanceLog{},
		&models.TrustScore{},
		&models.GovernanceEvent{},
		&models.Incident{},
	); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return db
}

func TestCalculatePersistsResult(t *testing.T) {
	db := newTestDB(t)
	svc := NewTrustService(db)

	result := svc.Calculate()

	// Empty database: low drift (5) and the bias placeholder (3) are the
	// only penalties
	if result.TrustScore != 92 {
		t.Errorf("Expected trust score 92, got %f", result.TrustScore)
	}
	if result.AutonomyLevel != models.AutonomyFullyAutonomous {
		t.Errorf("Expected fully_autonomous, got %s", result.AutonomyLevel)
	}

	var entries []models.TrustScore
	if err := db.Find(&entries).Error; err != nil {
		t.Fatalf("Failed to load trust scores: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 persisted trust score, got %d", len(entries))
	}
	if entries[0].Score != result.TrustScore {
		t.Errorf("Persisted score %f does not match result %f", entries[0].Score, result.TrustScore)
	}
	if entries[0].AutonomyLevel != result.AutonomyLevel {
		t.Errorf("Persisted level %s does not match result %s", entries[0].AutonomyLevel, result.AutonomyLevel)
	}
}

func TestCalculateGovernanceEventOnLevelChange(t *testing.T) {
	db := newTestDB(t)
	svc := NewTrustService(db)

	first := svc.Calculate()
	if first.AutonomyLevel != models.AutonomyFullyAutonomous {
		t.Fatalf("Expected fully_autonomous baseline, got %s", first.AutonomyLevel)
	}

	// High-severity drift drops the score one level
	drift := models.DriftLog{
		Timestamp:     time.Now(),
		Feature:       "income",
		KSStatistic:   0.4,
		PValue:        0.001,
		PSIScore:      0.35,
		DriftDetected: true,
		Severity:      models.DriftHighSeverity,
		TestType:      "ks_2samp",
	}
	if err := db.Create(&drift).Error; err != nil {
		t.Fatalf("Failed to insert drift log: %v", err)
	}

	second := svc.Calculate()
	if second.AutonomyLevel != models.AutonomyHumanOnLoop {
		t.Fatalf("Expected human_on_loop after high drift, got %s", second.AutonomyLevel)
	}

	var events []models.GovernanceEvent
	if err := db.Where("event_type = ?", models.EventAutonomyChange).Find(&events).Error; err != nil {
		t.Fatalf("Failed to load governance events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("Expected 1 autonomy change event, got %d", len(events))
	}
	if events[0].PreviousLevel != models.AutonomyFullyAutonomous {
		t.Errorf("Expected previous level fully_autonomous, got %s", events[0].PreviousLevel)
	}
	if events[0].NewLevel != models.AutonomyHumanOnLoop {
		t.Errorf("Expected new level human_on_loop, got %s", events[0].NewLevel)
	}
	if events[0].TrustScoreChange != second.TrustScore-first.TrustScore {
		t.Errorf("Expected score change %f, got %f",
			second.TrustScore-first.TrustScore, events[0].TrustScoreChange)
	}

	// Unchanged level: no second event
	svc.Calculate()
	if err := db.Where("event_type = ?", models.EventAutonomyChange).Find(&events).Error; err != nil {
		t.Fatalf("Failed to load governance events: %v", err)
	}
	if len(events) != 1 {
		t.Errorf("Expected no new event for an unchanged level, got %d", len(events))
	}
}

func TestCalculateDegradesOnPersistFailure(t *testing.T) {
	db := newTestDB(t)
	if err := db.Exec("DROP TABLE trust_scores").Error; err != nil {
		t.Fatalf("Failed to drop table: %v", err)
	}
	svc := NewTrustService(db)

	result := svc.Calculate()

	if result.TrustScore != 0 {
		t.Errorf("Expected degraded score 0, got %f", result.TrustScore)
	}
	if result.AutonomyLevel != models.AutonomyKillSwitch {
		t.Errorf("Expected kill_switch, got %s", result.AutonomyLevel)
	}
	if result.GovernanceAction != models.ActionKillSwitch {
		t.Errorf("Expected kill_switch action, got %s", result.GovernanceAction)
	}
}

func TestResolveIncidentLifecycle(t *testing.T) {
	db := newTestDB(t)
	svc := NewTrustService(db)

	created, err := svc.RecordIncident(models.Incident{
		Type:        models.IncidentDataDrift,
		Severity:    models.IncidentSeverityHigh,
		Description: "Income feature drift",
	})
	if err != nil {
		t.Fatalf("Failed to record incident: %v", err)
	}
	if created.Status != models.IncidentOpen {
		t.Errorf("Expected open status, got %s", created.Status)
	}

	resolved, err := svc.ResolveIncident(created.IncidentID, "Model retrained")
	if err != nil {
		t.Fatalf("Failed to resolve incident: %v", err)
	}
	if resolved.Status != models.IncidentResolved {
		t.Errorf("Expected resolved status, got %s", resolved.Status)
	}
	if resolved.ResolvedAt == nil {
		t.Error("Expected resolution time to be set")
	}
	if resolved.ResolutionNotes == nil || *resolved.ResolutionNotes != "Model retrained" {
		t.Errorf("Unexpected resolution notes: %v", resolved.ResolutionNotes)
	}

	if _, err := svc.ResolveIncident("INC-00000000000000", ""); !errors.Is(err, ErrIncidentNotFound) {
		t.Errorf("Expected ErrIncidentNotFound for unknown id, got %v", err)
	}
}

func TestResolveIncidentDatabaseError(t *testing.T) {
	db := newTestDB(t)
	if err := db.Exec("DROP TABLE incidents").Error; err != nil {
		t.Fatalf("Failed to drop table: %v", err)
	}
	svc := NewTrustService(db)

	_, err := svc.ResolveIncident("INC-1", "")
	if err == nil {
		t.Fatal("Expected an error for a failed lookup")
	}
	if errors.Is(err, ErrIncidentNotFound) {
		t.Error("Database failures must not be reported as not-found")
	}
}
