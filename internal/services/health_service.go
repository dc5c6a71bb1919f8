package services

import (
	"fmt"
	"time"

	"github.com/aegisai/backend/internal/logger"
	"github.com/aegisai/backend/internal/models"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"gorm.io/gorm"
)

// HealthService monitors host resources and API-level metrics.
type HealthService struct {
	db        *gorm.DB
	startTime time.Time
}

func NewHealthService(db *gorm.DB) *HealthService {
	return &HealthService{db: db, startTime: time.Now()}
}

type SystemAlert struct {
	Type     string `json:"type"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

type AlertCheck struct {
	HasAlerts  bool          `json:"hasAlerts"`
	AlertCount int           `json:"alertCount"`
	Alerts     []SystemAlert `json:"alerts"`
	Timestamp  time.Time     `json:"timestamp"`
}

// Metrics collects a health snapshot and persists it.
func (s *HealthService) Metrics() (models.SystemHealthLog, error) {
	var recent []models.Prediction
	if err := s.db.Order("timestamp DESC").Limit(100).Find(&recent).Error; err != nil {
		logger.Error("Failed to load recent predictions for health metrics", map[string]interface{}{
			"error": err.Error(),
		})
	}

	var avgResponse, avgConfidence float64
	if len(recent) > 0 {
		for _, p := range recent {
			avgResponse += p.ProcessingTimeMs
			avgConfidence += p.ConfidenceScore
		}
		avgResponse /= float64(len(recent))
		avgConfidence /= float64(len(recent))
	}

	var perMinute int64
	oneMinuteAgo := time.Now().Add(-time.Minute)
	s.db.Model(&models.Prediction{}).Where("timestamp >= ?", oneMinuteAgo).Count(&perMinute)

	systemMetrics := map[string]any{}
	if percentages, err := cpu.Percent(100*time.Millisecond, false); err == nil && len(percentages) > 0 {
		systemMetrics["cpu_usage_percent"] = percentages[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		systemMetrics["memory_usage_mb"] = float64(vm.Used) / 1024 / 1024
		systemMetrics["memory_percent"] = vm.UsedPercent
		systemMetrics["memory_available_mb"] = float64(vm.Available) / 1024 / 1024
	}
	if du, err := disk.Usage("/"); err == nil {
		systemMetrics["disk_usage_percent"] = du.UsedPercent
		systemMetrics["disk_free_gb"] = float64(du.Free) / 1024 / 1024 / 1024
	}

	health := models.SystemHealthLog{
		Timestamp: time.Now(),
		APIMetrics: map[string]any{
			"avg_response_time_ms":   avgResponse,
			"avg_confidence":         avgConfidence,
			"predictions_last_100":   len(recent),
			"predictions_per_minute": perMinute,
		},
		SystemMetrics: systemMetrics,
		UptimeSeconds: time.Since(s.startTime).Seconds(),
	}

	if err := s.db.Create(&health).Error; err != nil {
		logger.Error("Failed to log health metrics", map[string]interface{}{"error": err.Error()})
	}

	return health, nil
}

// History returns health snapshots from the last N hours, oldest first.
func (s *HealthService) History(hours int) ([]models.SystemHealthLog, error) {
	cutoff := time.Now().Add(-time.Duration(hours) * time.Hour)

	var logs []models.SystemHealthLog
	err := s.db.Where("timestamp >= ?", cutoff).
		Order("timestamp ASC").
		Find(&logs).Error
	return logs, err
}

// CheckAlerts evaluates resource and responsiveness thresholds against a
// fresh health snapshot.
func (s *HealthService) CheckAlerts() AlertCheck {
	health, err := s.Metrics()
	if err != nil {
		return AlertCheck{Alerts: []SystemAlert{}, Timestamp: time.Now()}
	}

	alerts := []SystemAlert{}

	if cpuUsage, ok := health.SystemMetrics["cpu_usage_percent"].(float64); ok && cpuUsage > 80 {
		alerts = append(alerts, SystemAlert{
			Type:     "cpu",
			Severity: thresholdSeverity(cpuUsage, 90),
			Message:  fmt.Sprintf("High CPU usage: %.1f%%", cpuUsage),
		})
	}
	if memPercent, ok := health.SystemMetrics["memory_percent"].(float64); ok && memPercent > 80 {
		alerts = append(alerts, SystemAlert{
			Type:     "memory",
			Severity: thresholdSeverity(memPercent, 90),
			Message:  fmt.Sprintf("High memory usage: %.1f%%", memPercent),
		})
	}
	if diskPercent, ok := health.SystemMetrics["disk_usage_percent"].(float64); ok && diskPercent > 80 {
		alerts = append(alerts, SystemAlert{
			Type:     "disk",
			Severity: thresholdSeverity(diskPercent, 90),
			Message:  fmt.Sprintf("High disk usage: %.1f%%", diskPercent),
		})
	}
	if avgResponse, ok := health.APIMetrics["avg_response_time_ms"].(float64); ok && avgResponse > 100 {
		alerts = append(alerts, SystemAlert{
			Type:     "performance",
			Severity: "medium",
			Message:  fmt.Sprintf("Slow response time: %.1fms", avgResponse),
		})
	}

	return AlertCheck{
		HasAlerts:  len(alerts) > 0,
		AlertCount: len(alerts),
		Alerts:     alerts,
		Timestamp:  time.Now(),
	}
}

func thresholdSeverity(value, highCutoff float64) string {
	if value > highCutoff {
		return "high"
	}
	return "medium"
}
