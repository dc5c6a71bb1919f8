package routes

import (
	"os"

	"github.com/aegisai/backend/internal/controllers"
	"github.com/aegisai/backend/internal/logger"
	"github.com/aegisai/backend/internal/metrics"
	"github.com/aegisai/backend/internal/middleware"
	"github.com/aegisai/backend/internal/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupRoutes configures all application routes
func SetupRoutes(r *gin.Engine, db *gorm.DB) {
	// Initialize services
	mlService := services.NewMLService()
	modelPath := os.Getenv("MODEL_PATH")
	if modelPath == "" {
		modelPath = "data/credit_risk_model.json"
	}
	if err := mlService.Load(modelPath); err != nil {
		// The API stays up with /predict returning 503 until a model is
		// available.
		logger.Error("Failed to load model", map[string]interface{}{
			"path":  modelPath,
			"error": err.Error(),
		})
	} else {
		registerModelMetadata(db, mlService)
	}

	baselinePath := os.Getenv("BASELINE_PATH")
	if baselinePath == "" {
		baselinePath = "data/baseline.csv"
	}
	baseline := services.LoadBaseline(baselinePath)

	driftService := services.NewDriftService(db, baseline)
	performanceService := services.NewPerformanceService(db)
	healthService := services.NewHealthService(db)
	trustService := services.NewTrustService(db)
	llmService := services.NewLLMService(db)

	// Initialize controllers
	authController := controllers.NewAuthController(db)
	predictionController := controllers.NewPredictionController(db, mlService)
	monitoringController := controllers.NewMonitoringController(db, driftService, performanceService, healthService)
	governanceController := controllers.NewGovernanceController(db, trustService, driftService, healthService, llmService)
	llmController := controllers.NewLLMController(llmService)
	simulationController := controllers.NewSimulationController(db, trustService)

	// Operational endpoints outside the API group
	r.GET("/health", predictionController.HealthCheck)
	r.GET("/metrics", metrics.Handler())

	// API routes
	api := r.Group("/api/v1")
	{
		api.GET("/", predictionController.Info)
		api.POST("/predict", predictionController.Predict)
		api.GET("/stats", predictionController.Stats)

		// Auth routes
		auth := api.Group("/auth")
		{
			auth.POST("/login", authController.Login)
			auth.POST("/refresh", middleware.AuthMiddleware(), authController.RefreshToken)
		}

		// Monitoring
		monitoring := api.Group("/monitoring")
		{
			monitoring.GET("/drift", monitoringController.Drift)
			monitoring.GET("/performance", monitoringController.Performance)
			monitoring.GET("/health", monitoringController.Health)
			monitoring.GET("/dashboard", monitoringController.Dashboard)
		}

		// Governance
		governance := api.Group("/governance")
		{
			governance.GET("/trust", governanceController.Trust)
			governance.GET("/history", governanceController.History)
			governance.GET("/incidents", governanceController.Incidents)
			governance.GET("/autonomy-levels", governanceController.AutonomyLevels)
			governance.GET("/export-report", governanceController.ExportReport)

			// Mutations require authentication
			governance.POST("/resolve-incident/:id", middleware.AuthMiddleware(), governanceController.ResolveIncident)
			governance.POST("/simulate-incident", middleware.AuthMiddleware(), governanceController.SimulateIncident)
		}

		// LLM observability
		llm := api.Group("/llm")
		{
			llm.POST("/query", llmController.Query)
			llm.GET("/metrics", llmController.Metrics)
			llm.GET("/interactions", llmController.Interactions)
			llm.GET("/alerts", llmController.Alerts)
		}

		// Demo scenario injection
		simulation := api.Group("/simulation")
		simulation.Use(middleware.AuthMiddleware())
		{
			simulation.POST("/drift", simulationController.Drift)
			simulation.POST("/bias", simulationController.Bias)
			simulation.POST("/accuracy-drop", simulationController.AccuracyDrop)
			simulation.POST("/reset", simulationController.Reset)
			simulation.GET("/status", simulationController.Status)
		}
	}
}

// registerModelMetadata upserts the loaded model's metadata record and marks
// it active.
func registerModelMetadata(db *gorm.DB, ml *services.MLService) {
	metadata, err := ml.Metadata()
	if err != nil {
		logger.Error("Failed to build model metadata", map[string]interface{}{"error": err.Error()})
		return
	}

	db.Model(&metadata).Where("is_active = ?", true).Update("is_active", false)

	result := db.Where("version = ?", metadata.Version).
		Assign(metadata).
		FirstOrCreate(&metadata)
	if result.Error != nil {
		logger.Error("Failed to register model metadata", map[string]interface{}{"error": result.Error.Error()})
		return
	}

	logger.Info("Model registered", map[string]interface{}{"version": metadata.Version})
}
