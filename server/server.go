package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"invoiceaudit/database"
	"invoiceaudit/extraction"
	"invoiceaudit/internal/config"
	"invoiceaudit/reporting"
	"invoiceaudit/server/middleware"
	"invoiceaudit/server/services"
)

// Server HTTP-сервер аудита счетов.
type Server struct {
	cfg   *config.Config
	store *database.Store

	analysisService *services.AnalysisService
	overrideService *services.OverrideService
	documentService *services.DocumentService
	exporter        *reporting.Exporter

	httpServer *http.Server
}

// New создает сервер со всеми сервисами.
func New(cfg *config.Config, store *database.Store) *Server {
	var client *extraction.Client
	if cfg.OpenAIAPIKey != "" {
		client = extraction.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.ExtractionRPS)
	}

	return &Server{
		cfg:   cfg,
		store: store,
		analysisService: services.NewAnalysisService(
			store, cfg.Normalizer, cfg.Reference, cfg.Detector, cfg.ClassifierKeywords()),
		overrideService: services.NewOverrideService(store),
		documentService: services.NewDocumentService(store, client),
		exporter:        reporting.NewExporter(),
	}
}

// Router собирает маршруты API.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Logging(), middleware.Recovery())

	router.GET("/health", s.handleHealth)

	api := router.Group("/api")
	{
		api.POST("/documents", s.handleUploadDocument)
		api.GET("/documents", s.handleListDocuments)
		api.GET("/documents/:id", s.handleGetDocument)

		api.GET("/analysis/lines", s.handleAnalysisLines)
		api.GET("/analysis/references", s.handleAnalysisReferences)
		api.GET("/analysis/anomalies", s.handleAnalysisAnomalies)
		api.GET("/analysis/summary", s.handleAnalysisSummary)

		api.GET("/overrides", s.handleListOverrides)
		api.PUT("/overrides/:article", s.handleUpsertOverride)
		api.DELETE("/overrides/:article", s.handleDeleteOverride)

		api.GET("/suppliers", s.handleListSuppliers)
		api.PUT("/suppliers/:name/config", s.handleUpsertSupplierConfig)

		api.GET("/export/anomalies", s.handleExportAnomalies)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "маршрут не найден"})
	})
	return router
}

// Start запускает HTTP-сервер.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         ":" + s.cfg.Port,
		Handler:      s.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // Извлечение и полный пересчет неторопливы
	}

	slog.Info("server listening", "port", s.cfg.Port)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown корректно останавливает сервер.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
