package server

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"invoiceaudit/quality"
	"invoiceaudit/reference"
	"invoiceaudit/reporting"
	"invoiceaudit/server/middleware"
	"invoiceaudit/server/services"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleUploadDocument принимает файл счета, выполняет извлечение
// и идемпотентно сохраняет документ. ?force=true повторяет извлечение
// для уже сохраненного документа.
func (s *Server) handleUploadDocument(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "файл обязателен (multipart поле file)"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		middleware.HandleError(c, err)
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	force := c.Query("force") == "true"
	result, err := s.documentService.Ingest(c.Request.Context(), fileHeader.Filename, content, force)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	status := http.StatusCreated
	if result.Skipped {
		status = http.StatusOK
	}
	c.JSON(status, result)
}

func (s *Server) handleListDocuments(c *gin.Context) {
	docs, err := s.documentService.List()
	if err != nil {
		middleware.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": len(docs), "documents": docs})
}

func (s *Server) handleGetDocument(c *gin.Context) {
	doc, err := s.documentService.Get(c.Param("id"))
	if err != nil {
		middleware.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// analysisFilter фильтр представлений из query-параметров.
func analysisFilter(c *gin.Context) services.Filter {
	filter := services.Filter{Supplier: c.Query("supplier")}
	if year, err := strconv.Atoi(c.Query("year")); err == nil {
		filter.Year = year
	}
	return filter
}

func (s *Server) handleAnalysisLines(c *gin.Context) {
	result, err := s.analysisService.Run(analysisFilter(c))
	if err != nil {
		middleware.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": len(result.Lines), "lines": result.Lines})
}

func (s *Server) handleAnalysisReferences(c *gin.Context) {
	result, err := s.analysisService.Run(services.Filter{})
	if err != nil {
		middleware.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": len(result.References), "references": result.References})
}

func (s *Server) handleAnalysisAnomalies(c *gin.Context) {
	result, err := s.analysisService.Run(analysisFilter(c))
	if err != nil {
		middleware.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": len(result.Anomalies), "anomalies": result.Anomalies})
}

func (s *Server) handleAnalysisSummary(c *gin.Context) {
	result, err := s.analysisService.Run(analysisFilter(c))
	if err != nil {
		middleware.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result.Report)
}

func (s *Server) handleListOverrides(c *gin.Context) {
	overrides, err := s.overrideService.List()
	if err != nil {
		middleware.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": len(overrides), "overrides": overrides})
}

// overrideRequest тело запроса решения по артикулу.
type overrideRequest struct {
	Kind    string  `json:"kind" binding:"required"`
	Value   float64 `json:"value"`
	Comment string  `json:"comment"`
}

func (s *Server) handleUpsertOverride(c *gin.Context) {
	var req overrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "невалидное тело запроса: " + err.Error()})
		return
	}

	ov := reference.Override{
		Article:   c.Param("article"),
		Kind:      reference.OverrideKind(req.Kind),
		Value:     req.Value,
		Comment:   req.Comment,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.overrideService.Upsert(ov); err != nil {
		middleware.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, ov)
}

func (s *Server) handleDeleteOverride(c *gin.Context) {
	if err := s.overrideService.Delete(c.Param("article")); err != nil {
		middleware.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": c.Param("article")})
}

func (s *Server) handleListSuppliers(c *gin.Context) {
	configs, err := s.overrideService.SupplierConfigs()
	if err != nil {
		middleware.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": len(configs), "suppliers": configs})
}

func (s *Server) handleUpsertSupplierConfig(c *gin.Context) {
	var cfg quality.SupplierConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "невалидное тело запроса: " + err.Error()})
		return
	}
	if err := s.overrideService.UpsertSupplierConfig(c.Param("name"), cfg); err != nil {
		middleware.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"supplier": c.Param("name"), "config": cfg})
}

// handleExportAnomalies выгрузка аномалий в JSON/CSV/Excel.
func (s *Server) handleExportAnomalies(c *gin.Context) {
	format := reporting.ExportFormat(c.DefaultQuery("format", "json"))

	result, err := s.analysisService.Run(analysisFilter(c))
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	switch format {
	case reporting.FormatCSV:
		c.Header("Content-Type", "text/csv")
		c.Header("Content-Disposition", `attachment; filename="anomalies.csv"`)
	case reporting.FormatExcel:
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", `attachment; filename="anomalies.xlsx"`)
	case reporting.FormatJSON:
		c.Header("Content-Type", "application/json")
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "неизвестный формат: " + string(format)})
		return
	}

	if err := s.exporter.Export(c.Writer, format, result.Anomalies, result.Report); err != nil {
		middleware.HandleError(c, err)
		return
	}
}
