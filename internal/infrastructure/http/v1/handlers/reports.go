package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"medstock/internal/domain/reports"
	"medstock/internal/infrastructure/http/v1/dto"
)

// ReportsHandler handles HTTP requests for reports.
type ReportsHandler struct {
	*BaseHandler
	service *reports.Service
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(base *BaseHandler, service *reports.Service) *ReportsHandler {
	return &ReportsHandler{
		BaseHandler: base,
		service:     service,
	}
}

// GetValuation handles GET /reports/valuation - the inventory valuation report.
func (h *ReportsHandler) GetValuation(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.ValuationFilterRequest
	if !h.BindQuery(c, &req) {
		return
	}

	report, err := h.service.GetValuation(ctx, req.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// ExportValuationCSV handles GET /reports/valuation/csv - CSV download of
// the full (unpaginated) valuation report.
func (h *ReportsHandler) ExportValuationCSV(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.ValuationFilterRequest
	if !h.BindQuery(c, &req) {
		return
	}

	filename := fmt.Sprintf("valuation_%s.csv", time.Now().UTC().Format("2006-01-02"))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)

	if err := h.service.ExportValuationCSV(ctx, req.ToFilter(), c.Writer); err != nil {
		h.Error(c, err)
		return
	}
}

// RegisterRoutes registers report routes.
func (h *ReportsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/valuation", h.GetValuation)
	rg.GET("/valuation/csv", h.ExportValuationCSV)
}
