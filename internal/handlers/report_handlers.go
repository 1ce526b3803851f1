package handlers

import (
	"errors"
	"net/http"

	"tuina_clinic_backend/internal/services"
	"tuina_clinic_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// ReportHandler holds the dashboard service.
type ReportHandler struct {
	reportService services.ReportService
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(rs services.ReportService) *ReportHandler {
	return &ReportHandler{reportService: rs}
}

// GetDashboardSummary provides a summary of key figures for the dashboard.
func (h *ReportHandler) GetDashboardSummary(c *gin.Context) {
	summary, err := h.reportService.GetDashboardSummary()
	if err != nil {
		utils.LogError(err, "GetDashboardSummary: Error from reportService")
		respondInternal(c, "Failed to build dashboard summary.")
		return
	}
	c.JSON(http.StatusOK, summary)
}

// GetDailyRevenue returns the revenue chart between start_date and end_date.
func (h *ReportHandler) GetDailyRevenue(c *gin.Context) {
	days, err := h.reportService.GetDailyRevenue(c.Query("start_date"), c.Query("end_date"))
	if err != nil {
		if errors.Is(err, services.ErrDateFormat) || errors.Is(err, services.ErrValidation) {
			utils.RespondValidationFailed(c, err.Error())
			return
		}
		utils.LogError(err, "GetDailyRevenue: Error from reportService")
		respondInternal(c, "Failed to load revenue report.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": days})
}
