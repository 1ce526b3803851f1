package handlers

import (
	"errors"
	"net/http"

	"tuina_clinic_backend/internal/models"
	"tuina_clinic_backend/internal/services"
	"tuina_clinic_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// ServiceRecordHandler holds the visit service.
type ServiceRecordHandler struct {
	recordService services.ServiceRecordService
}

// NewServiceRecordHandler creates a new ServiceRecordHandler.
func NewServiceRecordHandler(rs services.ServiceRecordService) *ServiceRecordHandler {
	return &ServiceRecordHandler{recordService: rs}
}

func (h *ServiceRecordHandler) respondError(c *gin.Context, err error, op, fallback string) {
	if respondChargeError(c, err) {
		utils.LogWarn(op+": membership charge rejected", map[string]interface{}{"reason": err.Error(), "request_id": c.GetString(utils.RequestIDKey)})
		return
	}
	utils.LogError(err, op+": Error from serviceRecordService")
	switch {
	case errors.Is(err, services.ErrServiceRecordNotFound):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Service record not found.", err.Error()))
	case errors.Is(err, services.ErrCardNotFound):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeBadRequest, "Membership card not found.", err.Error()))
	case errors.Is(err, services.ErrCardNotOwned), errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrDateFormat):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Validation failed.", err.Error()))
	default:
		respondInternal(c, fallback)
	}
}

// CreateServiceRecord records a visit and settles a membership charge.
func (h *ServiceRecordHandler) CreateServiceRecord(c *gin.Context) {
	var req services.CreateServiceRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "CreateServiceRecord")
		return
	}
	record, err := h.recordService.CreateServiceRecord(req)
	if err != nil {
		h.respondError(c, err, "CreateServiceRecord", "Failed to create service record.")
		return
	}
	c.JSON(http.StatusCreated, record)
}

// GetServiceRecords lists visits with filters and paging.
func (h *ServiceRecordHandler) GetServiceRecords(c *gin.Context) {
	page, pageSize := parsePaging(c, 20)
	filters := models.ServiceRecordFilters{
		PaymentMethod: utils.NewNullString(c.Query("payment_method")),
		DateFrom:      utils.NewNullString(c.Query("date_from")),
		DateTo:        utils.NewNullString(c.Query("date_to")),
		Page:          page,
		PageSize:      pageSize,
	}
	for key, dst := range map[string]**int64{
		"customer_id":        &filters.CustomerID,
		"therapist_id":       &filters.TherapistID,
		"membership_card_id": &filters.MembershipCardID,
	} {
		id, err := utils.ParseOptionalID(c.Query(key))
		if err != nil {
			utils.RespondValidationFailed(c, key+": "+err.Error())
			return
		}
		*dst = id
	}

	records, total, err := h.recordService.GetServiceRecords(filters)
	if err != nil {
		h.respondError(c, err, "GetServiceRecords", "Failed to fetch service records.")
		return
	}
	if records == nil {
		records = []models.ServiceRecord{}
	}
	c.JSON(http.StatusOK, gin.H{
		"data":      records,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// GetServiceRecordByID handles fetching one visit.
func (h *ServiceRecordHandler) GetServiceRecordByID(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "service record")
	if !ok {
		return
	}
	record, err := h.recordService.GetServiceRecordByID(id)
	if err != nil {
		h.respondError(c, err, "GetServiceRecordByID", "Failed to fetch service record.")
		return
	}
	c.JSON(http.StatusOK, record)
}

// UpdateServiceRecord edits a visit, moving any membership charge accordingly.
func (h *ServiceRecordHandler) UpdateServiceRecord(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "service record")
	if !ok {
		return
	}
	var req services.UpdateServiceRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "UpdateServiceRecord")
		return
	}
	record, err := h.recordService.UpdateServiceRecord(id, req)
	if err != nil {
		h.respondError(c, err, "UpdateServiceRecord", "Failed to update service record.")
		return
	}
	c.JSON(http.StatusOK, record)
}

// DeleteServiceRecord removes a visit and returns its membership charge.
func (h *ServiceRecordHandler) DeleteServiceRecord(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "service record")
	if !ok {
		return
	}
	if err := h.recordService.DeleteServiceRecord(id); err != nil {
		h.respondError(c, err, "DeleteServiceRecord", "Failed to delete service record.")
		return
	}
	c.Status(http.StatusNoContent)
}
