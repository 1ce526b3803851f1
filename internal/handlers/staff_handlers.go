package handlers

import (
	"errors"
	"net/http"

	"tuina_clinic_backend/internal/models"
	"tuina_clinic_backend/internal/services"
	"tuina_clinic_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// StaffHandler holds the roster service.
type StaffHandler struct {
	staffService services.StaffService
}

// NewStaffHandler creates a new StaffHandler.
func NewStaffHandler(ss services.StaffService) *StaffHandler {
	return &StaffHandler{staffService: ss}
}

func (h *StaffHandler) respondError(c *gin.Context, err error, op, fallback string) {
	utils.LogError(err, op+": Error from staffService")
	switch {
	case errors.Is(err, services.ErrTherapistNotFound):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Therapist not found.", err.Error()))
	case errors.Is(err, services.ErrShiftNotFound):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Shift not found.", err.Error()))
	case errors.Is(err, services.ErrUserForTherapistAbsent):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeBadRequest, "User specified for therapist not found.", err.Error()))
	case errors.Is(err, services.ErrShiftOverlap), errors.Is(err, services.ErrTherapistInUse):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, err.Error(), ""))
	case errors.Is(err, services.ErrTherapistValidation), errors.Is(err, services.ErrShiftValidation),
		errors.Is(err, services.ErrShiftTimeFormat), errors.Is(err, services.ErrDateFormat):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Validation failed.", err.Error()))
	default:
		respondInternal(c, fallback)
	}
}

// --- Therapist Handler Methods ---

// CreateTherapist handles adding a therapist to the roster.
func (h *StaffHandler) CreateTherapist(c *gin.Context) {
	var req services.CreateTherapistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "CreateTherapist")
		return
	}
	therapist, err := h.staffService.CreateTherapist(req)
	if err != nil {
		h.respondError(c, err, "CreateTherapist", "Failed to create therapist.")
		return
	}
	c.JSON(http.StatusCreated, therapist)
}

// GetTherapists handles fetching therapists with pagination and search.
func (h *StaffHandler) GetTherapists(c *gin.Context) {
	page, pageSize := parsePaging(c, 10)
	therapists, total, err := h.staffService.GetTherapists(page, pageSize, utils.NewNullString(c.Query("search")), c.Query("active") == "true")
	if err != nil {
		h.respondError(c, err, "GetTherapists", "Failed to fetch therapists.")
		return
	}
	if therapists == nil {
		therapists = []models.Therapist{}
	}
	c.JSON(http.StatusOK, gin.H{
		"data":      therapists,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// GetTherapistByID handles fetching a single therapist.
func (h *StaffHandler) GetTherapistByID(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "therapist")
	if !ok {
		return
	}
	therapist, err := h.staffService.GetTherapistByID(id)
	if err != nil {
		h.respondError(c, err, "GetTherapistByID", "Failed to fetch therapist.")
		return
	}
	c.JSON(http.StatusOK, therapist)
}

// UpdateTherapist handles updating a therapist.
func (h *StaffHandler) UpdateTherapist(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "therapist")
	if !ok {
		return
	}
	var req services.UpdateTherapistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "UpdateTherapist")
		return
	}
	therapist, err := h.staffService.UpdateTherapist(id, req)
	if err != nil {
		h.respondError(c, err, "UpdateTherapist", "Failed to update therapist.")
		return
	}
	c.JSON(http.StatusOK, therapist)
}

// DeleteTherapist handles removing a therapist.
func (h *StaffHandler) DeleteTherapist(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "therapist")
	if !ok {
		return
	}
	if err := h.staffService.DeleteTherapist(id); err != nil {
		h.respondError(c, err, "DeleteTherapist", "Failed to delete therapist.")
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Shift Handler Methods ---

// CreateShift handles creating a new shift.
func (h *StaffHandler) CreateShift(c *gin.Context) {
	var req services.CreateShiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "CreateShift")
		return
	}
	shift, err := h.staffService.CreateShift(req)
	if err != nil {
		h.respondError(c, err, "CreateShift", "Failed to create shift.")
		return
	}
	c.JSON(http.StatusCreated, shift)
}

// GetShifts handles fetching shifts by therapist and time range.
func (h *StaffHandler) GetShifts(c *gin.Context) {
	page, pageSize := parsePaging(c, 10)
	therapistID, err := utils.ParseOptionalID(c.Query("therapist_id"))
	if err != nil {
		utils.RespondValidationFailed(c, "therapist_id: "+err.Error())
		return
	}

	shifts, total, err := h.staffService.GetShifts(therapistID, utils.NewNullString(c.Query("from")), utils.NewNullString(c.Query("to")), page, pageSize)
	if err != nil {
		h.respondError(c, err, "GetShifts", "Failed to fetch shifts.")
		return
	}
	if shifts == nil {
		shifts = []models.Shift{}
	}
	c.JSON(http.StatusOK, gin.H{
		"data":      shifts,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// GetShiftByID handles fetching a single shift.
func (h *StaffHandler) GetShiftByID(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "shift")
	if !ok {
		return
	}
	shift, err := h.staffService.GetShiftByID(id)
	if err != nil {
		h.respondError(c, err, "GetShiftByID", "Failed to fetch shift.")
		return
	}
	c.JSON(http.StatusOK, shift)
}

// UpdateShift handles updating a shift.
func (h *StaffHandler) UpdateShift(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "shift")
	if !ok {
		return
	}
	var req services.UpdateShiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "UpdateShift")
		return
	}
	shift, err := h.staffService.UpdateShift(id, req)
	if err != nil {
		h.respondError(c, err, "UpdateShift", "Failed to update shift.")
		return
	}
	c.JSON(http.StatusOK, shift)
}

// DeleteShift handles deleting a shift.
func (h *StaffHandler) DeleteShift(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "shift")
	if !ok {
		return
	}
	if err := h.staffService.DeleteShift(id); err != nil {
		h.respondError(c, err, "DeleteShift", "Failed to delete shift.")
		return
	}
	c.Status(http.StatusNoContent)
}
