package handlers

import (
	"errors"
	"net/http"

	"tuina_clinic_backend/internal/services"
	"tuina_clinic_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// MembershipTypeHandler holds the catalog service.
type MembershipTypeHandler struct {
	typeService services.MembershipTypeService
}

// NewMembershipTypeHandler creates a new MembershipTypeHandler.
func NewMembershipTypeHandler(ts services.MembershipTypeService) *MembershipTypeHandler {
	return &MembershipTypeHandler{typeService: ts}
}

func (h *MembershipTypeHandler) respondError(c *gin.Context, err error, op, fallback string) {
	utils.LogError(err, op+": Error from membershipTypeService")
	if errors.Is(err, services.ErrMembershipTypeNotFound) {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Membership type not found.", err.Error()))
	} else if errors.Is(err, services.ErrMembershipTypeValidation) {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Validation failed.", err.Error()))
	} else if errors.Is(err, services.ErrMembershipTypeExists) || errors.Is(err, services.ErrMembershipTypeInUse) {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, err.Error(), ""))
	} else {
		respondInternal(c, fallback)
	}
}

// CreateMembershipType handles adding a catalog entry.
func (h *MembershipTypeHandler) CreateMembershipType(c *gin.Context) {
	var req services.MembershipTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "CreateMembershipType")
		return
	}
	mt, err := h.typeService.CreateMembershipType(req)
	if err != nil {
		h.respondError(c, err, "CreateMembershipType", "Failed to create membership type.")
		return
	}
	c.JSON(http.StatusCreated, mt)
}

// GetMembershipTypes lists the catalog. ?active=true limits it to offered types.
func (h *MembershipTypeHandler) GetMembershipTypes(c *gin.Context) {
	types, err := h.typeService.GetMembershipTypes(c.Query("active") == "true")
	if err != nil {
		h.respondError(c, err, "GetMembershipTypes", "Failed to fetch membership types.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": types, "total": len(types)})
}

// GetMembershipTypeByID handles fetching one catalog entry.
func (h *MembershipTypeHandler) GetMembershipTypeByID(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "membership type")
	if !ok {
		return
	}
	mt, err := h.typeService.GetMembershipTypeByID(id)
	if err != nil {
		h.respondError(c, err, "GetMembershipTypeByID", "Failed to fetch membership type.")
		return
	}
	c.JSON(http.StatusOK, mt)
}

// UpdateMembershipType replaces a catalog entry.
func (h *MembershipTypeHandler) UpdateMembershipType(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "membership type")
	if !ok {
		return
	}
	var req services.MembershipTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "UpdateMembershipType")
		return
	}
	mt, err := h.typeService.UpdateMembershipType(id, req)
	if err != nil {
		h.respondError(c, err, "UpdateMembershipType", "Failed to update membership type.")
		return
	}
	c.JSON(http.StatusOK, mt)
}

// DeleteMembershipType removes a catalog entry no card refers to.
func (h *MembershipTypeHandler) DeleteMembershipType(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "membership type")
	if !ok {
		return
	}
	if err := h.typeService.DeleteMembershipType(id); err != nil {
		h.respondError(c, err, "DeleteMembershipType", "Failed to delete membership type.")
		return
	}
	c.Status(http.StatusNoContent)
}
