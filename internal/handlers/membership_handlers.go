package handlers

import (
	"errors"
	"net/http"

	"tuina_clinic_backend/internal/models"
	"tuina_clinic_backend/internal/services"
	"tuina_clinic_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// MembershipHandler holds the membership card service.
type MembershipHandler struct {
	membershipService services.MembershipService
}

// NewMembershipHandler creates a new MembershipHandler.
func NewMembershipHandler(ms services.MembershipService) *MembershipHandler {
	return &MembershipHandler{membershipService: ms}
}

func (h *MembershipHandler) respondError(c *gin.Context, err error, op, fallback string) {
	utils.LogError(err, op+": Error from membershipService")
	switch {
	case errors.Is(err, services.ErrCardNotFound):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Membership card not found.", err.Error()))
	case errors.Is(err, services.ErrCustomerNotFound):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Customer not found.", err.Error()))
	case errors.Is(err, services.ErrMembershipTypeNotFound):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeBadRequest, "Membership type not found.", err.Error()))
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrDateFormat), errors.Is(err, services.ErrMembershipTypeInactive):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Validation failed.", err.Error()))
	case errors.Is(err, services.ErrCardNumberExists), errors.Is(err, services.ErrCardTerminal):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, err.Error(), ""))
	default:
		respondInternal(c, fallback)
	}
}

// IssueCard handles issuing a new membership card.
func (h *MembershipHandler) IssueCard(c *gin.Context) {
	var req services.IssueCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "IssueCard")
		return
	}
	card, err := h.membershipService.IssueCard(req)
	if err != nil {
		h.respondError(c, err, "IssueCard", "Failed to issue membership card.")
		return
	}
	c.JSON(http.StatusCreated, card)
}

// GetCards lists cards with filters and paging.
func (h *MembershipHandler) GetCards(c *gin.Context) {
	page, pageSize := parsePaging(c, 20)
	customerID, err := utils.ParseOptionalID(c.Query("customer_id"))
	if err != nil {
		utils.RespondValidationFailed(c, "customer_id: "+err.Error())
		return
	}
	filters := models.MembershipFilters{
		CustomerID: customerID,
		CardType:   utils.NewNullString(c.Query("card_type")),
		Status:     utils.NewNullString(c.Query("status")),
		Search:     utils.NewNullString(c.Query("search")),
		Page:       page,
		PageSize:   pageSize,
	}

	cards, total, err := h.membershipService.ListCards(filters)
	if err != nil {
		h.respondError(c, err, "GetCards", "Failed to fetch membership cards.")
		return
	}
	if cards == nil {
		cards = []models.MembershipCardView{}
	}
	c.JSON(http.StatusOK, gin.H{
		"data":      cards,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// GetCardByID handles fetching a single card.
func (h *MembershipHandler) GetCardByID(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "membership card")
	if !ok {
		return
	}
	card, err := h.membershipService.GetCardByID(id)
	if err != nil {
		h.respondError(c, err, "GetCardByID", "Failed to fetch membership card.")
		return
	}
	c.JSON(http.StatusOK, card)
}

// GetCustomerMemberships returns a customer's cards with their statuses and the aggregate.
func (h *MembershipHandler) GetCustomerMemberships(c *gin.Context) {
	customerID, ok := parseIDParam(c, "customerId", "customer")
	if !ok {
		return
	}
	result, err := h.membershipService.GetCustomerMemberships(customerID)
	if err != nil {
		h.respondError(c, err, "GetCustomerMemberships", "Failed to fetch memberships.")
		return
	}
	c.JSON(http.StatusOK, result)
}

// UpdateCardStatus handles an explicit lifecycle change of a card.
func (h *MembershipHandler) UpdateCardStatus(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "membership card")
	if !ok {
		return
	}
	var req services.UpdateCardStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "UpdateCardStatus")
		return
	}
	card, err := h.membershipService.UpdateCardStatus(id, req)
	if err != nil {
		h.respondError(c, err, "UpdateCardStatus", "Failed to update membership card status.")
		return
	}
	c.JSON(http.StatusOK, card)
}

// ValidateCharge runs the advisory charge check used by the service form.
func (h *MembershipHandler) ValidateCharge(c *gin.Context) {
	var req services.ValidateChargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "ValidateCharge")
		return
	}
	check, err := h.membershipService.ValidateCharge(req)
	if err != nil {
		h.respondError(c, err, "ValidateCharge", "Failed to validate charge.")
		return
	}
	c.JSON(http.StatusOK, check)
}

// GetExpiringCards lists active cards inside the expiring window.
func (h *MembershipHandler) GetExpiringCards(c *gin.Context) {
	cards, err := h.membershipService.GetExpiringCards()
	if err != nil {
		h.respondError(c, err, "GetExpiringCards", "Failed to fetch expiring cards.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": cards, "total": len(cards)})
}
