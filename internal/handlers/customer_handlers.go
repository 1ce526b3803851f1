package handlers

import (
	"errors"
	"net/http"

	"tuina_clinic_backend/internal/models"
	"tuina_clinic_backend/internal/services"
	"tuina_clinic_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// CustomerHandler holds the customer service.
type CustomerHandler struct {
	customerService services.CustomerService
}

// NewCustomerHandler creates a new CustomerHandler.
func NewCustomerHandler(cs services.CustomerService) *CustomerHandler {
	return &CustomerHandler{customerService: cs}
}

func (h *CustomerHandler) respondError(c *gin.Context, err error, op, fallback string) {
	utils.LogError(err, op+": Error from customerService")
	switch {
	case errors.Is(err, services.ErrCustomerNotFound):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Customer not found.", err.Error()))
	case errors.Is(err, services.ErrCustomerValidation):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Validation failed.", err.Error()))
	case errors.Is(err, services.ErrCustomerPhoneTaken):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, "Guardian phone number is already registered.", err.Error()))
	case errors.Is(err, services.ErrCustomerInUse):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, "Customer has cards or service records and cannot be deleted.", err.Error()))
	default:
		respondInternal(c, fallback)
	}
}

// CreateCustomer handles the creation of a new customer.
func (h *CustomerHandler) CreateCustomer(c *gin.Context) {
	var req services.CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "CreateCustomer")
		return
	}

	customer, err := h.customerService.CreateCustomer(req)
	if err != nil {
		h.respondError(c, err, "CreateCustomer", "Failed to create customer.")
		return
	}
	c.JSON(http.StatusCreated, customer)
}

// GetCustomers lists customers with search and paging.
func (h *CustomerHandler) GetCustomers(c *gin.Context) {
	page, pageSize := parsePaging(c, 20)
	filters := models.CustomerFilters{
		Search:   utils.NewNullString(c.Query("search")),
		Page:     page,
		PageSize: pageSize,
	}

	customers, total, err := h.customerService.GetCustomers(filters)
	if err != nil {
		h.respondError(c, err, "GetCustomers", "Failed to fetch customers.")
		return
	}
	if customers == nil {
		customers = []models.Customer{}
	}
	c.JSON(http.StatusOK, gin.H{
		"data":      customers,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// GetCustomerByID handles fetching a single customer with the derived membership status.
func (h *CustomerHandler) GetCustomerByID(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "customer")
	if !ok {
		return
	}
	customer, err := h.customerService.GetCustomerByID(id)
	if err != nil {
		h.respondError(c, err, "GetCustomerByID", "Failed to fetch customer.")
		return
	}
	c.JSON(http.StatusOK, customer)
}

// UpdateCustomer handles a partial update of a customer.
func (h *CustomerHandler) UpdateCustomer(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "customer")
	if !ok {
		return
	}
	var req services.UpdateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "UpdateCustomer")
		return
	}

	customer, err := h.customerService.UpdateCustomer(id, req)
	if err != nil {
		h.respondError(c, err, "UpdateCustomer", "Failed to update customer.")
		return
	}
	c.JSON(http.StatusOK, customer)
}

// DeleteCustomer handles deleting a customer without cards or visits.
func (h *CustomerHandler) DeleteCustomer(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "customer")
	if !ok {
		return
	}
	if err := h.customerService.DeleteCustomer(id); err != nil {
		h.respondError(c, err, "DeleteCustomer", "Failed to delete customer.")
		return
	}
	c.Status(http.StatusNoContent)
}
