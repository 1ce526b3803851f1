package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"tuina_clinic_backend/internal/membership"
	"tuina_clinic_backend/internal/services"
	"tuina_clinic_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// parseIDParam reads a positive int64 path parameter and responds 400 if it is malformed.
func parseIDParam(c *gin.Context, name, label string) (int64, bool) {
	id, err := utils.ParseID(c.Param(name))
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid "+label+" ID format.", err.Error()))
		return 0, false
	}
	return id, true
}

// parsePaging reads page and page_size query parameters.
func parsePaging(c *gin.Context, defaultSize int) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(defaultSize)))
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = defaultSize
	}
	return page, pageSize
}

// respondBindError answers a request whose body could not be bound.
func respondBindError(c *gin.Context, err error, op string) {
	utils.LogError(err, op+": Failed to bind JSON")
	utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload.", err.Error()))
}

// respondChargeError answers a rejected membership charge. It reports false if err is not one.
func respondChargeError(c *gin.Context, err error) bool {
	var chargeErr *membership.ChargeError
	if errors.As(err, &chargeErr) {
		apiErr := utils.NewAPIError(http.StatusUnprocessableEntity, utils.ErrCodeChargeRejected, chargeErr.Error(), string(chargeErr.Kind))
		utils.RespondWithError(c, apiErr)
		return true
	}
	if errors.Is(err, services.ErrCardExhausted) {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusUnprocessableEntity, utils.ErrCodeChargeRejected, "会员卡剩余次数不足", "exhausted"))
		return true
	}
	return false
}

func respondInternal(c *gin.Context, message string) {
	utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, message, "Internal error"))
}
