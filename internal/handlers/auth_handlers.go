package handlers

import (
	"errors"
	"net/http"

	"tuina_clinic_backend/internal/middleware"
	"tuina_clinic_backend/internal/services"
	"tuina_clinic_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// AuthHandler holds the authentication service.
type AuthHandler struct {
	authService services.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(as services.AuthService) *AuthHandler {
	return &AuthHandler{authService: as}
}

func (h *AuthHandler) respondError(c *gin.Context, err error, op, fallback string) {
	if errors.Is(err, services.ErrInvalidCredentials) {
		utils.LogWarn(op+": rejected credentials", map[string]interface{}{"client_ip": c.ClientIP()})
		utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Invalid username or password.", ""))
		return
	}
	utils.LogError(err, op+": Error from authService")
	switch {
	case errors.Is(err, services.ErrUsernameExists), errors.Is(err, services.ErrEmailExists):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, err.Error(), ""))
	case errors.Is(err, services.ErrUserValidation):
		utils.RespondValidationFailed(c, err.Error())
	case errors.Is(err, services.ErrRoleNotFound):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeBadRequest, "Specified role not found.", err.Error()))
	case errors.Is(err, services.ErrUserNotFound):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "User profile not found.", err.Error()))
	default:
		respondInternal(c, fallback)
	}
}

// RegisterUser creates a staff account. Only admins reach this route.
func (h *AuthHandler) RegisterUser(c *gin.Context) {
	var req services.RegisterUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "RegisterUser")
		return
	}
	user, err := h.authService.RegisterUser(req)
	if err != nil {
		h.respondError(c, err, "RegisterUser", "Failed to register user.")
		return
	}
	c.JSON(http.StatusCreated, user)
}

// LoginUser exchanges credentials for an access token.
func (h *AuthHandler) LoginUser(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "LoginUser")
		return
	}
	authResp, err := h.authService.LoginUser(req)
	if err != nil {
		h.respondError(c, err, "LoginUser", "Failed to login.")
		return
	}
	c.JSON(http.StatusOK, authResp)
}

// GetCurrentUser returns the profile behind the bearer token.
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	userID := c.GetInt64(middleware.UserIDKey)
	if userID == 0 {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "User not authenticated.", ""))
		return
	}
	user, err := h.authService.GetUserProfile(userID)
	if err != nil {
		h.respondError(c, err, "GetCurrentUser user "+utils.Int64ToStr(userID), "Failed to retrieve user profile.")
		return
	}
	c.JSON(http.StatusOK, user)
}

// LogoutUser acknowledges a logout. Tokens are stateless; the client drops its copy.
func (h *AuthHandler) LogoutUser(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Logged out."})
}
