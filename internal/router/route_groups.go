package router

import (
	"tuina_clinic_backend/internal/handlers"
	"tuina_clinic_backend/internal/middleware"
	"tuina_clinic_backend/internal/models"

	"github.com/gin-gonic/gin"
)

var (
	allStaff  = []string{models.RoleAdmin, models.RoleReceptionist, models.RoleTherapist}
	frontDesk = []string{models.RoleAdmin, models.RoleReceptionist}
)

// SetupPublicAuthRoutes sets up the routes that need no token.
func SetupPublicAuthRoutes(group *gin.RouterGroup, authHandler *handlers.AuthHandler) {
	group.POST("/login", authHandler.LoginUser)
}

// SetupAuthenticatedAuthRoutes sets up the auth routes for logged-in users.
// Accounts are created by an admin.
func SetupAuthenticatedAuthRoutes(group *gin.RouterGroup, authHandler *handlers.AuthHandler) {
	group.POST("/logout", authHandler.LogoutUser)
	group.GET("/me", authHandler.GetCurrentUser)
	group.POST("/register", middleware.RoleAuthMiddleware(models.RoleAdmin), authHandler.RegisterUser)
}

// SetupCustomerRoutes sets up the customer routes.
func SetupCustomerRoutes(authenticatedGroup *gin.RouterGroup, customerHandler *handlers.CustomerHandler) {
	customerRoutes := authenticatedGroup.Group("/customers")
	{
		customerRoutes.GET("", middleware.RoleAuthMiddleware(allStaff...), customerHandler.GetCustomers)
		customerRoutes.GET("/:id", middleware.RoleAuthMiddleware(allStaff...), customerHandler.GetCustomerByID)
		customerRoutes.POST("", middleware.RoleAuthMiddleware(frontDesk...), customerHandler.CreateCustomer)
		customerRoutes.PUT("/:id", middleware.RoleAuthMiddleware(frontDesk...), customerHandler.UpdateCustomer)
		customerRoutes.DELETE("/:id", middleware.RoleAuthMiddleware(models.RoleAdmin), customerHandler.DeleteCustomer)
	}
}

// SetupMembershipRoutes sets up the membership card routes.
func SetupMembershipRoutes(authenticatedGroup *gin.RouterGroup, membershipHandler *handlers.MembershipHandler) {
	membershipRoutes := authenticatedGroup.Group("/memberships")
	membershipRoutes.Use(middleware.RoleAuthMiddleware(allStaff...))
	{
		membershipRoutes.GET("", membershipHandler.GetCards)
		membershipRoutes.GET("/expiring", membershipHandler.GetExpiringCards)
		membershipRoutes.GET("/customer/:customerId", membershipHandler.GetCustomerMemberships)
		membershipRoutes.GET("/:id", membershipHandler.GetCardByID)
		membershipRoutes.POST("/validate-charge", membershipHandler.ValidateCharge)
	}

	writeRoutes := authenticatedGroup.Group("/memberships")
	writeRoutes.Use(middleware.RoleAuthMiddleware(frontDesk...))
	{
		writeRoutes.POST("", membershipHandler.IssueCard)
		writeRoutes.PATCH("/:id/status", membershipHandler.UpdateCardStatus)
	}
}

// SetupMembershipTypeRoutes sets up the card catalog routes.
func SetupMembershipTypeRoutes(authenticatedGroup *gin.RouterGroup, typeHandler *handlers.MembershipTypeHandler) {
	authenticatedGroup.GET("/membership-types", middleware.RoleAuthMiddleware(allStaff...), typeHandler.GetMembershipTypes)
	authenticatedGroup.GET("/membership-types/:id", middleware.RoleAuthMiddleware(allStaff...), typeHandler.GetMembershipTypeByID)

	typeWriteRoutes := authenticatedGroup.Group("/membership-types")
	typeWriteRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin))
	{
		typeWriteRoutes.POST("", typeHandler.CreateMembershipType)
		typeWriteRoutes.PUT("/:id", typeHandler.UpdateMembershipType)
		typeWriteRoutes.DELETE("/:id", typeHandler.DeleteMembershipType)
	}
}

// SetupServiceRecordRoutes sets up the visit routes.
func SetupServiceRecordRoutes(authenticatedGroup *gin.RouterGroup, recordHandler *handlers.ServiceRecordHandler) {
	recordRoutes := authenticatedGroup.Group("/services")
	{
		recordRoutes.GET("", middleware.RoleAuthMiddleware(allStaff...), recordHandler.GetServiceRecords)
		recordRoutes.GET("/:id", middleware.RoleAuthMiddleware(allStaff...), recordHandler.GetServiceRecordByID)
		recordRoutes.POST("", middleware.RoleAuthMiddleware(allStaff...), recordHandler.CreateServiceRecord)
		recordRoutes.PUT("/:id", middleware.RoleAuthMiddleware(frontDesk...), recordHandler.UpdateServiceRecord)
		recordRoutes.DELETE("/:id", middleware.RoleAuthMiddleware(frontDesk...), recordHandler.DeleteServiceRecord)
	}
}

// SetupTherapistRoutes sets up the therapist routes.
// Note: RoleAuthMiddleware is applied separately for write and read operations.
func SetupTherapistRoutes(authenticatedGroup *gin.RouterGroup, staffHandler *handlers.StaffHandler) {
	therapistWriteRoutes := authenticatedGroup.Group("/therapists")
	therapistWriteRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin))
	{
		therapistWriteRoutes.POST("", staffHandler.CreateTherapist)
		therapistWriteRoutes.PUT("/:id", staffHandler.UpdateTherapist)
		therapistWriteRoutes.DELETE("/:id", staffHandler.DeleteTherapist)
	}

	authenticatedGroup.GET("/therapists", middleware.RoleAuthMiddleware(allStaff...), staffHandler.GetTherapists)
	authenticatedGroup.GET("/therapists/:id", middleware.RoleAuthMiddleware(allStaff...), staffHandler.GetTherapistByID)
}

// SetupShiftRoutes sets up the roster shift routes.
func SetupShiftRoutes(authenticatedGroup *gin.RouterGroup, staffHandler *handlers.StaffHandler) {
	authenticatedGroup.GET("/shifts", middleware.RoleAuthMiddleware(allStaff...), staffHandler.GetShifts)
	authenticatedGroup.GET("/shifts/:id", middleware.RoleAuthMiddleware(allStaff...), staffHandler.GetShiftByID)

	shiftRoutes := authenticatedGroup.Group("/shifts")
	shiftRoutes.Use(middleware.RoleAuthMiddleware(frontDesk...))
	{
		shiftRoutes.POST("", staffHandler.CreateShift)
		shiftRoutes.PUT("/:id", staffHandler.UpdateShift)
		shiftRoutes.DELETE("/:id", staffHandler.DeleteShift)
	}
}

// SetupDashboardRoutes sets up the dashboard routes.
func SetupDashboardRoutes(authenticatedGroup *gin.RouterGroup, reportHandler *handlers.ReportHandler) {
	dashboardRoutes := authenticatedGroup.Group("/dashboard")
	dashboardRoutes.Use(middleware.RoleAuthMiddleware(frontDesk...))
	{
		dashboardRoutes.GET("/summary", reportHandler.GetDashboardSummary)
		dashboardRoutes.GET("/revenue", reportHandler.GetDailyRevenue)
	}
}
