package router

import (
	"database/sql"
	"net/http"

	"tuina_clinic_backend/internal/config"
	"tuina_clinic_backend/internal/handlers"
	"tuina_clinic_backend/internal/metrics"
	"tuina_clinic_backend/internal/middleware"
	"tuina_clinic_backend/internal/repositories"
	"tuina_clinic_backend/internal/services"
	"tuina_clinic_backend/pkg/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Services bundles the application services behind the routes.
type Services struct {
	Auth           services.AuthService
	Customer       services.CustomerService
	Membership     services.MembershipService
	MembershipType services.MembershipTypeService
	ServiceRecord  services.ServiceRecordService
	Staff          services.StaffService
	Report         services.ReportService
}

// NewServices wires repositories into services.
func NewServices(db *sql.DB, m *metrics.Metrics, now services.Clock) *Services {
	authRepo := repositories.NewAuthRepository(db)
	customerRepo := repositories.NewCustomerRepository(db)
	cardRepo := repositories.NewMembershipRepository(db)
	typeRepo := repositories.NewMembershipTypeRepository(db)
	recordRepo := repositories.NewServiceRecordRepository(db)
	staffRepo := repositories.NewStaffRepository(db)
	reportRepo := repositories.NewReportRepository(db)

	membershipService := services.NewMembershipService(cardRepo, typeRepo, customerRepo, db, m, now)
	return &Services{
		Auth:           services.NewAuthService(authRepo, db),
		Customer:       services.NewCustomerService(customerRepo, cardRepo, db, now),
		Membership:     membershipService,
		MembershipType: services.NewMembershipTypeService(typeRepo, db),
		ServiceRecord:  services.NewServiceRecordService(recordRepo, cardRepo, db, m, now),
		Staff:          services.NewStaffService(staffRepo, authRepo, db, now),
		Report:         services.NewReportService(reportRepo, membershipService, now),
	}
}

// New builds the engine with the shared middleware, health and metrics endpoints, and the API.
func New(cfg *config.Config, svc *Services, m *metrics.Metrics) *gin.Engine {
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestID())
	engine.Use(utils.GinLogger())
	engine.Use(middleware.Metrics(m))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.App.AllowedOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", middleware.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{middleware.RequestIDHeader}
	corsConfig.AllowCredentials = true
	engine.Use(cors.New(corsConfig))

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	engine.GET("/metrics", gin.WrapH(m.Handler()))

	Setup(engine, svc)
	return engine
}

// Setup initializes the API routes.
func Setup(engine *gin.Engine, svc *Services) {
	authHandler := handlers.NewAuthHandler(svc.Auth)
	customerHandler := handlers.NewCustomerHandler(svc.Customer)
	membershipHandler := handlers.NewMembershipHandler(svc.Membership)
	typeHandler := handlers.NewMembershipTypeHandler(svc.MembershipType)
	recordHandler := handlers.NewServiceRecordHandler(svc.ServiceRecord)
	staffHandler := handlers.NewStaffHandler(svc.Staff)
	reportHandler := handlers.NewReportHandler(svc.Report)

	apiV1 := engine.Group("/api/v1")
	SetupPublicAuthRoutes(apiV1.Group("/auth"), authHandler)

	authenticated := apiV1.Group("")
	authenticated.Use(middleware.AuthMiddleware())
	{
		SetupAuthenticatedAuthRoutes(authenticated.Group("/auth"), authHandler)
		SetupCustomerRoutes(authenticated, customerHandler)
		SetupMembershipRoutes(authenticated, membershipHandler)
		SetupMembershipTypeRoutes(authenticated, typeHandler)
		SetupServiceRecordRoutes(authenticated, recordHandler)
		SetupTherapistRoutes(authenticated, staffHandler)
		SetupShiftRoutes(authenticated, staffHandler)
		SetupDashboardRoutes(authenticated, reportHandler)
	}
}
