package server

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"apr-manager/internal/analysis"
	"apr-manager/internal/apr"
	"apr-manager/internal/config"
	"apr-manager/internal/database"
	"apr-manager/internal/handlers"
	"apr-manager/internal/middleware"
	"apr-manager/internal/permissions"
	"apr-manager/internal/reasoning"
	"apr-manager/internal/report"
	"apr-manager/internal/storage"
)

// NewRouter wires the whole application together: store, object storage,
// reasoning client, APR service and the HTTP surface on top of them.
func NewRouter(cfg *config.Config, db *gorm.DB) (*gin.Engine, error) {
	store := database.NewStore(db)

	files, err := storage.NewFileStore(cfg.UploadDir, cfg.PublicBaseURL)
	if err != nil {
		return nil, err
	}

	reasoner := reasoning.NewClient(cfg.ReasoningBaseURL, cfg.ReasoningAPIKey, cfg.ReasoningModel, cfg.ReasoningTimeout)
	orchestrator := analysis.NewOrchestrator(reasoner, store, cfg.ReasoningTimeout)
	aprService := apr.NewService(store, files, orchestrator, report.NewHTMLRenderer())

	authHandler := handlers.NewAuthHandler(store, cfg.JWTSecret)
	companyHandler := handlers.NewCompanyHandler(store)
	userHandler := handlers.NewUserHandler(store)
	aprHandler := handlers.NewAprHandler(aprService)
	auditHandler := handlers.NewAuditHandler(store)

	r := gin.Default()

	sessionStore := cookie.NewStore([]byte(cfg.SessionSecret))
	r.Use(sessions.Sessions("apr_session", sessionStore))
	r.Use(middleware.InjectUser(store, cfg.JWTSecret))

	r.Static("/uploads", files.Root())

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	api := r.Group("/api")

	// public
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/logout", authHandler.Logout)
	api.GET("/auth/me", authHandler.Me)
	api.GET("/companies/by-code/:code", companyHandler.GetByCode)

	authed := api.Group("/")
	authed.Use(middleware.RequireUser())

	authed.GET("/profile", authHandler.Me)
	authed.PATCH("/profile", authHandler.UpdateProfile)

	// company administration, superadmin only
	companies := authed.Group("/companies")
	companies.Use(middleware.RequireCapability(permissions.CapManageCompanies))
	companies.POST("", companyHandler.Create)
	companies.GET("", companyHandler.List)
	companies.PATCH("/:id", companyHandler.Update)
	companies.POST("/:id/admin-emails", companyHandler.AddAdminEmail)
	companies.GET("/:id/admin-emails", companyHandler.ListAdminEmails)
	companies.DELETE("/:id/admin-emails/:emailId", companyHandler.RemoveAdminEmail)

	// user administration, company_admin and up
	users := authed.Group("/users")
	users.Use(middleware.RequireCapability(permissions.CapManageUsers))
	users.GET("", userHandler.List)
	users.POST("", userHandler.Create)
	users.PATCH("/:id", userHandler.Update)
	users.GET("/stats", userHandler.Stats)

	// risk assessments
	aprs := authed.Group("/aprs")
	aprs.GET("/questions", aprHandler.Questions)
	aprs.GET("/stats", aprHandler.Stats)
	aprs.POST("", aprHandler.Create)
	aprs.GET("", aprHandler.List)
	aprs.GET("/:id", aprHandler.Get)
	aprs.PATCH("/:id", aprHandler.Update)
	aprs.DELETE("/:id", aprHandler.Delete)
	aprs.POST("/:id/submit", aprHandler.Submit)
	aprs.POST("/:id/review", aprHandler.Review)
	aprs.POST("/:id/images", aprHandler.AddImage)
	aprs.POST("/:id/responses", aprHandler.SaveResponses)
	aprs.POST("/:id/signatures", aprHandler.AddSignature)
	aprs.POST("/:id/analyze", aprHandler.Analyze)
	aprs.POST("/:id/describe-images", aprHandler.DescribeImages)
	aprs.POST("/:id/report", aprHandler.Report)

	// audit trail, company_admin and up
	authed.GET("/audit", middleware.RequireCapability(permissions.CapManageUsers), auditHandler.List)

	return r, nil
}
