package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/internal/middleware"
	"github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/internal/models"
	"github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/internal/service"
)

// Handlers bundles every HTTP handler for route registration.
type Handlers struct {
	Auth         *AuthHandler
	Registration *RegistrationHandler
	User         *UserHandler
	Room         *RoomHandler
	Application  *ApplicationHandler
	Contract     *ContractHandler
	Invoice      *InvoiceHandler
	Request      *RequestHandler
	Dashboard    *DashboardHandler
	Billing      *BillingHandler
	Upload       *UploadHandler
}

// RouteOptions toggles optional surfaces.
type RouteOptions struct {
	EnableDocs      bool
	EnableDashboard bool
}

// RegisterRoutes mounts the API on the given engine. Auth endpoints and
// token downloads are public, everything else sits behind the JWT
// middleware with per-route role checks.
func RegisterRoutes(r *gin.Engine, h Handlers, authService *service.AuthService, opts RouteOptions) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	if opts.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group("/api/v1")

	auth := api.Group("/auth")
	{
		auth.POST("/login", h.Auth.Login)
		auth.POST("/register", h.Registration.Register)
		auth.POST("/refresh", h.Auth.Refresh)
	}

	// The download token carries its own signature, so no bearer token.
	api.GET("/files/download", h.Upload.Download)

	protected := api.Group("")
	protected.Use(middleware.JWT(authService))
	{
		protected.POST("/auth/logout", h.Auth.Logout)
		protected.POST("/auth/change-password", h.Auth.ChangePassword)

		protected.POST("/files/sign", h.Upload.Sign)

		users := protected.Group("/users")
		{
			users.GET("/me", h.User.Me)
			users.PUT("/me", h.User.UpdateProfile)
			users.GET("", middleware.RequireStaff(), h.User.List)
			users.POST("", middleware.RequireRoles(models.RoleAdmin), h.User.Create)
			users.GET("/:id", middleware.RBAC(string(models.RoleManager), string(models.RoleAdmin), middleware.SelfRole), h.User.Get)
			users.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), h.User.Deactivate)
		}

		rooms := protected.Group("/rooms")
		{
			rooms.GET("", h.Room.List)
			rooms.GET("/:id", h.Room.Get)
			rooms.POST("", middleware.RequireStaff(), h.Room.Create)
			rooms.PUT("/:id", middleware.RequireStaff(), h.Room.Update)
			rooms.DELETE("/:id", middleware.RequireStaff(), h.Room.Delete)
		}

		applications := protected.Group("/applications")
		{
			applications.GET("", h.Application.List)
			applications.GET("/:id", h.Application.Get)
			applications.POST("", middleware.RequireRoles(models.RoleStudent), h.Application.Create)
			applications.POST("/:id/approve", middleware.RequireStaff(), h.Application.Approve)
			applications.POST("/:id/reject", middleware.RequireStaff(), h.Application.Reject)
		}

		contracts := protected.Group("/contracts")
		{
			contracts.GET("", h.Contract.List)
			contracts.GET("/:id", h.Contract.Get)
			contracts.POST("", middleware.RequireStaff(), h.Contract.Create)
			contracts.POST("/:id/terminate", middleware.RequireStaff(), h.Contract.Terminate)
			contracts.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), h.Contract.Delete)
		}

		invoices := protected.Group("/invoices")
		{
			invoices.GET("", h.Invoice.List)
			invoices.GET("/summary", h.Invoice.Summary)
			invoices.GET("/export", h.Invoice.Export)
			invoices.GET("/:id", h.Invoice.Get)
			invoices.POST("/:id/pay", h.Invoice.Pay)
		}

		requests := protected.Group("/requests")
		{
			requests.GET("", h.Request.List)
			requests.GET("/:id", h.Request.Get)
			requests.POST("", h.Request.Create)
			requests.PUT("/:id/status", middleware.RequireStaff(), h.Request.UpdateStatus)
		}

		if opts.EnableDashboard {
			protected.GET("/dashboard/stats", middleware.RequireStaff(), h.Dashboard.Stats)
		}
		protected.POST("/billing/run", middleware.RequireStaff(), h.Billing.Trigger)
	}
}
