package main

import (
	"github.com/gin-gonic/gin"
	"github.com/viprasethu/backend/internal/handlers"
	"github.com/viprasethu/backend/internal/middleware"
	"github.com/viprasethu/backend/internal/models"
	"github.com/viprasethu/backend/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, svc *appServices) {
	// Middleware
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS(svc.cfg.Server.CORSOrigins))

	limited := svc.limiter.Middleware()

	r.GET("/health", svc.healthHandler.CheckHealth)
	r.GET("/metrics", handlers.Metrics(svc.metrics))

	api := r.Group("/api")
	{
		// Public directory
		api.GET("/providers", svc.providerHandler.Search)
		api.GET("/providers/:id", svc.providerHandler.Get)
		api.POST("/providers/onboard", limited, middleware.OptionalAuth(), svc.onboardingHandler.Submit)

		// Reference data
		master := api.Group("/master")
		for _, kind := range svc.masterDataHandler.Kinds() {
			master.GET("/"+kind, svc.masterDataHandler.ForKind(kind), svc.masterDataHandler.ListActive)
		}
		master.GET("/categories/:code/sampradayas", svc.masterDataHandler.CategorySampradayas)

		// Community posts (public)
		api.GET("/community/posts", svc.postHandler.ListPublished)
		api.GET("/community/posts/:id", svc.postHandler.GetPublished)

		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.GET("/config", svc.authHandler.GetAuthConfig)
			auth.POST("/signup", limited, svc.authHandler.Signup)
			auth.POST("/login", limited, svc.authHandler.Login)
			auth.POST("/refresh", limited, svc.authHandler.Refresh)
			auth.POST("/logout", svc.authHandler.Logout)
		}

		// Signed-in routes
		protected := api.Group("")
		protected.Use(middleware.AuthRequired())
		{
			protected.GET("/auth/me", svc.authHandler.GetCurrentUser)
			protected.PUT("/auth/password", svc.authHandler.ChangePassword)
			protected.POST("/auth/mfa/enroll", svc.authHandler.EnrollMFA)
			protected.POST("/auth/mfa/verify", svc.authHandler.VerifyMFA)

			protected.GET("/profile", svc.profileHandler.Get)
			protected.PUT("/profile", svc.profileHandler.Update)

			protected.GET("/community/my/posts", svc.postHandler.ListMine)
			protected.PUT("/community/posts/:id", svc.postHandler.Update)
			protected.DELETE("/community/posts/:id", svc.postHandler.Delete)
			protected.POST("/community/posts/:id/submit", svc.postHandler.Transition(models.PostActionSubmit))
			protected.POST("/community/posts", middleware.EditorRequired(svc.admins), svc.postHandler.Create)
		}

		// Admin routes
		admin := api.Group("/admin")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired(svc.admins), middleware.MFASatisfied(svc.authService), middleware.AuditLog(svc.systemLogs))
		{
			// Providers
			admin.GET("/providers", svc.adminProviderHandler.List)
			admin.GET("/providers/export", svc.adminProviderHandler.Export)
			admin.GET("/providers/:id", svc.adminProviderHandler.Get)
			admin.POST("/providers/:id/approve", svc.adminProviderHandler.Approve)
			admin.POST("/providers/:id/reject", svc.adminProviderHandler.Reject)

			// Reference data
			for _, kind := range svc.masterDataHandler.Kinds() {
				g := admin.Group("/"+kind, svc.masterDataHandler.ForKind(kind))
				g.GET("", svc.masterDataHandler.List)
				g.POST("", svc.masterDataHandler.Create)
				g.PUT("/:code", svc.masterDataHandler.Update)
				g.PATCH("/:code", svc.masterDataHandler.Patch)
				g.DELETE("/:code", svc.masterDataHandler.Delete)
			}
			admin.GET("/sampradaya-categories", svc.masterDataHandler.ListMappings)
			admin.POST("/sampradaya-categories", svc.masterDataHandler.CreateMapping)
			admin.DELETE("/sampradaya-categories/:sampradaya/:category", svc.masterDataHandler.DeleteMapping)

			// Community posts
			admin.GET("/posts", svc.postHandler.ListAll)
			admin.GET("/posts/:id", svc.postHandler.Get)
			admin.PUT("/posts/:id", svc.postHandler.Update)
			admin.DELETE("/posts/:id", svc.postHandler.Delete)
			admin.POST("/posts/:id/approve", svc.postHandler.Transition(models.PostActionApprove))
			admin.POST("/posts/:id/publish", svc.postHandler.Transition(models.PostActionPublish))
			admin.POST("/posts/:id/reject", svc.postHandler.Transition(models.PostActionReject))

			// Admin allowlist
			admin.GET("/admin-emails", svc.profileHandler.ListAdmins)
			admin.POST("/admin-emails", svc.profileHandler.AddAdmin)
			admin.DELETE("/admin-emails/:email", svc.profileHandler.RemoveAdmin)

			// System Logs
			admin.GET("/system-logs", svc.systemLogHandler.List)
			admin.GET("/system-logs/modules", svc.systemLogHandler.GetModules)
			admin.GET("/system-logs/retention", svc.systemLogHandler.GetRetention)
			admin.PUT("/system-logs/retention", svc.systemLogHandler.SetRetention)

			// System Config
			admin.GET("/system-config", svc.systemConfigHandler.List)
			admin.PUT("/system-config/:key", svc.systemConfigHandler.Update)
		}
	}

	// Everything else is a page of the web client behind the session gate.
	r.NoRoute(
		middleware.SessionGate(middleware.SessionGateConfig{
			Sessions:      svc.authService,
			Admins:        svc.admins,
			SecureCookies: svc.cfg.Server.SecureCookies,
		}),
		handlers.Pages(svc.cfg.Server.StaticDir),
	)
}
