package http

import (
	"github.com/gin-gonic/gin"

	"github.com/mrlokans/shelfshare/internal/auth"
	"github.com/mrlokans/shelfshare/internal/entities"
	"github.com/mrlokans/shelfshare/internal/metrics"
)

// NewRouter creates and configures the HTTP router with all endpoints.
// Session loading runs before the auth middleware so it can read the user,
// and CSRF runs after it so bearer callers can be exempted.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger())
	if cfg.MetricsEnabled {
		router.Use(metrics.Middleware())
	}
	if len(cfg.CORSOrigins) > 0 {
		router.Use(CORSMiddleware(cfg.CORSOrigins))
	}

	// Apply security headers to all responses
	router.Use(auth.SecurityHeadersMiddleware())
	if cfg.SecureCookies {
		router.Use(auth.StrictTransportSecurityMiddleware(0))
	}

	health := NewHealthController(cfg.Database, cfg.Version)
	router.GET("/health", health.Status)
	router.GET("/ping", health.Ping)
	if cfg.MetricsEnabled {
		router.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	api := router.Group("/api")
	if cfg.SessionManager != nil {
		api.Use(cfg.SessionManager.SessionLoadSave())
	}
	api.Use(cfg.AuthMiddleware.Handler())
	if len(cfg.CSRFSecret) > 0 {
		api.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.SecureCookies, cfg.CORSOrigins))
	}

	requireAuth := cfg.AuthMiddleware.RequireAuth()
	authController := NewAuthController(cfg.AuthService, cfg.SessionManager, cfg.JWTIssuer, cfg.LoginLimiter, cfg.Auditor)
	invitations := NewInvitationsController(cfg.Invitations)

	// Public routes
	public := api.Group("")
	{
		public.POST("/auth/register", authController.Register)
		login := []gin.HandlerFunc{authController.Login}
		if cfg.LoginLimiter != nil {
			login = append([]gin.HandlerFunc{cfg.LoginLimiter.Middleware()}, login...)
		}
		public.POST("/auth/login", login...)
		public.GET("/auth/csrf", authController.CSRF)
		public.GET("/invitations/:token", invitations.Inspect)
	}

	protected := api.Group("", requireAuth)
	{
		protected.POST("/auth/logout", authController.Logout)
		protected.GET("/auth/me", authController.Me)
		protected.PATCH("/auth/me", authController.UpdateMe)
		protected.POST("/auth/password", authController.ChangePassword)
		protected.POST("/auth/token", authController.GenerateToken)
		protected.DELETE("/auth/token", authController.RevokeToken)
		protected.POST("/auth/jwt", authController.IssueJWT)
	}

	locations := NewLocationsController(cfg.Locations)
	shelves := NewShelvesController(cfg.Shelves)
	books := NewBooksController(cfg.Books)
	ratings := NewRatingsController(cfg.Ratings)
	removals := NewRemovalsController(cfg.Removals)

	loc := protected.Group("/locations")
	{
		loc.GET("", locations.List)
		loc.POST("", locations.Create)
		loc.GET("/:id", locations.Get)
		loc.PATCH("/:id", locations.Update)
		loc.DELETE("/:id", locations.Delete)
		loc.GET("/:id/members", locations.Members)
		loc.DELETE("/:id/members/:userId", locations.RemoveMember)
		loc.POST("/:id/leave", locations.Leave)
		loc.POST("/:id/transfer", locations.Transfer)
		loc.GET("/:id/shelves", shelves.List)
		loc.POST("/:id/shelves", shelves.Create)
		loc.GET("/:id/books", books.ListByLocation)
		loc.GET("/:id/invitations", invitations.List)
		loc.POST("/:id/invitations", invitations.Create)
		loc.DELETE("/:id/invitations/:invitationId", invitations.Revoke)
		loc.GET("/:id/removal-requests", removals.ListForLocation)
	}

	shelf := protected.Group("/shelves")
	{
		shelf.PATCH("/:id", shelves.Rename)
		shelf.DELETE("/:id", shelves.Delete)
		shelf.GET("/:id/books", books.ListByShelf)
		shelf.POST("/:id/books", books.Add)
	}

	book := protected.Group("/books")
	{
		book.GET("", books.Search)
		book.GET("/:id", books.Get)
		book.PATCH("/:id", books.Update)
		book.DELETE("/:id", books.Delete)
		book.POST("/:id/move", books.Move)
		book.POST("/:id/checkout", books.Checkout)
		book.POST("/:id/checkin", books.Checkin)
		book.GET("/:id/history", books.History)
		book.POST("/:id/enrich", books.Enrich)
		book.PUT("/:id/rating", ratings.Rate)
		book.DELETE("/:id/rating", ratings.Delete)
		book.GET("/:id/ratings", ratings.List)
		book.GET("/:id/removal-requests", removals.ListForBook)
		book.POST("/:id/removal-requests", removals.Request)
		if cfg.Covers != nil {
			book.GET("/:id/cover", NewCoversController(cfg.Covers, cfg.Books).GetCover)
		}
	}
	protected.GET("/me/checkouts", books.MyCheckouts)

	removal := protected.Group("/removal-requests")
	{
		removal.POST("/:id/approve", removals.Approve)
		removal.POST("/:id/deny", removals.Deny)
		removal.DELETE("/:id", removals.Cancel)
	}

	protected.POST("/invitations/:token/accept", invitations.Accept)

	if cfg.Lookup != nil {
		lookup := NewLookupController(cfg.Lookup, cfg.Scanner)
		group := protected.Group("/lookup")
		if cfg.LookupLimiter != nil {
			group.Use(cfg.LookupLimiter.PerUser())
		}
		group.GET("/isbn/:isbn", lookup.ISBN)
		group.GET("/search", lookup.Search)
		group.POST("/ocr", lookup.OCR)
	}

	admin := protected.Group("/admin", cfg.AuthMiddleware.RequireRole(entities.RoleAdmin))
	{
		adminController := NewAdminController(cfg.Admin)
		admin.GET("/signups", adminController.Signups)
		admin.POST("/signups/:id/approve", adminController.ApproveSignup)
		admin.POST("/signups/:id/deny", adminController.DenySignup)
		admin.GET("/users", adminController.Users)
		admin.PATCH("/users/:id/role", adminController.SetRole)
		admin.GET("/settings", adminController.Settings)
		admin.PUT("/settings", adminController.UpdateSettings)
		if cfg.AuditEvents != nil {
			admin.GET("/audit", NewAuditController(cfg.AuditEvents).GetAuditEvents)
		}
		if cfg.Tasks != nil {
			admin.GET("/tasks/:id", NewTasksController(cfg.Tasks).GetTaskStatus)
		}
	}

	return router
}
