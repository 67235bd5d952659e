package entrypoint

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/mrlokans/shelfshare/internal/audit"
	"github.com/mrlokans/shelfshare/internal/auth"
	"github.com/mrlokans/shelfshare/internal/cache"
	"github.com/mrlokans/shelfshare/internal/config"
	"github.com/mrlokans/shelfshare/internal/covers"
	"github.com/mrlokans/shelfshare/internal/database"
	dbaudit "github.com/mrlokans/shelfshare/internal/database/audit"
	"github.com/mrlokans/shelfshare/internal/database/books"
	"github.com/mrlokans/shelfshare/internal/database/invitations"
	"github.com/mrlokans/shelfshare/internal/database/locations"
	"github.com/mrlokans/shelfshare/internal/database/ratings"
	"github.com/mrlokans/shelfshare/internal/database/removals"
	"github.com/mrlokans/shelfshare/internal/database/settings"
	"github.com/mrlokans/shelfshare/internal/database/shelves"
	"github.com/mrlokans/shelfshare/internal/database/signups"
	"github.com/mrlokans/shelfshare/internal/database/users"
	http_controllers "github.com/mrlokans/shelfshare/internal/http"
	"github.com/mrlokans/shelfshare/internal/logging"
	"github.com/mrlokans/shelfshare/internal/mail"
	"github.com/mrlokans/shelfshare/internal/metadata"
	"github.com/mrlokans/shelfshare/internal/ocr"
	"github.com/mrlokans/shelfshare/internal/scheduler"
	"github.com/mrlokans/shelfshare/internal/services"
	"github.com/mrlokans/shelfshare/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// Serve runs the HTTP server until SIGINT or SIGTERM, then shuts it down
// within the configured timeout.
func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) error {
	log := logging.Component("server")
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", srv.Addr).Info("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case sig := <-quit:
		log.WithFields(logrus.Fields{"signal": sig.String(), "timeout": timeout}).Info("shutting down server")
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Stop accepting requests before background workers go away.
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("server shutdown")
	}
	if onShutdown != nil {
		onShutdown(ctx)
	}

	log.Info("server exited")
	return nil
}

// Run wires every component from configuration and serves until shutdown.
func Run(cfg *config.Config, version string) error {
	logging.Setup(cfg.Log)
	log := logging.Component("entrypoint")
	log.WithField("version", version).Info("starting shelfshare")

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.WithError(err).Error("closing database")
		}
	}()

	userRepo := users.NewRepository(db.DB)
	locationRepo := locations.NewRepository(db.DB)
	shelfRepo := shelves.NewRepository(db.DB)
	bookRepo := books.NewRepository(db.DB)
	ratingRepo := ratings.NewRepository(db.DB)
	invitationRepo := invitations.NewRepository(db.DB)
	removalRepo := removals.NewRepository(db.DB)
	signupRepo := signups.NewRepository(db.DB)
	settingsRepo := settings.NewRepository(db.DB)

	auditService := audit.NewService(dbaudit.NewRepository(db.DB))
	defer auditService.Flush()

	policy := services.NewSignupPolicy(settingsRepo, cfg.Signup.RequireApproval)

	// Metadata lookup: Google Books first, Open Library as fallback.
	lookupCache := cache.New(context.Background(), cfg.Cache)
	lookup := metadata.NewService(lookupCache, cfg.Cache.TTL,
		metadata.NewGoogleBooksClient(cfg.Lookup.GoogleBooksBaseURL, cfg.Lookup.GoogleBooksAPIKey, cfg.Lookup.Timeout),
		metadata.NewOpenLibraryClient(cfg.Lookup.OpenLibraryBaseURL, cfg.Lookup.Timeout),
	)
	enricher := metadata.NewEnricher(lookup, bookRepo)

	var coverSource http_controllers.CoverSource
	coverCache, err := covers.NewCache(cfg.Covers.Dir)
	if err != nil {
		log.WithError(err).Warn("cover cache disabled")
	} else {
		coverSource = coverCache
		enricher.SetCoverInvalidator(coverCache)
		log.WithField("dir", coverCache.Dir()).Info("cover cache initialized")
	}

	var scanner http_controllers.ImageScanner
	if cfg.OCR.VisionAPIKey != "" {
		vision := ocr.NewVisionClient(cfg.OCR.VisionBaseURL, cfg.OCR.VisionAPIKey, cfg.Lookup.Timeout)
		scanner = ocr.NewScanner(vision, lookup, cfg.OCR.MaxImageBytes)
	} else {
		log.Info("GOOGLE_VISION_API_KEY not set, photo lookup disabled")
	}

	// Background tasks carry email delivery, enrichment and maintenance.
	var (
		notifier    services.Notifier
		enrichQueue services.EnrichmentQueue
		taskStatus  http_controllers.TaskStatusReader
		taskClient  *tasks.Client
		sender      mail.Sender
	)
	if cfg.Tasks.Enabled {
		sender, err = mail.NewSender(cfg.Mail)
		if err != nil {
			return fmt.Errorf("initialize mail sender: %w", err)
		}
		renderer, err := mail.NewRenderer(cfg.Global.PublicURL)
		if err != nil {
			return fmt.Errorf("load mail templates: %w", err)
		}

		taskClient, err = tasks.NewClient(cfg.Database.Path, tasks.FromSettings(cfg.Tasks))
		if err != nil {
			return fmt.Errorf("initialize task queue: %w", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.WithError(err).Error("closing task client")
			}
		}()

		dispatcher := tasks.NewDispatcher(taskClient, renderer, userRepo)
		notifier = dispatcher
		enrichQueue = dispatcher
		taskStatus = taskClient
	} else {
		log.Warn("task queue disabled: emails and background enrichment will not run")
	}

	invitationService := services.NewInvitationService(invitationRepo, locationRepo, userRepo, notifier, auditService, cfg.Invitations.TTL)

	bookService := services.NewBookService(bookRepo, shelfRepo, locationRepo, auditService)
	bookService.SetLookup(lookup)
	bookService.SetEnrichment(enrichQueue, enricher)

	var (
		taskCancel  context.CancelFunc
		maintenance *scheduler.MaintenanceScheduler
	)
	if taskClient != nil {
		taskClient.Register(
			tasks.NewEnrichBookQueue(enricher, auditService),
			tasks.NewSendEmailQueue(sender),
			tasks.NewPurgeInvitationsQueue(invitationService),
			tasks.NewPruneAuditTrailQueue(auditService),
		)

		var taskCtx context.Context
		taskCtx, taskCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)

		if cfg.Maintenance.Enabled {
			maintenance = scheduler.NewMaintenanceScheduler(taskClient, cfg.Maintenance.Schedule,
				cfg.Invitations.Retention, cfg.Audit.RetentionDays)
			if err := maintenance.Start(taskCtx); err != nil {
				taskCancel()
				return fmt.Errorf("start maintenance scheduler: %w", err)
			}
		}
	}

	// Authentication
	authService := auth.NewService(db.DB, cfg.Auth, policy, notifier)

	sqlDB, err := db.DB.DB()
	if err != nil {
		return fmt.Errorf("get sql db for sessions: %w", err)
	}
	sessionManager, err := auth.NewSessionManager(sqlDB, cfg.Auth)
	if err != nil {
		return fmt.Errorf("initialize session manager: %w", err)
	}

	sessionSecret := cfg.Auth.SessionSecret
	if sessionSecret == "" {
		sessionSecret, err = auth.GenerateSessionSecret()
		if err != nil {
			return fmt.Errorf("generate session secret: %w", err)
		}
		log.Warn("generated session secret, set AUTH_SESSION_SECRET to keep tokens valid across restarts")
	}
	csrfSecret, err := hex.DecodeString(sessionSecret)
	if err != nil {
		csrfSecret = []byte(sessionSecret)
	}

	jwtSecret := cfg.Auth.JWTSecret
	if jwtSecret == "" {
		jwtSecret = sessionSecret
	}
	jwtIssuer, err := auth.NewJWTIssuer(jwtSecret, cfg.Auth.JWTExpiry)
	if err != nil {
		return fmt.Errorf("initialize jwt issuer: %w", err)
	}

	authMiddleware := auth.NewMiddleware(authService, sessionManager, jwtIssuer)
	loginLimiter := auth.NewRateLimiter(auth.RateLimitConfig{
		MaxAttempts:     cfg.Auth.MaxLoginAttempts,
		WindowDuration:  cfg.Auth.RateLimitWindow,
		LockoutDuration: cfg.Auth.LockoutDuration,
	})
	lookupLimiter := auth.NewKeyedLimiter(cfg.Lookup.RequestsPerSecond, cfg.Lookup.Burst)

	if hasUsers, err := authService.HasUsers(); err == nil && !hasUsers {
		log.Info("no users yet, run `shelfshare create-admin` to create an administrator")
	}

	routerCfg := http_controllers.RouterConfig{
		Version:        version,
		Database:       db,
		MetricsEnabled: cfg.Metrics.Enabled,
		CORSOrigins:    cfg.CORS.AllowedOrigins,
		SecureCookies:  cfg.Auth.SecureCookies,
		CSRFSecret:     csrfSecret,
		AuthService:    authService,
		AuthMiddleware: authMiddleware,
		SessionManager: sessionManager,
		JWTIssuer:      jwtIssuer,
		LoginLimiter:   loginLimiter,
		LookupLimiter:  lookupLimiter,
		Auditor:        auditService,
		AuditEvents:    auditService,
		Locations:      services.NewLocationService(locationRepo, auditService),
		Shelves:        services.NewShelfService(shelfRepo, locationRepo),
		Books:          bookService,
		Ratings:        services.NewRatingService(ratingRepo, bookRepo, locationRepo),
		Invitations:    invitationService,
		Removals:       services.NewRemovalService(removalRepo, bookRepo, locationRepo, auditService),
		Admin:          services.NewAdminService(signupRepo, userRepo, settingsRepo, policy, notifier, auditService),
		Lookup:         lookup,
		Scanner:        scanner,
		Covers:         coverSource,
		Tasks:          taskStatus,
	}

	router := http_controllers.NewRouter(routerCfg)

	onShutdown := func(ctx context.Context) {
		if maintenance != nil {
			maintenance.Stop()
		}
		if taskClient != nil {
			taskClient.Stop(ctx)
			taskCancel()
		}
		loginLimiter.Stop()
		auditService.Flush()
	}

	return Serve(router, cfg, onShutdown)
}
