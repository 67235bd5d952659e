package http

import (
	"github.com/mrlokans/shelfshare/internal/auth"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router. Optional parts are left nil.
type RouterConfig struct {
	// Application info
	Version string

	// Database answers the health check.
	Database Pinger

	MetricsEnabled bool
	CORSOrigins    []string

	// Authentication
	SecureCookies  bool
	CSRFSecret     []byte
	AuthService    AccountService
	AuthMiddleware *auth.Middleware
	SessionManager *auth.SessionManager
	JWTIssuer      *auth.JWTIssuer
	LoginLimiter   *auth.RateLimiter
	LookupLimiter  *auth.KeyedLimiter
	Auditor        AuthAuditor
	AuditEvents    AuditReader

	// Domain services
	Locations   LocationManager
	Shelves     ShelfManager
	Books       BookManager
	Ratings     RatingManager
	Invitations InvitationManager
	Removals    RemovalManager
	Admin       AdminManager

	// Metadata lookup
	Lookup  MetadataLookup
	Scanner ImageScanner

	// Cover caching
	Covers CoverSource

	// Background task status
	Tasks TaskStatusReader
}
