package auth

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"

	"github.com/mrlokans/shelfshare/internal/config"
	"github.com/mrlokans/shelfshare/internal/entities"
)

const (
	sessionCookieName = "shelfshare_session"
	defaultSessionTTL = 24 * time.Hour

	sessionKeyUserID  = "account_id"
	sessionKeyEmail   = "account_email"
	sessionKeyLoginAt = "signed_in_at"
)

// SessionManager keeps browser sign-ins in the shelfshare database. A session
// only names the account; role, approval status and location memberships are
// reloaded on every request so an admin decision takes effect immediately.
type SessionManager struct {
	*scs.SessionManager
}

// SessionInfo is what a session remembers about its sign-in.
type SessionInfo struct {
	UserID   uint
	Email    string
	SignedIn time.Time
}

// NewSessionManager stores sessions next to the library data, in the table
// sqlite3store expects.
func NewSessionManager(sqlDB *sql.DB, cfg config.Auth) (*SessionManager, error) {
	_, err := sqlDB.Exec(`CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		expiry REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS sessions_expiry_idx ON sessions(expiry);`)
	if err != nil {
		return nil, err
	}

	lifetime := cfg.SessionLifetime
	if lifetime <= 0 {
		lifetime = defaultSessionTTL
	}

	sm := scs.New()
	sm.Store = sqlite3store.New(sqlDB)
	sm.Lifetime = lifetime
	sm.IdleTimeout = lifetime / 2

	// Lax so that invitation links opened from an email arrive signed in.
	sm.Cookie.Name = sessionCookieName
	sm.Cookie.HttpOnly = true
	sm.Cookie.Secure = cfg.SecureCookies
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Path = "/"

	return &SessionManager{SessionManager: sm}, nil
}

// Login binds the request's session to user under a fresh token.
func (sm *SessionManager) Login(ctx context.Context, user *entities.User) error {
	if err := sm.RenewToken(ctx); err != nil {
		return err
	}
	sm.Put(ctx, sessionKeyUserID, int64(user.ID))
	sm.Put(ctx, sessionKeyEmail, user.Email)
	sm.Put(ctx, sessionKeyLoginAt, time.Now().Unix())
	return nil
}

// Logout drops the session from the store and expires the cookie.
func (sm *SessionManager) Logout(ctx context.Context) error {
	return sm.Destroy(ctx)
}

// UserID is 0 for anonymous sessions.
func (sm *SessionManager) UserID(ctx context.Context) uint {
	id := sm.GetInt64(ctx, sessionKeyUserID)
	if id <= 0 {
		return 0
	}
	return uint(id)
}

// Info reports the signed-in account, if any.
func (sm *SessionManager) Info(ctx context.Context) (SessionInfo, bool) {
	id := sm.UserID(ctx)
	if id == 0 {
		return SessionInfo{}, false
	}
	return SessionInfo{
		UserID:   id,
		Email:    sm.GetString(ctx, sessionKeyEmail),
		SignedIn: time.Unix(sm.GetInt64(ctx, sessionKeyLoginAt), 0),
	}, true
}
