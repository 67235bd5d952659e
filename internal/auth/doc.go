// Package auth authenticates API callers.
//
// Three credentials are accepted, checked in this order:
//   - "Authorization: Bearer ss_<hex>": a long-lived API token, stored as a SHA-256 hash
//   - "Authorization: Bearer <jwt>": a short-lived HS256 token issued to the UI layer
//   - the session cookie set by login, stored in sqlite through scs
//
// Cookie-authenticated requests that change state must carry the token from
// GET /api/auth/csrf in the X-CSRF-Token header.
//
// # Configuration
//
//	AUTH_SESSION_SECRET=<hex>        # generated at startup if empty
//	AUTH_SESSION_LIFETIME=24h
//	AUTH_TOKEN_EXPIRY=720h           # API token expiry, 0 disables
//	AUTH_JWT_EXPIRY=15m
//	AUTH_BCRYPT_COST=12
//	AUTH_MAX_LOGIN_ATTEMPTS=5        # per account and per client IP
//	AUTH_LOCKOUT_DURATION=30m
//
// Extract the caller in handlers:
//
//	userID := auth.GetUserID(c) // 0 when anonymous
package auth
