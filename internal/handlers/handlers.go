// Package handlers implements the JSON HTTP API.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"expense-ledger/internal/alerts"
	"expense-ledger/internal/auth"
	"expense-ledger/internal/log"
	"expense-ledger/internal/models"
	"expense-ledger/internal/report"
	"expense-ledger/internal/storage"
	"expense-ledger/internal/validator"
)

// Context key type to avoid collisions.
type contextKey string

const (
	// UserContextKey is the context key for the authenticated user.
	UserContextKey contextKey = "user"
	// SessionCookieName is the name of the session cookie.
	SessionCookieName = "session"
	// DefaultSessionDuration is how long sessions last (30 days).
	DefaultSessionDuration = 30 * 24 * time.Hour
)

// Options configures Handlers. Only DB is required.
type Options struct {
	DB *storage.DB
	// Tokens enables bearer authentication and token issuing at login.
	Tokens *auth.TokenService
	// Watcher checks budgets after each new expense.
	Watcher         *alerts.Watcher
	SecureCookie    bool
	SessionDuration time.Duration
	// Now overrides the clock used for period windows.
	Now func() time.Time
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	db              *storage.DB
	agg             *report.Aggregator
	tokens          *auth.TokenService
	watcher         *alerts.Watcher
	secureCookie    bool
	sessionDuration time.Duration
	now             func() time.Time
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(opts Options) *Handlers {
	h := &Handlers{
		db:              opts.DB,
		agg:             report.NewAggregator(opts.DB),
		tokens:          opts.Tokens,
		watcher:         opts.Watcher,
		secureCookie:    opts.SecureCookie,
		sessionDuration: opts.SessionDuration,
		now:             opts.Now,
	}
	if h.sessionDuration <= 0 {
		h.sessionDuration = DefaultSessionDuration
	}
	if h.now == nil {
		h.now = time.Now
	}
	return h
}

// GetUserFromContext retrieves the authenticated user from request context.
func GetUserFromContext(r *http.Request) *models.User {
	if user, ok := r.Context().Value(UserContextKey).(*models.User); ok {
		return user
	}
	return nil
}

// AuthMiddleware wraps handlers to require authentication, either a bearer
// token or a session cookie. Cookie sessions roll: past the halfway point of
// their lifetime they are renewed.
func (h *Handlers) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if header := r.Header.Get("Authorization"); header != "" {
			h.bearerAuth(w, r, header, next)
			return
		}

		cookie, err := r.Cookie(SessionCookieName)
		if err != nil || cookie.Value == "" {
			writeMessage(w, http.StatusUnauthorized, "authentication required")
			return
		}

		sessionInfo, err := h.db.ValidateSessionWithInfo(r.Context(), cookie.Value)
		if errors.Is(err, storage.ErrNotFound) {
			// Invalid or expired session, clear the cookie
			h.clearSessionCookie(w)
			writeMessage(w, http.StatusUnauthorized, "session expired")
			return
		}
		if err != nil {
			h.writeError(w, r, err)
			return
		}

		now := time.Now()
		if sessionInfo.ExpiresAt.Sub(now) < h.sessionDuration/2 {
			newExpiresAt := now.Add(h.sessionDuration)
			if err := h.db.RenewSession(r.Context(), cookie.Value, newExpiresAt); err == nil {
				h.setSessionCookie(w, cookie.Value)
			} else {
				// Keep serving on the current session.
				log.FromContext(r.Context()).WarnContext(r.Context(), "Failed to renew session", log.FieldError, err)
			}
		}

		next.ServeHTTP(w, r.WithContext(h.withUser(r.Context(), sessionInfo.User)))
	})
}

func (h *Handlers) bearerAuth(w http.ResponseWriter, r *http.Request, header string, next http.Handler) {
	tokenStr, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || tokenStr == "" {
		writeMessage(w, http.StatusUnauthorized, "invalid Authorization header format")
		return
	}
	if h.tokens == nil {
		writeMessage(w, http.StatusUnauthorized, "bearer tokens are not enabled")
		return
	}

	userID, err := h.tokens.ParseToken(tokenStr)
	if err != nil {
		writeMessage(w, http.StatusUnauthorized, "invalid or expired token")
		return
	}
	user, err := h.db.GetUserByID(r.Context(), userID)
	if errors.Is(err, storage.ErrNotFound) {
		writeMessage(w, http.StatusUnauthorized, "invalid or expired token")
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	next.ServeHTTP(w, r.WithContext(h.withUser(r.Context(), user)))
}

func (h *Handlers) withUser(ctx context.Context, user *models.User) context.Context {
	ctx = context.WithValue(ctx, UserContextKey, user)
	return log.NewContext(ctx, log.FromContext(ctx).With(log.FieldUserID, user.ID))
}

type registerRequest struct {
	Username        string `json:"username" validate:"required,notblank,max=64"`
	Email           string `json:"email" validate:"omitempty,email"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

// Register creates an account. New accounts start with the default categories.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := validator.Struct(req); err != nil {
		h.writeError(w, r, err)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	user, err := h.db.CreateUser(r.Context(), req.Username, req.Email, hash)
	if errors.Is(err, storage.ErrDuplicate) {
		writeMessage(w, http.StatusConflict, "username or email already registered")
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	log.FromContext(r.Context()).InfoContext(r.Context(), "User registered",
		log.FieldOperation, log.OpCreate, log.FieldUserID, user.ID)
	writeJSON(w, http.StatusCreated, user)
}

type loginRequest struct {
	Username string `json:"username" validate:"required,notblank"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	User           *models.User `json:"user"`
	Token          string       `json:"token,omitempty"`
	TokenExpiresAt *time.Time   `json:"token_expires_at,omitempty"`
}

// Login checks credentials, starts a cookie session and, when enabled, issues a bearer token.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := validator.Struct(req); err != nil {
		writeMessage(w, http.StatusBadRequest, "username and password are required")
		return
	}

	user, err := h.db.GetUserByUsername(r.Context(), req.Username)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		h.writeError(w, r, err)
		return
	}
	if err != nil || !auth.CheckPassword(req.Password, user.PasswordHash) {
		writeMessage(w, http.StatusUnauthorized, "invalid username or password")
		return
	}

	token, err := auth.GenerateSessionToken()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.db.CreateSession(r.Context(), token, user.ID, time.Now().Add(h.sessionDuration)); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.setSessionCookie(w, token)

	resp := loginResponse{User: user}
	if h.tokens != nil {
		bearer, expiresAt, err := h.tokens.GenerateToken(user.ID)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		resp.Token = bearer
		resp.TokenExpiresAt = &expiresAt
	}
	writeJSON(w, http.StatusOK, resp)
}

// Logout ends the cookie session. Bearer tokens simply expire.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		if err := h.db.DeleteSession(r.Context(), cookie.Value); err != nil {
			log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to delete session", log.FieldError, err)
		}
	}
	h.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the authenticated user.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, GetUserFromContext(r))
}

// Health reports whether the store is reachable.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.sessionDuration.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handlers) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}
