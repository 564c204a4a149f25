package api

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/nerrad567/telemetry-core/internal/audit"
	"github.com/nerrad567/telemetry-core/internal/auth"
	"github.com/nerrad567/telemetry-core/internal/validate"
)

// Account field bounds, in characters.
const (
	minNameLength     = 3
	maxNameLength     = 100
	minPasswordLength = 8
)

// ticketTTL is how long a WebSocket ticket is valid.
const ticketTTL = 60 * time.Second

// ticketBytes is the number of random bytes used for WebSocket tickets.
const ticketBytes = 32

// registerRequest is the request body for POST /auth/register.
type registerRequest struct {
	Name                 *string `json:"name"`
	Role                 *string `json:"role"`
	Email                *string `json:"email"`
	Password             *string `json:"password"`
	PasswordConfirmation *string `json:"password_confirmation"`
}

// loginRequest is the request body for POST /auth/login.
type loginRequest struct {
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

// loginResponse is the response body for POST /auth/login.
type loginResponse struct {
	Token string `json:"token"`
}

// handleRegister creates a user account.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	v := validate.Errors{}
	v.Length("name", req.Name, minNameLength, maxNameLength)
	v.OneOf("role", req.Role, string(auth.RoleAdmin), string(auth.RoleUser))
	if v.Email("email", req.Email) {
		_, err := s.users.GetByEmail(r.Context(), *req.Email)
		switch {
		case err == nil:
			v.Add("email", msgEmailTaken)
		case !errors.Is(err, auth.ErrUserNotFound):
			s.logger.Error("email lookup failed", "error", err)
			writeInternalError(w)
			return
		}
	}
	if v.MinLength("password", req.Password, minPasswordLength) {
		v.Confirmed("password", req.Password, req.PasswordConfirmation)
	}
	if len(v) > 0 {
		writeValidation(w, v)
		return
	}

	hash, err := auth.HashPassword(*req.Password)
	if err != nil {
		s.logger.Error("hashing password failed", "error", err)
		writeInternalError(w)
		return
	}

	user := &auth.User{
		Name:         *req.Name,
		Email:        *req.Email,
		PasswordHash: hash,
		Role:         auth.Role(*req.Role),
	}
	if err := s.users.Create(r.Context(), user); err != nil {
		if errors.Is(err, auth.ErrEmailExists) {
			writeValidation(w, validate.Errors{"email": {msgEmailTaken}})
			return
		}
		s.logger.Error("creating user failed", "error", err)
		writeInternalError(w)
		return
	}

	s.logger.Info("user registered", "user_id", user.ID, "role", user.Role)
	s.auditLog(audit.ActionRegister, audit.EntityUser, user.ID, user.ID, map[string]any{"role": user.Role})
	writeMessage(w, http.StatusCreated, "User registered successfully")
}

// handleLogin verifies credentials, opens a session and returns its access token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	v := validate.Errors{}
	v.Email("email", req.Email)
	v.MinLength("password", req.Password, minPasswordLength)
	if len(v) > 0 {
		writeValidation(w, v)
		return
	}

	ctx := r.Context()
	user, err := s.users.GetByEmail(ctx, *req.Email)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeUnauthorized(w)
			return
		}
		s.logger.Error("user lookup failed", "error", err)
		writeInternalError(w)
		return
	}

	ok, err := auth.VerifyPassword(*req.Password, user.PasswordHash)
	if err != nil {
		s.logger.Error("password verification failed", "user_id", user.ID, "error", err)
		writeInternalError(w)
		return
	}
	if !ok {
		s.logger.Info("login rejected", "user_id", user.ID)
		writeUnauthorized(w)
		return
	}

	if auth.NeedsRehash(user.PasswordHash) {
		s.rehashPassword(ctx, user.ID, *req.Password)
	}

	session := auth.NewSession(user.ID, s.secCfg.JWT.AccessTokenTTL)
	if err := s.sessions.Create(ctx, session); err != nil {
		s.logger.Error("creating session failed", "user_id", user.ID, "error", err)
		writeInternalError(w)
		return
	}

	token, err := auth.GenerateAccessToken(user, session, s.secCfg.JWT.Secret)
	if err != nil {
		s.logger.Error("issuing access token failed", "user_id", user.ID, "error", err)
		writeInternalError(w)
		return
	}

	s.auditLog(audit.ActionLogin, audit.EntityUser, user.ID, user.ID, nil)
	writeJSON(w, http.StatusOK, loginResponse{Token: token})
}

// rehashPassword upgrades a legacy hash after a successful login. Failure
// only delays the upgrade to the next login.
func (s *Server) rehashPassword(ctx context.Context, userID, password string) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		s.logger.Warn("password rehash failed", "user_id", userID, "error", err)
		return
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		s.logger.Warn("storing rehashed password failed", "user_id", userID, "error", err)
		return
	}
	s.logger.Info("password hash upgraded", "user_id", userID)
}

// handleUser returns the authenticated user.
func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		writeUnauthorized(w)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// handleLogout revokes the session behind the request's token, or every
// session of the user with ?all=true.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}

	// ?all=true signs the user out of every session, not just this one.
	all, _ := strconv.ParseBool(r.URL.Query().Get("all")) //nolint:errcheck // anything else means false

	var err error
	if all {
		err = s.sessions.RevokeAllForUser(r.Context(), principal.UserID)
	} else {
		err = s.sessions.Revoke(r.Context(), principal.SessionID)
	}
	if err != nil {
		if errors.Is(err, auth.ErrSessionNotFound) {
			writeUnauthorized(w)
			return
		}
		s.logger.Error("revoking session failed", "error", err, "all", all)
		writeInternalError(w)
		return
	}

	var details map[string]any
	if all {
		details = map[string]any{"all_sessions": true}
	}
	s.auditLog(audit.ActionLogout, audit.EntityUser, principal.UserID, principal.UserID, details)
	writeMessage(w, http.StatusOK, "User logged out successfully")
}

// handleWSTicket issues a single-use WebSocket ticket for the session's user.
// Browsers cannot set an Authorization header on the upgrade request, so the
// client exchanges its bearer token for a ticket and passes it as ?ticket=.
func (s *Server) handleWSTicket(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}

	ticket, err := s.tickets.issue(principal.UserID)
	if err != nil {
		s.logger.Error("generating websocket ticket failed", "error", err)
		writeInternalError(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ticket":     ticket,
		"expires_in": int(ticketTTL.Seconds()),
	})
}

// ticketStore holds pending WebSocket authentication tickets.
// Tickets are single-use and expire after ticketTTL.
type ticketStore struct {
	mu      sync.Mutex
	tickets map[string]ticketEntry
	now     func() time.Time
}

type ticketEntry struct {
	expiresAt time.Time
	userID    string
}

func newTicketStore() *ticketStore {
	return &ticketStore{
		tickets: make(map[string]ticketEntry),
		now:     time.Now,
	}
}

// issue stores and returns a new ticket for userID.
func (t *ticketStore) issue(userID string) (string, error) {
	b := make([]byte, ticketBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	ticket := hex.EncodeToString(b)

	t.mu.Lock()
	t.tickets[ticket] = ticketEntry{expiresAt: t.now().Add(ticketTTL), userID: userID}
	t.mu.Unlock()
	return ticket, nil
}

// consume validates a ticket and removes it. The second return is false
// for unknown, already used or expired tickets.
func (t *ticketStore) consume(ticket string) (ticketEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.tickets[ticket]
	if !ok {
		return ticketEntry{}, false
	}
	delete(t.tickets, ticket)
	return entry, t.now().Before(entry.expiresAt)
}

// cleanExpired removes expired tickets from the store.
func (t *ticketStore) cleanExpired() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	for ticket, entry := range t.tickets {
		if now.After(entry.expiresAt) {
			delete(t.tickets, ticket)
		}
	}
}

// cleanLoop runs cleanExpired periodically until the context is cancelled.
func (t *ticketStore) cleanLoop(ctx context.Context) {
	ticker := time.NewTicker(ticketTTL)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.cleanExpired()
		}
	}
}

// size reports the number of pending tickets.
func (t *ticketStore) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.tickets)
}
