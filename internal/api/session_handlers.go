package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/example/mavi-boutique/internal/api/middleware"
	"github.com/example/mavi-boutique/internal/auth"
	"github.com/example/mavi-boutique/internal/boutique"
	"github.com/example/mavi-boutique/internal/command"
	"github.com/example/mavi-boutique/internal/query"
	"github.com/example/mavi-boutique/internal/readmodel"
	"go.uber.org/zap"
)

// Local sessions are opened without mini-app init data when the deployment
// allows it, e.g. a browser on the shop owner's machine.
const (
	localUserID   = "local"
	localUsername = "admin"
)

// SessionConfig holds what SessionHandlers need to identify callers.
type SessionConfig struct {
	JWTService *auth.JWTService
	Verifier   *auth.TelegramVerifier
	AllowList  auth.AllowList
	LocalAdmin bool
	Logger     *zap.Logger
}

type SessionHandlers struct {
	cmdHandler   *command.Handler
	queryHandler *query.Handler
	jwtService   *auth.JWTService
	verifier     *auth.TelegramVerifier
	allowList    auth.AllowList
	localAdmin   bool
	log          *zap.Logger
}

func NewSessionHandlers(cmdHandler *command.Handler, queryHandler *query.Handler, cfg SessionConfig) *SessionHandlers {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &SessionHandlers{
		cmdHandler:   cmdHandler,
		queryHandler: queryHandler,
		jwtService:   cfg.JWTService,
		verifier:     cfg.Verifier,
		allowList:    cfg.AllowList,
		localAdmin:   cfg.LocalAdmin,
		log:          log,
	}
}

// Request/Response types

type OpenSessionRequest struct {
	InitData string `json:"initData"`
	Role     string `json:"role,omitempty"`
}

type RoleRequest struct {
	Role string `json:"role"`
}

type SessionResponse struct {
	readmodel.Session
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Open verifies mini-app init data and issues a session. A requested admin
// role is only honoured for users on the allow list.
func (h *SessionHandlers) Open(w http.ResponseWriter, r *http.Request) {
	var req OpenSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	var userID, username string
	var eligible bool
	switch {
	case req.InitData != "" && h.verifier != nil:
		data, err := h.verifier.Verify(req.InitData)
		if err != nil {
			h.log.Info("init data rejected", zap.Error(err), zap.String("ip", middleware.ClientIP(r)))
			respondJSONError(w, "invalid init data", http.StatusUnauthorized)
			return
		}
		userID = data.User.IDString()
		username = data.User.Username
		eligible = h.allowList.Contains(userID)
	case req.InitData == "" && h.localAdmin:
		userID, username, eligible = localUserID, localUsername, true
	default:
		respondJSONError(w, "init data required", http.StatusUnauthorized)
		return
	}

	if req.Role != "" {
		role, err := boutique.ParseRole(req.Role)
		if err != nil {
			respondJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		if role != boutique.RoleAdmin || eligible {
			if _, err := h.cmdHandler.SetRole(r.Context(), command.SetRole{Role: string(role), IsAdmin: eligible}); err != nil {
				h.log.Error("failed to set role", zap.Error(err))
				respondJSONError(w, "internal error", http.StatusInternalServerError)
				return
			}
		}
	}

	h.issue(w, r, h.queryHandler.Session(userID, username, eligible))
}

// Get returns the caller's session with the current store role.
func (h *SessionHandlers) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		respondJSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	respondJSON(w, http.StatusOK, h.queryHandler.Session(claims.UserID, claims.Username, claims.Admin))
}

// SetRole switches between the shopper and admin views and re-issues the
// token so admin routes see the new role.
func (h *SessionHandlers) SetRole(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		respondJSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req RoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	_, err := h.cmdHandler.SetRole(r.Context(), command.SetRole{Role: req.Role, IsAdmin: claims.Admin})
	switch {
	case errors.Is(err, boutique.ErrInvalidRole):
		respondJSONError(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, boutique.ErrForbidden):
		respondJSONError(w, err.Error(), http.StatusForbidden)
		return
	case err != nil:
		h.log.Error("failed to set role", zap.Error(err))
		respondJSONError(w, "internal error", http.StatusInternalServerError)
		return
	}

	h.issue(w, r, h.queryHandler.Session(claims.UserID, claims.Username, claims.Admin))
}

// Close drops the session cookie.
func (h *SessionHandlers) Close(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     "access_token",
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	w.WriteHeader(http.StatusNoContent)
}

// Helper methods

func (h *SessionHandlers) issue(w http.ResponseWriter, r *http.Request, session readmodel.Session) {
	token, expiresAt, err := h.jwtService.GenerateAccessToken(session.UserID, session.Username, session.Role, session.IsAdmin)
	if err != nil {
		h.log.Error("failed to sign token", zap.Error(err))
		respondJSONError(w, "internal error", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "access_token",
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})

	respondJSON(w, http.StatusOK, SessionResponse{Session: session, Token: token, ExpiresAt: expiresAt})
}
