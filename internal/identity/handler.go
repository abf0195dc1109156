package identity

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/linkforge/linkforge/internal/auth"
	"github.com/linkforge/linkforge/internal/errx"
	"github.com/linkforge/linkforge/internal/httpx"
)

// credentialsRequest is the JSON body for register and login.
type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// authResponse is the JSON response for successful register and login.
type authResponse struct {
	AccessToken string  `json:"accessToken"`
	TokenType   string  `json:"tokenType"`
	ExpiresIn   string  `json:"expiresIn"`
	User        Profile `json:"user"`
}

// Handler provides HTTP handlers for the identity service.
type Handler struct {
	service  Service
	logger   *slog.Logger
	tokenTTL time.Duration
}

// HandlerConfig holds configuration for the handler.
type HandlerConfig struct {
	Service  Service
	Logger   *slog.Logger
	TokenTTL time.Duration
}

// NewHandler creates a new Handler instance.
func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		service:  cfg.Service,
		logger:   logger,
		tokenTTL: cfg.TokenTTL,
	}
}

// Register handles POST /auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := httpx.DecodeJSON[credentialsRequest](r)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}

	result, err := h.service.Register(ctx, Credentials{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.logError(r, "register failed", err)
		httpx.WriteKindError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, h.authResponse(result))
}

// Login handles POST /auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := httpx.DecodeJSON[credentialsRequest](r)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}

	result, err := h.service.Login(ctx, Credentials{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.logError(r, "login failed", err)
		httpx.WriteKindError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, h.authResponse(result))
}

// Me handles GET /auth/me. It expects auth.Require to have run.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, ok := auth.PrincipalFrom(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "authentication required", nil)
		return
	}

	user, err := h.service.Me(ctx, principal.UserID)
	if err != nil {
		h.logError(r, "profile lookup failed", err)
		httpx.WriteKindError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, user.Profile())
}

func (h *Handler) authResponse(result AuthResult) authResponse {
	return authResponse{
		AccessToken: result.Token,
		TokenType:   "Bearer",
		ExpiresIn:   formatTTL(h.tokenTTL),
		User:        result.User.Profile(),
	}
}

func (h *Handler) logError(r *http.Request, msg string, err error) {
	kind := errx.KindOf(err)

	attrs := []any{
		"request_id", httpx.GetRequestID(r.Context()),
		"error", err.Error(),
		"error_kind", kind,
		"operation", errx.OpOf(err),
	}

	switch kind {
	case errx.Unavailable, errx.Internal, errx.Unknown:
		h.logger.ErrorContext(r.Context(), msg, attrs...)
	default:
		h.logger.WarnContext(r.Context(), msg, attrs...)
	}
}

// formatTTL renders whole-hour lifetimes as "24h" instead of "24h0m0s".
func formatTTL(d time.Duration) string {
	if d%time.Hour == 0 {
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
	return d.String()
}
