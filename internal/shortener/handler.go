package shortener

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/linkforge/linkforge/internal/auth"
	"github.com/linkforge/linkforge/internal/errx"
	"github.com/linkforge/linkforge/internal/httpx"
)

// shortenRequest is the JSON body for creating and updating links.
type shortenRequest struct {
	OriginalURL string `json:"originalUrl"`
}

// createResponse is the JSON response for a newly created link.
type createResponse struct {
	ShortCode   string `json:"shortCode"`
	ShortURL    string `json:"shortUrl"`
	OriginalURL string `json:"originalUrl"`
}

// infoResponse is the JSON response for link metadata.
type infoResponse struct {
	ShortCode   string    `json:"shortCode"`
	OriginalURL string    `json:"originalUrl"`
	ShortURL    string    `json:"shortUrl"`
	ClickCount  int64     `json:"clickCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ownedLinkResponse is the JSON shape for links returned to their owner.
type ownedLinkResponse struct {
	ID          uuid.UUID `json:"id"`
	ShortCode   string    `json:"shortCode"`
	OriginalURL string    `json:"originalUrl"`
	ShortURL    string    `json:"shortUrl"`
	ClickCount  int64     `json:"clickCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Handler provides HTTP handlers for the URL shortener service.
type Handler struct {
	service Service
	logger  *slog.Logger
	baseURL string
}

// HandlerConfig holds configuration for the handler.
type HandlerConfig struct {
	Service Service
	Logger  *slog.Logger
	BaseURL string // Base URL for constructing short URLs (e.g., "https://lfge.io")
}

// NewHandler creates a new Handler instance.
func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		service: cfg.Service,
		logger:  logger,
		baseURL: cfg.BaseURL,
	}
}

// Create handles POST /shorten. Authentication is optional: a resolved
// principal becomes the link owner, otherwise the link is anonymous.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := httpx.DecodeJSON[shortenRequest](r)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}

	var ownerID *uuid.UUID
	if principal, ok := auth.PrincipalFrom(ctx); ok {
		ownerID = &principal.UserID
	}

	link, err := h.service.Create(ctx, req.OriginalURL, ownerID)
	if err != nil {
		h.logError(r, "link creation failed", err)
		httpx.WriteKindError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "link created",
		"request_id", httpx.GetRequestID(ctx),
		"link_id", link.ID.String(),
		"code", link.Code,
		"anonymous", ownerID == nil,
	)

	httpx.WriteJSON(w, http.StatusCreated, createResponse{
		ShortCode:   link.Code,
		ShortURL:    h.shortURL(link.Code),
		OriginalURL: link.DestinationURL,
	})
}

// Redirect handles GET /{code}.
func (h *Handler) Redirect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	code := r.PathValue("code")
	destination, err := h.service.Resolve(ctx, code)
	if err != nil {
		h.logError(r, "resolve failed", err)
		httpx.WriteKindError(w, err)
		return
	}

	http.Redirect(w, r, destination, http.StatusFound)
}

// Info handles GET /info/{code}.
func (h *Handler) Info(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	code := r.PathValue("code")
	link, err := h.service.Info(ctx, code)
	if err != nil {
		h.logError(r, "info lookup failed", err)
		httpx.WriteKindError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, infoResponse{
		ShortCode:   link.Code,
		OriginalURL: link.DestinationURL,
		ShortURL:    h.shortURL(link.Code),
		ClickCount:  link.ClickCount,
		CreatedAt:   link.CreatedAt,
		UpdatedAt:   link.UpdatedAt,
	})
}

// ListOwned handles GET /my-urls. It expects auth.Require to have run.
func (h *Handler) ListOwned(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, ok := auth.PrincipalFrom(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "authentication required", nil)
		return
	}

	links, err := h.service.ListOwned(ctx, principal.UserID)
	if err != nil {
		h.logError(r, "list failed", err)
		httpx.WriteKindError(w, err)
		return
	}

	resp := make([]ownedLinkResponse, 0, len(links))
	for _, link := range links {
		resp = append(resp, h.ownedLink(link))
	}

	httpx.WriteJSON(w, http.StatusOK, resp)
}

// UpdateOwned handles PUT /my-urls/{id}.
func (h *Handler) UpdateOwned(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, ok := auth.PrincipalFrom(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "authentication required", nil)
		return
	}

	linkID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		// An unparsable id cannot name an existing link.
		httpx.WriteError(w, http.StatusNotFound, "not_found", "link not found", nil)
		return
	}

	req, err := httpx.DecodeJSON[shortenRequest](r)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}

	link, err := h.service.UpdateOwned(ctx, principal.UserID, linkID, req.OriginalURL)
	if err != nil {
		h.logError(r, "update failed", err)
		httpx.WriteKindError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, h.ownedLink(link))
}

// DeleteOwned handles DELETE /my-urls/{id}.
func (h *Handler) DeleteOwned(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, ok := auth.PrincipalFrom(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "authentication required", nil)
		return
	}

	linkID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httpx.WriteError(w, http.StatusNotFound, "not_found", "link not found", nil)
		return
	}

	if err := h.service.DeleteOwned(ctx, principal.UserID, linkID); err != nil {
		h.logError(r, "delete failed", err)
		httpx.WriteKindError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "URL deleted successfully",
	})
}

func (h *Handler) ownedLink(link ShortLink) ownedLinkResponse {
	return ownedLinkResponse{
		ID:          link.ID,
		ShortCode:   link.Code,
		OriginalURL: link.DestinationURL,
		ShortURL:    h.shortURL(link.Code),
		ClickCount:  link.ClickCount,
		CreatedAt:   link.CreatedAt,
		UpdatedAt:   link.UpdatedAt,
	}
}

func (h *Handler) shortURL(code string) string {
	return fmt.Sprintf("%s/%s", h.baseURL, code)
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
