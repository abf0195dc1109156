package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/linkforge/linkforge/internal/httpx"
)

// Principal identifies the authenticated caller of a request.
type Principal struct {
	UserID uuid.UUID
	Email  string
}

// PrincipalResolver turns a raw bearer token into a Principal. Implementations
// must verify the token and confirm the subject still resolves to a live user;
// any failure collapses to an Unauthorized-kind error.
type PrincipalResolver interface {
	ResolvePrincipal(ctx context.Context, token string) (Principal, error)
}

type contextKey string

const principalContextKey contextKey = "principal"

// PrincipalFrom extracts the authenticated principal from context.
// The second return is false for anonymous requests.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey).(Principal)
	return p, ok
}

// WithPrincipal attaches a principal to the context. Exposed for tests.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// header. Returns empty string when absent or malformed.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// Require returns middleware that rejects requests without a valid bearer
// token. On success the resolved principal is placed in the request context.
func Require(resolver PrincipalResolver, logger *slog.Logger) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				httpx.WriteError(w, http.StatusUnauthorized, "unauthorized",
					"missing or malformed authorization header", nil)
				return
			}

			principal, err := resolver.ResolvePrincipal(r.Context(), token)
			if err != nil {
				logger.WarnContext(r.Context(), "token rejected",
					"request_id", httpx.GetRequestID(r.Context()),
					"error", err.Error(),
				)
				httpx.WriteError(w, http.StatusUnauthorized, "unauthorized",
					"invalid or expired token", nil)
				return
			}

			ctx := WithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Optional returns middleware that resolves a bearer token when one is
// present but lets anonymous requests through untouched. An invalid token is
// treated the same as no token; the handler sees an anonymous request.
func Optional(resolver PrincipalResolver, logger *slog.Logger) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			principal, err := resolver.ResolvePrincipal(r.Context(), token)
			if err != nil {
				logger.DebugContext(r.Context(), "ignoring invalid optional token",
					"request_id", httpx.GetRequestID(r.Context()),
					"error", err.Error(),
				)
				next.ServeHTTP(w, r)
				return
			}

			ctx := WithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
