package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/neomorfeo/workshops/internal/domain"
)

// TokenVerifier resolves a bearer token into the caller's identity.
type TokenVerifier interface {
	Verify(token string) (domain.Identity, error)
}

type contextKeyIdentity struct{}

// WithIdentity returns a copy of ctx carrying who.
func WithIdentity(ctx context.Context, who domain.Identity) context.Context {
	return context.WithValue(ctx, contextKeyIdentity{}, who)
}

// IdentityFrom returns the caller stored by the Identity middleware, or
// domain.Anonymous.
func IdentityFrom(ctx context.Context) domain.Identity {
	who, ok := ctx.Value(contextKeyIdentity{}).(domain.Identity)
	if !ok {
		return domain.Anonymous
	}
	return who
}

// Identity resolves the caller once per request. A request without an
// Authorization header continues as anonymous; a token that fails
// verification is rejected with 401 before reaching any operation.
func Identity(verifier TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, domain.Anonymous)))
				return
			}

			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - malformed authorization header",
					"request_id", middleware.GetReqID(ctx),
				)
				writeUnauthorized(w, "Authorization header must use the Bearer scheme")
				return
			}

			who, err := verifier.Verify(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", middleware.GetReqID(ctx),
				)
				writeUnauthorized(w, "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, who)))
		})
	}
}

// writeUnauthorized writes a problem document shaped like huma's errors.
func writeUnauthorized(w http.ResponseWriter, detail string) {
	body, err := json.Marshal(&huma.ErrorModel{
		Title:  http.StatusText(http.StatusUnauthorized),
		Status: http.StatusUnauthorized,
		Detail: detail,
		Errors: []*huma.ErrorDetail{{
			Location: "outcome",
			Value:    domain.OutcomeUnauthenticated,
		}},
	})
	if err != nil {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write(body)
}
