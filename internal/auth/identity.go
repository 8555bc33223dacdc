// Package auth resolves the caller's identity from trusted gateway headers.
//
// TRUST BOUNDARY:
// The WeChat cloud gateway terminates authentication and injects the
// caller's openid (and optionally unionid/appid) into request headers
// before the request reaches this service. We take those headers at face
// value — there is nothing to verify locally, and re-implementing
// authentication here would only duplicate the gateway. Anything that can
// reach this service without going through the gateway can impersonate
// anyone; deployment topology, not this package, prevents that.
package auth

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/sakif/sr-companion/internal/apperror"
)

// Trusted headers injected by the gateway.
const (
	HeaderOpenID  = "X-Wx-Openid"
	HeaderUnionID = "X-Wx-Unionid"
	HeaderAppID   = "X-Wx-Appid"
)

// Development-only override headers, honoured by DevIdentity.
const (
	HeaderMockOpenID  = "X-Mock-Openid"
	HeaderMockUnionID = "X-Mock-Unionid"
)

// Session is the resolved caller identity for one request.
type Session struct {
	OpenID  string
	UnionID string
	AppID   string
}

// contextKey is unexported so only this package can read or write the
// session in a request context.
type contextKey struct{}

var sessionKey contextKey

// WithSession returns a context carrying the session.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// SessionFromContext returns the resolved session, if any.
func SessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey).(Session)
	return s, ok && s.OpenID != ""
}

// IdentityFromContext returns the caller's openid, or "" for anonymous
// requests.
func IdentityFromContext(ctx context.Context) string {
	s, ok := SessionFromContext(ctx)
	if !ok {
		return ""
	}
	return s.OpenID
}

// errMissingIdentity is what every anonymous request to a gated route
// fails with. The envelope is written here rather than in the handler
// layer because middleware runs before any handler exists.
var errMissingIdentity = apperror.Unauthenticated("MISSING_OPENID",
	"missing user identity, request must come through the gateway")

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   errMissingIdentity.Message,
		"code":    errMissingIdentity.Code,
	})
}

// resolve reads the trusted headers into the request context. Resolution
// is idempotent: when an earlier middleware (DevIdentity, or a test)
// already placed a session in the context, the headers are not re-read.
func resolve(r *http.Request) *http.Request {
	if _, ok := SessionFromContext(r.Context()); ok {
		return r
	}
	openid := r.Header.Get(HeaderOpenID)
	if openid == "" {
		return r
	}
	s := Session{
		OpenID:  openid,
		UnionID: r.Header.Get(HeaderUnionID),
		AppID:   r.Header.Get(HeaderAppID),
	}
	return r.WithContext(WithSession(r.Context(), s))
}

// RequireIdentity enforces a resolved identity: requests without one are
// rejected with 401 and the stable MISSING_OPENID code.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r = resolve(r)
		if _, ok := SessionFromContext(r.Context()); !ok {
			writeUnauthorized(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// OptionalIdentity resolves the identity when present but never blocks.
// Downstream handlers treat a missing session as anonymous.
func OptionalIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, resolve(r))
	})
}

// DevIdentity injects a fixed placeholder identity when no trusted header
// is present, so the API can be exercised locally without the gateway.
// The middleware is only ever wired when the process runs in the
// development configuration; fallback is the configured placeholder
// openid. Mock headers allow tests to pick a different identity.
func DevIdentity(fallback string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r = resolve(r)
			if _, ok := SessionFromContext(r.Context()); !ok {
				s := Session{
					OpenID:  fallback,
					UnionID: r.Header.Get(HeaderMockUnionID),
				}
				if mock := r.Header.Get(HeaderMockOpenID); mock != "" {
					s.OpenID = mock
				}
				r = r.WithContext(WithSession(r.Context(), s))
			}
			next.ServeHTTP(w, r)
		})
	}
}
