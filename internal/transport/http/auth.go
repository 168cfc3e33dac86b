package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"notes-quiz-service/internal/domain"
	"notes-quiz-service/internal/logger"

	"github.com/golang-jwt/jwt/v5"
)

const (
	anonymousOwner = "anonymous"
	clientIDHeader = "X-Client-ID"
	maxClientID    = 128
)

// IdentityClaims is the ID token shape issued by the identity provider.
type IdentityClaims struct {
	domain.Identity
	jwt.RegisteredClaims
}

type ctxKey int

const (
	ownerKey ctxKey = iota
	identityKey
)

// Authenticator resolves the caller's identity and owner for every request.
type Authenticator struct {
	secret          []byte
	issuer          string
	requireVerified bool
	log             *logger.Logger
}

func NewAuthenticator(secret, issuer string, requireVerified bool, log *logger.Logger) *Authenticator {
	if log == nil {
		log = logger.Nop()
	}
	return &Authenticator{secret: []byte(secret), issuer: issuer, requireVerified: requireVerified, log: log}
}

// Middleware verifies an optional bearer token and scopes the request to an owner:
// the verified email, else the client ID, else the shared anonymous workspace.
// Browsers cannot set headers on WebSocket upgrades, so token and clientId query
// parameters are accepted too.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var identity *domain.Identity
		if raw := bearerToken(r); raw != "" && len(a.secret) > 0 {
			id, err := a.Verify(raw)
			if err != nil {
				a.log.Warn("rejected identity token", "error", err, "path", r.URL.Path)
				writeError(w, a.log, domain.ErrUnauthenticated)
				return
			}
			identity = id
			ctx = context.WithValue(ctx, identityKey, identity)
		}
		ctx = context.WithValue(ctx, ownerKey, resolveOwner(r, identity))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireVerified guards routes that need a verified email when the service is configured so.
func (a *Authenticator) RequireVerified(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if a.requireVerified {
			id := IdentityFrom(r.Context())
			if id == nil {
				writeError(w, a.log, domain.ErrUnauthenticated)
				return
			}
			if !id.EmailVerified {
				writeError(w, a.log, domain.ErrEmailNotVerified)
				return
			}
		}
		next(w, r)
	}
}

// Verify checks an HS256 ID token and returns its identity claims.
func (a *Authenticator) Verify(raw string) (*domain.Identity, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	claims := &IdentityClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	id := claims.Identity
	id.Email = strings.TrimSpace(id.Email)
	return &id, nil
}

// SignIdentity issues an HS256 ID token for id; used for local development and tests.
func SignIdentity(secret, issuer string, id domain.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := IdentityClaims{
		Identity: id,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Email,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// OwnerFrom returns the workspace owner resolved by Middleware.
func OwnerFrom(ctx context.Context) string {
	if owner, ok := ctx.Value(ownerKey).(string); ok && owner != "" {
		return owner
	}
	return anonymousOwner
}

// IdentityFrom returns the verified identity, or nil for guests.
func IdentityFrom(ctx context.Context) *domain.Identity {
	id, _ := ctx.Value(identityKey).(*domain.Identity)
	return id
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if scheme, token, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

func resolveOwner(r *http.Request, id *domain.Identity) string {
	if id != nil && id.Email != "" {
		return strings.ToLower(id.Email)
	}
	client := strings.TrimSpace(r.Header.Get(clientIDHeader))
	if client == "" {
		client = strings.TrimSpace(r.URL.Query().Get("clientId"))
	}
	if client == "" {
		return anonymousOwner
	}
	if len(client) > maxClientID {
		client = client[:maxClientID]
	}
	return "client-" + client
}
