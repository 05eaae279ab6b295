// Package token implements the issue/verify/blacklist token capability on
// top of go-chi/jwtauth. Revoked token ids stay blacklisted until the
// token would have expired anyway.
package token

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/jwtauth"
	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/jwt"

	"github.com/pubhub/pubhub/pkg/pubhub"
)

// ErrInvalidToken indicates a token that failed to decode or validate.
var ErrInvalidToken = errors.New("invalid token")

type ctxKey int

const userIDKey ctxKey = 0

// Issuer issues and revokes signed tokens and provides the HTTP
// verification middleware.
type Issuer struct {
	ja         *jwtauth.JWTAuth
	blacklist  Blacklist
	accessTTL  time.Duration
	refreshTTL time.Duration
	logger     *slog.Logger
}

// NewIssuer creates an issuer with an HS256 key.
func NewIssuer(secret []byte, blacklist Blacklist, accessTTL, refreshTTL time.Duration, logger *slog.Logger) *Issuer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Issuer{
		ja:         jwtauth.New("HS256", secret, nil),
		blacklist:  blacklist,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		logger:     logger,
	}
}

// Issue creates an access/refresh token pair for a user.
func (i *Issuer) Issue(ctx context.Context, userID int64, username string) (pubhub.TokenPair, error) {
	access, err := i.encode(userID, username, "access", i.accessTTL)
	if err != nil {
		return pubhub.TokenPair{}, err
	}
	refresh, err := i.encode(userID, username, "refresh", i.refreshTTL)
	if err != nil {
		return pubhub.TokenPair{}, err
	}
	return pubhub.TokenPair{Access: access, Refresh: refresh}, nil
}

func (i *Issuer) encode(userID int64, username, tokenType string, ttl time.Duration) (string, error) {
	claims := map[string]interface{}{
		"user_id":    userID,
		"username":   username,
		"token_type": tokenType,
		"jti":        uuid.NewString(),
	}
	jwtauth.SetIssuedNow(claims)
	jwtauth.SetExpiryIn(claims, ttl)

	_, tokenString, err := i.ja.Encode(claims)
	return tokenString, err
}

// Revoke blacklists the token's id for the remainder of its lifetime.
func (i *Issuer) Revoke(ctx context.Context, tokenString string) error {
	t, err := i.ja.Decode(tokenString)
	if err != nil || jwt.Validate(t) != nil {
		return ErrInvalidToken
	}
	jti := t.JwtID()
	if jti == "" {
		return ErrInvalidToken
	}
	return i.blacklist.Revoke(ctx, jti, t.Expiration())
}

// Verifier parses a token from the Authorization header into the request
// context. Pair it with Authenticator.
func (i *Issuer) Verifier() func(http.Handler) http.Handler {
	return jwtauth.Verifier(i.ja)
}

// Authenticator rejects requests without a valid, non-blacklisted token
// and stores the authenticated user id in the context. Blacklist lookup
// failures fail closed.
func (i *Issuer) Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t, claims, err := jwtauth.FromContext(r.Context())
		if err != nil || t == nil || jwt.Validate(t) != nil {
			unauthorized(w)
			return
		}

		if jti := t.JwtID(); jti != "" {
			revoked, err := i.blacklist.Revoked(r.Context(), jti)
			if err != nil {
				i.logger.Error("blacklist lookup failed", "error", err)
				unauthorized(w)
				return
			}
			if revoked {
				unauthorized(w)
				return
			}
		}

		userID, ok := userIDClaim(claims)
		if !ok {
			unauthorized(w)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}

func unauthorized(w http.ResponseWriter) {
	http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
}

// userIDClaim tolerates the numeric representations the JWT round trip
// can produce.
func userIDClaim(claims map[string]interface{}) (int64, bool) {
	switch v := claims["user_id"].(type) {
	case int64:
		return v, true
	case float64:
		return int64(v), true
	}
	return 0, false
}

// WithUserID stores an authenticated user id in the context.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns the authenticated user id, if any.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(userIDKey).(int64)
	return userID, ok
}
