// Package auth issues and verifies the bearer tokens that carry a caller's
// identity, and stores the verified identity on the request context.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/teastall/teastall/config"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// ErrNoIdentity is returned when a request carries no verified caller.
var ErrNoIdentity = errors.New("auth: no caller identity")

// Claims holds the typed JWT payload. The subject is the external identity
// provider's user id.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Identity is the verified caller attached to a request.
type Identity struct {
	UserID string
	Email  string
	Role   string
}

// IsAdmin reports whether the caller holds the admin role.
func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

func secret() []byte {
	return []byte(config.JWTSecret())
}

// GenerateToken creates a signed token for userID valid for ttl.
func GenerateToken(userID, email, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret())
}

// ValidateToken parses and validates a token string.
func ValidateToken(t string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(t, &Claims{}, func(tok *jwt.Token) (interface{}, error) {
		return secret(), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}

	return claims, nil
}

// HashSecret returns a bcrypt hash of a plain-text secret.
func HashSecret(plain string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckSecret compares a bcrypt hash against the plain-text candidate.
func CheckSecret(hash, plain string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

type ctxKey struct{}

// WithIdentity stores id on ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the caller stored by WithIdentity.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok && id.UserID != ""
}
