package adminapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Auth errors, adapted from the teacher's JWT service.
var (
	ErrInvalidToken        = errors.New("adminapi: invalid token")
	ErrExpiredToken        = errors.New("adminapi: token has expired")
	ErrInvalidSecretLength = errors.New("adminapi: JWT secret must be at least 32 characters")
)

// claims is the minimal claim set a diagnostic-API bearer token carries:
// there's a single operator role, no refresh tokens, no groups.
type claims struct {
	jwt.RegisteredClaims
}

// JWTService signs and verifies the diagnostic HTTP API's bearer tokens.
type JWTService struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewJWTService returns a JWTService. secret must be at least 32 bytes.
func NewJWTService(secret string, ttl time.Duration) (*JWTService, error) {
	if len(secret) < 32 {
		return nil, ErrInvalidSecretLength
	}
	if ttl == 0 {
		ttl = time.Hour
	}
	return &JWTService{secret: []byte(secret), issuer: "icomsim-adminapi", ttl: ttl}, nil
}

// IssueToken signs a new bearer token for subject.
func (s *JWTService) IssueToken(subject string) (string, error) {
	now := time.Now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("adminapi: sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and verifies tokenString.
func (s *JWTService) ValidateToken(tokenString string) (*claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return c, nil
}

// requireAuth guards a handler with bearer-token verification against svc.
func requireAuth(svc *JWTService, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenString == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		if _, err := svc.ValidateToken(tokenString); err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		next(w, r)
	}
}
