// Package auth covers credential handling for the service: JWT session
// tokens, bcrypt password storage, temporary password issuance, and the
// registration-time password and email policies.
package auth

import (
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/skillsenselab/tubescribe/internal/apperr"
	"github.com/skillsenselab/tubescribe/internal/config"
)

// Claims is the JWT payload issued at login.
type Claims struct {
	gojwt.RegisteredClaims
	UserID       uint   `json:"user_id"`
	Email        string `json:"email"`
	IsAdmin      bool   `json:"is_admin"`
	TempPassword bool   `json:"temp_password"`
}

// TokenService signs and verifies session tokens with HMAC-SHA256.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService builds a token service from auth configuration.
func NewTokenService(cfg config.AuthConfig) *TokenService {
	return &TokenService{
		secret: []byte(cfg.JWTSecret),
		ttl:    cfg.TokenTTL,
	}
}

// Generate issues a signed token for the given user.
func (s *TokenService) Generate(userID uint, email string, isAdmin, tempPassword bool) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: gojwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", userID),
			IssuedAt:  gojwt.NewNumericDate(now),
			ExpiresAt: gojwt.NewNumericDate(now.Add(s.ttl)),
		},
		UserID:       userID,
		Email:        email,
		IsAdmin:      isAdmin,
		TempPassword: tempPassword,
	}
	token := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies a token string and returns its claims.
func (s *TokenService) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := gojwt.ParseWithClaims(tokenString, claims, s.keyFunc,
		gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, apperr.Unauthorized("Invalid or expired token.").WithCause(err)
	}
	if !token.Valid {
		return nil, apperr.Unauthorized("Invalid or expired token.")
	}
	return claims, nil
}

func (s *TokenService) keyFunc(token *gojwt.Token) (interface{}, error) {
	if token.Method.Alg() != gojwt.SigningMethodHS256.Alg() {
		return nil, fmt.Errorf("auth: unexpected signing method: %s", token.Method.Alg())
	}
	return s.secret, nil
}
