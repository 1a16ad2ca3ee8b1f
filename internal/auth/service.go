package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/johnrirwin/channelfeed/internal/config"
)

// Service verifies bearer tokens issued for local accounts
type Service struct {
	config config.AuthConfig
}

// NewService creates a new auth service
func NewService(cfg config.AuthConfig) *Service {
	return &Service{config: cfg}
}

// Enabled reports whether a signing secret is configured. Without one every
// request is served as anonymous.
func (s *Service) Enabled() bool {
	return s.config.JWTSecret != ""
}

// ValidateAccessToken validates an HS256 access token and returns the
// numeric viewer id from its subject
func (s *Service) ValidateAccessToken(tokenString string) (int64, error) {
	if !s.Enabled() {
		return 0, &AuthError{Code: "auth_disabled", Message: "token verification is not configured"}
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.JWTSecret), nil
	},
		jwt.WithIssuer(s.config.JWTIssuer),
		jwt.WithAudience(s.config.JWTAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return 0, &AuthError{Code: "invalid_token", Message: "invalid or expired token"}
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return 0, &AuthError{Code: "invalid_token", Message: "invalid token subject"}
	}
	uid, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || uid <= 0 {
		return 0, &AuthError{Code: "invalid_token", Message: "invalid token subject"}
	}
	return uid, nil
}

// IssueAccessToken signs a token for uid. It backs local tooling and tests;
// production tokens come from the account service.
func (s *Service) IssueAccessToken(uid int64, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(uid, 10),
		Issuer:    s.config.JWTIssuer,
		Audience:  jwt.ClaimStrings{s.config.JWTAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// AuthError represents an authentication error
type AuthError struct {
	Code    string
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}
