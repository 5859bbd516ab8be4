package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lessonlift/backend/internal/domain"
)

// AuthService verifies access tokens issued by the hosted auth platform.
// It never issues tokens itself.
type AuthService struct {
	jwtSecret   []byte
	audience    string
	adminEmails map[string]struct{}
	leeway      time.Duration
}

// NewAuthService creates an AuthService. audience may be empty to skip the
// aud check. adminEmails grants the admin role in addition to the token's
// app_metadata.role claim.
func NewAuthService(jwtSecret, audience string, adminEmails []string) *AuthService {
	admins := make(map[string]struct{}, len(adminEmails))
	for _, e := range adminEmails {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			admins[e] = struct{}{}
		}
	}
	return &AuthService{
		jwtSecret:   []byte(jwtSecret),
		audience:    audience,
		adminEmails: admins,
		leeway:      30 * time.Second,
	}
}

type accessClaims struct {
	Email       string `json:"email"`
	Role        string `json:"role"`
	AppMetadata struct {
		Role string `json:"role"`
	} `json:"app_metadata"`
	jwt.RegisteredClaims
}

// VerifyToken validates a bearer token and returns the caller's session.
func (s *AuthService) VerifyToken(tokenStr string) (*domain.Session, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(s.leeway),
	}
	if s.audience != "" {
		opts = append(opts, jwt.WithAudience(s.audience))
	}

	var claims accessClaims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return nil, domain.ErrUnauthorized("Authentication failed. Please log in again.")
	}
	if claims.Subject == "" || claims.Role == "anon" {
		return nil, domain.ErrUnauthorized("Authentication failed. Please log in again.")
	}

	role := domain.RoleUser
	if claims.AppMetadata.Role == domain.RoleAdmin {
		role = domain.RoleAdmin
	}
	if _, ok := s.adminEmails[strings.ToLower(claims.Email)]; ok {
		role = domain.RoleAdmin
	}

	return &domain.Session{
		UserID: claims.Subject,
		Email:  claims.Email,
		Role:   role,
	}, nil
}
