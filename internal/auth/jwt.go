// Package auth verifies the bearer tokens issued by the session provider.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"grievance/backend/internal/apperrors"
	"grievance/backend/internal/config"
	"grievance/backend/internal/models"
)

// Identity is the authenticated caller of a request.
type Identity struct {
	UserID    uint        `json:"user_id"`
	Role      models.Role `json:"role"`
	OfficerID *uint       `json:"officer_id,omitempty"`
}

func (i Identity) IsAdmin() bool { return i.Role == models.RoleAdmin }

// Claims is the token payload. The subject holds the user id.
type Claims struct {
	Role      models.Role `json:"role"`
	OfficerID *uint       `json:"officer_id,omitempty"`
	jwt.RegisteredClaims
}

type Manager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewManager(cfg config.AuthConfig) *Manager {
	return &Manager{
		secret: []byte(cfg.JWTSecret),
		issuer: cfg.Issuer,
		ttl:    cfg.TokenTTL(),
		now:    time.Now,
	}
}

// WithClock replaces the time source.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Issue signs an HS256 token for id.
func (m *Manager) Issue(id Identity) (string, error) {
	if !id.Role.Valid() {
		return "", apperrors.NewValidationError(fmt.Sprintf("unknown role %q", id.Role))
	}
	if id.Role == models.RoleOfficer && id.OfficerID == nil {
		return "", apperrors.NewValidationError("officer tokens need an officer id")
	}
	now := m.now()
	claims := Claims{
		Role:      id.Role,
		OfficerID: id.OfficerID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(id.UserID), 10),
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Parse verifies token and returns its identity. Every failure is an
// unauthorized AppError.
func (m *Manager) Parse(token string) (Identity, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, apperrors.NewUnauthorizedError("token expired")
		}
		return Identity{}, apperrors.NewUnauthorizedError("invalid token", err.Error())
	}

	uid, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || uid == 0 {
		return Identity{}, apperrors.NewUnauthorizedError("invalid token subject")
	}
	if !claims.Role.Valid() {
		return Identity{}, apperrors.NewUnauthorizedError("invalid token role")
	}
	if claims.Role == models.RoleOfficer && claims.OfficerID == nil {
		return Identity{}, apperrors.NewUnauthorizedError("officer token has no officer id")
	}
	return Identity{UserID: uint(uid), Role: claims.Role, OfficerID: claims.OfficerID}, nil
}
