// Package auth issues and validates admin API tokens. The admin credential
// is a bcrypt hash stored in settings, seeded by cmd/admin_seed.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"refpay/internal/models"
	"refpay/internal/repositories"
)

// ErrInvalidCredentials is returned for a wrong password or a missing admin
// credential.
var ErrInvalidCredentials = errors.New("invalid credentials")

const tokenTTL = 12 * time.Hour

// Service handles admin login.
type Service interface {
	Login(ctx context.Context, password string) (string, error)
}

type service struct {
	settings  *repositories.SettingsRepository
	jwtSecret []byte
}

// NewService creates a new auth service.
func NewService(settings *repositories.SettingsRepository, jwtSecret string) Service {
	if settings == nil {
		panic("settings repository is required")
	}
	return &service{settings: settings, jwtSecret: []byte(jwtSecret)}
}

func (s *service) Login(ctx context.Context, password string) (string, error) {
	hash, err := s.settings.Get(ctx, models.SettingAdminPasswordHash)
	if err != nil {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	claims := &models.AdminClaims{
		Subject: "admin",
		Role:    "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

// HashPassword produces the bcrypt hash stored in settings.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
