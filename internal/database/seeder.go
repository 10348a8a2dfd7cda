// server/internal/database/seeder.go
package database

import (
	"context"
	"errors"
	"time"

	"recycle-pickup-api-server/config"
	"recycle-pickup-api-server/internal/auth"
	"recycle-pickup-api-server/internal/models"
	"recycle-pickup-api-server/internal/store"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// UserStore is the part of the store the seeder needs.
type UserStore interface {
	CreateUser(ctx context.Context, u models.User) error
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
}

// SeedAdmin creates the bootstrap admin account unless one with the same
// email already exists.
func SeedAdmin(ctx context.Context, users UserStore, cfg config.AdminConfig, log logrus.FieldLogger) error {
	if cfg.Email == "" || cfg.Password == "" {
		log.Warn("Admin credentials not configured. Seeding skipped.")
		return nil
	}

	_, err := users.GetUserByEmail(ctx, cfg.Email)
	if err == nil {
		log.Info("Admin already exists. Seeding skipped.")
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	log.Info("Admin not found. Seeding...")
	hashedPassword, err := auth.HashPassword(cfg.Password)
	if err != nil {
		return err
	}

	admin := models.User{
		ID:        "admin-" + uuid.New().String()[:8],
		Email:     cfg.Email,
		Name:      cfg.Name,
		Password:  hashedPassword,
		Role:      models.RoleAdmin,
		Status:    "active",
		CreatedAt: time.Now().UTC(),
	}
	if err := users.CreateUser(ctx, admin); err != nil {
		// Another instance seeded it first.
		if errors.Is(err, store.ErrDuplicate) {
			return nil
		}
		return err
	}

	log.WithField("email", cfg.Email).Info("Admin seeded successfully.")
	return nil
}
