// Package bootstrap wires the runtime dependencies shared by the server and
// the command line tools.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"inkwell/internal/cache"
	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/models"
	"inkwell/internal/seed"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// InitRuntime connects to DB and Redis, then applies the development
// conveniences: the root admin account and an optional demo dataset.
func InitRuntime(cfg *config.Config) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Init Redis (may result in nil client if unreachable)
	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if err := Prepare(context.Background(), cfg, db); err != nil {
		return nil, nil, err
	}
	return db, r, nil
}

// Prepare runs the development-only bootstrap steps against db.
func Prepare(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	if err := ensureDevRootAdmin(cfg, db); err != nil {
		return fmt.Errorf("failed to bootstrap development root admin: %w", err)
	}
	if err := seedEmptyDatabase(ctx, cfg, db); err != nil {
		return fmt.Errorf("failed to seed demo data: %w", err)
	}
	return nil
}

func isDevelopment(cfg *config.Config) bool {
	return cfg != nil && strings.EqualFold(cfg.Env, "development")
}

// seedEmptyDatabase applies DEV_SEED_PRESET when no posts exist yet.
func seedEmptyDatabase(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	if !isDevelopment(cfg) || db == nil || cfg.DevSeedPreset == "" {
		return nil
	}
	var posts int64
	if err := db.WithContext(ctx).Model(&models.Post{}).Count(&posts).Error; err != nil {
		return err
	}
	if posts > 0 {
		return nil
	}
	opts, err := seed.Preset(cfg.DevSeedPreset, "")
	if err != nil {
		return err
	}
	_, err = seed.NewSeeder(db, opts).Run(ctx)
	return err
}

func ensureDevRootAdmin(cfg *config.Config, db *gorm.DB) error {
	if db == nil || !isDevelopment(cfg) || !cfg.DevBootstrapRoot {
		return nil
	}

	username := strings.TrimSpace(cfg.DevRootUsername)
	if username == "" {
		username = "inkwell_root"
	}
	email := strings.TrimSpace(strings.ToLower(cfg.DevRootEmail))
	if email == "" {
		email = "root@inkwell.local"
	}
	password := cfg.DevRootPassword
	if password == "" {
		return fmt.Errorf("DEV_ROOT_PASSWORD must be set when DEV_BOOTSTRAP_ROOT is enabled")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash root password: %w", err)
	}

	if err := db.Transaction(func(tx *gorm.DB) error {
		var root models.User
		findErr := tx.First(&root, 1).Error
		switch {
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			root = models.User{
				ID:            1,
				Username:      username,
				Email:         email,
				Password:      string(hashedPassword),
				IsAdmin:       true,
				EmailVerified: true,
				BetaApproved:  true,
			}
			if err := tx.Create(&root).Error; err != nil {
				return err
			}
		case findErr != nil:
			return findErr
		default:
			updates := map[string]any{"is_admin": true, "beta_approved": true}
			if cfg.DevRootForceCredentials {
				updates["username"] = username
				updates["email"] = email
				updates["password"] = string(hashedPassword)
			}
			if err := tx.Model(&models.User{}).Where("id = ?", 1).Updates(updates).Error; err != nil {
				return err
			}
		}

		// Explicit ID insertion leaves the postgres sequence behind.
		if tx.Dialector.Name() == "postgres" {
			if err := tx.Exec(`
				SELECT setval(
					pg_get_serial_sequence('users', 'id'),
					GREATEST((SELECT COALESCE(MAX(id), 1) FROM users), 1),
					true
				)
			`).Error; err != nil {
				return fmt.Errorf("failed to reset users sequence: %w", err)
			}
		}

		return nil
	}); err != nil {
		return err
	}

	log.Printf("development root admin bootstrap ensured for user ID 1 (%s)", email)
	return nil
}
