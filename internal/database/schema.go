package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"inkwell/internal/config"
	"inkwell/internal/middleware"

	"gorm.io/gorm"
)

// Schema modes accepted by DB_SCHEMA_MODE. Empty means hybrid.
const (
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

// SchemaStatus is the dry-run report behind `migrate status`.
type SchemaStatus struct {
	Mode               string
	Environment        string
	WillRunSQL         bool
	WillRunAutoMigrate bool
	AppliedVersions    []int
	PendingMigrations  []Migration
	// Applied migrations whose embedded script changed since they ran.
	EditedMigrations []string
}

// schemaPlan is DB_SCHEMA_MODE resolved against the deploy environment.
type schemaPlan struct {
	mode        string
	sql         bool
	autoMigrate bool
	destructive bool
}

// sharedEnv reports whether env hosts real publisher data.
func sharedEnv(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "prod", "staging", "stage":
		return true
	}
	return false
}

func planSchema(cfg *config.Config) (schemaPlan, error) {
	plan := schemaPlan{mode: strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode))}
	if plan.mode == "" {
		plan.mode = SchemaModeHybrid
	}
	shared := sharedEnv(cfg.Env)

	switch plan.mode {
	case SchemaModeSQL:
		plan.sql = true
	case SchemaModeHybrid:
		// Model drift is only patched up outside shared environments.
		plan.sql = true
		plan.autoMigrate = !shared
	case SchemaModeAuto:
		if shared && !cfg.DBAutoMigrateAllowDestructive {
			return schemaPlan{}, fmt.Errorf("DB_SCHEMA_MODE=auto needs DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true in %q", cfg.Env)
		}
		plan.autoMigrate = true
		plan.destructive = cfg.DBAutoMigrateAllowDestructive
	default:
		return schemaPlan{}, fmt.Errorf("unknown DB_SCHEMA_MODE %q", plan.mode)
	}
	return plan, nil
}

func autoMigrateModels(db *gorm.DB) error {
	return db.AutoMigrate(PersistentModels()...)
}

// ApplySchema brings the database up to date for the configured mode.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	plan, err := planSchema(cfg)
	if err != nil {
		return err
	}

	if plan.sql {
		if err := RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("run sql migrations: %w", err)
		}
	}
	if !plan.autoMigrate {
		return nil
	}

	if plan.destructive {
		middleware.Logger.Warn("auto-migrating with DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true", slog.String("env", cfg.Env))
	}
	middleware.Logger.Info("auto-migrating models",
		slog.String("mode", plan.mode),
		slog.String("env", cfg.Env),
		slog.Int("models", len(PersistentModels())),
	)
	if err := autoMigrateModels(db); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// GetSchemaStatus reports what ApplySchema would do without changing
// anything. Migration history is only read when SQL migrations are enabled.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	plan, err := planSchema(cfg)
	if err != nil {
		return nil, err
	}

	status := &SchemaStatus{
		Mode:               plan.mode,
		Environment:        cfg.Env,
		WillRunSQL:         plan.sql,
		WillRunAutoMigrate: plan.autoMigrate,
	}
	if !plan.sql {
		return status, nil
	}

	sums, err := NewMigrationStore(db).AppliedChecksums(ctx)
	if err != nil {
		return nil, err
	}
	for _, m := range GetMigrations() {
		sum, ok := sums[m.Version]
		switch {
		case !ok:
			status.PendingMigrations = append(status.PendingMigrations, m)
		case sum != "" && sum != m.Checksum:
			status.EditedMigrations = append(status.EditedMigrations, m.String())
		}
		if ok {
			status.AppliedVersions = append(status.AppliedVersions, m.Version)
		}
	}

	return status, nil
}
