package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/quizfunnel-backend/pkg/config"
	"github.com/angelmondragon/quizfunnel-backend/pkg/db"
	"github.com/angelmondragon/quizfunnel-backend/pkg/logger"
)

// MaybeRun applies the embedded migrations at API startup when the
// auto-migrate flag is enabled. Production deploys run cmd/migrate instead.
func MaybeRun(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	if cfg.App.IsProd() {
		logg.Warn(ctx, "auto-migrate ignored in prod; run cmd/migrate")
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "source": "embedded"})
	logg.Info(ctx, "running goose migrations")

	if err := UpEmbedded(ctx, sqlDB); err != nil {
		return err
	}

	logg.Info(ctx, "goose migrations completed")
	return nil
}
