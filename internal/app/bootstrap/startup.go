// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"fmt"

	spacestore "github.com/dalemusser/tempohub/internal/app/store/spaces"
	timeentrystore "github.com/dalemusser/tempohub/internal/app/store/timeentries"
	userstore "github.com/dalemusser/tempohub/internal/app/store/users"
	"github.com/dalemusser/tempohub/internal/app/system/timeouts"
	"github.com/dalemusser/tempohub/internal/app/system/workers"
	"github.com/dalemusser/tempohub/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// timerCleanup is created in Startup and stopped in Shutdown.
var timerCleanup *workers.TimerCleanup

// Startup runs one-time application initialization after DB connections
// and schema setup are complete, but before the HTTP handler is built.
// It seeds the bootstrap space and owner account when configured, and
// starts the timer cleanup worker.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if n := timeouts.ConfigureFromEnv(); n > 0 {
		logger.Info("timeout overrides applied", zap.Int("count", n))
	}

	if err := ensureOwner(ctx, deps, appCfg, logger); err != nil {
		return err
	}

	timerCleanup = workers.NewTimerCleanup(
		timeentrystore.New(deps.MongoDatabase),
		logger,
		appCfg.TimerCleanupInterval,
		appCfg.TimerMaxDuration,
	)
	timerCleanup.Start()

	return nil
}

// ensureOwner makes a fresh deployment usable: it creates the
// configured space if missing and guarantees an active owner account
// in it. An existing account with the owner email is promoted rather
// than duplicated. No-op when owner_email is unset.
func ensureOwner(ctx context.Context, deps DBDeps, appCfg AppConfig, logger *zap.Logger) error {
	if appCfg.OwnerEmail == "" {
		return nil
	}

	spaces := spacestore.New(deps.MongoDatabase)
	space, err := spaces.GetBySubdomain(ctx, appCfg.SpaceSubdomain)
	if err == spacestore.ErrNotFound {
		space, err = spaces.Create(ctx, models.Space{
			Name:      appCfg.SpaceName,
			Subdomain: appCfg.SpaceSubdomain,
		})
		if err == nil {
			logger.Info("created bootstrap space",
				zap.String("subdomain", appCfg.SpaceSubdomain))
		}
	}
	if err != nil {
		return fmt.Errorf("ensure bootstrap space: %w", err)
	}

	users := userstore.New(deps.MongoDatabase)
	existing, err := users.GetByEmail(ctx, space.ID, appCfg.OwnerEmail)
	switch err {
	case nil:
		if existing.Role == "owner" {
			return nil
		}
		if err := users.UpdateRole(ctx, existing.ID, "owner"); err != nil {
			return fmt.Errorf("promote bootstrap owner: %w", err)
		}
		logger.Info("promoted bootstrap owner",
			zap.String("email", appCfg.OwnerEmail))
		return nil
	case userstore.ErrNotFound:
	default:
		return fmt.Errorf("look up bootstrap owner: %w", err)
	}

	_, err = users.Create(ctx, models.User{
		FullName: appCfg.OwnerName,
		Email:    appCfg.OwnerEmail,
		Role:     "owner",
		Status:   "active",
		SpaceID:  space.ID,
	})
	if err != nil {
		return fmt.Errorf("create bootstrap owner: %w", err)
	}
	// The account has no password hash; sign in via Google OAuth or
	// set a password through user management.
	logger.Info("created bootstrap owner",
		zap.String("email", appCfg.OwnerEmail),
		zap.String("space", space.Subdomain))
	return nil
}
