package app

import (
	"context"

	"github.com/nomia-hq/nomia/internal/config"
	"github.com/nomia-hq/nomia/internal/modules/token"
	pkgcron "github.com/nomia-hq/nomia/internal/pkg/cron"
	"go.uber.org/zap"
)

// registerCronJobs registers all scheduled background jobs.
func registerCronJobs(sched *pkgcron.Scheduler, tokenSvc *token.Service, cfg *config.AppConfig, logger *zap.Logger) {
	cronLogger := logger.Named("CronService")

	// The interval sits just inside the validity window so every display
	// holds a fresh token before its previous one expires. A failed tick is
	// logged and retried on the next one; the previous token stays live.
	sched.Register(pkgcron.Job{
		Name:        "rotate_tokens",
		Description: "issue replacement display tokens for all enabled locations",
		Interval:    cfg.RotateInterval(),
		RunAtStart:  true,
		Fn: func(ctx context.Context) error {
			if err := tokenSvc.RotateAll(ctx); err != nil {
				cronLogger.Warn("token rotation incomplete", zap.Error(err))
				return err
			}
			return nil
		},
	})
}
