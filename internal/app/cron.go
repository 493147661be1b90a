package app

import (
	"context"
	"fmt"
	"time"

	"github.com/soundscape/server/internal/modules/catalog/song"
	"github.com/soundscape/server/internal/modules/library/history"
	pkgcron "github.com/soundscape/server/internal/pkg/cron"
	"go.uber.org/zap"
)

// registerCronJobs registers all scheduled background jobs.
func (a *App) registerCronJobs() {
	cronLogger := a.logger.Named("CronService")
	registry := a.hub.Registry()
	historySvc := history.NewService(a.db, song.NewService(a.db, a.rc, a.logger.Named("SongService")))

	a.sched.Register(pkgcron.Job{
		Name:        "presence_orphan_sweep",
		Description: "Drop online principals whose user record no longer exists",
		Interval:    a.cfg.Presence.SweepInterval,
		Fn: func(ctx context.Context) error {
			registry.Sweep(ctx)
			return nil
		},
	})

	a.sched.Register(pkgcron.Job{
		Name:        "cleanup_listening_history",
		Description: fmt.Sprintf("Delete listening history older than %d days", a.cfg.History.RetainDays),
		Interval:    24 * time.Hour,
		Fn: func(ctx context.Context) error {
			retain := time.Duration(a.cfg.History.RetainDays) * 24 * time.Hour
			n, err := historySvc.Prune(ctx, retain)
			if err != nil {
				cronLogger.Warn("listening history cleanup failed", zap.Error(err))
				return err
			}
			cronLogger.Info(fmt.Sprintf("listening history cleanup removed %d entries", n))
			return nil
		},
	})
}
