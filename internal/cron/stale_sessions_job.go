package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/puntoventa-backend/pkg/db/models"
	"github.com/angelmondragon/puntoventa-backend/pkg/logger"
)

const StaleSessionsJobName = "stale_cash_sessions"

type openSessionReader interface {
	ListOpenedBefore(ctx context.Context, cutoff time.Time) ([]models.CashSession, error)
}

type StaleSessionsJobParams struct {
	Logger   *logger.Logger
	Sessions openSessionReader
	MaxAge   time.Duration
}

// NewStaleSessionsJob warns about cash drawers left open longer than MaxAge.
func NewStaleSessionsJob(params StaleSessionsJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("cash session reader required")
	}
	if params.MaxAge <= 0 {
		return nil, fmt.Errorf("max session age must be positive")
	}
	return &staleSessionsJob{
		logg:     params.Logger,
		sessions: params.Sessions,
		maxAge:   params.MaxAge,
		now:      time.Now,
	}, nil
}

type staleSessionsJob struct {
	logg     *logger.Logger
	sessions openSessionReader
	maxAge   time.Duration
	now      func() time.Time
}

func (j *staleSessionsJob) Name() string { return StaleSessionsJobName }

func (j *staleSessionsJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	stale, err := j.sessions.ListOpenedBefore(ctx, now.Add(-j.maxAge))
	if err != nil {
		return fmt.Errorf("list stale cash sessions: %w", err)
	}
	for _, session := range stale {
		fields := map[string]any{
			"opened_at":  session.OpenedAt,
			"open_hours": int(now.Sub(session.OpenedAt).Hours()),
		}
		if session.User != nil {
			fields["username"] = session.User.Username
		}
		logCtx := j.logg.WithSessionID(ctx, session.ID.String())
		logCtx = j.logg.WithUserID(logCtx, session.UserID.String())
		logCtx = j.logg.WithFields(logCtx, fields)
		j.logg.Warn(logCtx, "cash.session_stale")
	}
	j.logg.Info(j.logg.WithField(ctx, "count", len(stale)), "cash.stale_scan_complete")
	return nil
}
