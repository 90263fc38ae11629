package engine

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"hourglass/internal/billing"
	"hourglass/internal/config"
	"hourglass/internal/events"
	"hourglass/internal/repo"
	"hourglass/internal/rollup"
)

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Config *config.Config
	Logger *slog.Logger
	Now    func() time.Time
}

func New(db *sql.DB, cfg *config.Config, logger *slog.Logger) Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db, Ledger: repo.LedgerSource(cfg.Billing.LedgerSource)},
		Events: events.Writer{DB: db},
		Config: cfg,
		Logger: logger,
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now().UTC()
	}
	return time.Now().UTC()
}

func (e Engine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

// Rollups returns the objective rollup service over the repo.
func (e Engine) Rollups() rollup.Service {
	return rollup.Service{Store: e.Repo, Now: e.now, Logger: e.logger()}
}

// Billing returns the billing pipeline over the repo.
func (e Engine) Billing() billing.Pipeline {
	maxConcurrency := 0
	if e.Config != nil {
		maxConcurrency = e.Config.Billing.MaxConcurrency
	}
	return billing.Pipeline{
		Projects:       e.Repo,
		Hours:          billing.ExecutedHoursAggregator{Resolver: billing.Resolver{Store: e.Repo}},
		Now:            e.now,
		Logger:         e.logger(),
		MaxConcurrency: maxConcurrency,
	}
}

// BillingReport runs the billing pipeline; activeOnly nil uses the configured default.
func (e Engine) BillingReport(ctx context.Context, activeOnly *bool) ([]billing.ProjectBilling, error) {
	only := true
	if e.Config != nil {
		only = e.Config.Billing.ActiveOnly
	}
	if activeOnly != nil {
		only = *activeOnly
	}
	return e.Billing().Run(ctx, only)
}

// History lists the audit events recorded for an entity.
func (e Engine) History(ctx context.Context, entityKind, entityID string) ([]events.Event, error) {
	return e.Events.List(ctx, entityKind, entityID)
}

func (e Engine) commit(ctx context.Context, tx *sql.Tx, evt events.Event) error {
	if err := e.Events.Append(ctx, tx, evt); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	e.logger().InfoContext(ctx, "write committed", "event", evt.Type, "entity", evt.EntityID, "actor", evt.ActorID)
	return nil
}
