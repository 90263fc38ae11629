package rollup

import (
	"context"
	"log/slog"
	"time"

	"hourglass/internal/domain"
)

// ObjectiveStore returns the non-deleted objectives matching a predicate.
type ObjectiveStore interface {
	FindObjectives(ctx context.Context, p Predicate) ([]domain.Objective, error)
}

type Service struct {
	Store  ObjectiveStore
	Now    func() time.Time
	Logger *slog.Logger
}

func (s Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s Service) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// Objectives resolves the window for q, fetches the matching objectives and
// groups them by level.
func (s Service) Objectives(ctx context.Context, q Query) (Rollup, error) {
	w, err := ResolveWindow(q.DateQuery, s.now())
	if err != nil {
		return Rollup{}, err
	}
	p := Select(q, w)
	objectives, err := s.Store.FindObjectives(ctx, p)
	if err != nil {
		return Rollup{}, err
	}
	s.logger().DebugContext(ctx, "objectives rollup",
		"anchor", w.Anchor.Format(time.DateOnly),
		"all_levels", q.AllLevels,
		"owner", q.Owner,
		"matched", len(objectives))
	return GroupByLevel(objectives), nil
}

// Summary counts the day objectives around the anchor date, for userID and
// for everyone. The day bucket is fetched unscoped so both tallies see the
// same set; a missing month or day is filled in like any other query.
func (s Service) Summary(ctx context.Context, date DateQuery, userID string) (Summary, error) {
	w, err := ResolveWindow(date, s.now())
	if err != nil {
		return Summary{}, err
	}
	objectives, err := s.Store.FindObjectives(ctx, LevelPredicate(domain.LevelDay, w))
	if err != nil {
		return Summary{}, err
	}
	return Summarize(GroupByLevel(objectives).Day, userID), nil
}
