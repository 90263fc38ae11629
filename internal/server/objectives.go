package server

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"hourglass/internal/domain"
	"hourglass/internal/engine"
	"hourglass/internal/rollup"
)

type ScopeQuery struct {
	Owner    string `query:"owner" doc:"Owner to scope to; defaults to the caller"`
	Everyone bool   `query:"everyone" doc:"Return objectives of every owner"`
}

type objectivesOutput struct {
	Body ObjectivesResponse `json:"body"`
}

type objectiveOutput struct {
	Body domain.Objective `json:"body"`
}

// owner resolves the rollup scope; an empty result means unscoped.
func (s ScopeQuery) owner(ctx context.Context) (string, huma.StatusError) {
	if s.Everyone {
		return "", nil
	}
	if s.Owner != "" {
		return s.Owner, nil
	}
	return userIDFromContext(ctx)
}

// explicitDate rejects path components that were given but cannot be part of a date.
func explicitDate(year, month, day int, parts int) error {
	if (parts >= 2 && month < 1) || (parts >= 3 && day < 1) {
		return &domain.InvalidDateError{Year: year, Month: month, Day: day}
	}
	return nil
}

func objectivesRollup(ctx context.Context, e engine.Engine, date rollup.DateQuery, parts int, allLevels bool, scope ScopeQuery) (*objectivesOutput, error) {
	if err := explicitDate(date.Year, date.Month, date.Day, parts); err != nil {
		return nil, handleError(err)
	}
	owner, authErr := scope.owner(ctx)
	if authErr != nil {
		return nil, authErr
	}
	r, err := e.Rollups().Objectives(ctx, rollup.Query{DateQuery: date, AllLevels: allLevels, Owner: owner})
	if err != nil {
		return nil, handleError(err)
	}
	return &objectivesOutput{Body: ObjectivesResponse{Objectives: r}}, nil
}

func registerObjectives(api huma.API, e engine.Engine) {
	rollupErrors := []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusInternalServerError}

	huma.Register(api, huma.Operation{
		OperationID: "objectives-year",
		Method:      http.MethodGet,
		Path:        "/objectives/{year}",
		Summary:     "Year objectives",
		Errors:      rollupErrors,
	}, func(ctx context.Context, input *struct {
		Year int `path:"year"`
		ScopeQuery
	}) (*objectivesOutput, error) {
		return objectivesRollup(ctx, e, rollup.DateQuery{Year: input.Year}, 1, false, input.ScopeQuery)
	})

	huma.Register(api, huma.Operation{
		OperationID: "objectives-month",
		Method:      http.MethodGet,
		Path:        "/objectives/{year}/{month}",
		Summary:     "Month objectives",
		Errors:      rollupErrors,
	}, func(ctx context.Context, input *struct {
		Year  int `path:"year"`
		Month int `path:"month"`
		ScopeQuery
	}) (*objectivesOutput, error) {
		return objectivesRollup(ctx, e, rollup.DateQuery{Year: input.Year, Month: input.Month}, 2, false, input.ScopeQuery)
	})

	huma.Register(api, huma.Operation{
		OperationID: "objectives-day",
		Method:      http.MethodGet,
		Path:        "/objectives/{year}/{month}/{day}",
		Summary:     "Day objectives",
		Errors:      rollupErrors,
	}, func(ctx context.Context, input *struct {
		Year  int `path:"year"`
		Month int `path:"month"`
		Day   int `path:"day"`
		ScopeQuery
	}) (*objectivesOutput, error) {
		date := rollup.DateQuery{Year: input.Year, Month: input.Month, Day: input.Day}
		return objectivesRollup(ctx, e, date, 3, false, input.ScopeQuery)
	})

	huma.Register(api, huma.Operation{
		OperationID: "objectives-all-levels",
		Method:      http.MethodGet,
		Path:        "/objectives/{year}/{month}/{day}/all",
		Summary:     "Day, month and year objectives around a date",
		Errors:      rollupErrors,
	}, func(ctx context.Context, input *struct {
		Year  int `path:"year"`
		Month int `path:"month"`
		Day   int `path:"day"`
		ScopeQuery
	}) (*objectivesOutput, error) {
		date := rollup.DateQuery{Year: input.Year, Month: input.Month, Day: input.Day}
		return objectivesRollup(ctx, e, date, 3, true, input.ScopeQuery)
	})

	huma.Register(api, huma.Operation{
		OperationID: "objectives-summary",
		Method:      http.MethodGet,
		Path:        "/objectives/{year}/{month}/{day}/summary",
		Summary:     "Day completion summary",
		Errors:      rollupErrors,
	}, func(ctx context.Context, input *struct {
		Year  int    `path:"year"`
		Month int    `path:"month"`
		Day   int    `path:"day"`
		Owner string `query:"owner" doc:"User to summarize; defaults to the caller"`
	}) (*struct {
		Body SummaryResponse `json:"body"`
	}, error) {
		if err := explicitDate(input.Year, input.Month, input.Day, 3); err != nil {
			return nil, handleError(err)
		}
		user, authErr := ScopeQuery{Owner: input.Owner}.owner(ctx)
		if authErr != nil {
			return nil, authErr
		}
		date := rollup.DateQuery{Year: input.Year, Month: input.Month, Day: input.Day}
		s, err := e.Rollups().Summary(ctx, date, user)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body SummaryResponse `json:"body"`
		}{Body: SummaryResponse{Summary: s}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-objective",
		Method:        http.MethodPost,
		Path:          "/objectives",
		Summary:       "Create objective",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body CreateObjectiveRequest `json:"body"`
	}) (*objectiveOutput, error) {
		actorID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		date, err := time.Parse(time.DateOnly, input.Body.ObjectiveDate)
		if err != nil {
			return nil, handleError(domain.NewValidationError("objective_date", "must be YYYY-MM-DD"))
		}
		o, err := e.CreateObjective(ctx, engine.ObjectiveCreateOptions{
			ID:            input.Body.ID,
			RelatedTask:   input.Body.RelatedTask,
			Owners:        input.Body.Owners,
			ObjectiveDate: date,
			Level:         input.Body.Level,
			ActorID:       actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &objectiveOutput{Body: o}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-objective",
		Method:      http.MethodPatch,
		Path:        "/objectives/{id}",
		Summary:     "Update objective progress or scratch state",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string                 `path:"id"`
		Body UpdateObjectiveRequest `json:"body"`
	}) (*objectiveOutput, error) {
		actorID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		o, err := e.UpdateObjective(ctx, engine.ObjectiveUpdateOptions{
			ID:        input.ID,
			Progress:  input.Body.Progress,
			Scratched: input.Body.Scratched,
			ActorID:   actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &objectiveOutput{Body: o}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-objective",
		Method:        http.MethodDelete,
		Path:          "/objectives/{id}",
		Summary:       "Soft delete objective",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct{}, error) {
		actorID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if _, err := e.DeleteObjective(ctx, input.ID, actorID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "log-work",
		Method:        http.MethodPost,
		Path:          "/objectives/{id}/work-entries",
		Summary:       "Log work against an objective",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string         `path:"id"`
		Body LogWorkRequest `json:"body"`
	}) (*struct {
		Body domain.WorkEntry `json:"body"`
	}, error) {
		actorID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		entry, err := e.LogWork(ctx, engine.WorkLogOptions{
			ID:          input.Body.ID,
			ObjectiveID: input.ID,
			Seconds:     input.Body.Time,
			ActorID:     actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.WorkEntry `json:"body"`
		}{Body: entry}, nil
	})
}
