// Package aiplan is the alternate, model-backed workout planner. The
// generator itself is an external service; this package gates it behind
// the rate limiter and checks its output against the catalog.
package aiplan

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/meltforce/liftcoach/internal/apperr"
	"github.com/meltforce/liftcoach/internal/models"
)

// Preferences are the user's standing choices passed to the generator.
type Preferences struct {
	Goal            string   `json:"goal,omitempty"`
	DurationMinutes int      `json:"duration_minutes,omitempty"`
	Equipment       []string `json:"equipment,omitempty"`
}

// Context is everything the generator is allowed to see.
type Context struct {
	History     []models.HistorySession     `json:"history"`
	Preferences Preferences                 `json:"preferences"`
	FreeText    string                      `json:"free_text,omitempty"`
	Catalog     []models.ExerciseDescriptor `json:"catalog"`
}

type PlannedExercise struct {
	ExerciseID  string `json:"exercise_id"`
	Name        string `json:"name"`
	Reasoning   string `json:"reasoning"`
	Sets        int    `json:"sets"`
	Reps        string `json:"reps"`
	RestSeconds int    `json:"rest_seconds"`
}

type Plan struct {
	Exercises        []PlannedExercise `json:"exercises"`
	OverallReasoning string            `json:"overall_reasoning"`
}

// Generator produces a plan from a context.
type Generator interface {
	Generate(ctx context.Context, c Context) (Plan, error)
}

// RateLimiter counts generations per user.
type RateLimiter interface {
	CheckAndIncrement(ctx context.Context, userID int) (models.RateLimitStatus, error)
}

// Service runs a rate-limited, validated generation.
type Service struct {
	gen     Generator
	limiter RateLimiter
	log     *slog.Logger
}

func NewService(gen Generator, limiter RateLimiter, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{gen: gen, limiter: limiter, log: log}
}

// Generate asks the generator for a plan. The generator is not called when
// the user is over quota. A plan naming any exercise outside c.Catalog is
// rejected as a whole.
func (s *Service) Generate(ctx context.Context, userID int, c Context) (Plan, error) {
	st, err := s.limiter.CheckAndIncrement(ctx, userID)
	if err != nil {
		return Plan{}, fmt.Errorf("checking plan quota: %w", err)
	}
	if !st.Allowed {
		return Plan{}, &apperr.RateLimitExceededError{Remaining: st.Remaining, Limit: st.Limit, ResetAt: st.ResetAt}
	}

	p, err := s.gen.Generate(ctx, c)
	if err != nil {
		return Plan{}, apperr.External("plan generator", err)
	}
	if err := Validate(p, c.Catalog); err != nil {
		s.log.Warn("rejected generated plan", "user_id", userID, "error", err)
		return Plan{}, err
	}

	s.log.Info("generated plan", "user_id", userID, "exercises", len(p.Exercises), "remaining", st.Remaining)
	return p, nil
}

// Validate checks every exercise id against catalog and fills in missing
// names from it.
func Validate(p Plan, catalog []models.ExerciseDescriptor) error {
	if len(p.Exercises) == 0 {
		return apperr.Invalid("generated plan", "no exercises")
	}
	byID := make(map[string]models.ExerciseDescriptor, len(catalog))
	for _, d := range catalog {
		byID[d.ID] = d
	}
	for i := range p.Exercises {
		e := &p.Exercises[i]
		d, ok := byID[e.ExerciseID]
		if !ok {
			return apperr.Invalid("generated plan", "unknown exercise id %q", e.ExerciseID)
		}
		if e.Name == "" {
			e.Name = d.Name
		}
	}
	return nil
}
