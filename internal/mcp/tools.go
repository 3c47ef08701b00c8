package mcp

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/meltforce/liftcoach/internal/apperr"
	"github.com/meltforce/liftcoach/internal/models"
	"github.com/meltforce/liftcoach/internal/session"
)

// maxSuggestedSets caps the sets argument of suggest_set.
const maxSuggestedSets = 20

// --- Tool definitions ---

var toolSuggestSet = mcp.NewTool("suggest_set",
	mcp.WithDescription("Suggest weight/reps/duration targets for one or more consecutive sets. With exercise_id the user's personal record drives the progression; max_* arguments override or replace it."),
	mcp.WithString("exercise_id", mcp.Description("Catalog exercise id (e.g. back-squat). Sets exercise_type and loads the personal record.")),
	mcp.WithString("exercise_type", mcp.Description("Exercise type when no exercise_id is given."), mcp.Enum("weight", "duration", "bodyweight", "warmup")),
	mcp.WithNumber("set_number", mcp.Description("First set to suggest, 1-based. Defaults to 1.")),
	mcp.WithNumber("sets", mcp.Description("How many consecutive sets to suggest. Defaults to 1, at most 20.")),
	mcp.WithNumber("max_weight", mcp.Description("Best weight, overriding the stored record.")),
	mcp.WithNumber("max_reps", mcp.Description("Best reps, overriding the stored record.")),
	mcp.WithNumber("max_duration", mcp.Description("Best hold in seconds, overriding the stored record.")),
)

var toolRecommendExercises = mcp.NewTool("recommend_exercises",
	mcp.WithDescription("Recommend the next workout: classifies the split (push/pull/legs/full body) from recent sessions and picks a main, secondary and accessory exercise respecting muscle group recovery."),
)

var toolListExercises = mcp.NewTool("list_exercises",
	mcp.WithDescription("List catalog exercises, optionally filtered."),
	mcp.WithString("type", mcp.Description("Exercise type filter."), mcp.Enum("weight", "duration", "bodyweight", "warmup")),
	mcp.WithString("pattern", mcp.Description("Movement pattern filter."), mcp.Enum("complex", "iso")),
	mcp.WithString("muscle_group", mcp.Description("Muscle group filter (legs, core, chest, back, shoulders, arms, cardio, full_body).")),
)

var toolGetPersonalRecords = mcp.NewTool("get_personal_records",
	mcp.WithDescription("Get the user's personal records (max weight, reps and duration per exercise)."),
	mcp.WithString("exercise_id", mcp.Description("Only this exercise. Omit for all records.")),
)

var toolGetTrainingHistory = mcp.NewTool("get_training_history",
	mcp.WithDescription("List finished training sessions, newest first, with set counts and volume."),
	mcp.WithNumber("limit", mcp.Description("Maximum sessions to return. Defaults to 20.")),
)

var toolGetSession = mcp.NewTool("get_session",
	mcp.WithDescription("Get the user's in-progress session: stage, current exercise and set, timers, inputs and the current suggestion."),
)

// --- Tool handlers ---

func (h *handlers) suggestSet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uid := UserIDFromContext(ctx)
	t := models.ExerciseType(req.GetString("exercise_type", ""))

	var rec *models.PersonalRecord
	if id := req.GetString("exercise_id", ""); id != "" {
		ex, err := h.ds.GetExercise(ctx, id)
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError("unknown exercise " + id), nil
		}
		if err != nil {
			h.log.Error("mcp suggest_set exercise", "error", err)
			return mcp.NewToolResultError("query failed: " + err.Error()), nil
		}
		t = ex.Type
		rec, err = h.ds.GetRecord(ctx, uid, id)
		if err != nil {
			h.log.Warn("mcp suggest_set record lookup failed", "exercise_id", id, "error", err)
			rec = nil
		}
	}
	if !t.Valid() {
		return mcp.NewToolResultError("exercise_id or a valid exercise_type is required"), nil
	}
	rec = overrideRecord(rec, req)

	first := req.GetInt("set_number", 1)
	if first < 1 {
		return mcp.NewToolResultError("set_number must be at least 1"), nil
	}
	count := req.GetInt("sets", 1)
	if count < 1 {
		count = 1
	}
	if count > maxSuggestedSets {
		count = maxSuggestedSets
	}

	type setTarget struct {
		SetNumber  int               `json:"set_number"`
		Suggestion models.Suggestion `json:"suggestion"`
	}
	out := make([]setTarget, 0, count)
	for n := first; n < first+count; n++ {
		out = append(out, setTarget{SetNumber: n, Suggestion: h.engine.Calculate(t, n, rec)})
	}

	return toolJSON(map[string]any{"exercise_type": t, "record": rec, "sets": out})
}

// overrideRecord applies max_* arguments on top of the stored record.
func overrideRecord(rec *models.PersonalRecord, req mcp.CallToolRequest) *models.PersonalRecord {
	w := req.GetFloat("max_weight", 0)
	r := req.GetInt("max_reps", 0)
	d := req.GetInt("max_duration", 0)
	if w <= 0 && r <= 0 && d <= 0 {
		return rec
	}
	out := models.PersonalRecord{}
	if rec != nil {
		out = *rec
	}
	if w > 0 {
		out.MaxWeight = models.Float(w)
	}
	if r > 0 {
		out.MaxReps = models.Int(r)
	}
	if d > 0 {
		out.MaxDuration = models.Int(d)
	}
	return &out
}

func (h *handlers) recommendExercises(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uid := UserIDFromContext(ctx)

	history, err := h.ds.RecentSessions(ctx, uid, historyDepth)
	if err != nil {
		h.log.Error("mcp recommend_exercises history", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	catalog, err := h.ds.ListExercises(ctx, models.ExerciseFilter{})
	if err != nil {
		h.log.Error("mcp recommend_exercises catalog", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	return toolJSON(h.recommender.Plan(history, catalog))
}

func (h *handlers) listExercises(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f := models.ExerciseFilter{
		Type:        models.ExerciseType(req.GetString("type", "")),
		Pattern:     models.MovementPattern(req.GetString("pattern", "")),
		MuscleGroup: models.MuscleGroup(req.GetString("muscle_group", "")),
	}
	exercises, err := h.ds.ListExercises(ctx, f)
	if err != nil {
		h.log.Error("mcp list_exercises", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return toolJSON(exercises)
}

func (h *handlers) getPersonalRecords(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uid := UserIDFromContext(ctx)

	if id := req.GetString("exercise_id", ""); id != "" {
		rec, err := h.ds.GetRecord(ctx, uid, id)
		if err != nil {
			h.log.Error("mcp get_personal_records", "error", err)
			return mcp.NewToolResultError("query failed: " + err.Error()), nil
		}
		if rec == nil {
			return mcp.NewToolResultText("no personal record for " + id), nil
		}
		return toolJSON(rec)
	}

	records, err := h.ds.ListRecords(ctx, uid)
	if err != nil {
		h.log.Error("mcp get_personal_records", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return toolJSON(records)
}

func (h *handlers) getTrainingHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", 20)
	if limit < 1 {
		limit = 20
	}
	sessions, err := h.ds.ListSessions(ctx, UserIDFromContext(ctx), limit)
	if err != nil {
		h.log.Error("mcp get_training_history", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return toolJSON(sessions)
}

func (h *handlers) getSession(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	v, err := h.sessions.CurrentSession(ctx, UserIDFromContext(ctx))
	if errors.Is(err, session.ErrNoSession) {
		return mcp.NewToolResultText("no session in progress"), nil
	}
	if err != nil {
		h.log.Error("mcp get_session", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return toolJSON(v)
}

func toolJSON(v any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(v)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
