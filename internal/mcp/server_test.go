package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/meltforce/liftcoach/internal/apperr"
	"github.com/meltforce/liftcoach/internal/models"
	"github.com/meltforce/liftcoach/internal/recommend"
	"github.com/meltforce/liftcoach/internal/session"
	"github.com/meltforce/liftcoach/internal/suggest"
)

var fixedNow = time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)

type fakeDS struct {
	catalog []models.ExerciseDescriptor
	records map[string]*models.PersonalRecord
	history []models.HistorySession
	userIDs []int
}

func (f *fakeDS) ListExercises(_ context.Context, flt models.ExerciseFilter) ([]models.ExerciseDescriptor, error) {
	var out []models.ExerciseDescriptor
	for _, d := range f.catalog {
		if flt.Match(d) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeDS) GetExercise(_ context.Context, id string) (*models.ExerciseDescriptor, error) {
	for _, d := range f.catalog {
		if d.ID == id {
			return &d, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (f *fakeDS) GetRecord(_ context.Context, userID int, id string) (*models.PersonalRecord, error) {
	f.userIDs = append(f.userIDs, userID)
	return f.records[id], nil
}

func (f *fakeDS) ListRecords(context.Context, int) ([]models.PersonalRecord, error) {
	var out []models.PersonalRecord
	for _, r := range f.records {
		out = append(out, *r)
	}
	return out, nil
}

func (f *fakeDS) RecentSessions(context.Context, int, int) ([]models.HistorySession, error) {
	return f.history, nil
}

func (f *fakeDS) ListSessions(context.Context, int, int) ([]models.SessionRecord, error) {
	return []models.SessionRecord{{SetCount: 12}}, nil
}

type fakeSessions struct{ err error }

func (f fakeSessions) CurrentSession(context.Context, int) (any, error) {
	if f.err != nil {
		return nil, f.err
	}
	return map[string]string{"stage": "rest"}, nil
}

func testHandlers() (*handlers, *fakeDS) {
	ds := &fakeDS{
		catalog: []models.ExerciseDescriptor{
			{ID: "back-squat", Name: "Back Squat", Type: models.ExerciseWeight, Pattern: models.PatternComplex, MuscleGroup: models.MuscleLegs},
			{ID: "bench-press", Name: "Bench Press", Type: models.ExerciseWeight, Pattern: models.PatternComplex, MuscleGroup: models.MuscleChest},
			{ID: "plank", Name: "Plank", Type: models.ExerciseDuration, Pattern: models.PatternIso, MuscleGroup: models.MuscleCore},
		},
		records: map[string]*models.PersonalRecord{
			"plank": {ExerciseID: "plank", MaxDuration: models.Int(90)},
		},
		history: []models.HistorySession{{
			ID:        "s1",
			Date:      fixedNow.Add(-24 * time.Hour),
			Exercises: []models.HistoryExercise{{ExerciseID: "bench-press", Name: "Bench Press", MuscleGroup: models.MuscleChest}},
		}},
	}
	h := &handlers{
		ds:          ds,
		sessions:    fakeSessions{},
		engine:      suggest.New(suggest.DefaultParams()),
		recommender: recommend.Recommender{Now: func() time.Time { return fixedNow }},
		log:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:         func() time.Time { return fixedNow },
	}
	return h, ds
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	switch c := res.Content[0].(type) {
	case mcp.TextContent:
		return c.Text
	case *mcp.TextContent:
		return c.Text
	}
	t.Fatalf("content type %T", res.Content[0])
	return ""
}

func decodeResult(t *testing.T, res *mcp.CallToolResult, v any) {
	t.Helper()
	if res.IsError {
		t.Fatalf("tool returned error: %s", resultText(t, res))
	}
	if err := json.Unmarshal([]byte(resultText(t, res)), v); err != nil {
		t.Fatalf("decode result: %v", err)
	}
}

// TestUserIDFromContextDefault verifies the default user ID (1) when no value
// is set in the context.
func TestUserIDFromContextDefault(t *testing.T) {
	ctx := context.Background()
	if id := UserIDFromContext(ctx); id != 1 {
		t.Errorf("UserIDFromContext(empty) = %d, want 1", id)
	}
}

// TestUserIDFromContextSet verifies the user ID is extracted from context
// after being set by WithUserID.
func TestUserIDFromContextSet(t *testing.T) {
	ctx := WithUserID(context.Background(), 42)
	if id := UserIDFromContext(ctx); id != 42 {
		t.Errorf("UserIDFromContext = %d, want 42", id)
	}
}

type suggestResult struct {
	ExerciseType models.ExerciseType `json:"exercise_type"`
	Sets         []struct {
		SetNumber  int               `json:"set_number"`
		Suggestion models.Suggestion `json:"suggestion"`
	} `json:"sets"`
}

// TestSuggestSetFromRecord verifies the stored record drives a duration progression
// and the lookup is scoped to the context user.
func TestSuggestSetFromRecord(t *testing.T) {
	h, ds := testHandlers()
	ctx := WithUserID(context.Background(), 7)

	res, err := h.suggestSet(ctx, callRequest(map[string]any{"exercise_id": "plank", "sets": 4}))
	if err != nil {
		t.Fatal(err)
	}
	var got suggestResult
	decodeResult(t, res, &got)

	if got.ExerciseType != models.ExerciseDuration {
		t.Errorf("type = %s, want duration", got.ExerciseType)
	}
	want := []int{45, 68, 90, 90}
	if len(got.Sets) != len(want) {
		t.Fatalf("got %d sets, want %d", len(got.Sets), len(want))
	}
	for i, s := range got.Sets {
		if s.SetNumber != i+1 {
			t.Errorf("set %d number = %d", i, s.SetNumber)
		}
		if s.Suggestion.Duration == nil || *s.Suggestion.Duration != want[i] {
			t.Errorf("set %d duration = %v, want %d", i+1, s.Suggestion.Duration, want[i])
		}
	}
	if len(ds.userIDs) != 1 || ds.userIDs[0] != 7 {
		t.Errorf("record lookups for users %v, want [7]", ds.userIDs)
	}
}

// TestSuggestSetOverride verifies max_* arguments stand in for a missing record.
func TestSuggestSetOverride(t *testing.T) {
	h, _ := testHandlers()
	res, err := h.suggestSet(context.Background(), callRequest(map[string]any{
		"exercise_type": "bodyweight",
		"set_number":    1,
		"sets":          3,
		"max_reps":      20,
	}))
	if err != nil {
		t.Fatal(err)
	}
	var got suggestResult
	decodeResult(t, res, &got)
	want := []int{6, 12, 20}
	for i, s := range got.Sets {
		if s.Suggestion.Reps == nil || *s.Suggestion.Reps != want[i] {
			t.Errorf("set %d reps = %v, want %d", i+1, s.Suggestion.Reps, want[i])
		}
	}
}

// TestSuggestSetValidation verifies bad arguments come back as tool errors.
func TestSuggestSetValidation(t *testing.T) {
	h, _ := testHandlers()
	for name, args := range map[string]map[string]any{
		"no type":          {},
		"unknown exercise": {"exercise_id": "nope"},
		"set zero":         {"exercise_type": "weight", "set_number": 0},
	} {
		res, err := h.suggestSet(context.Background(), callRequest(args))
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if !res.IsError {
			t.Errorf("%s: expected a tool error", name)
		}
	}
}

// TestRecommendExercises verifies untrained legs force a leg day built from the catalog.
func TestRecommendExercises(t *testing.T) {
	h, _ := testHandlers()
	res, err := h.recommendExercises(context.Background(), callRequest(nil))
	if err != nil {
		t.Fatal(err)
	}
	var plan recommend.Plan
	decodeResult(t, res, &plan)
	if plan.WorkoutType != recommend.WorkoutLegs {
		t.Errorf("workout type = %s, want legs", plan.WorkoutType)
	}
	// only one legs compound and no legs accessory in the catalog
	if len(plan.Exercises) != 1 || plan.Exercises[0].ExerciseID != "back-squat" {
		t.Errorf("exercises = %+v, want only back-squat", plan.Exercises)
	}
}

// TestListExercisesFilter verifies tool arguments become a catalog filter.
func TestListExercisesFilter(t *testing.T) {
	h, _ := testHandlers()
	res, err := h.listExercises(context.Background(), callRequest(map[string]any{"muscle_group": "legs"}))
	if err != nil {
		t.Fatal(err)
	}
	var got []models.ExerciseDescriptor
	decodeResult(t, res, &got)
	if len(got) != 1 || got[0].ID != "back-squat" {
		t.Errorf("got %+v, want only back-squat", got)
	}
}

// TestGetPersonalRecordsMissing verifies a missing record is reported as text, not an error.
func TestGetPersonalRecordsMissing(t *testing.T) {
	h, _ := testHandlers()
	res, err := h.getPersonalRecords(context.Background(), callRequest(map[string]any{"exercise_id": "back-squat"}))
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Error("missing record should not be a tool error")
	}
}

// TestGetSessionNone verifies the no-session case is a plain message.
func TestGetSessionNone(t *testing.T) {
	h, _ := testHandlers()
	h.sessions = fakeSessions{err: session.ErrNoSession}
	res, err := h.getSession(context.Background(), callRequest(nil))
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Error("no session should not be a tool error")
	}
	if got := resultText(t, res); got != "no session in progress" {
		t.Errorf("text = %q", got)
	}
}

// TestRecoveryResource verifies the resource reports per-group recovery.
func TestRecoveryResource(t *testing.T) {
	h, _ := testHandlers()
	var req mcp.ReadResourceRequest
	req.Params.URI = "liftcoach://recovery"

	contents, err := h.recovery(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	text, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("content type %T", contents[0])
	}
	var body struct {
		Date     string                  `json:"date"`
		Recovery []models.RecoveryStatus `json:"recovery"`
	}
	if err := json.Unmarshal([]byte(text.Text), &body); err != nil {
		t.Fatal(err)
	}
	if body.Date != "2026-03-10" {
		t.Errorf("date = %q", body.Date)
	}
	for _, st := range body.Recovery {
		if st.MuscleGroup == models.MuscleChest && (st.IsRecovered || st.DaysSinceLastTrained != 1) {
			t.Errorf("chest = %+v, want 1 day and recovering", st)
		}
	}
}
