package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/meltforce/liftcoach/internal/aiplan"
	"github.com/meltforce/liftcoach/internal/apperr"
	"github.com/meltforce/liftcoach/internal/models"
	"github.com/meltforce/liftcoach/internal/recommend"
)

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userInfoFromContext(r))
}

func (s *Server) handleListExercises(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := models.ExerciseFilter{
		Type:        models.ExerciseType(q.Get("type")),
		Pattern:     models.MovementPattern(q.Get("pattern")),
		MuscleGroup: models.MuscleGroup(q.Get("muscle_group")),
	}
	if f.Type != "" && !f.Type.Valid() {
		writeBadRequest(w, "unknown exercise type "+strconv.Quote(string(f.Type)))
		return
	}
	exercises, err := s.store.ListExercises(r.Context(), f)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, exercises)
}

func (s *Server) handleGetExercise(w http.ResponseWriter, r *http.Request) {
	ex, err := s.store.GetExercise(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ex)
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.ListRecords(r.Context(), userIDFromContext(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.GetRecord(r.Context(), userIDFromContext(r), chi.URLParam(r, "exerciseID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if rec == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no personal record"})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleSuggestion returns the target for one set. With exercise_id the
// user's record feeds the engine and the type defaults to the exercise's.
func (s *Server) handleSuggestion(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	setNumber := 1
	if v := q.Get("set"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeBadRequest(w, "set must be a positive integer")
			return
		}
		setNumber = n
	}

	t := models.ExerciseType(q.Get("type"))
	var rec *models.PersonalRecord
	if id := q.Get("exercise_id"); id != "" {
		ex, err := s.store.GetExercise(r.Context(), id)
		if err != nil {
			s.writeError(w, err)
			return
		}
		if t == "" {
			t = ex.Type
		}
		rec, err = s.store.GetRecord(r.Context(), userIDFromContext(r), id)
		if err != nil {
			s.writeError(w, apperr.External("record store", err))
			return
		}
	}
	if !t.Valid() {
		writeBadRequest(w, "type or exercise_id parameter required")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"exercise_type": t,
		"set_number":    setNumber,
		"suggestion":    s.engine.Calculate(t, setNumber, rec),
	})
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	uid := userIDFromContext(r)
	history, err := s.store.RecentSessions(r.Context(), uid, historyDepth)
	if err != nil {
		s.writeError(w, apperr.External("history", err))
		return
	}

	key := recommend.CacheKey(uid, s.now(), history)
	if plan, ok := s.cache.Get(key); ok {
		writeJSON(w, http.StatusOK, plan)
		return
	}

	catalog, err := s.store.ListExercises(r.Context(), models.ExerciseFilter{})
	if err != nil {
		s.writeError(w, apperr.External("exercise catalog", err))
		return
	}
	plan := s.recommender.Plan(history, catalog)
	s.cache.Put(key, plan)
	writeJSON(w, http.StatusOK, plan)
}

type aiPlanRequest struct {
	Preferences aiplan.Preferences `json:"preferences"`
	FreeText    string             `json:"free_text"`
}

func (s *Server) handleAIRecommendations(w http.ResponseWriter, r *http.Request) {
	if s.planner == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "plan generation is not configured"})
		return
	}
	var req aiPlanRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeBadRequest(w, "invalid JSON: "+err.Error())
			return
		}
	}

	uid := userIDFromContext(r)
	history, err := s.store.RecentSessions(r.Context(), uid, historyDepth)
	if err != nil {
		s.writeError(w, apperr.External("history", err))
		return
	}
	catalog, err := s.store.ListExercises(r.Context(), models.ExerciseFilter{})
	if err != nil {
		s.writeError(w, apperr.External("exercise catalog", err))
		return
	}

	plan, err := s.planner.Generate(r.Context(), uid, aiplan.Context{
		History:     history,
		Preferences: req.Preferences,
		FreeText:    req.FreeText,
		Catalog:     catalog,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func queryLimit(r *http.Request, def int) int {
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			return parsed
		}
	}
	return def
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.store.ListSessions(r.Context(), userIDFromContext(r), queryLimit(r, 20))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

// handleRecentHistory returns sessions with their exercises, the shape the
// recommender consumes.
func (s *Server) handleRecentHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.store.RecentSessions(r.Context(), userIDFromContext(r), queryLimit(r, historyDepth))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.GetStats(r.Context(), userIDFromContext(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
