package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meltforce/liftcoach/internal/apperr"
	"github.com/meltforce/liftcoach/internal/models"
	"github.com/meltforce/liftcoach/internal/session"
)

type startSessionRequest struct {
	ExerciseIDs []string `json:"exercise_ids"`
	Confirm     bool     `json:"confirm"`
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON: "+err.Error())
		return
	}

	var entries []session.Entry
	if len(req.ExerciseIDs) > 0 {
		descs, err := s.store.GetExercises(r.Context(), req.ExerciseIDs)
		if errors.Is(err, apperr.ErrNotFound) {
			s.writeError(w, apperr.Invalid("exercise_ids", "%v", err))
			return
		}
		if err != nil {
			s.writeError(w, apperr.External("exercise catalog", err))
			return
		}
		entries = session.Entries(descs...)
	}

	m, err := s.sessions.Start(r.Context(), userIDFromContext(r), entries, req.Confirm)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m.State())
}

// current resolves the caller's session or writes the error.
func (s *Server) current(w http.ResponseWriter, r *http.Request) (*session.Machine, bool) {
	m, err := s.sessions.Current(r.Context(), userIDFromContext(r))
	if err != nil {
		s.writeError(w, err)
		return nil, false
	}
	return m, true
}

func (s *Server) handleCurrentSession(w http.ResponseWriter, r *http.Request) {
	m, ok := s.current(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, m.State())
}

func (s *Server) handleSetInputs(w http.ResponseWriter, r *http.Request) {
	var v models.SetValues
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		writeBadRequest(w, "invalid JSON: "+err.Error())
		return
	}
	m, ok := s.current(w, r)
	if !ok {
		return
	}
	view, err := m.SetInputs(r.Context(), v)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type addExerciseRequest struct {
	ExerciseID    string `json:"exercise_id"`
	SourceEntryID string `json:"source_entry_id"`
}

func (s *Server) handleAddExercise(w http.ResponseWriter, r *http.Request) {
	var req addExerciseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON: "+err.Error())
		return
	}
	if req.ExerciseID == "" {
		writeBadRequest(w, "exercise_id is required")
		return
	}
	m, ok := s.current(w, r)
	if !ok {
		return
	}
	ex, err := s.store.GetExercise(r.Context(), req.ExerciseID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	view, err := m.AddExercise(r.Context(), *ex, req.SourceEntryID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleSessionAction(w http.ResponseWriter, r *http.Request) {
	action := chi.URLParam(r, "action")
	m, ok := s.current(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	if action == "finish" {
		summary, err := m.Finish(ctx)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.cache.Invalidate()
		writeJSON(w, http.StatusOK, summary)
		return
	}

	var (
		view session.View
		err  error
	)
	switch action {
	case "shuffle":
		view, err = m.Shuffle(ctx)
	case "next":
		view, err = m.Next(ctx)
	case "repeat":
		view, err = m.Repeat(ctx)
	case "advance":
		view, err = m.Advance(ctx)
	case "skip":
		view, err = m.Skip(ctx)
	case "pause":
		view, err = m.SetActive(ctx, false)
	case "resume":
		view, err = m.SetActive(ctx, true)
	case "cancel":
		view, err = m.Cancel(ctx)
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown action " + action})
		return
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// sseKeepAlive is how often an idle event stream gets a comment line.
const sseKeepAlive = 30 * time.Second

// handleSessionEvents streams the caller's session views as server-sent events.
func (s *Server) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming unsupported"})
		return
	}
	uid := userIDFromContext(r)

	views := make(chan session.View, 16)
	unsubscribe := s.sessions.Subscribe(func(c session.Change) {
		if c.UserID != uid {
			return
		}
		select {
		case views <- c.View:
		default:
			// slow reader; it will catch up on the next change
		}
	})
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if m, err := s.sessions.Current(r.Context(), uid); err == nil {
		writeEvent(w, m.State())
	}
	flusher.Flush()

	ping := time.NewTicker(sseKeepAlive)
	defer ping.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case v := <-views:
			writeEvent(w, v)
			flusher.Flush()
		case <-ping.C:
			_, _ = fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, v session.View) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "event: state\ndata: %s\n\n", data)
}
