package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/meltforce/liftcoach/internal/backfill"
)

// maxImportBytes caps an uploaded export.
const maxImportBytes = 10 << 20

// handleAlphaImport imports an Alpha Progression CSV export for the caller.
// Query: dry_run (bool), tz (IANA zone the export's times are in, default UTC).
func (s *Server) handleAlphaImport(w http.ResponseWriter, r *http.Request) {
	if s.importer == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "import is not configured"})
		return
	}

	q := r.URL.Query()
	dryRun := false
	if v := q.Get("dry_run"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeBadRequest(w, "dry_run must be a boolean")
			return
		}
		dryRun = b
	}
	loc := time.UTC
	if tz := q.Get("tz"); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			writeBadRequest(w, "unknown time zone "+tz)
			return
		}
		loc = l
	}

	workouts, err := backfill.Parse(http.MaxBytesReader(w, r.Body, maxImportBytes), loc)
	if err != nil {
		s.log.Warn("alpha import parse error", "error", err)
		writeBadRequest(w, err.Error())
		return
	}

	rep, err := s.importer.Import(r.Context(), userIDFromContext(r), workouts, dryRun)
	if err != nil {
		s.log.Error("alpha import error", "error", err, "imported", rep.Imported)
		s.writeError(w, err)
		return
	}
	if rep.Imported > 0 && !dryRun {
		s.cache.Invalidate()
	}
	writeJSON(w, http.StatusOK, rep)
}
