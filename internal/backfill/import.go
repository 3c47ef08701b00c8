package backfill

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/meltforce/liftcoach/internal/models"
	"github.com/meltforce/liftcoach/internal/session"
)

// namespace seeds the deterministic ids of imported sessions, so importing
// the same export twice finds the sessions already present.
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/meltforce/liftcoach/backfill/alpha"))

// Catalog lists the known exercises.
type Catalog interface {
	ListExercises(ctx context.Context, f models.ExerciseFilter) ([]models.ExerciseDescriptor, error)
}

// SessionLookup reports whether a finished session is already stored.
type SessionLookup interface {
	SessionExists(ctx context.Context, id uuid.UUID) (bool, error)
}

// Importer writes parsed workouts through the same finalizer live sessions use.
type Importer struct {
	Catalog   Catalog
	Sessions  SessionLookup
	Finalizer session.Finalizer
	Log       *slog.Logger
}

// Report summarizes an import.
type Report struct {
	Workouts   int                `json:"workouts"`
	Imported   int                `json:"imported"`
	Existing   int                `json:"existing"`
	Empty      int                `json:"empty"`
	Unmatched  []string           `json:"unmatched,omitempty"`
	NewRecords []models.NewRecord `json:"new_records,omitempty"`
	DryRun     bool               `json:"dry_run,omitempty"`
}

// Import stores workouts oldest first so records reconcile in order.
// Exercises missing from the catalog are reported and left out; a workout
// with nothing left is skipped. With dryRun nothing is written.
func (im *Importer) Import(ctx context.Context, userID int, workouts []Workout, dryRun bool) (Report, error) {
	log := im.Log
	if log == nil {
		log = slog.Default()
	}

	catalog, err := im.Catalog.ListExercises(ctx, models.ExerciseFilter{})
	if err != nil {
		return Report{}, fmt.Errorf("loading catalog: %w", err)
	}
	match := newMatcher(catalog)

	sorted := make([]Workout, len(workouts))
	copy(sorted, workouts)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	rep := Report{Workouts: len(sorted), DryRun: dryRun}
	unmatched := map[string]bool{}

	for _, w := range sorted {
		res := im.result(userID, w, match, unmatched)
		if len(res.Exercises) == 0 {
			rep.Empty++
			continue
		}

		exists, err := im.Sessions.SessionExists(ctx, res.SessionID)
		if err != nil {
			return rep, fmt.Errorf("checking session %s: %w", res.SessionID, err)
		}
		if exists {
			rep.Existing++
			continue
		}
		if dryRun {
			rep.Imported++
			continue
		}

		records, err := im.Finalizer.Finalize(ctx, res)
		if err != nil {
			return rep, fmt.Errorf("importing %q on %s: %w", w.Name, w.Date.Format("2006-01-02"), err)
		}
		rep.Imported++
		rep.NewRecords = append(rep.NewRecords, records...)
		log.Info("imported workout", "name", w.Name, "date", w.Date, "exercises", len(res.Exercises), "sets", res.SetCount())
	}

	for name := range unmatched {
		rep.Unmatched = append(rep.Unmatched, name)
	}
	sort.Strings(rep.Unmatched)
	return rep, nil
}

// SessionID returns the id an imported workout is stored under.
func SessionID(userID int, w Workout) uuid.UUID {
	key := fmt.Sprintf("%d|%s|%s", userID, w.Date.UTC().Format("2006-01-02T15:04"), w.Name)
	return uuid.NewSHA1(namespace, []byte(key))
}

func (im *Importer) result(userID int, w Workout, match matcher, unmatched map[string]bool) session.Result {
	res := session.Result{
		UserID:         userID,
		SessionID:      SessionID(userID, w),
		StartedAt:      w.Date,
		FinishedAt:     w.Date.Add(w.Duration),
		ElapsedSeconds: int(w.Duration.Seconds()),
	}

	for _, ex := range w.Exercises {
		d, ok := match.find(ex.Name)
		if !ok {
			unmatched[ex.Name] = true
			continue
		}
		sets := completedSets(d.Type, ex.WorkingSets())
		if len(sets) == 0 {
			continue
		}
		res.Exercises = append(res.Exercises, session.ExerciseResult{
			Exercise:   models.SessionExercise{ExerciseID: d.ID, Order: len(res.Exercises)},
			Descriptor: d,
			Sets:       sets,
		})
	}
	return res
}

// completedSets converts logged sets to the fields the exercise type keeps.
// The export has no hold times, so duration exercises get nothing.
func completedSets(t models.ExerciseType, logged []Set) []models.CompletedSet {
	if t == models.ExerciseDuration {
		return nil
	}
	var out []models.CompletedSet
	for _, s := range logged {
		v := models.SetValues{Reps: models.Int(s.Reps)}
		if s.Weight > 0 {
			v.Weight = models.Float(s.Weight)
		}
		if !v.Recordable(t) {
			continue
		}
		v = v.ForType(t)
		out = append(out, models.CompletedSet{
			SetNumber: len(out) + 1,
			Weight:    v.Weight,
			Reps:      v.Reps,
		})
	}
	return out
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// normalize lower-cases, drops punctuation and a plural "s" per word.
func normalize(name string) string {
	words := strings.Fields(nonAlnum.ReplaceAllString(strings.ToLower(name), " "))
	for i, w := range words {
		if len(w) > 3 && strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss") {
			words[i] = w[:len(w)-1]
		}
	}
	return strings.Join(words, " ")
}

type matcher struct {
	exact   map[string]models.ExerciseDescriptor
	catalog []models.ExerciseDescriptor
	names   []string
}

func newMatcher(catalog []models.ExerciseDescriptor) matcher {
	m := matcher{exact: make(map[string]models.ExerciseDescriptor), catalog: catalog}
	for _, d := range catalog {
		n := normalize(d.Name)
		m.names = append(m.names, n)
		if _, dup := m.exact[n]; !dup {
			m.exact[n] = d
		}
	}
	return m
}

// find matches on the normalized name, then on the longest catalog name
// contained in it as whole words.
func (m matcher) find(name string) (models.ExerciseDescriptor, bool) {
	n := normalize(name)
	if d, ok := m.exact[n]; ok {
		return d, true
	}
	best := -1
	padded := " " + n + " "
	for i, cn := range m.names {
		if cn == "" || !strings.Contains(padded, " "+cn+" ") {
			continue
		}
		if best < 0 || len(cn) > len(m.names[best]) {
			best = i
		}
	}
	if best < 0 {
		return models.ExerciseDescriptor{}, false
	}
	return m.catalog[best], true
}
