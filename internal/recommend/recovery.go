package recommend

import (
	"sort"
	"time"

	"github.com/meltforce/liftcoach/internal/models"
)

// Recovery windows in days. Legs need the longest, core the shortest.
const (
	legsRecoveryDays    = 3
	coreRecoveryDays    = 1
	defaultRecoveryDays = 2
)

// RecoveryThreshold returns the minimum rest days for a muscle group.
func RecoveryThreshold(g models.MuscleGroup) int {
	switch g {
	case models.MuscleLegs:
		return legsRecoveryDays
	case models.MuscleCore:
		return coreRecoveryDays
	default:
		return defaultRecoveryDays
	}
}

// daysBetween floors the whole days from then to now; future dates count as 0.
func daysBetween(then, now time.Time) int {
	d := now.Sub(then)
	if d < 0 {
		return 0
	}
	return int(d / (24 * time.Hour))
}

// newestFirst returns a copy of history sorted by date, newest first.
func newestFirst(history []models.HistorySession) []models.HistorySession {
	sorted := make([]models.HistorySession, len(history))
	copy(sorted, history)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.After(sorted[j].Date)
	})
	return sorted
}

// analyze computes the recovery status of every known muscle group plus any
// group that appears in history or the catalog. History must be newest first.
func analyze(history []models.HistorySession, catalog []models.ExerciseDescriptor, now time.Time) map[models.MuscleGroup]models.RecoveryStatus {
	statuses := make(map[models.MuscleGroup]models.RecoveryStatus)
	add := func(g models.MuscleGroup) {
		if g == "" {
			return
		}
		if _, ok := statuses[g]; ok {
			return
		}
		statuses[g] = models.RecoveryStatus{
			MuscleGroup:           g,
			DaysSinceLastTrained:  models.NeverTrained,
			RecoveryThresholdDays: RecoveryThreshold(g),
			IsRecovered:           true,
		}
	}
	for _, g := range models.KnownMuscleGroups {
		add(g)
	}
	for _, d := range catalog {
		add(d.MuscleGroup)
	}

	seen := make(map[models.MuscleGroup]bool)
	for _, s := range history {
		for _, ex := range s.Exercises {
			g := ex.MuscleGroup
			if g == "" || seen[g] {
				continue
			}
			seen[g] = true
			add(g)
			st := statuses[g]
			st.DaysSinceLastTrained = daysBetween(s.Date, now)
			st.IsRecovered = st.DaysSinceLastTrained >= st.RecoveryThresholdDays
			statuses[g] = st
		}
	}
	return statuses
}

// sortedStatuses orders statuses by group name for stable output.
func sortedStatuses(m map[models.MuscleGroup]models.RecoveryStatus) []models.RecoveryStatus {
	out := make([]models.RecoveryStatus, 0, len(m))
	for _, st := range m {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MuscleGroup < out[j].MuscleGroup })
	return out
}
