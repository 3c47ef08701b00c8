// Package recommend picks the next workout's exercises from training history
// and per-muscle-group recovery windows. It never fails: a role whose
// candidate pool is empty is simply left out.
package recommend

import (
	"strings"
	"time"

	"github.com/meltforce/liftcoach/internal/models"
)

// WorkoutType is the session split chosen from recent history.
type WorkoutType string

const (
	WorkoutPush     WorkoutType = "push"
	WorkoutPull     WorkoutType = "pull"
	WorkoutLegs     WorkoutType = "legs"
	WorkoutUpper    WorkoutType = "upper"
	WorkoutFullBody WorkoutType = "full_body"
)

// forceLegsAfterDays forces a leg day once legs have rested this long.
const forceLegsAfterDays = 4

// recentSessionsExcluded is how many of the newest sessions contribute
// exercise ids to the exclusion set.
const recentSessionsExcluded = 2

// marqueeLifts are preferred for the main slot, matched as name substrings.
var marqueeLifts = []string{"squat", "deadlift", "bench press", "overhead press", "barbell row"}

// accessoryPreferred are preferred for the accessory slot.
var accessoryPreferred = []string{"pull-up", "dip"}

type template struct {
	sets int
	reps string
	rest int
}

var templates = map[models.Role]template{
	models.RoleMain:      {sets: 4, reps: "5", rest: 180},
	models.RoleSecondary: {sets: 3, reps: "8", rest: 120},
	models.RoleAccessory: {sets: 3, reps: "10-12", rest: 90},
}

// Plan is a full recommendation with the reasoning inputs that produced it.
type Plan struct {
	WorkoutType WorkoutType                  `json:"workout_type"`
	Recovery    []models.RecoveryStatus      `json:"recovery"`
	Exercises   []models.RecommendedExercise `json:"exercises"`
	GeneratedAt time.Time                    `json:"generated_at"`
}

// Recommender holds the clock used for recovery math.
type Recommender struct {
	Now func() time.Time
}

// New returns a Recommender on the wall clock.
func New() Recommender {
	return Recommender{Now: time.Now}
}

func (r Recommender) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

// Recommend returns up to three exercises in main, secondary, accessory order.
func (r Recommender) Recommend(history []models.HistorySession, catalog []models.ExerciseDescriptor) []models.RecommendedExercise {
	return r.Plan(history, catalog).Exercises
}

// Analyze returns recovery statuses sorted by muscle group.
func (r Recommender) Analyze(history []models.HistorySession, catalog []models.ExerciseDescriptor) []models.RecoveryStatus {
	return sortedStatuses(analyze(newestFirst(history), catalog, r.now()))
}

// Plan runs the full pipeline: recovery, classification, then the three role picks.
func (r Recommender) Plan(history []models.HistorySession, catalog []models.ExerciseDescriptor) Plan {
	now := r.now()
	history = newestFirst(history)
	status := analyze(history, catalog, now)
	wt := classify(history, status)

	recent := make(map[string]bool)
	for i := 0; i < len(history) && i < recentSessionsExcluded; i++ {
		for _, ex := range history[i].Exercises {
			recent[ex.ExerciseID] = true
		}
	}

	var picks []models.RecommendedExercise
	used := make(map[string]bool)

	groups := muscleGroupsFor(wt)
	compound := func(d models.ExerciseDescriptor) bool {
		return d.Type == models.ExerciseWeight && d.Pattern == models.PatternComplex && inGroups(d.MuscleGroup, groups)
	}

	mainPool := filter(catalog, compound)
	if main, ok := pickPreferred(withoutRecent(mainPool, recent), marqueeLifts); ok {
		picks = append(picks, recommended(main, models.RoleMain))
		used[main.ID] = true
	}

	secondaryPool := filter(catalog, func(d models.ExerciseDescriptor) bool {
		st, ok := status[d.MuscleGroup]
		recovered := !ok || st.IsRecovered
		return compound(d) && !used[d.ID] && recovered
	})
	if second, ok := pickPreferred(withoutRecent(secondaryPool, recent), nil); ok {
		picks = append(picks, recommended(second, models.RoleSecondary))
		used[second.ID] = true
	}

	accGroups := accessoryGroupsFor(wt)
	accessoryPool := filter(catalog, func(d models.ExerciseDescriptor) bool {
		shape := (d.Type == models.ExerciseBodyweight && d.Pattern == models.PatternComplex) ||
			(d.Type == models.ExerciseWeight && d.Pattern == models.PatternIso)
		return shape && inGroups(d.MuscleGroup, accGroups) && !used[d.ID]
	})
	if acc, ok := pickPreferred(withoutRecent(accessoryPool, recent), accessoryPreferred); ok {
		picks = append(picks, recommended(acc, models.RoleAccessory))
	}

	return Plan{
		WorkoutType: wt,
		Recovery:    sortedStatuses(status),
		Exercises:   picks,
		GeneratedAt: now,
	}
}

// Classify returns the workout type the recommender would choose.
func (r Recommender) Classify(history []models.HistorySession) WorkoutType {
	history = newestFirst(history)
	return classify(history, analyze(history, nil, r.now()))
}

func classify(history []models.HistorySession, status map[models.MuscleGroup]models.RecoveryStatus) WorkoutType {
	if len(history) == 0 {
		return WorkoutFullBody
	}
	legs := status[models.MuscleLegs]
	if legs.DaysSinceLastTrained >= forceLegsAfterDays {
		return WorkoutLegs
	}

	var wasPush, wasPull bool
	for _, ex := range history[0].Exercises {
		name := strings.ToLower(ex.Name)
		if (strings.Contains(name, "bench") || strings.Contains(name, "press")) && !strings.Contains(name, "leg") {
			wasPush = true
		}
		if strings.Contains(name, "deadlift") || strings.Contains(name, "row") || strings.Contains(name, "pull") {
			wasPull = true
		}
	}

	switch {
	case wasPush:
		return WorkoutPull
	case wasPull:
		if legs.IsRecovered {
			return WorkoutLegs
		}
		return WorkoutPush
	default:
		// squat/lunge sessions and unmatched sessions both lead to push
		return WorkoutPush
	}
}

// muscleGroupsFor returns the compound groups for a workout type; nil means any.
func muscleGroupsFor(wt WorkoutType) []models.MuscleGroup {
	switch wt {
	case WorkoutLegs:
		return []models.MuscleGroup{models.MuscleLegs}
	case WorkoutPush:
		return []models.MuscleGroup{models.MuscleChest, models.MuscleShoulders}
	case WorkoutPull:
		return []models.MuscleGroup{models.MuscleBack}
	case WorkoutUpper:
		return []models.MuscleGroup{models.MuscleChest, models.MuscleBack, models.MuscleShoulders}
	case WorkoutFullBody:
		return nil
	}
	return nil
}

func accessoryGroupsFor(wt WorkoutType) []models.MuscleGroup {
	groups := muscleGroupsFor(wt)
	if wt == WorkoutPush || wt == WorkoutPull {
		groups = append(groups, models.MuscleArms)
	}
	return groups
}

func inGroups(g models.MuscleGroup, groups []models.MuscleGroup) bool {
	if groups == nil {
		return true
	}
	for _, x := range groups {
		if x == g {
			return true
		}
	}
	return false
}

func filter(catalog []models.ExerciseDescriptor, keep func(models.ExerciseDescriptor) bool) []models.ExerciseDescriptor {
	var out []models.ExerciseDescriptor
	for _, d := range catalog {
		if keep(d) {
			out = append(out, d)
		}
	}
	return out
}

// withoutRecent drops recently used exercises unless that would empty the pool.
func withoutRecent(pool []models.ExerciseDescriptor, recent map[string]bool) []models.ExerciseDescriptor {
	fresh := filter(pool, func(d models.ExerciseDescriptor) bool { return !recent[d.ID] })
	if len(fresh) == 0 {
		return pool
	}
	return fresh
}

// pickPreferred returns the first candidate matching a preferred keyword,
// else the first candidate.
func pickPreferred(cands []models.ExerciseDescriptor, preferred []string) (models.ExerciseDescriptor, bool) {
	if len(cands) == 0 {
		return models.ExerciseDescriptor{}, false
	}
	if len(preferred) > 0 {
		for _, d := range cands {
			if d.NameContains(preferred...) {
				return d, true
			}
		}
	}
	return cands[0], true
}

func recommended(d models.ExerciseDescriptor, role models.Role) models.RecommendedExercise {
	t := templates[role]
	return models.RecommendedExercise{
		ExerciseID:  d.ID,
		Name:        d.Name,
		Role:        role,
		Sets:        t.sets,
		Reps:        t.reps,
		RestSeconds: t.rest,
	}
}
