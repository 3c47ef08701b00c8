package suggest

import (
	"github.com/meltforce/liftcoach/internal/models"
)

// linear ramps from the empty bar to the record weight, then adds one
// fixed increment for every set after the working set.
func (e Engine) linear(setNumber int, rec *models.PersonalRecord) models.Suggestion {
	bar := e.p.EmptyBarWeight
	if setNumber == 1 {
		return models.Suggestion{
			Weight: models.Float(bar),
			Reps:   models.Int(e.p.WarmupReps),
			Note:   models.Note{Kind: models.NoteWarmup},
		}
	}

	if rec == nil || rec.MaxWeight == nil || *rec.MaxWeight <= 0 {
		note := models.Note{Kind: models.NoteWarmup}
		if setNumber > 3 {
			note = models.Note{Kind: models.NoteWorkingSet}
		}
		return models.Suggestion{
			Weight: models.Float(at(e.p.FallbackWeights, setNumber-1)),
			Reps:   models.Int(e.p.WarmupReps),
			Note:   note,
		}
	}

	target := *rec.MaxWeight
	targetReps := e.p.DefaultTargetReps
	if rec.MaxReps != nil && *rec.MaxReps > 0 {
		targetReps = *rec.MaxReps
	}

	ladder := e.WarmupLadder(target)
	switch {
	case setNumber-2 < len(ladder):
		return models.Suggestion{
			Weight: models.Float(ladder[setNumber-2]),
			Reps:   models.Int(e.p.WarmupReps),
			Note:   models.Note{Kind: models.NoteWarmup},
		}
	case setNumber-2 == len(ladder):
		return models.Suggestion{
			Weight: models.Float(target),
			Reps:   models.Int(targetReps),
			Note:   models.Note{Kind: models.NoteWorkingSet},
		}
	default:
		return models.Suggestion{
			Weight: models.Float(target + e.p.ProgressionIncrement),
			Reps:   models.Int(targetReps),
			Note:   models.Note{Kind: models.NoteProgression},
		}
	}
}

// WarmupLadder returns the intermediate weights between the empty bar and
// target, excluding both ends. Step size and count depend on the target tier.
func (e Engine) WarmupLadder(target float64) []float64 {
	bar := e.p.EmptyBarWeight
	gap := target - bar
	ladder := []float64{}

	switch {
	case gap < 15:
		if gap >= 7.5 {
			ladder = append(ladder, bar+5)
		}
	case target >= 100:
		for w := bar + 10; w < target && target-w > 15; w += 10 {
			ladder = append(ladder, w)
		}
	case target >= 60:
		for w := bar; len(ladder) < 3 && w+10 <= target-10; {
			w += 10
			ladder = append(ladder, w)
		}
	default:
		for w := bar; len(ladder) < 2 && w < target-10; {
			if target-w > 15 {
				w += 10
			} else {
				w += 5
			}
			ladder = append(ladder, w)
		}
	}
	return ladder
}

// percentage scales the record's max reps by the per-set percentage table.
func (e Engine) percentage(setNumber int, rec *models.PersonalRecord) models.Suggestion {
	if rec == nil || rec.MaxReps == nil || *rec.MaxReps <= 0 {
		return models.Suggestion{
			Reps: models.Int(at(e.p.FallbackReps, setNumber-1)),
			Note: models.Note{Kind: models.NoteNoRecord, Metric: "reps"},
		}
	}
	pct := at(e.p.RepPercentages, setNumber-1)
	return models.Suggestion{
		Reps: models.Int(percentOf(*rec.MaxReps, pct)),
		Note: percentNote(pct, "reps"),
	}
}

// duration is percentage applied to the record's max hold time in seconds.
func (e Engine) duration(setNumber int, rec *models.PersonalRecord) models.Suggestion {
	if rec == nil || rec.MaxDuration == nil || *rec.MaxDuration <= 0 {
		return models.Suggestion{
			Duration: models.Int(at(e.p.FallbackDurations, setNumber-1)),
			Note:     models.Note{Kind: models.NoteNoRecord, Metric: "duration"},
		}
	}
	pct := at(e.p.DurationPercentages, setNumber-1)
	return models.Suggestion{
		Duration: models.Int(percentOf(*rec.MaxDuration, pct)),
		Note:     percentNote(pct, "duration"),
	}
}
