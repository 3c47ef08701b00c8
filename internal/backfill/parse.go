// Package backfill imports past workouts from Alpha Progression CSV exports
// so personal records and recovery history exist before the first live
// session.
package backfill

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Workout is one session of an export.
type Workout struct {
	Name      string
	Date      time.Time
	Duration  time.Duration
	Exercises []Exercise
}

// Exercise is one exercise block of a workout.
type Exercise struct {
	Position   int
	Name       string
	Equipment  string
	TargetReps int
	Sets       []Set
}

// Set is a logged set. AddedLoad marks "+N" notation: bodyweight plus N kg.
type Set struct {
	Number    int
	Weight    float64
	AddedLoad bool
	Reps      int
	RIR       float64
	Warmup    bool
}

// WorkingSets returns the sets that are not warm-ups.
func (e Exercise) WorkingSets() []Set {
	var out []Set
	for _, s := range e.Sets {
		if !s.Warmup {
			out = append(out, s)
		}
	}
	return out
}

var (
	// "Push · Day 1";"2026-02-17 5:04 h";"1:12 hr"
	workoutLine = regexp.MustCompile(`^"(.+)";"(\d{4}-\d{2}-\d{2}\s+\d+:\d+)\s+h";"(.+)"$`)

	// "1. Bench Press · Barbell · 6 reps[ · modifiers]"[;"WU1 · 22,5 kg · 10 reps<br>..."]
	exerciseLine = regexp.MustCompile(`^"(\d+)\.\s+(.+?)(?:\s+·\s+(\S.*?))?\s+·\s+(\d+)\s+reps(.*?)"(?:;"(.+)")?$`)

	// 1;102,5;6;0
	setLine = regexp.MustCompile(`^(\d+);(.+);(\d+);(.+)$`)

	warmupEntry = regexp.MustCompile(`WU(\d+)\s+·\s+(.+?)\s+kg\s+·\s+(\d+)\s+reps`)
)

const columnHeader = "#;KG;REPS;RIR"

type parser struct {
	loc      *time.Location
	workouts []Workout
	workout  *Workout
	exercise *Exercise
}

// Parse reads an export. Dates carry no zone and are read in loc; nil
// means UTC. Unrecognized lines are ignored.
func Parse(r io.Reader, loc *time.Location) ([]Workout, error) {
	if loc == nil {
		loc = time.UTC
	}
	p := &parser{loc: loc}

	sc := bufio.NewScanner(r)
	n := 0
	for sc.Scan() {
		n++
		if err := p.line(strings.TrimSpace(sc.Text())); err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading export: %w", err)
	}
	p.closeWorkout()
	return p.workouts, nil
}

func (p *parser) line(s string) error {
	switch {
	case s == "":
		// a blank line ends the workout
		p.closeWorkout()
		return nil
	case s == columnHeader:
		return nil
	}

	if m := workoutLine.FindStringSubmatch(s); m != nil {
		p.closeWorkout()
		date, err := parseDate(m[2], p.loc)
		if err != nil {
			return err
		}
		p.workout = &Workout{Name: m[1], Date: date, Duration: parseDuration(m[3])}
		return nil
	}

	if m := exerciseLine.FindStringSubmatch(s); m != nil {
		if p.workout == nil {
			return fmt.Errorf("exercise outside a workout: %q", s)
		}
		p.closeExercise()
		pos, _ := strconv.Atoi(m[1])
		target, _ := strconv.Atoi(m[4])
		p.exercise = &Exercise{
			Position:   pos,
			Name:       strings.TrimSpace(m[2]),
			Equipment:  strings.TrimSpace(m[3]),
			TargetReps: target,
			Sets:       parseWarmups(m[6]),
		}
		return nil
	}

	if m := setLine.FindStringSubmatch(s); m != nil {
		if p.exercise == nil {
			return fmt.Errorf("set outside an exercise: %q", s)
		}
		num, _ := strconv.Atoi(m[1])
		w, added := parseWeight(m[2])
		reps, _ := strconv.Atoi(m[3])
		p.exercise.Sets = append(p.exercise.Sets, Set{
			Number:    num,
			Weight:    w,
			AddedLoad: added,
			Reps:      reps,
			RIR:       parseDecimal(m[4]),
		})
	}
	return nil
}

func (p *parser) closeExercise() {
	if p.exercise != nil && p.workout != nil {
		p.workout.Exercises = append(p.workout.Exercises, *p.exercise)
	}
	p.exercise = nil
}

func (p *parser) closeWorkout() {
	p.closeExercise()
	if p.workout != nil {
		p.workouts = append(p.workouts, *p.workout)
	}
	p.workout = nil
}

func parseDate(s string, loc *time.Location) (time.Time, error) {
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02 3:04"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse date %q", s)
}

// parseDuration reads "1:12 hr" or "45 min". Unknown forms yield zero.
func parseDuration(s string) time.Duration {
	s = strings.TrimSpace(s)
	if v, ok := strings.CutSuffix(s, " min"); ok {
		m, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0
		}
		return time.Duration(m) * time.Minute
	}
	s = strings.TrimSuffix(strings.TrimSuffix(s, " hr"), " h")
	h, m, ok := strings.Cut(s, ":")
	if !ok {
		return 0
	}
	hours, err1 := strconv.Atoi(h)
	mins, err2 := strconv.Atoi(m)
	if err1 != nil || err2 != nil {
		return 0
	}
	return time.Duration(hours)*time.Hour + time.Duration(mins)*time.Minute
}

// parseWarmups reads "WU1 · 37,5 kg · 9 reps<br>WU2 · ...".
func parseWarmups(s string) []Set {
	if s == "" {
		return nil
	}
	var sets []Set
	for _, part := range strings.Split(s, "<br>") {
		m := warmupEntry.FindStringSubmatch(part)
		if m == nil {
			continue
		}
		num, _ := strconv.Atoi(m[1])
		w, added := parseWeight(m[2])
		reps, _ := strconv.Atoi(m[3])
		sets = append(sets, Set{Number: num, Weight: w, AddedLoad: added, Reps: reps, Warmup: true})
	}
	return sets
}

// parseWeight handles decimal commas and "+N" added load.
func parseWeight(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if v, ok := strings.CutPrefix(s, "+"); ok {
		return parseDecimal(v), true
	}
	return parseDecimal(s), false
}

func parseDecimal(s string) float64 {
	f, _ := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", "."), 64)
	return f
}
