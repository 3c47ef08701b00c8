package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/meltforce/liftcoach/internal/backfill"
	"github.com/meltforce/liftcoach/internal/config"
	"github.com/meltforce/liftcoach/internal/models"
	"github.com/meltforce/liftcoach/internal/recommend"
	"github.com/meltforce/liftcoach/internal/session"
	"github.com/meltforce/liftcoach/internal/storage"
	"github.com/meltforce/liftcoach/internal/suggest"
)

func newSuggestCmd() *cobra.Command {
	var (
		exType      string
		maxWeight   float64
		maxReps     int
		maxDuration int
		sets        int
		bar         float64
	)

	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Print set targets for an exercise type and personal record",
		RunE: func(cmd *cobra.Command, _ []string) error {
			t := models.ExerciseType(exType)
			if !t.Valid() {
				return fmt.Errorf("unknown exercise type %q", exType)
			}
			if sets < 1 {
				return fmt.Errorf("--sets must be at least 1")
			}

			var rec *models.PersonalRecord
			if maxWeight > 0 || maxReps > 0 || maxDuration > 0 {
				rec = &models.PersonalRecord{}
				if maxWeight > 0 {
					rec.MaxWeight = models.Float(maxWeight)
				}
				if maxReps > 0 {
					rec.MaxReps = models.Int(maxReps)
				}
				if maxDuration > 0 {
					rec.MaxDuration = models.Int(maxDuration)
				}
			}

			p := suggest.DefaultParams()
			if bar > 0 {
				p = p.WithEmptyBar(bar)
			}
			engine := suggest.New(p)

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "SET\tWEIGHT\tREPS\tDURATION\tNOTE")
			for n := 1; n <= sets; n++ {
				s := engine.Calculate(t, n, rec)
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", n, floatCell(s.Weight), intCell(s.Reps), intCell(s.Duration), s.Note.Label())
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&exType, "type", "weight", "exercise type (weight, duration, bodyweight, warmup)")
	cmd.Flags().Float64Var(&maxWeight, "max-weight", 0, "best weight")
	cmd.Flags().IntVar(&maxReps, "max-reps", 0, "reps at the best weight, or best reps")
	cmd.Flags().IntVar(&maxDuration, "max-duration", 0, "best hold in seconds")
	cmd.Flags().IntVar(&sets, "sets", 5, "number of sets to print")
	cmd.Flags().Float64Var(&bar, "bar", 0, "empty bar weight (default 20)")
	return cmd
}

func newLadderCmd() *cobra.Command {
	var target float64

	cmd := &cobra.Command{
		Use:   "ladder",
		Short: "Print the warm-up weights leading up to a target weight",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if target <= 0 {
				return fmt.Errorf("--target must be positive")
			}
			ladder := suggest.New(suggest.DefaultParams()).WarmupLadder(target)
			out := cmd.OutOrStdout()
			if len(ladder) == 0 {
				_, err := fmt.Fprintln(out, "no warm-up sets below the target")
				return err
			}
			for i, w := range ladder {
				fmt.Fprintf(out, "%d. %s\n", i+1, formatWeight(w))
			}
			_, err := fmt.Fprintf(out, "then %s\n", formatWeight(target))
			return err
		},
	}

	cmd.Flags().Float64Var(&target, "target", 0, "working weight")
	return cmd
}

func newRecommendCmd() *cobra.Command {
	var (
		configPath string
		userID     int
	)

	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Print today's recommended workout from the training history",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			db, err := storage.New(ctx, cfg.Database.DSN())
			if err != nil {
				return err
			}
			defer db.Close()

			history, err := db.RecentSessions(ctx, userID, 10)
			if err != nil {
				return err
			}
			catalog, err := db.ListExercises(ctx, models.ExerciseFilter{})
			if err != nil {
				return err
			}
			return printPlan(cmd.OutOrStdout(), recommend.New().Plan(history, catalog))
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "config.yaml", "path to config file")
	cmd.Flags().IntVar(&userID, "user", 1, "user id")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	var configPath, migrationsPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if err := storage.RunMigrations(cfg.Database.DSN(), migrationsPath); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return err
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "config.yaml", "path to config file")
	cmd.Flags().StringVar(&migrationsPath, "migrations", "migrations", "migrations directory")
	return cmd
}

func newImportCmd() *cobra.Command {
	var (
		configPath string
		userID     int
		tz         string
		dryRun     bool
	)

	cmd := &cobra.Command{
		Use:   "import <export.csv>",
		Short: "Import past workouts from an Alpha Progression CSV export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := time.LoadLocation(tz)
			if err != nil {
				return fmt.Errorf("loading time zone: %w", err)
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			workouts, err := backfill.Parse(f, loc)
			if err != nil {
				return fmt.Errorf("parsing %s: %w", args[0], err)
			}

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			db, err := storage.New(ctx, cfg.Database.DSN())
			if err != nil {
				return err
			}
			defer db.Close()

			log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelInfo}))
			im := &backfill.Importer{
				Catalog:   db,
				Sessions:  db,
				Finalizer: session.WriteSequence{Sessions: db, Records: db, Stats: db, Log: log},
				Log:       log,
			}
			rep, err := im.Import(ctx, userID, workouts, dryRun)
			if err != nil {
				return err
			}
			return printReport(cmd.OutOrStdout(), rep)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "config.yaml", "path to config file")
	cmd.Flags().IntVar(&userID, "user", 1, "user id")
	cmd.Flags().StringVar(&tz, "tz", "Local", "time zone of the export's timestamps")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "match and count without writing")
	return cmd
}

func printReport(w io.Writer, rep backfill.Report) error {
	verb := "imported"
	if rep.DryRun {
		verb = "would import"
	}
	fmt.Fprintf(w, "%d workouts: %s %d, %d already stored, %d with no matching exercises\n",
		rep.Workouts, verb, rep.Imported, rep.Existing, rep.Empty)
	for _, name := range rep.Unmatched {
		fmt.Fprintf(w, "  not in catalog: %s\n", name)
	}
	for _, r := range rep.NewRecords {
		fmt.Fprintf(w, "  new record: %s %s %s\n", r.ExerciseID, r.Metric, formatWeight(r.Value))
	}
	return nil
}

func printPlan(w io.Writer, p recommend.Plan) error {
	fmt.Fprintf(w, "Workout: %s\n\n", p.WorkoutType)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ROLE\tEXERCISE\tSETS\tREPS\tREST")
	for _, ex := range p.Exercises {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%ds\n", ex.Role, ex.Name, ex.Sets, ex.Reps, ex.RestSeconds)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w, "\nRecovery:")
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, st := range p.Recovery {
		days := "never"
		if !st.Never() {
			days = strconv.Itoa(st.DaysSinceLastTrained) + "d"
		}
		state := "recovering"
		if st.IsRecovered {
			state = "recovered"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", st.MuscleGroup, days, state)
	}
	return tw.Flush()
}

func floatCell(v *float64) string {
	if v == nil {
		return "-"
	}
	return formatWeight(*v)
}

func intCell(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}

func formatWeight(w float64) string {
	return strconv.FormatFloat(w, 'f', -1, 64)
}
