package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/reelbook/reelbook/internal/card"
	"github.com/reelbook/reelbook/internal/practice"
)

func newPracticeCommand() *cobra.Command {
	practiceCommand := &cobra.Command{
		Use:   "practice",
		Short: "Record practice results",
	}

	practiceCommand.AddCommand(newPracticeRecordCommand())
	practiceCommand.AddCommand(newPracticeStageCommand())
	practiceCommand.AddCommand(newPracticeCommitCommand())
	practiceCommand.AddCommand(newPracticeUndoCommand())

	return practiceCommand
}

func newPracticeRecordCommand() *cobra.Command {
	var (
		userRef       string
		repertoireRef int64
		tuneRef       int64
		rating        string
		goal          string
		technique     string
		atFlag        string
	)
	command := &cobra.Command{
		Use:   "record",
		Short: "Rate one tune and commit it immediately",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer func() {
				_ = app.Close()
			}()

			at, err := parseAt(atFlag)
			if err != nil {
				return err
			}

			record, err := app.recorder.Record(cmd.Context(), userRef, practice.RecordInput{
				TuneRef:       tuneRef,
				RepertoireRef: repertoireRef,
				Rating:        rating,
				Goal:          goal,
				Technique:     technique,
				PracticedAt:   at,
			})
			if err != nil {
				return fmt.Errorf("failed to record the practice: %w", err)
			}

			color.Green("Recorded %s for tune %d", record.Quality, record.TuneRef)
			fmt.Printf("Next review: %s\n", record.Due.Local().Format("2006-01-02"))
			return nil
		},
	}
	command.Flags().StringVar(&userRef, "user", "default", "user recording the practice")
	command.Flags().Int64Var(&repertoireRef, "repertoire", 0, "repertoire ID")
	command.Flags().Int64Var(&tuneRef, "tune", 0, "tune ID")
	command.Flags().StringVar(&rating, "rating", "", "recall rating: again, hard, good or easy")
	command.Flags().StringVar(&goal, "goal", "", "practice goal (default recall)")
	command.Flags().StringVar(&technique, "technique", "", "practice technique")
	command.Flags().StringVar(&atFlag, "at", "", "practice time (RFC3339, default now)")
	_ = command.MarkFlagRequired("repertoire")
	_ = command.MarkFlagRequired("tune")
	_ = command.MarkFlagRequired("rating")
	return command
}

func newPracticeStageCommand() *cobra.Command {
	var (
		userRef       string
		repertoireRef int64
		tuneRef       int64
		rating        string
		goal          string
		technique     string
		notes         string
		atFlag        string
	)
	command := &cobra.Command{
		Use:   "stage",
		Short: "Stage a rating for the session, to be applied by practice commit",
		RunE: func(cmd *cobra.Command, args []string) error {
			if rating != "" {
				if _, err := card.ParseRating(rating); err != nil {
					return err
				}
			}

			app, err := newApp()
			if err != nil {
				return err
			}
			defer func() {
				_ = app.Close()
			}()

			staged := practice.StagedEvaluation{
				UserRef:       userRef,
				TuneRef:       tuneRef,
				RepertoireRef: repertoireRef,
				Goal:          goal,
				Technique:     technique,
				Notes:         notes,
			}
			// Without a rating the entry stays a draft; commit skips it.
			if rating != "" {
				at, err := parseAt(atFlag)
				if err != nil {
					return err
				}
				staged.Quality = &rating
				staged.PracticedAt = &at
			}

			if err := app.repo.UpsertStaged(cmd.Context(), staged); err != nil {
				return fmt.Errorf("failed to stage the rating: %w", err)
			}

			if rating == "" {
				color.Yellow("Drafted tune %d without a rating", tuneRef)
				return nil
			}
			color.Green("Staged %s for tune %d", rating, tuneRef)
			return nil
		},
	}
	command.Flags().StringVar(&userRef, "user", "default", "user staging the rating")
	command.Flags().Int64Var(&repertoireRef, "repertoire", 0, "repertoire ID")
	command.Flags().Int64Var(&tuneRef, "tune", 0, "tune ID")
	command.Flags().StringVar(&rating, "rating", "", "recall rating: again, hard, good or easy")
	command.Flags().StringVar(&goal, "goal", "", "practice goal (default recall)")
	command.Flags().StringVar(&technique, "technique", "", "practice technique")
	command.Flags().StringVar(&notes, "notes", "", "session notes for the tune")
	command.Flags().StringVar(&atFlag, "at", "", "practice time (RFC3339, default now)")
	_ = command.MarkFlagRequired("repertoire")
	_ = command.MarkFlagRequired("tune")
	return command
}

func newPracticeCommitCommand() *cobra.Command {
	var (
		userRef       string
		repertoireRef int64
		atFlag        string
	)
	command := &cobra.Command{
		Use:   "commit",
		Short: "Commit the session's staged ratings against today's queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer func() {
				_ = app.Close()
			}()

			at, err := parseAt(atFlag)
			if err != nil {
				return err
			}

			result, err := app.committer.Commit(cmd.Context(), userRef, repertoireRef,
				app.generator.WindowStart(at))
			if err != nil {
				return fmt.Errorf("failed to commit the session: %w", err)
			}

			color.Green("Committed %d ratings", result.Committed)
			if result.Skipped > 0 {
				color.Yellow("Skipped %d staged ratings outside today's queue", result.Skipped)
			}
			return nil
		},
	}
	command.Flags().StringVar(&userRef, "user", "default", "user committing the session")
	command.Flags().Int64Var(&repertoireRef, "repertoire", 0, "repertoire ID")
	command.Flags().StringVar(&atFlag, "at", "", "session day (RFC3339, default now)")
	_ = command.MarkFlagRequired("repertoire")
	return command
}

func newPracticeUndoCommand() *cobra.Command {
	var (
		repertoireRef int64
		tuneRef       int64
	)
	command := &cobra.Command{
		Use:   "undo",
		Short: "Undo the most recent practice record for a tune",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer func() {
				_ = app.Close()
			}()

			undone, err := app.recorder.UndoLast(cmd.Context(), tuneRef, repertoireRef)
			if err != nil {
				return fmt.Errorf("failed to undo the practice: %w", err)
			}

			fmt.Printf("Removed the %s rating from %s for tune %d\n",
				undone.Quality, undone.PracticedAt.Local().Format("2006-01-02 15:04"), undone.TuneRef)
			return nil
		},
	}
	command.Flags().Int64Var(&repertoireRef, "repertoire", 0, "repertoire ID")
	command.Flags().Int64Var(&tuneRef, "tune", 0, "tune ID")
	_ = command.MarkFlagRequired("repertoire")
	_ = command.MarkFlagRequired("tune")
	return command
}
