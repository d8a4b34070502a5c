package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/reelbook/reelbook/internal/queue"
)

func newQueueCommand() *cobra.Command {
	queueCommand := &cobra.Command{
		Use:   "queue",
		Short: "Daily practice queue commands",
	}

	queueCommand.AddCommand(newQueueGenerateCommand())
	queueCommand.AddCommand(newQueueShowCommand())
	queueCommand.AddCommand(newQueueRefillCommand())

	return queueCommand
}

func newQueueGenerateCommand() *cobra.Command {
	var (
		userRef       string
		repertoireRef int64
		atFlag        string
		force         bool
		backfill      bool
	)
	command := &cobra.Command{
		Use:   "generate",
		Short: "Build today's practice queue for a repertoire",
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

			entries, err := app.generator.Generate(cmd.Context(), userRef, repertoireRef, at,
				queue.GenerateOptions{Force: force, IncludeBackfill: backfill})
			if err != nil {
				return fmt.Errorf("failed to generate the queue: %w", err)
			}

			fmt.Printf("Queue for %s (%d tunes)\n", app.generator.WindowStart(at).Format("2006-01-02"), len(entries))
			renderQueue(entries)
			return nil
		},
	}
	command.Flags().StringVar(&userRef, "user", "default", "user the queue belongs to")
	command.Flags().Int64Var(&repertoireRef, "repertoire", 0, "repertoire ID")
	command.Flags().StringVar(&atFlag, "at", "", "sit-down time (RFC3339, default now)")
	command.Flags().BoolVar(&force, "force", false, "supersede an existing queue for the day")
	command.Flags().BoolVar(&backfill, "backfill", false, "include tunes older than the look-back window")
	_ = command.MarkFlagRequired("repertoire")
	return command
}

func newQueueShowCommand() *cobra.Command {
	var (
		userRef       string
		repertoireRef int64
		atFlag        string
	)
	command := &cobra.Command{
		Use:   "show",
		Short: "Show today's active queue",
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

			entries, err := app.generator.Active(cmd.Context(), userRef, repertoireRef, app.generator.WindowStart(at))
			if err != nil {
				return fmt.Errorf("failed to read the queue: %w", err)
			}
			if len(entries) == 0 {
				fmt.Println("No active queue for today. Run 'reelbook queue generate' first.")
				return nil
			}
			renderQueue(entries)
			return nil
		},
	}
	command.Flags().StringVar(&userRef, "user", "default", "user the queue belongs to")
	command.Flags().Int64Var(&repertoireRef, "repertoire", 0, "repertoire ID")
	command.Flags().StringVar(&atFlag, "at", "", "day to show (RFC3339, default now)")
	_ = command.MarkFlagRequired("repertoire")
	return command
}

func newQueueRefillCommand() *cobra.Command {
	var (
		userRef       string
		repertoireRef int64
		atFlag        string
		count         int
	)
	command := &cobra.Command{
		Use:   "refill",
		Short: "Append backfill tunes to today's queue",
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

			added, err := app.generator.Refill(cmd.Context(), userRef, repertoireRef,
				app.generator.WindowStart(at), count)
			if err != nil {
				return fmt.Errorf("failed to refill the queue: %w", err)
			}
			if len(added) == 0 {
				fmt.Println("Nothing left to refill.")
				return nil
			}
			fmt.Printf("Added %d tunes\n", len(added))
			renderQueue(added)
			return nil
		},
	}
	command.Flags().StringVar(&userRef, "user", "default", "user the queue belongs to")
	command.Flags().Int64Var(&repertoireRef, "repertoire", 0, "repertoire ID")
	command.Flags().StringVar(&atFlag, "at", "", "day to refill (RFC3339, default now)")
	command.Flags().IntVar(&count, "count", 5, "number of tunes to add")
	_ = command.MarkFlagRequired("repertoire")
	return command
}

func renderQueue(entries []queue.Entry) {
	writer := table.NewWriter()
	writer.SetOutputMirror(os.Stdout)
	writer.AppendHeader(table.Row{"#", "Tune", "Bucket", "Due", "Done"})
	for _, entry := range entries {
		due := "-"
		if entry.DueAtGeneration != nil {
			due = entry.DueAtGeneration.Local().Format("2006-01-02")
		}
		done := ""
		if entry.CompletedAt != nil {
			done = entry.CompletedAt.Local().Format(time.Kitchen)
		}
		writer.AppendRow(table.Row{
			entry.OrderIndex + 1, entry.TuneRef, bucketLabel(entry.Bucket), due, done,
		})
	}
	writer.Render()
}

func bucketLabel(bucket int) string {
	switch bucket {
	case queue.BucketToday:
		return color.GreenString("today")
	case queue.BucketLapsed:
		return color.YellowString("lapsed")
	case queue.BucketBackfill:
		return color.CyanString("backfill")
	default:
		return fmt.Sprintf("%d", bucket)
	}
}
