package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/reelbook/reelbook/internal/adapter"
)

func newSyncCommand() *cobra.Command {
	syncCommand := &cobra.Command{
		Use:   "sync",
		Short: "Outbound sync commands",
	}

	syncCommand.AddCommand(newSyncPendingCommand())

	return syncCommand
}

func newSyncPendingCommand() *cobra.Command {
	var (
		limit   int
		showRow bool
	)
	command := &cobra.Command{
		Use:   "pending",
		Short: "List captured changes waiting for the next sync",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer func() {
				_ = app.Close()
			}()

			registry, err := adapter.NewRegistry(adapter.DefaultTables()...)
			if err != nil {
				return err
			}

			changes, err := app.outbox.Pending(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("failed to read pending changes: %w", err)
			}
			if len(changes) == 0 {
				fmt.Println("Nothing to sync.")
				return nil
			}

			writer := table.NewWriter()
			writer.SetOutputMirror(os.Stdout)
			writer.AppendHeader(table.Row{"Recorded", "Table", "Op", "Key", "Conflict key"})
			for _, change := range changes {
				conflictKey, err := registry.ConflictKey(change.TableName)
				if err != nil {
					return err
				}
				writer.AppendRow(table.Row{
					change.RecordedAt.Local().Format("2006-01-02 15:04:05"),
					change.TableName,
					change.Op,
					change.RowKey,
					strings.Join(conflictKey, ", "),
				})

				if showRow {
					remote, err := remoteRow(registry, change.TableName, change.Payload)
					if err != nil {
						return err
					}
					fmt.Println(remote)
				}
			}
			writer.Render()
			return nil
		},
	}
	command.Flags().IntVar(&limit, "limit", 50, "maximum changes to list")
	command.Flags().BoolVar(&showRow, "rows", false, "print each change's remote row representation")
	return command
}

// remoteRow renders a captured local row the way the transport would send it.
func remoteRow(registry *adapter.Registry, tableName string, payload []byte) (string, error) {
	var localRow map[string]any
	if err := json.Unmarshal(payload, &localRow); err != nil {
		return "", fmt.Errorf("json.Unmarshal() > %w", err)
	}
	remote, err := registry.ToRemote(tableName, localRow)
	if err != nil {
		return "", fmt.Errorf("registry.ToRemote() > %w", err)
	}

	keys := make([]string, 0, len(remote))
	for k := range remote {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "%s=%v", k, remote[k])
	}
	return b.String(), nil
}
