package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newConfigCommand() *cobra.Command {
	configCommand := &cobra.Command{
		Use:   "config",
		Short: "Configuration commands",
	}

	configCommand.AddCommand(newConfigValidateCommand())
	configCommand.AddCommand(newConfigShowCommand())

	return configCommand
}

func newConfigValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load and validate the configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(); err != nil {
				return err
			}
			color.Green("Configuration is valid")
			return nil
		},
	}
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective practice settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			fmt.Printf("Local store:       %s\n", cfg.Database.Local.Path)
			fmt.Printf("Desired retention: %.2f\n", cfg.Practice.DesiredRetention)
			fmt.Printf("Maximum interval:  %d days\n", cfg.Practice.MaximumIntervalDays)
			fmt.Printf("Look-back window:  %d days\n", cfg.Practice.LookbackDays)
			fmt.Printf("Timezone offset:   %d minutes\n", cfg.Practice.TimezoneOffsetMinutes)
			fmt.Printf("Interval fuzz:     %t\n", cfg.Practice.EnableFuzz)
			if cfg.Scheduler.OverrideURL != "" {
				fmt.Printf("External scheduler: %s (timeout %dms)\n",
					cfg.Scheduler.OverrideURL, cfg.Scheduler.TimeoutMS)
			}
			return nil
		},
	}
}
