package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/skemmarize/skemmarize-cli/internal/config"
)

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change CLI configuration",
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigSetCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the active configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("Config (%s)\n", config.ConfigPath())
			fmt.Printf("  endpoint:                %s\n", cfg.Endpoint)
			fmt.Printf("  timeout_seconds:         %d\n", cfg.TimeoutSeconds)
			fmt.Printf("  refresh_timeout_seconds: %d\n", cfg.RefreshTimeoutSeconds)
			fmt.Printf("  history_limit:           %d\n", cfg.HistoryLimit)
			fmt.Printf("  default_prompt:          %s\n", cfg.DefaultPrompt)
			return nil
		},
	}
}

func newConfigSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]

			switch key {
			case "endpoint":
				cfg.Endpoint = value
			case "default_prompt":
				cfg.DefaultPrompt = value
			case "timeout_seconds", "refresh_timeout_seconds", "history_limit":
				n, err := strconv.Atoi(value)
				if err != nil || n <= 0 {
					return fmt.Errorf("%s must be a positive integer", key)
				}
				switch key {
				case "timeout_seconds":
					cfg.TimeoutSeconds = n
				case "refresh_timeout_seconds":
					cfg.RefreshTimeoutSeconds = n
				case "history_limit":
					cfg.HistoryLimit = n
				}
			default:
				return fmt.Errorf("unknown config key %q", key)
			}

			if err := config.Save(cfg); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			fmt.Printf("Set %s = %s\n", key, value)
			return nil
		},
	}
}
