package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the local summarization chat history",
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				limit = cfg.HistoryLimit
			}

			entries, err := histStore.Tail(limit)
			if err != nil {
				return fmt.Errorf("failed to load history: %w", err)
			}

			if len(entries) == 0 {
				fmt.Println("No history yet. Run `skemmarize summarize <image>`.")
				return nil
			}

			for _, entry := range entries {
				fmt.Printf("[%s] %s\n", entry.CreatedAt.Local().Format("2006-01-02 15:04"), entry.Image)
				printExchange(entry.Image, entry.Prompt, entry.Summary)
			}

			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of exchanges to show")

	cmd.AddCommand(newHistoryClearCommand())
	cmd.AddCommand(newHistorySyncCommand())

	return cmd
}

func newHistoryClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete the local chat history",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := histStore.Clear(); err != nil {
				return fmt.Errorf("failed to clear history: %w", err)
			}
			fmt.Println("History cleared.")
			return nil
		},
	}
}

func newHistorySyncCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Pull the server-side summary listing into the local history",
		RunE: func(cmd *cobra.Command, args []string) error {
			mustLoadSession()

			summaries, err := apiClient.ListSummaries(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to fetch summaries: %w", err)
			}

			existing, err := histStore.List()
			if err != nil {
				return fmt.Errorf("failed to load history: %w", err)
			}
			seen := make(map[string]bool, len(existing))
			for _, entry := range existing {
				seen[entry.Image+"\x00"+entry.Summary] = true
			}

			added := 0
			for _, summary := range summaries {
				if seen[summary.ImageName+"\x00"+summary.Text] {
					continue
				}
				if _, err := histStore.Add(summary.ImageName, summary.Prompt, summary.Text); err != nil {
					return fmt.Errorf("failed to record history: %w", err)
				}
				added++
			}

			fmt.Printf("Synced %d new exchange(s).\n", added)
			return nil
		},
	}
}
