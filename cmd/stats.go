package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/gretutor/internal/store"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show recent tutoring sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		dbPath, err := resolveDBPath(cmd)
		if err != nil {
			return fmt.Errorf("resolve database path: %w", err)
		}
		s, err := store.Open(dbPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer s.Close()

		sessions, err := s.SessionRepo().Recent(context.Background(), limit)
		if err != nil {
			return fmt.Errorf("query sessions: %w", err)
		}
		if len(sessions) == 0 {
			fmt.Println("No sessions recorded yet.")
			return nil
		}

		fmt.Printf("%-10s  %-19s  %-4s  %5s  %8s  %7s  %9s\n",
			"Session", "Started", "Mode", "Total", "Answered", "Correct", "HintLoops")
		fmt.Println(strings.Repeat("─", 76))

		for _, rec := range sessions {
			fmt.Printf("%-10s  %-19s  %-4s  %5d  %8d  %7d  %9d\n",
				rec.ID[:8],
				rec.StartedAt.Local().Format("2006-01-02 15:04:05"),
				rec.Mode,
				rec.Total,
				rec.Answered,
				rec.Correct,
				rec.FirstAttemptWrong,
			)
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().IntP("limit", "n", 20, "Number of sessions to show")
}
