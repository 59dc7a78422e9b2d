package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/gretutor/internal/llm"
	"github.com/abhisek/gretutor/internal/store"
)

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Inspect LLM request events and test provider connectivity",
}

var llmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent LLM requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		purpose, _ := cmd.Flags().GetString("purpose")

		dbPath, err := resolveDBPath(cmd)
		if err != nil {
			return fmt.Errorf("resolve database path: %w", err)
		}
		s, err := store.Open(dbPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer s.Close()

		events, err := s.EventRepo().RecentLLMRequests(context.Background(), limit)
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}
		if len(events) == 0 {
			fmt.Println("No LLM requests recorded.")
			return nil
		}

		fmt.Printf("%-5s  %-19s  %-10s  %-28s  %-6s  %-6s  %-7s  %s\n",
			"ID", "Timestamp", "Purpose", "Model", "In", "Out", "Ms", "OK")
		fmt.Println(strings.Repeat("─", 96))

		for _, e := range events {
			if purpose != "" && e.Purpose != purpose {
				continue
			}
			ok := "✓"
			if !e.Success {
				ok = "✗"
			}
			model := e.Model
			if len(model) > 28 {
				model = model[:28]
			}
			fmt.Printf("%-5d  %-19s  %-10s  %-28s  %-6d  %-6d  %-7d  %s\n",
				e.ID,
				e.Timestamp.Local().Format("2006-01-02 15:04:05"),
				e.Purpose,
				model,
				e.InputTokens,
				e.OutputTokens,
				e.LatencyMs,
				ok,
			)
		}
		return nil
	},
}

var llmStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregated LLM token usage by purpose",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath, err := resolveDBPath(cmd)
		if err != nil {
			return fmt.Errorf("resolve database path: %w", err)
		}
		s, err := store.Open(dbPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer s.Close()

		stats, err := s.EventRepo().UsageByPurpose(context.Background())
		if err != nil {
			return fmt.Errorf("query usage: %w", err)
		}
		if len(stats) == 0 {
			fmt.Println("No LLM usage recorded yet.")
			return nil
		}

		fmt.Printf("%-12s  %8s  %8s  %10s  %10s  %10s\n",
			"Purpose", "Calls", "Failed", "Input", "Output", "Total")
		fmt.Println(strings.Repeat("─", 66))

		var totalCalls, totalIn, totalOut int
		for _, st := range stats {
			fmt.Printf("%-12s  %8d  %8d  %10d  %10d  %10d\n",
				st.Purpose, st.Requests, st.Failures,
				st.InputTokens, st.OutputTokens, st.InputTokens+st.OutputTokens)
			totalCalls += st.Requests
			totalIn += st.InputTokens
			totalOut += st.OutputTokens
		}
		fmt.Println(strings.Repeat("─", 66))
		fmt.Printf("%-12s  %8d  %8s  %10d  %10d  %10d\n",
			"TOTAL", totalCalls, "", totalIn, totalOut, totalIn+totalOut)
		return nil
	},
}

var llmTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Send a tiny request to the configured provider",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		provider, err := llm.NewProviderFromEnv(ctx, nil)
		if err != nil {
			return fmt.Errorf("configure LLM provider: %w", err)
		}

		fmt.Printf("Provider model: %s\n", provider.ModelID())
		fmt.Print("Sending test request... ")

		start := time.Now()
		resp, err := provider.Generate(llm.WithPurpose(ctx, "selftest"), llm.Request{
			Messages:  []llm.Message{{Role: llm.RoleUser, Content: `Reply with the JSON {"ok": true} and nothing else.`}},
			MaxTokens: 64,
		})
		if err != nil {
			fmt.Println("failed")
			return err
		}

		var reply struct {
			OK bool `json:"ok"`
		}
		status := "unexpected reply"
		if json.Unmarshal(resp.Content, &reply) == nil && reply.OK {
			status = "ok"
		}
		fmt.Printf("%s (%s, %d tokens)\n", status, time.Since(start).Round(time.Millisecond), resp.Usage.TotalTokens)
		return nil
	},
}

func init() {
	llmListCmd.Flags().IntP("limit", "n", 20, "Number of events to show")
	llmListCmd.Flags().StringP("purpose", "p", "", "Filter by purpose (e.g. solve, diagnose, scaffold)")

	llmCmd.AddCommand(llmListCmd)
	llmCmd.AddCommand(llmStatsCmd)
	llmCmd.AddCommand(llmTestCmd)
}
