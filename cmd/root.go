package cmd

import (
	"github.com/abhisek/gretutor/internal/store"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "gretutor",
	Short: "LLM-powered GRE math tutor",
	Long:  "Gretutor grades learner answers against a solved question set and diagnoses mistakes with an LLM, from quick explanations to scaffolded hint loops.",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides GRETUTOR_DB env var)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(keyCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then GRETUTOR_DB env var, then the default XDG path.
func resolveDBPath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	return store.DefaultDBPath()
}
