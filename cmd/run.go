package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/gretutor/internal/config"
	"github.com/abhisek/gretutor/internal/diagnose"
	"github.com/abhisek/gretutor/internal/llm"
	"github.com/abhisek/gretutor/internal/logging"
	"github.com/abhisek/gretutor/internal/pipeline"
	"github.com/abhisek/gretutor/internal/report"
	"github.com/abhisek/gretutor/internal/sim"
	"github.com/abhisek/gretutor/internal/solver"
	"github.com/abhisek/gretutor/internal/store"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a tutoring session over a question file",
	RunE:  runSession,
}

func init() {
	runCmd.Flags().StringP("questions", "q", "", "Transcribed questions JSON file (required)")
	runCmd.Flags().StringP("key", "k", "", "Correct answers JSON file; uncovered questions are solved by the model")
	runCmd.Flags().StringP("answers", "a", "", "Learner answers JSON file")
	runCmd.Flags().StringP("mode", "m", "", "Diagnosis mode: A (direct), B (contrastive), C (scaffolded)")
	runCmd.Flags().StringP("output", "o", "", "Output directory for session results")
	runCmd.Flags().StringP("config", "c", "", "YAML run configuration file")
	runCmd.Flags().Bool("simulate", false, "Simulate a student when no answers file is given")
	runCmd.Flags().Float64("sim-error-rate", 0, "Simulated student error rate in [0,1]")
	runCmd.Flags().Int64("sim-seed", 0, "Seed for the simulated student's wrong-question selection")
	runCmd.Flags().Int("scaffold-retries", 0, "Max hint-loop retries in mode C (0 = unbounded)")
	runCmd.Flags().Bool("debug", false, "Enable debug logging")
	runCmd.Flags().Bool("quiet", false, "Suppress console logging")
}

func runSession(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadOrDefault(cfgPath)
	if err != nil {
		return err
	}
	applyRunFlags(cmd, &cfg)

	if cfg.Run.QuestionFile == "" {
		return fmt.Errorf("a questions file is required (--questions or run.question_file in config)")
	}
	mode, err := diagnose.ParseMode(cfg.Run.Mode)
	if err != nil {
		return err
	}

	log, cleanup, err := logging.New(logging.Options{
		Dir:   cfg.Run.OutputDir,
		Debug: cfg.Log.Debug,
		Quiet: cfg.Log.Quiet,
	})
	if err != nil {
		return err
	}
	defer cleanup()

	dbPath, err := resolveDBPath(cmd)
	if err != nil {
		return fmt.Errorf("resolve database path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer st.Close()

	provider, err := llm.NewProviderFromEnv(ctx, st.EventRepo())
	if err != nil {
		return fmt.Errorf("configure LLM provider: %w", err)
	}

	opts := pipeline.Options{
		Source:          pipeline.FileSource{Path: cfg.Run.QuestionFile},
		QuestionFile:    cfg.Run.QuestionFile,
		AnswerKeyFile:   cfg.Run.AnswerKey,
		UserAnswersFile: cfg.Run.UserAnswers,
		OutputDir:       cfg.Run.OutputDir,
		Mode:            mode,
		Solver:          solver.DefaultConfig(),
		Diagnose:        diagnose.DefaultConfig(),
	}
	opts.Solver.RetryOnParseFailure = cfg.Solver.RetryOnParseFailure
	opts.Diagnose.Scaffold.MaxRetries = cfg.Scaffold.MaxRetries
	if mode == diagnose.ModeScaffold {
		opts.Diagnose.Scaffold.NextAttempt = promptAttempt(cmd)
	}
	if cfg.Sim.Enabled && cfg.Run.UserAnswers == "" {
		opts.Simulator = sim.New(provider, sim.Config{
			AbilityLevel: cfg.Sim.AbilityLevel,
			ErrorRate:    cfg.Sim.ErrorRate,
			Seed:         cfg.Sim.Seed,
		}, log)
	}

	result, err := pipeline.New(provider, st.SessionRepo(), log).Run(ctx, opts)
	if err != nil {
		return err
	}

	report.PrintSummary(os.Stdout, result.Session)
	fmt.Printf("\nResults saved to: %s\n", result.SessionDir)
	return nil
}

// applyRunFlags overlays explicitly set CLI flags on the file config.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) {
	if v, _ := cmd.Flags().GetString("questions"); v != "" {
		cfg.Run.QuestionFile = v
	}
	if v, _ := cmd.Flags().GetString("key"); v != "" {
		cfg.Run.AnswerKey = v
	}
	if v, _ := cmd.Flags().GetString("answers"); v != "" {
		cfg.Run.UserAnswers = v
	}
	if v, _ := cmd.Flags().GetString("mode"); v != "" {
		cfg.Run.Mode = v
	}
	if v, _ := cmd.Flags().GetString("output"); v != "" {
		cfg.Run.OutputDir = v
	}
	if cmd.Flags().Changed("simulate") {
		cfg.Sim.Enabled, _ = cmd.Flags().GetBool("simulate")
	}
	if cmd.Flags().Changed("sim-error-rate") {
		cfg.Sim.ErrorRate, _ = cmd.Flags().GetFloat64("sim-error-rate")
	}
	if cmd.Flags().Changed("sim-seed") {
		cfg.Sim.Seed, _ = cmd.Flags().GetInt64("sim-seed")
	}
	if cmd.Flags().Changed("scaffold-retries") {
		cfg.Scaffold.MaxRetries, _ = cmd.Flags().GetInt("scaffold-retries")
	}
	if cmd.Flags().Changed("debug") {
		cfg.Log.Debug, _ = cmd.Flags().GetBool("debug")
	}
	if cmd.Flags().Changed("quiet") {
		cfg.Log.Quiet, _ = cmd.Flags().GetBool("quiet")
	}
}

// promptAttempt reads the learner's next answer from the terminal
// during a scaffolded hint loop.
func promptAttempt(cmd *cobra.Command) diagnose.AttemptFunc {
	return func(payload *diagnose.HintPayload) (string, error) {
		out := cmd.OutOrStdout()

		fmt.Fprintf(out, "\n%s\n\n", payload.ErrorAnalysis)
		for i, hint := range payload.ActionableHints {
			fmt.Fprintf(out, "Hint %d: %s\n", i+1, hint.Action)
			if hint.GuidingQuestion != "" {
				fmt.Fprintf(out, "  %s\n", hint.GuidingQuestion)
			}
		}
		if payload.KeyConceptReminder != "" {
			fmt.Fprintf(out, "\n%s\n", payload.KeyConceptReminder)
		}
		if payload.TryAgainPrompt != "" {
			fmt.Fprintf(out, "%s\n", payload.TryAgainPrompt)
		}

		fmt.Fprint(out, "\nYour answer: ")
		var answer string
		if _, err := fmt.Fscanln(cmd.InOrStdin(), &answer); err != nil {
			return "", fmt.Errorf("read answer: %w", err)
		}
		return answer, nil
	}
}
