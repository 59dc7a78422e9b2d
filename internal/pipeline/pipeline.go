// Package pipeline coordinates a full tutoring run: load questions,
// resolve the answer key, collect learner answers, diagnose, and
// persist the session output.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/abhisek/gretutor/internal/answers"
	"github.com/abhisek/gretutor/internal/diagnose"
	"github.com/abhisek/gretutor/internal/exam"
	"github.com/abhisek/gretutor/internal/llm"
	"github.com/abhisek/gretutor/internal/logging"
	"github.com/abhisek/gretutor/internal/report"
	"github.com/abhisek/gretutor/internal/sim"
	"github.com/abhisek/gretutor/internal/solver"
	"github.com/abhisek/gretutor/internal/store"
)

// QuestionSource supplies the questions for a run. The extraction
// stage lives outside this module; a transcribed-questions file is the
// usual boundary.
type QuestionSource interface {
	Questions(ctx context.Context) ([]exam.Question, error)
}

// FileSource loads questions from a transcribed-questions JSON file.
type FileSource struct {
	Path string
}

func (f FileSource) Questions(context.Context) ([]exam.Question, error) {
	return exam.LoadQuestions(f.Path)
}

// Options configures one pipeline run.
type Options struct {
	// Source supplies the questions. Required.
	Source QuestionSource

	// QuestionFile labels the run in outputs. Informational only; the
	// Source does the actual loading.
	QuestionFile string

	// AnswerKeyFile, when set, supplies correct answers. Questions the
	// key does not cover are solved by the model.
	AnswerKeyFile string

	// UserAnswersFile, when set, supplies the learner's answers.
	UserAnswersFile string

	// UserAnswers overrides UserAnswersFile when non-nil.
	UserAnswers map[string]string

	// Simulator, when set and no user answers were supplied, generates
	// them. The simulated answers are saved into the session directory.
	Simulator *sim.Simulator

	// OutputDir receives one subdirectory per session.
	OutputDir string

	// Mode selects the diagnosis style.
	Mode diagnose.Mode

	Solver   solver.Config
	Diagnose diagnose.Config
}

// Pipeline runs tutoring sessions against a single provider.
type Pipeline struct {
	provider llm.Provider
	sessions store.SessionRepo
	log      *zap.Logger
}

// New creates a Pipeline. sessions may be nil; session bookkeeping is
// then skipped.
func New(provider llm.Provider, sessions store.SessionRepo, log *zap.Logger) *Pipeline {
	return &Pipeline{
		provider: provider,
		sessions: sessions,
		log:      logging.NopIfNil(log),
	}
}

// Result bundles the session output with where it was written.
type Result struct {
	Session    *exam.SessionResult
	SessionDir string
}

// Run executes the full pipeline. Per-question failures are collected
// into the session's error list; only setup and persistence failures
// abort the run.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Source == nil {
		return nil, fmt.Errorf("pipeline: no question source")
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "sessions"
	}
	if opts.Solver == (solver.Config{}) {
		opts.Solver = solver.DefaultConfig()
	}
	if opts.Diagnose.MaxTokens == 0 {
		scaffold := opts.Diagnose.Scaffold
		opts.Diagnose = diagnose.DefaultConfig()
		opts.Diagnose.Scaffold = scaffold
	}

	sessionID := uuid.NewString()
	sessionDir := filepath.Join(opts.OutputDir, "session_"+sessionID[:8])
	if err := os.MkdirAll(sessionDir, 0o755); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}

	startedAt := time.Now().UTC()
	log := p.log.With(zap.String("session_id", sessionID))
	log.Info("starting session",
		zap.String("question_file", opts.QuestionFile),
		zap.String("mode", string(opts.Mode)),
		zap.String("dir", sessionDir),
	)

	p.beginSession(ctx, log, store.SessionRecord{
		ID:           sessionID,
		StartedAt:    startedAt,
		QuestionFile: opts.QuestionFile,
		Mode:         string(opts.Mode),
		OutputDir:    sessionDir,
	})

	questions, err := opts.Source.Questions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	log.Info("loaded questions", zap.Int("count", len(questions)))

	result := &exam.SessionResult{
		SessionID:    sessionID,
		QuestionFile: opts.QuestionFile,
		Mode:         string(opts.Mode),
		Timestamp:    startedAt.Format(time.RFC3339),
		Questions:    questions,
	}

	solveResults, errs, err := p.resolveAnswerKey(ctx, log, opts, questions)
	if err != nil {
		return nil, err
	}
	result.SolveResults = solveResults
	result.Errors = append(result.Errors, errs...)

	userAnswers, err := p.collectUserAnswers(ctx, log, opts, questions, sessionDir)
	if err != nil {
		return nil, err
	}

	diagnoser := diagnose.New(p.provider, opts.Mode, opts.Diagnose, log)
	diagnoseResults, diagErrs := diagnoser.DiagnoseBatch(ctx, questions, solveResults, userAnswers)
	result.DiagnoseResults = diagnoseResults
	result.Errors = append(result.Errors, diagErrs...)

	result.ComputeStats()
	log.Info("diagnosis complete",
		zap.Int("answered", result.AnsweredQuestions),
		zap.Int("correct", result.CorrectCount),
		zap.Int("errors", len(result.Errors)),
	)

	if err := exam.SaveJSON(result, filepath.Join(sessionDir, "results.json")); err != nil {
		return nil, fmt.Errorf("save results: %w", err)
	}
	if err := report.Save(result, filepath.Join(sessionDir, "report.md")); err != nil {
		return nil, fmt.Errorf("save report: %w", err)
	}

	p.finishSession(ctx, log, store.SessionRecord{
		ID:                sessionID,
		FinishedAt:        time.Now().UTC(),
		Total:             result.TotalQuestions,
		Answered:          result.AnsweredQuestions,
		Correct:           result.CorrectCount,
		FirstAttemptWrong: result.FirstAttemptWrongCount,
	})

	return &Result{Session: result, SessionDir: sessionDir}, nil
}

// resolveAnswerKey produces one SolveResult per question: from the
// answer-key file where it covers the question, from the model for the
// rest.
func (p *Pipeline) resolveAnswerKey(ctx context.Context, log *zap.Logger, opts Options, questions []exam.Question) ([]exam.SolveResult, []string, error) {
	sv := solver.New(p.provider, opts.Solver, log)

	if opts.AnswerKeyFile == "" {
		log.Info("solving all questions with the model")
		results, errs := sv.SolveBatch(ctx, questions)
		return results, errs, nil
	}

	results, err := answers.LoadKey(opts.AnswerKeyFile, questions)
	if err != nil {
		return nil, nil, fmt.Errorf("load answer key: %w", err)
	}
	log.Info("loaded answer key",
		zap.String("path", opts.AnswerKeyFile),
		zap.Int("covered", len(results)),
	)

	covered := make(map[string]bool, len(results))
	for _, sr := range results {
		covered[sr.QuestionID] = true
	}
	var missing []exam.Question
	for _, q := range questions {
		if !covered[q.ID] {
			missing = append(missing, q)
		}
	}
	if len(missing) == 0 {
		return results, nil, nil
	}

	ids := make([]string, len(missing))
	for i, q := range missing {
		ids[i] = q.ID
	}
	log.Warn("answer key does not cover all questions, solving the rest",
		zap.Strings("missing", ids),
	)

	extra, errs := sv.SolveBatch(ctx, missing)
	return append(results, extra...), errs, nil
}

// collectUserAnswers resolves the learner answers in precedence order:
// injected map, answers file, simulator. No source means an empty map
// and every question is skipped by the diagnoser.
func (p *Pipeline) collectUserAnswers(ctx context.Context, log *zap.Logger, opts Options, questions []exam.Question, sessionDir string) (map[string]string, error) {
	if opts.UserAnswers != nil {
		return opts.UserAnswers, nil
	}

	if opts.UserAnswersFile != "" {
		loaded, err := answers.Load(opts.UserAnswersFile)
		if err != nil {
			return nil, fmt.Errorf("load user answers: %w", err)
		}
		log.Info("loaded user answers",
			zap.String("path", opts.UserAnswersFile),
			zap.Int("count", len(loaded)),
		)
		return loaded, nil
	}

	if opts.Simulator != nil {
		path := filepath.Join(sessionDir, "simulated_student_answers.json")
		simulated, err := opts.Simulator.SimulateAndSave(ctx, questions, path)
		if err != nil {
			return nil, fmt.Errorf("simulate answers: %w", err)
		}
		return simulated, nil
	}

	log.Warn("no user answers supplied, nothing to diagnose")
	return map[string]string{}, nil
}

func (p *Pipeline) beginSession(ctx context.Context, log *zap.Logger, rec store.SessionRecord) {
	if p.sessions == nil {
		return
	}
	if err := p.sessions.Begin(ctx, rec); err != nil {
		log.Warn("failed to record session start", zap.Error(err))
	}
}

func (p *Pipeline) finishSession(ctx context.Context, log *zap.Logger, rec store.SessionRecord) {
	if p.sessions == nil {
		return
	}
	if err := p.sessions.Finish(ctx, rec); err != nil {
		log.Warn("failed to record session finish", zap.Error(err))
	}
}
