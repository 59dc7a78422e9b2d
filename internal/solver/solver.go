// Package solver answers exam questions with an LLM and turns the raw
// model output into validated solve results.
package solver

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/abhisek/gretutor/internal/exam"
	"github.com/abhisek/gretutor/internal/llm"
	"github.com/abhisek/gretutor/internal/logging"
	"github.com/abhisek/gretutor/internal/validate"
)

// Config tunes the solving loop.
type Config struct {
	// MaxTokens caps each completion.
	MaxTokens int

	// RetryOnParseFailure enables the strict-format retry after the
	// first response fails to parse.
	RetryOnParseFailure bool
}

// DefaultConfig returns the solving defaults.
func DefaultConfig() Config {
	return Config{
		MaxTokens:           4096,
		RetryOnParseFailure: true,
	}
}

// Solver solves questions through an llm.Provider.
type Solver struct {
	provider llm.Provider
	config   Config
	log      *zap.Logger
}

// New creates a Solver.
func New(provider llm.Provider, cfg Config, log *zap.Logger) *Solver {
	return &Solver{
		provider: provider,
		config:   cfg,
		log:      logging.NopIfNil(log),
	}
}

// Solve answers a single question. Answers are generated at zero
// temperature so repeated runs stay stable.
//
// The loop has three stages: parse the first response, retry once with
// a strict-format instruction, then salvage whatever JSON the last
// response contained with permissive defaults. Only when all three
// fail, or the transport itself fails, is an error returned.
func (s *Solver) Solve(ctx context.Context, q exam.Question) (*exam.SolveResult, error) {
	ctx = llm.WithPurpose(ctx, "solve")
	s.log.Info("solving question", zap.String("question_id", q.ID))

	userMsg := buildSolveUserMessage(q)

	resp, err := s.generate(ctx, userMsg)
	if err != nil {
		s.log.Error("solve request failed", zap.String("question_id", q.ID), zap.Error(err))
		return nil, fmt.Errorf("question %s: %w", q.ID, err)
	}

	result, parseErr := validate.SolveResultFromText(resp.Text())
	if parseErr == nil {
		result.QuestionID = q.ID
		s.log.Info("question solved",
			zap.String("question_id", q.ID),
			zap.String("answer", result.CorrectAnswer))
		return result, nil
	}

	if s.config.RetryOnParseFailure {
		s.log.Warn("first parse failed, retrying with strict format",
			zap.String("question_id", q.ID), zap.Error(parseErr))

		retryResp, retryErr := s.generate(ctx, userMsg+strictRetrySuffix)
		if retryErr == nil {
			resp = retryResp
			result, parseErr = validate.SolveResultFromText(resp.Text())
			if parseErr == nil {
				result.QuestionID = q.ID
				s.log.Info("strict retry succeeded",
					zap.String("question_id", q.ID),
					zap.String("answer", result.CorrectAnswer))
				return result, nil
			}
		}
	}

	// Salvage pass over the last response we got back.
	if salvaged, ok := validate.ManualSolveResult(resp.Text(), q.ID); ok {
		s.log.Warn("using salvaged solve result",
			zap.String("question_id", q.ID),
			zap.String("answer", salvaged.CorrectAnswer))
		return salvaged, nil
	}

	s.log.Error("solve parse failed", zap.String("question_id", q.ID), zap.Error(parseErr))
	return nil, fmt.Errorf("question %s solve parse failed: %w", q.ID, parseErr)
}

// SolveBatch solves questions in order. Per-question failures are
// collected rather than aborting the batch, so every solvable question
// still gets a result.
func (s *Solver) SolveBatch(ctx context.Context, questions []exam.Question) ([]exam.SolveResult, []string) {
	var results []exam.SolveResult
	var errs []string

	for _, q := range questions {
		result, err := s.Solve(ctx, q)
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}
		results = append(results, *result)
	}

	return results, errs
}

func (s *Solver) generate(ctx context.Context, userMsg string) (*llm.Response, error) {
	return s.provider.Generate(ctx, llm.Request{
		System: solveSystemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: userMsg},
		},
		MaxTokens:   s.config.MaxTokens,
		Temperature: 0.0,
	})
}
