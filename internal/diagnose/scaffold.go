package diagnose

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/abhisek/gretutor/internal/exam"
	"github.com/abhisek/gretutor/internal/grading"
	"github.com/abhisek/gretutor/internal/llm"
	"github.com/abhisek/gretutor/internal/validate"
)

// ActionableHint is one step of guided scaffolding. ExpectedConclusion
// is a conceptual takeaway, never the answer itself.
type ActionableHint struct {
	Step               int    `json:"step"`
	Action             string `json:"action"`
	Evidence           string `json:"evidence"`
	GuidingQuestion    string `json:"guiding_question"`
	ExpectedConclusion string `json:"expected_conclusion"`
}

// HintPayload is what the learner sees after a wrong answer in
// scaffold mode. Across retries the hints stay fixed; only
// ErrorAnalysis is refreshed for the latest attempt.
type HintPayload struct {
	ErrorAnalysis      string           `json:"error_analysis"`
	ActionableHints    []ActionableHint `json:"actionable_hints"`
	KeyConceptReminder string           `json:"key_concept_reminder"`
	TryAgainPrompt     string           `json:"try_again_prompt"`
}

// AttemptFunc supplies the learner's next answer after they have seen
// the hint payload. It decouples the loop from any particular input
// source: a terminal prompt, a simulated student, or a test.
type AttemptFunc func(payload *HintPayload) (string, error)

// ScaffoldConfig tunes the hint loop.
type ScaffoldConfig struct {
	// NextAttempt is required in scaffold mode.
	NextAttempt AttemptFunc

	// MaxRetries caps hint-loop iterations after the first wrong
	// answer. Zero means unbounded, matching the loop's pedagogical
	// intent of waiting for the learner to converge.
	MaxRetries int
}

// Scaffold runs the multi-turn tutoring loop for one question.
//
// A correct first answer short-circuits to a terminal success result
// with no hints. Otherwise the learner receives a hint payload and the
// loop waits for retries until one compares correct (or MaxRetries is
// exhausted). Exactly one final DiagnoseResult is produced either way:
// FirstAttempt holds the original wrong answer, correctness reflects
// the final attempt and is computed locally, never taken from model
// output.
func (d *Diagnoser) Scaffold(ctx context.Context, q exam.Question, sr exam.SolveResult, firstAnswer string) (*exam.DiagnoseResult, error) {
	ctx = llm.WithPurpose(ctx, "scaffold")

	firstAnswer = strings.TrimSpace(firstAnswer)
	correctAnswer := strings.TrimSpace(sr.CorrectAnswer)

	if grading.CheckAnswer(firstAnswer, correctAnswer, q.Kind) {
		d.log.Info("correct on first attempt", zap.String("question_id", q.ID))
		return correctResult(q, firstAnswer, correctAnswer), nil
	}

	if d.config.Scaffold.NextAttempt == nil {
		return nil, fmt.Errorf("question %s: scaffold mode requires a next-attempt source", q.ID)
	}

	d.log.Info("wrong first answer, entering hint loop",
		zap.String("question_id", q.ID),
		zap.String("first_answer", firstAnswer))

	payload := d.hintFor(ctx, q, sr, firstAnswer)

	finalAttempt := firstAnswer
	finalCorrect := false
	retries := 0

	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("question %s: %w", q.ID, err)
		}

		attempt, err := d.config.Scaffold.NextAttempt(payload)
		if err != nil {
			return nil, fmt.Errorf("question %s: next attempt: %w", q.ID, err)
		}
		finalAttempt = strings.TrimSpace(attempt)
		retries++

		if grading.CheckAnswer(finalAttempt, correctAnswer, q.Kind) {
			finalCorrect = true
			break
		}

		d.log.Info("retry still wrong",
			zap.String("question_id", q.ID),
			zap.String("attempt", finalAttempt),
			zap.Int("retries", retries))

		if d.config.Scaffold.MaxRetries > 0 && retries >= d.config.Scaffold.MaxRetries {
			d.log.Warn("retry cap reached", zap.String("question_id", q.ID))
			break
		}

		// Hints are generated once. Only the error analysis tracks
		// the latest attempt.
		if refreshed, ok := d.generateHint(ctx, q, sr, finalAttempt); ok {
			payload.ErrorAnalysis = refreshed.ErrorAnalysis
		}
	}

	result := d.finalScaffoldDiagnosis(ctx, q, sr, firstAnswer, finalAttempt, correctAnswer, finalCorrect)
	return result, nil
}

// hintFor produces the hint payload for a wrong answer, falling back
// to a deterministic payload when the model output is unusable. The
// fallback deliberately avoids the canonical answer too.
func (d *Diagnoser) hintFor(ctx context.Context, q exam.Question, sr exam.SolveResult, wrongAnswer string) *HintPayload {
	if payload, ok := d.generateHint(ctx, q, sr, wrongAnswer); ok {
		return payload
	}
	d.log.Warn("hint generation failed, using fallback hints", zap.String("question_id", q.ID))
	return fallbackHintPayload(q, sr, wrongAnswer)
}

func (d *Diagnoser) generateHint(ctx context.Context, q exam.Question, sr exam.SolveResult, wrongAnswer string) (*HintPayload, bool) {
	userMsg := buildHintUserMessage(q, sr, wrongAnswer)

	resp, err := d.generate(ctx, hintSystemPrompt, userMsg, d.config.Temperature)
	if err != nil {
		return nil, false
	}

	payload, parseErr := hintPayloadFromText(resp.Text())
	if parseErr == nil {
		return payload, true
	}

	if d.config.RetryOnParseFailure {
		retryResp, retryErr := d.generate(ctx, hintSystemPrompt, userMsg+strictRetrySuffix, d.config.RetryTemperature)
		if retryErr == nil {
			if payload, parseErr = hintPayloadFromText(retryResp.Text()); parseErr == nil {
				return payload, true
			}
		}
	}

	return nil, false
}

func hintPayloadFromText(text string) (*HintPayload, error) {
	raw, ok := validate.ExtractJSON(text)
	if !ok {
		return nil, fmt.Errorf("could not extract JSON from hint response")
	}

	var payload HintPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("decode hint payload: %w", err)
	}
	if len(payload.ActionableHints) == 0 {
		return nil, fmt.Errorf("hint payload has no actionable hints")
	}
	return &payload, nil
}

func fallbackHintPayload(q exam.Question, sr exam.SolveResult, wrongAnswer string) *HintPayload {
	return &HintPayload{
		ErrorAnalysis: fmt.Sprintf(
			"Your answer %s does not hold up under the problem's conditions. Walk through your work one step at a time.",
			wrongAnswer),
		ActionableHints: []ActionableHint{
			{
				Step:               1,
				Action:             "Re-read the problem statement and list every given condition.",
				Evidence:           "The problem stem",
				GuidingQuestion:    "Is there a condition your calculation never used?",
				ExpectedConclusion: "Every given condition must appear somewhere in the solution.",
			},
			{
				Step:               2,
				Action:             "Redo the key calculation slowly and check each operation.",
				Evidence:           "Your own working",
				GuidingQuestion:    "Does each step follow from the previous one?",
				ExpectedConclusion: "A single arithmetic slip changes the final result.",
			},
		},
		KeyConceptReminder: fmt.Sprintf("This problem is about %s.", sr.Topic),
		TryAgainPrompt:     "Take another look and try again. You are closer than you think.",
	}
}

// finalScaffoldDiagnosis produces the single end-of-loop result. The
// explanation targets the original first wrong answer; correctness
// reflects the final attempt. Any failure of the summary call is
// absorbed into the deterministic fallback.
func (d *Diagnoser) finalScaffoldDiagnosis(ctx context.Context, q exam.Question, sr exam.SolveResult, firstAttempt, finalAttempt, correctAnswer string, finalCorrect bool) *exam.DiagnoseResult {
	solveSteps := solveStepsBlock(sr)

	var result *exam.DiagnoseResult
	var err error
	if q.Kind == exam.KindNumericEntry {
		result, err = d.diagnoseNumeric(ctx, q, firstAttempt, correctAnswer, solveSteps)
	} else {
		result, err = d.diagnoseChoice(ctx, q, strings.ToUpper(firstAttempt), strings.ToUpper(correctAnswer), solveSteps)
	}
	if err != nil {
		if q.Kind == exam.KindNumericEntry {
			result = defaultNumericResult(q.ID, firstAttempt, correctAnswer, solveSteps)
		} else {
			result = defaultChoiceResult(q, strings.ToUpper(firstAttempt), strings.ToUpper(correctAnswer), solveSteps)
		}
	}

	if q.Kind != exam.KindNumericEntry {
		finalAttempt = strings.ToUpper(finalAttempt)
		firstAttempt = strings.ToUpper(firstAttempt)
	}
	result.UserAnswer = finalAttempt
	result.IsCorrect = finalCorrect
	result.FirstAttempt = firstAttempt
	result.FirstAttemptWrong = true
	return result
}
