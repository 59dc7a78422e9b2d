// Package diagnose turns a learner's submission into a graded,
// explained result. Three strategies are supported: direct solution
// replay, contrastive option analysis, and multi-turn scaffolded
// tutoring.
package diagnose

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/abhisek/gretutor/internal/exam"
	"github.com/abhisek/gretutor/internal/grading"
	"github.com/abhisek/gretutor/internal/llm"
	"github.com/abhisek/gretutor/internal/logging"
	"github.com/abhisek/gretutor/internal/validate"
)

// Mode selects the diagnosis strategy for a batch.
type Mode string

const (
	// ModeDirect replays the canonical solution on a wrong answer.
	ModeDirect Mode = "A"

	// ModeContrastive explains why the chosen wrong option is
	// tempting, with a per-option breakdown. The default.
	ModeContrastive Mode = "B"

	// ModeScaffold runs the multi-turn hint loop.
	ModeScaffold Mode = "C"
)

// ParseMode maps a user-facing mode string to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "A", "DIRECT":
		return ModeDirect, nil
	case "B", "", "CONTRASTIVE":
		return ModeContrastive, nil
	case "C", "SCAFFOLD":
		return ModeScaffold, nil
	}
	return "", fmt.Errorf("unknown diagnosis mode %q", s)
}

// Config tunes the diagnosis loop.
type Config struct {
	// MaxTokens caps each completion.
	MaxTokens int

	// Temperature is for the first attempt; RetryTemperature is the
	// lowered value used for the strict-format retry.
	Temperature      float64
	RetryTemperature float64

	// RetryOnParseFailure enables the strict-format retry.
	RetryOnParseFailure bool

	Scaffold ScaffoldConfig
}

// DefaultConfig returns the diagnosis defaults.
func DefaultConfig() Config {
	return Config{
		MaxTokens:           4096,
		Temperature:         0.3,
		RetryTemperature:    0.1,
		RetryOnParseFailure: true,
	}
}

// Diagnoser grades submissions and generates explanations through an
// llm.Provider.
type Diagnoser struct {
	provider llm.Provider
	mode     Mode
	config   Config
	log      *zap.Logger
}

// New creates a Diagnoser for the given mode.
func New(provider llm.Provider, mode Mode, cfg Config, log *zap.Logger) *Diagnoser {
	return &Diagnoser{
		provider: provider,
		mode:     mode,
		config:   cfg,
		log:      logging.NopIfNil(log),
	}
}

// Mode returns the strategy this Diagnoser was built with.
func (d *Diagnoser) Mode() Mode { return d.mode }

// Diagnose grades one submission and, if wrong, produces an
// explanation per the Diagnoser's mode. Parse failures from the model
// are absorbed into deterministic fallback explanations; the error
// return is reserved for transport failures, so every genuinely
// submitted answer yields a result unless the collaborator itself is
// unreachable.
//
// ModeScaffold requires the interactive hint loop; use Scaffold for it.
func (d *Diagnoser) Diagnose(ctx context.Context, q exam.Question, sr exam.SolveResult, userAnswer string) (*exam.DiagnoseResult, error) {
	if d.mode == ModeScaffold {
		return nil, fmt.Errorf("question %s: scaffold mode requires the interactive loop", q.ID)
	}

	ctx = llm.WithPurpose(ctx, "diagnose")

	userAnswer = strings.TrimSpace(userAnswer)
	correctAnswer := strings.TrimSpace(sr.CorrectAnswer)

	isCorrect := grading.CheckAnswer(userAnswer, correctAnswer, q.Kind)

	d.log.Info("diagnosing question",
		zap.String("question_id", q.ID),
		zap.String("kind", string(q.Kind)),
		zap.String("user_answer", userAnswer),
		zap.Bool("is_correct", isCorrect))

	if isCorrect {
		result := correctResult(q, userAnswer, correctAnswer)
		if d.mode == ModeDirect {
			// Direct mode carries the worked solution even on a
			// correct answer.
			result.HowToGetCorrect = solveStepsBlock(sr)
		}
		return result, nil
	}

	if d.mode == ModeDirect {
		return d.directResult(q, sr, userAnswer, correctAnswer), nil
	}

	solveSteps := solveStepsBlock(sr)
	if q.Kind == exam.KindNumericEntry {
		return d.diagnoseNumeric(ctx, q, userAnswer, correctAnswer, solveSteps)
	}
	return d.diagnoseChoice(ctx, q, strings.ToUpper(userAnswer), strings.ToUpper(correctAnswer), solveSteps)
}

// correctResult builds the trivial record for a correct submission.
// Multiple choice gets a single option analysis entry; numeric entry
// has no options to analyze.
func correctResult(q exam.Question, userAnswer, correctAnswer string) *exam.DiagnoseResult {
	result := &exam.DiagnoseResult{
		QuestionID:           q.ID,
		UserAnswer:           userAnswer,
		CorrectAnswer:        correctAnswer,
		IsCorrect:            true,
		LikelyMisconceptions: []string{},
		OptionAnalysis:       []exam.OptionAnalysis{},
	}

	if q.Kind != exam.KindNumericEntry {
		letter := strings.ToUpper(correctAnswer)
		result.UserAnswer = strings.ToUpper(userAnswer)
		result.CorrectAnswer = letter
		result.OptionAnalysis = []exam.OptionAnalysis{{
			Option:       letter,
			Content:      q.Choices.Get(letter),
			Analysis:     "Correct Answer",
			IsCorrect:    true,
			IsUserChoice: true,
		}}
	}

	return result
}

// directResult replays the canonical solution without any contrastive
// reasoning. No collaborator call is made.
func (d *Diagnoser) directResult(q exam.Question, sr exam.SolveResult, userAnswer, correctAnswer string) *exam.DiagnoseResult {
	if q.Kind != exam.KindNumericEntry {
		userAnswer = strings.ToUpper(userAnswer)
		correctAnswer = strings.ToUpper(correctAnswer)
	}
	return &exam.DiagnoseResult{
		QuestionID:           q.ID,
		UserAnswer:           userAnswer,
		CorrectAnswer:        correctAnswer,
		IsCorrect:            false,
		WhyUserChoiceIsTempting: fmt.Sprintf(
			"Your answer %s is incorrect. %s", userAnswer, sr.FinalReason),
		LikelyMisconceptions: []string{},
		HowToGetCorrect: fmt.Sprintf(
			"The correct answer is %s. Solution:\n%s", correctAnswer, solveStepsBlock(sr)),
		OptionAnalysis: []exam.OptionAnalysis{},
	}
}

func (d *Diagnoser) diagnoseChoice(ctx context.Context, q exam.Question, userAnswer, correctAnswer, solveSteps string) (*exam.DiagnoseResult, error) {
	userMsg := buildChoiceUserMessage(q, userAnswer, correctAnswer, solveSteps)

	resp, err := d.generate(ctx, choiceSystemPrompt, userMsg, d.config.Temperature)
	if err != nil {
		d.log.Error("diagnose request failed", zap.String("question_id", q.ID), zap.Error(err))
		return nil, fmt.Errorf("question %s: %w", q.ID, err)
	}

	result, parseErr := validate.DiagnoseResultFromText(resp.Text())
	if parseErr == nil {
		return d.finishChoice(q, result, userAnswer, correctAnswer), nil
	}

	if d.config.RetryOnParseFailure {
		d.log.Warn("diagnosis parse failed, retrying with strict format",
			zap.String("question_id", q.ID), zap.Error(parseErr))

		retryResp, retryErr := d.generate(ctx, choiceSystemPrompt, userMsg+strictRetrySuffix, d.config.RetryTemperature)
		if retryErr == nil {
			if result, parseErr = validate.DiagnoseResultFromText(retryResp.Text()); parseErr == nil {
				return d.finishChoice(q, result, userAnswer, correctAnswer), nil
			}
		}
	}

	d.log.Warn("diagnosis unparsable, using default result", zap.String("question_id", q.ID))
	return defaultChoiceResult(q, userAnswer, correctAnswer, solveSteps), nil
}

// finishChoice forces the locally-computed identity fields over
// whatever the model claimed.
func (d *Diagnoser) finishChoice(q exam.Question, result *exam.DiagnoseResult, userAnswer, correctAnswer string) *exam.DiagnoseResult {
	result.QuestionID = q.ID
	result.UserAnswer = userAnswer
	result.CorrectAnswer = correctAnswer
	result.IsCorrect = false
	return result
}

func (d *Diagnoser) diagnoseNumeric(ctx context.Context, q exam.Question, userAnswer, correctAnswer, solveSteps string) (*exam.DiagnoseResult, error) {
	userMsg := buildNumericUserMessage(q, userAnswer, correctAnswer, solveSteps)

	resp, err := d.generate(ctx, numericSystemPrompt, userMsg, d.config.Temperature)
	if err != nil {
		d.log.Error("diagnose request failed", zap.String("question_id", q.ID), zap.Error(err))
		return nil, fmt.Errorf("question %s: %w", q.ID, err)
	}

	if nd, parseErr := validate.NumericDiagnosisFromText(resp.Text()); parseErr == nil {
		return numericResult(q.ID, nd, userAnswer, correctAnswer), nil
	}

	if d.config.RetryOnParseFailure {
		d.log.Warn("numeric diagnosis parse failed, retrying with strict format",
			zap.String("question_id", q.ID))

		retryResp, retryErr := d.generate(ctx, numericSystemPrompt, userMsg+strictRetrySuffix, d.config.RetryTemperature)
		if retryErr == nil {
			if nd, parseErr := validate.NumericDiagnosisFromText(retryResp.Text()); parseErr == nil {
				return numericResult(q.ID, nd, userAnswer, correctAnswer), nil
			}
		}
	}

	d.log.Warn("numeric diagnosis unparsable, using default result", zap.String("question_id", q.ID))
	return defaultNumericResult(q.ID, userAnswer, correctAnswer, solveSteps), nil
}

// numericResult maps a parsed numeric diagnosis into the common shape.
// Numeric entry has no options, so the per-option list stays empty.
func numericResult(questionID string, nd *validate.NumericDiagnosis, userAnswer, correctAnswer string) *exam.DiagnoseResult {
	misconceptions := nd.LikelyMisconceptions
	if len(misconceptions) == 0 {
		misconceptions = []string{
			"Possible calculation error",
			"Potential conceptual misunderstanding",
		}
	}
	howTo := nd.HowToGetCorrect
	if howTo == "" {
		howTo = fmt.Sprintf("The correct answer is %s", correctAnswer)
	}
	return &exam.DiagnoseResult{
		QuestionID:              questionID,
		UserAnswer:              userAnswer,
		CorrectAnswer:           correctAnswer,
		IsCorrect:               false,
		WhyUserChoiceIsTempting: nd.WhyWrong,
		LikelyMisconceptions:    misconceptions,
		HowToGetCorrect:         howTo,
		OptionAnalysis:          []exam.OptionAnalysis{},
	}
}

func defaultChoiceResult(q exam.Question, userAnswer, correctAnswer, solveSteps string) *exam.DiagnoseResult {
	return &exam.DiagnoseResult{
		QuestionID:    q.ID,
		UserAnswer:    userAnswer,
		CorrectAnswer: correctAnswer,
		IsCorrect:     false,
		WhyUserChoiceIsTempting: fmt.Sprintf(
			"Option %s might be a common distractor and shares similarities with the correct answer %s.",
			userAnswer, correctAnswer),
		LikelyMisconceptions: []string{
			"Possible calculation error",
			"Potential misunderstanding of related concepts",
		},
		HowToGetCorrect: fmt.Sprintf(
			"The correct answer is %s. Please refer to the following solving steps:\n%s",
			correctAnswer, solveSteps),
		OptionAnalysis: []exam.OptionAnalysis{
			{
				Option:       userAnswer,
				Content:      q.Choices.Get(userAnswer),
				Analysis:     "The incorrect option selected by the user.",
				IsCorrect:    false,
				IsUserChoice: true,
			},
			{
				Option:       correctAnswer,
				Content:      q.Choices.Get(correctAnswer),
				Analysis:     "The correct answer.",
				IsCorrect:    true,
				IsUserChoice: false,
			},
		},
	}
}

func defaultNumericResult(questionID, userAnswer, correctAnswer, solveSteps string) *exam.DiagnoseResult {
	return &exam.DiagnoseResult{
		QuestionID:    questionID,
		UserAnswer:    userAnswer,
		CorrectAnswer: correctAnswer,
		IsCorrect:     false,
		WhyUserChoiceIsTempting: fmt.Sprintf(
			"Your answer is %s, but the correct answer is %s. An error might have occurred during a step in the calculation.",
			userAnswer, correctAnswer),
		LikelyMisconceptions: []string{
			"Possible calculation error",
			"Potential misunderstanding of formulas or concepts",
		},
		HowToGetCorrect: fmt.Sprintf(
			"The correct answer is %s. Please refer to the following solving steps:\n%s",
			correctAnswer, solveSteps),
		OptionAnalysis: []exam.OptionAnalysis{},
	}
}

// DiagnoseBatch diagnoses every answered question that has a solve
// result. Questions with no submission, or an empty submission, are
// silently skipped. An answered question without a solve result is
// reported as an error and skipped, never defaulted.
func (d *Diagnoser) DiagnoseBatch(ctx context.Context, questions []exam.Question, solveResults []exam.SolveResult, userAnswers map[string]string) ([]exam.DiagnoseResult, []string) {
	solveMap := make(map[string]exam.SolveResult, len(solveResults))
	for _, sr := range solveResults {
		solveMap[sr.QuestionID] = sr
	}

	var results []exam.DiagnoseResult
	var errs []string

	for _, q := range questions {
		userAnswer, ok := userAnswers[q.ID]
		if !ok || userAnswer == "" {
			continue
		}

		sr, ok := solveMap[q.ID]
		if !ok {
			errs = append(errs, fmt.Sprintf("missing solving result for question %s", q.ID))
			continue
		}

		var result *exam.DiagnoseResult
		var err error
		if d.mode == ModeScaffold {
			result, err = d.Scaffold(ctx, q, sr, userAnswer)
		} else {
			result, err = d.Diagnose(ctx, q, sr, userAnswer)
		}
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}
		results = append(results, *result)
	}

	return results, errs
}

func (d *Diagnoser) generate(ctx context.Context, system, userMsg string, temperature float64) (*llm.Response, error) {
	return d.provider.Generate(ctx, llm.Request{
		System: system,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: userMsg},
		},
		MaxTokens:   d.config.MaxTokens,
		Temperature: temperature,
	})
}
