// Package sim plays the role of a student taking the exam. An LLM is
// asked to answer every question, deliberately getting a configured
// fraction wrong with plausible human slips, so the diagnosis stages
// can be exercised without a real learner.
package sim

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/abhisek/gretutor/internal/exam"
	"github.com/abhisek/gretutor/internal/llm"
	"github.com/abhisek/gretutor/internal/logging"
)

// Config controls the simulated student's behavior.
type Config struct {
	// AbilityLevel colors the kinds of mistakes the student makes.
	// One of "low", "medium", "high".
	AbilityLevel string

	// ErrorRate is the target fraction of wrong answers in [0,1].
	ErrorRate float64

	// Seed makes the wrong-question selection reproducible. Zero means
	// a different selection each run.
	Seed int64

	// MaxTokens bounds the response. Defaults to 8192; a full page of
	// reasoning per question adds up.
	MaxTokens int
}

func (c *Config) applyDefaults() {
	if c.AbilityLevel == "" {
		c.AbilityLevel = "medium"
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 8192
	}
}

// Detail is the per-question record the simulator keeps beyond the
// bare answer, useful for inspecting what the simulated student was
// thinking.
type Detail struct {
	ThoughtProcess string `json:"thought_process"`
	MadeMistake    bool   `json:"made_mistake"`
	Answer         string `json:"answer"`

	// OriginalAnswer is set when answer-format fixing changed the raw value.
	OriginalAnswer string `json:"original_answer,omitempty"`
}

// Simulator generates student answers for a question set.
type Simulator struct {
	provider llm.Provider
	config   Config
	log      *zap.Logger
}

func New(provider llm.Provider, cfg Config, log *zap.Logger) *Simulator {
	cfg.applyDefaults()
	return &Simulator{
		provider: provider,
		config:   cfg,
		log:      logging.NopIfNil(log),
	}
}

// answerSchema is the structured output contract: a map from question
// id to the student's reasoning and answer.
var answerSchema = &llm.Schema{
	Name:        "student-answers",
	Description: "Simulated student answers keyed by question id",
	Definition: map[string]any{
		"type": "object",
		"additionalProperties": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"thought_process": map[string]any{"type": "string"},
				"made_mistake":    map[string]any{"type": "boolean"},
				"answer":          map[string]any{"type": "string"},
			},
			"required": []any{"thought_process", "made_mistake", "answer"},
		},
	},
}

// Simulate asks the model to answer every question, intentionally
// missing roughly ErrorRate of them. Returns the answers keyed by
// question id plus the full per-question details.
func (s *Simulator) Simulate(ctx context.Context, questions []exam.Question) (map[string]string, map[string]Detail, error) {
	if len(questions) == 0 {
		return map[string]string{}, map[string]Detail{}, nil
	}

	errorIDs := s.pickErrorIDs(questions)
	correctRate := int(math.Round((1 - s.config.ErrorRate) * 100))

	s.log.Info("simulating student answers",
		zap.Int("questions", len(questions)),
		zap.Int("correct_rate", correctRate),
		zap.Strings("intended_wrong", errorIDs),
	)

	req := llm.Request{
		System: buildSystemPrompt(correctRate, s.config.AbilityLevel),
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildUserPrompt(questions, correctRate, errorIDs)},
		},
		Schema:      answerSchema,
		MaxTokens:   s.config.MaxTokens,
		Temperature: 0.7,
	}

	resp, err := s.provider.Generate(llm.WithPurpose(ctx, "simulate"), req)
	if err != nil {
		return nil, nil, fmt.Errorf("student simulation: %w", err)
	}

	answers, details, err := parseAnswers(resp.Content, questions)
	if err != nil {
		return nil, nil, fmt.Errorf("student simulation: %w", err)
	}

	questionMap := make(map[string]exam.Question, len(questions))
	for _, q := range questions {
		questionMap[q.ID] = q
	}
	for id, raw := range answers {
		q, ok := questionMap[id]
		if !ok {
			continue
		}
		fixed := fixAnswer(raw, q)
		if fixed != raw {
			d := details[id]
			d.OriginalAnswer = raw
			d.Answer = fixed
			details[id] = d
			answers[id] = fixed
		}
	}

	return answers, details, nil
}

// SimulateAndSave runs the simulation and writes two files: the plain
// answers map (consumed by the diagnose stage) and a _details variant
// with the reasoning behind each answer.
func (s *Simulator) SimulateAndSave(ctx context.Context, questions []exam.Question, path string) (map[string]string, error) {
	answers, details, err := s.Simulate(ctx, questions)
	if err != nil {
		return nil, err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create answers dir: %w", err)
		}
	}

	data, err := json.MarshalIndent(answers, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("write simulated answers: %w", err)
	}

	detailsPath := strings.TrimSuffix(path, ".json") + "_details.json"
	detailsData, err := json.MarshalIndent(details, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(detailsPath, detailsData, 0o644); err != nil {
		return nil, fmt.Errorf("write simulation details: %w", err)
	}

	s.log.Info("saved simulated answers",
		zap.String("path", path),
		zap.Int("count", len(answers)),
	)
	return answers, nil
}

// pickErrorIDs selects which questions the student will get wrong.
func (s *Simulator) pickErrorIDs(questions []exam.Question) []string {
	errorCount := int(math.Round(float64(len(questions)) * s.config.ErrorRate))
	if errorCount > len(questions) {
		errorCount = len(questions)
	}
	if errorCount <= 0 {
		return nil
	}

	ids := make([]string, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
	}

	var rng *rand.Rand
	if s.config.Seed != 0 {
		rng = rand.New(rand.NewSource(s.config.Seed))
	} else {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })

	picked := ids[:errorCount]
	sort.Strings(picked)
	return picked
}

// parseAnswers decodes the structured response. Both the flat
// {"p1_q1": {...}} shape and the wrapped {"answers": {...}} shape are
// accepted; metadata keys are skipped.
func parseAnswers(content json.RawMessage, questions []exam.Question) (map[string]string, map[string]Detail, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(content, &raw); err != nil {
		return nil, nil, fmt.Errorf("decode simulated answers: %w", err)
	}

	if wrapped, ok := raw["answers"]; ok {
		inner := map[string]json.RawMessage{}
		if err := json.Unmarshal(wrapped, &inner); err == nil {
			raw = inner
		}
	}

	known := make(map[string]bool, len(questions))
	for _, q := range questions {
		known[q.ID] = true
	}

	answers := make(map[string]string, len(raw))
	details := make(map[string]Detail, len(raw))
	for id, v := range raw {
		if strings.HasPrefix(id, "_") || !known[id] {
			continue
		}
		var d Detail
		if err := json.Unmarshal(v, &d); err != nil {
			// A bare string value instead of the detail object.
			var s string
			if err := json.Unmarshal(v, &s); err != nil {
				continue
			}
			d = Detail{Answer: s}
		}
		d.Answer = strings.TrimSpace(d.Answer)
		if d.Answer == "" {
			continue
		}
		answers[id] = d.Answer
		details[id] = d
	}

	if len(answers) == 0 {
		return nil, nil, fmt.Errorf("no recognizable answers in response")
	}
	return answers, details, nil
}

// fixAnswer coerces a raw model answer into the format the question
// type requires. Multiple choice wants a single letter; numeric entry
// wants the number itself.
func fixAnswer(answer string, q exam.Question) string {
	answer = strings.ToUpper(strings.TrimSpace(answer))

	if q.Kind == exam.KindNumericEntry {
		// Letter given for a numeric question: substitute the option text.
		if len(answer) == 1 && q.Choices.Has(answer) {
			return strings.TrimSpace(q.Choices.Get(answer))
		}
		return answer
	}

	if isOptionLetter(answer) {
		return answer
	}

	for _, letter := range []string{"A", "B", "C", "D", "E"} {
		if strings.Contains(answer, "OPTION "+letter) || strings.Contains(answer, "("+letter+")") {
			return letter
		}
	}

	// A calculated value instead of a letter: map it back to the option
	// whose text matches.
	for letter, content := range q.Choices {
		if content == "" {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(content), answer) {
			return letter
		}
		if numericMatch(answer, content) {
			return letter
		}
	}

	return answer
}

func isOptionLetter(s string) bool {
	switch s {
	case "A", "B", "C", "D", "E":
		return true
	}
	return false
}

func numericMatch(a, b string) bool {
	pa, okA := parseLooseNumber(a)
	pb, okB := parseLooseNumber(b)
	return okA && okB && math.Abs(pa-pb) < 0.001
}

func parseLooseNumber(s string) (float64, bool) {
	s = strings.NewReplacer(",", "", "$", "").Replace(strings.TrimSpace(s))
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
