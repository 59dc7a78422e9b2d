package exam

import (
	"encoding/json"
	"fmt"
)

// ProblemKind describes how a question is answered.
type ProblemKind string

const (
	// KindMultipleChoice means the learner picks an option letter (A-E).
	KindMultipleChoice ProblemKind = "multiple_choice"

	// KindNumericEntry means the learner types a numeric value or fraction.
	KindNumericEntry ProblemKind = "numeric_entry"

	// KindUnknown is used when extraction could not classify the question.
	KindUnknown ProblemKind = "unknown"
)

// choiceLetters is the closed set of valid option keys.
var choiceLetters = []string{"A", "B", "C", "D", "E"}

// Source records where a question was extracted from.
type Source struct {
	PDF  string `json:"pdf"`
	Page int    `json:"page"`
}

// ChoiceMap maps option letters to option text. A null value in the
// source JSON (an option that was present but unreadable) decodes to the
// empty string.
type ChoiceMap map[string]string

func (c *ChoiceMap) UnmarshalJSON(data []byte) error {
	var raw map[string]*string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(ChoiceMap, len(raw))
	for k, v := range raw {
		if v == nil {
			out[k] = ""
			continue
		}
		out[k] = *v
	}
	*c = out
	return nil
}

// Get returns the text for the given option letter, or "N/A" when the
// option is absent or unreadable.
func (c ChoiceMap) Get(letter string) string {
	v, ok := c[letter]
	if !ok || v == "" || v == "UNKNOWN" {
		return "N/A"
	}
	return v
}

// Has reports whether the option letter carries readable text.
func (c ChoiceMap) Has(letter string) bool {
	v, ok := c[letter]
	return ok && v != "" && v != "UNKNOWN"
}

// Question is one extracted exam item. Questions are created once during
// extraction and read-only afterwards.
type Question struct {
	// ID is unique within a session, format "p{page}_q{n}".
	ID     string `json:"id"`
	Source Source `json:"source"`

	Kind ProblemKind `json:"problem_type"`

	// Stem is the question text excluding answer options.
	Stem string `json:"stem"`

	// Choices holds options A-E. Conventionally empty for numeric entry.
	Choices ChoiceMap `json:"choices"`

	// Supplementary extraction fields.
	LatexEquations     []string `json:"latex_equations,omitempty"`
	DiagramDescription string   `json:"diagram_description,omitempty"`
	Constraints        []string `json:"constraints,omitempty"`
	PassageContext     string   `json:"passage_context,omitempty"`
	Category           string   `json:"question_category,omitempty"`

	// Confidence is the extraction confidence score in [0,1].
	Confidence float64 `json:"confidence"`
}

// Validate checks the structural invariants of a Question.
func (q *Question) Validate() error {
	if q.ID == "" {
		return fmt.Errorf("question has empty id")
	}
	if q.Stem == "" {
		return fmt.Errorf("question %s has empty stem", q.ID)
	}
	switch q.Kind {
	case KindMultipleChoice, KindNumericEntry, KindUnknown:
	default:
		return fmt.Errorf("question %s has invalid problem type %q", q.ID, q.Kind)
	}
	for k := range q.Choices {
		if !validChoiceKey(k) {
			return fmt.Errorf("question %s has invalid choice key %q", q.ID, k)
		}
	}
	if q.Confidence < 0 || q.Confidence > 1 {
		return fmt.Errorf("question %s has confidence %v out of range", q.ID, q.Confidence)
	}
	return nil
}

func validChoiceKey(k string) bool {
	for _, l := range choiceLetters {
		if k == l {
			return true
		}
	}
	return false
}

// SolveResult is the canonical solution for one question. Exactly one per
// Question id; immutable once created.
type SolveResult struct {
	QuestionID string `json:"question_id"`

	// CorrectAnswer is an option letter or a numeric string. Numeric
	// values from model output are always coerced to string.
	CorrectAnswer string `json:"correct_answer"`

	Topic string `json:"topic"`

	// KeySteps is an ordered list of 1-10 solving steps.
	KeySteps []string `json:"key_steps"`

	// FinalReason is a one-sentence explanation of the final answer.
	FinalReason string `json:"final_reason"`

	Confidence float64 `json:"confidence"`
}

// OptionAnalysis explains one option in a diagnosis.
type OptionAnalysis struct {
	Option       string `json:"option"`
	Content      string `json:"content"`
	Analysis     string `json:"analysis"`
	IsCorrect    bool   `json:"is_correct"`
	IsUserChoice bool   `json:"is_user_choice"`
}

// DiagnoseResult is the outcome of diagnosing one learner submission.
// When IsCorrect is true the explanation fields are empty; when false,
// LikelyMisconceptions is always populated (generic defaults at worst).
type DiagnoseResult struct {
	QuestionID    string `json:"question_id"`
	UserAnswer    string `json:"user_answer"`
	CorrectAnswer string `json:"correct_answer"`
	IsCorrect     bool   `json:"is_correct"`

	// Scaffolded tutoring fields. FirstAttempt holds the original first
	// wrong answer; FirstAttemptWrong is true whenever the hint loop ran.
	FirstAttempt      string `json:"first_attempt,omitempty"`
	FirstAttemptWrong bool   `json:"first_attempt_wrong"`

	WhyUserChoiceIsTempting string           `json:"why_user_choice_is_tempting,omitempty"`
	LikelyMisconceptions    []string         `json:"likely_misconceptions"`
	HowToGetCorrect         string           `json:"how_to_get_correct,omitempty"`
	OptionAnalysis          []OptionAnalysis `json:"option_analysis"`
}
