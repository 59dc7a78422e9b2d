// Package answers loads and saves learner submissions and answer keys.
package answers

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/abhisek/gretutor/internal/exam"
)

// Load reads user answers from a JSON file of the form
// {"p1_q1": "A", "p1_q2": "7"}. Null values and keys starting with
// an underscore (comment entries) are skipped. Values are trimmed.
func Load(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read answers: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("answer file format error: expected an object of question_id to answer: %w", err)
	}

	answers := make(map[string]string, len(raw))
	for id, v := range raw {
		if strings.HasPrefix(id, "_") {
			continue
		}
		s, ok := decodeAnswerValue(v)
		if !ok {
			continue
		}
		answers[id] = strings.TrimSpace(s)
	}
	return answers, nil
}

// decodeAnswerValue stringifies a scalar answer value. Nulls report
// not-ok; numbers keep their literal form.
func decodeAnswerValue(v json.RawMessage) (string, bool) {
	text := strings.TrimSpace(string(v))
	if text == "null" {
		return "", false
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s, true
	}
	var n json.Number
	if err := json.Unmarshal(v, &n); err == nil {
		return n.String(), true
	}
	var b bool
	if err := json.Unmarshal(v, &b); err == nil {
		return strconv.FormatBool(b), true
	}
	return "", false
}

// Save writes answers as a JSON object, creating parent directories.
func Save(answers map[string]string, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create answer dir: %w", err)
		}
	}
	data, err := json.MarshalIndent(answers, "", "  ")
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Merge layers new answers over existing ones. With overwrite false,
// existing entries win.
func Merge(existing, new map[string]string, overwrite bool) map[string]string {
	result := make(map[string]string, len(existing)+len(new))
	for id, a := range existing {
		result[id] = a
	}
	for id, a := range new {
		if overwrite {
			result[id] = a
			continue
		}
		if _, ok := result[id]; !ok {
			result[id] = a
		}
	}
	return result
}

// keyEntry is the detailed answer-key form. Field aliases cover the
// two naming conventions seen in hand-written key files.
type keyEntry struct {
	Answer        json.RawMessage `json:"answer"`
	CorrectAnswer json.RawMessage `json:"correct_answer"`
	Topic         string          `json:"topic"`
	Steps         []string        `json:"steps"`
	KeySteps      []string        `json:"key_steps"`
	Reason        string          `json:"reason"`
	FinalReason   string          `json:"final_reason"`
	Confidence    *float64        `json:"confidence"`
}

// LoadKey reads an answer-key file and converts it to solve results
// for the given questions. Two per-entry forms are accepted: a bare
// answer string ("p1_q1": "A") or a detailed object with optional
// topic, steps, reason, and confidence. Entries for unknown question
// IDs, underscore-prefixed keys, and nulls are skipped.
func LoadKey(path string, questions []exam.Question) ([]exam.SolveResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read answer key: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("answer key format error: %w", err)
	}

	var results []exam.SolveResult
	for _, q := range questions {
		v, ok := raw[q.ID]
		if !ok {
			continue
		}
		sr, ok := keyResult(q.ID, v)
		if !ok {
			continue
		}
		results = append(results, sr)
	}

	// Entries for question IDs not in this batch are ignored; a key
	// file may cover more pages than the current run.
	return results, nil
}

func keyResult(questionID string, v json.RawMessage) (exam.SolveResult, bool) {
	sr := exam.SolveResult{
		QuestionID:  questionID,
		Topic:       "unknown",
		KeySteps:    []string{"Standard answer (no solution steps)"},
		FinalReason: "From correct answers file",
		Confidence:  1.0,
	}

	var entry keyEntry
	if err := json.Unmarshal(v, &entry); err == nil && (entry.Answer != nil || entry.CorrectAnswer != nil) {
		answerRaw := entry.Answer
		if answerRaw == nil {
			answerRaw = entry.CorrectAnswer
		}
		answer, ok := decodeAnswerValue(answerRaw)
		if !ok {
			return sr, false
		}
		sr.CorrectAnswer = strings.TrimSpace(answer)
		if entry.Topic != "" {
			sr.Topic = entry.Topic
		}
		if len(entry.Steps) > 0 {
			sr.KeySteps = entry.Steps
		} else if len(entry.KeySteps) > 0 {
			sr.KeySteps = entry.KeySteps
		}
		if entry.Reason != "" {
			sr.FinalReason = entry.Reason
		} else if entry.FinalReason != "" {
			sr.FinalReason = entry.FinalReason
		}
		if entry.Confidence != nil {
			sr.Confidence = *entry.Confidence
		}
		return sr, true
	}

	answer, ok := decodeAnswerValue(v)
	if !ok {
		return sr, false
	}
	sr.CorrectAnswer = strings.TrimSpace(answer)
	return sr, true
}
