package solver

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/abhisek/gretutor/internal/exam"
	"github.com/abhisek/gretutor/internal/llm"
)

func testQuestion() exam.Question {
	return exam.Question{
		ID:   "p1_q1",
		Kind: exam.KindMultipleChoice,
		Stem: "What is 2 + 2?",
		Choices: exam.ChoiceMap{
			"A": "3", "B": "4", "C": "5", "D": "6", "E": "7",
		},
	}
}

const validSolveJSON = `{
	"question_id": "stale",
	"correct_answer": "B",
	"topic": "arithmetic",
	"key_steps": ["Step 1: add", "Step 2: verify"],
	"final_reason": "2 + 2 = 4 matches option B",
	"confidence": 0.99
}`

func TestSolve_FirstAttemptSucceeds(t *testing.T) {
	mock := llm.NewMockProvider(
		llm.MockResponse{Content: json.RawMessage(validSolveJSON)},
	)
	s := New(mock, DefaultConfig(), nil)

	result, err := s.Solve(context.Background(), testQuestion())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.CorrectAnswer != "B" {
		t.Errorf("correct_answer = %q, want B", result.CorrectAnswer)
	}
	// Question ID comes from the question, not the model output.
	if result.QuestionID != "p1_q1" {
		t.Errorf("question_id = %q, want p1_q1", result.QuestionID)
	}
	if mock.CallCount() != 1 {
		t.Errorf("expected 1 LLM call, got %d", mock.CallCount())
	}
}

func TestSolve_FencedResponseAccepted(t *testing.T) {
	fenced := "Here is the solution:\n```json\n" + validSolveJSON + "\n```"
	mock := llm.NewMockProvider(
		llm.MockResponse{Content: json.RawMessage(fenced)},
	)
	s := New(mock, DefaultConfig(), nil)

	result, err := s.Solve(context.Background(), testQuestion())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Topic != "arithmetic" {
		t.Errorf("topic = %q, want arithmetic", result.Topic)
	}
}

func TestSolve_StrictRetryAfterGarbage(t *testing.T) {
	mock := llm.NewMockProvider(
		llm.MockResponse{Content: json.RawMessage(`no json here at all`)},
		llm.MockResponse{Content: json.RawMessage(validSolveJSON)},
	)
	s := New(mock, DefaultConfig(), nil)

	result, err := s.Solve(context.Background(), testQuestion())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.CorrectAnswer != "B" {
		t.Errorf("correct_answer = %q, want B", result.CorrectAnswer)
	}
	if mock.CallCount() != 2 {
		t.Fatalf("expected 2 LLM calls, got %d", mock.CallCount())
	}
	last := mock.LastCall()
	if !strings.Contains(last.Messages[0].Content, "strict JSON format") {
		t.Error("retry prompt missing strict-format instruction")
	}
}

func TestSolve_SalvagesPartialJSON(t *testing.T) {
	// Valid JSON object that fails shape validation (missing topic and
	// final_reason) on both attempts. The salvage pass fills defaults.
	partial := `{"correct_answer": "D"}`
	mock := llm.NewMockProvider(
		llm.MockResponse{Content: json.RawMessage(partial)},
		llm.MockResponse{Content: json.RawMessage(partial)},
	)
	s := New(mock, DefaultConfig(), nil)

	result, err := s.Solve(context.Background(), testQuestion())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.CorrectAnswer != "D" {
		t.Errorf("correct_answer = %q, want D", result.CorrectAnswer)
	}
	if result.Topic != "unknown" {
		t.Errorf("topic = %q, want unknown", result.Topic)
	}
	if result.Confidence != 0.5 {
		t.Errorf("confidence = %v, want 0.5", result.Confidence)
	}
}

func TestSolve_AllAttemptsGarbageFails(t *testing.T) {
	mock := llm.NewMockProvider(
		llm.MockResponse{Content: json.RawMessage(`total garbage`)},
		llm.MockResponse{Content: json.RawMessage(`still garbage`)},
	)
	s := New(mock, DefaultConfig(), nil)

	_, err := s.Solve(context.Background(), testQuestion())
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "p1_q1") {
		t.Errorf("error should name the question, got: %v", err)
	}
}

func TestSolve_TransportErrorSurfaced(t *testing.T) {
	mock := llm.NewMockProvider(
		llm.MockResponse{Err: &llm.ErrProviderUnavailable{Err: errors.New("down")}},
	)
	s := New(mock, DefaultConfig(), nil)

	_, err := s.Solve(context.Background(), testQuestion())
	if err == nil {
		t.Fatal("expected error")
	}
	var unavail *llm.ErrProviderUnavailable
	if !errors.As(err, &unavail) {
		t.Fatalf("expected ErrProviderUnavailable, got %T", err)
	}
}

func TestSolve_RetryDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RetryOnParseFailure = false

	mock := llm.NewMockProvider(
		llm.MockResponse{Content: json.RawMessage(`garbage`)},
		llm.MockResponse{Content: json.RawMessage(validSolveJSON)}, // Not reached.
	)
	s := New(mock, cfg, nil)

	_, err := s.Solve(context.Background(), testQuestion())
	if err == nil {
		t.Fatal("expected error")
	}
	if mock.CallCount() != 1 {
		t.Fatalf("expected 1 LLM call, got %d", mock.CallCount())
	}
}

func TestSolveBatch_CollectsErrors(t *testing.T) {
	questions := []exam.Question{
		testQuestion(),
		{ID: "p1_q2", Kind: exam.KindNumericEntry, Stem: "Compute 10/4."},
	}

	numericJSON := `{
		"question_id": "p1_q2",
		"correct_answer": "2.5",
		"topic": "arithmetic",
		"key_steps": ["Step 1: divide"],
		"final_reason": "10/4 = 2.5",
		"confidence": 1.0
	}`

	mock := llm.NewMockProvider(
		llm.MockResponse{Content: json.RawMessage(validSolveJSON)},
		llm.MockResponse{Content: json.RawMessage(numericJSON)},
	)
	s := New(mock, DefaultConfig(), nil)

	results, errs := s.SolveBatch(context.Background(), questions)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[1].CorrectAnswer != "2.5" {
		t.Errorf("numeric answer = %q, want 2.5", results[1].CorrectAnswer)
	}
}

func TestSolveBatch_PartialFailure(t *testing.T) {
	questions := []exam.Question{
		testQuestion(),
		{ID: "p1_q2", Kind: exam.KindNumericEntry, Stem: "Compute 10/4."},
	}

	mock := llm.NewMockProvider(
		llm.MockResponse{Err: &llm.ErrProviderUnavailable{Err: errors.New("down")}},
		llm.MockResponse{Content: json.RawMessage(`{
			"question_id": "p1_q2",
			"correct_answer": "2.5",
			"topic": "arithmetic",
			"key_steps": ["Step 1: divide"],
			"final_reason": "10/4 = 2.5",
			"confidence": 1.0
		}`)},
	)
	s := New(mock, DefaultConfig(), nil)

	results, errs := s.SolveBatch(context.Background(), questions)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %d", len(errs))
	}
	if !strings.Contains(errs[0], "p1_q1") {
		t.Errorf("error should name failed question: %s", errs[0])
	}
}
