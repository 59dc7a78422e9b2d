package sim

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/gretutor/internal/exam"
	"github.com/abhisek/gretutor/internal/llm"
)

var simQuestions = []exam.Question{
	{
		ID:   "p1_q1",
		Kind: exam.KindMultipleChoice,
		Stem: "If 2x + 3 = 11, what is x?",
		Choices: exam.ChoiceMap{
			"A": "2", "B": "3", "C": "4", "D": "5",
		},
	},
	{
		ID:   "p1_q2",
		Kind: exam.KindNumericEntry,
		Stem: "What is 1/4 + 1/4?",
	},
}

const simResponse = `{
  "p1_q1": {"thought_process": "2x = 8, x = 4. My result is 4, which corresponds to option C", "made_mistake": false, "answer": "C"},
  "p1_q2": {"thought_process": "1/4 + 1/4 = 2/4 = 0.5", "made_mistake": false, "answer": "0.5"}
}`

func TestSimulate_ParsesStructuredAnswers(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(simResponse)})
	s := New(mock, Config{ErrorRate: 0.5, Seed: 42}, nil)

	answers, details, err := s.Simulate(context.Background(), simQuestions)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"p1_q1": "C", "p1_q2": "0.5"}, answers)
	assert.False(t, details["p1_q1"].MadeMistake)
	assert.Contains(t, details["p1_q1"].ThoughtProcess, "2x = 8")
}

func TestSimulate_RequestsStructuredOutput(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(simResponse)})
	s := New(mock, Config{ErrorRate: 0.3, Seed: 1}, nil)

	_, _, err := s.Simulate(context.Background(), simQuestions)
	require.NoError(t, err)

	require.Equal(t, 1, mock.CallCount())
	req := mock.LastCall()
	require.NotNil(t, req.Schema)
	assert.Equal(t, "student-answers", req.Schema.Name)
	assert.InDelta(t, 0.7, req.Temperature, 1e-9)
	assert.Contains(t, req.Messages[0].Content, "p1_q1")
	assert.Contains(t, req.Messages[0].Content, "INTENTIONALLY ANSWER WRONG")
}

func TestSimulate_SeedIsReproducible(t *testing.T) {
	questions := make([]exam.Question, 10)
	for i := range questions {
		questions[i] = exam.Question{
			ID:      "p1_q" + string(rune('0'+i)),
			Kind:    exam.KindNumericEntry,
			Stem:    "stem",
			Choices: exam.ChoiceMap{},
		}
	}

	s := New(nil, Config{ErrorRate: 0.3, Seed: 7}, nil)
	first := s.pickErrorIDs(questions)
	second := s.pickErrorIDs(questions)

	assert.Len(t, first, 3)
	assert.Equal(t, first, second)
}

func TestSimulate_FixesAnswerFormats(t *testing.T) {
	// The student answered with the option text instead of the letter,
	// and with a letter instead of the number.
	resp := `{
	  "p1_q1": {"thought_process": "x = 4", "made_mistake": false, "answer": "4"},
	  "p1_q2": {"thought_process": "half", "made_mistake": false, "answer": "0.5"}
	}`
	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(resp)})
	s := New(mock, Config{Seed: 1}, nil)

	answers, details, err := s.Simulate(context.Background(), simQuestions)
	require.NoError(t, err)

	assert.Equal(t, "C", answers["p1_q1"])
	assert.Equal(t, "4", details["p1_q1"].OriginalAnswer)
}

func TestSimulate_SkipsMetadataAndUnknownKeys(t *testing.T) {
	resp := `{
	  "_summary": {"thought_process": "", "made_mistake": false, "answer": "x"},
	  "p9_q9": {"thought_process": "", "made_mistake": false, "answer": "A"},
	  "p1_q1": {"thought_process": "r", "made_mistake": true, "answer": "B"}
	}`
	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(resp)})
	s := New(mock, Config{Seed: 1}, nil)

	answers, _, err := s.Simulate(context.Background(), simQuestions)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"p1_q1": "B"}, answers)
}

func TestSimulate_AcceptsWrappedAnswers(t *testing.T) {
	resp := `{"answers": {"p1_q1": {"thought_process": "r", "made_mistake": false, "answer": "C"}}}`
	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(resp)})
	s := New(mock, Config{Seed: 1}, nil)

	answers, _, err := s.Simulate(context.Background(), simQuestions)
	require.NoError(t, err)
	assert.Equal(t, "C", answers["p1_q1"])
}

func TestSimulate_TransportErrorSurfaced(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Err: &llm.ErrProviderUnavailable{}})
	s := New(mock, Config{Seed: 1}, nil)

	_, _, err := s.Simulate(context.Background(), simQuestions)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "student simulation")
}

func TestSimulateAndSave_WritesBothFiles(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(simResponse)})
	s := New(mock, Config{Seed: 1}, nil)

	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "student_answers.json")

	answers, err := s.SimulateAndSave(context.Background(), simQuestions, path)
	require.NoError(t, err)
	assert.Len(t, answers, 2)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var saved map[string]string
	require.NoError(t, json.Unmarshal(data, &saved))
	assert.Equal(t, "C", saved["p1_q1"])

	detailsData, err := os.ReadFile(filepath.Join(dir, "sub", "student_answers_details.json"))
	require.NoError(t, err)
	var details map[string]Detail
	require.NoError(t, json.Unmarshal(detailsData, &details))
	assert.Contains(t, details["p1_q1"].ThoughtProcess, "option C")
}

func TestFixAnswer(t *testing.T) {
	mc := simQuestions[0]
	numeric := simQuestions[1]

	tests := []struct {
		name     string
		answer   string
		question exam.Question
		want     string
	}{
		{"letter kept", "c", mc, "C"},
		{"option phrase", "I pick option C", mc, "C"},
		{"value mapped to letter", "4", mc, "C"},
		{"dollar value mapped", "$4", mc, "C"},
		{"unmappable kept", "42", mc, "42"},
		{"number kept for numeric", "0.5", numeric, "0.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fixAnswer(tt.answer, tt.question))
		})
	}
}
