package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/gretutor/internal/exam"
)

func sampleResult() *exam.SessionResult {
	r := &exam.SessionResult{
		SessionID:    "s-123",
		QuestionFile: "/data/page_12_questions.json",
		Mode:         "B",
		Timestamp:    "2026-09-01T10:00:00Z",
		Questions: []exam.Question{
			{
				ID:   "p12_q1",
				Kind: exam.KindMultipleChoice,
				Stem: "If 2x + 3 = 11, what is x?",
				Choices: exam.ChoiceMap{
					"A": "2", "B": "3", "C": "4", "D": "5",
				},
			},
			{
				ID:   "p12_q2",
				Kind: exam.KindNumericEntry,
				Stem: "What is 1/4 + 1/4?",
			},
		},
		SolveResults: []exam.SolveResult{
			{
				QuestionID:    "p12_q1",
				CorrectAnswer: "C",
				Topic:         "linear equations",
				KeySteps:      []string{"Subtract 3 from both sides", "Divide by 2"},
				FinalReason:   "x = 4",
			},
			{
				QuestionID:    "p12_q2",
				CorrectAnswer: "0.5",
				Topic:         "fractions",
				KeySteps:      []string{"Add the numerators"},
				FinalReason:   "1/4 + 1/4 = 1/2",
			},
		},
		DiagnoseResults: []exam.DiagnoseResult{
			{
				QuestionID:              "p12_q1",
				UserAnswer:              "B",
				CorrectAnswer:           "C",
				IsCorrect:               false,
				WhyUserChoiceIsTempting: "B looks plausible if you forget to subtract 3 first.",
				LikelyMisconceptions:    []string{"Order of operations confusion"},
				HowToGetCorrect:         "Subtract 3, then divide by 2.",
				OptionAnalysis: []exam.OptionAnalysis{
					{Option: "B", Analysis: "Wrong: divides before subtracting", IsUserChoice: true},
					{Option: "C", Analysis: "Correct", IsCorrect: true},
				},
			},
			{
				QuestionID:    "p12_q2",
				UserAnswer:    "0.5",
				CorrectAnswer: "0.5",
				IsCorrect:     true,
			},
		},
		Errors: []string{"question p12_q3 solve parse failed: no JSON found"},
	}
	r.ComputeStats()
	return r
}

func TestMarkdown_IncludesSummaryAndDetails(t *testing.T) {
	md := Markdown(sampleResult())

	assert.Contains(t, md, "# GRE Tutor Diagnosis Report")
	assert.Contains(t, md, "**Diagnosis Mode**: B")
	assert.Contains(t, md, "**Question File**: page_12_questions.json")
	assert.Contains(t, md, "**Accuracy**: 50.0%")
	assert.Contains(t, md, "**Wrong Questions**: p12_q1")

	assert.Contains(t, md, "### Question p12_q1 WRONG")
	assert.Contains(t, md, "### Question p12_q2 CORRECT")
}

func TestMarkdown_OptionMarkers(t *testing.T) {
	md := Markdown(sampleResult())

	assert.Contains(t, md, "- C: 4 (correct)")
	assert.Contains(t, md, "- B: 3 (user choice)")
	assert.Contains(t, md, "- A: 2\n")
}

func TestMarkdown_ErrorAnalysisOnlyForWrongAnswers(t *testing.T) {
	md := Markdown(sampleResult())

	// One wrong answer, so exactly one error analysis section.
	assert.Equal(t, 1, strings.Count(md, "#### Error Analysis"))
	assert.Contains(t, md, "**Why B is Tempting**:")
	assert.Contains(t, md, "1. Order of operations confusion")
	assert.Contains(t, md, "- **B**: Wrong: divides before subtracting (user choice)")
	assert.Contains(t, md, "- **C**: Correct (correct)")
}

func TestMarkdown_ScaffoldStats(t *testing.T) {
	r := sampleResult()
	r.Mode = "C"
	r.DiagnoseResults[0].FirstAttempt = "B"
	r.DiagnoseResults[0].FirstAttemptWrong = true
	r.DiagnoseResults[0].UserAnswer = "C"
	r.DiagnoseResults[0].IsCorrect = true
	r.ComputeStats()

	md := Markdown(r)

	assert.Contains(t, md, "### Scaffolded Tutoring Statistics")
	assert.Contains(t, md, "**First Attempt Wrong**: 1 questions")
	assert.Contains(t, md, "**Recovered After Hints**: 1 questions")
	assert.Contains(t, md, "**First Attempt (wrong)**: B")
	assert.Contains(t, md, "**Final Attempt**: C | **Correct Answer**: C")
	assert.Contains(t, md, "right after guided retries")
}

func TestMarkdown_ErrorLog(t *testing.T) {
	md := Markdown(sampleResult())

	assert.Contains(t, md, "## Error Log")
	assert.Contains(t, md, "p12_q3 solve parse failed")
}

func TestSave_CreatesDirectories(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "report.md")

	require.NoError(t, Save(sampleResult(), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# GRE Tutor Diagnosis Report")
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	PrintSummary(&buf, sampleResult())

	out := buf.String()
	assert.Contains(t, out, "GRE Tutor Run Summary")
	assert.Contains(t, out, "Mode:       B")
	assert.Contains(t, out, "Correct:    1")
	assert.Contains(t, out, "Accuracy:   50.0%")
	assert.Contains(t, out, "Errors:     1")
}
