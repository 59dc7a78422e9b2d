// Package report renders a session as a human-readable Markdown
// document and a short console summary.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/abhisek/gretutor/internal/exam"
)

// Markdown renders the full diagnosis report.
func Markdown(result *exam.SessionResult) string {
	var b strings.Builder

	b.WriteString("# GRE Tutor Diagnosis Report\n\n")
	fmt.Fprintf(&b, "**Generated Time**: %s\n", result.Timestamp)
	fmt.Fprintf(&b, "**Question File**: %s\n", filepath.Base(result.QuestionFile))
	fmt.Fprintf(&b, "**Diagnosis Mode**: %s\n", result.Mode)
	fmt.Fprintf(&b, "**Total Questions**: %d\n\n", result.TotalQuestions)
	b.WriteString("---\n\n")

	if len(result.DiagnoseResults) > 0 {
		writeSummary(&b, result)
	}

	b.WriteString("## Question Details\n\n")

	solveMap := make(map[string]exam.SolveResult, len(result.SolveResults))
	for _, sr := range result.SolveResults {
		solveMap[sr.QuestionID] = sr
	}
	diagnoseMap := make(map[string]exam.DiagnoseResult, len(result.DiagnoseResults))
	for _, dr := range result.DiagnoseResults {
		diagnoseMap[dr.QuestionID] = dr
	}

	for _, q := range result.Questions {
		writeQuestion(&b, q, solveMap, diagnoseMap)
	}

	if len(result.Errors) > 0 {
		b.WriteString("## Error Log\n\n")
		for _, e := range result.Errors {
			fmt.Fprintf(&b, "- %s\n", truncate(e, 200))
		}
		b.WriteString("\n")
	}

	return b.String()
}

func writeSummary(b *strings.Builder, result *exam.SessionResult) {
	b.WriteString("## Summary\n\n")
	fmt.Fprintf(b, "- **Answered Questions**: %d\n", result.AnsweredQuestions)
	fmt.Fprintf(b, "- **Correct Count**: %d\n", result.CorrectCount)
	if result.AnsweredQuestions > 0 {
		accuracy := float64(result.CorrectCount) / float64(result.AnsweredQuestions) * 100
		fmt.Fprintf(b, "- **Accuracy**: %.1f%%\n", accuracy)
	}
	if len(result.IncorrectIDs) > 0 {
		fmt.Fprintf(b, "- **Wrong Questions**: %s\n", strings.Join(result.IncorrectIDs, ", "))
	}

	if result.FirstAttemptWrongCount > 0 {
		b.WriteString("\n### Scaffolded Tutoring Statistics\n")
		fmt.Fprintf(b, "- **First Attempt Wrong**: %d questions\n", result.FirstAttemptWrongCount)
		fmt.Fprintf(b, "- **Questions**: %s\n", strings.Join(result.FirstAttemptWrongIDs, ", "))

		recovered := 0
		for _, dr := range result.DiagnoseResults {
			if dr.FirstAttemptWrong && dr.IsCorrect {
				recovered++
			}
		}
		if recovered > 0 {
			fmt.Fprintf(b, "- **Recovered After Hints**: %d questions\n", recovered)
		}
	}

	b.WriteString("\n---\n\n")
}

func writeQuestion(b *strings.Builder, q exam.Question, solveMap map[string]exam.SolveResult, diagnoseMap map[string]exam.DiagnoseResult) {
	solve, hasSolve := solveMap[q.ID]
	diagnose, hasDiagnose := diagnoseMap[q.ID]

	status := ""
	if hasDiagnose {
		if diagnose.IsCorrect {
			status = " CORRECT"
		} else {
			status = " WRONG"
		}
	}
	fmt.Fprintf(b, "### Question %s%s\n\n", q.ID, status)
	fmt.Fprintf(b, "**Stem**: %s\n\n", q.Stem)

	if q.Kind != exam.KindNumericEntry && len(q.Choices) > 0 {
		b.WriteString("**Options**:\n")
		for _, opt := range []string{"A", "B", "C", "D", "E"} {
			if !q.Choices.Has(opt) {
				continue
			}
			var markers []string
			if hasSolve && opt == strings.ToUpper(solve.CorrectAnswer) {
				markers = append(markers, "(correct)")
			}
			if hasDiagnose && opt == strings.ToUpper(diagnose.UserAnswer) && opt != strings.ToUpper(solve.CorrectAnswer) {
				markers = append(markers, "(user choice)")
			}
			marker := ""
			if len(markers) > 0 {
				marker = " " + strings.Join(markers, " ")
			}
			fmt.Fprintf(b, "- %s: %s%s\n", opt, q.Choices.Get(opt), marker)
		}
		b.WriteString("\n")
	}

	switch {
	case hasDiagnose:
		if diagnose.FirstAttempt != "" && diagnose.FirstAttemptWrong {
			fmt.Fprintf(b, "**First Attempt (wrong)**: %s\n", diagnose.FirstAttempt)
			fmt.Fprintf(b, "**Final Attempt**: %s | **Correct Answer**: %s\n", diagnose.UserAnswer, diagnose.CorrectAnswer)
			if diagnose.IsCorrect {
				b.WriteString("*Note: Student got it right after guided retries with hints*\n")
			}
		} else {
			fmt.Fprintf(b, "**User Answer**: %s | **Correct Answer**: %s\n", diagnose.UserAnswer, diagnose.CorrectAnswer)
		}
		b.WriteString("\n")
	case hasSolve:
		fmt.Fprintf(b, "**Correct Answer**: %s\n\n", solve.CorrectAnswer)
	}

	if hasSolve {
		b.WriteString("**Key Steps**:\n")
		for i, step := range solve.KeySteps {
			fmt.Fprintf(b, "%d. %s\n", i+1, step)
		}
		fmt.Fprintf(b, "\n**Topic**: %s\n\n", solve.Topic)
	}

	if hasDiagnose && !diagnose.IsCorrect {
		writeErrorAnalysis(b, diagnose)
	}

	b.WriteString("---\n\n")
}

func writeErrorAnalysis(b *strings.Builder, diagnose exam.DiagnoseResult) {
	b.WriteString("#### Error Analysis\n\n")

	if diagnose.WhyUserChoiceIsTempting != "" {
		fmt.Fprintf(b, "**Why %s is Tempting**:\n%s\n\n", diagnose.UserAnswer, diagnose.WhyUserChoiceIsTempting)
	}

	if len(diagnose.LikelyMisconceptions) > 0 {
		b.WriteString("**Likely Misconceptions**:\n")
		for i, m := range diagnose.LikelyMisconceptions {
			fmt.Fprintf(b, "%d. %s\n", i+1, m)
		}
		b.WriteString("\n")
	}

	if diagnose.HowToGetCorrect != "" {
		fmt.Fprintf(b, "**How to Get Correct Answer**:\n%s\n\n", diagnose.HowToGetCorrect)
	}

	if len(diagnose.OptionAnalysis) > 0 {
		b.WriteString("**Option Analysis**:\n")
		for _, oa := range diagnose.OptionAnalysis {
			mark := ""
			if oa.IsCorrect {
				mark = " (correct)"
			} else if oa.IsUserChoice {
				mark = " (user choice)"
			}
			fmt.Fprintf(b, "- **%s**: %s%s\n", oa.Option, oa.Analysis, mark)
		}
		b.WriteString("\n")
	}
}

// Save writes the Markdown report, creating parent directories.
func Save(result *exam.SessionResult, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
	}
	return os.WriteFile(path, []byte(Markdown(result)), 0o644)
}

// PrintSummary writes the condensed run summary.
func PrintSummary(w io.Writer, result *exam.SessionResult) {
	sep := strings.Repeat("=", 60)
	fmt.Fprintf(w, "\n%s\nGRE Tutor Run Summary\n%s\n", sep, sep)
	fmt.Fprintf(w, "Session:    %s\n", result.SessionID)
	fmt.Fprintf(w, "Mode:       %s\n", result.Mode)
	fmt.Fprintf(w, "Questions:  %d\n", result.TotalQuestions)
	fmt.Fprintf(w, "Answered:   %d\n", result.AnsweredQuestions)
	fmt.Fprintf(w, "Correct:    %d\n", result.CorrectCount)
	if result.AnsweredQuestions > 0 {
		fmt.Fprintf(w, "Accuracy:   %.1f%%\n", float64(result.CorrectCount)/float64(result.AnsweredQuestions)*100)
	}
	if len(result.IncorrectIDs) > 0 {
		fmt.Fprintf(w, "Wrong:      %s\n", strings.Join(result.IncorrectIDs, ", "))
	}
	if result.FirstAttemptWrongCount > 0 {
		fmt.Fprintf(w, "Hint loops: %d\n", result.FirstAttemptWrongCount)
	}
	if len(result.Errors) > 0 {
		fmt.Fprintf(w, "Errors:     %d\n", len(result.Errors))
	}
	fmt.Fprintln(w, sep)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
