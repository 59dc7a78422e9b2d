package sim

import (
	"fmt"
	"strings"

	"github.com/abhisek/gretutor/internal/exam"
)

func buildSystemPrompt(correctRate int, abilityLevel string) string {
	return fmt.Sprintf(`You are an AI simulating a student taking a math test. Your goal is to act like a real student learning GRE math.
Your target overall accuracy is approximately %d%%.
Your ability level is %q: %s

[IMPORTANT: Reasoning-First Logic]
For every question, you MUST generate JSON fields in this exact physical order:
1. "thought_process":
   - First, check if this Question ID is on your "Intended Error List".
   - If answering CORRECTLY: Write a clear step-by-step derivation. Double-check that your numerical result matches the text of the option letter you choose.
   - If answering WRONG: Pick a realistic human error (e.g., misreading a sign, careless arithmetic, forgetting a constraint, or picking an intermediate result). Describe this flawed logic.
   - Conclusion requirement: End this field with "My result is [X], which corresponds to option [Y]".
2. "made_mistake": A boolean indicating if you intentionally introduced an error in the thought process.
3. "answer": The final answer based strictly on the thought process above.

[CRITICAL ANSWER FORMAT RULES - MUST FOLLOW]
- For "multiple_choice" questions: answer MUST be EXACTLY ONE LETTER from A, B, C, D, E
  * WRONG: "24", "14", "1/2", "answer is A"
  * CORRECT: "A", "B", "C", "D", "E"
- For "numeric_entry" questions: answer MUST be the NUMBER
  * WRONG: "A", "option B"
  * CORRECT: "24", "14", "0.5", "-3"

[Strict Constraints]
- NEVER provide the "answer" before completing the "thought_process".
- For multiple choice: Find which OPTION LETTER contains your calculated result, then output ONLY that letter.
- Mistakes must look like "human slips," not random gibberish.

Output only JSON. No conversational filler.`, correctRate, abilityLevel, abilityDescription(abilityLevel))
}

func abilityDescription(level string) string {
	switch level {
	case "low":
		return "your mistakes tend to be conceptual (wrong formula, misunderstood question) and your reasoning is short."
	case "high":
		return "your mistakes are rare careless slips (sign errors, dropped terms) inside otherwise solid reasoning."
	default:
		return "you mix careless arithmetic slips with the occasional conceptual confusion."
	}
}

func buildUserPrompt(questions []exam.Question, correctRate int, errorIDs []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Please simulate a student answering the following %d questions:\n", len(questions))
	b.WriteString(buildQuestionsBlock(questions))

	fmt.Fprintf(&b, "\n\n[STRICT ACCURACY EXECUTION]\n")
	fmt.Fprintf(&b, "- Total Questions: %d\n", len(questions))
	fmt.Fprintf(&b, "- Target Accuracy: %d%%\n", correctRate)
	wrong := "none (answer everything correctly)"
	if len(errorIDs) > 0 {
		wrong = strings.Join(errorIDs, ", ")
	}
	fmt.Fprintf(&b, "- [MANDATORY] You must INTENTIONALLY ANSWER WRONG on these specific Question IDs: %s\n", wrong)
	b.WriteString("- [MANDATORY] For all other IDs, you must provide the CORRECT answer.\n")

	b.WriteString(`
[ANSWER FORMAT - EXTREMELY IMPORTANT]
- For questions marked "multiple_choice": Your "answer" field MUST be a single letter: A, B, C, D, or E
- For questions marked "numeric_entry": Your "answer" field MUST be a number like "24" or "14"

Output JSON keyed by question id, every question present.`)

	return b.String()
}

func buildQuestionsBlock(questions []exam.Question) string {
	var b strings.Builder
	for i, q := range questions {
		fmt.Fprintf(&b, "\n--- Question %d: %s ---\n", i+1, q.ID)

		if q.Kind == exam.KindNumericEntry {
			b.WriteString("Type: numeric_entry\n")
			b.WriteString(">>> ANSWER FORMAT: Must be a NUMBER <<<\n")
		} else {
			b.WriteString("Type: multiple_choice\n")
			b.WriteString(">>> ANSWER FORMAT: Must be ONE letter from A/B/C/D/E <<<\n")
		}

		fmt.Fprintf(&b, "Stem: %s\n", q.Stem)
		if len(q.LatexEquations) > 0 {
			fmt.Fprintf(&b, "Formulas: %s\n", strings.Join(q.LatexEquations, ", "))
		}
		if q.DiagramDescription != "" {
			fmt.Fprintf(&b, "Diagram: %s\n", q.DiagramDescription)
		}

		if q.Kind != exam.KindNumericEntry && len(q.Choices) > 0 {
			b.WriteString("Options:\n")
			for _, opt := range []string{"A", "B", "C", "D", "E"} {
				if q.Choices.Has(opt) {
					fmt.Fprintf(&b, "  %s: %s\n", opt, q.Choices.Get(opt))
				}
			}
		}
	}
	return b.String()
}
