package solver

import (
	"fmt"
	"strings"

	"github.com/abhisek/gretutor/internal/exam"
)

const solveSystemPrompt = `You are a top GRE/SAT math expert. Your task is to solve given math problems with extreme rigor.

[CRITICAL: Eliminate "Calculated Correctly but Selected Wrong Option"]
Your main errors come from: calculating the correct number but selecting wrong option letter at the last step.
To correct this, you must perform "double verification" at the end of each multiple choice question.

[Multiple Choice Answer Determination Process - Must Follow Strictly]
1. **Independent Solving**: First, don't look at option letters, independently derive the final numerical result (e.g. x = 14).
2. **Option Scanning**: Scan each A, B, C, D, E option content one by one.
3. **Explicit Mapping**: State in your mind: "My calculation result is 14. Option A content is 14. Therefore A is the only correct match."
4. **Fill in Field**: Fill that letter in the JSON correct_answer field.

[Output Format]
{
  "question_id": "question ID",
  "topic": "topic category",
  "key_steps": [
    "Step 1: ...",
    "Step 2: ...",
    "Step 3 (key calculation): ...",
    "Step 4 (result confirmation): Got final numerical result [X]",
    "Step 5 (option matching): Verified option list, confirmed value [X] corresponds to option letter [Y]"
  ],
  "final_reason": "Based on calculation result [X], it exactly matches option [Y] content, so choose [Y].",
  "correct_answer": "Output A|B|C|D|E or numeric value here at the end",
  "confidence": 1.0
}

[Topic Categories]
algebra | geometry | arithmetic | data_analysis | number_theory | word_problems

[Solution Steps Requirements]
- Must include "verification" step.
- In verification step, must substitute calculated value back to original equation to check if equation holds.

Output only JSON, no explanatory text.`

// strictRetrySuffix is appended to the user message when the first
// response could not be parsed.
const strictRetrySuffix = "\n\nPlease output strict JSON format, no other text."

// buildSolveUserMessage constructs the user message for one question.
func buildSolveUserMessage(q exam.Question) string {
	var b strings.Builder

	b.WriteString("Please solve the following math problem:\n\n")

	b.WriteString("[1. Problem Info]\n")
	fmt.Fprintf(&b, "Question ID: %s\n", q.ID)
	fmt.Fprintf(&b, "Type: %s\n", q.Kind)
	b.WriteString("Topic range: algebra, geometry, arithmetic, etc.\n\n")

	b.WriteString("[2. Problem Content]\n")
	fmt.Fprintf(&b, "Stem: %s\n", q.Stem)
	if len(q.LatexEquations) > 0 {
		fmt.Fprintf(&b, "Related formulas: %s\n", strings.Join(q.LatexEquations, ", "))
	}
	if q.DiagramDescription != "" {
		fmt.Fprintf(&b, "Diagram description: %s\n", q.DiagramDescription)
	}

	b.WriteString("\n[3. Option List]\n")
	b.WriteString("Please carefully verify each letter's corresponding value/content:\n")
	for _, letter := range []string{"A", "B", "C", "D", "E"} {
		fmt.Fprintf(&b, "%s: %s\n", letter, q.Choices.Get(letter))
	}

	b.WriteString(`
[MANDATORY Solving Protocol]
1. **Independent Derivation**: First don't look at option letters, calculate final result value.
2. **Option Mapping**: After calculation, return to [3. Option List] and compare one by one.
3. **Mapping Verification**: Must explicitly write in JSON key_steps: "My result is [X], verified option [Y] content is exactly [X], therefore choose [Y]".
4. **Numeric Entry**: If type is numeric_entry, output value directly, no letter matching needed.

Output strict JSON format.`)

	return b.String()
}
