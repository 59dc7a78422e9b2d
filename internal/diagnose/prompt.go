package diagnose

import (
	"fmt"
	"strings"

	"github.com/abhisek/gretutor/internal/exam"
)

const choiceSystemPrompt = `You are a GRE math teaching expert. Your task is to analyze student's wrong answers in multiple choice questions and provide detailed error diagnosis and correction guidance.

[Output Format]
You must output strict JSON format:

{
  "question_id": "question ID",
  "user_answer": "student answer",
  "correct_answer": "correct answer",
  "is_correct": false,
  "why_user_choice_is_tempting": "Explain why student might choose this wrong option (must be specific to the problem)",
  "likely_misconceptions": [
    "possible misconception 1",
    "possible misconception 2"
  ],
  "how_to_get_correct": "correction path + correct solution steps (teaching language, step by step)",
  "option_analysis": [
    {
      "option": "A",
      "content": "option content",
      "analysis": "option analysis",
      "is_correct": false,
      "is_user_choice": true
    },
    {
      "option": "C",
      "content": "option content",
      "analysis": "option analysis",
      "is_correct": true,
      "is_user_choice": false
    }
  ]
}

[Error Analysis Requirements]
1. why_user_choice_is_tempting: Must specifically explain why this wrong option is attractive, related to the problem
2. likely_misconceptions: At least 2 possible misconceptions
3. how_to_get_correct: Use teaching language, step by step explanation
4. option_analysis: At least analyze user's choice and correct option

[Common GRE Math Misconception Categories]
- Calculation errors: sign errors, operation order errors, decimal point errors
- Concept confusion: formula errors, definition misunderstanding
- Reading errors: ignoring conditions, misreading problem
- Trap options: intermediate results, similar values
- Method errors: using inappropriate method

Output only JSON, no explanatory text.`

const numericSystemPrompt = `You are a GRE math teaching expert. Your task is to analyze student's wrong answers in numeric entry questions and provide detailed error diagnosis and correction guidance.

[Problem Type Characteristics]
Numeric entry has no options, student needs to calculate the answer (may be integer, decimal, fraction, etc.).

[Output Format]
You must output strict JSON format:

{
  "question_id": "question ID",
  "user_answer": "student's filled answer",
  "correct_answer": "correct answer",
  "is_correct": false,
  "why_user_answer_is_wrong": "Specifically analyze where student's answer went wrong (must compare student answer and correct answer, analyze possible calculation process)",
  "likely_misconceptions": [
    "possible misconception 1",
    "possible misconception 2"
  ],
  "how_to_get_correct": "correction path + correct solution steps (teaching language, step by step)",
  "error_type": "calculation_error|concept_error|reading_error|method_error|careless_mistake"
}

[Error Analysis Requirements]
1. why_user_answer_is_wrong: Must compare student answer and correct answer, infer where student might have gone wrong
   - Example: Student wrote 6 but correct is 12, might have forgotten to multiply by 2
   - Example: Student wrote 1/3 but correct is 3, might have confused division with reciprocal
2. likely_misconceptions: At least 2 possible misconceptions
3. how_to_get_correct: Use teaching language, step by step explanation
4. error_type: Categorize error type

[Common Numeric Entry Error Types]
- calculation_error: arithmetic errors, decimal point errors, fraction simplification errors
- concept_error: formula errors, definition misunderstanding
- reading_error: ignoring conditions, unit conversion omission, problem misunderstanding
- method_error: using incorrect solving method
- careless_mistake: missing negative sign, incomplete simplification, copying wrong number

Output only JSON, no explanatory text.`

const hintSystemPrompt = `You are a GRE math tutor guiding a student who just answered incorrectly. Your task is to produce hints that lead the student to find the correct answer on their own.

[ABSOLUTE CONSTRAINT - NEVER REVEAL THE ANSWER]
You must NEVER state the correct answer, the correct option letter, or the final numeric result anywhere in your output. Not in the error analysis, not in any hint, not in the expected conclusion. The expected conclusion of each hint is a conceptual takeaway (e.g. "the two triangles share an angle"), never the answer itself. If your draft contains the answer, rewrite it.

[Output Format]
You must output strict JSON format:

{
  "error_analysis": "What the student's wrong answer suggests they did (specific to this attempt, without revealing the answer)",
  "actionable_hints": [
    {
      "step": 1,
      "action": "a concrete thing to do or check",
      "evidence": "where in the problem to look (quote or location)",
      "guiding_question": "a question that points at the gap",
      "expected_conclusion": "the conceptual realization this step should produce"
    }
  ],
  "key_concept_reminder": "the single concept or formula this problem turns on",
  "try_again_prompt": "one encouraging sentence inviting another attempt"
}

[Hint Requirements]
1. actionable_hints: At least 2 ordered hints, each self-contained
2. Hints build toward the solution without stating it
3. error_analysis addresses this specific wrong answer, not generic advice

Output only JSON, no explanatory text.`

// strictRetrySuffix is appended to the user message when the first
// response could not be parsed.
const strictRetrySuffix = "\n\nPlease output strictly in JSON format without any other text."

// solveStepsBlock joins the solver's ordered steps and final rationale
// into the reference block shared by all diagnosis prompts.
func solveStepsBlock(sr exam.SolveResult) string {
	var b strings.Builder
	for i, step := range sr.KeySteps {
		fmt.Fprintf(&b, "%d. %s\n", i+1, step)
	}
	fmt.Fprintf(&b, "Final Conclusion: %s", sr.FinalReason)
	return b.String()
}

func buildChoiceUserMessage(q exam.Question, userAnswer, correctAnswer, solveSteps string) string {
	var b strings.Builder

	b.WriteString("Please analyze the following multiple choice wrong answer:\n\n")
	fmt.Fprintf(&b, "Question ID: %s\n\n", q.ID)
	fmt.Fprintf(&b, "Stem: %s\n\n", q.Stem)

	b.WriteString("Options:\n")
	for _, letter := range []string{"A", "B", "C", "D", "E"} {
		fmt.Fprintf(&b, "%s: %s\n", letter, q.Choices.Get(letter))
	}

	fmt.Fprintf(&b, "\nStudent Answer (user_answer): %s\n", userAnswer)
	fmt.Fprintf(&b, "Correct Answer (correct_answer): %s\n\n", correctAnswer)
	fmt.Fprintf(&b, "Correct Solution Reference:\n%s\n\n", solveSteps)

	b.WriteString("Please analyze why student might have chosen wrong, provide error diagnosis and correction guidance. Output strict JSON format.")
	return b.String()
}

func buildNumericUserMessage(q exam.Question, userAnswer, correctAnswer, solveSteps string) string {
	var b strings.Builder

	b.WriteString("Please analyze the following numeric entry wrong answer:\n\n")
	fmt.Fprintf(&b, "Question ID: %s\n\n", q.ID)
	fmt.Fprintf(&b, "Stem: %s\n\n", q.Stem)
	fmt.Fprintf(&b, "Student Answer (user_answer): %s\n", userAnswer)
	fmt.Fprintf(&b, "Correct Answer (correct_answer): %s\n\n", correctAnswer)
	fmt.Fprintf(&b, "Correct Solution Reference:\n%s\n\n", solveSteps)

	b.WriteString("Please analyze where student's answer went wrong, infer possible error reasons, provide error diagnosis and correction guidance. Output strict JSON format.")
	return b.String()
}

// buildHintUserMessage describes the question and the latest wrong
// answer. The canonical answer is deliberately absent so the model
// cannot echo it back into hint text.
func buildHintUserMessage(q exam.Question, sr exam.SolveResult, wrongAnswer string) string {
	var b strings.Builder

	b.WriteString("The student answered the following question incorrectly. Produce guided hints.\n\n")
	fmt.Fprintf(&b, "Question ID: %s\n", q.ID)
	fmt.Fprintf(&b, "Type: %s\n\n", q.Kind)
	fmt.Fprintf(&b, "Stem: %s\n", q.Stem)

	if q.Kind == exam.KindMultipleChoice {
		b.WriteString("\nOptions:\n")
		for _, letter := range []string{"A", "B", "C", "D", "E"} {
			fmt.Fprintf(&b, "%s: %s\n", letter, q.Choices.Get(letter))
		}
	}

	fmt.Fprintf(&b, "\nStudent's wrong answer: %s\n", wrongAnswer)
	fmt.Fprintf(&b, "Topic: %s\n\n", sr.Topic)

	b.WriteString("Remember: do NOT reveal the correct answer anywhere in the output. Output strict JSON format.")
	return b.String()
}
