package validate

import (
	"errors"
	"testing"
)

func TestSolveResultFromText_Valid(t *testing.T) {
	text := "```json\n{\"question_id\":\"p1_q1\",\"correct_answer\":\"B\",\"topic\":\"algebra\",\"key_steps\":[\"expand\",\"solve\",\"verify\"],\"final_reason\":\"x equals 4\",\"confidence\":0.95}\n```"

	sr, err := SolveResultFromText(text)
	if err != nil {
		t.Fatalf("SolveResultFromText: %v", err)
	}
	if sr.CorrectAnswer != "B" || sr.Topic != "algebra" || len(sr.KeySteps) != 3 {
		t.Errorf("unexpected result: %+v", sr)
	}
}

func TestSolveResultFromText_NumericAnswerCoerced(t *testing.T) {
	text := `{"correct_answer": 12, "topic": "arithmetic", "key_steps": ["add"], "final_reason": "sum", "confidence": 1}`

	sr, err := SolveResultFromText(text)
	if err != nil {
		t.Fatalf("SolveResultFromText: %v", err)
	}
	if sr.CorrectAnswer != "12" {
		t.Errorf("correct_answer = %q, want \"12\"", sr.CorrectAnswer)
	}
}

func TestSolveResultFromText_SchemaErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"missing answer", `{"topic":"algebra","key_steps":["a"],"final_reason":"r","confidence":0.5}`},
		{"empty steps", `{"correct_answer":"A","topic":"algebra","key_steps":[],"final_reason":"r","confidence":0.5}`},
		{"confidence out of range", `{"correct_answer":"A","topic":"algebra","key_steps":["a"],"final_reason":"r","confidence":1.5}`},
	}

	for _, tc := range tests {
		_, err := SolveResultFromText(tc.text)
		var se *SchemaError
		if !errors.As(err, &se) {
			t.Errorf("%s: error = %v, want *SchemaError", tc.name, err)
		}
	}
}

func TestSolveResultFromText_ParseError(t *testing.T) {
	_, err := SolveResultFromText("total garbage, no braces")
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Errorf("error = %v, want *ParseError", err)
	}
}

func TestManualSolveResult_Defaults(t *testing.T) {
	sr, ok := ManualSolveResult(`partial output {"topic": "geometry"} trailing`, "p2_q3")
	if !ok {
		t.Fatal("manual extraction failed")
	}
	if sr.QuestionID != "p2_q3" {
		t.Errorf("question id = %q", sr.QuestionID)
	}
	if sr.CorrectAnswer != "C" {
		t.Errorf("default correct_answer = %q, want C", sr.CorrectAnswer)
	}
	if sr.Topic != "geometry" {
		t.Errorf("topic = %q", sr.Topic)
	}
	if sr.Confidence != 0.5 {
		t.Errorf("default confidence = %v", sr.Confidence)
	}
}

func TestManualSolveResult_ExplicitZeroConfidence(t *testing.T) {
	sr, ok := ManualSolveResult(`{"correct_answer":"A","topic":"algebra","confidence":0}`, "p1_q1")
	if !ok {
		t.Fatal("manual extraction failed")
	}
	if sr.Confidence != 0 {
		t.Errorf("confidence = %v, want explicit 0 preserved", sr.Confidence)
	}
}

func TestDiagnoseResultFromText(t *testing.T) {
	text := `{"question_id":"p1_q2","user_answer":"A","correct_answer":"C","is_correct":false,
		"why_user_choice_is_tempting":"A is the intermediate value.",
		"likely_misconceptions":["stopped early","sign error"],
		"how_to_get_correct":"Finish the division.",
		"option_analysis":[{"option":"A","content":"6","analysis":"intermediate","is_correct":false,"is_user_choice":true},
		{"option":"C","content":"12","analysis":"correct","is_correct":true,"is_user_choice":false}]}`

	dr, err := DiagnoseResultFromText(text)
	if err != nil {
		t.Fatalf("DiagnoseResultFromText: %v", err)
	}
	if dr.IsCorrect {
		t.Error("is_correct should be false")
	}
	if len(dr.LikelyMisconceptions) != 2 || len(dr.OptionAnalysis) != 2 {
		t.Errorf("unexpected result: %+v", dr)
	}
}

func TestDiagnoseResultFromText_MissingIsCorrect(t *testing.T) {
	_, err := DiagnoseResultFromText(`{"question_id":"q","user_answer":"A","correct_answer":"B"}`)
	var se *SchemaError
	if !errors.As(err, &se) {
		t.Errorf("error = %v, want *SchemaError", err)
	}
}

func TestNumericDiagnosisFromText_AliasOrder(t *testing.T) {
	// Primary field name wins.
	nd, err := NumericDiagnosisFromText(`{"why_user_answer_is_wrong":"dropped the sign","why_user_choice_is_tempting":"ignored","likely_misconceptions":["sign"],"how_to_get_correct":"redo"}`)
	if err != nil {
		t.Fatalf("NumericDiagnosisFromText: %v", err)
	}
	if nd.WhyWrong != "dropped the sign" {
		t.Errorf("WhyWrong = %q", nd.WhyWrong)
	}

	// Fallback alias accepted when the primary is absent.
	nd, err = NumericDiagnosisFromText(`{"why_user_choice_is_tempting":"halved instead of doubled"}`)
	if err != nil {
		t.Fatalf("NumericDiagnosisFromText: %v", err)
	}
	if nd.WhyWrong != "halved instead of doubled" {
		t.Errorf("WhyWrong = %q", nd.WhyWrong)
	}
}

func TestQuestionsFromText_Shapes(t *testing.T) {
	single := `{"id":"p1_q1","source":{"pdf":"t.pdf","page":1},"problem_type":"multiple_choice","stem":"What is 2+2?","choices":{"A":"3","B":"4"},"confidence":0.9}`

	qs, err := QuestionsFromText(single)
	if err != nil {
		t.Fatalf("single object: %v", err)
	}
	if len(qs) != 1 || qs[0].ID != "p1_q1" {
		t.Errorf("single object result: %+v", qs)
	}

	wrapped := `{"questions":[` + single + `]}`
	qs, err = QuestionsFromText(wrapped)
	if err != nil || len(qs) != 1 {
		t.Fatalf("wrapped: %v, %d questions", err, len(qs))
	}

	array := `[` + single + `]`
	qs, err = QuestionsFromText(array)
	if err != nil || len(qs) != 1 {
		t.Fatalf("bare array: %v, %d questions", err, len(qs))
	}
}

func TestQuestionsFromText_OneBadFailsBatch(t *testing.T) {
	good := `{"id":"p1_q1","source":{"pdf":"t.pdf","page":1},"problem_type":"multiple_choice","stem":"ok","choices":{},"confidence":0.9}`
	bad := `{"id":"p1_q2","source":{"pdf":"t.pdf","page":1},"problem_type":"multiple_choice","stem":"bad","choices":{"F":"nope"},"confidence":0.9}`

	_, err := QuestionsFromText(`{"questions":[` + good + `,` + bad + `]}`)
	if err == nil {
		t.Error("expected batch failure for invalid choice key")
	}
}

func TestQuestionsFromText_EmptyFence(t *testing.T) {
	_, err := QuestionsFromText("```json\n```")
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Errorf("error = %v, want *ParseError", err)
	}
}

func TestQuestionsFromText_NullChoice(t *testing.T) {
	text := `{"id":"p1_q1","source":{"pdf":"t.pdf","page":1},"problem_type":"multiple_choice","stem":"s","choices":{"A":"4","B":null},"confidence":0.5}`
	qs, err := QuestionsFromText(text)
	if err != nil {
		t.Fatalf("QuestionsFromText: %v", err)
	}
	if qs[0].Choices.Has("B") {
		t.Error("null choice should not count as readable")
	}
	if qs[0].Choices.Get("B") != "N/A" {
		t.Errorf("Get(B) = %q, want N/A", qs[0].Choices.Get("B"))
	}
}
