package validate

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/abhisek/gretutor/internal/exam"
)

// FlexString decodes a JSON string, number, or null into a string.
// Models routinely return numeric answers as bare numbers.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexString(n.String())
		return nil
	}
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = FlexString(strconv.FormatBool(b))
		return nil
	}
	return fmt.Errorf("value %s is not a string or number", data)
}

// solveShape mirrors the solve-result JSON the model is asked for.
// Confidence is a pointer so an absent field can be told apart from an
// explicit zero.
type solveShape struct {
	QuestionID    FlexString `json:"question_id"`
	CorrectAnswer FlexString `json:"correct_answer"`
	Topic         string     `json:"topic"`
	KeySteps      []string   `json:"key_steps"`
	FinalReason   string     `json:"final_reason"`
	Confidence    *float64   `json:"confidence"`
}

func (s *solveShape) confidence(whenMissing float64) float64 {
	if s.Confidence == nil {
		return whenMissing
	}
	return *s.Confidence
}

// SolveResultFromText extracts and validates a SolveResult from raw
// model output.
func SolveResultFromText(text string) (*exam.SolveResult, error) {
	raw, ok := ExtractJSON(text)
	if !ok {
		return nil, &ParseError{Reason: "could not extract JSON from text"}
	}

	var s solveShape
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, &ParseError{Reason: "decode solve result", Err: err}
	}

	if s.CorrectAnswer == "" {
		return nil, &SchemaError{Shape: "SolveResult", Reason: "missing correct_answer"}
	}
	if s.Topic == "" {
		return nil, &SchemaError{Shape: "SolveResult", Reason: "missing topic"}
	}
	if len(s.KeySteps) < 1 || len(s.KeySteps) > 10 {
		return nil, &SchemaError{Shape: "SolveResult", Reason: fmt.Sprintf("key_steps has %d items, want 1-10", len(s.KeySteps))}
	}
	if s.FinalReason == "" {
		return nil, &SchemaError{Shape: "SolveResult", Reason: "missing final_reason"}
	}
	if c := s.confidence(0); c < 0 || c > 1 {
		return nil, &SchemaError{Shape: "SolveResult", Reason: fmt.Sprintf("confidence %v out of range", c)}
	}

	return &exam.SolveResult{
		QuestionID:    string(s.QuestionID),
		CorrectAnswer: string(s.CorrectAnswer),
		Topic:         s.Topic,
		KeySteps:      s.KeySteps,
		FinalReason:   s.FinalReason,
		Confidence:    s.confidence(0),
	}, nil
}

// ManualSolveResult is the permissive last-resort parse used after both
// strict attempts fail: any extractable JSON object is accepted and
// missing fields take defaults.
func ManualSolveResult(text, questionID string) (*exam.SolveResult, bool) {
	raw, ok := ExtractJSON(text)
	if !ok {
		return nil, false
	}
	var s solveShape
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, false
	}

	res := &exam.SolveResult{
		QuestionID:    questionID,
		CorrectAnswer: string(s.CorrectAnswer),
		Topic:         s.Topic,
		KeySteps:      s.KeySteps,
		FinalReason:   s.FinalReason,
		Confidence:    s.confidence(0.5),
	}
	if res.CorrectAnswer == "" {
		res.CorrectAnswer = "C"
	}
	if res.Topic == "" {
		res.Topic = "unknown"
	}
	if len(res.KeySteps) == 0 {
		res.KeySteps = []string{"Parse failed"}
	}
	if res.FinalReason == "" {
		res.FinalReason = "Parse failed"
	}
	return res, true
}

// diagnoseShape mirrors the multiple-choice diagnosis JSON.
type diagnoseShape struct {
	QuestionID              FlexString    `json:"question_id"`
	UserAnswer              FlexString    `json:"user_answer"`
	CorrectAnswer           FlexString    `json:"correct_answer"`
	IsCorrect               *bool         `json:"is_correct"`
	WhyUserChoiceIsTempting string        `json:"why_user_choice_is_tempting"`
	LikelyMisconceptions    []string      `json:"likely_misconceptions"`
	HowToGetCorrect         string        `json:"how_to_get_correct"`
	OptionAnalysis          []optionShape `json:"option_analysis"`
}

type optionShape struct {
	Option       string     `json:"option"`
	Content      FlexString `json:"content"`
	Analysis     string     `json:"analysis"`
	IsCorrect    bool       `json:"is_correct"`
	IsUserChoice bool       `json:"is_user_choice"`
}

// DiagnoseResultFromText extracts and validates a multiple-choice
// diagnosis from raw model output.
func DiagnoseResultFromText(text string) (*exam.DiagnoseResult, error) {
	raw, ok := ExtractJSON(text)
	if !ok {
		return nil, &ParseError{Reason: "could not extract JSON from text"}
	}

	var d diagnoseShape
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return nil, &ParseError{Reason: "decode diagnose result", Err: err}
	}

	if d.IsCorrect == nil {
		return nil, &SchemaError{Shape: "DiagnoseResult", Reason: "missing is_correct"}
	}
	if d.UserAnswer == "" {
		return nil, &SchemaError{Shape: "DiagnoseResult", Reason: "missing user_answer"}
	}
	if d.CorrectAnswer == "" {
		return nil, &SchemaError{Shape: "DiagnoseResult", Reason: "missing correct_answer"}
	}
	for i, o := range d.OptionAnalysis {
		if o.Option == "" {
			return nil, &SchemaError{Shape: "DiagnoseResult", Reason: fmt.Sprintf("option_analysis[%d] missing option", i)}
		}
	}

	out := &exam.DiagnoseResult{
		QuestionID:              string(d.QuestionID),
		UserAnswer:              string(d.UserAnswer),
		CorrectAnswer:           string(d.CorrectAnswer),
		IsCorrect:               *d.IsCorrect,
		WhyUserChoiceIsTempting: d.WhyUserChoiceIsTempting,
		LikelyMisconceptions:    d.LikelyMisconceptions,
		HowToGetCorrect:         d.HowToGetCorrect,
	}
	for _, o := range d.OptionAnalysis {
		out.OptionAnalysis = append(out.OptionAnalysis, exam.OptionAnalysis{
			Option:       o.Option,
			Content:      string(o.Content),
			Analysis:     o.Analysis,
			IsCorrect:    o.IsCorrect,
			IsUserChoice: o.IsUserChoice,
		})
	}
	return out, nil
}

// whyWrongAliases is the ordered list of accepted field names for the
// numeric "why wrong" explanation. Models vary between the two.
var whyWrongAliases = []string{"why_user_answer_is_wrong", "why_user_choice_is_tempting"}

// NumericDiagnosis is the looser shape accepted for numeric-entry
// diagnosis responses.
type NumericDiagnosis struct {
	WhyWrong             string
	LikelyMisconceptions []string
	HowToGetCorrect      string
	ErrorType            string
}

// NumericDiagnosisFromText extracts the numeric-entry diagnosis fields,
// tolerating the documented field-name variants. Only extraction and
// decoding can fail; missing fields are left empty for the caller to
// default.
func NumericDiagnosisFromText(text string) (*NumericDiagnosis, error) {
	raw, ok := ExtractJSON(text)
	if !ok {
		return nil, &ParseError{Reason: "could not extract JSON from text"}
	}

	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, &ParseError{Reason: "decode numeric diagnosis", Err: err}
	}

	out := &NumericDiagnosis{}
	for _, key := range whyWrongAliases {
		if s, ok := m[key].(string); ok && s != "" {
			out.WhyWrong = s
			break
		}
	}
	if list, ok := m["likely_misconceptions"].([]any); ok {
		for _, v := range list {
			if s, ok := v.(string); ok {
				out.LikelyMisconceptions = append(out.LikelyMisconceptions, s)
			}
		}
	}
	if s, ok := m["how_to_get_correct"].(string); ok {
		out.HowToGetCorrect = s
	}
	if s, ok := m["error_type"].(string); ok {
		out.ErrorType = s
	}
	return out, nil
}

// QuestionsFromText extracts a question list from raw model output.
// Accepts an object with a "questions" array, a single bare question
// object, or a bare array. Any invalid element fails the whole batch.
func QuestionsFromText(text string) ([]exam.Question, error) {
	raw, ok := ExtractJSON(text)
	if !ok || raw == "" {
		return nil, &ParseError{Reason: "could not extract JSON from text"}
	}

	var elems []json.RawMessage

	var wrapper struct {
		Questions []json.RawMessage `json:"questions"`
	}
	if err := json.Unmarshal([]byte(raw), &wrapper); err == nil && wrapper.Questions != nil {
		elems = wrapper.Questions
	} else if raw[0] == '[' {
		if err := json.Unmarshal([]byte(raw), &elems); err != nil {
			return nil, &ParseError{Reason: "decode question array", Err: err}
		}
	} else {
		// A bare single-question object becomes a singleton list.
		elems = []json.RawMessage{json.RawMessage(raw)}
	}

	questions := make([]exam.Question, 0, len(elems))
	for i, e := range elems {
		var q exam.Question
		if err := json.Unmarshal(e, &q); err != nil {
			return nil, &ParseError{Reason: fmt.Sprintf("decode question %d", i), Err: err}
		}
		if err := q.Validate(); err != nil {
			return nil, &SchemaError{Shape: "Question", Reason: err.Error()}
		}
		questions = append(questions, q)
	}
	return questions, nil
}
