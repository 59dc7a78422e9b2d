package validate

import (
	"encoding/json"
	"testing"
)

func TestExtractJSON_TaggedFence(t *testing.T) {
	text := "Here is the result:\n```json\n{\"a\": 1}\n```\nHope that helps!"
	got, ok := ExtractJSON(text)
	if !ok {
		t.Fatal("extraction failed")
	}
	if got != `{"a": 1}` {
		t.Errorf("got %q", got)
	}
}

func TestExtractJSON_PlainFenceWithLangTag(t *testing.T) {
	text := "```javascript\n{\"b\": 2}\n```"
	got, ok := ExtractJSON(text)
	if !ok {
		t.Fatal("extraction failed")
	}
	if got != `{"b": 2}` {
		t.Errorf("got %q", got)
	}
}

func TestExtractJSON_PlainFenceNoTag(t *testing.T) {
	text := "```\n{\"c\": 3}\n```"
	got, ok := ExtractJSON(text)
	if !ok {
		t.Fatal("extraction failed")
	}
	if got != `{"c": 3}` {
		t.Errorf("got %q", got)
	}
}

func TestExtractJSON_BareObjectInProse(t *testing.T) {
	text := `The answer is {"x": {"nested": [1, 2]}, "y": "ok"} as computed above.`
	got, ok := ExtractJSON(text)
	if !ok {
		t.Fatal("extraction failed")
	}
	var parsed map[string]any
	if err := json.Unmarshal([]byte(got), &parsed); err != nil {
		t.Fatalf("extracted span is not valid JSON: %v", err)
	}
	if parsed["y"] != "ok" {
		t.Errorf("round-trip lost data: %v", parsed)
	}
}

func TestExtractJSON_BareArray(t *testing.T) {
	got, ok := ExtractJSON(`results: [1, [2, 3], 4] done`)
	if !ok {
		t.Fatal("extraction failed")
	}
	if got != "[1, [2, 3], 4]" {
		t.Errorf("got %q", got)
	}
}

func TestExtractJSON_Nothing(t *testing.T) {
	if _, ok := ExtractJSON("no json here at all"); ok {
		t.Error("expected extraction failure")
	}
}

func TestExtractJSON_EmptyFence(t *testing.T) {
	for _, text := range []string{"```json\n```", "```\n```", "```json\n   \n```"} {
		if got, ok := ExtractJSON(text); ok {
			t.Errorf("ExtractJSON(%q) = %q, true; expected failure", text, got)
		}
	}
}

func TestExtractJSON_RoundTrip(t *testing.T) {
	original := map[string]any{
		"question_id": "p1_q1",
		"key_steps":   []any{"step one", "step two"},
		"confidence":  0.9,
	}
	raw, _ := json.Marshal(original)
	text := "Sure! Here you go:\n```json\n" + string(raw) + "\n```\nLet me know if you need more."

	got, ok := ExtractJSON(text)
	if !ok {
		t.Fatal("extraction failed")
	}
	if got != string(raw) {
		t.Errorf("fenced content altered: got %q", got)
	}
	var back map[string]any
	if err := json.Unmarshal([]byte(got), &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back["question_id"] != "p1_q1" {
		t.Errorf("round-trip mismatch: %v", back)
	}
}
