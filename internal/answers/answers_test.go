package answers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/abhisek/gretutor/internal/exam"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "answers.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeTemp(t, `{
		"_comment": "ignored",
		"p1_q1": " A ",
		"p1_q2": 7,
		"p1_q3": null,
		"p1_q4": "1/2"
	}`)

	answers, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[string]string{"p1_q1": "A", "p1_q2": "7", "p1_q4": "1/2"}
	if len(answers) != len(want) {
		t.Fatalf("got %d answers, want %d: %v", len(answers), len(want), answers)
	}
	for id, a := range want {
		if answers[id] != a {
			t.Errorf("answers[%q] = %q, want %q", id, answers[id], a)
		}
	}
}

func TestLoad_RejectsNonObject(t *testing.T) {
	path := writeTemp(t, `["A", "B"]`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for non-object answer file")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.json")
	in := map[string]string{"p1_q1": "B", "p1_q2": "3/4"}

	if err := Save(in, path); err != nil {
		t.Fatalf("save: %v", err)
	}
	out, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if out["p1_q1"] != "B" || out["p1_q2"] != "3/4" {
		t.Errorf("round trip mismatch: %v", out)
	}
}

func TestMerge(t *testing.T) {
	existing := map[string]string{"p1_q1": "A", "p1_q2": "B"}
	new := map[string]string{"p1_q2": "C", "p1_q3": "D"}

	overwritten := Merge(existing, new, true)
	if overwritten["p1_q2"] != "C" || overwritten["p1_q3"] != "D" || overwritten["p1_q1"] != "A" {
		t.Errorf("overwrite merge wrong: %v", overwritten)
	}

	kept := Merge(existing, new, false)
	if kept["p1_q2"] != "B" || kept["p1_q3"] != "D" {
		t.Errorf("keep-existing merge wrong: %v", kept)
	}

	// Inputs untouched.
	if existing["p1_q2"] != "B" {
		t.Error("merge mutated its input")
	}
}

func keyQuestions() []exam.Question {
	return []exam.Question{
		{ID: "p1_q1", Kind: exam.KindMultipleChoice, Stem: "q1"},
		{ID: "p1_q2", Kind: exam.KindNumericEntry, Stem: "q2"},
		{ID: "p1_q3", Kind: exam.KindMultipleChoice, Stem: "q3"},
	}
}

func TestLoadKey_BareAndDetailed(t *testing.T) {
	path := writeTemp(t, `{
		"_note": "mixed forms",
		"p1_q1": "A",
		"p1_q2": {
			"answer": 2.5,
			"topic": "arithmetic",
			"steps": ["Divide 10 by 4"],
			"reason": "10/4 = 2.5",
			"confidence": 0.9
		},
		"p9_q9": "E"
	}`)

	results, err := LoadKey(path, keyQuestions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2 (unknown IDs skipped)", len(results))
	}

	bare := results[0]
	if bare.QuestionID != "p1_q1" || bare.CorrectAnswer != "A" {
		t.Errorf("bare entry = %+v", bare)
	}
	if bare.Topic != "unknown" || bare.Confidence != 1.0 {
		t.Errorf("bare entry defaults = %+v", bare)
	}
	if len(bare.KeySteps) != 1 || bare.KeySteps[0] != "Standard answer (no solution steps)" {
		t.Errorf("bare entry steps = %v", bare.KeySteps)
	}

	detailed := results[1]
	if detailed.CorrectAnswer != "2.5" || detailed.Topic != "arithmetic" {
		t.Errorf("detailed entry = %+v", detailed)
	}
	if detailed.Confidence != 0.9 || detailed.FinalReason != "10/4 = 2.5" {
		t.Errorf("detailed entry = %+v", detailed)
	}
}

func TestLoadKey_AliasFieldNames(t *testing.T) {
	path := writeTemp(t, `{
		"p1_q1": {
			"correct_answer": "B",
			"key_steps": ["step one"],
			"final_reason": "because"
		}
	}`)

	results, err := LoadKey(path, keyQuestions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	sr := results[0]
	if sr.CorrectAnswer != "B" || sr.FinalReason != "because" {
		t.Errorf("alias entry = %+v", sr)
	}
	if len(sr.KeySteps) != 1 || sr.KeySteps[0] != "step one" {
		t.Errorf("alias steps = %v", sr.KeySteps)
	}
}

func TestLoadKey_MissingFile(t *testing.T) {
	if _, err := LoadKey(filepath.Join(t.TempDir(), "nope.json"), keyQuestions()); err == nil {
		t.Fatal("expected error for missing file")
	}
}
