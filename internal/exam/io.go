package exam

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// questionFile is the on-disk shape produced by the extraction stage.
// A bare JSON array of questions is also accepted.
type questionFile struct {
	Questions []Question `json:"questions"`
}

// LoadQuestions reads a transcribed-questions JSON file. The file holds
// either an object with a "questions" array or a bare array. Every
// question is validated; one bad element fails the whole load.
func LoadQuestions(path string) ([]Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read question file: %w", err)
	}

	var qf questionFile
	if err := json.Unmarshal(data, &qf); err != nil || qf.Questions == nil {
		var bare []Question
		if err2 := json.Unmarshal(data, &bare); err2 != nil {
			return nil, fmt.Errorf("parse question file %s: %w", path, err)
		}
		qf.Questions = bare
	}

	for i := range qf.Questions {
		if err := qf.Questions[i].Validate(); err != nil {
			return nil, fmt.Errorf("question %d: %w", i, err)
		}
	}
	return qf.Questions, nil
}

// SaveJSON writes v as indented JSON, creating parent directories.
func SaveJSON(v any, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
