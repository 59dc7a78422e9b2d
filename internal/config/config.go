// Package config loads the optional YAML run configuration.
// Every field has a flag or environment equivalent; the file just
// keeps repeated runs reproducible.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Run struct {
		QuestionFile string `yaml:"question_file"`
		AnswerKey    string `yaml:"answer_key"`
		UserAnswers  string `yaml:"user_answers"`
		OutputDir    string `yaml:"output_dir"`
		Mode         string `yaml:"mode"`
	} `yaml:"run"`
	Solver struct {
		RetryOnParseFailure bool `yaml:"retry_on_parse_failure"`
	} `yaml:"solver"`
	Scaffold struct {
		MaxRetries int `yaml:"max_retries"`
	} `yaml:"scaffold"`
	Sim struct {
		Enabled      bool    `yaml:"enabled"`
		AbilityLevel string  `yaml:"ability_level"`
		ErrorRate    float64 `yaml:"error_rate"`
		Seed         int64   `yaml:"seed"`
	} `yaml:"sim"`
	Log struct {
		Debug bool `yaml:"debug"`
		Quiet bool `yaml:"quiet"`
	} `yaml:"log"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	cfg := Config{}
	cfg.Run.OutputDir = "sessions"
	cfg.Run.Mode = "B"
	cfg.Solver.RetryOnParseFailure = true
	cfg.Sim.ErrorRate = 0.3
	cfg.Sim.AbilityLevel = "medium"
	return cfg
}

// Load reads YAML config from path, layered over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// LoadOrDefault loads path when non-empty, otherwise returns defaults.
func LoadOrDefault(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}
