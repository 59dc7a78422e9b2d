package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/gretutor/internal/answers"
	"github.com/abhisek/gretutor/internal/exam"
)

var keyCmd = &cobra.Command{
	Use:   "key <key-file> <question-file>",
	Short: "Validate an answer-key file against a question file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		keyFile, questionFile := args[0], args[1]

		questions, err := exam.LoadQuestions(questionFile)
		if err != nil {
			return err
		}
		results, err := answers.LoadKey(keyFile, questions)
		if err != nil {
			return err
		}

		covered := make(map[string]bool, len(results))
		for _, sr := range results {
			covered[sr.QuestionID] = true
			fmt.Printf("%-12s  answer=%s  topic=%s\n", sr.QuestionID, sr.CorrectAnswer, sr.Topic)
		}

		var missing []string
		for _, q := range questions {
			if !covered[q.ID] {
				missing = append(missing, q.ID)
			}
		}

		fmt.Printf("\n%d of %d questions covered\n", len(results), len(questions))
		if len(missing) > 0 {
			fmt.Printf("Not in key (will be solved by the model): %v\n", missing)
		}
		return nil
	},
}
