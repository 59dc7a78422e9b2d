package exam

// SessionResult aggregates everything produced by one pipeline run.
type SessionResult struct {
	SessionID    string `json:"session_id"`
	QuestionFile string `json:"question_file"`
	Mode         string `json:"mode"`
	Timestamp    string `json:"timestamp"`

	Questions       []Question       `json:"questions"`
	SolveResults    []SolveResult    `json:"solve_results"`
	DiagnoseResults []DiagnoseResult `json:"diagnose_results"`
	Errors          []string         `json:"errors"`

	TotalQuestions    int `json:"total_questions"`
	AnsweredQuestions int `json:"answered_questions"`
	CorrectCount      int `json:"correct_count"`

	IncorrectIDs []string `json:"incorrect_ids"`

	// Scaffolded tutoring statistics.
	FirstAttemptWrongCount int      `json:"first_attempt_wrong_count"`
	FirstAttemptWrongIDs   []string `json:"first_attempt_wrong_ids"`
}

// ComputeStats fills the summary counters from the result lists.
func (s *SessionResult) ComputeStats() {
	s.TotalQuestions = len(s.Questions)
	s.AnsweredQuestions = len(s.DiagnoseResults)
	s.CorrectCount = 0
	s.IncorrectIDs = s.IncorrectIDs[:0]
	s.FirstAttemptWrongCount = 0
	s.FirstAttemptWrongIDs = s.FirstAttemptWrongIDs[:0]

	for _, d := range s.DiagnoseResults {
		if d.IsCorrect {
			s.CorrectCount++
		} else {
			s.IncorrectIDs = append(s.IncorrectIDs, d.QuestionID)
		}
		if d.FirstAttemptWrong {
			s.FirstAttemptWrongCount++
			s.FirstAttemptWrongIDs = append(s.FirstAttemptWrongIDs, d.QuestionID)
		}
	}
}
