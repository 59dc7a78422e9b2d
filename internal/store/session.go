package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// sessionRepo implements SessionRepo on the sessions table.
type sessionRepo struct {
	db *sql.DB
}

func (r *sessionRepo) Begin(ctx context.Context, rec SessionRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, started_at, question_file, mode, total, output_dir)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.StartedAt.UTC().Format(time.RFC3339Nano),
		rec.QuestionFile, rec.Mode, rec.Total, rec.OutputDir,
	)
	if err != nil {
		return fmt.Errorf("begin session record: %w", err)
	}
	return nil
}

func (r *sessionRepo) Finish(ctx context.Context, rec SessionRecord) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sessions
		SET finished_at = ?, total = ?, answered = ?, correct = ?, first_wrong = ?
		WHERE id = ?`,
		rec.FinishedAt.UTC().Format(time.RFC3339Nano),
		rec.Total, rec.Answered, rec.Correct, rec.FirstAttemptWrong, rec.ID,
	)
	if err != nil {
		return fmt.Errorf("finish session record: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish session record: no session with id %s", rec.ID)
	}
	return nil
}

func (r *sessionRepo) Recent(ctx context.Context, limit int) ([]SessionRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, started_at, COALESCE(finished_at, ''), question_file, mode,
		       total, answered, correct, first_wrong, output_dir
		FROM sessions
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var records []SessionRecord
	for rows.Next() {
		var rec SessionRecord
		var started, finished string
		if err := rows.Scan(
			&rec.ID, &started, &finished, &rec.QuestionFile, &rec.Mode,
			&rec.Total, &rec.Answered, &rec.Correct, &rec.FirstAttemptWrong,
			&rec.OutputDir,
		); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		rec.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		if finished != "" {
			rec.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
