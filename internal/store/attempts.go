package store

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Attempt is one recorded selection.
type Attempt struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	LevelID    string    `json:"level_id"`
	OptionID   string    `json:"option_id"`
	Correct    bool      `json:"correct"`
	ResponseMs int64     `json:"response_ms"`
	Reported   bool      `json:"reported"`
	CreatedAt  time.Time `json:"created_at"`
}

// AttemptStats aggregates attempts.
type AttemptStats struct {
	Total         int     `json:"total"`
	Correct       int     `json:"correct"`
	Wrong         int     `json:"wrong"`
	Accuracy      float64 `json:"accuracy"`
	AvgResponseMs float64 `json:"avg_response_ms"`
	Unreported    int     `json:"unreported"`
}

// AttemptRepository records selections.
type AttemptRepository struct {
	db *sql.DB
}

// Attempts returns the attempt repository for this store.
func (s *Store) Attempts() *AttemptRepository {
	return &AttemptRepository{db: s.db}
}

// Create inserts an attempt, assigning an id and timestamp when missing.
func (r *AttemptRepository) Create(a *Attempt) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	_, err := r.db.Exec(
		`INSERT INTO attempts (id, session_id, level_id, option_id, correct, response_ms, reported, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.SessionID, a.LevelID, a.OptionID, a.Correct, a.ResponseMs, a.Reported, a.CreatedAt,
	)
	return err
}

// MarkReported flags an attempt as delivered to the backend.
func (r *AttemptRepository) MarkReported(id string) error {
	result, err := r.db.Exec(`UPDATE attempts SET reported = 1 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

const attemptColumns = `id, session_id, level_id, option_id, correct, response_ms, reported, created_at`

// ListBySession returns a session's attempts, oldest first.
func (r *AttemptRepository) ListBySession(sessionID string) ([]Attempt, error) {
	return r.list(`SELECT `+attemptColumns+` FROM attempts WHERE session_id = ? ORDER BY created_at, rowid`, sessionID)
}

// ListRecent returns up to limit attempts, newest first.
func (r *AttemptRepository) ListRecent(limit int) ([]Attempt, error) {
	if limit <= 0 {
		limit = 50
	}
	return r.list(`SELECT `+attemptColumns+` FROM attempts ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
}

func (r *AttemptRepository) list(query string, args ...any) ([]Attempt, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []Attempt
	for rows.Next() {
		var a Attempt
		if err := rows.Scan(&a.ID, &a.SessionID, &a.LevelID, &a.OptionID, &a.Correct, &a.ResponseMs, &a.Reported, &a.CreatedAt); err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// Stats aggregates attempts. An empty sessionID covers every session.
func (r *AttemptRepository) Stats(sessionID string) (AttemptStats, error) {
	query := `SELECT COUNT(*), COALESCE(SUM(correct), 0), COALESCE(AVG(response_ms), 0),
		COALESCE(SUM(CASE WHEN reported = 0 THEN 1 ELSE 0 END), 0) FROM attempts`
	var args []any
	if sessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}

	var st AttemptStats
	if err := r.db.QueryRow(query, args...).Scan(&st.Total, &st.Correct, &st.AvgResponseMs, &st.Unreported); err != nil {
		return AttemptStats{}, err
	}
	st.Wrong = st.Total - st.Correct
	if st.Total > 0 {
		st.Accuracy = float64(st.Correct) / float64(st.Total) * 100
	}
	return st, nil
}
