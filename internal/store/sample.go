package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ayusman/akshara/internal/detector"
	"github.com/ayusman/akshara/internal/gesture"
)

// Sample is a landmark frame recorded during calibration.
type Sample struct {
	ID        int64                  `json:"id"`
	Pose      gesture.Pose           `json:"pose"`
	Hand      detector.HandLandmarks `json:"hand"`
	CreatedAt time.Time              `json:"created_at"`
}

// SampleRepository stores calibration samples.
type SampleRepository struct {
	db *sql.DB
}

// Samples returns the calibration sample repository for this store.
func (s *Store) Samples() *SampleRepository {
	return &SampleRepository{db: s.db}
}

// Create stores hands recorded for pose in a single transaction.
func (r *SampleRepository) Create(pose gesture.Pose, hands []detector.HandLandmarks) error {
	if pose != gesture.PoseOpen && pose != gesture.PoseFist {
		return fmt.Errorf("invalid pose %q", pose)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO calibration_samples (pose, data, created_at) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for i := range hands {
		data, err := json.Marshal(&hands[i])
		if err != nil {
			return err
		}
		if _, err := stmt.Exec(string(pose), string(data), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListByPose returns the stored hands for pose, oldest first.
func (r *SampleRepository) ListByPose(pose gesture.Pose) ([]detector.HandLandmarks, error) {
	rows, err := r.db.Query(`SELECT data FROM calibration_samples WHERE pose = ? ORDER BY id`, string(pose))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hands []detector.HandLandmarks
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var h detector.HandLandmarks
		if err := json.Unmarshal([]byte(data), &h); err != nil {
			return nil, fmt.Errorf("decode sample: %w", err)
		}
		hands = append(hands, h)
	}
	return hands, rows.Err()
}

// Count returns how many samples exist per pose.
func (r *SampleRepository) Count() (map[gesture.Pose]int, error) {
	rows, err := r.db.Query(`SELECT pose, COUNT(*) FROM calibration_samples GROUP BY pose`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[gesture.Pose]int{gesture.PoseOpen: 0, gesture.PoseFist: 0}
	for rows.Next() {
		var pose string
		var n int
		if err := rows.Scan(&pose, &n); err != nil {
			return nil, err
		}
		counts[gesture.Pose(pose)] = n
	}
	return counts, rows.Err()
}

// Clear deletes every sample.
func (r *SampleRepository) Clear() error {
	_, err := r.db.Exec(`DELETE FROM calibration_samples`)
	return err
}
