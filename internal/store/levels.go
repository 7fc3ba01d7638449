package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/akshara/internal/game"
)

// Source records where a level came from.
type Source string

const (
	SourceBuiltin Source = "builtin"
	SourceBackend Source = "backend"
	SourceCustom  Source = "custom"
)

// LevelRecord is a stored level.
type LevelRecord struct {
	game.Level
	Source    Source    `json:"source"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LevelRepository provides CRUD operations for levels and their options.
type LevelRepository struct {
	db *sql.DB
}

// Levels returns the level repository for this store.
func (s *Store) Levels() *LevelRepository {
	return &LevelRepository{db: s.db}
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

type querier interface {
	Query(query string, args ...any) (*sql.Rows, error)
}

// Create inserts a level at the end of the list.
func (r *LevelRepository) Create(l *game.Level, src Source) error {
	if err := l.Validate(); err != nil {
		return err
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var pos int
	if err := tx.QueryRow(`SELECT COALESCE(MAX(position), -1) + 1 FROM levels`).Scan(&pos); err != nil {
		return err
	}
	if err := insertLevel(tx, l, src, pos); err != nil {
		return err
	}
	return tx.Commit()
}

func insertLevel(tx *sql.Tx, l *game.Level, src Source, pos int) error {
	now := time.Now()
	_, err := tx.Exec(
		`INSERT INTO levels (id, task_id, level, epoch, target, prompt, audio_url, source, position, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.TaskID, l.Level, l.Epoch, l.Target, l.Prompt, l.AudioURL, string(src), pos, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert level %s: %w", l.ID, err)
	}
	return insertOptions(tx, l)
}

func insertOptions(ex execer, l *game.Level) error {
	for i, o := range l.Options {
		var correct sql.NullBool
		if o.Correct != nil {
			correct = sql.NullBool{Bool: *o.Correct, Valid: true}
		}
		_, err := ex.Exec(
			`INSERT INTO level_options (level_id, option_id, name, letter, image_url, slot, correct, position)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			l.ID, o.ID, o.Name, o.Letter, o.ImageURL, string(o.Slot), correct, i,
		)
		if err != nil {
			return fmt.Errorf("insert option %s/%s: %w", l.ID, o.ID, err)
		}
	}
	return nil
}

const levelColumns = `id, task_id, level, epoch, target, prompt, audio_url, source, position, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanLevel(row scanner) (*LevelRecord, error) {
	rec := &LevelRecord{}
	var src string
	err := row.Scan(&rec.ID, &rec.TaskID, &rec.Level.Level, &rec.Epoch, &rec.Target, &rec.Prompt,
		&rec.AudioURL, &src, &rec.Position, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	rec.Source = Source(src)
	return rec, nil
}

func loadOptions(q querier, levelID string) ([]game.Option, error) {
	rows, err := q.Query(
		`SELECT option_id, name, letter, image_url, slot, correct
		 FROM level_options WHERE level_id = ? ORDER BY position`,
		levelID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var opts []game.Option
	for rows.Next() {
		var o game.Option
		var slot string
		var correct sql.NullBool
		if err := rows.Scan(&o.ID, &o.Name, &o.Letter, &o.ImageURL, &slot, &correct); err != nil {
			return nil, err
		}
		o.Slot = game.Slot(slot)
		if correct.Valid {
			c := correct.Bool
			o.Correct = &c
		}
		opts = append(opts, o)
	}
	return opts, rows.Err()
}

// Get retrieves a level with its options.
func (r *LevelRepository) Get(id string) (*LevelRecord, error) {
	rec, err := scanLevel(r.db.QueryRow(`SELECT `+levelColumns+` FROM levels WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if rec.Options, err = loadOptions(r.db, id); err != nil {
		return nil, err
	}
	return rec, nil
}

// List returns every level in play order.
func (r *LevelRepository) List() ([]*LevelRecord, error) {
	return r.list(`SELECT ` + levelColumns + ` FROM levels ORDER BY position, created_at`)
}

// ListBySource returns the levels from one source in play order.
func (r *LevelRepository) ListBySource(src Source) ([]*LevelRecord, error) {
	return r.list(`SELECT `+levelColumns+` FROM levels WHERE source = ? ORDER BY position, created_at`, string(src))
}

func (r *LevelRepository) list(query string, args ...any) ([]*LevelRecord, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}

	var recs []*LevelRecord
	for rows.Next() {
		rec, err := scanLevel(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		recs = append(recs, rec)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, err
	}

	// Options are loaded after the level cursor is closed; the pool holds a
	// single connection.
	for _, rec := range recs {
		if rec.Options, err = loadOptions(r.db, rec.ID); err != nil {
			return nil, err
		}
	}
	return recs, nil
}

// Update replaces a level's fields and options.
func (r *LevelRepository) Update(l *game.Level) error {
	if err := l.Validate(); err != nil {
		return err
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`UPDATE levels SET task_id = ?, level = ?, epoch = ?, target = ?, prompt = ?, audio_url = ?, updated_at = ?
		 WHERE id = ?`,
		l.TaskID, l.Level, l.Epoch, l.Target, l.Prompt, l.AudioURL, time.Now(), l.ID,
	)
	if err != nil {
		return err
	}
	if err := checkAffected(result); err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM level_options WHERE level_id = ?`, l.ID); err != nil {
		return err
	}
	if err := insertOptions(tx, l); err != nil {
		return err
	}
	return tx.Commit()
}

// Delete removes a level and its options.
func (r *LevelRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM levels WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

// ReplaceSource atomically swaps every level from src for levels. It is used
// to refresh the backend cache.
func (r *LevelRepository) ReplaceSource(src Source, levels []game.Level) error {
	for i := range levels {
		if err := levels[i].Validate(); err != nil {
			return err
		}
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM levels WHERE source = ?`, string(src)); err != nil {
		return err
	}

	var pos int
	if err := tx.QueryRow(`SELECT COALESCE(MAX(position), -1) + 1 FROM levels`).Scan(&pos); err != nil {
		return err
	}
	for i := range levels {
		// Custom levels keep their ids; a cached level with the same id is skipped.
		var exists int
		if err := tx.QueryRow(`SELECT COUNT(*) FROM levels WHERE id = ?`, levels[i].ID).Scan(&exists); err != nil {
			return err
		}
		if exists > 0 {
			logger.Warnf("level %s already stored, not caching", levels[i].ID)
			continue
		}
		if err := insertLevel(tx, &levels[i], src, pos+i); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Playable converts records into game levels.
func Playable(recs []*LevelRecord) []game.Level {
	levels := make([]game.Level, len(recs))
	for i, rec := range recs {
		levels[i] = rec.Level
	}
	return levels
}
