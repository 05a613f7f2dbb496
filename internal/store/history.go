package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Submission is one recorded submission attempt.
type Submission struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	Deck      string    `json:"deck"`
	Model     string    `json:"model"`
	Front     string    `json:"front"`
	NoteID    int64     `json:"noteId,omitempty"`
	Error     string    `json:"error,omitempty"`
	Media     []string  `json:"media,omitempty"`
}

// Succeeded reports whether the attempt created a note.
func (s Submission) Succeeded() bool {
	return s.Error == "" && s.NoteID != 0
}

// Record stores a submission attempt. ID and CreatedAt are filled in when
// empty. The stored record is returned.
func (db *DB) Record(ctx context.Context, s Submission) (Submission, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	media, err := json.Marshal(s.Media)
	if err != nil {
		return s, fmt.Errorf("store: encode media: %w", err)
	}
	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO submissions (id, created_at, deck, model, front, note_id, error, media)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.CreatedAt, s.Deck, s.Model, s.Front, s.NoteID, s.Error, string(media))
	if err != nil {
		return s, fmt.Errorf("store: record submission: %w", err)
	}
	return s, nil
}

// Recent returns up to limit submissions, newest first.
func (db *DB) Recent(ctx context.Context, limit int) ([]Submission, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, created_at, deck, model, front, note_id, error, media
		FROM submissions ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list submissions: %w", err)
	}
	defer rows.Close()

	var out []Submission
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Submission returns the recorded attempt with the given id.
func (db *DB) Submission(ctx context.Context, id string) (Submission, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, created_at, deck, model, front, note_id, error, media
		FROM submissions WHERE id = ?`, id)
	s, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Submission{}, ErrNotFound
	}
	return s, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSubmission(sc scanner) (Submission, error) {
	var (
		s     Submission
		media string
	)
	if err := sc.Scan(&s.ID, &s.CreatedAt, &s.Deck, &s.Model, &s.Front, &s.NoteID, &s.Error, &media); err != nil {
		return s, fmt.Errorf("store: scan submission: %w", err)
	}
	if err := json.Unmarshal([]byte(media), &s.Media); err != nil {
		return s, fmt.Errorf("store: decode media: %w", err)
	}
	return s, nil
}
