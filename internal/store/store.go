// Package store persists complaint records to postgres. A live database is
// optional: callers hold a nil *Store when no DSN is configured and fall back
// to ephemeral complaint ids.
package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
)

type Store struct {
	db *sql.DB
}

func Open(dsn string) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("missing database dsn")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return &Store{db: db}, nil
}

func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Record is a persisted complaint, flattened from the intake pipelines.
type Record struct {
	ID                 string    `json:"id"`
	UserID             string    `json:"userId"`
	Source             string    `json:"source"`
	Category           string    `json:"category"`
	Title              string    `json:"title"`
	Description        string    `json:"description"`
	Priority           string    `json:"priority"`
	Status             string    `json:"status"`
	AudioURL           string    `json:"audioUrl"`
	ImageURL           string    `json:"imageUrl"`
	Latitude           float64   `json:"latitude"`
	Longitude          float64   `json:"longitude"`
	Address            string    `json:"address"`
	Language           string    `json:"language"`
	TranscriptOriginal string    `json:"transcriptOriginal"`
	TranscriptEnglish  string    `json:"transcriptEnglish"`
	CreatedAt          time.Time `json:"createdAt"`
}

func (s *Store) InsertComplaint(ctx context.Context, rec Record) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Status == "" {
		rec.Status = "pending"
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO complaints
		(id, user_id, source, category, title, description, priority, status, audio_url, image_url,
		latitude, longitude, address, language, transcript_original, transcript_english, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		rec.ID, rec.UserID, rec.Source, rec.Category, rec.Title, rec.Description, rec.Priority, rec.Status,
		rec.AudioURL, rec.ImageURL, rec.Latitude, rec.Longitude, rec.Address, rec.Language,
		rec.TranscriptOriginal, rec.TranscriptEnglish, rec.CreatedAt)
	if err != nil {
		return "", err
	}
	return rec.ID, nil
}

func (s *Store) GetComplaint(ctx context.Context, id string) (Record, error) {
	var rec Record
	row := s.db.QueryRowContext(ctx, `SELECT id, user_id, source, category, title, description, priority, status,
		audio_url, image_url, latitude, longitude, address, language, transcript_original, transcript_english, created_at
		FROM complaints WHERE id = $1`, id)
	err := row.Scan(&rec.ID, &rec.UserID, &rec.Source, &rec.Category, &rec.Title, &rec.Description, &rec.Priority,
		&rec.Status, &rec.AudioURL, &rec.ImageURL, &rec.Latitude, &rec.Longitude, &rec.Address, &rec.Language,
		&rec.TranscriptOriginal, &rec.TranscriptEnglish, &rec.CreatedAt)
	return rec, err
}

func (s *Store) ListComplaintsByUser(ctx context.Context, userID string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, user_id, source, category, title, description, priority, status,
		audio_url, image_url, latitude, longitude, address, language, transcript_original, transcript_english, created_at
		FROM complaints WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Source, &rec.Category, &rec.Title, &rec.Description,
			&rec.Priority, &rec.Status, &rec.AudioURL, &rec.ImageURL, &rec.Latitude, &rec.Longitude, &rec.Address,
			&rec.Language, &rec.TranscriptOriginal, &rec.TranscriptEnglish, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) UpdateComplaintStatus(ctx context.Context, id, status string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE complaints SET status = $2 WHERE id = $1`, id, status)
	return err
}
