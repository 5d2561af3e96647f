// Package store is the Postgres persistence layer: users, the media catalog,
// transcripts and the conversation archive.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq"

	"github.com/scribechat/scribechat/models"
)

type Store struct {
	DB *sql.DB
}

func New(ctx context.Context) (*Store, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		host := getenvDefault("POSTGRES_HOST", "localhost")
		port := getenvDefault("POSTGRES_PORT", "5432")
		user := os.Getenv("POSTGRES_USER")
		pass := os.Getenv("POSTGRES_PASSWORD")
		db := os.Getenv("POSTGRES_DB")
		ssl := getenvDefault("POSTGRES_SSLMODE", "disable")
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, pass, host, port, db, ssl)
	}
	return NewWithDSN(ctx, dsn)
}

// NewWithDSN constructs the Store using an explicit Postgres DSN
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

// User operations
func (s *Store) CreateUser(ctx context.Context, email, hash string) error {
	_, err := s.DB.ExecContext(ctx, `INSERT INTO users (email, password_hash) VALUES ($1,$2)`, email, hash)
	return err
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (id string, hash string, err error) {
	err = s.DB.QueryRowContext(ctx, `SELECT id, password_hash FROM users WHERE email=$1`, email).Scan(&id, &hash)
	return
}

// Media catalog operations
func (s *Store) CreateMedia(ctx context.Context, ownerID, name, kind string) (string, error) {
	var id string
	err := s.DB.QueryRowContext(ctx, `INSERT INTO media (owner_id, name, kind) VALUES ($1,$2,$3) RETURNING id`, ownerID, name, kind).Scan(&id)
	return id, err
}

func (s *Store) ListMedia(ctx context.Context, ownerID string) ([]models.MediaItem, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT id, owner_id, name, kind, created_at FROM media WHERE owner_id=$1 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.MediaItem
	for rows.Next() {
		var m models.MediaItem
		if err := rows.Scan(&m.ID, &m.OwnerID, &m.Name, &m.Kind, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) GetMediaByName(ctx context.Context, ownerID, name string) (models.MediaItem, error) {
	var m models.MediaItem
	err := s.DB.QueryRowContext(ctx, `SELECT id, owner_id, name, kind, created_at FROM media WHERE owner_id=$1 AND name=$2`, ownerID, name).
		Scan(&m.ID, &m.OwnerID, &m.Name, &m.Kind, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return models.MediaItem{}, models.ErrMediaNotFound
	}
	return m, err
}

// Transcript operations. Each media item has one transcript; video items may
// additionally carry an extracted-text artifact (on-screen text, slides).
func (s *Store) UpsertTranscript(ctx context.Context, mediaID, text string) error {
	_, err := s.DB.ExecContext(ctx, `INSERT INTO transcripts (media_id, text) VALUES ($1,$2)
		ON CONFLICT (media_id) DO UPDATE SET text=EXCLUDED.text, updated_at=now()`, mediaID, text)
	return err
}

func (s *Store) GetTranscript(ctx context.Context, mediaID string) (string, error) {
	var text string
	err := s.DB.QueryRowContext(ctx, `SELECT text FROM transcripts WHERE media_id=$1`, mediaID).Scan(&text)
	if err == sql.ErrNoRows {
		return "", models.ErrMediaNotFound
	}
	return text, err
}

func (s *Store) UpsertArtifact(ctx context.Context, mediaID, text string) error {
	_, err := s.DB.ExecContext(ctx, `INSERT INTO artifacts (media_id, text) VALUES ($1,$2)
		ON CONFLICT (media_id) DO UPDATE SET text=EXCLUDED.text, updated_at=now()`, mediaID, text)
	return err
}

func (s *Store) GetArtifact(ctx context.Context, mediaID string) (string, bool, error) {
	var text string
	err := s.DB.QueryRowContext(ctx, `SELECT text FROM artifacts WHERE media_id=$1`, mediaID).Scan(&text)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return text, true, nil
}

// AllTranscripts streams every (owner, media name, text) triple for index
// building at startup.
type TranscriptRow struct {
	OwnerID   string
	MediaName string
	Text      string
}

func (s *Store) AllTranscripts(ctx context.Context) ([]TranscriptRow, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT m.owner_id, m.name, t.text FROM transcripts t JOIN media m ON m.id=t.media_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TranscriptRow
	for rows.Next() {
		var r TranscriptRow
		if err := rows.Scan(&r.OwnerID, &r.MediaName, &r.Text); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Conversation archive operations
func (s *Store) ArchiveTurn(ctx context.Context, userID, question, answer string, citations []models.Citation) (int64, error) {
	data, err := json.Marshal(citations)
	if err != nil {
		return 0, fmt.Errorf("marshal citations: %w", err)
	}
	var id int64
	err = s.DB.QueryRowContext(ctx, `INSERT INTO conversation_turns (user_id, question, answer, citations) VALUES ($1,$2,$3,$4) RETURNING id`,
		userID, question, answer, data).Scan(&id)
	return id, err
}

func (s *Store) ListTurns(ctx context.Context, userID string, limit int) ([]models.ArchivedTurn, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx, `SELECT id, user_id, question, answer, citations, created_at FROM conversation_turns WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.ArchivedTurn
	for rows.Next() {
		var t models.ArchivedTurn
		var data []byte
		if err := rows.Scan(&t.ID, &t.UserID, &t.Question, &t.Answer, &data, &t.CreatedAt); err != nil {
			return nil, err
		}
		if len(data) > 0 {
			_ = json.Unmarshal(data, &t.Citations)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// PruneTurns deletes archived turns older than the cutoff and reports how
// many went away.
func (s *Store) PruneTurns(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM conversation_turns WHERE created_at < $1`, olderThan)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
