package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"roadmap/api/internal/roadmap"
)

// ErrNotInitialized is returned by GetDocument before any document has been
// stored.
var ErrNotInitialized = errors.New("roadmap document not initialized")

// The document is persisted wholesale as one JSONB row; there is exactly one
// logical document per deployment.
const documentRowID = 1

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetDocument reads the current document.
func (s *PostgresStore) GetDocument(ctx context.Context) (*roadmap.Document, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM roadmap_state WHERE id=$1`, documentRowID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotInitialized
	}
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	var doc roadmap.Document
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return &doc, nil
}

// ReplaceDocument overwrites the whole document and sets the update marker.
func (s *PostgresStore) ReplaceDocument(ctx context.Context, doc *roadmap.Document, updatedAtMillis int64) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO roadmap_state (id, data, last_update_ms)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data, last_update_ms=EXCLUDED.last_update_ms
	`, documentRowID, payload, updatedAtMillis)
	if err != nil {
		return fmt.Errorf("replace document: %w", err)
	}
	return nil
}

// LastUpdate returns the marker in epoch millis, 0 when nothing has been
// stored yet.
func (s *PostgresStore) LastUpdate(ctx context.Context) (int64, error) {
	var millis int64
	err := s.db.QueryRowContext(ctx, `SELECT last_update_ms FROM roadmap_state WHERE id=$1`, documentRowID).Scan(&millis)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read update marker: %w", err)
	}
	return millis, nil
}

// RecordVote inserts the (user, voteKey) pair. The primary key makes the
// insert atomic: false means the pair already existed and nothing changed.
func (s *PostgresStore) RecordVote(ctx context.Context, userID, voteKey string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO user_votes (user_id, vote_key)
		VALUES ($1, $2)
		ON CONFLICT (user_id, vote_key) DO NOTHING
	`, userID, voteKey)
	if err != nil {
		return false, fmt.Errorf("record vote: %w", err)
	}
	inserted, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("record vote result: %w", err)
	}
	return inserted > 0, nil
}

func (s *PostgresStore) HasVoted(ctx context.Context, userID, voteKey string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM user_votes WHERE user_id=$1 AND vote_key=$2)
	`, userID, voteKey).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check vote: %w", err)
	}
	return exists, nil
}

// VotesForUser returns the user's vote keys; unknown users get an empty set.
func (s *PostgresStore) VotesForUser(ctx context.Context, userID string) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT vote_key FROM user_votes WHERE user_id=$1`, userID)
	if err != nil {
		return nil, fmt.Errorf("list votes: %w", err)
	}
	defer rows.Close()

	votes := make(map[string]bool)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan vote: %w", err)
		}
		votes[key] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list votes: %w", err)
	}
	return votes, nil
}

// RemoveVote deletes a ledger entry. Used to roll back when the document
// write fails after the ledger already accepted the vote.
func (s *PostgresStore) RemoveVote(ctx context.Context, userID, voteKey string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM user_votes WHERE user_id=$1 AND vote_key=$2`, userID, voteKey); err != nil {
		return fmt.Errorf("remove vote: %w", err)
	}
	return nil
}
