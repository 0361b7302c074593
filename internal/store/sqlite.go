package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/starford/edital/internal/apperr"
	"github.com/starford/edital/internal/models"
)

var _ Gateway = (*SQLite)(nil)

// CreateSubject inserts a new subject under a fresh uuid.
func (db *SQLite) CreateSubject(ctx context.Context, ownerID, name string, topics []*models.Topic) (string, error) {
	topicsJSON, err := json.Marshal(nonNil(topics))
	if err != nil {
		return "", fmt.Errorf("store: encode topics: %w", err)
	}
	id := uuid.NewString()
	ts := now()
	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO subjects (id, owner_id, name, topics, revision, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, ownerID, name, string(topicsJSON), revision(name, topics), ts, ts)
	if err != nil {
		return "", fmt.Errorf("store: insert subject: %w", err)
	}
	return id, nil
}

// ReplaceSubject overwrites name and topics; the owner is kept.
func (db *SQLite) ReplaceSubject(ctx context.Context, id string, s models.Subject) error {
	topicsJSON, err := json.Marshal(nonNil(s.Topics))
	if err != nil {
		return fmt.Errorf("store: encode topics: %w", err)
	}
	res, err := db.conn.ExecContext(ctx, `
		UPDATE subjects
		SET name = ?, topics = ?, revision = ?, updated_at = ?
		WHERE id = ?
	`, s.Name, string(topicsJSON), revision(s.Name, s.Topics), now(), id)
	if err != nil {
		return fmt.Errorf("store: replace subject: %w", err)
	}
	return expectRow(res, id)
}

// MergeSubject patches the set fields inside a transaction.
func (db *SQLite) MergeSubject(ctx context.Context, id string, f models.Fields) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var name, topicsJSON string
	err = tx.QueryRowContext(ctx, `SELECT name, topics FROM subjects WHERE id = ?`, id).Scan(&name, &topicsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("store: subject %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("store: read subject: %w", err)
	}

	var topics []*models.Topic
	if err := json.Unmarshal([]byte(topicsJSON), &topics); err != nil {
		return fmt.Errorf("store: decode topics: %w", err)
	}
	if f.Name != nil {
		name = *f.Name
	}
	if f.Topics != nil {
		topics = f.Topics
		raw, err := json.Marshal(topics)
		if err != nil {
			return fmt.Errorf("store: encode topics: %w", err)
		}
		topicsJSON = string(raw)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE subjects
		SET name = ?, topics = ?, revision = ?, updated_at = ?
		WHERE id = ?
	`, name, topicsJSON, revision(name, topics), now(), id)
	if err != nil {
		return fmt.Errorf("store: merge subject: %w", err)
	}
	return tx.Commit()
}

// DeleteSubject removes a subject row.
func (db *SQLite) DeleteSubject(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM subjects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete subject: %w", err)
	}
	return expectRow(res, id)
}

// ListSubjects returns every subject of the owner, oldest first.
func (db *SQLite) ListSubjects(ctx context.Context, ownerID string) ([]models.Subject, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, owner_id, name, topics, revision, created_at, updated_at
		FROM subjects
		WHERE owner_id = ?
		ORDER BY created_at, rowid
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("store: list subjects: %w", err)
	}
	defer rows.Close()

	out := []models.Subject{}
	for rows.Next() {
		s, err := scanSubject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// GetSubject returns one subject by id.
func (db *SQLite) GetSubject(ctx context.Context, id string) (*models.Subject, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, owner_id, name, topics, revision, created_at, updated_at
		FROM subjects
		WHERE id = ?
	`, id)
	s, err := scanSubject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: subject %s: %w", id, apperr.ErrNotFound)
	}
	return s, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSubject(sc scanner) (*models.Subject, error) {
	var s models.Subject
	var topicsJSON string
	if err := sc.Scan(&s.ID, &s.OwnerID, &s.Name, &topicsJSON, &s.Revision, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(topicsJSON), &s.Topics); err != nil {
		return nil, fmt.Errorf("store: decode topics of %s: %w", s.ID, err)
	}
	s.Topics = nonNil(s.Topics)
	return &s, nil
}

func expectRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("store: subject %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}
