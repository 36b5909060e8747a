package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a document or revision does not exist.
var ErrNotFound = errors.New("not found")

// Record describes a stored document without its body.
type Record struct {
	ID         string
	Name       string
	SheetCount int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Revision is one recorded state of a document.
type Revision struct {
	ID         int64
	DocumentID string
	Reason     string
	Body       []byte
	CreatedAt  time.Time
}

// DocumentStore implements document persistence using a SQLite database.
type DocumentStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewDocumentStore creates a new DocumentStore.
func NewDocumentStore(db *sql.DB) *DocumentStore {
	return &DocumentStore{db: db, now: time.Now}
}

// sheetCount validates body as a serialized document and counts its sheets.
func sheetCount(body []byte) (int, error) {
	var doc struct {
		Sheets []json.RawMessage `json:"sheets"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return 0, fmt.Errorf("decoding document: %w", err)
	}
	return len(doc.Sheets), nil
}

// Save inserts or replaces the body of document id. An empty name keeps the
// stored one.
func (s *DocumentStore) Save(ctx context.Context, id, name string, body []byte) error {
	n, err := sheetCount(body)
	if err != nil {
		return err
	}
	now := s.now().UTC().Format(time.RFC3339Nano)
	query := `INSERT INTO documents (id, name, sheet_count, body, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = CASE WHEN excluded.name != '' THEN excluded.name ELSE documents.name END,
			sheet_count = excluded.sheet_count,
			body = excluded.body,
			updated_at = excluded.updated_at`
	if _, err := s.db.ExecContext(ctx, query, id, name, n, string(body), now, now); err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

// Load returns the stored body of document id.
func (s *DocumentStore) Load(ctx context.Context, id string) ([]byte, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM documents WHERE id = ?`, id).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("loading document: %w", err)
	}
	return []byte(body), nil
}

// Get returns the record of document id.
func (s *DocumentStore) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, sheet_count, created_at, updated_at FROM documents WHERE id = ?`, id)
	r, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return r, nil
}

// List returns every stored document, most recently updated first.
func (s *DocumentStore) List(ctx context.Context) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, sheet_count, created_at, updated_at FROM documents ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return out, nil
}

// Delete removes document id and its revisions.
func (s *DocumentStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	return nil
}

// AddRevision records body as a revision of document id and trims the
// oldest revisions beyond keep (keep <= 0 keeps everything).
func (s *DocumentStore) AddRevision(ctx context.Context, id, reason string, body []byte, keep int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting revision transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := s.now().UTC().Format(time.RFC3339Nano)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO revisions (document_id, reason, body, created_at) VALUES (?, ?, ?, ?)`,
		id, reason, string(body), now); err != nil {
		return fmt.Errorf("inserting revision: %w", err)
	}
	if keep > 0 {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM revisions WHERE document_id = ? AND id NOT IN (
				SELECT id FROM revisions WHERE document_id = ? ORDER BY id DESC LIMIT ?)`,
			id, id, keep); err != nil {
			return fmt.Errorf("trimming revisions: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing revision: %w", err)
	}
	return nil
}

// Revisions returns the revisions of document id, newest first. limit <= 0
// returns all of them. Bodies are included.
func (s *DocumentStore) Revisions(ctx context.Context, id string, limit int) ([]*Revision, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document_id, reason, body, created_at FROM revisions
			WHERE document_id = ? ORDER BY id DESC LIMIT ?`, id, limit)
	if err != nil {
		return nil, fmt.Errorf("listing revisions: %w", err)
	}
	defer rows.Close()

	var out []*Revision
	for rows.Next() {
		var (
			rev     Revision
			body    string
			created string
		)
		if err := rows.Scan(&rev.ID, &rev.DocumentID, &rev.Reason, &body, &created); err != nil {
			return nil, fmt.Errorf("scanning revision: %w", err)
		}
		rev.Body = []byte(body)
		rev.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, &rev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating revisions: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		r                Record
		created, updated string
	)
	if err := row.Scan(&r.ID, &r.Name, &r.SheetCount, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}
	r.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	r.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return &r, nil
}
