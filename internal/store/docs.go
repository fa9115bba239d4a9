package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("document not found")

// GetDocument returns one document by ID.
func (s *Store) GetDocument(ctx context.Context, docID string) (DocumentRecord, error) {
	var rec DocumentRecord
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, parser, correlation_id, content, created_at
		 FROM documents WHERE id = ?`, docID).
		Scan(&rec.ID, &rec.Name, &rec.Parser, &rec.CorrelationID, &rec.Content, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, ErrNotFound
	}
	if err != nil {
		return rec, fmt.Errorf("get document %s: %w", docID, err)
	}
	if t, perr := time.Parse(time.RFC3339Nano, createdAt); perr == nil {
		rec.CreatedAt = t
	}
	return rec, nil
}

// DeleteDocument removes a document; its chunks go with it via the FK cascade.
func (s *Store) DeleteDocument(ctx context.Context, docID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, docID)
	if err != nil {
		return fmt.Errorf("delete document %s: %w", docID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
