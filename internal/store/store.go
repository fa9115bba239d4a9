// Package store persists documents and their emitted chunks in SQLite. The
// chunk rows carry the persisted header_path metadata field: always written
// as a JSON array with its schema version tag, while legacy scalar rows from
// older writers remain readable until the background migration rewrites
// them.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/davharte/docbridge/internal/chunk"
	"github.com/davharte/docbridge/internal/metapath"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL,
	parser         TEXT NOT NULL,
	correlation_id TEXT NOT NULL,
	content        TEXT NOT NULL,
	created_at     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS chunks (
	id                         INTEGER PRIMARY KEY AUTOINCREMENT,
	doc_id                     TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	idx                        INTEGER NOT NULL,
	text                       TEXT NOT NULL,
	tokens                     INTEGER NOT NULL,
	header_path                TEXT NOT NULL,
	header_path_schema_version TEXT NOT NULL DEFAULT '',
	created_at                 TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chunks_doc ON chunks(doc_id, idx);
CREATE INDEX IF NOT EXISTS idx_chunks_version ON chunks(header_path_schema_version);
`

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path with production pragmas.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if path == ":memory:" {
		// Each pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}
	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenMemory opens an in-memory database, used in tests.
func OpenMemory() (*Store, error) {
	return Open(":memory:")
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// DocumentRecord is one persisted document row.
type DocumentRecord struct {
	ID            string
	Name          string
	Parser        string
	CorrelationID string
	Content       string
	CreatedAt     time.Time
}

// ChunkRecord is one persisted chunk with its normalized header path.
type ChunkRecord struct {
	ID            int64    `json:"id"`
	DocID         string   `json:"doc_id"`
	Index         int      `json:"index"`
	Text          string   `json:"text"`
	Tokens        int      `json:"tokens"`
	HeaderPath    []string `json:"header_path"`
	SchemaVersion string   `json:"header_path_schema_version"`
}

// SaveDocument writes the document and its chunks in one transaction.
// Chunk header paths are always persisted in the array shape with the
// version tag set.
func (s *Store) SaveDocument(ctx context.Context, doc DocumentRecord, chunks []chunk.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	createdAt := doc.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	ts := createdAt.Format(time.RFC3339)

	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO documents (id, name, parser, correlation_id, content, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Name, doc.Parser, doc.CorrelationID, doc.Content, ts,
	); err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE doc_id = ?`, doc.ID); err != nil {
		return fmt.Errorf("clear chunks: %w", err)
	}

	for i, ck := range chunks {
		encoded, err := metapath.EncodeSegments(ck.HeaderPath)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO chunks (doc_id, idx, text, tokens, header_path, header_path_schema_version, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			doc.ID, i, ck.Text, ck.Tokens, encoded, metapath.Version, ts,
		); err != nil {
			return fmt.Errorf("insert chunk %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// ChunksByDoc returns a document's chunks in emission order. Header paths
// are normalized on read, so legacy-shape rows remain usable before the
// migration reaches them.
func (s *Store) ChunksByDoc(ctx context.Context, docID string) ([]ChunkRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, doc_id, idx, text, tokens, header_path, header_path_schema_version
		 FROM chunks WHERE doc_id = ? ORDER BY idx`, docID)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()
	return scanChunks(rows)
}

func scanChunks(rows *sql.Rows) ([]ChunkRecord, error) {
	var out []ChunkRecord
	for rows.Next() {
		var rec ChunkRecord
		var rawPath, version string
		if err := rows.Scan(&rec.ID, &rec.DocID, &rec.Index, &rec.Text, &rec.Tokens, &rawPath, &version); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		hp, err := metapath.Normalize(rawPath)
		if err != nil {
			// Ambiguous legacy rows stay visible with an empty path rather
			// than failing the whole read.
			hp = metapath.HeaderPath{Segments: []string{}, SchemaVersion: version}
		}
		rec.HeaderPath = hp.Segments
		rec.SchemaVersion = version
		out = append(out, rec)
	}
	return out, rows.Err()
}
