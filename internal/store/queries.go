package store

import (
	"context"
	"fmt"

	"github.com/davharte/docbridge/internal/metapath"
)

// ChunksWithSegment returns chunks whose header path contains segment
// anywhere. Tagged rows are filtered in SQL through json_each; untagged
// legacy rows are normalized and filtered here, so queries stay correct
// while a migration is in flight. docID narrows to one document when
// non-empty.
func (s *Store) ChunksWithSegment(ctx context.Context, docID, segment string) ([]ChunkRecord, error) {
	tagged, err := s.db.QueryContext(ctx,
		`SELECT id, doc_id, idx, text, tokens, header_path, header_path_schema_version
		 FROM chunks
		 WHERE header_path_schema_version = ?
		   AND (? = '' OR doc_id = ?)
		   AND EXISTS (SELECT 1 FROM json_each(chunks.header_path) WHERE json_each.value = ?)
		 ORDER BY doc_id, idx`,
		metapath.Version, docID, docID, segment)
	if err != nil {
		return nil, fmt.Errorf("query tagged chunks: %w", err)
	}
	defer tagged.Close()

	out, err := scanChunks(tagged)
	if err != nil {
		return nil, err
	}

	legacy, err := s.legacyChunks(ctx, docID)
	if err != nil {
		return nil, err
	}
	for _, rec := range legacy {
		for _, seg := range rec.HeaderPath {
			if seg == segment {
				out = append(out, rec)
				break
			}
		}
	}
	return out, nil
}

// ChunksWithRoot returns chunks whose header path starts at root.
func (s *Store) ChunksWithRoot(ctx context.Context, docID, root string) ([]ChunkRecord, error) {
	tagged, err := s.db.QueryContext(ctx,
		`SELECT id, doc_id, idx, text, tokens, header_path, header_path_schema_version
		 FROM chunks
		 WHERE header_path_schema_version = ?
		   AND (? = '' OR doc_id = ?)
		   AND json_extract(chunks.header_path, '$[0]') = ?
		 ORDER BY doc_id, idx`,
		metapath.Version, docID, docID, root)
	if err != nil {
		return nil, fmt.Errorf("query tagged chunks: %w", err)
	}
	defer tagged.Close()

	out, err := scanChunks(tagged)
	if err != nil {
		return nil, err
	}

	legacy, err := s.legacyChunks(ctx, docID)
	if err != nil {
		return nil, err
	}
	for _, rec := range legacy {
		if len(rec.HeaderPath) > 0 && rec.HeaderPath[0] == root {
			out = append(out, rec)
		}
	}
	return out, nil
}

// legacyChunks fetches rows still lacking the version tag.
func (s *Store) legacyChunks(ctx context.Context, docID string) ([]ChunkRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, doc_id, idx, text, tokens, header_path, header_path_schema_version
		 FROM chunks
		 WHERE header_path_schema_version = ''
		   AND (? = '' OR doc_id = ?)
		 ORDER BY doc_id, idx`,
		docID, docID)
	if err != nil {
		return nil, fmt.Errorf("query legacy chunks: %w", err)
	}
	defer rows.Close()
	return scanChunks(rows)
}

// UntaggedHeaderPaths implements metapath.MigrationSource with keyset
// pagination over rows missing the version tag.
func (s *Store) UntaggedHeaderPaths(ctx context.Context, afterID int64, limit int) ([]metapath.UntaggedRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, header_path FROM chunks
		 WHERE header_path_schema_version = '' AND id > ?
		 ORDER BY id LIMIT ?`,
		afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("query untagged: %w", err)
	}
	defer rows.Close()

	var out []metapath.UntaggedRecord
	for rows.Next() {
		var rec metapath.UntaggedRecord
		if err := rows.Scan(&rec.ID, &rec.Raw); err != nil {
			return nil, fmt.Errorf("scan untagged: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ApplyHeaderPaths rewrites one migration batch in a single transaction.
func (s *Store) ApplyHeaderPaths(ctx context.Context, updates []metapath.PathUpdate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`UPDATE chunks SET header_path = ?, header_path_schema_version = ? WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("prepare update: %w", err)
	}
	defer stmt.Close()

	for _, u := range updates {
		if _, err := stmt.ExecContext(ctx, u.Encoded, u.Version, u.ID); err != nil {
			return fmt.Errorf("update chunk %d: %w", u.ID, err)
		}
	}
	return tx.Commit()
}
