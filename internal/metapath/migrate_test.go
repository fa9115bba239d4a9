package metapath

import (
	"context"
	"fmt"
	"testing"
)

// memSource simulates the store's untagged rows in memory.
type memSource struct {
	rows    map[int64]string // id -> raw legacy value
	tagged  map[int64]PathUpdate
	fetches int
}

func newMemSource(rows map[int64]string) *memSource {
	return &memSource{rows: rows, tagged: make(map[int64]PathUpdate)}
}

func (s *memSource) UntaggedHeaderPaths(ctx context.Context, afterID int64, limit int) ([]UntaggedRecord, error) {
	s.fetches++
	var out []UntaggedRecord
	// ids are small in tests; a linear scan keeps the fake honest about
	// keyset ordering.
	for id := afterID + 1; id <= 10_000 && len(out) < limit; id++ {
		if _, done := s.tagged[id]; done {
			continue
		}
		if raw, ok := s.rows[id]; ok {
			out = append(out, UntaggedRecord{ID: id, Raw: raw})
		}
	}
	return out, nil
}

func (s *memSource) ApplyHeaderPaths(ctx context.Context, updates []PathUpdate) error {
	for _, u := range updates {
		s.tagged[u.ID] = u
	}
	return nil
}

func TestMigrator_RewritesLegacyRows(t *testing.T) {
	src := newMemSource(map[int64]string{
		1: "/Intro/Background",
		2: "/Usage",
		3: "",
	})
	m := NewMigrator(src, 10, nil)

	stats, err := m.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Migrated != 3 || stats.Skipped != 0 {
		t.Errorf("stats = %+v, want 3 migrated", stats)
	}
	if got := src.tagged[1].Encoded; got != `["Intro","Background"]` {
		t.Errorf("row 1 encoded = %q", got)
	}
	if got := src.tagged[1].Version; got != Version {
		t.Errorf("row 1 version = %q, want %q", got, Version)
	}
	if got := src.tagged[3].Encoded; got != `[]` {
		t.Errorf("empty scalar should become an empty array, got %q", got)
	}
}

func TestMigrator_SkipsAmbiguousRows(t *testing.T) {
	src := newMemSource(map[int64]string{
		1: "/Fine/Path",
		2: `/Broken\`,
		3: "/Also/Fine",
	})
	m := NewMigrator(src, 10, nil)

	stats, err := m.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Migrated != 2 {
		t.Errorf("migrated = %d, want 2", stats.Migrated)
	}
	if stats.Skipped != 1 {
		t.Errorf("skipped = %d, want 1", stats.Skipped)
	}
	if _, ok := src.tagged[2]; ok {
		t.Error("ambiguous row must stay in its legacy shape")
	}
}

func TestMigrator_Batches(t *testing.T) {
	rows := make(map[int64]string, 25)
	for i := int64(1); i <= 25; i++ {
		rows[i] = fmt.Sprintf("/Section%d", i)
	}
	src := newMemSource(rows)
	m := NewMigrator(src, 10, nil)

	stats, err := m.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Migrated != 25 {
		t.Errorf("migrated = %d, want 25", stats.Migrated)
	}
	if stats.Batches != 3 {
		t.Errorf("batches = %d, want 3", stats.Batches)
	}
}

func TestMigrator_TerminatesWhenAllRowsAmbiguous(t *testing.T) {
	// A full batch of skipped rows must still advance the cursor.
	rows := make(map[int64]string, 12)
	for i := int64(1); i <= 12; i++ {
		rows[i] = `/Bad\`
	}
	src := newMemSource(rows)
	m := NewMigrator(src, 10, nil)

	stats, err := m.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Skipped != 12 {
		t.Errorf("skipped = %d, want 12", stats.Skipped)
	}
	if src.fetches > 3 {
		t.Errorf("migration looped: %d fetches", src.fetches)
	}
}

func TestMigrator_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := newMemSource(map[int64]string{1: "/A"})
	m := NewMigrator(src, 10, nil)

	if _, err := m.Run(ctx); err == nil {
		t.Error("expected context error")
	}
}
