package api

import (
	"encoding/json"
	"net/http"

	"github.com/davharte/docbridge/internal/metapath"
)

// handleMigrateHeaderPaths rewrites legacy scalar header paths into the
// tagged array shape. The migration is idempotent: already-tagged rows are
// never selected, so re-running after a partial failure only touches the
// remainder.
func (s *Server) handleMigrateHeaderPaths(w http.ResponseWriter, r *http.Request) {
	m := metapath.NewMigrator(s.service.Store(), s.cfg.MigrationBatchSize, s.log)
	stats, err := m.Run(r.Context())
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]any{
			"error":    err.Error(),
			"migrated": stats.Migrated,
			"skipped":  stats.Skipped,
			"batches":  stats.Batches,
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"migrated": stats.Migrated,
		"skipped":  stats.Skipped,
		"batches":  stats.Batches,
	})
}
