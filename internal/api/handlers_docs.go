package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/davharte/docbridge/internal/store"
)

// handleGetDocument returns the stored document metadata and content.
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	doc, err := s.service.Store().GetDocument(r.Context(), docID)
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}
	if err != nil {
		jsonError(w, "failed to load document: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"doc_id":         doc.ID,
		"name":           doc.Name,
		"parser":         doc.Parser,
		"correlation_id": doc.CorrelationID,
		"content":        doc.Content,
		"created_at":     doc.CreatedAt,
	})
}

// handleDocumentChunks lists a document's chunks in emission order. The
// optional segment and root query parameters filter by header path: segment
// matches chunks whose path contains the value anywhere, root matches only
// the first path element.
func (s *Server) handleDocumentChunks(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	segment := r.URL.Query().Get("segment")
	root := r.URL.Query().Get("root")
	if segment != "" && root != "" {
		jsonError(w, "segment and root are mutually exclusive", http.StatusBadRequest)
		return
	}

	db := s.service.Store()
	var (
		chunks []store.ChunkRecord
		err    error
	)
	switch {
	case segment != "":
		chunks, err = db.ChunksWithSegment(r.Context(), docID, segment)
	case root != "":
		chunks, err = db.ChunksWithRoot(r.Context(), docID, root)
	default:
		chunks, err = db.ChunksByDoc(r.Context(), docID)
	}
	if err != nil {
		jsonError(w, "failed to load chunks: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if chunks == nil {
		chunks = []store.ChunkRecord{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"doc_id": docID,
		"count":  len(chunks),
		"chunks": chunks,
	})
}

// handleDeleteDocument removes a document and its chunks.
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	err := s.service.Store().DeleteDocument(r.Context(), docID)
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}
	if err != nil {
		jsonError(w, "failed to delete document: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"deleted": docID})
}
