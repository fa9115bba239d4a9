package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/davharte/docbridge/internal/orchestrator"
)

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	// Limit total request size, with headroom for form overhead.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	data, status, err := s.readUpload(file)
	if err != nil {
		jsonError(w, err.Error(), status)
		return
	}
	if !orchestrator.IsSupportedExtension(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	job := s.newJob(r, filename, data)
	if err := s.service.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	// A worker may already be mutating the job; read through the snapshot.
	snap := job.Snapshot()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":         snap.ID,
		"doc_id":         snap.DocID,
		"correlation_id": snap.CorrelationID,
		"status":         snap.Status,
		"poll_url":       fmt.Sprintf("/api/ingest/%s/status", snap.ID),
	})
}

func (s *Server) handleBatchIngest(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes*10+10*1024*1024)

	if err := r.ParseMultipartForm(64 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		jsonError(w, "at least one file is required", http.StatusBadRequest)
		return
	}

	var results []map[string]any
	for _, fh := range files {
		filename := sanitizeFilename(fh.Filename)
		if !orchestrator.IsSupportedExtension(filename) {
			results = append(results, map[string]any{
				"filename": filename,
				"error":    fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)),
			})
			continue
		}

		f, err := fh.Open()
		if err != nil {
			results = append(results, map[string]any{
				"filename": filename,
				"error":    "failed to open file",
			})
			continue
		}
		data, _, err := s.readUpload(f)
		f.Close()
		if err != nil {
			results = append(results, map[string]any{
				"filename": filename,
				"error":    err.Error(),
			})
			continue
		}

		job := s.newJob(r, filename, data)
		if err := s.service.Submit(job); err != nil {
			results = append(results, map[string]any{
				"filename": filename,
				"error":    err.Error(),
			})
			continue
		}
		snap := job.Snapshot()

		results = append(results, map[string]any{
			"filename":       filename,
			"job_id":         snap.ID,
			"doc_id":         snap.DocID,
			"correlation_id": snap.CorrelationID,
			"status":         snap.Status,
			"poll_url":       fmt.Sprintf("/api/ingest/%s/status", snap.ID),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{"jobs": results})
}

func (s *Server) handleIngestStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.service.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(job.Snapshot())
}

// handleProcess runs the full pipeline synchronously and returns the chunks
// inline without persisting anything. Intended for previews and debugging.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	data, status, err := s.readUpload(file)
	if err != nil {
		jsonError(w, err.Error(), status)
		return
	}

	snap := s.service.DefaultSnapshot()
	if chain, ok := orchestrator.ChainFor(filename); ok {
		snap.Backends = chain
	} else {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}
	if v := r.FormValue("chunk_token_num"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			snap.Chunk.ChunkTokenNum = n
		}
	}
	if v := r.FormValue("overlap_percent"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 && n < 100 {
			snap.Chunk.OverlapPercent = n
		}
	}

	res, err := s.service.Orchestrator().Process(r.Context(), orchestrator.Request{
		Filename: filename,
		Data:     data,
	}, snap)
	if err != nil {
		var oerr *orchestrator.OrchestrationError
		if errors.As(err, &oerr) {
			writeOrchestrationError(w, oerr)
			return
		}
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"correlation_id": res.CorrelationID,
		"parser":         res.Parser,
		"strategy":       res.Strategy,
		"sanitized":      res.Sanitized,
		"warnings":       res.Warnings,
		"chunks":         res.Chunks,
	})
}

func (s *Server) newJob(r *http.Request, filename string, data []byte) *orchestrator.Job {
	docID := r.FormValue("doc_id")
	if docID == "" {
		docID = orchestrator.ContentHashHex(data)[:16]
	}
	now := time.Now()
	job := &orchestrator.Job{
		ID:            orchestrator.ContentHashHex([]byte(fmt.Sprintf("%s-%d", filename, now.UnixNano())))[:20],
		DocID:         docID,
		CorrelationID: r.FormValue("correlation_id"),
		Status:        orchestrator.StatusQueued,
		Phase:         "queued",
		Filename:      filename,
		ContentHash:   orchestrator.ContentHashHex(data),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	job.SetFileData(data, nil)
	return job
}

func (s *Server) readUpload(file multipart.File) ([]byte, int, error) {
	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return nil, http.StatusInternalServerError, fmt.Errorf("failed to read file")
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return nil, http.StatusRequestEntityTooLarge,
			fmt.Errorf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes)
	}
	return data, 0, nil
}

func writeOrchestrationError(w http.ResponseWriter, oerr *orchestrator.OrchestrationError) {
	attempts := make([]map[string]string, 0, len(oerr.Attempts))
	for _, a := range oerr.Attempts {
		attempts = append(attempts, map[string]string{
			"backend": a.Backend,
			"error":   a.Err.Error(),
		})
	}
	status := http.StatusUnprocessableEntity
	if oerr.Kind == orchestrator.AllBackendsFailed {
		status = http.StatusBadGateway
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error":          string(oerr.Kind),
		"correlation_id": oerr.CorrelationID,
		"attempts":       attempts,
	})
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
