package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/davharte/docbridge/internal/adapter"
	"github.com/davharte/docbridge/internal/backend"
	"github.com/davharte/docbridge/internal/chunk"
	"github.com/davharte/docbridge/internal/config"
	"github.com/davharte/docbridge/internal/orchestrator"
	"github.com/davharte/docbridge/internal/store"
)

const testKey = "test-key"

func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()

	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	log := slog.New(slog.NewTextHandler(testWriter{t}, &slog.HandlerOptions{Level: slog.LevelError}))

	orch := orchestrator.New(adapter.NewRegistry(), log)
	policy := backend.RetryPolicy{MaxAttempts: 1}
	orch.RegisterClient(backend.NewClient(backend.MarkdownEngine{}, policy, log))
	orch.RegisterClient(backend.NewClient(backend.PlaintextEngine{}, policy, log))

	svc := orchestrator.NewService(orch, db, orchestrator.ServiceConfig{
		Workers:      1,
		MaxQueueSize: 8,
		JobTTL:       time.Minute,
		Snapshot: orchestrator.Snapshot{
			Backends: []string{backend.EngineMarkdown},
			Chunk:    chunk.DefaultOptions(),
		},
	}, log)
	ctx, cancel := context.WithCancel(context.Background())
	svc.Start(ctx)
	t.Cleanup(func() {
		cancel()
		svc.Stop()
	})

	cfg := config.Config{
		APIKey:             testKey,
		MaxUploadBytes:     1 << 20,
		MigrationBatchSize: 100,
	}
	return NewServer(svc, log, cfg), db
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func multipartUpload(t *testing.T, filename string, data []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write(data)
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	mw.Close()
	return &body, mw.FormDataContentType()
}

func doRequest(srv *Server, req *http.Request, authed bool) *httptest.ResponseRecorder {
	if authed {
		req.Header.Set("Authorization", "Bearer "+testKey)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestAuth(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/documents/x/chunks", nil)
	if rec := doRequest(srv, req, false); rec.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated request: status %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/documents/x/chunks", nil)
	req.Header.Set("Authorization", "Bearer wrong-key")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad key: status %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	if rec := doRequest(srv, req, false); rec.Code != http.StatusOK {
		t.Errorf("health must be public: status %d", rec.Code)
	}
}

func TestProcessSync(t *testing.T) {
	srv, _ := newTestServer(t)

	content := "# A\ntext1\n## B\ntext2"
	body, ctype := multipartUpload(t, "doc.md", []byte(content), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/process", body)
	req.Header.Set("Content-Type", ctype)

	rec := doRequest(srv, req, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		CorrelationID string        `json:"correlation_id"`
		Parser        string        `json:"parser"`
		Strategy      string        `json:"strategy"`
		Chunks        []chunk.Chunk `json:"chunks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Parser != backend.EngineMarkdown {
		t.Errorf("parser = %q", resp.Parser)
	}
	if resp.Strategy != "semantic" {
		t.Errorf("strategy = %q", resp.Strategy)
	}
	if len(resp.Chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(resp.Chunks))
	}
	if resp.CorrelationID == "" {
		t.Error("missing correlation id")
	}
}

func TestProcessSync_UnsupportedExtension(t *testing.T) {
	srv, _ := newTestServer(t)

	body, ctype := multipartUpload(t, "binary.exe", []byte("MZ"), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/process", body)
	req.Header.Set("Content-Type", ctype)

	if rec := doRequest(srv, req, true); rec.Code != http.StatusBadRequest {
		t.Errorf("status %d, want 400", rec.Code)
	}
}

func TestIngestAsync(t *testing.T) {
	srv, db := newTestServer(t)

	content := "# Title\nsome body text"
	body, ctype := multipartUpload(t, "doc.md", []byte(content), map[string]string{"doc_id": "doc-async"})
	req := httptest.NewRequest(http.MethodPost, "/api/ingest", body)
	req.Header.Set("Content-Type", ctype)

	rec := doRequest(srv, req, true)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var accepted struct {
		JobID string `json:"job_id"`
		DocID string `json:"doc_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &accepted); err != nil {
		t.Fatal(err)
	}
	if accepted.DocID != "doc-async" {
		t.Errorf("doc_id = %q", accepted.DocID)
	}

	// Poll the status endpoint until the worker finishes.
	var snap orchestrator.JobSnapshot
	deadline := time.Now().Add(5 * time.Second)
	for {
		statusReq := httptest.NewRequest(http.MethodGet,
			fmt.Sprintf("/api/ingest/%s/status", accepted.JobID), nil)
		statusRec := doRequest(srv, statusReq, true)
		if statusRec.Code != http.StatusOK {
			t.Fatalf("status endpoint: %d", statusRec.Code)
		}
		if err := json.Unmarshal(statusRec.Body.Bytes(), &snap); err != nil {
			t.Fatal(err)
		}
		if snap.Status == orchestrator.StatusCompleted || snap.Status == orchestrator.StatusFailed {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job stuck in status %q", snap.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if snap.Status != orchestrator.StatusCompleted {
		t.Fatalf("job failed: %+v", snap)
	}
	if snap.Progress.ChunksStored == 0 {
		t.Error("no chunks recorded as stored")
	}

	// The chunks are queryable afterwards.
	chunks, err := db.ChunksByDoc(context.Background(), "doc-async")
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) == 0 {
		t.Error("no chunks persisted")
	}
}

func TestBatchIngest(t *testing.T) {
	srv, _ := newTestServer(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for name, content := range map[string]string{
		"one.md":  "# One\nbody",
		"two.zip": "unsupported",
	} {
		fw, err := mw.CreateFormFile("files", name)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write([]byte(content))
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/ingest/batch", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := doRequest(srv, req, true)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Jobs []struct {
			Filename string `json:"filename"`
			JobID    string `json:"job_id"`
			Status   string `json:"status"`
			Error    string `json:"error"`
		} `json:"jobs"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Jobs) != 2 {
		t.Fatalf("got %d results, want 2", len(resp.Jobs))
	}
	for _, j := range resp.Jobs {
		switch j.Filename {
		case "one.md":
			if j.JobID == "" || j.Error != "" {
				t.Errorf("markdown upload rejected: %+v", j)
			}
			// The worker may have advanced the job already; any reported
			// status must still be a live one.
			if j.Status == "" || j.Status == string(orchestrator.StatusFailed) {
				t.Errorf("unexpected status %q", j.Status)
			}
		case "two.zip":
			if j.Error == "" {
				t.Error("unsupported extension accepted")
			}
		default:
			t.Errorf("unexpected filename %q", j.Filename)
		}
	}
}

func TestDocumentChunks_Filters(t *testing.T) {
	srv, db := newTestServer(t)

	err := db.SaveDocument(context.Background(), store.DocumentRecord{
		ID: "doc1", Name: "doc1.md", Parser: "markdown", CorrelationID: "c1",
	}, []chunk.Chunk{
		{Text: "a", HeaderPath: []string{"Intro"}, Tokens: 1, SchemaVersion: chunk.SchemaVersion},
		{Text: "b", HeaderPath: []string{"Intro", "Deep"}, Tokens: 1, SchemaVersion: chunk.SchemaVersion},
		{Text: "c", HeaderPath: []string{"Usage"}, Tokens: 1, SchemaVersion: chunk.SchemaVersion},
	})
	if err != nil {
		t.Fatal(err)
	}

	get := func(url string) (int, struct {
		Count  int                 `json:"count"`
		Chunks []store.ChunkRecord `json:"chunks"`
	}) {
		var out struct {
			Count  int                 `json:"count"`
			Chunks []store.ChunkRecord `json:"chunks"`
		}
		req := httptest.NewRequest(http.MethodGet, url, nil)
		rec := doRequest(srv, req, true)
		if rec.Code == http.StatusOK {
			json.Unmarshal(rec.Body.Bytes(), &out)
		}
		return rec.Code, out
	}

	code, out := get("/api/documents/doc1/chunks")
	if code != http.StatusOK || out.Count != 3 {
		t.Errorf("all chunks: code %d count %d", code, out.Count)
	}

	code, out = get("/api/documents/doc1/chunks?segment=Deep")
	if code != http.StatusOK || out.Count != 1 || out.Chunks[0].Text != "b" {
		t.Errorf("segment filter: code %d, %+v", code, out)
	}

	code, out = get("/api/documents/doc1/chunks?root=Intro")
	if code != http.StatusOK || out.Count != 2 {
		t.Errorf("root filter: code %d count %d", code, out.Count)
	}

	code, _ = get("/api/documents/doc1/chunks?segment=A&root=B")
	if code != http.StatusBadRequest {
		t.Errorf("conflicting filters: code %d, want 400", code)
	}
}

func TestMigrateEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/migrate-header-paths", nil)
	rec := doRequest(srv, req, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var out struct {
		Migrated int `json:"migrated"`
		Skipped  int `json:"skipped"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if out.Migrated != 0 || out.Skipped != 0 {
		t.Errorf("fresh store should have nothing to migrate: %+v", out)
	}
}
