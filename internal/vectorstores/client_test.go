package vectorstores_test

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/openai/openai-go/option"
	"github.com/picatz/openai-relay/internal/responses"
	"github.com/picatz/openai-relay/internal/vectorstores"
	"github.com/shoenig/test/must"
)

// testClient points a vectorstores.Client at handler, with retries disabled.
func testClient(t *testing.T, handler http.Handler) *vectorstores.Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return vectorstores.NewClient("test-key",
		option.WithBaseURL(srv.URL+"/v1/"),
		option.WithHTTPClient(srv.Client()),
		option.WithMaxRetries(0),
	)
}

func TestCreateVectorStore(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		must.Eq(t, http.MethodPost, r.Method)
		must.Eq(t, "/v1/vector_stores", r.URL.Path)
		must.Eq(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body map[string]any
		must.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		must.Eq(t, "docs", body["name"].(string))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"id": "vs_123",
			"object": "vector_store",
			"created_at": 1712345678,
			"name": "docs",
			"usage_bytes": 0,
			"file_counts": {"in_progress": 0, "completed": 0, "failed": 0, "cancelled": 0, "total": 0},
			"status": "completed",
			"last_active_at": 1712345678,
			"metadata": {}
		}`)
	}))

	vs, err := client.CreateVectorStore(t.Context(), "docs")
	must.NoError(t, err)
	must.Eq(t, &vectorstores.VectorStore{ID: "vs_123", Name: "docs", CreatedAt: 1712345678}, vs)
}

func TestUploadAndAttachFile(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/files", func(w http.ResponseWriter, r *http.Request) {
		must.NoError(t, r.ParseMultipartForm(1<<20))
		must.Eq(t, "assistants", r.FormValue("purpose"))

		f, hdr, err := r.FormFile("file")
		must.NoError(t, err)
		defer f.Close()
		must.Eq(t, "notes.pdf", hdr.Filename)

		b, err := io.ReadAll(f)
		must.NoError(t, err)
		must.Eq(t, "%PDF-1.4", string(b))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id": "file-abc", "object": "file", "bytes": 8, "created_at": 1712345678, "filename": "notes.pdf", "purpose": "assistants", "status": "processed"}`)
	})
	mux.HandleFunc("/v1/vector_stores/vs_123/files", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		must.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		must.Eq(t, "file-abc", body["file_id"].(string))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id": "file-abc", "object": "vector_store.file", "created_at": 1712345678, "usage_bytes": 0, "vector_store_id": "vs_123", "status": "in_progress", "last_error": null}`)
	})

	client := testClient(t, mux)

	file, err := client.UploadFile(t.Context(), "notes.pdf", strings.NewReader("%PDF-1.4"), "application/pdf")
	must.NoError(t, err)
	must.Eq(t, "file-abc", file.ID)
	must.Eq(t, "notes.pdf", file.Filename)
	must.Eq(t, "processed", file.Status)

	vsf, err := client.AttachFile(t.Context(), "vs_123", file.ID)
	must.NoError(t, err)
	must.Eq(t, "in_progress", vsf.Status)
	must.Eq(t, "vs_123", vsf.VectorStoreID)
}

func TestAttachFileProviderError(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"error": {"message": "No vector store found with id 'vs_missing'.", "type": "invalid_request_error", "param": null, "code": null}}`)
	}))

	_, err := client.AttachFile(t.Context(), "vs_missing", "file-abc")
	must.Error(t, err)

	var apiErr *responses.APIError
	must.True(t, errors.As(err, &apiErr))
	must.Eq(t, http.StatusNotFound, apiErr.StatusCode)
	must.Eq(t, "No vector store found with id 'vs_missing'.", err.Error())
}
