package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/patrickmn/go-cache"

	"github.com/tradevault/backend/src/config"
	"github.com/tradevault/backend/src/handlers"
	"github.com/tradevault/backend/src/pipeline"
	"github.com/tradevault/backend/src/services"
)

func newTestRouter(t *testing.T) *chi.Mux {
	t.Helper()
	config.Cfg = &config.AppConfig{
		Port:               "8080",
		LogLevel:           "error",
		MaxUploadSizeBytes: 1 << 20,
		ReferenceTimezone:  "UTC",
	}

	previewCache := cache.New(time.Minute, time.Minute)
	service := services.NewImportService(pipeline.New(), previewCache)
	handler := handlers.NewImportHandler(service)

	router := chi.NewRouter()
	router.Post("/api/import/preview", handler.HandleImportPreview)
	return router
}

func multipartUpload(t *testing.T, csvContent string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "trades.csv")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := io.WriteString(part, csvContent); err != nil {
		t.Fatalf("writing file part: %v", err)
	}
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			t.Fatalf("WriteField %s: %v", k, err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("closing writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

const previewCSV = `Symbol,Side,Qty,Price,Position,Time
X,Buy,2,100,Opening,01/02/2024 09:30:00
X,Sell,2,105,Closing,01/02/2024 10:15:00
`

func TestHandleImportPreview_Success(t *testing.T) {
	router := newTestRouter(t)

	body, contentType := multipartUpload(t, previewCSV, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/import/preview", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("ETag") == "" {
		t.Error("missing ETag header")
	}

	var preview services.ImportPreview
	if err := json.Unmarshal(rr.Body.Bytes(), &preview); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if preview.ImportID == "" {
		t.Error("missing import_id")
	}
	if preview.Cached {
		t.Error("first preview should not be cached")
	}
	if preview.Result == nil || len(preview.Result.Trades) != 1 {
		t.Fatalf("unexpected result: %+v", preview.Result)
	}
	if preview.Result.Stats.RowsProcessed != 2 {
		t.Errorf("rows processed = %d, want 2", preview.Result.Stats.RowsProcessed)
	}
}

func TestHandleImportPreview_CacheHitOnRepeat(t *testing.T) {
	router := newTestRouter(t)

	post := func() services.ImportPreview {
		body, contentType := multipartUpload(t, previewCSV, nil)
		req := httptest.NewRequest(http.MethodPost, "/api/import/preview", body)
		req.Header.Set("Content-Type", contentType)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200; body: %s", rr.Code, rr.Body.String())
		}
		var preview services.ImportPreview
		if err := json.Unmarshal(rr.Body.Bytes(), &preview); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		return preview
	}

	first := post()
	second := post()
	if !second.Cached {
		t.Error("repeat upload with identical content should hit the preview cache")
	}
	if second.ImportID != first.ImportID {
		t.Errorf("cached preview changed import_id: %q vs %q", second.ImportID, first.ImportID)
	}
}

func TestHandleImportPreview_ETagNotModified(t *testing.T) {
	router := newTestRouter(t)

	body, contentType := multipartUpload(t, previewCSV, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/import/preview", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	etag := rr.Header().Get("ETag")
	if etag == "" {
		t.Fatal("missing ETag header")
	}

	body, contentType = multipartUpload(t, previewCSV, nil)
	req = httptest.NewRequest(http.MethodPost, "/api/import/preview", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("If-None-Match", etag)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotModified {
		t.Errorf("status = %d, want 304", rr.Code)
	}
}

func TestHandleImportPreview_MissingFile(t *testing.T) {
	router := newTestRouter(t)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/import/preview", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestHandleImportPreview_UnmappableFile(t *testing.T) {
	router := newTestRouter(t)

	body, contentType := multipartUpload(t, "Foo,Bar\n1,2\n", nil)
	req := httptest.NewRequest(http.MethodPost, "/api/import/preview", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400; body: %s", rr.Code, rr.Body.String())
	}
	var errResp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &errResp); err != nil {
		t.Fatalf("decoding error response: %v", err)
	}
	if errResp["error"] == "" {
		t.Errorf("error body missing message: %s", rr.Body.String())
	}
}

func TestHandleImportPreview_InvalidMapping(t *testing.T) {
	router := newTestRouter(t)

	fields := map[string]string{"mapping": `{"MyCol":"not_a_field"}`}
	body, contentType := multipartUpload(t, previewCSV, fields)
	req := httptest.NewRequest(http.MethodPost, "/api/import/preview", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400; body: %s", rr.Code, rr.Body.String())
	}
}

func TestHandleImportPreview_MappingAndLimit(t *testing.T) {
	router := newTestRouter(t)

	csv := "Ticker,MyPrice,Amount\nX,100,2\nX,101,3\n"
	fields := map[string]string{
		"mapping": `{"MyPrice":"exec_price","Amount":"qty"}`,
		"limit":   "1",
	}
	body, contentType := multipartUpload(t, csv, fields)
	req := httptest.NewRequest(http.MethodPost, "/api/import/preview", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rr.Code, rr.Body.String())
	}
	var preview services.ImportPreview
	if err := json.Unmarshal(rr.Body.Bytes(), &preview); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if preview.Result.Stats.RowsProcessed != 1 {
		t.Errorf("rows processed = %d, want 1", preview.Result.Stats.RowsProcessed)
	}
	if len(preview.Result.Rows) != 1 || preview.Result.Rows[0].ExecPrice == nil || *preview.Result.Rows[0].ExecPrice != 100 {
		t.Errorf("override not applied: %+v", preview.Result.Rows)
	}
}
