package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/tradevault/backend/src/config"
	"github.com/tradevault/backend/src/logger"
	"github.com/tradevault/backend/src/models"
	"github.com/tradevault/backend/src/pipeline"
	"github.com/tradevault/backend/src/security/validation"
	"github.com/tradevault/backend/src/services"
	"github.com/tradevault/backend/src/utils"
)

type ImportHandler struct {
	importService services.ImportService
}

func NewImportHandler(service services.ImportService) *ImportHandler {
	return &ImportHandler{
		importService: service,
	}
}

// HandleImportPreview accepts a multipart upload ("file" field) plus optional
// form fields — "mapping" (JSON object of raw header to target field),
// "fallback_date" (YYYY-MM-DD) and "limit" — runs the ingestion pipeline and
// returns the preview. Nothing is persisted here; the UI posts confirmed
// trades to its own store.
func (h *ImportHandler) HandleImportPreview(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(config.Cfg.MaxUploadSizeBytes); err != nil {
		logger.L.Warn("Failed to parse multipart form or request too large", "error", err, "limit", config.Cfg.MaxUploadSizeBytes)
		utils.SendJSONError(w, fmt.Sprintf("Failed to parse form or request too large (max %d MB)", config.Cfg.MaxUploadSizeBytes/(1024*1024)), http.StatusBadRequest)
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		logger.L.Warn("Failed to retrieve file from request", "error", err)
		utils.SendJSONError(w, "Failed to retrieve file from request. Ensure 'file' field is used.", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if fileHeader.Size > config.Cfg.MaxUploadSizeBytes {
		utils.SendJSONError(w, fmt.Sprintf("File too large, max %d MB", config.Cfg.MaxUploadSizeBytes/(1024*1024)), http.StatusBadRequest)
		return
	}

	if err := validation.ValidateClientContentType(fileHeader.Header.Get("Content-Type")); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, err := validation.ValidateFileContentByMagicBytes(file); err != nil {
		logger.L.Warn("File content validation failed", "filename", fileHeader.Filename, "error", err)
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	opts, err := parseImportOptions(r, config.Cfg.Location())
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	logger.L.Info("Processing import preview", "filename", fileHeader.Filename)
	preview, err := h.importService.PreviewImport(file, opts)
	if err != nil {
		switch {
		case errors.Is(err, pipeline.ErrEmptyFile),
			errors.Is(err, pipeline.ErrNoDataRows),
			errors.Is(err, pipeline.ErrUnmappableFile):
			logger.L.Warn("Import preview rejected", "filename", fileHeader.Filename, "error", err)
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, services.ErrParsingFailed):
			logger.L.Warn("Import preview failed", "filename", fileHeader.Filename, "error", err)
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		default:
			logger.L.Error("Internal error processing import preview", "filename", fileHeader.Filename, "error", err)
			utils.SendJSONError(w, "An internal error occurred while processing the file. Please try again later.", http.StatusInternalServerError)
		}
		return
	}

	etag, err := utils.GenerateETag(preview.Result)
	if err == nil {
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", etag)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(preview); err != nil {
		logger.L.Error("Error encoding JSON response for import preview", "error", err)
	}
}

func parseImportOptions(r *http.Request, loc *time.Location) (pipeline.Options, error) {
	opts := pipeline.Options{Location: loc}

	if mappingJSON := r.FormValue("mapping"); mappingJSON != "" {
		var raw map[string]string
		if err := json.Unmarshal([]byte(mappingJSON), &raw); err != nil {
			return opts, fmt.Errorf("invalid 'mapping' field: %v", err)
		}
		overrides := make(map[string]models.TargetField, len(raw))
		for header, fieldName := range raw {
			field, ok := models.ParseTargetField(fieldName)
			if !ok {
				return opts, fmt.Errorf("invalid 'mapping' field: unknown target field %q for header %q", fieldName, header)
			}
			overrides[header] = field
		}
		opts.Overrides = overrides
	}

	if fallback := r.FormValue("fallback_date"); fallback != "" {
		t, err := time.ParseInLocation("2006-01-02", fallback, loc)
		if err != nil {
			return opts, fmt.Errorf("invalid 'fallback_date' field, expected YYYY-MM-DD: %v", err)
		}
		opts.FallbackDate = t
	}

	if limitStr := r.FormValue("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			return opts, fmt.Errorf("invalid 'limit' field, expected a non-negative integer")
		}
		opts.Limit = limit
	}

	return opts, nil
}
