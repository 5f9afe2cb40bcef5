package services

import (
	"errors"
	"io"

	"github.com/tradevault/backend/src/models"
	"github.com/tradevault/backend/src/pipeline"
)

// ErrParsingFailed wraps any pipeline failure so handlers can map the whole
// family to one client-facing status.
var ErrParsingFailed = errors.New("error parsing import file")

// ImportPreview is what the import UI renders before the user confirms:
// the full pipeline result plus a run identifier. Persisting confirmed
// trades happens in the UI's own backend, not here.
type ImportPreview struct {
	ImportID string                 `json:"import_id"`
	Cached   bool                   `json:"cached"`
	Result   *models.PipelineResult `json:"result"`
}

// ImportService runs the ingestion pipeline for uploaded files.
type ImportService interface {
	PreviewImport(fileReader io.Reader, opts pipeline.Options) (*ImportPreview, error)
}
