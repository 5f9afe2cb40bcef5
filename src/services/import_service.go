package services

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/tradevault/backend/src/logger"
	"github.com/tradevault/backend/src/metrics"
	"github.com/tradevault/backend/src/pipeline"
)

const ckPreviewResult = "preview_%s"

type importServiceImpl struct {
	pipeline     *pipeline.Pipeline
	previewCache *cache.Cache
}

// NewImportService wraps the pure pipeline with preview-result caching and
// metrics. Identical content with identical options re-uses the cached
// preview instead of re-running the pipeline.
func NewImportService(p *pipeline.Pipeline, previewCache *cache.Cache) ImportService {
	return &importServiceImpl{
		pipeline:     p,
		previewCache: previewCache,
	}
}

func (s *importServiceImpl) PreviewImport(fileReader io.Reader, opts pipeline.Options) (*ImportPreview, error) {
	start := time.Now()

	content, err := io.ReadAll(fileReader)
	if err != nil {
		return nil, fmt.Errorf("%w: reading upload: %v", ErrParsingFailed, err)
	}

	cacheKey := fmt.Sprintf(ckPreviewResult, previewFingerprint(content, opts))
	if cached, found := s.previewCache.Get(cacheKey); found {
		preview := cached.(*ImportPreview)
		logger.L.Debug("Preview cache hit", "importID", preview.ImportID)
		return &ImportPreview{ImportID: preview.ImportID, Cached: true, Result: preview.Result}, nil
	}

	result, err := s.pipeline.Run(string(content), opts)
	if err != nil {
		metrics.ImportsTotal.WithLabelValues("unknown", "error").Inc()
		// Pipeline sentinels stay matchable for the handler's status mapping.
		return nil, err
	}

	metrics.ImportsTotal.WithLabelValues(result.Stats.Broker, "ok").Inc()
	metrics.ImportRowsTotal.Add(float64(result.Stats.RowsProcessed))
	metrics.ImportWarningsTotal.Add(float64(len(result.Warnings)))
	metrics.TradesReconstructed.Add(float64(len(result.Trades)))
	metrics.SyntheticIDsTotal.Add(float64(result.Stats.SyntheticIDs))
	metrics.ImportDuration.Observe(time.Since(start).Seconds())

	preview := &ImportPreview{
		ImportID: uuid.NewString(),
		Result:   result,
	}
	s.previewCache.Set(cacheKey, preview, cache.DefaultExpiration)

	logger.L.Info("Import preview generated",
		"importID", preview.ImportID,
		"broker", result.Stats.Broker,
		"trades", len(result.Trades),
		"duration", time.Since(start))
	return preview, nil
}

// previewFingerprint hashes the file content together with every option that
// changes the pipeline output, so the cache never serves a stale preview for
// a different mapping or row limit.
func previewFingerprint(content []byte, opts pipeline.Options) string {
	h := sha256.New()
	h.Write(content)

	// json.Marshal sorts map keys, keeping the fingerprint deterministic.
	optKey, _ := json.Marshal(struct {
		Overrides    map[string]string
		FallbackDate int64
		Limit        int
		Location     string
	}{
		Overrides:    stringOverrides(opts),
		FallbackDate: opts.FallbackDate.Unix(),
		Limit:        opts.Limit,
		Location:     locationName(opts),
	})
	h.Write(optKey)

	return hex.EncodeToString(h.Sum(nil))
}

func stringOverrides(opts pipeline.Options) map[string]string {
	if len(opts.Overrides) == 0 {
		return nil
	}
	m := make(map[string]string, len(opts.Overrides))
	for k, v := range opts.Overrides {
		m[k] = string(v)
	}
	return m
}

func locationName(opts pipeline.Options) string {
	if opts.Location == nil {
		return ""
	}
	return opts.Location.String()
}
