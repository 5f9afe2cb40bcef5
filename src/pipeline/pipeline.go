// Package pipeline sequences the CSV ingestion stages: tokenizing, header
// resolution, field normalization, identity assignment and trade
// reconstruction. One Run is a pure function of (file content, options); no
// state survives across invocations.
package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/tradevault/backend/src/logger"
	"github.com/tradevault/backend/src/models"
	"github.com/tradevault/backend/src/parsers"
	"github.com/tradevault/backend/src/processors"
)

// ErrEmptyFile mirrors the tokenizer sentinel for callers that only import
// this package.
var ErrEmptyFile = parsers.ErrEmptyFile

// ErrNoDataRows is returned for a file that has a header row but nothing
// under it.
var ErrNoDataRows = errors.New("file contains no data rows")

// ErrUnmappableFile is returned when neither an instrument column nor an
// execute-price column could be resolved; no trade can be reconstructed
// without them. The wrapped message names the missing canonical fields and
// echoes the raw headers seen, so the import UI can guide the user toward a
// manual mapping.
var ErrUnmappableFile = errors.New("no usable columns resolved")

// Options are the caller-supplied knobs of one run. The zero value is valid:
// no overrides, no fallback date, no row limit, UTC reference timezone.
type Options struct {
	// Overrides maps raw header strings to target fields and takes
	// precedence over both broker adapters and generic resolution.
	Overrides map[string]models.TargetField

	// FallbackDate supplies the date for rows whose timestamp information is
	// otherwise unobtainable.
	FallbackDate time.Time

	// Limit caps how many data rows are processed; 0 means all. Used by the
	// import UI for previews.
	Limit int

	// Location is the reference timezone all timestamps are normalized
	// into. Nil means UTC.
	Location *time.Location
}

type Pipeline struct {
	resolver      *parsers.HeaderResolver
	reconstructor *processors.TradeReconstructor
}

func New() *Pipeline {
	return &Pipeline{
		resolver:      parsers.NewHeaderResolver(),
		reconstructor: processors.NewTradeReconstructor(),
	}
}

// Run executes the full pipeline over one file's content.
func (p *Pipeline) Run(content string, opts Options) (*models.PipelineResult, error) {
	table, err := parsers.Tokenize(content)
	if err != nil {
		return nil, err
	}
	if len(table.Rows) == 0 {
		return nil, fmt.Errorf("%w: headers %v", ErrNoDataRows, table.Headers)
	}

	resolution := p.resolver.Resolve(table.Headers, opts.Overrides)

	if !resolution.HasField(models.FieldContract) && !resolution.HasField(models.FieldExecPrice) {
		return nil, fmt.Errorf("%w: could not resolve %q or %q from headers %v",
			ErrUnmappableFile, models.FieldContract, models.FieldExecPrice, table.Headers)
	}

	rows := table.Rows
	if opts.Limit > 0 && opts.Limit < len(rows) {
		rows = rows[:opts.Limit]
	}

	normalizer := parsers.NewNormalizer(opts.Location, opts.FallbackDate)

	normalized := make([]models.NormalizedRow, 0, len(rows))
	var warnings []string
	var syntheticRows []int

	for i, raw := range rows {
		row := normalizer.Row(resolution.MapRow(raw))
		if parsers.AssignIdentity(&row) {
			syntheticRows = append(syntheticRows, i+1)
		}
		for _, w := range row.Warnings {
			warnings = append(warnings, fmt.Sprintf("row %d: %s", i+1, w))
		}
		normalized = append(normalized, row)
	}

	trades, pairingWarnings := p.reconstructor.Process(normalized, resolution.HasField(models.FieldPositionDisposition))
	warnings = append(warnings, pairingWarnings...)

	broker := resolution.Broker
	if broker == "" {
		broker = "unknown"
	}

	result := &models.PipelineResult{
		Trades:   trades,
		Rows:     normalized,
		Warnings: warnings,
		Stats: models.ImportStats{
			RowsProcessed:   len(normalized),
			ColumnsMatched:  resolution.Columns,
			Broker:          broker,
			SyntheticIDs:    len(syntheticRows),
			SyntheticIDRows: syntheticRows,
		},
	}

	logger.L.Info("Pipeline run complete",
		"broker", broker,
		"rows", result.Stats.RowsProcessed,
		"columns", result.Stats.ColumnsMatched,
		"trades", len(trades),
		"warnings", len(warnings),
		"syntheticIDs", result.Stats.SyntheticIDs)

	return result, nil
}
