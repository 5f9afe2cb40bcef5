package parsers

import (
	"regexp"
	"strings"

	"github.com/tradevault/backend/src/logger"
	"github.com/tradevault/backend/src/models"
)

// Resolution is the outcome of header resolution for one file: which broker
// adapter matched (empty for generic resolution), how many columns mapped,
// which canonical fields are available, and the row mapper itself.
type Resolution struct {
	Broker  string
	Columns int

	fields map[models.TargetField]bool
	mapRow func(row []string) models.RowValues
}

// MapRow projects one raw data row onto the canonical schema.
func (r *Resolution) MapRow(row []string) models.RowValues {
	return r.mapRow(row)
}

// HasField reports whether any column of the file resolved to the given field.
func (r *Resolution) HasField(f models.TargetField) bool {
	return r.fields[f]
}

// HeaderResolver maps raw column headers to canonical fields. Its lookup
// tables are built once at construction and never mutated afterwards.
type HeaderResolver struct {
	adapters []Adapter
	exact    map[string]models.TargetField
	aliases  map[string]models.TargetField
	patterns []headerPattern
	keywords []keywordRule
}

type headerPattern struct {
	re    *regexp.Regexp
	field models.TargetField
}

// keywordRule resolves a header when every one of its tokens appears in the
// normalized header string. Used as the last resort after exact and alias
// lookup fail.
type keywordRule struct {
	tokens []string
	field  models.TargetField
}

// NewHeaderResolver builds a resolver with the default broker adapters and
// the curated alias tables.
func NewHeaderResolver() *HeaderResolver {
	return &HeaderResolver{
		adapters: registeredAdapters(),
		exact:    exactHeaderTable(),
		aliases:  headerAliasTable(),
		patterns: headerPatterns(),
		keywords: keywordRules(),
	}
}

// Resolve produces the header mapping for one file. Resolution order: a
// broker adapter whose signature matches the header set wins and handles all
// row mapping itself; otherwise each header goes through generic resolution
// (exact name, then alias table, then regex patterns, then keyword
// heuristics). Manual overrides supplied by the caller always take
// precedence, on top of either path.
func (hr *HeaderResolver) Resolve(headers []string, overrides map[string]models.TargetField) *Resolution {
	overrideCols := overrideColumns(headers, overrides)

	for _, a := range hr.adapters {
		if !a.Match(headers) {
			continue
		}
		mapRow, fields := a.Bind(headers)
		logger.L.Info("Broker adapter matched", "broker", a.Name(), "columns", len(fields))
		return buildResolution(a.Name(), mapRow, fields, overrideCols)
	}

	// Bindings stay in header order so "first non-empty cell wins" means
	// first by column position, deterministically.
	type colBinding struct {
		idx   int
		field models.TargetField
	}
	var cols []colBinding
	var fields []models.TargetField
	seen := make(map[models.TargetField]bool)
	for i, h := range headers {
		// Overridden columns are mapped by the override wrapper; binding
		// them here too would double-count them in Columns.
		if _, overridden := overrideCols[i]; overridden {
			continue
		}
		field, ok := hr.resolveHeader(h)
		if !ok {
			// Unknown columns carry no guaranteed semantics and are not
			// guessed at; the column is ignored.
			logger.L.Debug("Header left unmapped", "header", h)
			continue
		}
		cols = append(cols, colBinding{idx: i, field: field})
		if !seen[field] {
			seen[field] = true
			fields = append(fields, field)
		}
	}

	mapRow := func(row []string) models.RowValues {
		values := make(models.RowValues)
		for _, c := range cols {
			if c.idx >= len(row) {
				continue
			}
			// Multiple raw headers may map to the same field; the first
			// non-empty cell wins.
			if existing, ok := values[c.field]; ok && strings.TrimSpace(existing) != "" {
				continue
			}
			values[c.field] = strings.TrimSpace(row[c.idx])
		}
		return values
	}

	res := buildResolution("", mapRow, fields, overrideCols)
	res.Columns = len(cols) + len(overrideCols)
	return res
}

func buildResolution(broker string, mapRow func([]string) models.RowValues, fields []models.TargetField, overrideCols map[int]models.TargetField) *Resolution {
	fieldSet := make(map[models.TargetField]bool, len(fields))
	for _, f := range fields {
		fieldSet[f] = true
	}
	for _, f := range overrideCols {
		fieldSet[f] = true
	}

	wrapped := mapRow
	if len(overrideCols) > 0 {
		wrapped = func(row []string) models.RowValues {
			values := mapRow(row)
			for i, f := range overrideCols {
				if i < len(row) {
					values[f] = strings.TrimSpace(row[i])
				}
			}
			return values
		}
	}

	return &Resolution{
		Broker:  broker,
		Columns: len(fields) + len(overrideCols),
		fields:  fieldSet,
		mapRow:  wrapped,
	}
}

// overrideColumns locates each manually overridden raw header in the header
// row. Raw headers are compared after trimming, case-sensitively first and
// case-insensitively as a fallback.
func overrideColumns(headers []string, overrides map[string]models.TargetField) map[int]models.TargetField {
	if len(overrides) == 0 {
		return nil
	}
	cols := make(map[int]models.TargetField)
	for raw, field := range overrides {
		want := strings.TrimSpace(raw)
		idx := -1
		for i, h := range headers {
			if strings.TrimSpace(h) == want {
				idx = i
				break
			}
			if idx < 0 && strings.EqualFold(strings.TrimSpace(h), want) {
				idx = i
			}
		}
		if idx >= 0 {
			cols[idx] = field
		} else {
			logger.L.Warn("Manual header override does not match any column", "header", raw)
		}
	}
	return cols
}

func (hr *HeaderResolver) resolveHeader(raw string) (models.TargetField, bool) {
	norm := NormalizeHeader(raw)
	if norm == "" {
		return "", false
	}
	if f, ok := hr.exact[norm]; ok {
		return f, true
	}
	if f, ok := hr.aliases[norm]; ok {
		return f, true
	}
	for _, p := range hr.patterns {
		if p.re.MatchString(norm) {
			return p.field, true
		}
	}
	for _, kw := range hr.keywords {
		if containsAllTokens(norm, kw.tokens) {
			return kw.field, true
		}
	}
	return "", false
}

var nonAlnumRun = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizeHeader lowercases a raw header, collapses runs of non-alphanumeric
// characters into single spaces and trims the result.
func NormalizeHeader(raw string) string {
	lower := strings.ToLower(raw)
	return strings.TrimSpace(nonAlnumRun.ReplaceAllString(lower, " "))
}

func containsAllTokens(norm string, tokens []string) bool {
	words := strings.Fields(norm)
	for _, tok := range tokens {
		found := false
		for _, w := range words {
			if w == tok {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
