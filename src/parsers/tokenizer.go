package parsers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"strings"

	"github.com/tradevault/backend/src/models"
	"github.com/tradevault/backend/src/security/validation"
)

// ErrEmptyFile is returned when a file contains no non-blank lines at all.
var ErrEmptyFile = errors.New("file is empty")

// candidateDelimiters is the fixed set tried during dialect detection, in
// tie-break priority order (comma first).
var candidateDelimiters = []rune{',', ';', '\t', '|'}

// detectionSampleLines caps how many leading lines delimiter detection reads.
const detectionSampleLines = 10

// Tokenize turns raw file text into a RawTable: it strips a UTF-8 BOM if
// present, detects the delimiter, splits the text into rows of cells with
// full quoting support, and drops blank lines. The first non-blank line is
// taken as the header row.
func Tokenize(content string) (*models.RawTable, error) {
	content = strings.TrimPrefix(content, "\ufeff")

	lines := nonBlankLines(content)
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: no non-blank lines found", ErrEmptyFile)
	}

	delim := detectDelimiter(lines)

	reader := csv.NewReader(strings.NewReader(strings.Join(lines, "\n")))
	reader.Comma = delim
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to tokenize file: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no rows after tokenizing", ErrEmptyFile)
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = validation.StripUnprintable(strings.TrimSpace(h))
	}

	rows := make([][]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make([]string, len(rec))
		for i, cell := range rec {
			row[i] = validation.StripUnprintable(cell)
		}
		rows = append(rows, row)
	}

	return &models.RawTable{Headers: headers, Rows: rows}, nil
}

// detectDelimiter samples the leading lines and, for each candidate, computes
// the average number of occurrences per line. The candidate that separates the
// most fields on average wins; ties fall back to the fixed priority order.
func detectDelimiter(lines []string) rune {
	sample := lines
	if len(sample) > detectionSampleLines {
		sample = sample[:detectionSampleLines]
	}

	best := candidateDelimiters[0]
	bestAvg := -1.0
	for _, cand := range candidateDelimiters {
		total := 0
		for _, line := range sample {
			total += strings.Count(line, string(cand))
		}
		avg := float64(total) / float64(len(sample))
		if avg > bestAvg {
			best = cand
			bestAvg = avg
		}
	}
	return best
}

func nonBlankLines(content string) []string {
	var lines []string
	for _, line := range strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
