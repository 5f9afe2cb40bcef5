package parsers

import (
	"strconv"
	"strings"
	"time"

	"github.com/tradevault/backend/src/models"
)

// Normalizer converts a raw RowValues into a NormalizedRow: localized numbers
// into nullable floats, side tokens into the canonical enumeration, and every
// date/time expression into one canonical string in the reference timezone.
type Normalizer struct {
	loc      *time.Location
	fallback time.Time // zero when the caller supplied no fallback date
}

func NewNormalizer(loc *time.Location, fallback time.Time) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	return &Normalizer{loc: loc, fallback: fallback}
}

// Row normalizes one mapped data row. Parse failures degrade to warnings on
// the row, never errors; a cell that cannot be understood becomes "no value".
func (n *Normalizer) Row(values models.RowValues) models.NormalizedRow {
	row := models.NormalizedRow{
		Account:             values[models.FieldAccount],
		Contract:            values[models.FieldContract],
		Status:              values[models.FieldStatus],
		OrderType:           values[models.FieldOrderType],
		CreationDisposition: values[models.FieldCreationDisposition],
		RejectionReason:     values[models.FieldRejectionReason],
		ExchangeOrderID:     values[models.FieldExchangeOrderID],
		PlatformOrderID:     values[models.FieldPlatformOrderID],
	}
	row.ID = values[models.FieldID]

	// Side: a fixed synonym set maps onto exactly two canonical values.
	// Unrecognized tokens pass through with a warning; guessing direction
	// silently is worse than surfacing the ambiguity.
	if raw := values[models.FieldSide]; raw != "" {
		side, ok := NormalizeSide(raw)
		row.Side = side
		if !ok {
			row.Warn("Unrecognized side value: " + strconv.Quote(raw))
		}
	}

	if raw := values[models.FieldPositionDisposition]; raw != "" {
		row.PositionDisposition = normalizeDisposition(raw)
	}

	// Numbers.
	row.Qty = n.number(&row, models.FieldQty, values)
	row.StopPrice = n.number(&row, models.FieldStopPrice, values)
	row.LimitPrice = n.number(&row, models.FieldLimitPrice, values)
	row.ExecPrice = n.number(&row, models.FieldExecPrice, values)
	row.ClosePrice = n.number(&row, models.FieldClosePrice, values)
	row.Commission = n.number(&row, models.FieldCommission, values)

	if row.Qty != nil && *row.Qty <= 0 {
		row.Warn("Size must be greater than zero.")
	}
	if _, resolved := values[models.FieldExecPrice]; resolved {
		if row.ExecPrice == nil || *row.ExecPrice <= 0 {
			row.Warn("Execute price must be greater than zero.")
		}
	}

	// Dates. The trade-day column, when present, doubles as the date hint
	// for bare-time cells in the other timestamp columns.
	dateHint := values[models.FieldTradeDay]
	row.CreatedAt = n.timestamp(&row, "created-at", values[models.FieldCreatedAt], dateHint)
	row.FilledAt = n.timestamp(&row, "filled-at", values[models.FieldFilledAt], dateHint)
	row.CancelledAt = n.timestamp(&row, "cancelled-at", values[models.FieldCancelledAt], dateHint)
	row.TradeDay = n.tradeDay(&row, dateHint)

	return row
}

func (n *Normalizer) number(row *models.NormalizedRow, f models.TargetField, values models.RowValues) *float64 {
	raw, resolved := values[f]
	if !resolved || strings.TrimSpace(raw) == "" {
		return nil
	}
	v, ok := ParseNumber(raw)
	if !ok {
		row.Warn("Could not parse " + string(f) + " value: " + strconv.Quote(raw))
		return nil
	}
	return &v
}

// timestamp normalizes one date/time cell and returns the canonical string,
// or "" when no value could be produced.
func (n *Normalizer) timestamp(row *models.NormalizedRow, label, raw, dateHint string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	if t, ok := n.parseDateTime(raw, dateHint); ok {
		return t.In(n.loc).Format(models.CanonicalTimeLayout)
	}
	if !n.fallback.IsZero() {
		return n.fallback.In(n.loc).Format(models.CanonicalTimeLayout)
	}
	row.Warn("Could not parse " + label + " timestamp: " + strconv.Quote(raw))
	return ""
}

func (n *Normalizer) tradeDay(row *models.NormalizedRow, raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if t, ok := n.parseDateTime(raw, ""); ok {
		return t.In(n.loc).Format(models.CanonicalDateLayout)
	}
	row.Warn("Could not parse trade-day value: " + strconv.Quote(raw))
	return ""
}

// offsetLayouts carry an explicit UTC offset; the parsed instant is converted
// into the reference timezone afterwards.
var offsetLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05-0700",
	"01/02/2006 15:04:05 -0700",
	"01/02/2006 15:04 -0700",
	"2006-01-02 15:04 -0700",
}

// naiveLayouts carry no offset; the wall-clock time is interpreted as already
// being in the reference timezone. Ordered most to least specific.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"01/02/2006 03:04:05 PM",
	"01/02/2006 03:04 PM",
	"02.01.2006 15:04:05",
	"02.01.2006 15:04",
	"02-01-2006 15:04:05",
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"02.01.2006",
	"02-01-2006",
	"20060102",
}

// bareTimeLayouts match cells holding only a wall-clock time; they need a
// date from the trade-day column or the caller-supplied fallback.
var bareTimeLayouts = []string{
	"15:04:05",
	"15:04",
	"03:04:05 PM",
	"03:04 PM",
}

// zoneAbbreviations maps trailing timezone abbreviations onto fixed numeric
// offsets so they can go through the offset-aware layouts. DST variants are
// listed explicitly; a bare "ET"/"CT"/"PT" resolves to the standard offset.
var zoneAbbreviations = map[string]string{
	"UTC": "+0000", "GMT": "+0000", "Z": "+0000",
	"EST": "-0500", "EDT": "-0400", "ET": "-0500",
	"CST": "-0600", "CDT": "-0500", "CT": "-0600",
	"MST": "-0700", "MDT": "-0600", "MT": "-0700",
	"PST": "-0800", "PDT": "-0700", "PT": "-0800",
}

// parseDateTime implements the full resolution ladder from raw cell text to a
// concrete instant: merge a split date/time pair, then offset-aware layouts,
// then naive layouts in the reference timezone, then bare time joined with a
// date hint or the fallback date.
func (n *Normalizer) parseDateTime(raw, dateHint string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	dateHint = strings.TrimSpace(dateHint)

	// Split date and time columns are concatenated before interpretation.
	if dateHint != "" && isBareTime(raw) {
		if t, ok := n.parseDateTime(dateHint+" "+raw, ""); ok {
			return t, true
		}
	}

	// Epoch timestamps appear in some platform exports.
	if t, ok := parseEpoch(raw); ok {
		return t, true
	}

	if withOffset, ok := substituteZoneAbbreviation(raw); ok {
		for _, layout := range offsetLayouts {
			if t, err := time.Parse(layout, withOffset); err == nil {
				return t, true
			}
		}
	}
	for _, layout := range offsetLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}

	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, raw, n.loc); err == nil {
			return t, true
		}
	}

	if isBareTime(raw) {
		base := n.fallback
		if base.IsZero() {
			return time.Time{}, false
		}
		for _, layout := range bareTimeLayouts {
			if t, err := time.ParseInLocation(layout, raw, n.loc); err == nil {
				b := base.In(n.loc)
				return time.Date(b.Year(), b.Month(), b.Day(),
					t.Hour(), t.Minute(), t.Second(), 0, n.loc), true
			}
		}
	}

	return time.Time{}, false
}

func isBareTime(s string) bool {
	for _, layout := range bareTimeLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

func parseEpoch(s string) (time.Time, bool) {
	if len(s) != 10 && len(s) != 13 {
		return time.Time{}, false
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	if len(s) == 13 {
		return time.UnixMilli(v), true
	}
	return time.Unix(v, 0), true
}

// substituteZoneAbbreviation replaces a trailing timezone abbreviation with
// its numeric offset, e.g. "03/01/2024 10:30:00 EST" -> "... -0500".
func substituteZoneAbbreviation(s string) (string, bool) {
	i := strings.LastIndexByte(s, ' ')
	if i < 0 {
		return "", false
	}
	abbr := strings.ToUpper(s[i+1:])
	offset, ok := zoneAbbreviations[abbr]
	if !ok {
		return "", false
	}
	return s[:i] + " " + offset, true
}

// ParseNumber parses a localized numeric cell into a float. Whitespace and
// currency markers are stripped; a decimal comma becomes a decimal point.
// When both comma and point appear, the comma is a thousands separator. The
// second return is false for empty or unparseable input; callers must treat
// that as "no value", never as zero.
func ParseNumber(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.TrimPrefix(s, "$")
	s = strings.TrimPrefix(s, "€")

	// Accounting-style negatives: (1.25) means -1.25.
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	if strings.Contains(s, ",") {
		switch {
		case strings.Contains(s, "."):
			s = strings.ReplaceAll(s, ",", "")
		case strings.Count(s, ",") > 1:
			// Several commas can only be thousands grouping.
			s = strings.ReplaceAll(s, ",", "")
		default:
			s = strings.Replace(s, ",", ".", 1)
		}
	}

	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if negative {
		v = -v
	}
	return v, true
}

// sideSynonyms is the fixed, case-insensitive synonym set for the two
// canonical side values.
var sideSynonyms = map[string]string{
	"buy": models.SideBuy, "b": models.SideBuy,
	"long": models.SideBuy, "bought": models.SideBuy,
	"sell": models.SideSell, "s": models.SideSell,
	"short": models.SideSell, "sold": models.SideSell,
}

// NormalizeSide maps a side token onto Buy or Sell. Unrecognized tokens are
// returned unchanged with ok=false.
func NormalizeSide(raw string) (string, bool) {
	if side, ok := sideSynonyms[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return side, true
	}
	return raw, false
}

func normalizeDisposition(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "opening", "open", "entry":
		return models.DispositionOpening
	case "closing", "close", "exit":
		return models.DispositionClosing
	}
	return raw
}
