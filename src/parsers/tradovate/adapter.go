// Package tradovate maps the Tradovate performance export to the canonical
// order schema. The export is a complete-trade format: each row carries both
// fill prices and both fill timestamps of one round trip.
package tradovate

import (
	"strings"
	"time"

	"github.com/tradevault/backend/src/models"
)

// Signature columns every Tradovate performance export carries. Matching is
// case and whitespace insensitive.
var requiredHeaders = []string{
	"symbol", "qty", "buyprice", "sellprice", "boughttimestamp", "soldtimestamp",
}

// Timestamp layouts seen in Tradovate exports.
var timestampLayouts = []string{
	"01/02/2006 15:04:05",
	"2006-01-02 15:04:05",
	"01/02/2006 15:04",
}

type Adapter struct{}

func NewAdapter() *Adapter {
	return &Adapter{}
}

func (a *Adapter) Name() string { return "tradovate" }

func (a *Adapter) Match(headers []string) bool {
	idx := columnIndex(headers)
	for _, h := range requiredHeaders {
		if _, ok := idx[h]; !ok {
			return false
		}
	}
	return true
}

func (a *Adapter) Bind(headers []string) (func(row []string) models.RowValues, []models.TargetField) {
	idx := columnIndex(headers)

	fields := []models.TargetField{
		models.FieldContract, models.FieldQty, models.FieldSide,
		models.FieldExecPrice, models.FieldClosePrice,
		models.FieldCreatedAt, models.FieldFilledAt,
		models.FieldPlatformOrderID,
	}

	mapRow := func(row []string) models.RowValues {
		cell := func(name string) string {
			i, ok := idx[name]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		bought := cell("boughttimestamp")
		sold := cell("soldtimestamp")
		buyPrice := cell("buyprice")
		sellPrice := cell("sellprice")

		values := models.RowValues{
			models.FieldContract:        cell("symbol"),
			models.FieldQty:             cell("qty"),
			models.FieldPlatformOrderID: cell("buyfillid"),
		}

		// The export has no side column; direction follows from which fill
		// happened first. A position bought before it was sold is long.
		if boughtBeforeSold(bought, sold) {
			values[models.FieldSide] = models.SideBuy
			values[models.FieldExecPrice] = buyPrice
			values[models.FieldClosePrice] = sellPrice
			values[models.FieldCreatedAt] = bought
			values[models.FieldFilledAt] = sold
		} else {
			values[models.FieldSide] = models.SideSell
			values[models.FieldExecPrice] = sellPrice
			values[models.FieldClosePrice] = buyPrice
			values[models.FieldCreatedAt] = sold
			values[models.FieldFilledAt] = bought
		}
		return values
	}

	return mapRow, fields
}

// boughtBeforeSold compares the two fill timestamps; unparseable input
// defaults to long, the overwhelmingly common case.
func boughtBeforeSold(bought, sold string) bool {
	bt, ok1 := parseTimestamp(bought)
	st, ok2 := parseTimestamp(sold)
	if !ok1 || !ok2 {
		return true
	}
	return !bt.After(st)
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// columnIndex keys the header row by lowercased, separator-free name, the
// way Tradovate spells its own columns (camelCase, no spaces).
func columnIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		key := strings.ToLower(strings.TrimSpace(h))
		key = strings.NewReplacer(" ", "", "_", "", "-", "", "/", "").Replace(key)
		if _, exists := idx[key]; !exists {
			idx[key] = i
		}
	}
	return idx
}
