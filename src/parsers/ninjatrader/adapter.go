// Package ninjatrader maps the NinjaTrader executions export to the
// canonical order schema. Each row is one fill; the "E/X" column marks
// whether the fill entered or exited a position.
package ninjatrader

import (
	"strings"

	"github.com/tradevault/backend/src/models"
)

// Signature columns of the executions grid export. The export also carries a
// "Position" column holding the resulting net position (e.g. "1 L"), which
// generic alias resolution would misread as a position disposition; this
// adapter exists so that never happens.
var requiredHeaders = []string{"instrument", "action", "quantity", "price", "time", "e/x"}

type Adapter struct{}

func NewAdapter() *Adapter {
	return &Adapter{}
}

func (a *Adapter) Name() string { return "ninjatrader" }

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
		models.FieldID, models.FieldAccount, models.FieldContract,
		models.FieldQty, models.FieldSide, models.FieldExecPrice,
		models.FieldCreatedAt, models.FieldCommission,
		models.FieldPositionDisposition, models.FieldPlatformOrderID,
	}

	mapRow := func(row []string) models.RowValues {
		cell := func(name string) string {
			i, ok := idx[name]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		return models.RowValues{
			models.FieldID:                  cell("id"),
			models.FieldAccount:             cell("account"),
			models.FieldContract:            cell("instrument"),
			models.FieldQty:                 cell("quantity"),
			models.FieldSide:                cell("action"),
			models.FieldExecPrice:           cell("price"),
			models.FieldCreatedAt:           cell("time"),
			models.FieldCommission:          cell("commission"),
			models.FieldPositionDisposition: disposition(cell("e/x")),
			models.FieldPlatformOrderID:     cell("order id"),
		}
	}

	return mapRow, fields
}

// disposition translates NinjaTrader's Entry/Exit marker into the canonical
// Opening/Closing vocabulary. Unknown markers pass through untouched so the
// normalizer can flag them.
func disposition(ex string) string {
	switch strings.ToLower(ex) {
	case "entry", "e":
		return models.DispositionOpening
	case "exit", "x":
		return models.DispositionClosing
	}
	return ex
}

func columnIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, exists := idx[key]; !exists {
			idx[key] = i
		}
	}
	return idx
}
