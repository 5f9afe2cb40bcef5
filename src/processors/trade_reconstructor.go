package processors

import (
	"fmt"
	"time"

	"github.com/tradevault/backend/src/models"
)

// TradeReconstructor consumes the ordered normalized rows of one file and
// emits canonical trades. Two input shapes are supported: complete-trade rows
// that already carry both prices, and fill rows that are paired through their
// position disposition.
type TradeReconstructor struct{}

func NewTradeReconstructor() *TradeReconstructor {
	return &TradeReconstructor{}
}

// openFill is one not-yet-matched opening fill, keyed by symbol in the
// pairing table.
type openFill struct {
	row     *models.NormalizedRow
	matched bool
}

// Process reconstructs trades from rows, in input order. hasDisposition
// states whether a position-disposition column was resolvable for the file;
// without it the pairing signal is unavailable and every fill row becomes an
// independently opened, still-open position. Returned warnings are file
// scoped, prefixed with the 1-based data row index.
func (p *TradeReconstructor) Process(rows []models.NormalizedRow, hasDisposition bool) ([]models.ReconstructedTrade, []string) {
	var trades []models.ReconstructedTrade
	var warnings []string

	// Unmatched opening fills per symbol, earliest first. The flat slice
	// preserves input order so leftover open positions are emitted
	// deterministically.
	opens := make(map[string][]*openFill)
	var allOpens []*openFill

	warn := func(rowIndex int, format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf("row %d: %s", rowIndex+1, fmt.Sprintf(format, args...)))
	}

	for i := range rows {
		row := &rows[i]

		// Complete-trade rows map 1:1 onto a trade.
		if row.ExecPrice != nil && row.ClosePrice != nil {
			if completeExitBeforeEntry(row) {
				warn(i, "exit timestamp precedes entry timestamp on %s; emitted as degenerate trade", row.Contract)
				trades = append(trades, degenerateCompleteTrade(row))
				continue
			}
			trades = append(trades, completeTrade(row))
			continue
		}

		if !hasDisposition {
			trades = append(trades, openTrade(row))
			continue
		}

		switch row.PositionDisposition {
		case models.DispositionOpening:
			fill := &openFill{row: row}
			opens[row.Contract] = append(opens[row.Contract], fill)
			allOpens = append(allOpens, fill)

		case models.DispositionClosing:
			open := findMatch(opens[row.Contract], row)
			if open == nil {
				// No pairing partner: completeness over precision. The row
				// still contributes a trade, a recognizably synthetic one.
				warn(i, "no matching opening fill for closing fill on %s; emitted as degenerate trade", row.Contract)
				trades = append(trades, degenerateTrade(row))
				continue
			}
			if exitBeforeEntry(open.row, row) {
				warn(i, "closing fill on %s precedes its opening fill; emitted as degenerate trade", row.Contract)
				trades = append(trades, degenerateTrade(row))
				continue
			}
			open.matched = true
			trades = append(trades, pairedTrade(open.row, row))

		default:
			// A fill whose disposition is unrecognizable cannot participate
			// in pairing; treat it as an open position.
			trades = append(trades, openTrade(row))
		}
	}

	// Whatever never found a closing fill stays open.
	for _, f := range allOpens {
		if !f.matched {
			trades = append(trades, openTrade(f.row))
		}
	}

	return trades, warnings
}

// findMatch returns the earliest still-unmatched opening fill whose side
// differs from the closing fill and whose size exactly equals it. Partial
// fill netting across several opens or closes is deliberately not attempted.
func findMatch(fills []*openFill, closing *models.NormalizedRow) *openFill {
	for _, f := range fills {
		if f.matched {
			continue
		}
		if f.row.Side == closing.Side || f.row.Side == "" || closing.Side == "" {
			continue
		}
		if !sameQty(f.row.Qty, closing.Qty) {
			continue
		}
		return f
	}
	return nil
}

func sameQty(a, b *float64) bool {
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}

// completeExitBeforeEntry checks the internal timestamps of a complete-trade
// row, whose entry is the order-creation time and exit the fill time.
func completeExitBeforeEntry(row *models.NormalizedRow) bool {
	entry, ok1 := parseCanonical(row.CreatedAt)
	exit, ok2 := parseCanonical(row.FilledAt)
	if !ok1 || !ok2 {
		return false
	}
	return exit.Before(entry)
}

func exitBeforeEntry(opening, closing *models.NormalizedRow) bool {
	entry, ok1 := parseCanonical(fillTime(opening))
	exit, ok2 := parseCanonical(fillTime(closing))
	if !ok1 || !ok2 {
		return false
	}
	return exit.Before(entry)
}

func parseCanonical(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(models.CanonicalTimeLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// fillTime picks the execution timestamp of a fill row, preferring the fill
// time over the order-creation time.
func fillTime(row *models.NormalizedRow) string {
	if row.FilledAt != "" {
		return row.FilledAt
	}
	return row.CreatedAt
}

func tradeSide(side string) string {
	if side == models.SideSell {
		return models.TradeSideShort
	}
	return models.TradeSideLong
}

func priceOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func qtyOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func completeTrade(row *models.NormalizedRow) models.ReconstructedTrade {
	exit := *row.ClosePrice
	exitAt := row.FilledAt
	if exitAt == "" {
		exitAt = row.CreatedAt
	}
	return models.ReconstructedTrade{
		Symbol:     row.Contract,
		Side:       tradeSide(row.Side),
		Quantity:   qtyOrZero(row.Qty),
		EntryPrice: *row.ExecPrice,
		EntryAt:    row.CreatedAt,
		ExitPrice:  &exit,
		ExitAt:     exitAt,
		Fees:       priceOrZero(row.Commission),
	}
}

func openTrade(row *models.NormalizedRow) models.ReconstructedTrade {
	return models.ReconstructedTrade{
		Symbol:     row.Contract,
		Side:       tradeSide(row.Side),
		Quantity:   qtyOrZero(row.Qty),
		EntryPrice: priceOrZero(row.ExecPrice),
		EntryAt:    fillTime(row),
		Fees:       priceOrZero(row.Commission),
	}
}

// degenerateTrade builds an already-closed trade whose entry and exit both
// come from the one closing fill that found no partner.
func degenerateTrade(row *models.NormalizedRow) models.ReconstructedTrade {
	price := priceOrZero(row.ExecPrice)
	at := fillTime(row)
	side := models.TradeSideLong
	if row.Side == models.SideBuy {
		// A closing Buy unwinds a short position.
		side = models.TradeSideShort
	}
	return models.ReconstructedTrade{
		Symbol:     row.Contract,
		Side:       side,
		Quantity:   qtyOrZero(row.Qty),
		EntryPrice: price,
		EntryAt:    at,
		ExitPrice:  &price,
		ExitAt:     at,
		Fees:       priceOrZero(row.Commission),
		Synthetic:  true,
	}
}

// degenerateCompleteTrade collapses a complete-trade row whose fill time
// precedes its creation time into a flagged same-point trade at the entry
// fill. Unlike the closing-fill variant the row's own side already names the
// position direction.
func degenerateCompleteTrade(row *models.NormalizedRow) models.ReconstructedTrade {
	price := *row.ExecPrice
	return models.ReconstructedTrade{
		Symbol:     row.Contract,
		Side:       tradeSide(row.Side),
		Quantity:   qtyOrZero(row.Qty),
		EntryPrice: price,
		EntryAt:    row.CreatedAt,
		ExitPrice:  &price,
		ExitAt:     row.CreatedAt,
		Fees:       priceOrZero(row.Commission),
		Synthetic:  true,
	}
}

func pairedTrade(opening, closing *models.NormalizedRow) models.ReconstructedTrade {
	exit := priceOrZero(closing.ExecPrice)
	return models.ReconstructedTrade{
		Symbol:     opening.Contract,
		Side:       tradeSide(opening.Side),
		Quantity:   qtyOrZero(opening.Qty),
		EntryPrice: priceOrZero(opening.ExecPrice),
		EntryAt:    fillTime(opening),
		ExitPrice:  &exit,
		ExitAt:     fillTime(closing),
		Fees:       priceOrZero(opening.Commission) + priceOrZero(closing.Commission),
	}
}
