package processors_test

import (
	"strings"
	"testing"

	"github.com/tradevault/backend/src/models"
	"github.com/tradevault/backend/src/processors"
)

func f(v float64) *float64 { return &v }

func fill(symbol, side string, qty, price float64, disposition, at string) models.NormalizedRow {
	return models.NormalizedRow{
		Contract:            symbol,
		Side:                side,
		Qty:                 f(qty),
		ExecPrice:           f(price),
		PositionDisposition: disposition,
		CreatedAt:           at,
	}
}

func TestProcess_PairsOpeningAndClosingFills(t *testing.T) {
	rows := []models.NormalizedRow{
		fill("X", models.SideBuy, 2, 100, models.DispositionOpening, "01/02/2024 09:30:00"),
		fill("X", models.SideSell, 2, 105, models.DispositionClosing, "01/02/2024 10:15:00"),
	}

	trades, warnings := processors.NewTradeReconstructor().Process(rows, true)
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if len(trades) != 1 {
		t.Fatalf("trade count = %d, want 1", len(trades))
	}

	tr := trades[0]
	if tr.Symbol != "X" || tr.Side != models.TradeSideLong || tr.Quantity != 2 {
		t.Errorf("unexpected trade shape: %+v", tr)
	}
	if tr.EntryPrice != 100 || tr.ExitPrice == nil || *tr.ExitPrice != 105 {
		t.Errorf("entry/exit = %v/%v, want 100/105", tr.EntryPrice, tr.ExitPrice)
	}
	if tr.EntryAt != "01/02/2024 09:30:00" || tr.ExitAt != "01/02/2024 10:15:00" {
		t.Errorf("entry/exit times wrong: %+v", tr)
	}
}

func TestProcess_ShortRoundTrip(t *testing.T) {
	rows := []models.NormalizedRow{
		fill("NQ", models.SideSell, 1, 15000, models.DispositionOpening, "01/02/2024 09:30:00"),
		fill("NQ", models.SideBuy, 1, 14950, models.DispositionClosing, "01/02/2024 09:45:00"),
	}

	trades, _ := processors.NewTradeReconstructor().Process(rows, true)
	if len(trades) != 1 {
		t.Fatalf("trade count = %d, want 1", len(trades))
	}
	if trades[0].Side != models.TradeSideShort {
		t.Errorf("side = %q, want short", trades[0].Side)
	}
	if trades[0].EntryPrice != 15000 || *trades[0].ExitPrice != 14950 {
		t.Errorf("entry/exit = %v/%v", trades[0].EntryPrice, *trades[0].ExitPrice)
	}
}

func TestProcess_UnmatchedClosingBecomesDegenerateTrade(t *testing.T) {
	rows := []models.NormalizedRow{
		fill("Y", models.SideSell, 1, 50, models.DispositionClosing, "01/02/2024 11:00:00"),
	}

	trades, warnings := processors.NewTradeReconstructor().Process(rows, true)
	if len(trades) != 1 {
		t.Fatalf("trade count = %d, want 1", len(trades))
	}
	tr := trades[0]
	if !tr.Synthetic {
		t.Error("degenerate trade not flagged synthetic")
	}
	if tr.EntryPrice != 50 || tr.ExitPrice == nil || *tr.ExitPrice != 50 {
		t.Errorf("entry/exit = %v/%v, want both 50", tr.EntryPrice, tr.ExitPrice)
	}
	if tr.EntryAt != tr.ExitAt {
		t.Errorf("entry/exit times differ on degenerate trade: %+v", tr)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "no matching opening fill") {
		t.Errorf("warnings = %v", warnings)
	}
}

func TestProcess_SizeMustMatchExactly(t *testing.T) {
	rows := []models.NormalizedRow{
		fill("X", models.SideBuy, 5, 100, models.DispositionOpening, "01/02/2024 09:30:00"),
		fill("X", models.SideSell, 2, 105, models.DispositionClosing, "01/02/2024 10:15:00"),
	}

	trades, warnings := processors.NewTradeReconstructor().Process(rows, true)
	// The size-2 close cannot net against the size-5 open: one degenerate
	// trade plus the still-open position.
	if len(trades) != 2 {
		t.Fatalf("trade count = %d, want 2 (%+v)", len(trades), trades)
	}
	if len(warnings) != 1 {
		t.Errorf("warnings = %v", warnings)
	}
	var sawOpen, sawDegenerate bool
	for _, tr := range trades {
		if tr.Open() {
			sawOpen = true
		}
		if tr.Synthetic {
			sawDegenerate = true
		}
	}
	if !sawOpen || !sawDegenerate {
		t.Errorf("expected one open and one degenerate trade, got %+v", trades)
	}
}

func TestProcess_EarliestOpeningWins(t *testing.T) {
	rows := []models.NormalizedRow{
		fill("X", models.SideBuy, 1, 100, models.DispositionOpening, "01/02/2024 09:00:00"),
		fill("X", models.SideBuy, 1, 101, models.DispositionOpening, "01/02/2024 09:05:00"),
		fill("X", models.SideSell, 1, 105, models.DispositionClosing, "01/02/2024 10:00:00"),
	}

	trades, _ := processors.NewTradeReconstructor().Process(rows, true)
	if len(trades) != 2 {
		t.Fatalf("trade count = %d, want 2", len(trades))
	}
	// First trade pairs against the earliest open (price 100).
	if trades[0].EntryPrice != 100 || trades[0].ExitPrice == nil {
		t.Errorf("earliest opening not matched first: %+v", trades[0])
	}
	if !trades[1].Open() || trades[1].EntryPrice != 101 {
		t.Errorf("later opening should remain open: %+v", trades[1])
	}
}

func TestProcess_ExitBeforeEntryFlagged(t *testing.T) {
	rows := []models.NormalizedRow{
		fill("X", models.SideBuy, 1, 100, models.DispositionOpening, "01/02/2024 12:00:00"),
		fill("X", models.SideSell, 1, 105, models.DispositionClosing, "01/02/2024 09:00:00"),
	}

	trades, warnings := processors.NewTradeReconstructor().Process(rows, true)
	if len(warnings) != 1 || !strings.Contains(warnings[0], "precedes") {
		t.Fatalf("warnings = %v", warnings)
	}
	// The close is emitted as degenerate and the open stays open; no trade
	// is fabricated with exit before entry.
	for _, tr := range trades {
		if tr.ExitPrice != nil && tr.ExitAt < tr.EntryAt && !tr.Synthetic {
			t.Errorf("fabricated backwards trade: %+v", tr)
		}
	}
}

func TestProcess_CompleteTradeExitBeforeEntryFlagged(t *testing.T) {
	row := models.NormalizedRow{
		Contract:   "X",
		Side:       models.SideBuy,
		Qty:        f(1),
		ExecPrice:  f(100),
		ClosePrice: f(105),
		CreatedAt:  "01/02/2024 12:00:00",
		FilledAt:   "01/02/2024 09:00:00",
	}

	trades, warnings := processors.NewTradeReconstructor().Process([]models.NormalizedRow{row}, false)
	if len(warnings) != 1 || !strings.Contains(warnings[0], "precedes") {
		t.Fatalf("warnings = %v", warnings)
	}
	if len(trades) != 1 {
		t.Fatalf("trade count = %d, want 1", len(trades))
	}
	tr := trades[0]
	if !tr.Synthetic {
		t.Error("inconsistent complete-trade row not flagged synthetic")
	}
	if tr.ExitAt < tr.EntryAt {
		t.Errorf("emitted trade keeps exit before entry: %+v", tr)
	}
	if tr.EntryPrice != 100 || tr.ExitPrice == nil || *tr.ExitPrice != 100 {
		t.Errorf("degenerate trade should collapse onto the entry fill: %+v", tr)
	}
	if tr.Side != models.TradeSideLong {
		t.Errorf("side = %q, want long", tr.Side)
	}
}

func TestProcess_NoDispositionColumnMeansOpenPositions(t *testing.T) {
	rows := []models.NormalizedRow{
		fill("X", models.SideBuy, 2, 100, "", "01/02/2024 09:30:00"),
		fill("X", models.SideSell, 2, 105, "", "01/02/2024 10:15:00"),
	}

	trades, _ := processors.NewTradeReconstructor().Process(rows, false)
	if len(trades) != 2 {
		t.Fatalf("trade count = %d, want 2", len(trades))
	}
	for _, tr := range trades {
		if !tr.Open() {
			t.Errorf("expected open position, got %+v", tr)
		}
	}
}

func TestProcess_CompleteTradeRow(t *testing.T) {
	row := models.NormalizedRow{
		Contract:   "ES",
		Side:       models.SideBuy,
		Qty:        f(3),
		ExecPrice:  f(5000),
		ClosePrice: f(5010.5),
		CreatedAt:  "01/02/2024 09:30:00",
		FilledAt:   "01/02/2024 11:00:00",
		Commission: f(4.18),
	}

	trades, warnings := processors.NewTradeReconstructor().Process([]models.NormalizedRow{row}, false)
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if len(trades) != 1 {
		t.Fatalf("trade count = %d, want 1", len(trades))
	}
	tr := trades[0]
	if tr.EntryPrice != 5000 || tr.ExitPrice == nil || *tr.ExitPrice != 5010.5 {
		t.Errorf("entry/exit = %v/%v", tr.EntryPrice, tr.ExitPrice)
	}
	if tr.Fees != 4.18 {
		t.Errorf("fees = %v, want 4.18", tr.Fees)
	}
	if tr.Side != models.TradeSideLong {
		t.Errorf("side = %q, want long", tr.Side)
	}
}
