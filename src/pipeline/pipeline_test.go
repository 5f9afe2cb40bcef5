package pipeline_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/tradevault/backend/src/models"
	"github.com/tradevault/backend/src/pipeline"
)

const fillsCSV = `Symbol,Side,Qty,Price,Position,Time
X,Buy,2,100,Opening,01/02/2024 09:30:00
X,Sell,2,105,Closing,01/02/2024 10:15:00
Y,Sell,1,50,Closing,01/02/2024 11:00:00
`

func TestRun_EndToEnd(t *testing.T) {
	result, err := pipeline.New().Run(fillsCSV, pipeline.Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.Stats.RowsProcessed != 3 {
		t.Errorf("rows processed = %d, want 3", result.Stats.RowsProcessed)
	}
	if result.Stats.Broker != "unknown" {
		t.Errorf("broker = %q, want unknown", result.Stats.Broker)
	}
	if result.Stats.ColumnsMatched != 6 {
		t.Errorf("columns matched = %d, want 6", result.Stats.ColumnsMatched)
	}
	// No identifier column anywhere: every row's ID is synthesized.
	if result.Stats.SyntheticIDs != 3 {
		t.Errorf("synthetic IDs = %d, want 3", result.Stats.SyntheticIDs)
	}

	if len(result.Trades) != 2 {
		t.Fatalf("trade count = %d, want 2 (%+v)", len(result.Trades), result.Trades)
	}
	paired := result.Trades[0]
	if paired.Symbol != "X" || paired.Side != models.TradeSideLong || paired.EntryPrice != 100 {
		t.Errorf("paired trade wrong: %+v", paired)
	}
	if paired.ExitPrice == nil || *paired.ExitPrice != 105 {
		t.Errorf("paired exit = %v, want 105", paired.ExitPrice)
	}
	if !result.Trades[1].Synthetic {
		t.Errorf("unmatched closing fill should yield a degenerate trade: %+v", result.Trades[1])
	}

	var sawPairingWarning bool
	for _, w := range result.Warnings {
		if strings.Contains(w, "no matching opening fill") {
			sawPairingWarning = true
		}
	}
	if !sawPairingWarning {
		t.Errorf("missing pairing warning, got %v", result.Warnings)
	}
}

func TestRun_DeterministicAcrossColumnOrder(t *testing.T) {
	reordered := `Time,Position,Price,Qty,Side,Symbol
01/02/2024 09:30:00,Opening,100,2,Buy,X
01/02/2024 10:15:00,Closing,105,2,Sell,X
01/02/2024 11:00:00,Closing,50,1,Sell,Y
`
	p := pipeline.New()
	a, err := p.Run(fillsCSV, pipeline.Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	b, err := p.Run(reordered, pipeline.Options{})
	if err != nil {
		t.Fatalf("Run reordered: %v", err)
	}

	if len(a.Rows) != len(b.Rows) {
		t.Fatalf("row counts differ: %d vs %d", len(a.Rows), len(b.Rows))
	}
	for i := range a.Rows {
		if a.Rows[i].ID != b.Rows[i].ID {
			t.Errorf("row %d: synthesized IDs differ across column order: %q vs %q", i, a.Rows[i].ID, b.Rows[i].ID)
		}
		if !strings.HasPrefix(a.Rows[i].ID, "gen-") {
			t.Errorf("row %d: ID %q lacks synthesis prefix", i, a.Rows[i].ID)
		}
	}
	if len(a.Trades) != len(b.Trades) {
		t.Errorf("trade counts differ: %d vs %d", len(a.Trades), len(b.Trades))
	}
}

func TestRun_BrokerAdapterEndToEnd(t *testing.T) {
	csv := `symbol,qty,buyPrice,sellPrice,pnl,boughtTimestamp,soldTimestamp
NQH4,1,15000,15050.25,50.25,01/02/2024 09:30:00,01/02/2024 09:45:00
`
	result, err := pipeline.New().Run(csv, pipeline.Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Stats.Broker != "tradovate" {
		t.Fatalf("broker = %q, want tradovate", result.Stats.Broker)
	}
	if len(result.Trades) != 1 {
		t.Fatalf("trade count = %d, want 1", len(result.Trades))
	}
	tr := result.Trades[0]
	if tr.Side != models.TradeSideLong || tr.EntryPrice != 15000 {
		t.Errorf("trade = %+v", tr)
	}
	if tr.ExitPrice == nil || *tr.ExitPrice != 15050.25 {
		t.Errorf("exit = %v, want 15050.25", tr.ExitPrice)
	}
}

func TestRun_RowLimit(t *testing.T) {
	result, err := pipeline.New().Run(fillsCSV, pipeline.Options{Limit: 1})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Stats.RowsProcessed != 1 {
		t.Errorf("rows processed = %d, want 1", result.Stats.RowsProcessed)
	}
	if len(result.Rows) != 1 {
		t.Errorf("rows = %d, want 1", len(result.Rows))
	}
}

func TestRun_ManualOverrides(t *testing.T) {
	csv := `Ticker,MyPrice,Amount
X,100,2
`
	opts := pipeline.Options{
		Overrides: map[string]models.TargetField{
			"MyPrice": models.FieldExecPrice,
			"Amount":  models.FieldQty,
		},
	}
	result, err := pipeline.New().Run(csv, opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	row := result.Rows[0]
	if row.ExecPrice == nil || *row.ExecPrice != 100 {
		t.Errorf("exec price = %v, want 100", row.ExecPrice)
	}
	if row.Qty == nil || *row.Qty != 2 {
		t.Errorf("qty = %v, want 2", row.Qty)
	}
}

func TestRun_ErrorSentinels(t *testing.T) {
	p := pipeline.New()

	if _, err := p.Run("", pipeline.Options{}); !errors.Is(err, pipeline.ErrEmptyFile) {
		t.Errorf("empty content: err = %v, want ErrEmptyFile", err)
	}
	if _, err := p.Run("   \n\n  \n", pipeline.Options{}); !errors.Is(err, pipeline.ErrEmptyFile) {
		t.Errorf("blank content: err = %v, want ErrEmptyFile", err)
	}
	if _, err := p.Run("Symbol,Qty,Price\n", pipeline.Options{}); !errors.Is(err, pipeline.ErrNoDataRows) {
		t.Errorf("header only: err = %v, want ErrNoDataRows", err)
	}

	_, err := p.Run("Foo,Bar\n1,2\n", pipeline.Options{})
	if !errors.Is(err, pipeline.ErrUnmappableFile) {
		t.Fatalf("unmappable: err = %v, want ErrUnmappableFile", err)
	}
	// The message guides a manual mapping: missing fields plus raw headers.
	if !strings.Contains(err.Error(), "Foo") || !strings.Contains(err.Error(), "exec_price") {
		t.Errorf("unmappable message not actionable: %v", err)
	}
}
