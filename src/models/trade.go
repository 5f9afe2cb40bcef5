package models

// Trade sides after reconstruction.
const (
	TradeSideLong  = "long"
	TradeSideShort = "short"
)

// ReconstructedTrade is the canonical trade record handed to the import UI.
// ExitPrice and ExitAt are empty while a position is still open. Synthetic
// marks a degenerate trade built from a single unmatched closing fill; the UI
// surfaces those for review rather than presenting them as real round trips.
type ReconstructedTrade struct {
	Symbol     string   `json:"symbol"`
	Side       string   `json:"side"`
	Quantity   float64  `json:"quantity"`
	EntryPrice float64  `json:"entry_price"`
	EntryAt    string   `json:"entry_at"`
	ExitPrice  *float64 `json:"exit_price"`
	ExitAt     string   `json:"exit_at,omitempty"`
	Fees       float64  `json:"fees"`
	Synthetic  bool     `json:"synthetic,omitempty"`
}

// Open reports whether the position has no recorded exit yet.
func (t ReconstructedTrade) Open() bool {
	return t.ExitPrice == nil
}

// ImportStats summarizes one pipeline invocation for auditability.
type ImportStats struct {
	RowsProcessed   int    `json:"rows_processed"`
	ColumnsMatched  int    `json:"columns_matched"`
	Broker          string `json:"broker"`
	SyntheticIDs    int    `json:"synthetic_ids"`
	SyntheticIDRows []int  `json:"synthetic_id_rows,omitempty"`
}

// PipelineResult is everything one import invocation produces: the
// reconstructed trades, the normalized rows they were built from, the
// aggregated per-row warnings and the summary statistics.
type PipelineResult struct {
	Trades   []ReconstructedTrade `json:"trades"`
	Rows     []NormalizedRow      `json:"rows"`
	Warnings []string             `json:"warnings"`
	Stats    ImportStats          `json:"stats"`
}
