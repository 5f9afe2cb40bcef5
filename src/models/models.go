package models

// CanonicalTimeLayout is the one output format every normalized timestamp is
// re-emitted in, expressed in the configured reference timezone.
const CanonicalTimeLayout = "01/02/2006 15:04:05"

// CanonicalDateLayout is the date-only variant used for trade-day values.
const CanonicalDateLayout = "01/02/2006"

// Side values after enumeration normalization.
const (
	SideBuy  = "Buy"
	SideSell = "Sell"
)

// Position disposition values after normalization.
const (
	DispositionOpening = "Opening"
	DispositionClosing = "Closing"
)

// RawTable is the rectangular result of tokenizing one file: the raw header
// row plus the data rows, all as untyped string cells. It is never mutated
// after the tokenizer produces it.
type RawTable struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// NormalizedRow is one data row expressed purely in canonical fields: dates as
// canonical timestamp strings in the reference timezone, numbers as nullable
// floats, side as a canonical enumeration. ID is always non-empty once the
// identity assigner has run.
type NormalizedRow struct {
	ID                  string   `json:"id"`
	Account             string   `json:"account"`
	Contract            string   `json:"contract"`
	Status              string   `json:"status"`
	OrderType           string   `json:"order_type"`
	Qty                 *float64 `json:"qty"`
	Side                string   `json:"side"`
	CreatedAt           string   `json:"created_at"`
	TradeDay            string   `json:"trade_day"`
	FilledAt            string   `json:"filled_at"`
	CancelledAt         string   `json:"cancelled_at"`
	StopPrice           *float64 `json:"stop_price"`
	LimitPrice          *float64 `json:"limit_price"`
	ExecPrice           *float64 `json:"exec_price"`
	ClosePrice          *float64 `json:"close_price"`
	Commission          *float64 `json:"commission"`
	PositionDisposition string   `json:"position_disposition"`
	CreationDisposition string   `json:"creation_disposition"`
	RejectionReason     string   `json:"rejection_reason"`
	ExchangeOrderID     string   `json:"exchange_order_id"`
	PlatformOrderID     string   `json:"platform_order_id"`

	SyntheticID bool     `json:"synthetic_id"`
	Warnings    []string `json:"warnings,omitempty"`
}

// Warn appends a row-level warning.
func (r *NormalizedRow) Warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
}
