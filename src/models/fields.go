package models

// TargetField identifies one column of the canonical order schema. Every input
// file, whatever its dialect, is resolved into these fields; headers that match
// none of them are ignored.
type TargetField string

const (
	FieldID                  TargetField = "id"
	FieldAccount             TargetField = "account"
	FieldContract            TargetField = "contract"
	FieldStatus              TargetField = "status"
	FieldOrderType           TargetField = "order_type"
	FieldQty                 TargetField = "qty"
	FieldSide                TargetField = "side"
	FieldCreatedAt           TargetField = "created_at"
	FieldTradeDay            TargetField = "trade_day"
	FieldFilledAt            TargetField = "filled_at"
	FieldCancelledAt         TargetField = "cancelled_at"
	FieldStopPrice           TargetField = "stop_price"
	FieldLimitPrice          TargetField = "limit_price"
	FieldExecPrice           TargetField = "exec_price"
	FieldClosePrice          TargetField = "close_price"
	FieldCommission          TargetField = "commission"
	FieldPositionDisposition TargetField = "position_disposition"
	FieldCreationDisposition TargetField = "creation_disposition"
	FieldRejectionReason     TargetField = "rejection_reason"
	FieldExchangeOrderID     TargetField = "exchange_order_id"
	FieldPlatformOrderID     TargetField = "platform_order_id"
)

// AllTargetFields lists every canonical field, in schema order.
var AllTargetFields = []TargetField{
	FieldID, FieldAccount, FieldContract, FieldStatus, FieldOrderType,
	FieldQty, FieldSide, FieldCreatedAt, FieldTradeDay, FieldFilledAt,
	FieldCancelledAt, FieldStopPrice, FieldLimitPrice, FieldExecPrice,
	FieldClosePrice, FieldCommission, FieldPositionDisposition,
	FieldCreationDisposition, FieldRejectionReason, FieldExchangeOrderID,
	FieldPlatformOrderID,
}

// ParseTargetField maps a field name (as used in manual override maps supplied
// by the import UI) back to its TargetField. The second return is false for
// unknown names.
func ParseTargetField(name string) (TargetField, bool) {
	for _, f := range AllTargetFields {
		if string(f) == name {
			return f, true
		}
	}
	return "", false
}

// RowValues holds the raw string cells of one row, keyed by canonical field.
// A key is present when the file had a column resolved to that field, even if
// the cell itself was empty.
type RowValues map[TargetField]string
