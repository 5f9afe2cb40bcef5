package parsers

import (
	"regexp"

	"github.com/tradevault/backend/src/models"
)

// exactHeaderTable maps normalized canonical field names. A file whose header
// already uses the canonical name needs no alias lookup at all.
func exactHeaderTable() map[string]models.TargetField {
	return map[string]models.TargetField{
		"id":                   models.FieldID,
		"account":              models.FieldAccount,
		"contract":             models.FieldContract,
		"status":               models.FieldStatus,
		"order type":           models.FieldOrderType,
		"qty":                  models.FieldQty,
		"side":                 models.FieldSide,
		"created at":           models.FieldCreatedAt,
		"trade day":            models.FieldTradeDay,
		"filled at":            models.FieldFilledAt,
		"cancelled at":         models.FieldCancelledAt,
		"stop price":           models.FieldStopPrice,
		"limit price":          models.FieldLimitPrice,
		"exec price":           models.FieldExecPrice,
		"close price":          models.FieldClosePrice,
		"commission":           models.FieldCommission,
		"position disposition": models.FieldPositionDisposition,
		"creation disposition": models.FieldCreationDisposition,
		"rejection reason":     models.FieldRejectionReason,
		"exchange order id":    models.FieldExchangeOrderID,
		"platform order id":    models.FieldPlatformOrderID,
	}
}

// headerAliasTable is the curated per-field alias table, keyed by normalized
// header string. Grown from the export dialects seen in the wild; additions
// belong here, not in the keyword heuristics.
func headerAliasTable() map[string]models.TargetField {
	return map[string]models.TargetField{
		// identifier
		"trade id": models.FieldID,
		"fill id":  models.FieldID,
		"ref":      models.FieldID,

		// account
		"account name":   models.FieldAccount,
		"account id":     models.FieldAccount,
		"account number": models.FieldAccount,
		"acct":           models.FieldAccount,

		// instrument
		"symbol":        models.FieldContract,
		"ticker":        models.FieldContract,
		"instrument":    models.FieldContract,
		"product":       models.FieldContract,
		"contract name": models.FieldContract,
		"security":      models.FieldContract,
		"market":        models.FieldContract,

		// status
		"order status": models.FieldStatus,
		"state":        models.FieldStatus,

		// order type. Broker formats that reuse "type" for direction are
		// handled by their adapters, which bypass this table entirely.
		"type":     models.FieldOrderType,
		"ord type": models.FieldOrderType,

		// size
		"quantity":   models.FieldQty,
		"size":       models.FieldQty,
		"filled qty": models.FieldQty,
		"filledqty":  models.FieldQty,
		"contracts":  models.FieldQty,
		"shares":     models.FieldQty,
		"volume":     models.FieldQty,

		// side
		"buy sell":    models.FieldSide,
		"b s":         models.FieldSide,
		"action":      models.FieldSide,
		"direction":   models.FieldSide,
		"long short":  models.FieldSide,
		"bought sold": models.FieldSide,

		// created-at
		"createdat":  models.FieldCreatedAt,
		"timestamp":  models.FieldCreatedAt,
		"date time":  models.FieldCreatedAt,
		"datetime":   models.FieldCreatedAt,
		"time":       models.FieldCreatedAt,
		"entry time": models.FieldCreatedAt,
		"entry date": models.FieldCreatedAt,
		"entered at": models.FieldCreatedAt,
		"open time":  models.FieldCreatedAt,
		"opened at":  models.FieldCreatedAt,

		// trade-day
		"trade date":   models.FieldTradeDay,
		"date":         models.FieldTradeDay,
		"day":          models.FieldTradeDay,
		"session date": models.FieldTradeDay,

		// filled-at
		"filledat":       models.FieldFilledAt,
		"fill time":      models.FieldFilledAt,
		"filled":         models.FieldFilledAt,
		"exit time":      models.FieldFilledAt,
		"exit date":      models.FieldFilledAt,
		"exited at":      models.FieldFilledAt,
		"close time":     models.FieldFilledAt,
		"closed at":      models.FieldFilledAt,
		"execution time": models.FieldFilledAt,

		// cancelled-at
		"canceled at": models.FieldCancelledAt,
		"cancel time": models.FieldCancelledAt,
		"cancelled":   models.FieldCancelledAt,
		"canceled":    models.FieldCancelledAt,

		// stop price
		"stop":      models.FieldStopPrice,
		"stop loss": models.FieldStopPrice,
		"sl":        models.FieldStopPrice,

		// limit price
		"limit": models.FieldLimitPrice,
		"lmt":   models.FieldLimitPrice,

		// execute price
		"price":          models.FieldExecPrice,
		"execute price":  models.FieldExecPrice,
		"avg price":      models.FieldExecPrice,
		"avgprice":       models.FieldExecPrice,
		"average price":  models.FieldExecPrice,
		"fill price":     models.FieldExecPrice,
		"avg fill price": models.FieldExecPrice,
		"entry price":    models.FieldExecPrice,
		"open price":     models.FieldExecPrice,
		"buy price":      models.FieldExecPrice,

		// close price
		"exit price": models.FieldClosePrice,
		"sell price": models.FieldClosePrice,
		"sold price": models.FieldClosePrice,

		// commission
		"commissions": models.FieldCommission,
		"fee":         models.FieldCommission,
		"fees":        models.FieldCommission,
		"comm":        models.FieldCommission,

		// position disposition
		"position effect": models.FieldPositionDisposition,
		"open close":      models.FieldPositionDisposition,
		"position":        models.FieldPositionDisposition,

		// creation disposition
		"order origin": models.FieldCreationDisposition,
		"origin":       models.FieldCreationDisposition,

		// rejection reason
		"reject reason":   models.FieldRejectionReason,
		"rejected reason": models.FieldRejectionReason,

		// exchange order id
		"exch order id": models.FieldExchangeOrderID,
		"exchange id":   models.FieldExchangeOrderID,

		// platform order id
		"order id":        models.FieldPlatformOrderID,
		"orderid":         models.FieldPlatformOrderID,
		"client order id": models.FieldPlatformOrderID,
		"broker order id": models.FieldPlatformOrderID,
	}
}

// headerPatterns are tried after the alias table, against the normalized
// header string.
func headerPatterns() []headerPattern {
	compile := func(expr string, f models.TargetField) headerPattern {
		return headerPattern{re: regexp.MustCompile(expr), field: f}
	}
	return []headerPattern{
		compile(`^avg.*price$`, models.FieldExecPrice),
		compile(`^fill.*price$`, models.FieldExecPrice),
		compile(`(^|\s)qty$`, models.FieldQty),
		compile(`^account\b`, models.FieldAccount),
		compile(`order\s?id$`, models.FieldPlatformOrderID),
	}
}

// keywordRules is the last-resort heuristic: a header containing all the
// listed tokens resolves to the field. Ordered; first match wins.
func keywordRules() []keywordRule {
	return []keywordRule{
		{tokens: []string{"entry", "date"}, field: models.FieldCreatedAt},
		{tokens: []string{"entry", "time"}, field: models.FieldCreatedAt},
		{tokens: []string{"open", "time"}, field: models.FieldCreatedAt},
		{tokens: []string{"exit", "time"}, field: models.FieldFilledAt},
		{tokens: []string{"exit", "date"}, field: models.FieldFilledAt},
		{tokens: []string{"close", "time"}, field: models.FieldFilledAt},
		{tokens: []string{"entry", "price"}, field: models.FieldExecPrice},
		{tokens: []string{"exit", "price"}, field: models.FieldClosePrice},
		{tokens: []string{"close", "price"}, field: models.FieldClosePrice},
		{tokens: []string{"stop", "price"}, field: models.FieldStopPrice},
		{tokens: []string{"limit", "price"}, field: models.FieldLimitPrice},
	}
}
