package parsers

import (
	"github.com/tradevault/backend/src/models"
	"github.com/tradevault/backend/src/parsers/ninjatrader"
	"github.com/tradevault/backend/src/parsers/tradovate"
)

// Adapter is a broker-specific override of generic header resolution. Match
// is the header-signature predicate; Bind returns the row mapper for a
// matched file together with the canonical fields it populates. Adapters may
// use domain knowledge the generic alias engine cannot infer, e.g. a column
// whose name suggests order type but actually encodes trade direction.
type Adapter interface {
	Name() string
	Match(headers []string) bool
	Bind(headers []string) (func(row []string) models.RowValues, []models.TargetField)
}

func registeredAdapters() []Adapter {
	return []Adapter{
		tradovate.NewAdapter(),
		ninjatrader.NewAdapter(),
	}
}
