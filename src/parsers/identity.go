package parsers

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/tradevault/backend/src/models"
)

// syntheticIDPrefix tags identifiers this pipeline synthesized, so downstream
// consumers can tell them apart from broker-assigned ones.
const syntheticIDPrefix = "gen-"

// syntheticIDHexLen is the truncation width of the hex digest.
const syntheticIDHexLen = 16

// AssignIdentity guarantees the row ends up with a non-empty identifier.
// Preference order: explicit identifier column, exchange-assigned order id,
// platform order id, then deterministic synthesis. Returns true when the
// identifier had to be synthesized.
func AssignIdentity(row *models.NormalizedRow) bool {
	if row.ID != "" {
		return false
	}
	if row.ExchangeOrderID != "" {
		row.ID = row.ExchangeOrderID
		return false
	}
	if row.PlatformOrderID != "" {
		row.ID = row.PlatformOrderID
		return false
	}

	row.ID = SynthesizeIdentity(row)
	row.SyntheticID = true
	row.Warn("Row identifier synthesized from row contents.")
	return true
}

// SynthesizeIdentity hashes the small fixed set of normalized fields most
// likely to distinguish one fill from another within the same file. Because
// the inputs are the already-normalized canonical values, the same logical
// row yields the same identifier even when its source columns are reordered,
// which is what makes re-importing a file idempotent.
func SynthesizeIdentity(row *models.NormalizedRow) string {
	input := strings.Join([]string{
		row.Contract,
		formatNullableFloat(row.ExecPrice),
		formatNullableFloat(row.Qty),
		row.Side,
		row.CreatedAt,
	}, "|")
	sum := sha256.Sum256([]byte(input))
	return syntheticIDPrefix + hex.EncodeToString(sum[:])[:syntheticIDHexLen]
}

func formatNullableFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
