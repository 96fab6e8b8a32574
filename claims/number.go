package claims

import (
	"time"

	"github.com/clinichq/billing-engine/billing"
)

// DefaultPrefix is used when the owning facility has no short name.
const DefaultPrefix = "CLM"

// NewNumber generates a claim number {prefix}-{yy}{mm}-{rrr} from the
// facility short name, the current date, and a 0-999 random suffix.
// Generated fresh each time a new claim is authored; never regenerated
// when an existing claim is edited.
func NewNumber(shortName string, now time.Time, intn func(int) int) string {
	prefix := shortName
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return billing.ReferenceNumber(prefix, now, intn)
}
