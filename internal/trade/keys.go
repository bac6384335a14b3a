package trade

import "fmt"

// Key prefix and suffixes for trade and result entries.
const (
	KeyPrefix       = "ey"
	KeySuffix       = ".xml"
	ResultKeySuffix = "_results.xml"
)

// Key returns the cache key of a trade.
// Seven-digit zero padding keeps keys lexically ordered for trade numbers below 10,000,000.
func Key(tradeNumber int64) string {
	return fmt.Sprintf("%s%07d%s", KeyPrefix, tradeNumber, KeySuffix)
}

// ResultKey returns the cache key under which the result of a trade is written.
func ResultKey(tradeNumber int64) string {
	return fmt.Sprintf("%s%07d%s", KeyPrefix, tradeNumber, ResultKeySuffix)
}
