package planpager

// Page size limits applied by CursorPager.WithLimit.
const (
	// NoLimit disables the limit; it cannot be combined with lookahead.
	NoLimit      = -1
	MaxLimit     = 100
	DefaultLimit = 10
)

// IsNormalizedLimitMax clamps limit into [1, maxLimit], substituting
// DefaultLimit for non-positive values. The flag reports whether limit was
// already in range.
func IsNormalizedLimitMax(limit int, maxLimit int) (int, bool) {
	if limit <= 0 {
		return DefaultLimit, false
	} else if limit > maxLimit {
		return maxLimit, false
	}

	return limit, true
}

func NormalizeLimitMax(limit int, maxLimit int) int {
	ret, _ := IsNormalizedLimitMax(limit, maxLimit)
	return ret
}

func NormalizeLimit(limit int) int {
	return NormalizeLimitMax(limit, MaxLimit)
}
