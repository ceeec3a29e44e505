// Package order computes sort keys for user-ordered siblings.
//
// Keys are float64 values. A new key between two neighbours is their midpoint,
// so reordering touches only the moved item. Repeated inserts into the same
// gap halve it each time; after roughly fifty of them the keys stop being
// distinct and siblings fall back to the (CreatedAt, ID) tiebreak.
package order

// Between returns a key that sorts after before and ahead of after. A nil
// bound means the gap is open on that side.
//
//	Between(nil, nil)     == 1
//	Between(nil, &a)      == a / 2
//	Between(&b, nil)      == b + 1
//	Between(&b, &a)       == (b + a) / 2
func Between(before, after *float64) float64 {
	switch {
	case before == nil && after == nil:
		return 1
	case before == nil:
		return *after / 2
	case after == nil:
		return *before + 1
	default:
		return (*before + *after) / 2
	}
}

// After is Between(&key, nil).
func After(key float64) float64 {
	return Between(&key, nil)
}
