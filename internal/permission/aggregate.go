package permission

import "fmt"

// Aggregation selects how overlapping grants for one category are combined.
type Aggregation string

const (
	// AggregateOr unions the bits of every grant.
	AggregateOr Aggregation = "or"
	// AggregateMax keeps the numerically largest mask. It matches AggregateOr
	// only for monotonically ordered role masks and exists for legacy data.
	AggregateMax Aggregation = "max"
)

const errUnknownAggregationFmt = "unknown permission aggregation %q"

func ParseAggregation(v string) (Aggregation, error) {
	switch Aggregation(v) {
	case AggregateOr, AggregateMax:
		return Aggregation(v), nil
	}
	return "", fmt.Errorf(errUnknownAggregationFmt, v)
}

// Aggregate starts from None and folds every grant into it. Categories that
// only appear in grants are kept; out-of-range values contribute nothing.
func Aggregate(mode Aggregation, grants ...Set) Set {
	out := None()
	for _, grant := range grants {
		for category, m := range grant {
			if !m.Valid() {
				continue
			}
			current := out[category]
			switch mode {
			case AggregateMax:
				if m > current {
					out[category] = m
				}
			default:
				out[category] = current | m
			}
		}
	}
	return out
}
