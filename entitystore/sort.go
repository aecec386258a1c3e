package entitystore

import (
	"fmt"
	"sort"
	"strings"

	"github.com/trezcool/shule/core"
)

func compareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}

	switch av := a.(type) {
	case float64:
		if bv, ok := b.(float64); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
			return 0
		}
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(strings.ToLower(av), strings.ToLower(bv))
		}
	case bool:
		if bv, ok := b.(bool); ok {
			switch {
			case av == bv:
				return 0
			case !av:
				return -1
			}
			return 1
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func less(a, b Record, orderings []core.Ordering) bool {
	for _, ord := range orderings {
		c := compareValues(a[ord.Field], b[ord.Field])
		if c == 0 {
			continue
		}
		if ord.Ascending {
			return c < 0
		}
		return c > 0
	}
	return false
}

// Sort stable-sorts values by their JSON field names; ties keep insertion order.
func Sort[T any](values []T, orderings []core.Ordering) error {
	if len(orderings) == 0 || len(values) < 2 {
		return nil
	}
	type pair struct {
		rec Record
		val T
	}
	pairs := make([]pair, 0, len(values))
	for _, v := range values {
		r, err := ToRecord(v)
		if err != nil {
			return err
		}
		pairs = append(pairs, pair{rec: r, val: v})
	}
	sort.SliceStable(pairs, func(i, j int) bool { return less(pairs[i].rec, pairs[j].rec, orderings) })
	for i, p := range pairs {
		values[i] = p.val
	}
	return nil
}
