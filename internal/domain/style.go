package domain

import (
	"fmt"
	"sort"
	"strconv"
)

// StyleBag is an open bag of presentation hints attached to a block.
// Values are decoded from JSON and checked lazily by Scalars: only strings,
// numbers and booleans survive, everything else is dropped at render time.
type StyleBag map[string]any

// Clone copies the bag.
func (s StyleBag) Clone() StyleBag {
	if s == nil {
		return nil
	}
	out := make(StyleBag, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Scalars returns the scalar entries formatted as strings, plus the keys that
// were rejected because their value is not a scalar.
func (s StyleBag) Scalars() (map[string]string, []string) {
	if len(s) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(s))
	var rejected []string
	for k, v := range s {
		switch tv := v.(type) {
		case string:
			out[k] = tv
		case bool:
			out[k] = strconv.FormatBool(tv)
		case float64:
			out[k] = strconv.FormatFloat(tv, 'f', -1, 64)
		case float32:
			out[k] = strconv.FormatFloat(float64(tv), 'f', -1, 32)
		case int, int32, int64:
			out[k] = fmt.Sprintf("%d", tv)
		default:
			rejected = append(rejected, k)
		}
	}
	sort.Strings(rejected)
	return out, rejected
}
