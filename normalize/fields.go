package normalize

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/poiesic/tradevec/core"
)

// lookup returns the first present, non-null value among keys.
func lookup(r core.RawRecord, keys ...string) (any, bool) {
	for _, key := range keys {
		if v, ok := r[key]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// stringField reads a text field, falling back to def when every key is
// absent or null. Numbers are rendered using their literal form so codes like
// 851712 survive unchanged.
func stringField(r core.RawRecord, def string, keys ...string) (string, error) {
	v, ok := lookup(r, keys...)
	if !ok {
		return def, nil
	}
	switch val := v.(type) {
	case string:
		return val, nil
	case json.Number:
		return val.String(), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(val), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case bool:
		return strconv.FormatBool(val), nil
	default:
		return "", fmt.Errorf("%w: field %s has non-scalar value %T", core.ErrMalformedRecord, keys[0], v)
	}
}

// numberField reads a numeric field. Absent, null and empty-string values
// yield zero. It returns the value together with the literal text the record
// used, which shipment templates reproduce verbatim.
func numberField(r core.RawRecord, keys ...string) (float64, string, error) {
	v, ok := lookup(r, keys...)
	if !ok {
		return 0, "0", nil
	}

	var (
		f       float64
		literal string
		err     error
	)
	switch val := v.(type) {
	case json.Number:
		literal = val.String()
		f, err = val.Float64()
	case float64:
		f = val
		literal = strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		f = float64(val)
		literal = strconv.Itoa(val)
	case int64:
		f = float64(val)
		literal = strconv.FormatInt(val, 10)
	case string:
		literal = strings.TrimSpace(val)
		if literal == "" {
			return 0, "0", nil
		}
		f, err = strconv.ParseFloat(strings.ReplaceAll(literal, ",", ""), 64)
	default:
		err = fmt.Errorf("unsupported type %T", v)
	}
	if err == nil && (math.IsNaN(f) || math.IsInf(f, 0)) {
		err = fmt.Errorf("value %q is not finite", literal)
	}
	if err != nil {
		return 0, "", fmt.Errorf("%w: field %s: %v", core.ErrMalformedRecord, keys[0], err)
	}
	return f, literal, nil
}
