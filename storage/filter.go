package storage

import (
	"cmp"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/poiesic/tradevec/core"
)

// Op is a metadata comparison operator.
type Op string

const (
	OpEq  Op = "eq"
	OpNe  Op = "ne"
	OpGt  Op = "gt"
	OpGte Op = "gte"
	OpLt  Op = "lt"
	OpLte Op = "lte"
	OpIn  Op = "in"
)

// Condition compares one metadata value against Value.
// For OpIn, Value is a []any of candidates.
//
// Values are coerced to the type of the stored metadata value: a string
// condition against a numeric field is parsed as a number, and a numeric
// condition against a string field is compared with its decimal text. This
// lets "hs_code=010121" keep its leading zero while "quantity>=100" still
// compares numerically.
type Condition struct {
	Key   string
	Op    Op
	Value any
}

// Filter is a conjunction of conditions. An empty filter matches everything.
type Filter []Condition

// Eq returns a condition matching key == value.
func Eq(key string, value any) Condition {
	return Condition{Key: key, Op: OpEq, Value: value}
}

// In returns a condition matching any of values.
func In(key string, values ...any) Condition {
	return Condition{Key: key, Op: OpIn, Value: values}
}

// Match reports whether m satisfies every condition.
// A condition on a key absent from m never matches.
func (f Filter) Match(m core.Metadata) bool {
	for _, c := range f {
		if !c.Match(m) {
			return false
		}
	}
	return true
}

// Validate checks every condition for a known operator and a usable value.
func (f Filter) Validate() error {
	for _, c := range f {
		if c.Key == "" {
			return fmt.Errorf("%w: empty key", ErrInvalidFilter)
		}
		switch c.Op {
		case OpEq, OpNe, OpGt, OpGte, OpLt, OpLte:
			if _, ok := c.Value.([]any); ok {
				return fmt.Errorf("%w: %s %s takes a single value", ErrInvalidFilter, c.Key, c.Op)
			}
		case OpIn:
			if _, ok := c.Value.([]any); !ok {
				return fmt.Errorf("%w: %s in needs a list", ErrInvalidFilter, c.Key)
			}
		default:
			return fmt.Errorf("%w: unknown operator %q", ErrInvalidFilter, c.Op)
		}
	}
	return nil
}

// Match reports whether m satisfies c.
func (c Condition) Match(m core.Metadata) bool {
	stored, ok := m[c.Key]
	if !ok {
		return false
	}

	if c.Op == OpIn {
		candidates, _ := c.Value.([]any)
		return slices.ContainsFunc(candidates, func(v any) bool {
			r, ok := compare(stored, v)
			return ok && r == 0
		})
	}

	r, ok := compare(stored, c.Value)
	if !ok {
		return c.Op == OpNe
	}
	switch c.Op {
	case OpEq:
		return r == 0
	case OpNe:
		return r != 0
	case OpGt:
		return r > 0
	case OpGte:
		return r >= 0
	case OpLt:
		return r < 0
	case OpLte:
		return r <= 0
	}
	return false
}

// compare orders stored against want after coercing want to stored's type.
// ok is false when the two cannot be compared.
func compare(stored, want any) (int, bool) {
	switch s := stored.(type) {
	case string:
		w, ok := asString(want)
		if !ok {
			return 0, false
		}
		return strings.Compare(s, w), true
	case float64:
		w, ok := asFloat(want)
		if !ok {
			return 0, false
		}
		return cmp.Compare(s, w), true
	case bool:
		w, ok := asBool(want)
		if !ok {
			return 0, false
		}
		switch {
		case s == w:
			return 0, true
		case w:
			return -1, true
		default:
			return 1, true
		}
	}
	return 0, false
}

func asString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case bool:
		return strconv.FormatBool(t), true
	}
	if f, ok := asFloat(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64), true
	}
	return "", false
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.ReplaceAll(t, ",", ""), 64)
		return f, err == nil
	}
	return 0, false
}

func asBool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		b, err := strconv.ParseBool(t)
		return b, err == nil
	}
	return false, false
}

// operators in match order; two-character operators come first.
var operators = []struct {
	token string
	op    Op
}{
	{"!=", OpNe},
	{">=", OpGte},
	{"<=", OpLte},
	{"=", OpEq},
	{">", OpGt},
	{"<", OpLt},
}

// inPrefix marks a set membership value: "flow=in:Import|Export".
const inPrefix = "in:"

// ParseFilter parses command-line filter expressions into a Filter.
// Accepted forms: key=value, key!=value, key>=value, key>value, key<=value,
// key<value and key=in:a|b|c. Values are kept as text and coerced at match
// time, see Condition.
func ParseFilter(exprs []string) (Filter, error) {
	filter := make(Filter, 0, len(exprs))
	for _, expr := range exprs {
		c, err := parseCondition(expr)
		if err != nil {
			return nil, err
		}
		filter = append(filter, c)
	}
	return filter, nil
}

func parseCondition(expr string) (Condition, error) {
	pos := strings.IndexAny(expr, "!=<>")
	if pos <= 0 {
		return Condition{}, fmt.Errorf("%w: %q", ErrInvalidFilter, expr)
	}
	key := strings.TrimSpace(expr[:pos])
	rest := expr[pos:]

	for _, o := range operators {
		if !strings.HasPrefix(rest, o.token) {
			continue
		}
		value := strings.TrimSpace(rest[len(o.token):])
		if key == "" {
			return Condition{}, fmt.Errorf("%w: %q", ErrInvalidFilter, expr)
		}
		if o.op == OpEq && strings.HasPrefix(value, inPrefix) {
			parts := strings.Split(strings.TrimPrefix(value, inPrefix), "|")
			values := make([]any, 0, len(parts))
			for _, p := range parts {
				if p = strings.TrimSpace(p); p != "" {
					values = append(values, p)
				}
			}
			if len(values) == 0 {
				return Condition{}, fmt.Errorf("%w: %q has an empty set", ErrInvalidFilter, expr)
			}
			return Condition{Key: key, Op: OpIn, Value: values}, nil
		}
		return Condition{Key: key, Op: o.op, Value: value}, nil
	}
	return Condition{}, fmt.Errorf("%w: %q", ErrInvalidFilter, expr)
}
