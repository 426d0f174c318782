package postgres

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"github.com/poiesic/tradevec/storage"
)

var sqlOperators = map[storage.Op]string{
	storage.OpEq:  "=",
	storage.OpNe:  "<>",
	storage.OpGt:  ">",
	storage.OpGte: ">=",
	storage.OpLt:  "<",
	storage.OpLte: "<=",
}

// whereClause translates filter into a SQL predicate over the metadata
// column. Placeholders are numbered from next. The predicate follows
// storage.Condition coercion: numeric-looking values compare numerically
// against jsonb numbers and as text against everything else.
func whereClause(filter storage.Filter, next int) (string, []any, error) {
	if err := filter.Validate(); err != nil {
		return "", nil, err
	}
	if len(filter) == 0 {
		return "TRUE", nil, nil
	}

	var (
		parts []string
		args  []any
	)
	param := func(v any) string {
		args = append(args, v)
		p := "$" + strconv.Itoa(next)
		next++
		return p
	}

	for _, c := range filter {
		key := param(c.Key)

		if c.Op == storage.OpIn {
			values := c.Value.([]any)
			texts := make([]string, len(values))
			numbers := make([]float64, 0, len(values))
			for i, v := range values {
				texts[i] = textValue(v)
				if number, ok := numericValue(v); ok {
					numbers = append(numbers, number)
				}
			}
			textArg := param(pq.Array(texts))
			parts = append(parts, fmt.Sprintf(
				"(CASE WHEN jsonb_typeof(metadata->%[1]s) = 'number' THEN (metadata->>%[1]s)::double precision = ANY(%[2]s::double precision[]) ELSE (metadata->>%[1]s) = ANY(%[3]s) END)",
				key, param(pq.Array(numbers)), textArg))
			continue
		}

		op := sqlOperators[c.Op]
		text := param(textValue(c.Value))
		if number, ok := numericValue(c.Value); ok {
			parts = append(parts, fmt.Sprintf(
				"(CASE WHEN jsonb_typeof(metadata->%[1]s) = 'number' THEN (metadata->>%[1]s)::double precision %[2]s %[3]s ELSE (metadata->>%[1]s) COLLATE \"C\" %[2]s %[4]s END)",
				key, op, param(number), text))
			continue
		}
		parts = append(parts, fmt.Sprintf("(metadata->>%s) COLLATE \"C\" %s %s", key, op, text))
	}

	return strings.Join(parts, " AND "), args, nil
}

func textValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	}
	return fmt.Sprint(v)
}

func numericValue(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.ReplaceAll(t, ",", ""), 64)
		return f, err == nil
	}
	return 0, false
}

// vectorLiteral converts a vector to pgvector text format: [0.1,0.2,0.3].
func vectorLiteral(v []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, val := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(val), 'g', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

// tableName returns the quoted name of a collection's entry table.
func tableName(collection string) string {
	return pq.QuoteIdentifier("tradevec_entries_" + collection)
}
