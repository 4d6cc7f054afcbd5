package sqlstore

import (
	"database/sql"
	"math"
	"time"
)

// CoerceValue converts a driver value for JSON output. Attempts run in order:
// string, 64-bit integer, float, bool, nullable string, null. The first that applies wins,
// so numeric-looking TEXT stays a string.
func CoerceValue(v any) any {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	}

	if i, ok := asInt64(v); ok {
		return i
	}

	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return float64(0)
		}
		return x
	case float32:
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return float64(0)
		}
		return f
	case uint64:
		return float64(x)
	case uint:
		return float64(x)
	case bool:
		return x
	case sql.NullString:
		if x.Valid {
			return x.String
		}
		return nil
	case sql.NullInt64:
		if x.Valid {
			return x.Int64
		}
	case sql.NullFloat64:
		if x.Valid {
			return x.Float64
		}
	case sql.NullBool:
		if x.Valid {
			return x.Bool
		}
	}
	return nil
}

func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case int16:
		return int64(x), true
	case int8:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint8:
		return int64(x), true
	case uint64:
		if x <= math.MaxInt64 {
			return int64(x), true
		}
	case uint:
		if uint64(x) <= math.MaxInt64 {
			return int64(x), true
		}
	}
	return 0, false
}
