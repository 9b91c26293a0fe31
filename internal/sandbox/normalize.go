package sandbox

import (
	"fmt"
	"math/big"
	"time"

	"github.com/datadetective/academy/pkg/core"
)

// dateTimeLayout is how timestamps appear in results.
const dateTimeLayout = "2006-01-02 15:04:05"

// normalizeValue maps a driver value onto a result cell.
func normalizeValue(v any) core.Value {
	switch x := v.(type) {
	case nil:
		return core.Null()
	case string:
		return core.String(x)
	case []byte:
		return core.String(string(x))
	case int64:
		return core.Number(float64(x))
	case int32:
		return core.Number(float64(x))
	case int16:
		return core.Number(float64(x))
	case int8:
		return core.Number(float64(x))
	case int:
		return core.Number(float64(x))
	case uint64:
		return core.Number(float64(x))
	case uint32:
		return core.Number(float64(x))
	case uint16:
		return core.Number(float64(x))
	case uint8:
		return core.Number(float64(x))
	case float64:
		return core.Number(x)
	case float32:
		return core.Number(float64(x))
	case bool:
		if x {
			return core.Number(1)
		}
		return core.Number(0)
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return core.String(x.Format(time.DateOnly))
		}
		return core.String(x.Format(dateTimeLayout))
	case *big.Int:
		// HUGEINT aggregates such as SUM over integers
		f, _ := new(big.Float).SetInt(x).Float64()
		return core.Number(f)
	case interface{ Float64() float64 }:
		// duckdb.Decimal
		return core.Number(x.Float64())
	case fmt.Stringer:
		return core.String(x.String())
	default:
		return core.String(fmt.Sprint(x))
	}
}
