package snapshots

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	domain "github.com/yungbote/budgetvault-backend/internal/domain/snapshots"
)

// DecodePayload reads stored positions and header KPI JSON. Numbers are kept
// as json.Number so no precision is lost before canonicalization.
func DecodePayload(positionsJSON, kpiJSON []byte) ([]Position, HeaderKPI, error) {
	var positions []Position
	if len(bytes.TrimSpace(positionsJSON)) > 0 {
		dec := json.NewDecoder(bytes.NewReader(positionsJSON))
		dec.UseNumber()
		if err := dec.Decode(&positions); err != nil {
			return nil, nil, fmt.Errorf("decode positions: %w", err)
		}
	}
	var kpi HeaderKPI
	if len(bytes.TrimSpace(kpiJSON)) > 0 {
		dec := json.NewDecoder(bytes.NewReader(kpiJSON))
		dec.UseNumber()
		if err := dec.Decode(&kpi); err != nil {
			return nil, nil, fmt.Errorf("decode header_kpi: %w", err)
		}
	}
	return positions, kpi, nil
}

// DecodeSnapshotPayload decodes the payload stored on s.
func DecodeSnapshotPayload(s *Snapshot) ([]Position, HeaderKPI, error) {
	if s == nil {
		return nil, nil, fmt.Errorf("nil snapshot")
	}
	return DecodePayload(s.Positions, s.HeaderKPI)
}

// LineTotal reads the numeric total of a position. A missing or null field
// counts as zero; numeric strings are accepted with a '.' decimal separator.
func LineTotal(p Position, field string) (float64, error) {
	if p == nil {
		return 0, nil
	}
	var f float64
	switch v := p[field].(type) {
	case nil:
		return 0, nil
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case int32:
		f = float64(v)
	case json.Number:
		parsed, err := strconv.ParseFloat(string(v), 64)
		if err != nil {
			return 0, fmt.Errorf("%s: invalid number %q", field, string(v))
		}
		f = parsed
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, nil
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("%s: invalid number %q", field, v)
		}
		f = parsed
	default:
		return 0, fmt.Errorf("%s: unsupported type %T", field, v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%s: non-finite number", field)
	}
	return f, nil
}

// SumTotals adds the line totals of positions in the given order.
func SumTotals(positions []Position, field string) (float64, error) {
	var total float64
	for i, p := range positions {
		v, err := LineTotal(p, field)
		if err != nil {
			return 0, domain.ValidationError("snapshot.total", fmt.Sprintf("positions[%d].%v", i, err))
		}
		total += v
	}
	return total, nil
}
