package snapshots

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"

	domain "github.com/yungbote/budgetvault-backend/internal/domain/snapshots"
)

type (
	Snapshot  = domain.Snapshot
	Position  = domain.Position
	HeaderKPI = domain.HeaderKPI
)

const (
	// IDField is the position key canonical ordering uses. It is fixed so stored
	// hashes never depend on deployment settings.
	IDField           = "id"
	DefaultTotalField = "total"
)

// Canonicalizer produces the byte encoding that snapshot hashes are taken over.
//
// Encoding rules:
//   - top level is {"header_kpi":<kpi>,"positions":[...]}
//   - object keys are sorted at every depth, no whitespace
//   - numbers are rendered with strconv 'g' formatting (shortest round-trip, no locale)
//   - positions are ordered by the string form of IDField, then by their own encoding
type Canonicalizer struct{}

type encodedPosition struct {
	pos Position
	key string
	raw []byte
}

// Canonicalize returns the canonical encoding of a positions + header KPI pair.
func (c Canonicalizer) Canonicalize(positions []Position, kpi HeaderKPI) ([]byte, error) {
	out, _, err := c.encode(positions, kpi)
	return out, err
}

// Hash returns Digest(Canonicalize(positions, kpi)).
func (c Canonicalizer) Hash(positions []Position, kpi HeaderKPI) (string, error) {
	b, err := c.Canonicalize(positions, kpi)
	if err != nil {
		return "", err
	}
	return Digest(b), nil
}

// Digest is the lowercase hex SHA-256 of b.
func Digest(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func (c Canonicalizer) encode(positions []Position, kpi HeaderKPI) ([]byte, []Position, error) {
	ordered, err := c.order(positions)
	if err != nil {
		return nil, nil, err
	}
	if kpi == nil {
		kpi = HeaderKPI{}
	}

	var buf bytes.Buffer
	buf.WriteString(`{"header_kpi":`)
	if err := writeValue(&buf, map[string]any(kpi)); err != nil {
		return nil, nil, domain.ValidationError("snapshot.canonicalize", "header_kpi: "+err.Error())
	}
	buf.WriteString(`,"positions":[`)
	sorted := make([]Position, len(ordered))
	for i, ep := range ordered {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(ep.raw)
		sorted[i] = ep.pos
	}
	buf.WriteString(`]}`)
	return buf.Bytes(), sorted, nil
}

func (c Canonicalizer) order(positions []Position) ([]encodedPosition, error) {
	out := make([]encodedPosition, len(positions))
	for i, p := range positions {
		var buf bytes.Buffer
		var v any
		if p != nil {
			v = map[string]any(p)
		}
		if err := writeValue(&buf, v); err != nil {
			return nil, domain.ValidationError("snapshot.canonicalize", fmt.Sprintf("positions[%d]: %v", i, err))
		}
		out[i] = encodedPosition{pos: p, key: positionKey(p, IDField), raw: buf.Bytes()}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].key != out[j].key {
			return out[i].key < out[j].key
		}
		return bytes.Compare(out[i].raw, out[j].raw) < 0
	})
	return out, nil
}

func positionKey(p Position, field string) string {
	if p == nil {
		return ""
	}
	switch v := p[field].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		var buf bytes.Buffer
		if err := writeValue(&buf, v); err != nil {
			return fmt.Sprint(v)
		}
		return buf.String()
	}
}

func writeValue(buf *bytes.Buffer, v any) error {
	switch t := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if t {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case string:
		b, err := json.Marshal(t)
		if err != nil {
			return err
		}
		buf.Write(b)
	case json.Number:
		f, err := strconv.ParseFloat(string(t), 64)
		if err != nil {
			return fmt.Errorf("invalid number %q", string(t))
		}
		return writeFloat(buf, f)
	case float64:
		return writeFloat(buf, t)
	case float32:
		return writeFloat(buf, float64(t))
	case int:
		return writeFloat(buf, float64(t))
	case int32:
		return writeFloat(buf, float64(t))
	case int64:
		return writeFloat(buf, float64(t))
	case uint:
		return writeFloat(buf, float64(t))
	case uint32:
		return writeFloat(buf, float64(t))
	case uint64:
		return writeFloat(buf, float64(t))
	case map[string]any:
		if t == nil {
			buf.WriteString("null")
			return nil
		}
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := writeValue(buf, t[k]); err != nil {
				return fmt.Errorf("%s: %w", k, err)
			}
		}
		buf.WriteByte('}')
	case Position:
		return writeValue(buf, map[string]any(t))
	case HeaderKPI:
		return writeValue(buf, map[string]any(t))
	case []any:
		if t == nil {
			buf.WriteString("null")
			return nil
		}
		buf.WriteByte('[')
		for i, item := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeValue(buf, item); err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	default:
		// Anything else goes through encoding/json once, which is exactly what
		// storage does, so the stored payload re-canonicalizes to the same bytes.
		raw, err := json.Marshal(t)
		if err != nil {
			return err
		}
		generic, err := decodeGeneric(raw)
		if err != nil {
			return err
		}
		return writeValue(buf, generic)
	}
	return nil
}

func writeFloat(buf *bytes.Buffer, f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("non-finite number")
	}
	if f == 0 {
		f = 0 // drop negative zero
	}
	buf.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	return nil
}

func decodeGeneric(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}
