package models

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// -----------------------------------------------------------------------------
// MLooseFloat is a numeric field that tolerates strings and junk in upstream payloads.
// Numbers and numeric strings are accepted; anything else decodes as invalid
// instead of failing the whole message.
// -----------------------------------------------------------------------------

type MLooseFloat struct {
	Value float64
	Valid bool
}

// -----------------------------------------------------------------------------

// LooseFloat builds a valid MLooseFloat
func LooseFloat(v float64) MLooseFloat {
	return MLooseFloat{Value: v, Valid: true}
}

// -----------------------------------------------------------------------------

// Or returns the value when valid, def otherwise
func (f MLooseFloat) Or(def float64) float64 {
	if f.Valid {
		return f.Value
	}
	return def
}

// -----------------------------------------------------------------------------

func (f *MLooseFloat) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		*f = MLooseFloat{}
		return nil
	}
	*f = ParseLooseFloat(raw)
	return nil
}

// -----------------------------------------------------------------------------

func (f MLooseFloat) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// -----------------------------------------------------------------------------

// ParseLooseFloat converts a generic decoded JSON value into a MLooseFloat
func ParseLooseFloat(val interface{}) MLooseFloat {
	var v float64
	switch t := val.(type) {
	case float64:
		v = t
	case float32:
		v = float64(t)
	case int:
		v = float64(t)
	case int64:
		v = float64(t)
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return MLooseFloat{}
		}
		v = parsed
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return MLooseFloat{}
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return MLooseFloat{}
		}
		v = parsed
	default:
		return MLooseFloat{}
	}

	if math.IsNaN(v) || math.IsInf(v, 0) {
		return MLooseFloat{}
	}
	return MLooseFloat{Value: v, Valid: true}
}
