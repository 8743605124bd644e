package event

import (
	"math"
	"strconv"
	"strings"
)

// Payload is the loosely shaped body of a gameplay event. Keys may be flat
// ("itemId") or dotted paths into nested maps ("item.id").
type Payload map[string]interface{}

// Lookup resolves key, following dotted paths through nested maps.
func (p Payload) Lookup(key string) (interface{}, bool) {
	if p == nil {
		return nil, false
	}
	if v, ok := p[key]; ok {
		return v, true
	}
	head, rest, found := strings.Cut(key, ".")
	if !found {
		return nil, false
	}
	switch nested := p[head].(type) {
	case Payload:
		return nested.Lookup(rest)
	case map[string]interface{}:
		return Payload(nested).Lookup(rest)
	}
	return nil, false
}

// String returns the first non-empty value among keys, in order.
func (p Payload) String(keys ...string) string {
	for _, k := range keys {
		v, ok := p.Lookup(k)
		if !ok {
			continue
		}
		if s := ToString(v); s != "" {
			return s
		}
	}
	return ""
}

// Int returns the first numeric value among keys. Values outside the int32
// range are ignored.
func (p Payload) Int(keys ...string) (int, bool) {
	for _, k := range keys {
		v, ok := p.Lookup(k)
		if !ok {
			continue
		}
		var n int64
		switch x := v.(type) {
		case int:
			n = int64(x)
		case int64:
			n = x
		case float64:
			if math.IsNaN(x) || x < math.MinInt32 || x > math.MaxInt32 {
				continue
			}
			n = int64(x)
		case string:
			i, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
			if err != nil {
				continue
			}
			n = i
		default:
			continue
		}
		if n < math.MinInt32 || n > math.MaxInt32 {
			continue
		}
		return int(n), true
	}
	return 0, false
}

// Strings returns the first list value among keys. A single string is
// treated as a one-element list.
func (p Payload) Strings(keys ...string) []string {
	for _, k := range keys {
		v, ok := p.Lookup(k)
		if !ok {
			continue
		}
		switch list := v.(type) {
		case []string:
			if len(list) > 0 {
				return list
			}
		case []interface{}:
			out := make([]string, 0, len(list))
			for _, item := range list {
				if s := ToString(item); s != "" {
					out = append(out, s)
				}
			}
			if len(out) > 0 {
				return out
			}
		case string:
			if list != "" {
				return []string{list}
			}
		}
	}
	return nil
}

// ToString renders scalar payload values. JSON numbers decode as float64,
// so integral floats are printed without a fraction.
func ToString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case float64:
		if s == float64(int64(s)) {
			return strconv.FormatInt(int64(s), 10)
		}
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	}
	return ""
}

// AsPayload extracts a Payload from event data, accepting plain maps.
func AsPayload(data interface{}) Payload {
	switch p := data.(type) {
	case Payload:
		return p
	case map[string]interface{}:
		return Payload(p)
	}
	return Payload{}
}
