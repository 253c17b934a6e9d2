package trace

import (
	"bytes"
	"fmt"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces canonical JSON per the RFC 8785 profile.
// CRITICAL: this is the ONLY serialization used for digests and golden
// files. Identical values marshal to identical bytes, always.
//
// Differences from encoding/json:
//  1. Object keys sorted by UTF-16 code units (see Object.SortedKeys)
//  2. No HTML escaping (< > & stay literal)
//  3. Strings NFC-normalized at the serialization boundary
//  4. U+2028 and U+2029 stay literal (encoding/json escapes them)
//
// Floats and null cannot appear: the sealed Value set has neither.
func MarshalCanonical(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := marshalValue(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func marshalValue(buf *bytes.Buffer, v Value) error {
	switch val := v.(type) {
	case String:
		marshalString(buf, string(val))
		return nil
	case Int:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
		return nil
	case Bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
		return nil
	case Array:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := marshalValue(buf, elem); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
		return nil
	case Object:
		buf.WriteByte('{')
		for i, k := range val.SortedKeys() {
			if i > 0 {
				buf.WriteByte(',')
			}
			marshalString(buf, k)
			buf.WriteByte(':')
			if err := marshalValue(buf, val[k]); err != nil {
				return fmt.Errorf("value for key %q: %w", k, err)
			}
		}
		buf.WriteByte('}')
		return nil
	case nil:
		return fmt.Errorf("nil value is forbidden in canonical JSON")
	default:
		return fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
}

// marshalString writes a canonical JSON string. Per RFC 8785 (which defers
// to ECMA-262 JSON.stringify): quote and backslash escaped, control
// characters below U+0020 escaped with the short forms where they exist,
// everything else literal. No HTML escaping, no U+2028/U+2029 escaping,
// which is why this is hand-rolled instead of delegating to encoding/json.
func marshalString(buf *bytes.Buffer, s string) {
	s = norm.NFC.String(s)

	buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if r < 0x20 {
				fmt.Fprintf(buf, `\u%04x`, r)
			} else {
				buf.WriteRune(r)
			}
		}
	}
	buf.WriteByte('"')
}
