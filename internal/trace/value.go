package trace

import (
	"slices"
	"unicode/utf16"
)

// Value is a sealed interface over the types a trace may carry.
// Only String, Int, Bool, Array, and Object implement it. There is no null
// and no float: absent fields are omitted and numbers are int64, which keeps
// every trace byte-reproducible across platforms.
type Value interface {
	value() // sealed
}

// String is a string value in a trace.
type String string

func (String) value() {}

// Int is an integer value in a trace. Always int64, never float64.
type Int int64

func (Int) value() {}

// Bool is a boolean value in a trace.
type Bool bool

func (Bool) value() {}

// Array is an ordered list of trace values.
type Array []Value

func (Array) value() {}

// Object is a map of string keys to trace values.
// Use SortedKeys for deterministic iteration.
type Object map[string]Value

func (Object) value() {}

// SortedKeys returns keys in RFC 8785 canonical order.
// CRITICAL: the order is by UTF-16 code units; Go's sort.Strings compares
// UTF-8 bytes, which differs once keys leave ASCII.
func (o Object) SortedKeys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)
	return keys
}

// compareUTF16 compares strings by UTF-16 code units per RFC 8785,
// with surrogate pairs handled by unicode/utf16.
func compareUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	n := len(a16)
	if len(b16) < n {
		n = len(b16)
	}
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}
