package trace

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObject_SortedKeys_ASCII(t *testing.T) {
	obj := Object{
		"zulu":  Int(1),
		"alpha": Int(2),
		"mike":  Int(3),
	}

	assert.Equal(t, []string{"alpha", "mike", "zulu"}, obj.SortedKeys())
}

func TestObject_SortedKeys_UTF16Order(t *testing.T) {
	// U+1F600 encodes as surrogates 0xD83D 0xDE00 in UTF-16, which sorts
	// BEFORE U+FF61 (0xFF61). UTF-8 byte order would reverse them.
	obj := Object{
		"\uFF61":     Int(1),
		"\U0001F600": Int(2),
	}

	assert.Equal(t, []string{"\U0001F600", "\uFF61"}, obj.SortedKeys())
}

func TestObject_SortedKeys_PrefixShorterFirst(t *testing.T) {
	obj := Object{
		"ab":  Int(1),
		"a":   Int(2),
		"abc": Int(3),
	}

	assert.Equal(t, []string{"a", "ab", "abc"}, obj.SortedKeys())
}
