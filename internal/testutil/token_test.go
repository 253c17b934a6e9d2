package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedTokenGenerator_ReturnsSameToken(t *testing.T) {
	gen := NewFixedTokenGenerator("test-run-123")

	assert.Equal(t, "test-run-123", gen.Generate())
	assert.Equal(t, "test-run-123", gen.Generate())
	assert.Equal(t, "test-run-123", gen.Generate())
}

func TestFixedTokenGenerator_EmptyTokenDefault(t *testing.T) {
	gen := NewFixedTokenGenerator("")

	assert.Equal(t, "test-run-default", gen.Generate())
}

func TestFixedTokenGenerator_ThreadSafe(t *testing.T) {
	gen := NewFixedTokenGenerator("thread-safe-token")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				assert.Equal(t, "thread-safe-token", gen.Generate())
			}
		}()
	}
	wg.Wait()
}

func TestSequenceTokenGenerator_ReturnsInOrder(t *testing.T) {
	gen := NewSequenceTokenGenerator("run-1", "run-2", "run-3")

	assert.Equal(t, 3, gen.Remaining())
	assert.Equal(t, "run-1", gen.Generate())
	assert.Equal(t, "run-2", gen.Generate())
	assert.Equal(t, "run-3", gen.Generate())
	assert.Equal(t, 0, gen.Remaining())
}

func TestSequenceTokenGenerator_PanicsWhenExhausted(t *testing.T) {
	gen := NewSequenceTokenGenerator("only-one")
	gen.Generate()

	assert.PanicsWithValue(t, "SequenceTokenGenerator: all tokens exhausted", func() {
		gen.Generate()
	})
}

func TestSequenceTokenGenerator_EmptyPanicsImmediately(t *testing.T) {
	gen := NewSequenceTokenGenerator()

	assert.Panics(t, func() {
		gen.Generate()
	})
}

func TestSequenceTokenGenerator_ThreadSafe(t *testing.T) {
	tokens := make([]string, 100)
	for i := range tokens {
		tokens[i] = "run"
	}
	gen := NewSequenceTokenGenerator(tokens...)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				require.Equal(t, "run", gen.Generate())
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, gen.Remaining())
}
