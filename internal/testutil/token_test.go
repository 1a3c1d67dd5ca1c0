package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenSequence_Numbers(t *testing.T) {
	gen := NewTokenSequence("scn")

	assert.Equal(t, "scn-1", gen.Generate())
	assert.Equal(t, "scn-2", gen.Generate())
	assert.Equal(t, "scn-3", gen.Generate())
}

func TestTokenSequence_EmptyPrefixDefault(t *testing.T) {
	gen := NewTokenSequence("")
	assert.Equal(t, "test-batch-1", gen.Generate())
}

func TestTokenSequence_Reset(t *testing.T) {
	gen := NewTokenSequence("r")
	gen.Generate()
	gen.Generate()
	gen.Reset()
	assert.Equal(t, "r-1", gen.Generate())
}

func TestTokenSequence_ThreadSafe(t *testing.T) {
	gen := NewTokenSequence("ts")

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[string]bool)
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				token := gen.Generate()
				mu.Lock()
				seen[token] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 1000)
}
