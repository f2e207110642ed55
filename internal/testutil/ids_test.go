package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/orchestra/internal/dispatch"
)

func TestFixedIDGenerator_ReturnsSameID(t *testing.T) {
	gen := NewFixedIDGenerator("profiles-dispatcher")

	assert.Equal(t, "profiles-dispatcher", gen.Generate())
	assert.Equal(t, "profiles-dispatcher", gen.Generate())
}

func TestFixedIDGenerator_EmptyIDDefault(t *testing.T) {
	assert.Equal(t, DefaultDispatcherID, NewFixedIDGenerator("").Generate())
}

func TestFixedIDGenerator_StampsDispatcher(t *testing.T) {
	var gen dispatch.IDGenerator = NewFixedIDGenerator("d-1")

	first := dispatch.New(dispatch.WithIDGenerator(gen))
	second := dispatch.New(dispatch.WithIDGenerator(gen))
	defer first.Close()
	defer second.Close()

	assert.Equal(t, "d-1", first.ID())
	assert.Equal(t, first.ID(), second.ID())
}

func TestFixedIDGenerator_ThreadSafe(t *testing.T) {
	gen := NewFixedIDGenerator("thread-safe")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				assert.Equal(t, "thread-safe", gen.Generate())
			}
		}()
	}
	wg.Wait()
}
