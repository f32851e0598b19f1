package locks

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAgentKey(t *testing.T) {
	assert.Equal(t, "agent:0", AgentKey(0))
	assert.Equal(t, "agent:42", AgentKey(42))
}

func TestKeyedMutex_SerializesPerKey(t *testing.T) {
	km := NewKeyedMutex()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.Lock("agent:1")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()
	assert.Equal(t, 100, counter)
}

func TestKeyedMutex_IndependentKeys(t *testing.T) {
	km := NewKeyedMutex()

	// Holding one key must not block another.
	unlockA := km.Lock("agent:1")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := km.Lock("agent:2")
		unlockB()
		close(done)
	}()
	<-done
}
