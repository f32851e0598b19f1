// Package locks provides named mutexes used to serialize per-agent state
// changes: visit increments, commission creation, and the payout engine's
// balance check-then-act.
package locks

import (
	"strconv"
	"sync"
)

// AgentKey is the lock key serializing all state changes for one agent.
func AgentKey(agentID uint) string {
	return "agent:" + strconv.FormatUint(uint64(agentID), 10)
}

// KeyedMutex hands out one mutex per key. Locks are never reclaimed; the key
// space (agent ids) is small enough that this does not matter.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewKeyedMutex creates an empty lock registry.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key and returns its unlock function.
func (k *KeyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
