package cache

import (
	"sync"
	"time"
)

type ttlEntry struct {
	value     []byte
	expiresAt time.Time
}

// ttlMap is an expiring map with a background sweeper
type ttlMap struct {
	mu        sync.RWMutex
	entries   map[string]ttlEntry
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

func newTTLMap(sweepInterval time.Duration) *ttlMap {
	m := &ttlMap{
		entries:  make(map[string]ttlEntry),
		stopChan: make(chan struct{}),
	}
	m.wg.Add(1)
	go m.sweepLoop(sweepInterval)
	return m
}

func (m *ttlMap) get(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	if !ok || time.Now().After(e.expiresAt) {
		return nil, false
	}
	return e.value, true
}

func (m *ttlMap) set(key string, value []byte, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = ttlEntry{value: value, expiresAt: time.Now().Add(ttl)}
}

// setIfAbsent stores the key unless a live entry exists
func (m *ttlMap) setIfAbsent(key string, value []byte, ttl time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[key]; ok && time.Now().Before(e.expiresAt) {
		return false
	}
	m.entries[key] = ttlEntry{value: value, expiresAt: time.Now().Add(ttl)}
	return true
}

func (m *ttlMap) delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
}

func (m *ttlMap) size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *ttlMap) close() {
	m.closeOnce.Do(func() {
		close(m.stopChan)
		m.wg.Wait()
	})
}

func (m *ttlMap) sweepLoop(interval time.Duration) {
	defer m.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopChan:
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

func (m *ttlMap) sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for key, e := range m.entries {
		if now.After(e.expiresAt) {
			delete(m.entries, key)
		}
	}
}
