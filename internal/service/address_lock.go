package service

import (
	"sync"
)

// AddressLocker serializes work per chat address within this process.
// Entries are reference counted and dropped on the last Unlock, so the map
// only holds addresses that are currently in use.
type AddressLocker struct {
	mu      sync.Mutex
	entries map[string]*addressEntry
}

type addressEntry struct {
	mu   sync.Mutex
	refs int
}

func NewAddressLocker() *AddressLocker {
	return &AddressLocker{entries: make(map[string]*addressEntry)}
}

// Lock blocks until address is free and returns the matching unlock func
func (l *AddressLocker) Lock(address string) func() {
	l.mu.Lock()
	entry, ok := l.entries[address]
	if !ok {
		entry = &addressEntry{}
		l.entries[address] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			entry.mu.Unlock()

			l.mu.Lock()
			entry.refs--
			if entry.refs == 0 {
				delete(l.entries, address)
			}
			l.mu.Unlock()
		})
	}
}

// Size reports how many addresses are currently held or awaited
func (l *AddressLocker) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
