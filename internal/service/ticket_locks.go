package service

import "sync"

// ticketLocks serializes automation processing per ticket. Triggers for
// different tickets run concurrently; triggers for the same ticket queue up so
// rule effects are observed in firing order.
type ticketLocks struct {
	mu    sync.Mutex
	locks map[string]*ticketLock
}

type ticketLock struct {
	mu   sync.Mutex
	refs int
}

func newTicketLocks() *ticketLocks {
	return &ticketLocks{locks: map[string]*ticketLock{}}
}

// Lock acquires the lock for ticketID and returns its release func.
func (t *ticketLocks) Lock(ticketID string) func() {
	t.mu.Lock()
	entry, ok := t.locks[ticketID]
	if !ok {
		entry = &ticketLock{}
		t.locks[ticketID] = entry
	}
	entry.refs++
	t.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		t.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(t.locks, ticketID)
		}
		t.mu.Unlock()
	}
}
