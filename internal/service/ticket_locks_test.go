package service

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTicketLocksSerializeSameTicket(t *testing.T) {
	locks := newTicketLocks()

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			release := locks.Lock("t1")
			defer release()
			mu.Lock()
			order = append(order, n)
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	assert.Len(t, order, 50)
	locks.mu.Lock()
	assert.Empty(t, locks.locks, "released locks must not leak entries")
	locks.mu.Unlock()
}

func TestTicketLocksIndependentTickets(t *testing.T) {
	locks := newTicketLocks()

	releaseA := locks.Lock("a")
	done := make(chan struct{})
	go func() {
		releaseB := locks.Lock("b")
		releaseB()
		close(done)
	}()
	<-done
	releaseA()
}
