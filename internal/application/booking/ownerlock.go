package booking

import (
	"context"
	"sync"
)

// ownerLocks hands out one lock per owner id. Entries are dropped once no
// caller holds or waits on them.
type ownerLocks struct {
	mu sync.Mutex
	m  map[string]*ownerLock
}

type ownerLock struct {
	ch   chan struct{}
	refs int
}

func (l *ownerLocks) acquire(ctx context.Context, ownerID string) (func(), error) {
	l.mu.Lock()
	if l.m == nil {
		l.m = make(map[string]*ownerLock)
	}
	ol, ok := l.m[ownerID]
	if !ok {
		ol = &ownerLock{ch: make(chan struct{}, 1)}
		l.m[ownerID] = ol
	}
	ol.refs++
	l.mu.Unlock()

	select {
	case ol.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(ownerID, ol)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-ol.ch
			l.release(ownerID, ol)
		})
	}, nil
}

func (l *ownerLocks) release(ownerID string, ol *ownerLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ol.refs--
	if ol.refs == 0 {
		delete(l.m, ownerID)
	}
}

func (l *ownerLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}
