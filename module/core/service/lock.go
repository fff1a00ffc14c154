package service

import "sync"

// deviceLocks hands out one mutex per device id. Entries are reference
// counted and dropped once nobody holds or waits for them.
type deviceLocks struct {
	mu    sync.Mutex
	locks map[string]*deviceLock
}

type deviceLock struct {
	mu   sync.Mutex
	refs int
}

func newDeviceLocks() *deviceLocks {
	return &deviceLocks{locks: make(map[string]*deviceLock)}
}

// Lock blocks until deviceID is free and returns the matching unlock.
func (d *deviceLocks) Lock(deviceID string) func() {
	d.mu.Lock()
	l, ok := d.locks[deviceID]
	if !ok {
		l = &deviceLock{}
		d.locks[deviceID] = l
	}
	l.refs++
	d.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		d.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(d.locks, deviceID)
		}
		d.mu.Unlock()
	}
}

func (d *deviceLocks) size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.locks)
}
