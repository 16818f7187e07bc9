package services

import "sync"

// userLocks serialises state changes per user while letting different users
// proceed in parallel. Entries are dropped once nobody holds or waits on them.
type userLocks struct {
	mutex sync.Mutex
	locks map[string]*userLock
}

type userLock struct {
	sync.Mutex
	refs int
}

func newUserLocks() *userLocks {
	return &userLocks{
		locks: make(map[string]*userLock),
	}
}

// Lock blocks until the user's lock is held and returns the unlock func.
func (ul *userLocks) Lock(userID string) func() {
	ul.mutex.Lock()
	lock, ok := ul.locks[userID]
	if !ok {
		lock = &userLock{}
		ul.locks[userID] = lock
	}
	lock.refs++
	ul.mutex.Unlock()

	lock.Lock()

	return func() {
		lock.Unlock()

		ul.mutex.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(ul.locks, userID)
		}
		ul.mutex.Unlock()
	}
}

func (ul *userLocks) size() int {
	ul.mutex.Lock()
	defer ul.mutex.Unlock()
	return len(ul.locks)
}
