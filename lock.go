// OS-level file locking between builders and readers.
//
// A build holds an exclusive lock on its destination while writing, and
// Open holds a shared lock while loading. A reader therefore never sees a
// half-written archive produced by a build on the same host, and two builds
// to the same destination are serialised instead of interleaved.
package cartridge

import (
	"fmt"

	"github.com/gofrs/flock"
)

// LockMode selects shared (read) or exclusive (write) locking.
type LockMode int

const (
	LockShared LockMode = iota
	LockExclusive
)

// fileLock is a held lock; release is idempotent.
type fileLock struct {
	fl *flock.Flock
}

// lockFile blocks until path is locked in the requested mode. The file
// must already exist.
func lockFile(path string, mode LockMode) (*fileLock, error) {
	fl := flock.New(path)
	var err error
	if mode == LockExclusive {
		err = fl.Lock()
	} else {
		err = fl.RLock()
	}
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	return &fileLock{fl: fl}, nil
}

func (l *fileLock) release() error {
	if l == nil || !l.fl.Locked() && !l.fl.RLocked() {
		return nil
	}
	return l.fl.Unlock()
}
