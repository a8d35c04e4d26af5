package fstore

import (
	"fmt"
	"path/filepath"

	"github.com/ValentinKolb/sDB/lib/common"
	"github.com/ValentinKolb/sDB/lib/store"
	"github.com/gofrs/flock"
	"github.com/puzpuzpuz/xsync/v3"
)

// openPaths holds the absolute file path of every store opened by this process
var openPaths = xsync.NewMapOf[string, struct{}]()

// fileLock guards one store file for the lifetime of a store
type fileLock struct {
	path  string
	flock *flock.Flock
}

// acquireLock registers the store path in this process and takes the advisory lock on disk.
func acquireLock(config common.StoreConfig) (*fileLock, error) {
	path, err := filepath.Abs(config.FilePath())
	if err != nil {
		return nil, store.WrapError(store.RetCIOError, "resolve store path", err)
	}

	if _, loaded := openPaths.LoadOrStore(path, struct{}{}); loaded {
		return nil, store.NewError(store.RetCStoreLocked, fmt.Sprintf("%s is already open in this process", path))
	}

	fl := flock.New(config.LockPath())
	ok, err := fl.TryLock()
	if err != nil {
		openPaths.Delete(path)
		return nil, store.WrapError(store.RetCIOError, "lock store file", err)
	}
	if !ok {
		openPaths.Delete(path)
		return nil, store.NewError(store.RetCStoreLocked, fmt.Sprintf("%s is locked by another process", path))
	}

	return &fileLock{path: path, flock: fl}, nil
}

// release drops the advisory lock and the registration. The lock file itself is kept.
func (l *fileLock) release() error {
	defer openPaths.Delete(l.path)
	return l.flock.Unlock()
}
