package persistence

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// ErrDataDirInUse is returned when another engine instance already holds
// the lock on a data directory, per spec §6 ("the directory is exclusive
// to one engine instance; a lock file prevents concurrent opens").
var ErrDataDirInUse = errors.New("persistence: data directory is in use by another instance")

const lockFileName = "LOCK"

// Lock is an exclusive claim on a data directory, backed by a lock file
// created with O_EXCL. Generalized from channeldb/db.go's single-file
// exclusive-open discipline into an explicit, inspectable lock file.
type Lock struct {
	path string
}

// AcquireLock creates the lock file under dataDir, failing with
// ErrDataDirInUse if one already exists.
func AcquireLock(dataDir string) (*Lock, error) {
	path := filepath.Join(dataDir, lockFileName)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		if os.IsExist(err) {
			return nil, ErrDataDirInUse
		}
		return nil, fmt.Errorf("persistence: creating lock file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(strconv.Itoa(os.Getpid())); err != nil {
		return nil, fmt.Errorf("persistence: writing lock file: %w", err)
	}

	return &Lock{path: path}, nil
}

// Release removes the lock file. Safe to call once per successful
// AcquireLock.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	return os.Remove(l.path)
}
