// Package storage provides file-backed persistence primitives: atomic
// JSON record writes and advisory file locking. Every state mutation in
// agentflow goes through these so a killed process never leaves a
// half-written record behind.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

var (
	// ErrNotFound is returned when a record does not exist on disk.
	ErrNotFound = errors.New("record not found")

	// ErrAlreadyExists is returned when writing a write-once record
	// that is already present.
	ErrAlreadyExists = errors.New("record already exists")

	// ErrLockTimeout is returned when the advisory lock could not be
	// acquired within the configured window.
	ErrLockTimeout = errors.New("timed out acquiring lock")
)

const (
	recordPerm = 0600
	dirPerm    = 0700

	// lockRetryInterval is how often lock acquisition is retried.
	lockRetryInterval = 10 * time.Millisecond

	// lockStaleAge is the age after which a leftover lock file from a
	// crashed process is broken.
	lockStaleAge = 30 * time.Second
)

// WriteJSON marshals v and writes it to path atomically: the content is
// written to a temp file in the same directory, fsynced, then renamed
// over the destination.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	return writeAtomic(path, data)
}

// WriteJSONExcl behaves like WriteJSON but fails with ErrAlreadyExists
// if path already exists. Used for write-once records (checkpoint
// snapshots).
func WriteJSONExcl(path string, v any) error {
	if _, err := os.Lstat(path); err == nil {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, path)
	}
	return WriteJSON(path, v)
}

// ReadJSON reads the record at path into v. A missing file is reported
// as ErrNotFound.
func ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return fmt.Errorf("failed to read record: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode record %s: %w", path, err)
	}
	return nil
}

// WriteString writes raw string content to path atomically.
func WriteString(path, content string) error {
	return writeAtomic(path, []byte(content))
}

// ReadString reads raw string content from path. A missing file is
// reported as ErrNotFound.
func ReadString(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

// Remove deletes the record at path. Missing files are reported as
// ErrNotFound so callers can decide whether absence matters.
func Remove(path string) error {
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}

// writeAtomic writes data to a temp file next to path and renames it
// into place. Rename within one directory is atomic on POSIX systems.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, recordPerm); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Lock is an advisory lock backed by an O_EXCL lock file. It serializes
// read-modify-write sequences across concurrent CLI invocations.
type Lock struct {
	path string
}

// AcquireLock obtains the advisory lock at path, retrying until timeout.
// Lock files older than lockStaleAge are treated as leftovers from a
// crashed process and broken.
func AcquireLock(path string, timeout time.Duration) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	deadline := time.Now().Add(timeout)
	for {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, recordPerm)
		if err == nil {
			fmt.Fprintf(f, "%d\n", os.Getpid())
			f.Close()
			return &Lock{path: path}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("failed to create lock file: %w", err)
		}

		if info, statErr := os.Stat(path); statErr == nil && time.Since(info.ModTime()) > lockStaleAge {
			os.Remove(path)
			continue
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, path)
		}
		time.Sleep(lockRetryInterval)
	}
}

// Release removes the lock file. Releasing twice is harmless.
func (l *Lock) Release() error {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}
