// Package fsutil provides the atomic write-then-rename primitive shared by
// every on-disk store in this module, and the small set of typed storage
// errors they return.
package fsutil

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Op classifies a storage failure by the operation that failed.
type Op string

const (
	OpRead  Op = "read"
	OpWrite Op = "write"
	OpParse Op = "parse"
)

// StorageError wraps a failure with the operation and path involved, so
// callers can log or branch on it without parsing strings.
type StorageError struct {
	Op      Op
	Path    string
	Message string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Op, e.Path, e.Message)
}

func (e *StorageError) Unwrap() error { return e.Err }

func NewStorageError(op Op, path string, err error) *StorageError {
	return &StorageError{Op: op, Path: path, Message: err.Error(), Err: err}
}

// WriteJSONAtomic marshals v and writes it to path using a temp-file-then-
// rename so readers never observe a partial write. The parent directory is
// created if needed.
func WriteJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return NewStorageError(OpWrite, path, err)
	}
	data = append(data, '\n')
	return WriteBytesAtomic(path, data)
}

// WriteBytesAtomic writes raw bytes to path atomically.
func WriteBytesAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return NewStorageError(OpWrite, path, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return NewStorageError(OpWrite, path, err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return NewStorageError(OpWrite, path, err)
	}
	if err := tmp.Close(); err != nil {
		return NewStorageError(OpWrite, path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return NewStorageError(OpWrite, path, err)
	}
	committed = true
	return nil
}

// ReadJSON reads and unmarshals path into v. ok=false (with a nil error)
// means the file did not exist — callers treat that as "not present", not
// a failure.
func ReadJSON(path string, v any) (ok bool, err error) {
	data, rerr := os.ReadFile(path)
	if rerr != nil {
		if os.IsNotExist(rerr) {
			return false, nil
		}
		return false, NewStorageError(OpRead, path, rerr)
	}
	if uerr := json.Unmarshal(data, v); uerr != nil {
		return false, NewStorageError(OpParse, path, uerr)
	}
	return true, nil
}
