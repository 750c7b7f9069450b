package host

import (
	"errors"
	"fmt"
)

var (
	// ErrRead marks failures reading a backing file.
	ErrRead = errors.New("read failed")
	// ErrWrite marks failures writing a backing file.
	ErrWrite = errors.New("write failed")
	// ErrNotText indicates the file content is not text.
	ErrNotText = errors.New("not a text file")
	// ErrTooLarge indicates the file exceeds the read limit.
	ErrTooLarge = errors.New("file too large")
	// ErrIsDirectory indicates the reference points at a directory.
	ErrIsDirectory = errors.New("is a directory")
	// ErrWrongHost indicates a reference created by another host model.
	ErrWrongHost = errors.New("reference belongs to another host")
)

// ReadError reports a failed read of a backing file.
type ReadError struct {
	Ref FileRef
	Err error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Ref.Name, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// Is matches ErrRead.
func (e *ReadError) Is(target error) bool { return target == ErrRead }

// WriteError reports a failed write of a backing file.
type WriteError struct {
	Ref FileRef
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Ref.Name, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Is matches ErrWrite.
func (e *WriteError) Is(target error) bool { return target == ErrWrite }
