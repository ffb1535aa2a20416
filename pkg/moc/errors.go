package moc

import (
	"errors"
	"fmt"
)

// Stream errors.
var (
	ErrInvalidMagic        = errors.New("invalid model magic: expected 'moc'")
	ErrUnsupportedVersion  = errors.New("unsupported model format version")
	ErrEOF                 = errors.New("unexpected end of model data")
	ErrUnsupportedClass    = errors.New("unsupported object class")
	ErrUnresolvedReference = errors.New("unresolved object reference")
	ErrUnexpectedObject    = errors.New("unexpected object type")
	ErrRollback            = errors.New("rollback beyond start of stream")
	ErrUnencodable         = errors.New("value cannot be encoded")
)

// VersionError reports a stream whose declared version is outside the
// supported range.
type VersionError struct {
	Version int
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("%s: %d (supported %d..%d)", ErrUnsupportedVersion, e.Version, VersionInitial, VersionCurrent)
}

func (e *VersionError) Unwrap() error { return ErrUnsupportedVersion }

// ClassError reports an object tag that has no registered factory.
type ClassError struct {
	Class  int
	Offset int
}

func (e *ClassError) Error() string {
	return fmt.Sprintf("%s: class %d at offset %d", ErrUnsupportedClass, e.Class, e.Offset)
}

func (e *ClassError) Unwrap() error { return ErrUnsupportedClass }

// ReferenceError reports a back-reference to an object that was not decoded
// earlier in the same stream.
type ReferenceError struct {
	Index  int
	Loaded int
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("%s: index %d, %d objects loaded", ErrUnresolvedReference, e.Index, e.Loaded)
}

func (e *ReferenceError) Unwrap() error { return ErrUnresolvedReference }
