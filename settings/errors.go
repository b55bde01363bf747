package settings

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("setting not found")
	ErrClosed           = errors.New("settings store closed")
	ErrNotWritable      = errors.New("tx not writable")
	ErrChecksumMismatch = errors.New("settings checksum mismatch")
)

// ValueError reports a setting whose value could not be encoded or decoded.
type ValueError struct {
	Name string
	Msg  string
	Err  error
}

func valueErrf(name string, err error, format string, args ...any) error {
	return &ValueError{name, fmt.Sprintf(format, args...), err}
}

func (e *ValueError) Unwrap() error {
	return e.Err
}

func (e *ValueError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Name, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Name, e.Msg)
}
