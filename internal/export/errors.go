package export

import (
	"errors"
	"fmt"
)

var (
	// ErrDecode matches any DecodeError.
	ErrDecode = errors.New("decode export")
	// ErrUnsupportedFormat matches any UnsupportedFormatError.
	ErrUnsupportedFormat = errors.New("unsupported or unknown format")
)

// DecodeError reports input that is not a JSON array of export records.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode export: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

// UnsupportedFormatError reports a document no adapter accepts, either because
// detection failed or because an explicit override named an unknown adapter.
type UnsupportedFormatError struct {
	Format Format
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported or unknown format: %s", e.Format)
}

func (e *UnsupportedFormatError) Is(target error) bool { return target == ErrUnsupportedFormat }
