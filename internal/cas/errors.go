package cas

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedContainer is returned when the structure of a .cas buffer is
	// broken. nothing decoded from such a buffer is trusted.
	ErrMalformedContainer = errors.New("malformed container")

	// ErrNameTruncated marks a name that was longer than 6 bytes. it is a
	// warning: the file is still added under the shortened name.
	ErrNameTruncated = errors.New("name truncated to 6 bytes")

	// ErrInvalidEntry is returned by Encode for an entry that cannot be
	// framed, such as a binary without addresses.
	ErrInvalidEntry = errors.New("invalid entry")
)

func malformed(offset int, format string, args ...any) error {
	return fmt.Errorf("%w at offset %d: %s", ErrMalformedContainer, offset, fmt.Sprintf(format, args...))
}
