package zfsdataset

import (
	"errors"
	"fmt"
)

var (
	// "$ zfs" could not be run or it exited non-zero
	ErrSourceUnavailable = errors.New("zfs source unavailable")
	// row's column count or number parse does not match expected shape
	ErrMalformedRow = errors.New("malformed row")
)

func malformedRow(lineNumber int, format string, args ...any) error {
	return fmt.Errorf("%w: line %d: %s", ErrMalformedRow, lineNumber, fmt.Sprintf(format, args...))
}
