package ws2md

import (
	"errors"
	"fmt"
)

// ErrMalformedInput is matched by every classification failure
var ErrMalformedInput = errors.New("malformed wordstar input")

// MalformedInputError reports the first position the classifier could not
// assign to any line rule
type MalformedInputError struct {
	// Byte offset in the source file (header included)
	Offset int
	// 1-based line and column (in bytes) of the offending byte, counted after the header
	Line   int
	Column int
	// The rule set that was exhausted, e.g. "normal line"
	Rule string
	// The offending byte
	Byte byte
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("malformed input at offset %d (line %d, column %d): unexpected byte 0x%02X in %s",
		e.Offset, e.Line, e.Column, e.Byte, e.Rule)
}

func (e *MalformedInputError) Is(target error) bool {
	return target == ErrMalformedInput
}
