package vmsg

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedBlock  = errors.New("malformed block: empty block name")
	ErrUnbalancedBlock = errors.New("unbalanced block")
	ErrMissingContent  = errors.New("message block closed without content")
	ErrDecode          = errors.New("decode content")
)

// ParseError reports the input line at which parsing was aborted.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
