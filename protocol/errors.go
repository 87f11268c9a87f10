package protocol

import "errors"

// Sentinel errors for frame validation failures.
var (
	ErrFraming           = errors.New("malformed frame")
	ErrSignatureMismatch = errors.New("signature mismatch")
	ErrCommandMismatch   = errors.New("command mismatch")
	ErrTruncated         = errors.New("truncated frame")
)
