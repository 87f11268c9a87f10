package xarm

import "errors"

// Sentinel errors returned by Controller operations.
var (
	ErrAngleOutOfRange = errors.New("angle out of range")
	ErrInvalidPayload  = errors.New("invalid response payload")
	ErrRetryLimit      = errors.New("retry limit exceeded")
)
