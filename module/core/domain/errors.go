package domain

import "errors"

var (
	ErrMalformedMessage   = errors.New("malformed message")
	ErrUnknownDevice      = errors.New("unknown device")
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	ErrPersistence        = errors.New("persistence failure")
)
