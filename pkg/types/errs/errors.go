package errs

import "errors"

var (
	ErrRecordNotFound   = errors.New("record not found")
	ErrNotDeadLetter    = errors.New("event is not dead-lettered")
	ErrUnknownProvider  = errors.New("unknown webhook provider")
	ErrMissingSignature = errors.New("missing webhook signature")
	ErrInvalidSignature = errors.New("invalid webhook signature")
)
