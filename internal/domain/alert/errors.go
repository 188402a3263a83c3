package alert

import "errors"

var (
	// ErrInvalidTransition is returned when an operation is not allowed from the current phase or role.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrProfileNotSelected is returned when no profile has been chosen on this device yet.
	ErrProfileNotSelected = errors.New("profile not selected")
	// ErrEmptyName is returned when a receiver profile is created without a display name.
	ErrEmptyName = errors.New("display name must not be empty")
	// ErrUnknownRole is returned for role names other than sender and receiver.
	ErrUnknownRole = errors.New("unknown role")
	// ErrMalformedRecord is returned for history records that are partial or unparsable.
	ErrMalformedRecord = errors.New("malformed history record")
)
