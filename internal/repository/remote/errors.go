package remote

import (
	"context"
	"errors"
	"fmt"
	"net"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrorKind classifies remote failures.
type ErrorKind int

// Failure kinds.
const (
	// KindConnectionLost means the remote could not be reached.
	KindConnectionLost ErrorKind = iota
	// KindTimeout means the call exceeded its deadline.
	KindTimeout
	// KindServerError means the remote answered with a failure or an unusable body.
	KindServerError
)

var (
	// ErrTimeout matches errors of KindTimeout via errors.Is.
	ErrTimeout = errors.New("timeout")
	// ErrConnectionLost matches errors of KindConnectionLost via errors.Is.
	ErrConnectionLost = errors.New("connection lost")
	// ErrServerError matches errors of KindServerError via errors.Is.
	ErrServerError = errors.New("server error")
)

// String returns the short reason shown to operators.
func (k ErrorKind) String() string {
	return k.sentinel().Error()
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindTimeout:
		return ErrTimeout
	case KindServerError:
		return ErrServerError
	default:
		return ErrConnectionLost
	}
}

// NetworkError is returned by every remote operation.
type NetworkError struct {
	// Kind classifies the failure.
	Kind ErrorKind
	// Op names the failed operation, e.g. "fetch alert".
	Op string
	// Err is the underlying cause.
	Err error
}

// Error implements error.
func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

// Unwrap exposes both the kind sentinel and the cause to errors.Is and errors.As.
func (e *NetworkError) Unwrap() []error {
	return []error{e.Kind.sentinel(), e.Err}
}

// Reason returns the short failure reason for err: "timeout",
// "connection lost" or "server error".
func Reason(err error) string {
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return netErr.Kind.String()
	}

	return classify(err).String()
}

// wrap classifies a transport failure of op.
func wrap(op string, err error) error {
	return &NetworkError{
		Kind: classify(err),
		Op:   op,
		Err:  err,
	}
}

// serverError reports an unusable answer of op.
func serverError(op string, err error) error {
	return &NetworkError{
		Kind: KindServerError,
		Op:   op,
		Err:  err,
	}
}

// classify maps transport failures onto kinds. Anything that is neither a
// deadline nor a server-side status is treated as a lost connection.
func classify(err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	if s, ok := status.FromError(err); ok {
		switch s.Code() {
		case codes.DeadlineExceeded:
			return KindTimeout
		case codes.Unavailable, codes.Canceled:
			return KindConnectionLost
		case codes.OK:
		default:
			return KindServerError
		}
	}

	return KindConnectionLost
}
