package remote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oshokin/alert-relay/internal/config"
	"github.com/oshokin/alert-relay/internal/domain/alert"
)

// Repository reads and writes the shared alert document and history collection.
// Every error it returns is a *NetworkError.
type Repository interface {
	// Fetch reads the alert document. A missing document reads as inactive.
	Fetch(ctx context.Context) (*alert.RemoteState, error)
	// Write replaces the alert document fields with state.
	Write(ctx context.Context, state *alert.RemoteState) error
	// AppendHistory adds one entry to the history collection.
	AppendHistory(ctx context.Context, entry *alert.HistoryEntry) error
	// ListHistory returns every well-formed history entry in no particular
	// order together with the number of malformed records skipped.
	ListHistory(ctx context.Context) ([]*alert.HistoryEntry, int, error)
}

// Client is a Repository bound to a transport that must be closed.
type Client interface {
	Repository
	Close() error
}

// Option configures repository behaviour.
type Option func(*options)

// options are shared by every transport.
type options struct {
	// callTimeout bounds each remote call.
	callTimeout time.Duration
	// location is used to read zone-less history timestamps.
	location *time.Location
}

// WithCallTimeout sets a default timeout for remote calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(o *options) {
		if timeout > 0 {
			o.callTimeout = timeout
		}
	}
}

// WithLocation sets the zone history timestamps are read in.
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		if loc != nil {
			o.location = loc
		}
	}
}

var (
	// errConfigRequired is returned when Open gets no configuration.
	errConfigRequired = errors.New("configuration must be provided")
	// errURLRequired is returned when an HTTP endpoint is missing.
	errURLRequired = errors.New("document and history urls must be provided")
	// errAddressRequired is returned when the gRPC address is missing.
	errAddressRequired = errors.New("address must be provided")
)

// Open builds the client selected by cfg.Transport.
//
//nolint:ireturn,nolintlint // The transport is chosen at runtime.
func Open(_ context.Context, cfg *config.Config) (Client, error) {
	if cfg == nil {
		return nil, errConfigRequired
	}

	switch cfg.Transport {
	case config.TransportGRPC:
		repo, err := DialGRPC(cfg.ServerAddress, WithCallTimeout(cfg.Timeout))
		if err != nil {
			return nil, err
		}

		return repo, nil
	case config.TransportHTTP, "":
		repo, err := NewHTTPRepository(cfg.DocumentURL, cfg.HistoryURL, WithCallTimeout(cfg.Timeout))
		if err != nil {
			return nil, err
		}

		return repo, nil
	default:
		return nil, fmt.Errorf("unsupported transport %q", cfg.Transport)
	}
}

func newOptions(opts []Option) options {
	result := options{
		callTimeout: config.DefaultTimeout,
		location:    time.Local,
	}

	for _, opt := range opts {
		opt(&result)
	}

	return result
}

// callContext returns a context with the call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (o *options) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, o.callTimeout)
}
