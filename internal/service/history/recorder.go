package history

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/oshokin/alert-relay/internal/domain/alert"
	"github.com/oshokin/alert-relay/internal/logger"
)

// DefaultLimit is used when no positive limit is given.
const DefaultLimit = 50

// Store is the part of the remote repository the recorder needs.
type Store interface {
	AppendHistory(ctx context.Context, entry *alert.HistoryEntry) error
	ListHistory(ctx context.Context) ([]*alert.HistoryEntry, int, error)
}

// Recorder appends resolutions to the shared history and reads them back.
type Recorder struct {
	// store is the remote history collection.
	store Store
	// limit caps Recent when the caller passes no limit.
	limit int
}

// errEntryRequired is returned when Append gets nil.
var errEntryRequired = errors.New("history entry must be provided")

// NewRecorder returns a Recorder over store.
func NewRecorder(store Store, limit int) *Recorder {
	if limit <= 0 {
		limit = DefaultLimit
	}

	return &Recorder{
		store: store,
		limit: limit,
	}
}

// Append records one resolution.
func (r *Recorder) Append(ctx context.Context, entry *alert.HistoryEntry) error {
	if entry == nil {
		return errEntryRequired
	}

	if err := r.store.AppendHistory(ctx, entry); err != nil {
		return fmt.Errorf("append history: %w", err)
	}

	logger.InfoKV(ctx, "History recorded",
		"raised_by", entry.RaisedBy,
		"resolved_by", entry.ResolvedBy,
		"kind", entry.Kind.String(),
	)

	return nil
}

// Recent returns up to limit entries, newest first. A limit of zero or less
// uses the recorder default. Malformed records are skipped.
func (r *Recorder) Recent(ctx context.Context, limit int) ([]*alert.HistoryEntry, error) {
	if limit <= 0 {
		limit = r.limit
	}

	entries, skipped, err := r.store.ListHistory(ctx)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}

	if skipped > 0 {
		logger.WarnKV(ctx, "Skipped malformed history records", "count", skipped)
	}

	slices.SortStableFunc(entries, func(a, b *alert.HistoryEntry) int {
		if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
			return c
		}

		return strings.Compare(a.RaisedBy+a.ResolvedBy, b.RaisedBy+b.ResolvedBy)
	})

	if len(entries) > limit {
		entries = entries[:limit]
	}

	return entries, nil
}
