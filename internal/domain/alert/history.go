package alert

import (
	"fmt"
	"time"
)

// ResolutionKind tells who resolved an alert.
type ResolutionKind int

const (
	// KindConfirmed means a receiver stopped the alert.
	KindConfirmed ResolutionKind = iota
	// KindCancelled means the original sender stopped their own alert.
	KindCancelled
)

// ResolutionFor picks the kind from whether the stopping device raised the alert.
func ResolutionFor(isSender bool) ResolutionKind {
	if isSender {
		return KindCancelled
	}

	return KindConfirmed
}

// String returns a human-readable kind.
func (k ResolutionKind) String() string {
	if k == KindCancelled {
		return "cancelled"
	}

	return "confirmed"
}

// HistoryEntry is the immutable audit record of one resolution.
type HistoryEntry struct {
	// Timestamp is when the resolution was recorded.
	Timestamp time.Time
	// RaisedBy is the raiser of the resolved alert.
	RaisedBy string
	// ResolvedBy is the device that stopped it.
	ResolvedBy string
	// Kind is Confirmed or Cancelled.
	Kind ResolutionKind
}

// Describe renders the entry the way the history view shows it.
func (e *HistoryEntry) Describe() string {
	verb := "CONFIRMED"
	if e.Kind == KindCancelled {
		verb = "CANCELLED"
	}

	return fmt.Sprintf("%s  Alert from %s - %s by %s",
		e.Timestamp.Format(TimestampLayout), e.RaisedBy, verb, e.ResolvedBy)
}
