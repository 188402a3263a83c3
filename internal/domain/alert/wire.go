package alert

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TimestampLayout is the history timestamp format shared by every participant.
const TimestampLayout = "2006-01-02 15:04:05"

// History "tip" values on the wire.
const (
	TipConfirmed = "confirmat"
	TipCancelled = "anulat"
)

// Document is the wire form of the shared alert document.
type Document struct {
	// Status is true while an alert is active.
	Status bool `json:"status"`
	// Cine is the raiser's display name.
	Cine string `json:"cine"`
}

// DocumentFromState converts a RemoteState into its wire form.
// Inactive states always carry an empty raiser.
func DocumentFromState(state *RemoteState) Document {
	normalized := state.Clone()

	return Document{
		Status: normalized.Active,
		Cine:   normalized.RaisedBy,
	}
}

// State converts the wire document into a RemoteState.
func (d *Document) State() *RemoteState {
	return (&RemoteState{
		Active:   d.Status,
		RaisedBy: d.Cine,
	}).Clone()
}

// DecodeDocument parses a document body. An empty body or JSON null means
// the document does not exist yet and is read as inactive.
func DecodeDocument(data []byte) (*RemoteState, error) {
	if isNull(data) {
		return Inactive(), nil
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode alert document: %w", err)
	}

	return doc.State(), nil
}

// HistoryRecord is the wire form of one history entry.
type HistoryRecord struct {
	// Timestamp is formatted with TimestampLayout.
	Timestamp string `json:"timestamp"`
	// Expeditor is the raiser.
	Expeditor string `json:"expeditor"`
	// ConfirmatDe is the resolver.
	ConfirmatDe string `json:"confirmat_de"`
	// Tip is TipConfirmed or TipCancelled.
	Tip string `json:"tip"`
}

// RecordFromEntry converts a HistoryEntry into its wire form.
func RecordFromEntry(entry *HistoryEntry) HistoryRecord {
	tip := TipConfirmed
	if entry.Kind == KindCancelled {
		tip = TipCancelled
	}

	return HistoryRecord{
		Timestamp:   entry.Timestamp.Format(TimestampLayout),
		Expeditor:   entry.RaisedBy,
		ConfirmatDe: entry.ResolvedBy,
		Tip:         tip,
	}
}

// Entry validates the record and converts it into a HistoryEntry.
// Timestamps carry no zone on the wire and are read in loc.
func (r *HistoryRecord) Entry(loc *time.Location) (*HistoryEntry, error) {
	if loc == nil {
		loc = time.Local
	}

	ts, err := time.ParseInLocation(TimestampLayout, strings.TrimSpace(r.Timestamp), loc)
	if err != nil {
		return nil, fmt.Errorf("timestamp %q: %w", r.Timestamp, ErrMalformedRecord)
	}

	if strings.TrimSpace(r.Expeditor) == "" || strings.TrimSpace(r.ConfirmatDe) == "" {
		return nil, fmt.Errorf("missing raiser or resolver: %w", ErrMalformedRecord)
	}

	var kind ResolutionKind

	switch r.Tip {
	case TipConfirmed:
		kind = KindConfirmed
	case TipCancelled:
		kind = KindCancelled
	default:
		return nil, fmt.Errorf("tip %q: %w", r.Tip, ErrMalformedRecord)
	}

	return &HistoryEntry{
		Timestamp:  ts,
		RaisedBy:   r.Expeditor,
		ResolvedBy: r.ConfirmatDe,
		Kind:       kind,
	}, nil
}

// DecodeHistory parses a whole history collection. The collection is either a
// JSON object keyed by generated names or a JSON array. Records that fail to
// decode or validate are skipped and counted; only a collection that is not
// an object, array or null is an error.
func DecodeHistory(data []byte, loc *time.Location) ([]*HistoryEntry, int, error) {
	if isNull(data) {
		return nil, 0, nil
	}

	var (
		trimmed = bytes.TrimSpace(data)
		raw     []json.RawMessage
	)

	switch trimmed[0] {
	case '{':
		var keyed map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &keyed); err != nil {
			return nil, 0, fmt.Errorf("decode history collection: %w", err)
		}

		raw = make([]json.RawMessage, 0, len(keyed))
		for _, item := range keyed {
			raw = append(raw, item)
		}
	case '[':
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, 0, fmt.Errorf("decode history collection: %w", err)
		}
	default:
		return nil, 0, fmt.Errorf("decode history collection: unexpected %q: %w", trimmed[:1], ErrMalformedRecord)
	}

	var (
		entries = make([]*HistoryEntry, 0, len(raw))
		skipped int
	)

	for _, item := range raw {
		var record HistoryRecord
		if isNull(item) || json.Unmarshal(item, &record) != nil {
			skipped++
			continue
		}

		entry, err := record.Entry(loc)
		if err != nil {
			skipped++
			continue
		}

		entries = append(entries, entry)
	}

	return entries, skipped, nil
}

// isNull reports whether a body is empty or the JSON literal null.
func isNull(data []byte) bool {
	trimmed := bytes.TrimSpace(data)

	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
