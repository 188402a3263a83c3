package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/oshokin/alert-relay/internal/domain/alert"
	"github.com/oshokin/alert-relay/internal/logger"
	"github.com/oshokin/alert-relay/internal/version"
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 4 << 20

// errUnexpectedStatus wraps HTTP answers with a status of 400 or above.
var errUnexpectedStatus = errors.New("unexpected http status")

// HTTPRepository talks to a realtime-database style JSON REST API:
// GET reads a document, PATCH merges fields into it and POST appends
// to a collection under a generated key.
type HTTPRepository struct {
	options

	// client performs the requests.
	client *http.Client
	// documentURL addresses the alert document.
	documentURL string
	// historyURL addresses the history collection.
	historyURL string
}

// NewHTTPRepository returns a repository for the given endpoints.
func NewHTTPRepository(documentURL, historyURL string, opts ...Option) (*HTTPRepository, error) {
	return NewHTTPRepositoryWithClient(http.DefaultClient, documentURL, historyURL, opts...)
}

// NewHTTPRepositoryWithClient is NewHTTPRepository with a caller-provided client.
func NewHTTPRepositoryWithClient(
	client *http.Client,
	documentURL string,
	historyURL string,
	opts ...Option,
) (*HTTPRepository, error) {
	if strings.TrimSpace(documentURL) == "" || strings.TrimSpace(historyURL) == "" {
		return nil, errURLRequired
	}

	if client == nil {
		client = http.DefaultClient
	}

	return &HTTPRepository{
		options:     newOptions(opts),
		client:      client,
		documentURL: documentURL,
		historyURL:  historyURL,
	}, nil
}

// Close releases idle keep-alive connections.
func (r *HTTPRepository) Close() error {
	r.client.CloseIdleConnections()

	return nil
}

// Fetch reads the alert document.
func (r *HTTPRepository) Fetch(ctx context.Context) (*alert.RemoteState, error) {
	const op = "fetch alert"

	body, status, err := r.do(ctx, op, http.MethodGet, r.documentURL, nil)
	if err != nil {
		return nil, err
	}

	if status == http.StatusNotFound {
		return alert.Inactive(), nil
	}

	state, err := alert.DecodeDocument(body)
	if err != nil {
		return nil, serverError(op, err)
	}

	return state, nil
}

// Write merges state into the alert document.
func (r *HTTPRepository) Write(ctx context.Context, state *alert.RemoteState) error {
	const op = "write alert"

	payload, err := json.Marshal(alert.DocumentFromState(state))
	if err != nil {
		return serverError(op, err)
	}

	_, _, err = r.do(ctx, op, http.MethodPatch, r.documentURL, payload)

	return err
}

// AppendHistory posts one entry to the history collection.
func (r *HTTPRepository) AppendHistory(ctx context.Context, entry *alert.HistoryEntry) error {
	const op = "append history"

	payload, err := json.Marshal(alert.RecordFromEntry(entry))
	if err != nil {
		return serverError(op, err)
	}

	_, _, err = r.do(ctx, op, http.MethodPost, r.historyURL, payload)

	return err
}

// ListHistory reads the whole history collection.
func (r *HTTPRepository) ListHistory(ctx context.Context) ([]*alert.HistoryEntry, int, error) {
	const op = "list history"

	body, status, err := r.do(ctx, op, http.MethodGet, r.historyURL, nil)
	if err != nil {
		return nil, 0, err
	}

	if status == http.StatusNotFound {
		return nil, 0, nil
	}

	entries, skipped, err := alert.DecodeHistory(body, r.location)
	if err != nil {
		return nil, 0, serverError(op, err)
	}

	return entries, skipped, nil
}

// do performs one request and returns the body and status. A 404 is
// returned as-is so readers can treat it as an absent document.
func (r *HTTPRepository) do(
	ctx context.Context,
	op string,
	method string,
	url string,
	payload []byte,
) ([]byte, int, error) {
	callCtx, cancel := r.callContext(ctx)
	defer cancel()

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(callCtx, method, url, reader)
	if err != nil {
		return nil, 0, serverError(op, err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, 0, wrap(op, err)
	}

	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			logger.DebugKV(ctx, "Failed to close response body", "op", op, "error", closeErr)
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, 0, wrap(op, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound && method == http.MethodGet:
		return nil, resp.StatusCode, nil
	case resp.StatusCode >= http.StatusBadRequest:
		return nil, resp.StatusCode, serverError(op, fmt.Errorf("%w: %s: %s",
			errUnexpectedStatus, resp.Status, strings.TrimSpace(string(body))))
	default:
		return body, resp.StatusCode, nil
	}
}
