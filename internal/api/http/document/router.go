package document

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	domain "github.com/oshokin/alert-relay/internal/domain/document"
	"github.com/oshokin/alert-relay/internal/logger"
	"github.com/oshokin/alert-relay/internal/version"
)

// MaxBodyBytes caps request bodies.
const MaxBodyBytes = 1 << 20

// Service abstracts the document operations the transport layer depends on.
type Service interface {
	Get(ctx context.Context, path string) (*structpb.Value, error)
	Put(ctx context.Context, path string, value *structpb.Value) (*structpb.Value, error)
	Patch(ctx context.Context, path string, fields *structpb.Struct) (*structpb.Value, error)
	Append(ctx context.Context, path string, value *structpb.Value) (string, error)
}

// handler serves the realtime-database style REST API.
type handler struct {
	// service provides the document tree operations.
	service Service
}

// NewRouter returns the REST router: documents under "/{path}.json",
// "/health" and "/metrics" backed by registry.
func NewRouter(service Service, registry *prometheus.Registry) *mux.Router {
	var (
		h = &handler{service: service}
		m = newMetrics(registry)
		r = mux.NewRouter()
	)

	r.Use(m.middleware)

	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "OK\n")
	}).Methods(http.MethodGet)

	r.HandleFunc("/{path:.*}.json", h.get).Methods(http.MethodGet)
	r.HandleFunc("/{path:.*}.json", h.put).Methods(http.MethodPut)
	r.HandleFunc("/{path:.*}.json", h.patch).Methods(http.MethodPatch)
	r.HandleFunc("/{path:.*}.json", h.post).Methods(http.MethodPost)

	return r
}

func (h *handler) get(w http.ResponseWriter, r *http.Request) {
	value, err := h.service.Get(r.Context(), mux.Vars(r)["path"])
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	writeMessage(r.Context(), w, http.StatusOK, value)
}

func (h *handler) put(w http.ResponseWriter, r *http.Request) {
	value := new(structpb.Value)
	if err := readMessage(w, r, value); err != nil {
		writeError(r.Context(), w, err)
		return
	}

	stored, err := h.service.Put(r.Context(), mux.Vars(r)["path"], value)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	writeMessage(r.Context(), w, http.StatusOK, stored)
}

func (h *handler) patch(w http.ResponseWriter, r *http.Request) {
	fields := new(structpb.Struct)
	if err := readMessage(w, r, fields); err != nil {
		writeError(r.Context(), w, fmt.Errorf("patch body: %w", domain.ErrNotObject))
		return
	}

	merged, err := h.service.Patch(r.Context(), mux.Vars(r)["path"], fields)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	writeMessage(r.Context(), w, http.StatusOK, merged)
}

func (h *handler) post(w http.ResponseWriter, r *http.Request) {
	value := new(structpb.Value)
	if err := readMessage(w, r, value); err != nil {
		writeError(r.Context(), w, err)
		return
	}

	key, err := h.service.Append(r.Context(), mux.Vars(r)["path"], value)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	writeMessage(r.Context(), w, http.StatusOK, &structpb.Struct{
		Fields: map[string]*structpb.Value{"name": structpb.NewStringValue(key)},
	})
}

// errBadBody marks request bodies that are not valid JSON.
var errBadBody = errors.New("invalid json body")

func readMessage(w http.ResponseWriter, r *http.Request, msg proto.Message) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: %w", errBadBody, err)
	}

	if err = protojson.Unmarshal(body, msg); err != nil {
		return fmt.Errorf("%w: %w", errBadBody, err)
	}

	return nil
}

func writeMessage(ctx context.Context, w http.ResponseWriter, code int, msg proto.Message) {
	data, err := protojson.Marshal(msg)
	if err != nil {
		logger.ErrorKV(ctx, "Failed to encode response", "error", err)
		http.Error(w, "encode response", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(code)

	if _, err = w.Write(data); err != nil {
		logger.DebugKV(ctx, "Failed to write response", "error", err)
	}
}

func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, errBadBody), errors.Is(err, domain.ErrInvalidPath), errors.Is(err, domain.ErrNotObject):
		code = http.StatusBadRequest
		message = err.Error()
	default:
		logger.ErrorKV(ctx, "Request failed", "error", err)
	}

	writeMessage(ctx, w, code, &structpb.Struct{
		Fields: map[string]*structpb.Value{"error": structpb.NewStringValue(message)},
	})
}

// metrics instruments every request.
type metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newMetrics(registerer prometheus.Registerer) *metrics {
	m := &metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "alert_relay_docserver_requests_total",
			Help: "REST requests served, by method and status code.",
		}, []string{"method", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "alert_relay_docserver_request_duration_seconds",
			Help:    "REST request latency, by method.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
	}

	buildInfo := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "alert_relay_build_info",
		Help: "Build metadata of the running doc server; always 1.",
	}, []string{"version", "commit"})
	buildInfo.WithLabelValues(version.Short(), version.Commit).Set(1)

	registerer.MustRegister(m.requests, m.duration, buildInfo)

	return m
}

func (m *metrics) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var (
			started  = time.Now()
			recorder = &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		)

		next.ServeHTTP(recorder, r)

		m.requests.WithLabelValues(r.Method, strconv.Itoa(recorder.code)).Inc()
		m.duration.WithLabelValues(r.Method).Observe(time.Since(started).Seconds())
	})
}

// statusRecorder remembers the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter

	code int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.code = code
	s.ResponseWriter.WriteHeader(code)
}
