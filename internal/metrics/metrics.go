// Package metrics provides Prometheus instrumentation for Photoshare.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "photoshare"

// Metrics holds all Prometheus collectors for the service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Users
	UsersRegistered prometheus.Counter
	SessionsCreated prometheus.Counter
	LoginFailures   *prometheus.CounterVec

	// Images
	UploadSlotsIssued   prometheus.Counter
	ImagesCreated       *prometheus.CounterVec
	ImagesDeleted       prometheus.Counter
	LikeOperations      *prometheus.CounterVec
	BlobDeleteFailures  prometheus.Counter
	SessionLookups *prometheus.CounterVec
}

// New creates and registers all collectors on a fresh registry together
// with the Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),

		UsersRegistered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "users_registered_total",
			Help:      "Users registered.",
		}),

		SessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_created_total",
			Help:      "Sessions created by registration or login.",
		}),

		LoginFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_failures_total",
			Help:      "Failed logins by reason.",
		}, []string{"reason"}),

		UploadSlotsIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_slots_issued_total",
			Help:      "Presigned upload slots issued.",
		}),

		ImagesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "images_created_total",
			Help:      "Image records created by visibility.",
		}, []string{"visibility"}),

		ImagesDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "images_deleted_total",
			Help:      "Image records deleted.",
		}),

		LikeOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "like_operations_total",
			Help:      "Like and unlike operations.",
		}, []string{"action"}),

		BlobDeleteFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blob_delete_failures_total",
			Help:      "Blob deletions that failed after an image was deleted.",
		}),

		SessionLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_lookups_total",
			Help:      "Session resolutions by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.UsersRegistered,
		m.SessionsCreated,
		m.LoginFailures,
		m.UploadSlotsIssued,
		m.ImagesCreated,
		m.ImagesDeleted,
		m.LikeOperations,
		m.BlobDeleteFailures,
		m.SessionLookups,
	)

	return m
}

// Registry returns the registry holding all collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the HTTP handler exposing the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordRegistration records a new user and its first session.
func (m *Metrics) RecordRegistration() {
	if m == nil {
		return
	}
	m.UsersRegistered.Inc()
	m.SessionsCreated.Inc()
}

// RecordLogin records a successful login.
func (m *Metrics) RecordLogin() {
	if m == nil {
		return
	}
	m.SessionsCreated.Inc()
}

// RecordLoginFailure records a failed login with a short reason label.
func (m *Metrics) RecordLoginFailure(reason string) {
	if m == nil {
		return
	}
	m.LoginFailures.WithLabelValues(reason).Inc()
}

// RecordUploadSlots records issued presigned slots.
func (m *Metrics) RecordUploadSlots(n int) {
	if m == nil {
		return
	}
	m.UploadSlotsIssued.Add(float64(n))
}

// RecordImageCreated records a new image record.
func (m *Metrics) RecordImageCreated(public bool) {
	if m == nil {
		return
	}
	visibility := "private"
	if public {
		visibility = "public"
	}
	m.ImagesCreated.WithLabelValues(visibility).Inc()
}

// RecordImageDeleted records a deleted image record.
func (m *Metrics) RecordImageDeleted() {
	if m == nil {
		return
	}
	m.ImagesDeleted.Inc()
}

// RecordLike records a like ("like") or unlike ("unlike").
func (m *Metrics) RecordLike(action string) {
	if m == nil {
		return
	}
	m.LikeOperations.WithLabelValues(action).Inc()
}

// RecordBlobDeleteFailure records a blob that could not be removed.
func (m *Metrics) RecordBlobDeleteFailure() {
	if m == nil {
		return
	}
	m.BlobDeleteFailures.Inc()
}

// RecordSessionLookup records a session resolution: "hit", "anonymous" or "error".
func (m *Metrics) RecordSessionLookup(result string) {
	if m == nil {
		return
	}
	m.SessionLookups.WithLabelValues(result).Inc()
}

// Middleware records request count and latency labelled by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := RoutePattern(r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// RoutePattern returns the matched chi route pattern, or "unmatched".
func RoutePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
