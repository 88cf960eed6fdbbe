package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "instaclone_http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	LoginSuccess = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "instaclone_login_success_total",
		Help: "Total successful login attempts",
	})

	LoginFailure = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "instaclone_login_failure_total",
		Help: "Total failed login attempts",
	}, []string{"reason"})

	SignupSuccess = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "instaclone_signup_success_total",
		Help: "Total successful signups",
	})

	ArticlesPosted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "instaclone_articles_posted_total",
		Help: "Total articles successfully posted",
	})

	CommentsPosted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "instaclone_comments_posted_total",
		Help: "Total comments successfully posted",
	})

	FilesStored = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "instaclone_files_stored_total",
		Help: "Uploaded files written to storage",
	}, []string{"category"})

	RateLimited = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "instaclone_rate_limited_total",
		Help: "Requests rejected by the rate limiter",
	}, []string{"scope"})
)

func init() {
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(LoginSuccess)
	prometheus.MustRegister(LoginFailure)
	prometheus.MustRegister(SignupSuccess)
	prometheus.MustRegister(ArticlesPosted)
	prometheus.MustRegister(CommentsPosted)
	prometheus.MustRegister(FilesStored)
	prometheus.MustRegister(RateLimited)
}

type statusRecordingWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusRecordingWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// InstrumentHandler records request timing labelled by the matched route
// template, so path parameters do not explode label cardinality.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &statusRecordingWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		route := "unmatched"
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}

		RequestDuration.WithLabelValues(r.Method, route, strconv.Itoa(rw.statusCode)).Observe(time.Since(start).Seconds())
	})
}
