package httpapp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/instaclone/instaclone/internal/auth"
	"github.com/instaclone/instaclone/internal/config"
	"github.com/instaclone/instaclone/internal/metrics"
	"github.com/instaclone/instaclone/internal/model"
	"github.com/instaclone/instaclone/internal/rate"
	"github.com/instaclone/instaclone/internal/service"
	"github.com/instaclone/instaclone/internal/store"
	"github.com/instaclone/instaclone/internal/upload"
)

// maxUploadBody leaves room for multipart framing around the 10 MB of files.
const maxUploadBody = upload.MaxTotalBytes + 1<<20

type Options struct {
	Service *service.Service
	Auth    *auth.Service
	Store   store.Store
	Files   upload.Storage
	Limiter rate.Limiter
	Limits  config.RateLimits
	Log     logrus.FieldLogger

	// TrustProxy takes the client address from X-Forwarded-For.
	TrustProxy bool
}

type Server struct {
	svc     *service.Service
	auth    *auth.Service
	store   store.Store
	files   upload.Storage
	limiter rate.Limiter
	limits  config.RateLimits
	log     logrus.FieldLogger
	router  *mux.Router

	trustProxy bool
}

func NewServer(opts Options) *Server {
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	if opts.Limiter == nil {
		opts.Limiter = rate.NewMemory()
	}
	s := &Server{
		svc:     opts.Service,
		auth:    opts.Auth,
		store:   opts.Store,
		files:   opts.Files,
		limiter: opts.Limiter,
		limits:  opts.Limits,
		log:     opts.Log,

		trustProxy: opts.TrustProxy,
	}
	s.router = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() *mux.Router {
	router := mux.NewRouter()
	router.Use(metrics.InstrumentHandler, s.accessLog)
	router.NotFoundHandler = s.wrap(func(w http.ResponseWriter, r *http.Request) error {
		return service.NotFound("Not found")
	})
	router.MethodNotAllowedHandler = s.wrap(func(w http.ResponseWriter, r *http.Request) error {
		return errMethodNotAllowed
	})

	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/healthz", s.wrap(s.handleHealth)).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(s.authenticate)

	api.HandleFunc("/users", s.wrap(s.handleSignup)).Methods(http.MethodPost)
	api.HandleFunc("/users/login", s.wrap(s.handleLogin)).Methods(http.MethodPost)
	api.HandleFunc("/users/me", s.wrap(s.requireAuth(s.handleMe))).Methods(http.MethodGet)
	api.HandleFunc("/users/me", s.wrap(s.requireAuth(s.handleUpdateMe))).Methods(http.MethodPut)

	api.HandleFunc("/profiles", s.wrap(s.handleSearchProfiles)).Methods(http.MethodGet)
	api.HandleFunc("/profiles/{username}", s.wrap(s.handleGetProfile)).Methods(http.MethodGet)
	api.HandleFunc("/profiles/{username}/follow", s.wrap(s.requireAuth(s.handleFollow))).Methods(http.MethodPost)
	api.HandleFunc("/profiles/{username}/follow", s.wrap(s.requireAuth(s.handleUnfollow))).Methods(http.MethodDelete)
	api.HandleFunc("/profiles/{username}/followers", s.wrap(s.handleFollowers)).Methods(http.MethodGet)
	api.HandleFunc("/profiles/{username}/following", s.wrap(s.handleFollowing)).Methods(http.MethodGet)

	api.HandleFunc("/articles", s.wrap(s.handleListArticles)).Methods(http.MethodGet)
	api.HandleFunc("/articles", s.wrap(s.requireAuth(s.handleCreateArticle))).Methods(http.MethodPost)
	api.HandleFunc("/articles/feed", s.wrap(s.requireAuth(s.handleFeed))).Methods(http.MethodGet)
	api.HandleFunc("/articles/{id:[0-9]+}", s.wrap(s.handleGetArticle)).Methods(http.MethodGet)
	api.HandleFunc("/articles/{id:[0-9]+}", s.wrap(s.requireAuth(s.handleDeleteArticle))).Methods(http.MethodDelete)
	api.HandleFunc("/articles/{id:[0-9]+}/favorite", s.wrap(s.requireAuth(s.handleFavorite))).Methods(http.MethodPost)
	api.HandleFunc("/articles/{id:[0-9]+}/favorite", s.wrap(s.requireAuth(s.handleUnfavorite))).Methods(http.MethodDelete)
	api.HandleFunc("/articles/{id:[0-9]+}/comments", s.wrap(s.handleListComments)).Methods(http.MethodGet)
	api.HandleFunc("/articles/{id:[0-9]+}/comments", s.wrap(s.requireAuth(s.handleCreateComment))).Methods(http.MethodPost)
	api.HandleFunc("/comments/{id:[0-9]+}", s.wrap(s.requireAuth(s.handleDeleteComment))).Methods(http.MethodDelete)

	api.HandleFunc("/files/{category}/{name}", s.handleFile).Methods(http.MethodGet, http.MethodHead)
	api.HandleFunc("/static/{name}", s.wrap(s.handleStatic)).Methods(http.MethodGet, http.MethodHead)

	return router
}

// ============================================================================
// ERROR FUNNEL
// ============================================================================

type handlerFunc func(w http.ResponseWriter, r *http.Request) error

var errMethodNotAllowed = errors.New("method not allowed")

type rateLimitedError struct {
	retry time.Duration
}

func (e *rateLimitedError) Error() string { return "rate limit exceeded" }

type errorBody struct {
	Message string               `json:"message"`
	Errors  []service.FieldError `json:"errors,omitempty"`
	Status  int                  `json:"status"`
}

// wrap turns a handler's returned error into the JSON error response.
func (s *Server) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := h(w, r)
		if err == nil {
			return
		}

		var se *service.Error
		var rl *rateLimitedError
		switch {
		case errors.As(err, &se):
			status := se.Kind.Status()
			writeJSON(w, status, errorBody{Message: se.Message, Errors: se.Fields, Status: status})
		case errors.As(err, &rl):
			writeRateLimit(w, rl.retry)
		case errors.Is(err, errMethodNotAllowed):
			writeJSON(w, http.StatusMethodNotAllowed, errorBody{Message: "Method not allowed", Status: http.StatusMethodNotAllowed})
		default:
			s.log.WithError(err).WithFields(logrus.Fields{
				"method": r.Method,
				"path":   r.URL.Path,
			}).Error("request failed")
			writeJSON(w, http.StatusInternalServerError, errorBody{Message: "Internal server error", Status: http.StatusInternalServerError})
		}
	}
}

// ============================================================================
// MIDDLEWARE
// ============================================================================

type ctxKey struct{}

// authenticate attaches the bearer token's user to the request context.
// A missing, invalid or orphaned token leaves the request anonymous.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := auth.BearerToken(r.Header.Get("Authorization"))
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		user, err := s.auth.Authenticate(r.Context(), token)
		if err != nil {
			if !errors.Is(err, auth.ErrInvalidToken) && !errors.Is(err, auth.ErrUnknownUser) {
				s.log.WithError(err).Warn("token lookup failed")
			}
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, user)))
	})
}

func (s *Server) requireAuth(h handlerFunc) handlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		if _, ok := currentUser(r); !ok {
			return service.Unauthenticated("Authentication required")
		}
		return h(w, r)
	}
}

func currentUser(r *http.Request) (model.User, bool) {
	user, ok := r.Context().Value(ctxKey{}).(model.User)
	return user, ok
}

// viewerID is 0 for anonymous callers.
func viewerID(r *http.Request) int64 {
	if user, ok := currentUser(r); ok {
		return user.ID
	}
	return 0
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   sw.status,
			"duration": time.Since(start).String(),
			"ip":       s.clientIP(r),
		}).Info("request")
	})
}

// allowRateLimit keys the window on the caller when authenticated and on the
// client IP otherwise.
func (s *Server) allowRateLimit(r *http.Request, action string, limit int) error {
	if limit <= 0 {
		return nil
	}
	key := fmt.Sprintf("%s:ip:%s", action, s.clientIP(r))
	if user, ok := currentUser(r); ok {
		key = fmt.Sprintf("%s:user:%d", action, user.ID)
	}
	if ok, retry := s.limiter.Allow(r.Context(), key, limit, time.Minute); !ok {
		metrics.RateLimited.WithLabelValues(action).Inc()
		return &rateLimitedError{retry: retry}
	}
	return nil
}

// clientIP uses the last X-Forwarded-For hop only when a proxy is trusted,
// since that is the entry the proxy itself appended.
func (s *Server) clientIP(r *http.Request) string {
	if s.trustProxy {
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			parts := strings.Split(forwarded, ",")
			if ip := strings.TrimSpace(parts[len(parts)-1]); ip != "" {
				return ip
			}
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// ============================================================================
// HELPERS
// ============================================================================

func readJSON(body io.ReadCloser, dest any) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		return &service.Error{Kind: service.KindValidation, Message: "Invalid JSON body", Err: err}
	}
	return nil
}

// parseMultipart reads an upload body capped at maxUploadBody.
func parseMultipart(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	if err := r.ParseMultipartForm(maxUploadBody); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return service.FileRejected(upload.ErrTooLarge)
		}
		return &service.Error{Kind: service.KindValidation, Message: "Invalid multipart body", Err: err}
	}
	return nil
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return 0, service.NotFound("Not found")
	}
	return id, nil
}

// pageFrom reads limit and skip; absent values are left for the service defaults.
func pageFrom(r *http.Request) (store.Page, error) {
	var page store.Page
	var fields []service.FieldError
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			fields = append(fields, service.FieldError{Field: "limit", Message: "limit must be a non-negative integer"})
		}
		page.Limit = n
	}
	if v := q.Get("skip"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			fields = append(fields, service.FieldError{Field: "skip", Message: "skip must be a non-negative integer"})
		}
		page.Skip = n
	}
	if len(fields) > 0 {
		return store.Page{}, service.Validation(fields...)
	}
	return page, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeRateLimit(w http.ResponseWriter, retry time.Duration) {
	seconds := int(retry.Round(time.Second).Seconds())
	if seconds < 1 {
		seconds = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(seconds))
	writeJSON(w, http.StatusTooManyRequests, map[string]any{
		"message":    "Rate limit exceeded",
		"status":     http.StatusTooManyRequests,
		"retryAfter": seconds,
	})
}
