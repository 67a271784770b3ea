package web

import (
	"context"
	"crypto/subtle"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"apptcal/internal/appointments"
	"apptcal/internal/calendar"
	"apptcal/internal/config"
	appLog "apptcal/internal/log"
	"apptcal/internal/metrics"
)

// Server serves the calendar page, its events source, the appointment list
// and operational endpoints.
type Server struct {
	cfg     *config.Config
	svc     *appointments.Service
	metrics *metrics.Metrics
	mux     *http.ServeMux
	pages   *template.Template

	// now is replaceable in tests.
	now func() time.Time

	eventsMu    sync.RWMutex
	eventsCache map[rangeKey]eventsCacheEntry
}

const eventsCacheTTL = 30 * time.Second

//go:embed all:static
var embeddedStatic embed.FS

//go:embed templates/*.html
var embeddedTemplates embed.FS

// NewServer constructs a Server. m may be nil to disable instrumentation.
func NewServer(cfg *config.Config, svc *appointments.Service, m *metrics.Metrics) (*Server, error) {
	pages, err := template.New("").Funcs(templateFuncs).ParseFS(embeddedTemplates, "templates/*.html")
	if err != nil {
		return nil, err
	}
	s := &Server{
		cfg:         cfg,
		svc:         svc,
		metrics:     m,
		mux:         http.NewServeMux(),
		pages:       pages,
		now:         time.Now,
		eventsCache: make(map[rangeKey]eventsCacheEntry),
	}
	s.registerRoutes()
	return s, nil
}

// Handler returns the root http.Handler, wrapped with Basic Auth when configured.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled")
		return s.basicAuthMiddleware(h)
	}
	return h
}

// ListenAndServe serves on cfg.Listen until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	appLog.Info("shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.handle("/health", s.handleHealth)
	s.handle("GET /api/appointments", s.handleAppointmentsAPI)
	s.handle("GET /{$}", s.handleIndex)
	s.handle("GET /calendrier", s.handleCalendarPage)
	s.handle("GET /appointments", s.handleAppointmentsPage)
	s.handle("POST /appointments/create", s.handleAppointmentCreate)
	s.handle("GET /preview.png", s.handlePreview)
	s.mux.Handle("GET /static/", s.staticFileServer())
	if s.cfg.Metrics.Enabled && s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.Handler())
	}
}

// handle registers fn under pattern with request metrics labelled by pattern.
func (s *Server) handle(pattern string, fn http.HandlerFunc) {
	s.mux.Handle(pattern, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		fn(rec, r)
		s.metrics.ObserveRequest(pattern, rec.status, time.Since(start))
	}))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured with both
// a username and a password.
func (s *Server) basicAuthEnabled() bool {
	ba := s.cfg.BasicAuth
	return ba != nil && ba.Username != "" && ba.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="apptcal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func secureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

type healthResponse struct {
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Store().Ping(r.Context()); err != nil {
		appLog.Error("health check failed", err)
		writeJSON(w, http.StatusInternalServerError, healthResponse{Status: "db_error", Detail: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/calendrier", http.StatusFound)
}

// handlePreview serves the last captured PNG of the calendar page.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	// ServeFile maps a missing file to 404.
	http.ServeFile(w, r, s.cfg.Preview.Path)
}

// staticFileServer serves the embedded calendar script and styles under /static/.
func (s *Server) staticFileServer() http.Handler {
	sub, err := fs.Sub(embeddedStatic, "static")
	if err != nil {
		appLog.Error("failed to initialize embedded static filesystem", err)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "static assets not available", http.StatusServiceUnavailable)
		})
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

// pageConfig is embedded in the calendar page as JSON and read by
// static/calendar.js.
type pageConfig struct {
	MountID       string                 `json:"mountId"`
	Options       calendar.Options       `json:"options"`
	Tooltip       calendar.TooltipConfig `json:"tooltip"`
	DetailURL     string                 `json:"detailUrl"`
	FallbackTitle string                 `json:"fallbackTitle"`
}

func (s *Server) calendarPageConfig() pageConfig {
	settings := s.cfg.Calendar
	settings.Normalize()
	return pageConfig{
		MountID:       settings.MountID,
		Options:       settings.Options(),
		Tooltip:       calendar.TooltipTemplate(),
		DetailURL:     settings.DetailURL,
		FallbackTitle: calendar.TooltipFor(calendar.Event{}).Title,
	}
}

func (s *Server) handleCalendarPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, "calendar.html", map[string]any{
		"Title":  "Calendrier",
		"Config": s.calendarPageConfig(),
	})
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.pages.ExecuteTemplate(w, name, data); err != nil {
		appLog.Error("template render failed", err, "template", name)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
