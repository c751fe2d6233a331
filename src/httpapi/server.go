// Package httpapi exposes the rental services over a JSON REST API.
package httpapi

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/livefire2015/ez-rent/src/config"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Options tunes the API server
type Options struct {
	Logger *zap.Logger
	// GenerateLimit and GenerateBurst bound bill generation and late fee runs
	GenerateLimit  rate.Limit
	GenerateBurst  int
	MetricsEnabled bool
	MetricsPath    string
	Now            func() time.Time
}

// Server routes API requests to the services
type Server struct {
	deps    Deps
	mux     *http.ServeMux
	logger  *zap.Logger
	limiter *rate.Limiter
	now     func() time.Time
}

// New creates the API server and registers its routes
func New(deps Deps, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.GenerateLimit <= 0 {
		opts.GenerateLimit = rate.Inf
	}
	if opts.GenerateBurst <= 0 {
		opts.GenerateBurst = 1
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	s := &Server{
		deps:    deps,
		mux:     http.NewServeMux(),
		logger:  opts.Logger,
		limiter: rate.NewLimiter(opts.GenerateLimit, opts.GenerateBurst),
		now:     opts.Now,
	}
	s.routes(opts)
	return s
}

func (s *Server) routes(opts Options) {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	if opts.MetricsEnabled {
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		s.mux.Handle("GET "+path, promhttp.Handler())
	}

	s.mux.HandleFunc("GET /api/rooms", s.handleListRooms)
	s.mux.HandleFunc("POST /api/rooms", s.handleCreateRoom)
	s.mux.HandleFunc("GET /api/rooms/{id}", s.handleGetRoom)
	s.mux.HandleFunc("PUT /api/rooms/{id}", s.handleUpdateRoom)
	s.mux.HandleFunc("DELETE /api/rooms/{id}", s.handleDeleteRoom)

	s.mux.HandleFunc("GET /api/tenants", s.handleListTenants)
	s.mux.HandleFunc("POST /api/tenants", s.handleCreateTenant)
	s.mux.HandleFunc("GET /api/tenants/{id}", s.handleGetTenant)
	s.mux.HandleFunc("PUT /api/tenants/{id}", s.handleUpdateTenant)
	s.mux.HandleFunc("DELETE /api/tenants/{id}", s.handleDeleteTenant)
	s.mux.HandleFunc("POST /api/tenants/{id}/move-in", s.handleMoveIn)
	s.mux.HandleFunc("POST /api/tenants/{id}/move-out", s.handleMoveOut)
	s.mux.HandleFunc("GET /api/tenants/{id}/bills", s.handleTenantBills)

	s.mux.HandleFunc("GET /api/readings", s.handleListReadings)
	s.mux.HandleFunc("POST /api/readings", s.handleRecordReading)
	s.mux.HandleFunc("GET /api/readings/{id}", s.handleGetReading)
	s.mux.HandleFunc("PUT /api/readings/{id}", s.handleCorrectReading)

	s.mux.HandleFunc("GET /api/payments", s.handleListPayments)
	s.mux.HandleFunc("POST /api/payments", s.handleRecordPayment)

	s.mux.HandleFunc("GET /api/charges", s.handleListCharges)
	s.mux.HandleFunc("POST /api/charges", s.handleCreateCharge)

	s.mux.HandleFunc("GET /api/maintenance", s.handleListMaintenance)
	s.mux.HandleFunc("POST /api/maintenance", s.handleCreateMaintenance)
	s.mux.HandleFunc("GET /api/maintenance/{id}", s.handleGetMaintenance)
	s.mux.HandleFunc("POST /api/maintenance/{id}/status", s.handleMaintenanceStatus)

	s.mux.HandleFunc("GET /api/settings", s.handleListSettings)
	s.mux.HandleFunc("PUT /api/settings/{key}", s.handleSetSetting)

	s.mux.HandleFunc("POST /api/bills/generate", s.handleGenerateBills)
	s.mux.HandleFunc("POST /api/bills/late-fees", s.handleLateFees)
	s.mux.HandleFunc("GET /api/bills", s.handleListBills)
	s.mux.HandleFunc("GET /api/bills/export", s.handleExportBills)
	s.mux.HandleFunc("GET /api/bills/{id}", s.handleGetBill)

	s.mux.HandleFunc("GET /api/dashboard", s.handleDashboard)

	s.mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		writeAPIError(w, http.StatusNotFound, "not_found", "not found")
	})
}

// ServeHTTP adds request IDs, panic recovery, metrics and access logging
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	reqID := newRequestID()

	w.Header().Set("X-Request-Id", reqID)
	rr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	defer func() {
		if rec := recover(); rec != nil {
			rr.status = http.StatusInternalServerError
			if !rr.wroteHeader {
				writeAPIError(rr, http.StatusInternalServerError, "internal_error", "internal error")
			}
			s.logger.Error("Panic handling request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("req_id", reqID),
				zap.Any("panic", rec),
				zap.ByteString("stack", debug.Stack()),
			)
		}

		dur := time.Since(start)
		observeHTTPRequest(r, rr.status, dur)

		if r.URL.Path != "/health" && !strings.HasSuffix(r.URL.Path, "/metrics") {
			s.logger.Info("HTTP request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rr.status),
				zap.Duration("duration", dur),
				zap.String("req_id", reqID),
			)
		}
	}()

	s.mux.ServeHTTP(rr, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// allowGeneration applies the bill generation rate limit
func (s *Server) allowGeneration(w http.ResponseWriter) bool {
	if !s.limiter.Allow() {
		writeAPIError(w, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded, retry later")
		return false
	}
	return true
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.wroteHeader = true
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(p []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	return r.ResponseWriter.Write(p)
}

func newRequestID() string {
	var b [6]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "000000000000"
	}
	return hex.EncodeToString(b[:])
}

// ListenAndServe runs the server until ctx is cancelled, then shuts it down gracefully
func ListenAndServe(ctx context.Context, cfg config.ServerConfig, handler http.Handler, logger *zap.Logger) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server starting", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	logger.Info("HTTP server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
