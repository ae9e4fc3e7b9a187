// Package stub serves an in-memory Product API for smoke runs and tests.
// It can inject latency and random 500s to exercise failure reporting.
package stub

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Faults configures injected failures.
type Faults struct {
	// ErrorRate is the probability (0-1) of answering 500 instead of
	// handling a request
	ErrorRate float64

	// Latency is added before every response
	Latency time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithFaults enables fault injection.
func WithFaults(f Faults) Option {
	return func(s *Server) {
		s.faults = f
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Server is the fake Product API.
type Server struct {
	store  *Store
	faults Faults
	logger *zap.Logger
	router *chi.Mux
}

// NewServer builds the router.
func NewServer(opts ...Option) *Server {
	s := &Server{
		store:  NewStore(),
		logger: zap.NewNop(),
		router: chi.NewRouter(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("mod", "stub"))
	s.routes()
	return s
}

// Store exposes the backing store.
func (s *Server) Store() *Store {
	return s.store
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := s.router

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/actuator/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "UP"})
	})

	r.Group(func(r chi.Router) {
		r.Use(s.chaos)

		r.Route("/api/products", func(r chi.Router) {
			r.Get("/", s.listProducts)
			r.Post("/", s.createProduct)
			r.Delete("/", s.deleteAllProducts)
			r.Get("/search", s.searchProducts)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.getProduct)
				r.Put("/", s.updateProduct)
				r.Delete("/", s.deleteProduct)
			})
		})

		r.Route("/api/audit-logs", func(r chi.Router) {
			r.Get("/", s.listAuditLogs)
			r.Delete("/all", s.clearAuditLogs)
		})
	})
}

// chaos injects configured latency and errors.
func (s *Server) chaos(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.faults.Latency > 0 {
			select {
			case <-time.After(s.faults.Latency):
			case <-r.Context().Done():
				return
			}
		}
		if s.faults.ErrorRate > 0 && rand.Float64() < s.faults.ErrorRate {
			writeError(w, http.StatusInternalServerError, "injected fault")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type productInput struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       *float64 `json:"price"`
	Quantity    *int     `json:"quantity"`
}

func (in productInput) validate() error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return errors.New("name is required")
	case in.Price == nil || *in.Price < 0:
		return errors.New("price must be zero or positive")
	case in.Quantity == nil || *in.Quantity < 0:
		return errors.New("quantity must be zero or positive")
	}
	return nil
}

func (in productInput) product() Product {
	return Product{Name: in.Name, Description: in.Description, Price: *in.Price, Quantity: *in.Quantity}
}

func (s *Server) createProduct(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var in productInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.audit(r, start, OpCreate, nil, http.StatusBadRequest)
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	if err := in.validate(); err != nil {
		s.audit(r, start, OpCreate, nil, http.StatusBadRequest)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p := s.store.Create(in.product())
	s.audit(r, start, OpCreate, &p.ID, http.StatusCreated)
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.List())
}

func (s *Server) searchProducts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Search(r.URL.Query().Get("name")))
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}

	p, found := s.store.Get(id)
	if !found {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) updateProduct(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id, ok := productID(w, r)
	if !ok {
		return
	}

	var in productInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.audit(r, start, OpUpdate, &id, http.StatusBadRequest)
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	if err := in.validate(); err != nil {
		s.audit(r, start, OpUpdate, &id, http.StatusBadRequest)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, found := s.store.Update(id, in.product())
	if !found {
		s.audit(r, start, OpUpdate, &id, http.StatusNotFound)
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	s.audit(r, start, OpUpdate, &id, http.StatusOK)
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) deleteProduct(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id, ok := productID(w, r)
	if !ok {
		return
	}

	if !s.store.Delete(id) {
		s.audit(r, start, OpDelete, &id, http.StatusNotFound)
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	s.audit(r, start, OpDelete, &id, http.StatusNoContent)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteAllProducts(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	n := s.store.DeleteAll()
	s.audit(r, start, OpDelete, nil, http.StatusNoContent)
	s.logger.Debug("deleted all products", zap.Int("count", n))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listAuditLogs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.AuditLogs())
}

func (s *Server) clearAuditLogs(w http.ResponseWriter, r *http.Request) {
	s.store.ClearAudit()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) audit(r *http.Request, start time.Time, op string, id *int64, status int) {
	result := StatusSucceeded
	if status >= 400 {
		result = StatusFailed
	}

	requestID := r.Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = middleware.GetReqID(r.Context())
	}

	s.store.RecordAudit(AuditLog{
		EventType:      "PRODUCT_" + op + "_" + result,
		EntityID:       id,
		Operation:      op,
		Status:         result,
		HTTPStatusCode: status,
		DurationMs:     time.Since(start).Milliseconds(),
		RequestID:      requestID,
	})
}

func productID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"status":  status,
		"error":   http.StatusText(status),
		"message": message,
	})
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("stub listening", zap.String("addr", addr),
			zap.Float64("error_rate", s.faults.ErrorRate), zap.Duration("latency", s.faults.Latency))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("stub stopped")
	return nil
}
