// Package server exposes the checkout flow over HTTP: the snapshot
// handoff from the cart page and the checkout operations themselves.
package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/chanhduy633/checkout-service/internal/metrics"
	"github.com/chanhduy633/checkout-service/internal/service"
	"github.com/chanhduy633/checkout-service/internal/snapshot"
	"github.com/chanhduy633/checkout-service/internal/validate"
)

type Server struct {
	Router    *chi.Mux
	service   service.CheckoutService
	snapshots snapshot.Store
	metrics   *metrics.Metrics
	validate  *validator.Validate
	timeout   time.Duration
}

func NewServer(svc service.CheckoutService, snapshots snapshot.Store, m *metrics.Metrics) (*Server, error) {
	v := validator.New()
	if err := validate.Register(v); err != nil {
		return nil, err
	}

	s := &Server{
		Router:    chi.NewRouter(),
		service:   svc,
		snapshots: snapshots,
		metrics:   m,
		validate:  v,
		timeout:   15 * time.Second,
	}
	s.Router.Use(middleware.Recoverer)
	s.Router.Use(s.metricsMiddleware)
	s.initRoutes()
	return s, nil
}

func (s *Server) initRoutes() {
	s.Router.Route("/api/v1/checkout", func(r chi.Router) {
		r.Put("/snapshot", s.handleSaveSnapshot)
		r.Get("/snapshot", s.handleGetSnapshot)
		r.Post("/", s.handleBeginCheckout)
		r.Get("/{checkoutID}", s.handleGetCheckout)
		r.Post("/{checkoutID}/cancel", s.handleCancelPayment)
	})
}

func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.metrics.HTTPServerReqs.WithLabelValues(strconv.Itoa(ww.Status()), r.Method).Inc()
	})
}

// userID reads the authenticated user from the gateway-injected header.
func userID(r *http.Request) string {
	return r.Header.Get("X-User-ID")
}
