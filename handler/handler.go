// Package handler provides the HTTP handlers for the admin API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/stevemurr/franchise-admin/logging"
	"github.com/stevemurr/franchise-admin/metrics"
	"github.com/stevemurr/franchise-admin/model"
	"github.com/stevemurr/franchise-admin/store"
)

// StoreProvider returns the store requests are served from.
// *store.Resolver implements it.
type StoreProvider interface {
	Resolve(ctx context.Context) (store.Store, error)
}

// Handler holds the server dependencies and registers routes.
type Handler struct {
	stores  StoreProvider
	router  *mux.Router
	log     logrus.FieldLogger
	metrics *metrics.Metrics
}

type Option func(*Handler)

func WithLogger(l logrus.FieldLogger) Option {
	return func(h *Handler) { h.log = l }
}

// WithMetrics instruments every route and serves /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

// New creates a Handler and wires up all routes.
func New(p StoreProvider, opts ...Option) *Handler {
	h := &Handler{
		stores: p,
		router: mux.NewRouter(),
		log:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.routes()
	return h
}

// ServeHTTP makes Handler an http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) routes() {
	var notFound, notAllowed http.Handler
	notFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	notAllowed = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	if h.metrics != nil {
		// mux skips router middleware when nothing matched.
		instrument := h.metrics.Instrument()
		h.router.Use(instrument)
		notFound = instrument(notFound)
		notAllowed = instrument(notAllowed)
		h.router.Handle("/metrics", h.metrics.Handler()).Methods(http.MethodGet)
	}
	h.router.NotFoundHandler = notFound
	h.router.MethodNotAllowedHandler = notAllowed

	h.router.HandleFunc("/", h.root).Methods(http.MethodGet)
	h.router.HandleFunc("/health", h.health).Methods(http.MethodGet)

	api := h.router.PathPrefix("/api").Subrouter()

	// Secondary lookups go first so they are not taken for an id.
	api.HandleFunc("/users/by-email/{email}", h.userByEmail).Methods(http.MethodGet)
	api.HandleFunc("/users/{id}/orders", h.userOrders).Methods(http.MethodGet)
	api.HandleFunc("/stores/{id}/menus", h.storeMenus).Methods(http.MethodGet)

	api.HandleFunc("/dashboard/stats", h.dashboardStats).Methods(http.MethodGet)
	api.HandleFunc("/dashboard/stats", h.updateDashboardStats).Methods(http.MethodPatch, http.MethodPut)
	api.HandleFunc("/dashboard/revenue", h.dashboardRevenue).Methods(http.MethodGet)
	api.HandleFunc("/dashboard/activity", h.dashboardActivity).Methods(http.MethodGet)

	for _, res := range h.resources() {
		h.register(api, res)
	}
}

// ---------- helpers ----------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}

// readJSON decodes a request body into a JSON object. Numbers are kept as
// json.Number so integers survive validation untouched.
func readJSON(r *http.Request) (map[string]any, error) {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, errors.New("body must be a JSON object")
	}
	return doc, nil
}

func pathID(r *http.Request) (int, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid id: %q", raw)
	}
	return id, nil
}

// store resolves the request's store, answering 503 itself when the caller
// went away first.
func (h *Handler) store(w http.ResponseWriter, r *http.Request) (store.Store, bool) {
	s, err := h.stores.Resolve(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "storage unavailable")
		return nil, false
	}
	return s, true
}

// fail maps a store error to its response.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, model.ErrIdentityCollision):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "storage unavailable")
	default:
		logging.FromContext(r.Context(), h.log).WithError(err).Error("store operation failed")
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// ---------- status endpoints ----------

func (h *Handler) root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "Franchise Admin",
	})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	s, ok := h.store(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.Ping(ctx); err != nil {
		logging.FromContext(r.Context(), h.log).WithError(err).Warn("health check failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "backend": s.Backend()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "backend": s.Backend()})
}

// ---------- secondary lookups ----------

func (h *Handler) userByEmail(w http.ResponseWriter, r *http.Request) {
	s, ok := h.store(w, r)
	if !ok {
		return
	}
	u, err := s.Users().GetByEmail(r.Context(), mux.Vars(r)["email"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if u == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handler) userOrders(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s, ok := h.store(w, r)
	if !ok {
		return
	}
	orders, err := s.Orders().ListByUser(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) storeMenus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s, ok := h.store(w, r)
	if !ok {
		return
	}
	menus, err := s.Menus().ListByStore(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, menus)
}
