package shop

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

// Server exposes the storefront: catalog and customer seeding for local runs, and checkout.
type Server struct {
	store  *Store
	orders *OrderService
	logger *slog.Logger
}

// NewServer builds a server backed by the provided store and checkout service.
func NewServer(store *Store, orders *OrderService, logger *slog.Logger) *Server {
	return &Server{store: store, orders: orders, logger: logger}
}

// Router wires all storefront routes under a single chi router. mounts attach
// additional feature routes such as recommendations and metrics.
func (s *Server) Router(mounts ...func(chi.Router)) http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Route("/shop", func(r chi.Router) {
		r.Post("/customers", s.handleCreateCustomer)
		r.Post("/customers/{customerID}/addresses", s.handleAddAddress)
		r.Post("/customers/{customerID}/visits", s.handleRecordVisit)
		r.Post("/categories", s.handleCreateCategory)
		r.Post("/products", s.handleCreateProduct)
		r.Post("/orders", s.handlePlaceOrder)
	})

	for _, mount := range mounts {
		mount(r)
	}
	return r
}

func (s *Server) handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email     string `json:"email"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		GroupID   int64  `json:"group_id"`
		Gender    int64  `json:"gender"`
		DOB       string `json:"dob"`
		IsActive  *bool  `json:"is_active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: %v", err)
		return
	}
	customer := Customer{
		Email:     payload.Email,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		GroupID:   payload.GroupID,
		Gender:    payload.Gender,
		IsActive:  payload.IsActive == nil || *payload.IsActive,
	}
	if payload.DOB != "" {
		dob, err := time.ParseInLocation("2006-01-02", payload.DOB, s.store.Location())
		if err != nil {
			writeError(w, http.StatusBadRequest, "dob must be YYYY-MM-DD")
			return
		}
		customer.DateOfBirth = &dob
	}
	created, err := s.store.CreateCustomer(r.Context(), customer)
	if err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleAddAddress(w http.ResponseWriter, r *http.Request) {
	customerID, ok := pathID(w, r, "customerID")
	if !ok {
		return
	}
	var a Address
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: %v", err)
		return
	}
	a.CustomerID = customerID
	created, err := s.store.AddAddress(r.Context(), a)
	if err != nil {
		handleNotFound(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleRecordVisit(w http.ResponseWriter, r *http.Request) {
	customerID, ok := pathID(w, r, "customerID")
	if !ok {
		return
	}
	visit, err := s.store.RecordVisit(r.Context(), Visit{CustomerID: customerID})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "record visit: %v", err)
		return
	}
	writeJSON(w, http.StatusCreated, visit)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ParentID int64  `json:"parent_id"`
		Name     string `json:"name"`
		IsActive *bool  `json:"is_active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: %v", err)
		return
	}
	created, err := s.store.CreateCategory(r.Context(), Category{
		ParentID: payload.ParentID,
		Name:     payload.Name,
		IsActive: payload.IsActive == nil || *payload.IsActive,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var p Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: %v", err)
		return
	}
	created, err := s.store.CreateProduct(r.Context(), p)
	if err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req NewOrder
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: %v", err)
		return
	}
	order, err := s.orders.Place(r.Context(), req)
	if err != nil {
		s.logger.Warn("order rejected", "customer_email", req.CustomerEmail, "error", err)
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "%s must be a positive integer", name)
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}

func writeError(w http.ResponseWriter, status int, format string, args ...any) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": strings.TrimSpace(fmt.Sprintf(format, args...)),
			"status":  status,
		},
	})
}

func handleNotFound(w http.ResponseWriter, err error) {
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeError(w, http.StatusInternalServerError, "%v", err)
}
