// Package fakeapi serves the bookstore REST contract over the in-memory
// stub store. It backs the dev entrypoint and the REST client tests, so
// the client is exercised against the exact envelope and paths the real
// API uses.
package fakeapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"bookstore/internal/models"
	"bookstore/internal/store"
	"bookstore/internal/store/stubs"
)

// Server is an http.Handler implementing the bookstore API.
type Server struct {
	store  *stubs.MockStore
	logger *zap.Logger
	mux    *http.ServeMux
}

// New creates a fake API server over the given stub store.
func New(st *stubs.MockStore, logger *zap.Logger) *Server {
	s := &Server{store: st, logger: logger, mux: http.NewServeMux()}
	s.mux.HandleFunc("/auth/login", s.handleLogin)
	s.mux.HandleFunc("/books/", s.authed(s.handleBooks))
	s.mux.HandleFunc("/sales/", s.authed(s.handleSales))
	s.mux.HandleFunc("/sales/create-sale", s.authed(s.handleCreateSale))
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// envelope mirrors the API response convention.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type listData struct {
	Result any         `json:"result"`
	Meta   models.Meta `json:"meta"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, env envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, envelope{Success: false, Message: message})
}

// authed requires a bearer credential on every inventory endpoint. The
// fake does not verify signatures; presence is enough.
func (s *Server) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			s.writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		next(w, r)
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid login payload")
		return
	}

	_, token, err := s.store.Login(r.Context(), creds.Email, creds.Password)
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{Success: true, Data: map[string]string{"accessToken": token}})
}

// handleBooks routes everything under /books/: the create and batch-delete
// endpoints, the listing, and the by-id PATCH/DELETE.
func (s *Server) handleBooks(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/books/")

	switch {
	case rest == "create-book" && r.Method == http.MethodPost:
		s.handleCreateBook(w, r)
	case rest == "delete-multiple-books" && r.Method == http.MethodDelete:
		s.handleDeleteMultiple(w, r)
	case rest == "" && r.Method == http.MethodGet:
		s.handleListBooks(w, r)
	case rest != "" && r.Method == http.MethodPatch:
		s.handleUpdateBook(w, r, rest)
	case rest != "" && r.Method == http.MethodDelete:
		s.handleDeleteBook(w, r, rest)
	default:
		s.writeError(w, http.StatusNotFound, "unknown books endpoint")
	}
}

func (s *Server) handleCreateBook(w http.ResponseWriter, r *http.Request) {
	var book models.Book
	if err := json.NewDecoder(r.Body).Decode(&book); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid book payload")
		return
	}
	if book.ID != "" {
		s.writeError(w, http.StatusBadRequest, "create payload must not carry an id")
		return
	}

	created, err := s.store.CreateBook(r.Context(), book)
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.writeJSON(w, http.StatusCreated, envelope{Success: true, Data: created})
}

func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	query := store.BookQuery{
		SearchTerm:   r.URL.Query().Get("searchTerm"),
		Page:         intParam(r, "page"),
		Limit:        intParam(r, "limit"),
		MinPrice:     floatParam(r, "minPrice"),
		MaxPrice:     floatParam(r, "maxPrice"),
		MinPageCount: intParam(r, "minPageCount"),
		MaxPageCount: intParam(r, "maxPageCount"),
		StartDate:    r.URL.Query().Get("startDate"),
		EndDate:      r.URL.Query().Get("endDate"),
	}

	books, meta, err := s.store.GetBooks(r.Context(), query)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if books == nil {
		books = []models.Book{}
	}
	s.writeJSON(w, http.StatusOK, envelope{Success: true, Data: listData{Result: books, Meta: meta}})
}

func (s *Server) handleUpdateBook(w http.ResponseWriter, r *http.Request, id string) {
	var book models.Book
	if err := json.NewDecoder(r.Body).Decode(&book); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid book payload")
		return
	}

	updated, err := s.store.UpdateBook(r.Context(), id, book)
	if err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{Success: true, Data: updated})
}

func (s *Server) handleDeleteBook(w http.ResponseWriter, r *http.Request, id string) {
	if err := s.store.DeleteBook(r.Context(), id); err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{Success: true})
}

func (s *Server) handleDeleteMultiple(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		BookIDs []string `json:"bookIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if len(payload.BookIDs) == 0 {
		s.writeError(w, http.StatusBadRequest, "bookIds must not be empty")
		return
	}

	if err := s.store.DeleteBooks(r.Context(), payload.BookIDs); err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{Success: true})
}

func (s *Server) handleCreateSale(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var sale models.Sale
	if err := json.NewDecoder(r.Body).Decode(&sale); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid sale payload")
		return
	}

	if err := s.store.CreateSale(r.Context(), sale); err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.writeJSON(w, http.StatusCreated, envelope{Success: true})
}

func (s *Server) handleSales(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/sales/" || r.Method != http.MethodGet {
		s.writeError(w, http.StatusNotFound, "unknown sales endpoint")
		return
	}

	query := store.SaleQuery{
		Period:    r.URL.Query().Get("period"),
		SortBy:    r.URL.Query().Get("sortBy"),
		SortOrder: r.URL.Query().Get("sortOrder"),
		Page:      intParam(r, "page"),
		Limit:     intParam(r, "limit"),
	}

	buckets, meta, err := s.store.GetSaleHistory(r.Context(), query)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if buckets == nil {
		buckets = []models.SaleBucket{}
	}
	s.writeJSON(w, http.StatusOK, envelope{Success: true, Data: listData{Result: buckets, Meta: meta}})
}

func intParam(r *http.Request, name string) int {
	v, _ := strconv.Atoi(r.URL.Query().Get(name))
	return v
}

func floatParam(r *http.Request, name string) float64 {
	v, _ := strconv.ParseFloat(r.URL.Query().Get(name), 64)
	return v
}
