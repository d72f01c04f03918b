package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"expense-service/internal/models"
	"expense-service/internal/service"
	"expense-service/internal/storage"
)

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	svc *service.Service
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(svc *service.Service) *Handlers {
	return &Handlers{svc: svc}
}

// expenseResponse is an expense plus the created flag callers branch on.
type expenseResponse struct {
	*models.Expense
	Created bool `json:"created"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// CreateExpense handles POST /expenses. A first-time submission answers 201;
// an idempotent replay answers 200 with the original record and
// "created": false. Replays are not errors.
func (h *Handlers) CreateExpense(w http.ResponseWriter, r *http.Request) {
	var in models.ExpenseInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	expense, created, err := h.svc.CreateExpense(r.Context(), in)
	if err != nil {
		var verr *models.ValidationError
		switch {
		case errors.As(err, &verr):
			writeError(w, http.StatusBadRequest, verr.Error())
		case storage.IsTransient(err):
			// Retries are exhausted; the same idempotency key makes a later
			// client retry safe.
			writeError(w, http.StatusServiceUnavailable, "storage temporarily unavailable, retry with the same idempotency key")
		default:
			log.Printf("CreateExpense error: %v", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, expenseResponse{Expense: expense, Created: created})
}

// ListExpenses handles GET /expenses with optional ?category= substring
// filter and ?sort=asc|desc ordering (newest first by default).
func (h *Handlers) ListExpenses(w http.ResponseWriter, r *http.Request) {
	filter := storage.ListFilter{
		Category:    r.URL.Query().Get("category"),
		OldestFirst: r.URL.Query().Get("sort") == "asc",
	}

	result, err := h.svc.ListExpenses(r.Context(), filter)
	if err != nil {
		log.Printf("ListExpenses error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ListCategories handles GET /expenses/categories.
func (h *Handlers) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.svc.Categories(r.Context())
	if err != nil {
		log.Printf("ListCategories error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if categories == nil {
		categories = []string{}
	}

	writeJSON(w, http.StatusOK, categories)
}

// Health handles GET / and GET /health.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CORSMiddleware allows browser clients on other origins to reach the API.
func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Response encoding error: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
