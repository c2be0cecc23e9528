package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"attendance.service/internal/api/handler"
)

// NewRouter sets up the gorilla/mux router and defines all API routes.
func NewRouter(h *handler.AttendanceHandler) *mux.Router {

	r := mux.NewRouter()

	api := r.PathPrefix("/api/v1").Subrouter()

	employees := api.PathPrefix("/tenants/{tenantId}/employees/{employeeId}").Subrouter()
	employees.HandleFunc("/clock-in", h.ClockIn).Methods(http.MethodPost)
	employees.HandleFunc("/clock-out", h.ClockOut).Methods(http.MethodPost)
	employees.HandleFunc("/breaks/start", h.StartBreak).Methods(http.MethodPost)
	employees.HandleFunc("/breaks/end", h.EndBreak).Methods(http.MethodPost)
	employees.HandleFunc("/entry", h.GetActiveEntry).Methods(http.MethodGet)

	entries := api.PathPrefix("/tenants/{tenantId}/entries").Subrouter()
	entries.HandleFunc("/pending-review", h.ListPendingReview).Methods(http.MethodGet)
	entries.HandleFunc("/{entryId}/approve", h.Approve).Methods(http.MethodPost)
	entries.HandleFunc("/{entryId}/reject", h.Reject).Methods(http.MethodPost)

	api.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Service is operational."))
	}).Methods(http.MethodGet)

	return r
}
