package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"attendance.service/internal/core"
	"attendance.service/internal/core/model"
	"attendance.service/internal/ports/repository"
	"github.com/gorilla/mux"
)

// AttendanceHandler exposes the engine's command and query operations over HTTP.
type AttendanceHandler struct {
	Entries      *core.TimeEntryService
	Breaks       *core.BreakService
	Verification *core.VerificationService
}

// PunchRequest carries the optional evidence reference for a punch.
type PunchRequest struct {
	EvidenceRef string `json:"evidenceRef,omitempty"`
}

// VerifyRequest carries the deciding supervisor for approve/reject.
type VerifyRequest struct {
	SupervisorID string `json:"supervisorId"`
}

func (h *AttendanceHandler) ClockIn(w http.ResponseWriter, r *http.Request) {
	tenantID, employeeID := employeeScope(r)
	req, ok := decodePunch(w, r)
	if !ok {
		return
	}

	entry, err := h.Entries.ClockIn(r.Context(), tenantID, employeeID, req.EvidenceRef)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (h *AttendanceHandler) ClockOut(w http.ResponseWriter, r *http.Request) {
	tenantID, employeeID := employeeScope(r)
	req, ok := decodePunch(w, r)
	if !ok {
		return
	}

	entry, err := h.Entries.ClockOut(r.Context(), tenantID, employeeID, req.EvidenceRef)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *AttendanceHandler) StartBreak(w http.ResponseWriter, r *http.Request) {
	tenantID, employeeID := employeeScope(r)
	req, ok := decodePunch(w, r)
	if !ok {
		return
	}

	brk, err := h.Breaks.StartBreak(r.Context(), tenantID, employeeID, req.EvidenceRef)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, brk)
}

func (h *AttendanceHandler) EndBreak(w http.ResponseWriter, r *http.Request) {
	tenantID, employeeID := employeeScope(r)
	req, ok := decodePunch(w, r)
	if !ok {
		return
	}

	brk, err := h.Breaks.EndBreak(r.Context(), tenantID, employeeID, req.EvidenceRef)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, brk)
}

func (h *AttendanceHandler) GetActiveEntry(w http.ResponseWriter, r *http.Request) {
	tenantID, employeeID := employeeScope(r)

	entry, err := h.Entries.GetActiveEntry(r.Context(), tenantID, employeeID)
	if err != nil {
		writeError(w, err)
		return
	}
	if entry == nil {
		writeJSON(w, http.StatusOK, map[string]any{"active": false})
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *AttendanceHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.verify(w, r, h.Verification.Approve)
}

func (h *AttendanceHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.verify(w, r, h.Verification.Reject)
}

func (h *AttendanceHandler) verify(w http.ResponseWriter, r *http.Request, decide func(ctx context.Context, tenantID, entryID, supervisorID string) (*model.TimeEntry, error)) {
	vars := mux.Vars(r)

	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.SupervisorID == "" {
		http.Error(w, "SupervisorID is required", http.StatusBadRequest)
		return
	}

	entry, err := decide(r.Context(), vars["tenantId"], vars["entryId"], req.SupervisorID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *AttendanceHandler) ListPendingReview(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	entries, err := h.Verification.ListPendingReview(r.Context(), vars["tenantId"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func employeeScope(r *http.Request) (tenantID, employeeID string) {
	vars := mux.Vars(r)
	return vars["tenantId"], vars["employeeId"]
}

// decodePunch reads the optional request body; an empty body means a punch
// without evidence.
func decodePunch(w http.ResponseWriter, r *http.Request) (PunchRequest, bool) {
	var req PunchRequest
	if r.Body == nil || r.ContentLength == 0 {
		return req, true
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return req, false
	}
	return req, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError maps the engine's error taxonomy onto HTTP statuses with enough
// structured detail for the kiosk to render a precise message.
func writeError(w http.ResponseWriter, err error) {
	var tooShort *core.BreakTooShortError
	if errors.As(err, &tooShort) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":            "BREAK_TOO_SHORT",
			"remainingSeconds": tooShort.RemainingSeconds(),
		})
		return
	}

	switch {
	case errors.Is(err, core.ErrInvalidTenantOrEmployee):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "INVALID_TENANT_OR_EMPLOYEE"})
	case errors.Is(err, core.ErrAlreadyClockedIn):
		writeJSON(w, http.StatusConflict, map[string]any{"error": "ALREADY_CLOCKED_IN"})
	case errors.Is(err, core.ErrNotClockedIn):
		writeJSON(w, http.StatusConflict, map[string]any{"error": "NOT_CLOCKED_IN"})
	case errors.Is(err, core.ErrBreakAlreadyOpen):
		writeJSON(w, http.StatusConflict, map[string]any{"error": "BREAK_ALREADY_OPEN"})
	case errors.Is(err, core.ErrNoOpenBreak):
		writeJSON(w, http.StatusConflict, map[string]any{"error": "NO_OPEN_BREAK"})
	case errors.Is(err, core.ErrNotPendingReview):
		writeJSON(w, http.StatusConflict, map[string]any{"error": "NOT_PENDING_REVIEW"})
	case errors.Is(err, core.ErrEntryNotFound):
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "ENTRY_NOT_FOUND"})
	case errors.Is(err, repository.ErrConcurrentModification):
		// Internal retries already happened; the client may simply try again.
		writeJSON(w, http.StatusConflict, map[string]any{"error": "CONCURRENT_MODIFICATION", "retryable": true})
	case errors.Is(err, repository.ErrStoreUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "STORE_UNAVAILABLE"})
	default:
		http.Error(w, "Service error processing event", http.StatusInternalServerError)
	}
}
