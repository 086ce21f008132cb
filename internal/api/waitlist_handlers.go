package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"labbooking/internal/service"
)

type WaitlistHandler struct {
	Service *service.BookingService
}

func NewWaitlistHandler(svc *service.BookingService) *WaitlistHandler {
	return &WaitlistHandler{Service: svc}
}

// Join enrolls the requester for the desired window. Duplicate active entries
// for the same window come back as 409.
func (h *WaitlistHandler) Join(w http.ResponseWriter, r *http.Request) {
	var payload BookingPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	request, err := payload.ToRequest()
	if err != nil {
		writeError(w, err)
		return
	}
	entry, err := h.Service.JoinWaitlist(r.Context(), request, payload.Options)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (h *WaitlistHandler) List(w http.ResponseWriter, r *http.Request) {
	resourceID := mux.Vars(r)["resource_id"]
	entries, err := h.Service.Repo.ActiveWaitlist(r.Context(), resourceID)
	if err != nil {
		http.Error(w, "Could not list waiting list", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
