package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	httperrors "labbooking/internal/errors"
	"labbooking/internal/service"
)

type BookingHandler struct {
	Service *service.BookingService
}

func NewBookingHandler(svc *service.BookingService) *BookingHandler {
	return &BookingHandler{Service: svc}
}

// CheckAvailability runs conflict detection without booking anything.
func (h *BookingHandler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
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
	report, err := h.Service.CheckAvailability(r.Context(), request)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// CreateBooking runs the full detect-resolve-persist sequence. A conflict is
// a normal outcome: the response then carries the report and the resolution
// instead of reservations.
func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
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
	result, err := h.Service.RequestBooking(r.Context(), request, payload.Options)
	if err != nil {
		writeError(w, err)
		return
	}
	status := http.StatusOK
	if result.Booked {
		status = http.StatusCreated
	}
	writeJSON(w, status, result)
}

func (h *BookingHandler) GetReservation(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	res, err := h.Service.Repo.GetReservation(r.Context(), id)
	if err != nil {
		http.Error(w, "Reservation not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *BookingHandler) CancelReservation(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	actor := r.URL.Query().Get("actor")
	if actor == "" {
		actor = "requester"
	}
	if _, err := h.Service.Cancel(r.Context(), id, actor); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Reservation cancelled"})
}

func (h *BookingHandler) ListResources(w http.ResponseWriter, r *http.Request) {
	resources, err := h.Service.Repo.ListResources(r.Context())
	if err != nil {
		http.Error(w, "Could not list resources", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, resources)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	httpErr := httperrors.FromDomain(err)
	http.Error(w, httpErr.Message, httpErr.Code)
}
