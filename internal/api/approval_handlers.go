package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"labbooking/internal/entities"
	"labbooking/internal/service"
)

// ApprovalHandler exposes the approve/reject decisions on pending
// reservations. Who may call these is decided upstream; the actor field is
// the pre-resolved identity used for the audit trail.
type ApprovalHandler struct {
	Service *service.BookingService
}

func NewApprovalHandler(svc *service.BookingService) *ApprovalHandler {
	return &ApprovalHandler{Service: svc}
}

func (h *ApprovalHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.Service.Approve)
}

func (h *ApprovalHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.Service.Reject)
}

func (h *ApprovalHandler) decide(w http.ResponseWriter, r *http.Request, action func(ctx context.Context, id, actor string) (entities.Reservation, error)) {
	id := mux.Vars(r)["id"]
	var payload ActorPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Actor == "" {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	res, err := action(r.Context(), id, payload.Actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
