package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"labbooking/internal/approval"
	"labbooking/internal/clock"
	"labbooking/internal/entities"
	"labbooking/internal/service"
)

// stubRepo is the minimal in-memory service.Repository the handler tests
// need: one resource, reservations and waiting-list entries in maps.
type stubRepo struct {
	resource     entities.Resource
	reservations map[string]entities.Reservation
	waitlist     map[string]entities.WaitingListEntry
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		resource:     entities.Resource{ID: "lab-a", Name: "Lab A", Capacity: 1},
		reservations: map[string]entities.Reservation{},
		waitlist:     map[string]entities.WaitingListEntry{},
	}
}

func (s *stubRepo) WithResourceLock(ctx context.Context, resourceID string, fn func(service.Store) error) error {
	return fn(s)
}

func (s *stubRepo) GetResource(ctx context.Context, id string) (entities.Resource, error) {
	if id != s.resource.ID {
		return entities.Resource{}, sql.ErrNoRows
	}
	return s.resource, nil
}

func (s *stubRepo) ListResources(ctx context.Context) ([]entities.Resource, error) {
	return []entities.Resource{s.resource}, nil
}

func (s *stubRepo) SnapshotReservations(ctx context.Context, resourceID string, window entities.Interval) ([]entities.Reservation, error) {
	var out []entities.Reservation
	for _, res := range s.reservations {
		if res.ResourceID == resourceID && res.Status.Occupying() && res.Interval.Overlaps(window) {
			out = append(out, res)
		}
	}
	return out, nil
}

func (s *stubRepo) SnapshotMaintenance(ctx context.Context, resourceID string, window entities.Interval) ([]entities.MaintenanceWindow, error) {
	return nil, nil
}

func (s *stubRepo) GetReservation(ctx context.Context, id string) (entities.Reservation, error) {
	res, ok := s.reservations[id]
	if !ok {
		return entities.Reservation{}, sql.ErrNoRows
	}
	return res, nil
}

func (s *stubRepo) CreateReservations(ctx context.Context, reservations []entities.Reservation) error {
	for _, res := range reservations {
		s.reservations[res.ID] = res
	}
	return nil
}

func (s *stubRepo) UpdateReservationStatus(ctx context.Context, id string, status entities.ReservationStatus) error {
	res, ok := s.reservations[id]
	if !ok {
		return sql.ErrNoRows
	}
	res.Status = status
	s.reservations[id] = res
	return nil
}

func (s *stubRepo) ConfirmedPastEnd(ctx context.Context, now time.Time) ([]entities.Reservation, error) {
	return nil, nil
}

func (s *stubRepo) ActiveWaitlist(ctx context.Context, resourceID string) ([]entities.WaitingListEntry, error) {
	var out []entities.WaitingListEntry
	for _, e := range s.waitlist {
		if e.ResourceID == resourceID && e.Status.Active() {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *stubRepo) AllActiveWaitlist(ctx context.Context) ([]entities.WaitingListEntry, error) {
	return s.ActiveWaitlist(ctx, s.resource.ID)
}

func (s *stubRepo) CreateWaitlistEntry(ctx context.Context, entry entities.WaitingListEntry) error {
	s.waitlist[entry.ID] = entry
	return nil
}

func (s *stubRepo) UpdateWaitlistStatus(ctx context.Context, id string, status entities.WaitlistStatus) error {
	e, ok := s.waitlist[id]
	if !ok {
		return sql.ErrNoRows
	}
	e.Status = status
	s.waitlist[id] = e
	return nil
}

func (s *stubRepo) RecordEvent(ctx context.Context, event approval.Event) error { return nil }

var handlerNow = time.Date(2024, 1, 9, 8, 0, 0, 0, time.UTC)

func newRouter(repo *stubRepo, autoConfirm bool) *mux.Router {
	policy := approval.PolicyFunc(func(entities.BookingRequest) approval.Decision {
		return approval.Decision{AutoConfirm: autoConfirm, Approvers: []string{"supervisor-1"}}
	})
	svc := service.NewBookingService(repo, approval.NewGate(nil), policy, nil,
		clock.Fixed{At: handlerNow}, zap.NewNop(), 14*24*time.Hour, 3, 72*time.Hour)

	bookings := NewBookingHandler(svc)
	approvals := NewApprovalHandler(svc)
	waitlist := NewWaitlistHandler(svc)

	router := mux.NewRouter()
	router.HandleFunc("/api/availability", bookings.CheckAvailability).Methods(http.MethodPost)
	router.HandleFunc("/api/bookings", bookings.CreateBooking).Methods(http.MethodPost)
	router.HandleFunc("/api/reservations/{id}", bookings.GetReservation).Methods(http.MethodGet)
	router.HandleFunc("/api/reservations/{id}", bookings.CancelReservation).Methods(http.MethodDelete)
	router.HandleFunc("/api/reservations/{id}/approve", approvals.Approve).Methods(http.MethodPost)
	router.HandleFunc("/api/reservations/{id}/reject", approvals.Reject).Methods(http.MethodPost)
	router.HandleFunc("/api/waitlist", waitlist.Join).Methods(http.MethodPost)
	router.HandleFunc("/api/resources/{resource_id}/waitlist", waitlist.List).Methods(http.MethodGet)
	return router
}

func payload(options service.BookingOptions) []byte {
	body, _ := json.Marshal(BookingPayload{
		ResourceID:  "lab-a",
		RequesterID: "u1",
		Start:       time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC),
		End:         time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC),
		Options:     options,
	})
	return body
}

func doRequest(t *testing.T, router *mux.Router, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateBookingReturns201(t *testing.T) {
	router := newRouter(newStubRepo(), true)

	rec := doRequest(t, router, http.MethodPost, "/api/bookings", payload(service.BookingOptions{}))
	require.Equal(t, http.StatusCreated, rec.Code)

	var result service.BookingResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Booked)
	require.Len(t, result.Reservations, 1)
	assert.Equal(t, entities.StatusConfirmed, result.Reservations[0].Status)
}

func TestCreateBookingConflictReturns200WithReport(t *testing.T) {
	router := newRouter(newStubRepo(), true)

	first := doRequest(t, router, http.MethodPost, "/api/bookings", payload(service.BookingOptions{}))
	require.Equal(t, http.StatusCreated, first.Code)

	second := doRequest(t, router, http.MethodPost, "/api/bookings", payload(service.BookingOptions{}))
	require.Equal(t, http.StatusOK, second.Code)

	var result service.BookingResult
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &result))
	assert.False(t, result.Booked)
	require.NotNil(t, result.Report)
	assert.True(t, result.Report.HasConflict)
	require.NotNil(t, result.Resolution)
}

func TestCreateBookingRejectsMalformedInterval(t *testing.T) {
	router := newRouter(newStubRepo(), true)

	body, _ := json.Marshal(BookingPayload{
		ResourceID:  "lab-a",
		RequesterID: "u1",
		Start:       time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC),
		End:         time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC),
	})
	rec := doRequest(t, router, http.MethodPost, "/api/bookings", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckAvailabilityDryRun(t *testing.T) {
	repo := newStubRepo()
	router := newRouter(repo, true)

	rec := doRequest(t, router, http.MethodPost, "/api/availability", payload(service.BookingOptions{}))
	require.Equal(t, http.StatusOK, rec.Code)

	var report entities.ConflictReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.False(t, report.HasConflict)
	assert.Empty(t, repo.reservations)
}

func TestApproveRequiresActor(t *testing.T) {
	router := newRouter(newStubRepo(), false)

	created := doRequest(t, router, http.MethodPost, "/api/bookings", payload(service.BookingOptions{}))
	require.Equal(t, http.StatusCreated, created.Code)
	var result service.BookingResult
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &result))
	id := result.Reservations[0].ID

	rec := doRequest(t, router, http.MethodPost, "/api/reservations/"+id+"/approve", []byte(`{}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/api/reservations/"+id+"/approve", []byte(`{"actor":"supervisor-1"}`))
	require.Equal(t, http.StatusOK, rec.Code)

	var approved entities.Reservation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &approved))
	assert.Equal(t, entities.StatusConfirmed, approved.Status)
}

func TestApproveConfirmedReturns409(t *testing.T) {
	router := newRouter(newStubRepo(), true)

	created := doRequest(t, router, http.MethodPost, "/api/bookings", payload(service.BookingOptions{}))
	var result service.BookingResult
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &result))
	id := result.Reservations[0].ID

	rec := doRequest(t, router, http.MethodPost, "/api/reservations/"+id+"/approve", []byte(`{"actor":"supervisor-1"}`))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestJoinWaitlistDuplicateReturns409(t *testing.T) {
	router := newRouter(newStubRepo(), true)

	first := doRequest(t, router, http.MethodPost, "/api/waitlist", payload(service.BookingOptions{}))
	require.Equal(t, http.StatusCreated, first.Code)

	second := doRequest(t, router, http.MethodPost, "/api/waitlist", payload(service.BookingOptions{}))
	assert.Equal(t, http.StatusConflict, second.Code)
}

func TestCancelReservation(t *testing.T) {
	repo := newStubRepo()
	router := newRouter(repo, true)

	created := doRequest(t, router, http.MethodPost, "/api/bookings", payload(service.BookingOptions{}))
	var result service.BookingResult
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &result))
	id := result.Reservations[0].ID

	rec := doRequest(t, router, http.MethodDelete, "/api/reservations/"+id+"?actor=u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, entities.StatusCancelled, repo.reservations[id].Status)
}
