// Package repository is the Postgres collaborator: it feeds the engine
// call-scoped snapshots and persists its outcomes. WithResourceLock provides
// the per-resource serializable isolation the engine requires around the
// read-detect-write sequence.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"labbooking/internal/approval"
	"labbooking/internal/entities"
	"labbooking/internal/service"
)

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// BookingRepository implements service.Repository on Postgres.
type BookingRepository struct {
	DB *sql.DB
	q  querier
}

func NewBookingRepository(db *sql.DB) *BookingRepository {
	return &BookingRepository{DB: db, q: db}
}

// WithResourceLock runs fn in a transaction holding pg_advisory_xact_lock on
// the resource id, so concurrent bookings of the same resource serialize and
// the check-then-act sequence cannot double-book. The lock releases with the
// transaction.
func (r *BookingRepository) WithResourceLock(ctx context.Context, resourceID string, fn func(service.Store) error) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, resourceID); err != nil {
		return fmt.Errorf("acquiring resource lock: %w", err)
	}

	if err := fn(&BookingRepository{DB: r.DB, q: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *BookingRepository) GetResource(ctx context.Context, id string) (entities.Resource, error) {
	// requires_risk_assessment is derived from linked mandatory assessments,
	// not stored on the resource row.
	query := `
	SELECT r.id, r.name, r.capacity,
	       r.min_duration_minutes, r.max_duration_minutes,
	       r.opens_at_minutes, r.closes_at_minutes,
	       EXISTS (
	           SELECT 1 FROM risk_assessments ra
	           WHERE ra.resource_id = r.id AND ra.mandatory
	       ) AS requires_risk_assessment
	FROM resources r
	WHERE r.id = $1
	`
	return scanResource(r.q.QueryRowContext(ctx, query, id))
}

func (r *BookingRepository) ListResources(ctx context.Context) ([]entities.Resource, error) {
	query := `
	SELECT r.id, r.name, r.capacity,
	       r.min_duration_minutes, r.max_duration_minutes,
	       r.opens_at_minutes, r.closes_at_minutes,
	       EXISTS (
	           SELECT 1 FROM risk_assessments ra
	           WHERE ra.resource_id = r.id AND ra.mandatory
	       ) AS requires_risk_assessment
	FROM resources r
	ORDER BY r.name
	`
	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var resources []entities.Resource
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		resources = append(resources, res)
	}
	return resources, rows.Err()
}

func (r *BookingRepository) SnapshotReservations(ctx context.Context, resourceID string, window entities.Interval) ([]entities.Reservation, error) {
	query := `
	SELECT id, resource_id, owner_id, COALESCE(owner_group_id, ''),
	       start_time, end_time, status, COALESCE(series_id, ''), created_at
	FROM reservations
	WHERE resource_id = $1
	  AND status IN ('pending', 'confirmed')
	  AND start_time < $3
	  AND end_time > $2
	ORDER BY start_time
	`
	rows, err := r.q.QueryContext(ctx, query, resourceID, window.Start, window.End)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reservations []entities.Reservation
	for rows.Next() {
		var res entities.Reservation
		if err := rows.Scan(&res.ID, &res.ResourceID, &res.OwnerID, &res.OwnerGroupID,
			&res.Interval.Start, &res.Interval.End, &res.Status, &res.SeriesID, &res.CreatedAt); err != nil {
			return nil, err
		}
		reservations = append(reservations, res)
	}
	return reservations, rows.Err()
}

func (r *BookingRepository) SnapshotMaintenance(ctx context.Context, resourceID string, window entities.Interval) ([]entities.MaintenanceWindow, error) {
	query := `
	SELECT id, resource_id, start_time, end_time, blocks_booking
	FROM maintenance_windows
	WHERE resource_id = $1
	  AND blocks_booking
	  AND start_time < $3
	  AND end_time > $2
	ORDER BY start_time
	`
	rows, err := r.q.QueryContext(ctx, query, resourceID, window.Start, window.End)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var windows []entities.MaintenanceWindow
	for rows.Next() {
		var m entities.MaintenanceWindow
		if err := rows.Scan(&m.ID, &m.ResourceID, &m.Interval.Start, &m.Interval.End, &m.BlocksBooking); err != nil {
			return nil, err
		}
		windows = append(windows, m)
	}
	return windows, rows.Err()
}

func (r *BookingRepository) GetReservation(ctx context.Context, id string) (entities.Reservation, error) {
	query := `
	SELECT id, resource_id, owner_id, COALESCE(owner_group_id, ''),
	       start_time, end_time, status, COALESCE(series_id, ''), created_at
	FROM reservations
	WHERE id = $1
	`
	var res entities.Reservation
	err := r.q.QueryRowContext(ctx, query, id).Scan(&res.ID, &res.ResourceID, &res.OwnerID, &res.OwnerGroupID,
		&res.Interval.Start, &res.Interval.End, &res.Status, &res.SeriesID, &res.CreatedAt)
	if err != nil {
		return entities.Reservation{}, err
	}
	return res, nil
}

func (r *BookingRepository) CreateReservations(ctx context.Context, reservations []entities.Reservation) error {
	query := `
	INSERT INTO reservations
	    (id, resource_id, owner_id, owner_group_id, start_time, end_time, status, series_id, created_at)
	VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, NULLIF($8, ''), $9)
	`
	for _, res := range reservations {
		_, err := r.q.ExecContext(ctx, query, res.ID, res.ResourceID, res.OwnerID, res.OwnerGroupID,
			res.Interval.Start, res.Interval.End, res.Status, res.SeriesID, res.CreatedAt)
		if err != nil {
			return fmt.Errorf("inserting reservation %s: %w", res.ID, err)
		}
	}
	return nil
}

func (r *BookingRepository) UpdateReservationStatus(ctx context.Context, id string, status entities.ReservationStatus) error {
	result, err := r.q.ExecContext(ctx, `UPDATE reservations SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *BookingRepository) ConfirmedPastEnd(ctx context.Context, now time.Time) ([]entities.Reservation, error) {
	query := `
	SELECT id, resource_id, owner_id, COALESCE(owner_group_id, ''),
	       start_time, end_time, status, COALESCE(series_id, ''), created_at
	FROM reservations
	WHERE status = 'confirmed' AND end_time <= $1
	ORDER BY end_time
	`
	rows, err := r.q.QueryContext(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reservations []entities.Reservation
	for rows.Next() {
		var res entities.Reservation
		if err := rows.Scan(&res.ID, &res.ResourceID, &res.OwnerID, &res.OwnerGroupID,
			&res.Interval.Start, &res.Interval.End, &res.Status, &res.SeriesID, &res.CreatedAt); err != nil {
			return nil, err
		}
		reservations = append(reservations, res)
	}
	return reservations, rows.Err()
}

func (r *BookingRepository) ActiveWaitlist(ctx context.Context, resourceID string) ([]entities.WaitingListEntry, error) {
	return r.queryWaitlist(ctx, `
	SELECT id, resource_id, requester_id, start_time, end_time,
	       flexible_start, flexible_duration, priority, created_at, status, expires_at
	FROM waiting_list_entries
	WHERE resource_id = $1 AND status IN ('waiting', 'notified')
	ORDER BY priority DESC, created_at ASC
	`, resourceID)
}

func (r *BookingRepository) AllActiveWaitlist(ctx context.Context) ([]entities.WaitingListEntry, error) {
	return r.queryWaitlist(ctx, `
	SELECT id, resource_id, requester_id, start_time, end_time,
	       flexible_start, flexible_duration, priority, created_at, status, expires_at
	FROM waiting_list_entries
	WHERE status IN ('waiting', 'notified')
	ORDER BY priority DESC, created_at ASC
	`)
}

func (r *BookingRepository) queryWaitlist(ctx context.Context, query string, args ...any) ([]entities.WaitingListEntry, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []entities.WaitingListEntry
	for rows.Next() {
		var e entities.WaitingListEntry
		var expires sql.NullTime
		if err := rows.Scan(&e.ID, &e.ResourceID, &e.RequesterID,
			&e.DesiredInterval.Start, &e.DesiredInterval.End,
			&e.FlexibleStart, &e.FlexibleDuration, &e.Priority, &e.CreatedAt, &e.Status, &expires); err != nil {
			return nil, err
		}
		if expires.Valid {
			t := expires.Time
			e.ExpiresAt = &t
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *BookingRepository) CreateWaitlistEntry(ctx context.Context, entry entities.WaitingListEntry) error {
	query := `
	INSERT INTO waiting_list_entries
	    (id, resource_id, requester_id, start_time, end_time,
	     flexible_start, flexible_duration, priority, created_at, status, expires_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	var expires any
	if entry.ExpiresAt != nil {
		expires = *entry.ExpiresAt
	}
	_, err := r.q.ExecContext(ctx, query, entry.ID, entry.ResourceID, entry.RequesterID,
		entry.DesiredInterval.Start, entry.DesiredInterval.End,
		entry.FlexibleStart, entry.FlexibleDuration, entry.Priority, entry.CreatedAt, entry.Status, expires)
	return err
}

func (r *BookingRepository) UpdateWaitlistStatus(ctx context.Context, id string, status entities.WaitlistStatus) error {
	result, err := r.q.ExecContext(ctx, `UPDATE waiting_list_entries SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *BookingRepository) RecordEvent(ctx context.Context, event approval.Event) error {
	query := `
	INSERT INTO reservation_events (id, reservation_id, from_status, to_status, actor, occurred_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.q.ExecContext(ctx, query, event.ID, event.ReservationID, event.From, event.To, event.Actor, event.At)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResource(row rowScanner) (entities.Resource, error) {
	var res entities.Resource
	var minMinutes, maxMinutes, opens, closes int
	err := row.Scan(&res.ID, &res.Name, &res.Capacity, &minMinutes, &maxMinutes, &opens, &closes, &res.RequiresRiskAssessment)
	if err != nil {
		return entities.Resource{}, err
	}
	res.MinDuration = time.Duration(minMinutes) * time.Minute
	res.MaxDuration = time.Duration(maxMinutes) * time.Minute
	res.OpensAt = entities.TimeOfDay{Hour: opens / 60, Minute: opens % 60}
	res.ClosesAt = entities.TimeOfDay{Hour: closes / 60, Minute: closes % 60}
	return res, nil
}
