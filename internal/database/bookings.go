package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"roombook/internal/domain"
	"roombook/internal/models"
)

const bookingColumns = `id, room_id, user_id, title, purpose, date, start_time, end_time,
                 attendees_count, status, qr_code, checked_in_at, checked_out_at,
                 created_at, updated_at, version`

// CreateBookingWithLock re-checks the room for overlapping active bookings and
// inserts inside one immediate transaction.
func (db *DB) CreateBookingWithLock(ctx context.Context, booking *models.Booking) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("begin create booking", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// 1. Check overlap inside transaction
	queryOverlap := `SELECT id FROM bookings
        WHERE room_id = ? AND date = ? AND status IN (` + placeholders(len(models.ActiveStatuses)) + `)
          AND start_time < ? AND end_time > ?
        LIMIT 1`
	args := []any{booking.RoomID, booking.Date}
	args = append(args, statusArgs(models.ActiveStatuses)...)
	args = append(args, booking.EndTime, booking.StartTime)

	var existingID string
	err = tx.QueryRowContext(ctx, queryOverlap, args...).Scan(&existingID)
	switch {
	case err == nil:
		return fmt.Errorf("%w: overlaps booking %s", domain.ErrConflict, existingID)
	case !errors.Is(err, sql.ErrNoRows):
		return storeErr("check overlap in tx", err)
	}

	// 2. Create booking
	now := time.Now()
	queryInsert := `INSERT INTO bookings (` + bookingColumns + `)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, queryInsert,
		booking.ID,
		booking.RoomID,
		booking.UserID,
		booking.Title,
		booking.Purpose,
		booking.Date,
		booking.StartTime,
		booking.EndTime,
		booking.AttendeesCount,
		booking.Status,
		booking.QRCode,
		nullTime(booking.CheckedInAt),
		nullTime(booking.CheckedOutAt),
		now,
		now,
		1,
	)
	if err != nil {
		return storeErr("insert booking in tx", err)
	}

	if err := tx.Commit(); err != nil {
		return storeErr("commit booking", err)
	}

	booking.CreatedAt = now
	booking.UpdatedAt = now
	booking.Version = 1
	return nil
}

func (db *DB) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	row := db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	b, err := scanBooking(row)
	if err != nil {
		return nil, storeErr("get booking", err)
	}
	return b, nil
}

// GetBookingByCode matches on code and owner together; a foreign code is
// indistinguishable from an unknown one.
func (db *DB) GetBookingByCode(ctx context.Context, code, userID string) (*models.Booking, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE qr_code = ? AND user_id = ?`, code, userID)
	b, err := scanBooking(row)
	if err != nil {
		return nil, storeErr("get booking by code", err)
	}
	return b, nil
}

// GetActiveBookings returns the bookings that occupy a room on a date.
func (db *DB) GetActiveBookings(ctx context.Context, roomID, date string) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
        WHERE room_id = ? AND date = ? AND status IN (` + placeholders(len(models.ActiveStatuses)) + `)
        ORDER BY start_time ASC`
	args := append([]any{roomID, date}, statusArgs(models.ActiveStatuses)...)
	return db.queryBookings(ctx, "get active bookings", query, args...)
}

func (db *DB) GetActiveBookingsByDate(ctx context.Context, date string) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
        WHERE date = ? AND status IN (` + placeholders(len(models.ActiveStatuses)) + `)
        ORDER BY room_id ASC, start_time ASC`
	args := append([]any{date}, statusArgs(models.ActiveStatuses)...)
	return db.queryBookings(ctx, "get active bookings by date", query, args...)
}

func (db *DB) GetUserBookings(ctx context.Context, userID string) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
        WHERE user_id = ? ORDER BY date DESC, start_time DESC`
	return db.queryBookings(ctx, "get user bookings", query, userID)
}

func (db *DB) GetBookingsByDateRange(ctx context.Context, from, to string) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
        WHERE date >= ? AND date <= ? ORDER BY date ASC, start_time ASC`
	return db.queryBookings(ctx, "get bookings by date range", query, from, to)
}

// GetReleaseCandidates returns reservations on date that started before the given time
// and were never checked in.
func (db *DB) GetReleaseCandidates(ctx context.Context, date string, before models.TimeOfDay) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
        WHERE date = ? AND start_time < ? AND status IN (` + placeholders(len(models.ReservedStatuses)) + `)
        ORDER BY start_time ASC`
	args := append([]any{date, before}, statusArgs(models.ReservedStatuses)...)
	return db.queryBookings(ctx, "get release candidates", query, args...)
}

// ApplyStatusChange moves a booking out of one of change.From and records the
// audit event in the same transaction.
func (db *DB) ApplyStatusChange(ctx context.Context, change models.StatusChange) error {
	if len(change.From) == 0 {
		return fmt.Errorf("status change for %s has no source states", change.BookingID)
	}
	at := change.At
	if at.IsZero() {
		at = time.Now()
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("begin status change", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `UPDATE bookings SET
            status = ?,
            checked_in_at = COALESCE(?, checked_in_at),
            checked_out_at = COALESCE(?, checked_out_at),
            updated_at = ?,
            version = version + 1
        WHERE id = ? AND status IN (` + placeholders(len(change.From)) + `)`
	args := []any{change.To, nullTime(change.CheckedInAt), nullTime(change.CheckedOutAt), at, change.BookingID}
	args = append(args, statusArgs(change.From)...)

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return storeErr("update booking status", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return storeErr("update booking status", err)
	}
	if rows == 0 {
		return ErrConcurrentModification
	}

	if change.Audit != nil {
		if change.Audit.CreatedAt.IsZero() {
			change.Audit.CreatedAt = at
		}
		if err := insertAuditEvent(ctx, tx, change.Audit); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return storeErr("commit status change", err)
	}
	return nil
}

func (db *DB) queryBookings(ctx context.Context, op, query string, args ...any) ([]*models.Booking, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr(op, err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, storeErr(op+": scan", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(op, err)
	}
	return bookings, nil
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	var (
		b          models.Booking
		checkedIn  sql.NullTime
		checkedOut sql.NullTime
	)
	err := row.Scan(
		&b.ID, &b.RoomID, &b.UserID, &b.Title, &b.Purpose, &b.Date, &b.StartTime, &b.EndTime,
		&b.AttendeesCount, &b.Status, &b.QRCode, &checkedIn, &checkedOut,
		&b.CreatedAt, &b.UpdatedAt, &b.Version,
	)
	if err != nil {
		return nil, err
	}
	if checkedIn.Valid {
		t := checkedIn.Time
		b.CheckedInAt = &t
	}
	if checkedOut.Valid {
		t := checkedOut.Time
		b.CheckedOutAt = &t
	}
	return &b, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func statusArgs(statuses []string) []any {
	out := make([]any, len(statuses))
	for i, s := range statuses {
		out[i] = s
	}
	return out
}
