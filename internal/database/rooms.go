package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"roombook/internal/models"
)

const roomColumns = `id, name, building, floor, type, capacity, equipment, is_active, created_at, updated_at`

// UpsertRoom inserts a room or refreshes its catalog fields.
func (db *DB) UpsertRoom(ctx context.Context, room *models.Room) error {
	if room == nil {
		return fmt.Errorf("room is nil")
	}
	equipment, err := json.Marshal(nonNil(room.Equipment))
	if err != nil {
		return fmt.Errorf("encode equipment: %w", err)
	}

	now := time.Now()
	query := `INSERT INTO rooms (` + roomColumns + `)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            name = excluded.name,
            building = excluded.building,
            floor = excluded.floor,
            type = excluded.type,
            capacity = excluded.capacity,
            equipment = excluded.equipment,
            is_active = excluded.is_active,
            updated_at = excluded.updated_at`
	_, err = db.ExecContext(ctx, query,
		room.ID, room.Name, room.Building, room.Floor, room.Type, room.Capacity,
		string(equipment), room.IsActive, now, now,
	)
	if err != nil {
		return storeErr("upsert room", err)
	}
	if room.CreatedAt.IsZero() {
		room.CreatedAt = now
	}
	room.UpdatedAt = now
	return nil
}

// SyncRooms upserts the configured catalog in one transaction.
func (db *DB) SyncRooms(ctx context.Context, rooms []models.Room) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("begin sync rooms", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now()
	for i := range rooms {
		r := rooms[i]
		equipment, err := json.Marshal(nonNil(r.Equipment))
		if err != nil {
			return fmt.Errorf("encode equipment for %s: %w", r.ID, err)
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO rooms (`+roomColumns+`)
            VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
            ON CONFLICT(id) DO UPDATE SET
                name = excluded.name, building = excluded.building, floor = excluded.floor,
                type = excluded.type, capacity = excluded.capacity, equipment = excluded.equipment,
                is_active = excluded.is_active, updated_at = excluded.updated_at`,
			r.ID, r.Name, r.Building, r.Floor, r.Type, r.Capacity, string(equipment), r.IsActive, now, now)
		if err != nil {
			return storeErr("sync room "+r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return storeErr("commit sync rooms", err)
	}
	db.logger.Info().Int("count", len(rooms)).Msg("Rooms synchronized")
	return nil
}

func (db *DB) GetRoom(ctx context.Context, id string) (*models.Room, error) {
	row := db.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = ?`, id)
	room, err := scanRoom(row)
	if err != nil {
		return nil, storeErr("get room", err)
	}
	return room, nil
}

// ListRooms returns active rooms matching the filter, ordered by name.
func (db *DB) ListRooms(ctx context.Context, filter models.RoomFilter) ([]*models.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms WHERE 1 = 1`
	var args []any
	if !filter.IncludeAll {
		query += ` AND is_active = 1`
	}
	if filter.Type != "" {
		query += ` AND type = ?`
		args = append(args, filter.Type)
	}
	query += ` ORDER BY name ASC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("list rooms", err)
	}
	defer rows.Close()

	var rooms []*models.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, storeErr("scan room", err)
		}
		if !room.InCapacityBand(filter.CapacityBand) {
			continue
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list rooms", err)
	}
	return rooms, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoom(row rowScanner) (*models.Room, error) {
	var (
		room      models.Room
		equipment string
	)
	err := row.Scan(
		&room.ID, &room.Name, &room.Building, &room.Floor, &room.Type, &room.Capacity,
		&equipment, &room.IsActive, &room.CreatedAt, &room.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(equipment), &room.Equipment); err != nil {
		return nil, fmt.Errorf("decode equipment for room %s: %w", room.ID, err)
	}
	return &room, nil
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
