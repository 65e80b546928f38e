package database

import (
	"context"
	"testing"

	"roombook/internal/domain"
	"roombook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRooms(t *testing.T) {
	db := setupTestDB(t)
	seedRooms(t, db)
	ctx := context.Background()

	t.Run("GetRoom", func(t *testing.T) {
		room, err := db.GetRoom(ctx, labID)
		require.NoError(t, err)
		assert.Equal(t, "Lab-1", room.Name)
		assert.Equal(t, 30, room.Capacity)
		assert.Equal(t, []string{"projector"}, room.Equipment)
		assert.True(t, room.IsActive)
	})

	t.Run("GetRoomNotFound", func(t *testing.T) {
		_, err := db.GetRoom(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("EmptyEquipmentRoundTrip", func(t *testing.T) {
		room, err := db.GetRoom(ctx, hallID)
		require.NoError(t, err)
		assert.Empty(t, room.Equipment)
	})

	t.Run("ListRoomsByType", func(t *testing.T) {
		rooms, err := db.ListRooms(ctx, models.RoomFilter{Type: models.RoomTypeLab})
		require.NoError(t, err)
		require.Len(t, rooms, 1)
		assert.Equal(t, labID, rooms[0].ID)
	})

	t.Run("ListRoomsByCapacityBand", func(t *testing.T) {
		rooms, err := db.ListRooms(ctx, models.RoomFilter{CapacityBand: models.CapacityBandLarge})
		require.NoError(t, err)
		require.Len(t, rooms, 1)
		assert.Equal(t, hallID, rooms[0].ID)
	})

	t.Run("UpsertDeactivates", func(t *testing.T) {
		hall, err := db.GetRoom(ctx, hallID)
		require.NoError(t, err)
		hall.IsActive = false
		hall.Capacity = 100
		require.NoError(t, db.UpsertRoom(ctx, hall))

		active, err := db.ListRooms(ctx, models.RoomFilter{})
		require.NoError(t, err)
		assert.Len(t, active, 1)

		all, err := db.ListRooms(ctx, models.RoomFilter{IncludeAll: true})
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "Hall-A", all[0].Name)
		assert.Equal(t, 100, all[0].Capacity)
	})
}

func TestUpsertRoomNil(t *testing.T) {
	db := setupTestDB(t)
	assert.Error(t, db.UpsertRoom(context.Background(), nil))
}
