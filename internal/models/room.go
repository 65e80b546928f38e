package models

import "time"

type Room struct {
	ID        string    `yaml:"id" json:"id"`
	Name      string    `yaml:"name" json:"name"`
	Building  string    `yaml:"building" json:"building"`
	Floor     int       `yaml:"floor" json:"floor"`
	Type      string    `yaml:"type" json:"type"`
	Capacity  int       `yaml:"capacity" json:"capacity"`
	Equipment []string  `yaml:"equipment" json:"equipment"`
	IsActive  bool      `yaml:"is_active" json:"is_active"`
	CreatedAt time.Time `yaml:"-" json:"created_at"`
	UpdatedAt time.Time `yaml:"-" json:"updated_at"`
}

func IsValidRoomType(t string) bool {
	switch t {
	case RoomTypeClassroom, RoomTypeLab, RoomTypeSeminarHall, RoomTypeMeetingRoom:
		return true
	}
	return false
}

// InCapacityBand matches the catalog filter: small <= 20, medium 21-50, large > 50.
// An empty band matches every room.
func (r Room) InCapacityBand(band string) bool {
	switch band {
	case "":
		return true
	case CapacityBandSmall:
		return r.Capacity <= 20
	case CapacityBandMedium:
		return r.Capacity > 20 && r.Capacity <= 50
	case CapacityBandLarge:
		return r.Capacity > 50
	}
	return false
}

// RoomFilter narrows catalog listings.
type RoomFilter struct {
	Type         string
	CapacityBand string
	IncludeAll   bool
}
