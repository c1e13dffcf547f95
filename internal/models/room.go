package models

import (
	"time"

	"github.com/lib/pq"
)

// RoomType classifies rooms by comfort level.
type RoomType string

const (
	RoomTypeStandard RoomType = "standard"
	RoomTypeVIP      RoomType = "vip"
	RoomTypeDeluxe   RoomType = "deluxe"
)

// RoomStatus is the occupancy state of a room. Maintenance is a manual
// override: occupancy recomputation never flips a room out of it.
type RoomStatus string

const (
	RoomStatusAvailable   RoomStatus = "available"
	RoomStatusOccupied    RoomStatus = "occupied"
	RoomStatusMaintenance RoomStatus = "maintenance"
)

// Room represents a dormitory room.
type Room struct {
	ID               string         `db:"id" json:"id"`
	RoomNumber       string         `db:"room_number" json:"room_number"`
	Building         string         `db:"building" json:"building"`
	Floor            int            `db:"floor" json:"floor"`
	Type             RoomType       `db:"type" json:"type"`
	Capacity         int            `db:"capacity" json:"capacity"`
	CurrentOccupancy int            `db:"current_occupancy" json:"current_occupancy"`
	PricePerSemester int64          `db:"price_per_semester" json:"price_per_semester"`
	Amenities        pq.StringArray `db:"amenities" json:"amenities"`
	Status           RoomStatus     `db:"status" json:"status"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}

// OccupancyStatus derives the room status for a given occupancy: occupied
// once occupancy reaches capacity, otherwise available. A maintenance room
// keeps its override.
func OccupancyStatus(current RoomStatus, occupancy, capacity int) RoomStatus {
	if current == RoomStatusMaintenance {
		return current
	}
	if occupancy >= capacity {
		return RoomStatusOccupied
	}
	return RoomStatusAvailable
}

// RoomFilter captures filtering criteria for listing rooms.
type RoomFilter struct {
	Status    *RoomStatus
	Type      *RoomType
	Building  string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// RoomStatusCounts aggregates rooms per status for listing headers.
type RoomStatusCounts struct {
	Available   int `db:"available" json:"available"`
	Occupied    int `db:"occupied" json:"occupied"`
	Maintenance int `db:"maintenance" json:"maintenance"`
}
