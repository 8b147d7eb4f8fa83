package models

import "time"

type PaikkalaRoom struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

type PaikkalaZone struct {
	ID     int64  `db:"id" json:"id"`
	RoomID int64  `db:"room_id" json:"room_id"`
	Name   string `db:"name" json:"name"`
}

type PaikkalaRow struct {
	ID        int64  `db:"id" json:"id"`
	ZoneID    int64  `db:"zone_id" json:"zone_id"`
	Name      string `db:"name" json:"name"`
	StartSeat int    `db:"start_number" json:"start_number"`
	EndSeat   int    `db:"end_number" json:"end_number"`
}

func (r PaikkalaRow) Capacity() int { return r.EndSeat - r.StartSeat + 1 }

type PaikkalaProgram struct {
	ID                  int64      `db:"id" json:"id"`
	EventName           string     `db:"event_name" json:"event_name"`
	Name                string     `db:"name" json:"name"`
	RoomID              int64      `db:"room_id" json:"room_id"`
	RequireUser         bool       `db:"require_user" json:"require_user"`
	ReservationStart    *time.Time `db:"reservation_start" json:"reservation_start"`
	ReservationEnd      time.Time  `db:"reservation_end" json:"reservation_end"`
	InvalidAfter        time.Time  `db:"invalid_after" json:"invalid_after"`
	MaxTickets          int        `db:"max_tickets" json:"max_tickets"`
	AutomaticMaxTickets bool       `db:"automatic_max_tickets" json:"automatic_max_tickets"`
	MaxTicketsPerUser   int        `db:"max_tickets_per_user" json:"max_tickets_per_user"`
	MaxTicketsPerBatch  int        `db:"max_tickets_per_batch" json:"max_tickets_per_batch"`
}

// IsReservable reports whether seats can be reserved at t.
func (p PaikkalaProgram) IsReservable(t time.Time) bool {
	if p.ReservationStart != nil && t.Before(*p.ReservationStart) {
		return false
	}
	return t.Before(p.ReservationEnd)
}
