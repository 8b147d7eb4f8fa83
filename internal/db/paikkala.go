package db

import (
	"context"

	"github.com/kompassi/kompassi/internal/models"
	"github.com/kompassi/kompassi/internal/paikkala"
)

// CreatePaikkalaRoom creates a reservation room with the zones and rows of a seating schema.
func (s *Store) CreatePaikkalaRoom(ctx context.Context, name string, zones []paikkala.ZoneSpec) (int64, error) {
	var roomID int64
	err := s.inTx(ctx, func(tx *Store) error {
		if err := tx.q.QueryRowContext(ctx, `
			INSERT INTO paikkala_rooms (name) VALUES ($1) RETURNING id
		`, name).Scan(&roomID); err != nil {
			return err
		}
		for _, z := range zones {
			var zoneID int64
			if err := tx.q.QueryRowContext(ctx, `
				INSERT INTO paikkala_zones (room_id, name) VALUES ($1, $2) RETURNING id
			`, roomID, z.Name).Scan(&zoneID); err != nil {
				return err
			}
			for _, r := range z.Rows {
				if _, err := tx.q.ExecContext(ctx, `
					INSERT INTO paikkala_rows (zone_id, name, start_number, end_number)
					VALUES ($1, $2, $3, $4)
				`, zoneID, r.Name, r.StartSeat, r.EndSeat); err != nil {
					return err
				}
			}
		}
		return nil
	})
	return roomID, err
}

func (s *Store) SetRoomPaikkalaRoom(ctx context.Context, roomID, paikkalaRoomID int64) error {
	return affectedOne(s.q.ExecContext(ctx, `
		UPDATE rooms SET paikkala_room_id = $2 WHERE id = $1
	`, roomID, paikkalaRoomID))
}

func (s *Store) CreatePaikkalaProgram(ctx context.Context, p *models.PaikkalaProgram) error {
	return s.q.QueryRowContext(ctx, `
		INSERT INTO paikkala_programs (
			event_name, name, room_id, require_user, reservation_start, reservation_end,
			invalid_after, max_tickets, automatic_max_tickets, max_tickets_per_user, max_tickets_per_batch
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`, p.EventName, p.Name, p.RoomID, p.RequireUser, p.ReservationStart, p.ReservationEnd,
		p.InvalidAfter, p.MaxTickets, p.AutomaticMaxTickets, p.MaxTicketsPerUser, p.MaxTicketsPerBatch,
	).Scan(&p.ID)
}

// AttachRoomRows opens every row of the reservation room for the program.
func (s *Store) AttachRoomRows(ctx context.Context, programID, paikkalaRoomID int64) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO paikkala_program_rows (program_id, row_id)
		SELECT $1, r.id
		FROM paikkala_rows r JOIN paikkala_zones z ON z.id = r.zone_id
		WHERE z.room_id = $2
		ON CONFLICT DO NOTHING
	`, programID, paikkalaRoomID)
	return err
}

func (s *Store) SetProgrammePaikkalaProgram(ctx context.Context, programmeID, programID int64) error {
	return affectedOne(s.q.ExecContext(ctx, `
		UPDATE programmes SET paikkala_program_id = $2 WHERE id = $1
	`, programmeID, programID))
}

func (s *Store) GetPaikkalaProgram(ctx context.Context, id int64) (models.PaikkalaProgram, error) {
	var p models.PaikkalaProgram
	err := s.q.QueryRowContext(ctx, `
		SELECT id, event_name, name, room_id, require_user, reservation_start, reservation_end,
			invalid_after, max_tickets, automatic_max_tickets, max_tickets_per_user, max_tickets_per_batch
		FROM paikkala_programs WHERE id = $1
	`, id).Scan(&p.ID, &p.EventName, &p.Name, &p.RoomID, &p.RequireUser, &p.ReservationStart, &p.ReservationEnd,
		&p.InvalidAfter, &p.MaxTickets, &p.AutomaticMaxTickets, &p.MaxTicketsPerUser, &p.MaxTicketsPerBatch)
	return p, notFound(err)
}

// PaikkalaProgramSeats counts the seats open for reservation in a program.
func (s *Store) PaikkalaProgramSeats(ctx context.Context, programID int64) (int, error) {
	var n int
	err := s.q.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(r.end_number - r.start_number + 1), 0)
		FROM paikkala_program_rows pr JOIN paikkala_rows r ON r.id = pr.row_id
		WHERE pr.program_id = $1
	`, programID).Scan(&n)
	return n, err
}
