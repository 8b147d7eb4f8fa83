package paikkala

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kompassi/kompassi/internal/models"
)

// ErrCannotPaikkalize is returned when a programme opts into reservable seats but lacks a
// room with a seating schema, a start time or a length.
var ErrCannotPaikkalize = errors.New("programme cannot offer reservable seats")

// Program names are limited by the reservation system.
const programNameMaxLength = 64

type Store interface {
	// LockProgramme reads the programme with a row lock held until the transaction ends.
	LockProgramme(ctx context.Context, id int64) (models.Programme, error)
	GetRoom(ctx context.Context, id int64) (models.Room, error)
	ProgrammeEvent(ctx context.Context, programmeID int64) (models.Event, error)
	ProgrammeEventMeta(ctx context.Context, eventID int64) (models.ProgrammeEventMeta, error)

	CreatePaikkalaRoom(ctx context.Context, name string, zones []ZoneSpec) (int64, error)
	SetRoomPaikkalaRoom(ctx context.Context, roomID, paikkalaRoomID int64) error
	CreatePaikkalaProgram(ctx context.Context, p *models.PaikkalaProgram) error
	AttachRoomRows(ctx context.Context, programID, paikkalaRoomID int64) error
	SetProgrammePaikkalaProgram(ctx context.Context, programmeID, programID int64) error
	GetPaikkalaProgram(ctx context.Context, id int64) (models.PaikkalaProgram, error)
}

// TxStore runs fn against a Store bound to a single transaction.
type TxStore interface {
	InTx(ctx context.Context, fn func(Store) error) error
}

type Provisioner struct {
	store TxStore
	log   *zap.Logger
}

func NewProvisioner(store TxStore, log *zap.Logger) *Provisioner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Provisioner{store: store, log: log}
}

// Paikkalize returns the programme's reservation program, creating it on first use.
// It returns nil when the programme does not use reservable seats.
func (p *Provisioner) Paikkalize(ctx context.Context, programmeID int64) (*models.PaikkalaProgram, error) {
	var out *models.PaikkalaProgram
	err := p.store.InTx(ctx, func(s Store) error {
		prog, err := s.LockProgramme(ctx, programmeID)
		if err != nil {
			return err
		}
		if !prog.IsUsingPaikkala {
			return nil
		}
		if prog.PaikkalaProgramID != nil {
			existing, err := s.GetPaikkalaProgram(ctx, *prog.PaikkalaProgramID)
			if err != nil {
				return err
			}
			out = &existing
			return nil
		}

		var room *models.Room
		if prog.RoomID != nil {
			r, err := s.GetRoom(ctx, *prog.RoomID)
			if err != nil {
				return err
			}
			room = &r
		}
		if room == nil || !room.HasPaikkalaSchema() || prog.StartTime == nil || prog.Length == nil || prog.EndTime == nil {
			return fmt.Errorf("%w: programme %d", ErrCannotPaikkalize, prog.ID)
		}

		paikkalaRoomID, err := p.ensureRoom(ctx, s, room)
		if err != nil {
			return err
		}

		ev, err := s.ProgrammeEvent(ctx, prog.ID)
		if err != nil {
			return err
		}
		meta, err := s.ProgrammeEventMeta(ctx, ev.ID)
		if err != nil {
			return err
		}

		program := &models.PaikkalaProgram{
			EventName:           ev.Name,
			Name:                truncateChars(prog.Title, programNameMaxLength),
			RoomID:              paikkalaRoomID,
			RequireUser:         true,
			ReservationEnd:      *prog.StartTime,
			InvalidAfter:        *prog.EndTime,
			MaxTickets:          0,
			AutomaticMaxTickets: true,
			MaxTicketsPerUser:   meta.PaikkalaDefaultMaxTicketsPerUser,
			MaxTicketsPerBatch:  meta.PaikkalaDefaultMaxTicketsPerBatch,
		}
		if err := s.CreatePaikkalaProgram(ctx, program); err != nil {
			return err
		}
		if err := s.SetProgrammePaikkalaProgram(ctx, prog.ID, program.ID); err != nil {
			return err
		}
		if err := s.AttachRoomRows(ctx, program.ID, paikkalaRoomID); err != nil {
			return err
		}

		p.log.Info("paikkala program created",
			zap.Int64("programme_id", prog.ID),
			zap.Int64("paikkala_program_id", program.ID),
			zap.String("room", room.Name))
		out = program
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ensureRoom creates the reservation room and its rows from the room's schema once.
func (p *Provisioner) ensureRoom(ctx context.Context, s Store, room *models.Room) (int64, error) {
	if room.PaikkalaRoomID != nil {
		return *room.PaikkalaRoomID, nil
	}
	schema, ok := Lookup(room.PaikkalaSchema)
	if !ok {
		return 0, fmt.Errorf("%w: unknown seating schema %q", ErrCannotPaikkalize, room.PaikkalaSchema)
	}
	id, err := s.CreatePaikkalaRoom(ctx, room.Name, schema.Zones)
	if err != nil {
		return 0, err
	}
	if err := s.SetRoomPaikkalaRoom(ctx, room.ID, id); err != nil {
		return 0, err
	}
	room.PaikkalaRoomID = &id
	return id, nil
}

func truncateChars(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
