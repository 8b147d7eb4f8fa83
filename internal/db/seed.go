package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/kompassi/kompassi/internal/models"
)

// SeedDemoEvent creates an event with every app installed, the usual personnel classes,
// a programme category and a room with reservable seats. Existing events are left as is.
func (s *Store) SeedDemoEvent(ctx context.Context, slug, name string) (models.Event, error) {
	if ev, err := s.EventBySlug(ctx, slug); err == nil {
		return ev, nil
	} else if !errors.Is(err, ErrNotFound) {
		return models.Event{}, err
	}

	var ev models.Event
	err := s.inTx(ctx, func(tx *Store) error {
		ev = models.Event{Slug: slug, Name: name}
		if err := tx.CreateEvent(ctx, &ev); err != nil {
			return err
		}
		if err := tx.EnableProgramme(ctx, models.ProgrammeEventMeta{
			EventID: ev.ID, PaikkalaDefaultMaxTicketsPerUser: 5, PaikkalaDefaultMaxTicketsPerBatch: 5,
		}); err != nil {
			return err
		}
		if err := tx.EnableBadges(ctx, models.BadgesEventMeta{EventID: ev.ID}); err != nil {
			return err
		}
		if err := tx.EnableLabour(ctx, models.LabourEventMeta{EventID: ev.ID, SignupExtraSchema: "programme"}); err != nil {
			return err
		}

		classes := []models.PersonnelClass{
			{Slug: "vastaava", Name: "Vastaava", AppLabel: "labour", Priority: 0},
			{Slug: "tyovoima", Name: "Työvoima", AppLabel: "labour", Priority: 30},
			{Slug: "ohjelma", Name: "Ohjelmanjärjestäjä", AppLabel: "programme", Priority: 40},
		}
		for i := range classes {
			classes[i].EventID = ev.ID
			if err := tx.CreatePersonnelClass(ctx, &classes[i]); err != nil {
				return fmt.Errorf("personnel class %s: %w", classes[i].Slug, err)
			}
		}
		if err := tx.CreateRole(ctx, &models.Role{
			PersonnelClassID: classes[2].ID, Title: "Ohjelmanjärjestäjä", IsPublic: true, IsDefault: true, RequireContactInfo: true,
		}); err != nil {
			return err
		}

		if err := tx.CreateCategory(ctx, &models.Category{EventID: ev.ID, Slug: "luento", Title: "Luento", Public: true}); err != nil {
			return err
		}
		if err := tx.CreateRoom(ctx, &models.Room{EventID: ev.ID, Slug: "pieni-sali", Name: "Pieni sali", PaikkalaSchema: "tampere-talo/pieni-sali"}); err != nil {
			return err
		}

		for _, suffix := range []string{"admins", "hosts"} {
			if _, err := tx.EnsureGroup(ctx, models.GroupName(slug, "programme", suffix)); err != nil {
				return err
			}
		}
		return nil
	})
	return ev, err
}
