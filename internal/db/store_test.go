//go:build testutil
// +build testutil

package db_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kompassi/kompassi/internal/badges"
	"github.com/kompassi/kompassi/internal/db"
	"github.com/kompassi/kompassi/internal/enrollment"
	"github.com/kompassi/kompassi/internal/labour"
	"github.com/kompassi/kompassi/internal/mailings"
	"github.com/kompassi/kompassi/internal/models"
	"github.com/kompassi/kompassi/internal/paikkala"
	"github.com/kompassi/kompassi/internal/programme"
	"github.com/kompassi/kompassi/internal/testutil/testdb"
)

type fixture struct {
	store    *db.Store
	event    models.Event
	category models.Category
	room     models.Room
	role     models.Role
	manager  *programme.Manager
}

func setup(t *testing.T) (*fixture, func()) {
	t.Helper()
	ctx := context.Background()
	h, err := testdb.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	store := db.New(h.DB)

	ev, err := store.SeedDemoEvent(ctx, "tracon2024", "Tracon 2024")
	if err != nil {
		h.Close()
		t.Fatal(err)
	}

	f := &fixture{store: store, event: ev}
	if err := h.DB.QueryRowContext(ctx, `SELECT id, event_id, slug, title, public FROM categories WHERE event_id = $1`, ev.ID).
		Scan(&f.category.ID, &f.category.EventID, &f.category.Slug, &f.category.Title, &f.category.Public); err != nil {
		h.Close()
		t.Fatal(err)
	}
	if err := h.DB.QueryRowContext(ctx, `SELECT id FROM rooms WHERE event_id = $1`, ev.ID).Scan(&f.room.ID); err != nil {
		h.Close()
		t.Fatal(err)
	}
	if err := h.DB.QueryRowContext(ctx, `SELECT id, personnel_class_id FROM roles LIMIT 1`).Scan(&f.role.ID, &f.role.PersonnelClassID); err != nil {
		h.Close()
		t.Fatal(err)
	}

	log := zap.NewNop()
	f.manager = programme.NewManager(programme.Deps{
		Store:  store,
		Seats:  paikkala.NewProvisioner(store, log),
		Extras: labour.NewService(store, log),
		Badges: badges.NewService(store, log),
		Groups: store,
		Log:    log,
	})
	return f, h.Close
}

func (f *fixture) person(t *testing.T, username, first string) models.Person {
	t.Helper()
	ctx := context.Background()
	u := models.User{Username: username}
	if err := f.store.CreateUser(ctx, &u); err != nil {
		t.Fatal(err)
	}
	p := models.Person{FirstName: first, Surname: "Testaaja", Email: username + "@example.com", UserID: &u.ID}
	if err := f.store.CreatePerson(ctx, &p); err != nil {
		t.Fatal(err)
	}
	return p
}

func (f *fixture) hostsGroups(t *testing.T, p models.Person) bool {
	t.Helper()
	groups, err := f.store.UserGroups(context.Background(), *p.UserID)
	if err != nil {
		t.Fatal(err)
	}
	for _, g := range groups {
		if g == "tracon2024-programme-hosts" {
			return true
		}
	}
	return false
}

func TestProgrammeLifecycle(t *testing.T) {
	f, done := setup(t)
	defer done()
	ctx := context.Background()

	host := f.person(t, "aino", "Aino")
	start := time.Date(2024, 9, 7, 12, 0, 0, 0, time.UTC)
	length := 45
	p := models.Programme{
		CategoryID: f.category.ID,
		Title:      "Cosplayn historia",
		State:      models.StatePublished,
		StartTime:  &start,
		Length:     &length,
		RoomID:     &f.room.ID,
	}
	if err := f.manager.Save(ctx, &p, []models.ProgrammeRole{{PersonID: host.ID, RoleID: f.role.ID}}); err != nil {
		t.Fatal(err)
	}

	stored, err := f.store.GetProgramme(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Slug != "cosplayn-historia" || stored.EndTime == nil || !stored.EndTime.Equal(start.Add(45*time.Minute)) {
		t.Fatalf("programme = %+v", stored)
	}

	roles, _ := f.store.ProgrammeRoles(ctx, p.ID)
	if len(roles) != 1 || !roles[0].IsActive {
		t.Fatalf("roles = %+v", roles)
	}
	badge, err := f.store.PersonBadge(ctx, f.event.ID, host.ID)
	if err != nil {
		t.Fatalf("badge: %v", err)
	}
	if badge.JobTitle != "Ohjelmanjärjestäjä" {
		t.Fatalf("badge = %+v", badge)
	}
	extra, err := f.store.SignupExtra(ctx, f.event.ID, host.ID)
	if err != nil || !extra.IsActive {
		t.Fatalf("signup extra = %+v, %v", extra, err)
	}
	if !f.hostsGroups(t, host) {
		t.Fatal("host should be in the hosts group")
	}

	if _, err := f.manager.Transition(ctx, p.ID, models.StateCancelled); err != nil {
		t.Fatal(err)
	}
	roles, _ = f.store.ProgrammeRoles(ctx, p.ID)
	if roles[0].IsActive {
		t.Fatal("cancelled programme keeps inactive roles")
	}
	if _, err := f.store.PersonBadge(ctx, f.event.ID, host.ID); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("badge should be removed, got %v", err)
	}
	extra, _ = f.store.SignupExtra(ctx, f.event.ID, host.ID)
	if extra.IsActive {
		t.Fatal("signup extra should be deactivated")
	}
	if f.hostsGroups(t, host) {
		t.Fatal("host should be removed from the hosts group")
	}
}

func TestRemovedOrganizerLosesBadge(t *testing.T) {
	f, done := setup(t)
	defer done()
	ctx := context.Background()

	a := f.person(t, "aino", "Aino")
	b := f.person(t, "eino", "Eino")
	p := models.Programme{CategoryID: f.category.ID, Title: "Paneeli", State: models.StateAccepted}
	roles := []models.ProgrammeRole{{PersonID: a.ID, RoleID: f.role.ID}, {PersonID: b.ID, RoleID: f.role.ID}}
	if err := f.manager.Save(ctx, &p, roles); err != nil {
		t.Fatal(err)
	}
	if err := f.manager.Save(ctx, &p, roles[:1]); err != nil {
		t.Fatal(err)
	}

	if _, err := f.store.PersonBadge(ctx, f.event.ID, a.ID); err != nil {
		t.Fatalf("remaining organizer keeps the badge: %v", err)
	}
	if _, err := f.store.PersonBadge(ctx, f.event.ID, b.ID); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("removed organizer's badge should be gone, got %v", err)
	}
}

func TestPaikkalizeConcurrent(t *testing.T) {
	f, done := setup(t)
	defer done()
	ctx := context.Background()

	start := time.Date(2024, 9, 7, 14, 0, 0, 0, time.UTC)
	length := 60
	p := models.Programme{
		CategoryID:      f.category.ID,
		Title:           "Kunniavieraan haastattelu",
		State:           models.StateAccepted,
		StartTime:       &start,
		Length:          &length,
		RoomID:          &f.room.ID,
		IsUsingPaikkala: true,
	}
	programme.PrepareSave(&p, time.Now())
	if err := f.store.CreateProgramme(ctx, &p); err != nil {
		t.Fatal(err)
	}

	prov := paikkala.NewProvisioner(f.store, nil)
	ids := make([]int64, 8)
	var wg sync.WaitGroup
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			prog, err := prov.Paikkalize(ctx, p.ID)
			if err != nil {
				t.Error(err)
				return
			}
			ids[i] = prog.ID
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		if id != ids[0] {
			t.Fatalf("paikkalize created several programs: %v", ids)
		}
	}
	prog, err := f.store.GetPaikkalaProgram(ctx, ids[0])
	if err != nil {
		t.Fatal(err)
	}
	if !prog.ReservationEnd.Equal(start) || !prog.InvalidAfter.Equal(start.Add(time.Hour)) {
		t.Fatalf("program = %+v", prog)
	}
	seats, err := f.store.PaikkalaProgramSeats(ctx, prog.ID)
	if err != nil {
		t.Fatal(err)
	}
	if seats != 240 {
		t.Fatalf("seats = %d", seats)
	}
}

func TestEnsureBadgeConcurrent(t *testing.T) {
	f, done := setup(t)
	defer done()
	ctx := context.Background()

	host := f.person(t, "aino", "Aino")
	p := models.Programme{CategoryID: f.category.ID, Title: "Työpaja", State: models.StateAccepted}
	if err := f.store.CreateProgramme(ctx, &p); err != nil {
		t.Fatal(err)
	}
	if _, err := f.store.ReplaceRoles(ctx, p.ID, []models.ProgrammeRole{{PersonID: host.ID, RoleID: f.role.ID}}); err != nil {
		t.Fatal(err)
	}

	svc := badges.NewService(f.store, nil)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Ensure(ctx, f.event.ID, host.ID); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	all, err := f.store.EventBadges(ctx, f.event.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Fatalf("want one badge, got %d", len(all))
	}
}

func TestLabourSignupOutranksProgramme(t *testing.T) {
	f, done := setup(t)
	defer done()
	ctx := context.Background()

	host := f.person(t, "aino", "Aino")
	p := models.Programme{CategoryID: f.category.ID, Title: "Luento", State: models.StateAccepted}
	if err := f.manager.Save(ctx, &p, []models.ProgrammeRole{{PersonID: host.ID, RoleID: f.role.ID}}); err != nil {
		t.Fatal(err)
	}

	lead, err := f.store.PersonnelClassBySlug(ctx, f.event.ID, "vastaava")
	if err != nil {
		t.Fatal(err)
	}
	signup := models.LabourSignup{EventID: f.event.ID, PersonID: host.ID, IsActive: true}
	if err := f.store.SaveLabourSignup(ctx, &signup, []int64{lead.ID}); err != nil {
		t.Fatal(err)
	}

	b, err := badges.NewService(f.store, nil).Ensure(ctx, f.event.ID, host.ID)
	if err != nil {
		t.Fatal(err)
	}
	if b == nil || *b.PersonnelClassID != lead.ID || b.JobTitle != "Vastaava" {
		t.Fatalf("badge = %+v", b)
	}
}

func TestMessageResendToNewRecipients(t *testing.T) {
	f, done := setup(t)
	defer done()
	ctx := context.Background()

	group, err := f.store.EnsureGroup(ctx, "tracon2024-labour-accepted")
	if err != nil {
		t.Fatal(err)
	}
	rg := models.RecipientGroup{EventID: f.event.ID, GroupID: group.ID, AppLabel: "labour", Verbose: "Hyväksytyt"}
	if err := f.store.CreateRecipientGroup(ctx, &rg); err != nil {
		t.Fatal(err)
	}
	a := f.person(t, "aino", "Aino")
	if err := f.store.EnsureGroupMembership(ctx, *a.UserID, []int64{group.ID}, nil); err != nil {
		t.Fatal(err)
	}

	svc := mailings.NewService(f.store, map[models.Channel]mailings.Sender{
		models.ChannelEmail: mailings.LogSender{Log: zap.NewNop()},
	}, nil)
	out, err := svc.Editor(ctx, f.event.ID, 0, mailings.ActionSaveSend, mailings.MessageForm{
		RecipientID: rg.ID, Subject: "Tervetuloa", Body: "Hei!",
	})
	if err != nil {
		t.Fatal(err)
	}

	b := f.person(t, "eino", "Eino")
	if err := f.store.EnsureGroupMembership(ctx, *b.UserID, []int64{group.ID}, nil); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if err := svc.ResendActive(ctx); err != nil {
			t.Fatal(err)
		}
	}

	var n int
	if err := f.store.DB().QueryRowContext(ctx, `
		SELECT count(*) FROM person_messages WHERE message_id = $1 AND delivered_at IS NOT NULL
	`, out.Message.ID).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("deliveries = %d", n)
	}
}

func TestEnrollOnce(t *testing.T) {
	f, done := setup(t)
	defer done()
	ctx := context.Background()

	if err := f.store.EnableEnrollment(ctx, models.EnrollmentEventMeta{EventID: f.event.ID, FormSchema: "enrollment-default"}); err != nil {
		t.Fatal(err)
	}
	a := f.person(t, "aino", "Aino")
	svc := enrollment.NewService(f.store)
	answers := map[string]any{"accept_terms": true}

	if _, err := svc.Enroll(ctx, f.event.ID, a.ID, answers); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Enroll(ctx, f.event.ID, a.ID, answers); !errors.Is(err, enrollment.ErrAlreadyEnrolled) {
		t.Fatalf("want ErrAlreadyEnrolled, got %v", err)
	}

	dup := models.Enrollment{EventID: f.event.ID, PersonID: a.ID, Fields: answers}
	if err := f.store.CreateEnrollment(ctx, &dup); !errors.Is(err, enrollment.ErrAlreadyEnrolled) {
		t.Fatalf("unique index should map to ErrAlreadyEnrolled, got %v", err)
	}
}

func TestSpecialDietsReport(t *testing.T) {
	f, done := setup(t)
	defer done()
	ctx := context.Background()

	if err := f.store.EnableLabour(ctx, models.LabourEventMeta{EventID: f.event.ID, SignupExtraSchema: "aicon2016"}); err != nil {
		t.Fatal(err)
	}
	svc := labour.NewService(f.store, nil)
	answers := map[string]any{"shift_type": "kaikkikay", "total_work": "8h"}

	for _, c := range []struct {
		user, name, other string
		diets             []string
	}{
		{"aino", "Aino", "Ei ole", []string{"Kasvis"}},
		{"eino", "Eino", "Pähkinäallergia", []string{"Kasvis", "Laktoositon"}},
	} {
		p := f.person(t, c.user, c.name)
		if _, err := svc.SaveSignupExtra(ctx, f.event.ID, p.ID, labour.SignupExtraForm{
			Answers: answers, SpecialDiets: c.diets, SpecialDietOther: c.other,
		}); err != nil {
			t.Fatal(err)
		}
	}

	report, err := svc.SpecialDiets(ctx, f.event.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(report.SpecialDiets) != 2 || report.SpecialDiets[0] != (labour.DietRow{Name: "Kasvis", Count: 2}) {
		t.Fatalf("diets = %+v", report.SpecialDiets)
	}
	if len(report.Others) != 1 || report.Others[0].SpecialDietOther != "Pähkinäallergia" {
		t.Fatalf("others = %+v", report.Others)
	}
}

func TestDeliveryClaimLease(t *testing.T) {
	f, done := setup(t)
	defer done()
	ctx := context.Background()

	group, err := f.store.EnsureGroup(ctx, "tracon2024-labour-accepted")
	if err != nil {
		t.Fatal(err)
	}
	rg := models.RecipientGroup{EventID: f.event.ID, GroupID: group.ID, AppLabel: "labour", Verbose: "Hyväksytyt"}
	if err := f.store.CreateRecipientGroup(ctx, &rg); err != nil {
		t.Fatal(err)
	}
	a := f.person(t, "aino", "Aino")
	if err := f.store.EnsureGroupMembership(ctx, *a.UserID, []int64{group.ID}, nil); err != nil {
		t.Fatal(err)
	}
	now := time.Now()
	m := models.Message{RecipientID: rg.ID, Channel: models.ChannelEmail, Body: "Hei!", SentAt: &now}
	if err := f.store.CreateMessage(ctx, &m); err != nil {
		t.Fatal(err)
	}

	claim := func(at time.Time) bool {
		t.Helper()
		ok, err := f.store.ClaimDelivery(ctx, m.ID, a.ID, at, at.Add(-10*time.Minute))
		if err != nil {
			t.Fatal(err)
		}
		return ok
	}
	pending := func() int {
		t.Helper()
		people, err := f.store.PendingRecipients(ctx, m.ID)
		if err != nil {
			t.Fatal(err)
		}
		return len(people)
	}

	if !claim(now) {
		t.Fatal("first claim should succeed")
	}
	if claim(now.Add(time.Minute)) {
		t.Fatal("fresh claim must not be taken over")
	}
	if pending() != 1 {
		t.Fatal("claimed but undelivered recipient is still pending")
	}
	if !claim(now.Add(time.Hour)) {
		t.Fatal("abandoned claim should be taken over")
	}

	if err := f.store.ReleaseDelivery(ctx, m.ID, a.ID); err != nil {
		t.Fatal(err)
	}
	if !claim(now.Add(time.Hour)) {
		t.Fatal("released claim should be claimable at once")
	}
	if err := f.store.MarkDelivered(ctx, m.ID, a.ID, now); err != nil {
		t.Fatal(err)
	}
	if pending() != 0 || claim(now.Add(24*time.Hour)) {
		t.Fatal("delivered recipient must not be claimed again")
	}
}

func TestManualBadgeRecordsActorUser(t *testing.T) {
	f, done := setup(t)
	defer done()
	ctx := context.Background()

	spare := models.User{Username: "spare"}
	if err := f.store.CreateUser(ctx, &spare); err != nil {
		t.Fatal(err)
	}
	admin := f.person(t, "ville", "Ville")
	if admin.ID == *admin.UserID {
		t.Fatalf("fixture should give person %d a different user id", admin.ID)
	}

	class, err := f.store.PersonnelClassBySlug(ctx, f.event.ID, "tyovoima")
	if err != nil {
		t.Fatal(err)
	}
	b, err := badges.NewService(f.store, nil).CreateManual(ctx, f.event.ID, &admin.ID, badges.ManualBadge{
		PersonnelClassID: class.ID, FirstName: "Vieras",
	})
	if err != nil {
		t.Fatal(err)
	}
	if b.CreatedBy == nil || *b.CreatedBy != *admin.UserID {
		t.Fatalf("created_by = %v, want user %d", b.CreatedBy, *admin.UserID)
	}
}

func TestProgrammeTagsAndFreeformOrganizers(t *testing.T) {
	f, done := setup(t)
	defer done()
	ctx := context.Background()

	p := models.Programme{CategoryID: f.category.ID, Title: "Animepaneeli", State: models.StateAccepted, RoomID: &f.room.ID}
	e := programme.Edit{
		Tags:               []string{"Cosplay", "Anime"},
		FreeformOrganizers: []string{"Animeseura ry", "Tracon-tiimi"},
	}
	if err := f.manager.SaveForEvent(ctx, f.event.ID, &p, e); err != nil {
		t.Fatal(err)
	}
	v, err := f.store.ProgrammeView(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(v.Tags) != 2 || v.Tags[0] != "Anime" || v.Tags[1] != "Cosplay" {
		t.Fatalf("tags = %v", v.Tags)
	}
	if len(v.FreeformOrganizers) != 2 || v.FreeformOrganizers[0] != "Animeseura ry" {
		t.Fatalf("freeform organizers = %v", v.FreeformOrganizers)
	}

	if err := f.manager.SaveForEvent(ctx, f.event.ID, &p, programme.Edit{Tags: []string{"Anime"}}); err != nil {
		t.Fatal(err)
	}
	v, err = f.store.ProgrammeView(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(v.Tags) != 1 || v.Tags[0] != "Anime" {
		t.Fatalf("tags after replace = %v", v.Tags)
	}
	if len(v.FreeformOrganizers) != 2 {
		t.Fatalf("freeform organizers should be kept, got %v", v.FreeformOrganizers)
	}
}

func TestPrintedBadgeIsRevoked(t *testing.T) {
	f, done := setup(t)
	defer done()
	ctx := context.Background()

	host := f.person(t, "aino", "Aino")
	p := models.Programme{CategoryID: f.category.ID, Title: "Paneeli", State: models.StateAccepted}
	if err := f.manager.Save(ctx, &p, []models.ProgrammeRole{{PersonID: host.ID, RoleID: f.role.ID}}); err != nil {
		t.Fatal(err)
	}
	b, err := f.store.PersonBadge(ctx, f.event.ID, host.ID)
	if err != nil {
		t.Fatal(err)
	}
	svc := badges.NewService(f.store, nil)
	if err := svc.MarkPrinted(ctx, f.event.ID+1, b.ID); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("other event: want ErrNotFound, got %v", err)
	}
	if err := svc.MarkPrinted(ctx, f.event.ID, b.ID); err != nil {
		t.Fatal(err)
	}

	if err := f.manager.Save(ctx, &p, []models.ProgrammeRole{}); err != nil {
		t.Fatal(err)
	}
	b, err = f.store.PersonBadge(ctx, f.event.ID, host.ID)
	if err != nil {
		t.Fatalf("printed badge should be kept: %v", err)
	}
	if b.PrintedAt == nil || b.RevokedAt == nil {
		t.Fatalf("badge = %+v", b)
	}
}
