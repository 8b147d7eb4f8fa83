package programme

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kompassi/kompassi/internal/ctxutil"
	"github.com/kompassi/kompassi/internal/logging"
	"github.com/kompassi/kompassi/internal/metrics"
	"github.com/kompassi/kompassi/internal/models"
	"github.com/kompassi/kompassi/internal/tasks"
	"github.com/kompassi/kompassi/internal/validation"
)

// TaskApplyStateAsync is the task name of the deferred part of ApplyState.
const TaskApplyStateAsync = "programme.apply_state_async"

type Store interface {
	GetProgramme(ctx context.Context, id int64) (models.Programme, error)
	CreateProgramme(ctx context.Context, p *models.Programme) error
	UpdateProgramme(ctx context.Context, p *models.Programme) error
	ProgrammeEvent(ctx context.Context, programmeID int64) (models.Event, error)
	GetCategory(ctx context.Context, id int64) (models.Category, error)
	GetRoom(ctx context.Context, id int64) (models.Room, error)
	ProgrammeView(ctx context.Context, id int64) (View, error)
	EventProgrammeViews(ctx context.Context, eventID int64) ([]View, error)

	Organizers(ctx context.Context, programmeID int64) ([]models.Person, error)
	// ReplaceRoles makes roles the complete organizer list and returns the removed roles.
	ReplaceRoles(ctx context.Context, programmeID int64, roles []models.ProgrammeRole) ([]models.ProgrammeRole, error)
	SetRolesActive(ctx context.Context, programmeID int64, active bool) error
	ReplaceTags(ctx context.Context, programmeID int64, tags []models.Tag) error
	ReplaceFreeformOrganizers(ctx context.Context, programmeID int64, texts []string) error
	HasActiveRoleInEvent(ctx context.Context, eventID, personID int64) (bool, error)

	BadgesEnabled(ctx context.Context, eventID int64) (bool, error)
	GroupByName(ctx context.Context, name string) (models.Group, error)

	PersonProgrammes(ctx context.Context, personID int64, q PersonQuery) ([]models.Programme, error)
}

// PersonQuery selects the programmes of a host for the profile listings.
type PersonQuery struct {
	States []models.ProgrammeState
	// EndedBefore/EndingAfter compare against the programme end time, falling back to
	// the event end time for unscheduled programmes. At most one is set.
	EndedBefore *time.Time
	EndingAfter *time.Time
}

type SeatProvisioner interface {
	Paikkalize(ctx context.Context, programmeID int64) (*models.PaikkalaProgram, error)
}

type SignupExtras interface {
	ApplyProgrammeState(ctx context.Context, eventID int64, personIDs []int64) error
}

type Badges interface {
	Ensure(ctx context.Context, eventID, personID int64) (*models.Badge, error)
}

type GroupAdjuster interface {
	EnsureGroupMembership(ctx context.Context, userID int64, add, remove []int64) error
}

type Manager struct {
	store      Store
	seats      SeatProvisioner
	extras     SignupExtras
	badges     Badges
	groups     GroupAdjuster
	dispatcher tasks.Dispatcher
	log        *zap.Logger
	now        func() time.Time
}

type Deps struct {
	Store      Store
	Seats      SeatProvisioner
	Extras     SignupExtras
	Badges     Badges
	Groups     GroupAdjuster
	Dispatcher tasks.Dispatcher
	Log        *zap.Logger
}

func NewManager(d Deps) *Manager {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		store:      d.Store,
		seats:      d.Seats,
		extras:     d.Extras,
		badges:     d.Badges,
		groups:     d.Groups,
		dispatcher: d.Dispatcher,
		log:        log,
		now:        time.Now,
	}
}

// RegisterTasks wires the deferred half of ApplyState into reg.
func (m *Manager) RegisterTasks(reg *tasks.Registry) {
	reg.Register(TaskApplyStateAsync, m.ApplyStateAsync)
}

// Edit carries the lists saved alongside a programme. A nil list keeps the stored one.
type Edit struct {
	Roles              []models.ProgrammeRole
	Tags               []string
	FreeformOrganizers []string
}

// Save stores p (creating it when new), replaces its organizers and applies its state.
func (m *Manager) Save(ctx context.Context, p *models.Programme, roles []models.ProgrammeRole) error {
	return m.save(ctx, p, 0, Edit{Roles: roles})
}

// SaveForEvent is Save for programmes edited under eventID. The category and room must
// belong to that event.
func (m *Manager) SaveForEvent(ctx context.Context, eventID int64, p *models.Programme, e Edit) error {
	c, err := m.store.GetCategory(ctx, p.CategoryID)
	if errors.Is(err, models.ErrNotFound) || (err == nil && c.EventID != eventID) {
		return &validation.FieldError{Field: "category_id", Message: "category is not part of this event"}
	}
	if err != nil {
		return err
	}
	if p.RoomID != nil {
		r, err := m.store.GetRoom(ctx, *p.RoomID)
		if errors.Is(err, models.ErrNotFound) || (err == nil && r.EventID != eventID) {
			return &validation.FieldError{Field: "room_id", Message: "room is not part of this event"}
		}
		if err != nil {
			return err
		}
	}
	return m.save(ctx, p, eventID, e)
}

func (m *Manager) save(ctx context.Context, p *models.Programme, eventID int64, e Edit) error {
	PrepareSave(p, m.now())

	var err error
	if p.ID == 0 {
		err = m.store.CreateProgramme(ctx, p)
	} else {
		err = m.store.UpdateProgramme(ctx, p)
	}
	if err != nil {
		return fmt.Errorf("save programme: %w", err)
	}

	var deleted []models.ProgrammeRole
	if e.Roles != nil {
		for i := range e.Roles {
			e.Roles[i].ProgrammeID = p.ID
		}
		if deleted, err = m.store.ReplaceRoles(ctx, p.ID, e.Roles); err != nil {
			return fmt.Errorf("save programme roles: %w", err)
		}
	}
	if e.Tags != nil {
		if err := m.store.ReplaceTags(ctx, p.ID, eventTags(eventID, e.Tags)); err != nil {
			return fmt.Errorf("save programme tags: %w", err)
		}
	}
	if e.FreeformOrganizers != nil {
		if err := m.store.ReplaceFreeformOrganizers(ctx, p.ID, e.FreeformOrganizers); err != nil {
			return fmt.Errorf("save freeform organizers: %w", err)
		}
	}
	return m.ApplyState(ctx, p.ID, deleted)
}

// eventTags turns tag titles into event tags keyed by slug. Blank and duplicate titles are dropped.
func eventTags(eventID int64, titles []string) []models.Tag {
	seen := make(map[string]bool, len(titles))
	out := make([]models.Tag, 0, len(titles))
	for _, title := range titles {
		slug := Slugify(title)
		if slug == "" || seen[slug] {
			continue
		}
		seen[slug] = true
		out = append(out, models.Tag{EventID: eventID, Slug: slug, Title: strings.TrimSpace(title)})
	}
	return out
}

// Transition moves a programme to another state through the transition table.
func (m *Manager) Transition(ctx context.Context, programmeID int64, to models.ProgrammeState) (models.Programme, error) {
	if _, err := ParseState(string(to)); err != nil {
		return models.Programme{}, err
	}
	p, err := m.store.GetProgramme(ctx, programmeID)
	if err != nil {
		return models.Programme{}, err
	}
	if !CanTransition(p.State, to) {
		return p, fmt.Errorf("%w: %s → %s", ErrInvalidTransition, p.State, to)
	}
	if p.State == to {
		return p, nil
	}
	p.State = to
	if err := m.Save(ctx, &p, nil); err != nil {
		return p, err
	}
	return p, nil
}

// ApplyState propagates the programme state to seat reservations, roles, signup extras and
// badges, then dispatches the group membership update. deletedRoles are organizers removed
// in the same update; their badges need re-evaluation too.
func (m *Manager) ApplyState(ctx context.Context, programmeID int64, deletedRoles []models.ProgrammeRole) error {
	ctx = ctxutil.WithOp(ctx, "programme.apply_state")
	p, err := m.store.GetProgramme(ctx, programmeID)
	if err != nil {
		return err
	}
	ev, err := m.store.ProgrammeEvent(ctx, programmeID)
	if err != nil {
		return err
	}
	ctx = ctxutil.WithEventSlug(ctx, ev.Slug)

	if p.IsUsingPaikkala && m.seats != nil {
		if _, err := m.seats.Paikkalize(ctx, p.ID); err != nil {
			return fmt.Errorf("paikkalize: %w", err)
		}
	}

	if err := m.store.SetRolesActive(ctx, p.ID, IsActive(p.State)); err != nil {
		return fmt.Errorf("update programme roles: %w", err)
	}

	organizers, err := m.store.Organizers(ctx, p.ID)
	if err != nil {
		return err
	}

	if m.extras != nil && len(organizers) > 0 {
		ids := make([]int64, 0, len(organizers))
		for _, o := range organizers {
			ids = append(ids, o.ID)
		}
		if err := m.extras.ApplyProgrammeState(ctx, ev.ID, ids); err != nil {
			return fmt.Errorf("update signup extras: %w", err)
		}
	}

	if err := m.ensureBadges(ctx, ev, organizers, deletedRoles); err != nil {
		return err
	}

	metrics.StateApplied.WithLabelValues(string(p.State)).Inc()
	return m.applyStateDeferred(ctx, p.ID)
}

func (m *Manager) ensureBadges(ctx context.Context, ev models.Event, organizers []models.Person, deleted []models.ProgrammeRole) error {
	if m.badges == nil {
		return nil
	}
	enabled, err := m.store.BadgesEnabled(ctx, ev.ID)
	if err != nil {
		return err
	}
	if !enabled {
		return nil
	}

	for _, o := range organizers {
		if _, err := m.badges.Ensure(ctx, ev.ID, o.ID); err != nil {
			return fmt.Errorf("ensure badge for person %d: %w", o.ID, err)
		}
	}
	for _, r := range deleted {
		if _, err := m.badges.Ensure(ctx, ev.ID, r.PersonID); err != nil {
			return fmt.Errorf("ensure badge for removed person %d: %w", r.PersonID, err)
		}
	}
	return nil
}

func (m *Manager) applyStateDeferred(ctx context.Context, programmeID int64) error {
	if m.dispatcher == nil {
		return m.ApplyStateAsync(ctx, programmeID)
	}
	return m.dispatcher.Dispatch(ctx, TaskApplyStateAsync, programmeID)
}

// ApplyStateAsync puts organizers with at least one active role in the event into the
// event's programme hosts group and removes the rest.
func (m *Manager) ApplyStateAsync(ctx context.Context, programmeID int64) error {
	if m.groups == nil {
		return nil
	}
	ev, err := m.store.ProgrammeEvent(ctx, programmeID)
	if err != nil {
		return err
	}
	log := logging.Ctx(ctx, m.log).With(zap.Int64("programme_id", programmeID), zap.String("event", ev.Slug))

	group, err := m.store.GroupByName(ctx, models.GroupName(ev.Slug, "programme", "hosts"))
	if errors.Is(err, models.ErrNotFound) {
		log.Warn("event is missing the programme hosts group")
		return nil
	}
	if err != nil {
		return err
	}

	organizers, err := m.store.Organizers(ctx, programmeID)
	if err != nil {
		return err
	}

	for _, person := range organizers {
		if person.UserID == nil {
			log.Warn("organizer has no user account", zap.Int64("person_id", person.ID))
			continue
		}

		active, err := m.store.HasActiveRoleInEvent(ctx, ev.ID, person.ID)
		if err != nil {
			return err
		}

		var add, remove []int64
		if active {
			add = []int64{group.ID}
		} else {
			remove = []int64{group.ID}
		}
		if err := m.groups.EnsureGroupMembership(ctx, *person.UserID, add, remove); err != nil {
			return fmt.Errorf("group membership for person %d: %w", person.ID, err)
		}
	}
	return nil
}

func (m *Manager) View(ctx context.Context, programmeID int64) (View, error) {
	return m.store.ProgrammeView(ctx, programmeID)
}

// Listing renders the programmes of an event in the requested format. Only public
// programmes are listed unless includeAll is set.
func (m *Manager) Listing(ctx context.Context, eventID int64, format string, includeAll bool) ([]map[string]any, error) {
	views, err := m.store.EventProgrammeViews(ctx, eventID)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(views))
	for _, v := range views {
		if !includeAll && !v.IsPublic() {
			continue
		}
		j, err := v.AsJSON(format)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, nil
}

func (m *Manager) EventViews(ctx context.Context, eventID int64) ([]View, error) {
	return m.store.EventProgrammeViews(ctx, eventID)
}

func (m *Manager) FutureProgrammes(ctx context.Context, personID int64) ([]models.Programme, error) {
	t := m.now()
	return m.store.PersonProgrammes(ctx, personID, PersonQuery{States: ActiveStates, EndingAfter: &t})
}

func (m *Manager) PastProgrammes(ctx context.Context, personID int64) ([]models.Programme, error) {
	t := m.now()
	return m.store.PersonProgrammes(ctx, personID, PersonQuery{States: ActiveStates, EndedBefore: &t})
}

func (m *Manager) RejectedProgrammes(ctx context.Context, personID int64) ([]models.Programme, error) {
	return m.store.PersonProgrammes(ctx, personID, PersonQuery{States: InactiveStates})
}
