package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/kompassi/kompassi/internal/export"
	"github.com/kompassi/kompassi/internal/models"
	"github.com/kompassi/kompassi/internal/programme"
	"github.com/kompassi/kompassi/internal/validation"
)

type organizerForm struct {
	PersonID int64 `json:"person_id" validate:"required"`
	RoleID   int64 `json:"role_id" validate:"required"`
}

type programmeForm struct {
	CategoryID      int64      `json:"category_id" validate:"required"`
	Title           string     `json:"title" validate:"required,max=1023"`
	Slug            string     `json:"slug" validate:"omitempty,slug,max=255"`
	Description     string     `json:"description"`
	State           string     `json:"state" validate:"omitempty,oneof=idea asked offered accepted published cancelled rejected"`
	StartTime       *time.Time `json:"start_time"`
	Length          *int       `json:"length" validate:"omitempty,min=0"`
	RoomID          *int64     `json:"room_id"`
	Language        string     `json:"language" validate:"max=2"`
	IsUsingPaikkala bool       `json:"is_using_paikkala"`
	Notes           string     `json:"notes"`
	VideoLink       string     `json:"video_link" validate:"max=255"`
	SignupLink      string     `json:"signup_link" validate:"max=255"`

	// Organizers replaces the organizer list when present. Removed organizers have their
	// badges re-evaluated.
	Organizers []organizerForm `json:"organizers" validate:"omitempty,dive"`
	// Tags and FreeformOrganizers replace the stored lists when present.
	Tags               []string `json:"tags" validate:"omitempty,dive,max=63"`
	FreeformOrganizers []string `json:"freeform_organizers" validate:"omitempty,dive,required,max=255"`
}

func (f programmeForm) apply(p *models.Programme) {
	p.CategoryID = f.CategoryID
	p.Title = f.Title
	if f.Slug != "" {
		p.Slug = f.Slug
	}
	p.Description = f.Description
	p.StartTime = f.StartTime
	p.Length = f.Length
	p.RoomID = f.RoomID
	p.Language = f.Language
	p.IsUsingPaikkala = f.IsUsingPaikkala
	p.Notes = f.Notes
	p.VideoLink = f.VideoLink
	p.SignupLink = f.SignupLink
}

func (f programmeForm) edit() programme.Edit {
	e := programme.Edit{Tags: f.Tags, FreeformOrganizers: f.FreeformOrganizers}
	if f.Organizers != nil {
		e.Roles = make([]models.ProgrammeRole, 0, len(f.Organizers))
		for _, o := range f.Organizers {
			e.Roles = append(e.Roles, models.ProgrammeRole{PersonID: o.PersonID, RoleID: o.RoleID})
		}
	}
	return e
}

func (s *Server) listProgrammes(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ev, r, ok := s.event(w, r, ps)
	if !ok {
		return
	}
	q := r.URL.Query()
	format := q.Get("format")
	if format == "" {
		format = programme.FormatDefault
	}
	list, err := s.Programmes.Listing(r.Context(), ev.ID, format, q.Get("all") == "1")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// eventProgramme loads a programme and checks that it belongs to ev.
func (s *Server) eventProgramme(r *http.Request, ps httprouter.Params, ev models.Event) (programme.View, error) {
	id, err := idParam(ps, "id")
	if err != nil {
		return programme.View{}, err
	}
	v, err := s.Programmes.View(r.Context(), id)
	if err != nil {
		return programme.View{}, err
	}
	if v.Event.ID != ev.ID {
		return programme.View{}, models.ErrNotFound
	}
	return v, nil
}

func (s *Server) getProgramme(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ev, r, ok := s.event(w, r, ps)
	if !ok {
		return
	}
	v, err := s.eventProgramme(r, ps, ev)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) createProgramme(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ev, r, ok := s.event(w, r, ps)
	if !ok {
		return
	}
	var form programmeForm
	if err := decode(r, &form); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := validation.Struct(r.Context(), form); err != nil {
		s.writeError(w, r, err)
		return
	}

	p := models.Programme{State: models.ProgrammeState(form.State)}
	form.apply(&p)
	if err := s.Programmes.SaveForEvent(r.Context(), ev.ID, &p, form.edit()); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) updateProgramme(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ev, r, ok := s.event(w, r, ps)
	if !ok {
		return
	}
	v, err := s.eventProgramme(r, ps, ev)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var form programmeForm
	if err := decode(r, &form); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := validation.Struct(r.Context(), form); err != nil {
		s.writeError(w, r, err)
		return
	}

	p := v.Programme
	if form.State != "" && models.ProgrammeState(form.State) != p.State {
		s.writeError(w, r, fmt.Errorf("%w: use the state endpoint to change the state", errBadRequest))
		return
	}
	form.apply(&p)
	if err := s.Programmes.SaveForEvent(r.Context(), ev.ID, &p, form.edit()); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type transitionForm struct {
	State string `json:"state" validate:"required"`
}

func (s *Server) transitionProgramme(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ev, r, ok := s.event(w, r, ps)
	if !ok {
		return
	}
	v, err := s.eventProgramme(r, ps, ev)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var form transitionForm
	if err := decode(r, &form); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := validation.Struct(r.Context(), form); err != nil {
		s.writeError(w, r, err)
		return
	}

	p, err := s.Programmes.Transition(r.Context(), v.Programme.ID, models.ProgrammeState(form.State))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) exportProgrammes(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ev, r, ok := s.event(w, r, ps)
	if !ok {
		return
	}
	views, err := s.Programmes.EventViews(r.Context(), ev.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	f, err := export.NewWorkbook([]export.SheetSpec{export.ProgrammeSheet(views, s.opts.Location)})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer f.Close()
	data, err := export.Bytes(f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeXLSX(w, export.Filename(ev.Slug, "programme"), data)
}

func (s *Server) personProgrammes(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	personID, err := idParam(ps, "person")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var list []models.Programme
	switch which := r.URL.Query().Get("which"); which {
	case "", "future":
		list, err = s.Programmes.FutureProgrammes(r.Context(), personID)
	case "past":
		list, err = s.Programmes.PastProgrammes(r.Context(), personID)
	case "rejected":
		list, err = s.Programmes.RejectedProgrammes(r.Context(), personID)
	default:
		err = fmt.Errorf("%w: unknown listing %q", errBadRequest, which)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []models.Programme{}
	}
	writeJSON(w, http.StatusOK, list)
}
