package httpapi

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/kompassi/kompassi/internal/badges"
	"github.com/kompassi/kompassi/internal/ctxutil"
	"github.com/kompassi/kompassi/internal/export"
	"github.com/kompassi/kompassi/internal/labour"
	"github.com/kompassi/kompassi/internal/mailings"
	"github.com/kompassi/kompassi/internal/models"
	"github.com/kompassi/kompassi/internal/validation"
)

func (s *Server) createBadge(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ev, r, ok := s.event(w, r, ps)
	if !ok {
		return
	}
	var form badges.ManualBadge
	if err := decode(r, &form); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := validation.Struct(r.Context(), form); err != nil {
		s.writeError(w, r, err)
		return
	}
	var actor *int64
	if id, ok := ctxutil.PersonID(r.Context()); ok {
		actor = &id
	}
	b, err := s.Badges.CreateManual(r.Context(), ev.ID, actor, form)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

type badgeBody struct {
	Badge *models.Badge `json:"badge"`
}

func (s *Server) ensureBadge(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ev, r, ok := s.event(w, r, ps)
	if !ok {
		return
	}
	personID, err := idParam(ps, "person")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	b, err := s.Badges.Ensure(r.Context(), ev.ID, personID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, badgeBody{Badge: b})
}

func (s *Server) markBadgePrinted(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ev, r, ok := s.event(w, r, ps)
	if !ok {
		return
	}
	id, err := idParam(ps, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.Badges.MarkPrinted(r.Context(), ev.ID, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) specialDiets(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ev, r, ok := s.event(w, r, ps)
	if !ok {
		return
	}
	report, err := s.Labour.SpecialDiets(r.Context(), ev.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) exportSpecialDiets(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ev, r, ok := s.event(w, r, ps)
	if !ok {
		return
	}
	report, err := s.Labour.SpecialDiets(r.Context(), ev.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(report.Errors) > 0 {
		body := messagesBody{}
		for _, e := range report.Errors {
			body.Messages = append(body.Messages, message{Level: "error", Text: e})
		}
		writeJSON(w, http.StatusUnprocessableEntity, body)
		return
	}

	f, err := export.NewWorkbook(export.SpecialDietSheets(report))
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
	writeXLSX(w, export.Filename(ev.Slug, "special-diets"), data)
}

type signupExtraForm struct {
	Answers          map[string]any `json:"answers"`
	SpecialDiets     []string       `json:"special_diets"`
	SpecialDietOther string         `json:"special_diet_other" validate:"max=1023"`
}

func (s *Server) saveSignupExtra(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ev, r, ok := s.event(w, r, ps)
	if !ok {
		return
	}
	personID, err := idParam(ps, "person")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var form signupExtraForm
	if err := decode(r, &form); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := validation.Struct(r.Context(), form); err != nil {
		s.writeError(w, r, err)
		return
	}
	extra, err := s.Labour.SaveSignupExtra(r.Context(), ev.ID, personID, labour.SignupExtraForm{
		Answers:          form.Answers,
		SpecialDiets:     form.SpecialDiets,
		SpecialDietOther: form.SpecialDietOther,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, extra)
}

func (s *Server) listMessages(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ev, r, ok := s.event(w, r, ps)
	if !ok {
		return
	}
	list, err := s.Mailings.List(r.Context(), ev.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []models.Message{}
	}
	writeJSON(w, http.StatusOK, list)
}

type editorRequest struct {
	Action string `json:"action"`
	mailings.MessageForm
}

// messageEditor runs a mail editor action. Without :id the action applies to a new message.
func (s *Server) messageEditor(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ev, r, ok := s.event(w, r, ps)
	if !ok {
		return
	}
	var messageID int64
	if ps.ByName("id") != "" {
		id, err := idParam(ps, "id")
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		messageID = id
	}
	var req editorRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	out, err := s.Mailings.Editor(r.Context(), ev.ID, messageID, req.Action, req.MessageForm)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	status := http.StatusOK
	for _, f := range out.Flashes {
		if f.Level == mailings.LevelError {
			status = http.StatusUnprocessableEntity
		}
	}
	writeJSON(w, status, out)
}

type enrollForm struct {
	Answers map[string]any `json:"answers"`
}

func (s *Server) enroll(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ev, r, ok := s.event(w, r, ps)
	if !ok {
		return
	}
	personID, err := idParam(ps, "person")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var form enrollForm
	if err := decode(r, &form); err != nil {
		s.writeError(w, r, err)
		return
	}
	e, err := s.Enrollment.Enroll(r.Context(), ev.ID, personID, form.Answers)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}
