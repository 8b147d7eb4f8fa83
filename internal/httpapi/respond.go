package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"

	"github.com/kompassi/kompassi/internal/badges"
	"github.com/kompassi/kompassi/internal/ctxutil"
	"github.com/kompassi/kompassi/internal/enrollment"
	"github.com/kompassi/kompassi/internal/export"
	"github.com/kompassi/kompassi/internal/labour"
	"github.com/kompassi/kompassi/internal/logging"
	"github.com/kompassi/kompassi/internal/models"
	"github.com/kompassi/kompassi/internal/observability"
	"github.com/kompassi/kompassi/internal/paikkala"
	"github.com/kompassi/kompassi/internal/programme"
	"github.com/kompassi/kompassi/internal/schemas"
	"github.com/kompassi/kompassi/internal/validation"
)

const maxBody = 1 << 20

type message struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

type messagesBody struct {
	Messages []message `json:"messages"`
}

// errBadRequest marks malformed requests.
var errBadRequest = errors.New("bad request")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func statusOf(err error) int {
	var fe *validation.FieldError
	var fes schemas.FieldErrors
	switch {
	case errors.Is(err, models.ErrNotFound),
		errors.Is(err, badges.ErrBadgesNotEnabled),
		errors.Is(err, labour.ErrLabourNotEnabled),
		errors.Is(err, enrollment.ErrEnrollmentNotEnabled):
		return http.StatusNotFound
	case errors.Is(err, errBadRequest),
		errors.As(err, &fe),
		errors.As(err, &fes),
		errors.Is(err, programme.ErrNotImplemented),
		errors.Is(err, badges.ErrNameRequired),
		errors.Is(err, enrollment.ErrMissingPerson):
		return http.StatusBadRequest
	case errors.Is(err, programme.ErrInvalidTransition),
		errors.Is(err, enrollment.ErrAlreadyEnrolled),
		errors.Is(err, paikkala.ErrCannotPaikkalize):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as a messages body. Unexpected errors are logged and reported
// without leaking their text.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	body := messagesBody{}

	var fes schemas.FieldErrors
	switch {
	case status == http.StatusInternalServerError:
		logging.Ctx(r.Context(), s.Log).Error("request failed", zap.Error(err))
		observability.CaptureCtxErr(r.Context(), err)
		body.Messages = []message{{Level: "error", Text: "Internal error"}}
	case errors.As(err, &fes):
		for _, e := range fes {
			body.Messages = append(body.Messages, message{Level: "error", Text: e.Error()})
		}
	default:
		body.Messages = []message{{Level: "error", Text: err.Error()}}
	}
	writeJSON(w, status, body)
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func idParam(ps httprouter.Params, name string) (int64, error) {
	id, err := strconv.ParseInt(ps.ByName(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s", errBadRequest, name)
	}
	return id, nil
}

// event resolves the :event parameter and tags the request context with its slug.
func (s *Server) event(w http.ResponseWriter, r *http.Request, ps httprouter.Params) (models.Event, *http.Request, bool) {
	ev, err := s.Events.EventBySlug(r.Context(), ps.ByName("event"))
	if err != nil {
		s.writeError(w, r, err)
		return models.Event{}, r, false
	}
	return ev, r.WithContext(ctxutil.WithEventSlug(r.Context(), ev.Slug)), true
}

func writeXLSX(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
