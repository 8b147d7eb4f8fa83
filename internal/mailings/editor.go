package mailings

import (
	"context"
	"errors"
	"strings"

	"github.com/kompassi/kompassi/internal/models"
	"github.com/kompassi/kompassi/internal/validation"
)

const (
	ActionSaveEdit     = "save-edit"
	ActionSaveReturn   = "save-return"
	ActionSaveSend     = "save-send"
	ActionSaveExpire   = "save-expire"
	ActionSaveUnexpire = "save-unexpire"
	ActionDelete       = "delete"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

type Flash struct {
	Level Level  `json:"level"`
	Text  string `json:"text"`
}

type MessageForm struct {
	RecipientID int64          `json:"recipient_id" validate:"required"`
	Channel     models.Channel `json:"channel" validate:"omitempty,oneof=email telegram"`
	Subject     string         `json:"subject" validate:"max=255"`
	Body        string         `json:"body" validate:"required"`
}

// Outcome tells the caller where the editor goes next. ReturnToList is set when the
// message listing should be shown instead of the editor.
type Outcome struct {
	Message      *models.Message `json:"message,omitempty"`
	Flashes      []Flash         `json:"messages"`
	ReturnToList bool            `json:"return_to_list"`
}

func (o *Outcome) flash(l Level, text string) {
	o.Flashes = append(o.Flashes, Flash{Level: l, Text: text})
}

// Editor runs the mail editor actions on a message of the event. messageID 0 means a new
// message. Business errors are reported as flashes; the returned error is for failures.
func (s *Service) Editor(ctx context.Context, eventID, messageID int64, action string, form MessageForm) (Outcome, error) {
	var out Outcome

	var msg *models.Message
	if messageID != 0 {
		m, err := s.store.GetMessage(ctx, eventID, messageID)
		if err != nil {
			return out, err
		}
		msg = &m
	}

	if action == ActionDelete {
		out.ReturnToList = true
		if msg == nil {
			return out, models.ErrNotFound
		}
		err := s.Delete(ctx, *msg)
		if errors.Is(err, ErrCannotDeleteSent) {
			out.flash(LevelError, "Lähetettyä viestiä ei voi poistaa.")
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out.flash(LevelSuccess, "Viesti poistettiin.")
		return out, nil
	}

	if !knownAction(action) {
		out.Message = msg
		out.flash(LevelError, "Tuntematon toiminto.")
		return out, nil
	}

	if err := validation.Struct(ctx, form); err != nil {
		out.Message = msg
		out.flash(LevelError, "Ole hyvä ja tarkasta lomake.")
		out.flash(LevelError, err.Error())
		return out, nil
	}
	if _, err := s.store.GetRecipientGroup(ctx, eventID, form.RecipientID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			out.Message = msg
			out.flash(LevelError, "Ole hyvä ja tarkasta lomake.")
			return out, nil
		}
		return out, err
	}

	if msg == nil {
		msg = &models.Message{}
	}
	msg.RecipientID = form.RecipientID
	msg.Channel = form.Channel
	if msg.Channel == "" {
		msg.Channel = models.ChannelEmail
	}
	msg.Subject = strings.TrimSpace(form.Subject)
	msg.Body = form.Body
	out.Message = msg

	if err := s.save(ctx, msg); err != nil {
		return out, err
	}

	switch action {
	case ActionSaveSend:
		if err := s.Send(ctx, msg); err != nil {
			return out, err
		}
		out.flash(LevelSuccess, "Viesti lähetettiin. Se lähetetään automaattisesti myös kaikille uusille vastaanottajille.")

	case ActionSaveExpire:
		if err := s.Expire(ctx, msg); err != nil {
			if errors.Is(err, ErrNotSent) {
				out.flash(LevelError, "Lähettämätöntä viestiä ei voi merkitä vanhentuneeksi.")
				return out, nil
			}
			return out, err
		}
		out.flash(LevelSuccess, "Viesti merkittiin vanhentuneeksi. Sitä ei lähetetä enää uusille vastaanottajille.")

	case ActionSaveUnexpire:
		if err := s.Unexpire(ctx, msg); err != nil {
			if errors.Is(err, ErrNotSent) {
				out.flash(LevelError, "Lähettämätöntä viestiä ei voi ottaa uudelleen käyttöön.")
				return out, nil
			}
			return out, err
		}
		out.flash(LevelSuccess, "Viesti otettiin uudelleen käyttöön. Se lähetetään automaattisesti myös kaikille uusille vastaanottajille.")

	case ActionSaveReturn:
		out.ReturnToList = true
		out.flash(LevelSuccess, "Muutokset viestiin tallennettiin.")

	case ActionSaveEdit:
		out.flash(LevelSuccess, "Muutokset viestiin tallennettiin.")
	}
	return out, nil
}

func knownAction(action string) bool {
	switch action {
	case ActionSaveEdit, ActionSaveReturn, ActionSaveSend, ActionSaveExpire, ActionSaveUnexpire:
		return true
	}
	return false
}

func (s *Service) save(ctx context.Context, m *models.Message) error {
	if m.ID == 0 {
		return s.store.CreateMessage(ctx, m)
	}
	return s.store.UpdateMessage(ctx, m)
}
