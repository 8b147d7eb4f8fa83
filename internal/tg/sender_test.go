package tg

import (
	"context"
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/kompassi/kompassi/internal/mailings"
	"github.com/kompassi/kompassi/internal/models"
)

type fakeBot struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if b.err != nil {
		return tgbotapi.Message{}, b.err
	}
	b.sent = append(b.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{}, nil
}

func TestSend(t *testing.T) {
	chat := int64(1234)
	bot := &fakeBot{}
	s := Sender{Bot: bot}

	err := s.Send(context.Background(), models.Person{ID: 1, TelegramChatID: &chat}, models.Message{Subject: "Info", Body: "Ovet aukeavat klo 10."})
	if err != nil {
		t.Fatal(err)
	}
	if len(bot.sent) != 1 || bot.sent[0].ChatID != chat || bot.sent[0].Text != "Info\n\nOvet aukeavat klo 10." {
		t.Fatalf("sent = %+v", bot.sent)
	}
}

func TestSendUnreachable(t *testing.T) {
	chat := int64(1234)
	cases := []struct {
		name   string
		person models.Person
		err    error
	}{
		{"no chat id", models.Person{ID: 1}, nil},
		{"chat not found", models.Person{ID: 1, TelegramChatID: &chat}, errors.New("Bad Request: chat not found")},
		{"blocked", models.Person{ID: 1, TelegramChatID: &chat}, errors.New("Forbidden: bot was blocked by the user")},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			s := Sender{Bot: &fakeBot{err: c.err}}
			if err := s.Send(context.Background(), c.person, models.Message{Body: "x"}); !errors.Is(err, mailings.ErrUnreachable) {
				t.Fatalf("want ErrUnreachable, got %v", err)
			}
		})
	}
}

func TestIsSystemErr(t *testing.T) {
	cases := []struct {
		msg  string
		want bool
	}{
		{msg: "Too Many Requests: retry after 5 (429)", want: true},
		{msg: "502 Bad Gateway", want: true},
		{msg: "net/http: request canceled (Client.Timeout exceeded) timeout", want: true},
		{msg: "Bad Request: message is not modified", want: false},
	}
	for _, c := range cases {
		if got := isSystemErr(errors.New(c.msg)); got != c.want {
			t.Errorf("%q: got %v", c.msg, got)
		}
	}
	if isSystemErr(nil) {
		t.Error("nil is not an error")
	}
}
