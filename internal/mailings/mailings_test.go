package mailings

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kompassi/kompassi/internal/models"
)

type fakeStore struct {
	messages   map[int64]*models.Message
	members    []models.Person
	deliveries map[int64]map[int64]*time.Time
	claimedAt  map[[2]int64]time.Time
	groups     map[int64]bool
	nextID     int64
}

func newFake(members ...models.Person) *fakeStore {
	return &fakeStore{
		messages:   map[int64]*models.Message{},
		members:    members,
		deliveries: map[int64]map[int64]*time.Time{},
		claimedAt:  map[[2]int64]time.Time{},
		groups:     map[int64]bool{1: true},
	}
}

func (f *fakeStore) GetMessage(_ context.Context, _, id int64) (models.Message, error) {
	m, ok := f.messages[id]
	if !ok {
		return models.Message{}, models.ErrNotFound
	}
	return *m, nil
}

func (f *fakeStore) EventMessages(context.Context, int64) ([]models.Message, error) {
	var out []models.Message
	for _, m := range f.messages {
		out = append(out, *m)
	}
	return out, nil
}

func (f *fakeStore) CreateMessage(_ context.Context, m *models.Message) error {
	f.nextID++
	m.ID = f.nextID
	cp := *m
	f.messages[m.ID] = &cp
	return nil
}

func (f *fakeStore) UpdateMessage(_ context.Context, m *models.Message) error {
	cp := *m
	f.messages[m.ID] = &cp
	return nil
}

func (f *fakeStore) DeleteMessage(_ context.Context, id int64) error {
	delete(f.messages, id)
	return nil
}

func (f *fakeStore) GetRecipientGroup(_ context.Context, eventID, id int64) (models.RecipientGroup, error) {
	if !f.groups[id] {
		return models.RecipientGroup{}, models.ErrNotFound
	}
	return models.RecipientGroup{ID: id, EventID: eventID}, nil
}

func (f *fakeStore) PendingRecipients(_ context.Context, messageID int64) ([]models.Person, error) {
	var out []models.Person
	for _, p := range f.members {
		if at := f.deliveries[messageID][p.ID]; at == nil {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) ClaimDelivery(_ context.Context, messageID, personID int64, at, staleBefore time.Time) (bool, error) {
	if f.deliveries[messageID] == nil {
		f.deliveries[messageID] = map[int64]*time.Time{}
	}
	key := [2]int64{messageID, personID}
	if delivered, ok := f.deliveries[messageID][personID]; ok {
		if delivered != nil || !f.claimedAt[key].Before(staleBefore) {
			return false, nil
		}
	}
	f.deliveries[messageID][personID] = nil
	f.claimedAt[key] = at
	return true, nil
}

func (f *fakeStore) ReleaseDelivery(_ context.Context, messageID, personID int64) error {
	if at, ok := f.deliveries[messageID][personID]; ok && at == nil {
		delete(f.deliveries[messageID], personID)
		delete(f.claimedAt, [2]int64{messageID, personID})
	}
	return nil
}

func (f *fakeStore) MarkDelivered(_ context.Context, messageID, personID int64, at time.Time) error {
	f.deliveries[messageID][personID] = &at
	return nil
}

func (f *fakeStore) ActiveMessages(context.Context) ([]models.Message, error) {
	var out []models.Message
	for _, m := range f.messages {
		if m.IsActive() {
			out = append(out, *m)
		}
	}
	return out, nil
}

type recordingSender struct {
	sent []int64
	fail map[int64]error
}

func (r *recordingSender) Send(_ context.Context, to models.Person, _ models.Message) error {
	if err := r.fail[to.ID]; err != nil {
		return err
	}
	r.sent = append(r.sent, to.ID)
	return nil
}

func newService(store *fakeStore) (*Service, *recordingSender) {
	sender := &recordingSender{fail: map[int64]error{}}
	svc := NewService(store, map[models.Channel]Sender{models.ChannelEmail: sender}, nil)
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return svc, sender
}

var form = MessageForm{RecipientID: 1, Subject: "Tervetuloa", Body: "Hei!"}

func TestSendOncePerPerson(t *testing.T) {
	store := newFake(models.Person{ID: 1}, models.Person{ID: 2})
	svc, sender := newService(store)

	out, err := svc.Editor(context.Background(), 1, 0, ActionSaveSend, form)
	if err != nil {
		t.Fatal(err)
	}
	if out.Message == nil || !out.Message.IsSent() {
		t.Fatalf("message not sent: %+v", out)
	}
	if len(sender.sent) != 2 {
		t.Fatalf("sent to %v", sender.sent)
	}

	store.members = append(store.members, models.Person{ID: 3})
	if err := svc.ResendActive(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := svc.ResendActive(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(sender.sent) != 3 || sender.sent[2] != 3 {
		t.Fatalf("new recipient should get exactly one copy, sent to %v", sender.sent)
	}
}

func TestExpireStopsResend(t *testing.T) {
	store := newFake(models.Person{ID: 1})
	svc, sender := newService(store)

	out, err := svc.Editor(context.Background(), 1, 0, ActionSaveSend, form)
	if err != nil {
		t.Fatal(err)
	}
	id := out.Message.ID

	if _, err := svc.Editor(context.Background(), 1, id, ActionSaveExpire, form); err != nil {
		t.Fatal(err)
	}
	store.members = append(store.members, models.Person{ID: 2})
	if err := svc.ResendActive(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expired message delivered to %v", sender.sent)
	}
	if store.deliveries[id][1] == nil {
		t.Fatal("delivered copy must not be retracted")
	}

	out, err = svc.Editor(context.Background(), 1, id, ActionSaveUnexpire, form)
	if err != nil {
		t.Fatal(err)
	}
	if out.Message.IsExpired() || len(sender.sent) != 2 {
		t.Fatalf("unexpire should reactivate and catch up, sent to %v", sender.sent)
	}
}

func TestDeleteSent(t *testing.T) {
	store := newFake(models.Person{ID: 1})
	svc, _ := newService(store)

	out, _ := svc.Editor(context.Background(), 1, 0, ActionSaveSend, form)
	id := out.Message.ID

	out, err := svc.Editor(context.Background(), 1, id, ActionDelete, MessageForm{})
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Flashes) != 1 || out.Flashes[0].Level != LevelError {
		t.Fatalf("flashes = %v", out.Flashes)
	}
	if _, ok := store.messages[id]; !ok {
		t.Fatal("sent message must survive delete")
	}
	if !errors.Is(svc.Delete(context.Background(), *store.messages[id]), ErrCannotDeleteSent) {
		t.Fatal("want ErrCannotDeleteSent")
	}
}

func TestDeleteDraft(t *testing.T) {
	store := newFake()
	svc, _ := newService(store)

	out, _ := svc.Editor(context.Background(), 1, 0, ActionSaveEdit, form)
	id := out.Message.ID
	if out.Message.IsSent() {
		t.Fatal("save-edit must not send")
	}

	out, err := svc.Editor(context.Background(), 1, id, ActionDelete, MessageForm{})
	if err != nil {
		t.Fatal(err)
	}
	if !out.ReturnToList || out.Flashes[0].Level != LevelSuccess {
		t.Fatalf("outcome = %+v", out)
	}
	if len(store.messages) != 0 {
		t.Fatal("draft should be deleted")
	}
}

func TestEditorActions(t *testing.T) {
	cases := []struct {
		action     string
		form       MessageForm
		wantLevel  Level
		wantReturn bool
	}{
		{ActionSaveEdit, form, LevelSuccess, false},
		{ActionSaveReturn, form, LevelSuccess, true},
		{ActionSaveExpire, form, LevelError, false},
		{ActionSaveUnexpire, form, LevelError, false},
		{"save-publish", form, LevelError, false},
		{ActionSaveEdit, MessageForm{RecipientID: 1}, LevelError, false},
		{ActionSaveEdit, MessageForm{RecipientID: 42, Body: "x"}, LevelError, false},
	}
	for _, c := range cases {
		t.Run(c.action, func(t *testing.T) {
			svc, sender := newService(newFake(models.Person{ID: 1}))
			out, err := svc.Editor(context.Background(), 1, 0, c.action, c.form)
			if err != nil {
				t.Fatal(err)
			}
			if len(out.Flashes) == 0 || out.Flashes[0].Level != c.wantLevel {
				t.Fatalf("flashes = %v", out.Flashes)
			}
			if out.ReturnToList != c.wantReturn {
				t.Fatalf("return = %v", out.ReturnToList)
			}
			if len(sender.sent) != 0 {
				t.Fatal("nothing should be sent")
			}
		})
	}
}

func TestUnreachableRecipientIsRetried(t *testing.T) {
	store := newFake(models.Person{ID: 1}, models.Person{ID: 2})
	svc, sender := newService(store)
	sender.fail[2] = ErrUnreachable

	out, err := svc.Editor(context.Background(), 1, 0, ActionSaveSend, form)
	if err != nil {
		t.Fatal(err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("sent = %v", sender.sent)
	}
	if _, held := store.deliveries[out.Message.ID][2]; held {
		t.Fatal("failed claim must be released")
	}

	delete(sender.fail, 2)
	if err := svc.ResendActive(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(sender.sent) != 2 || sender.sent[1] != 2 {
		t.Fatalf("reachable recipient should be caught up, sent = %v", sender.sent)
	}
}

func TestTransientFailureIsRetried(t *testing.T) {
	store := newFake(models.Person{ID: 1}, models.Person{ID: 2})
	svc, sender := newService(store)
	sender.fail[2] = errors.New("telegram 502")

	out, err := svc.Editor(context.Background(), 1, 0, ActionSaveSend, form)
	if err != nil {
		t.Fatalf("delivery failure must not fail the send: %v", err)
	}
	if len(out.Flashes) != 1 || out.Flashes[0].Level != LevelSuccess || !out.Message.IsSent() {
		t.Fatalf("outcome = %+v", out)
	}

	delete(sender.fail, 2)
	for range 2 {
		if err := svc.ResendActive(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	if len(sender.sent) != 2 || sender.sent[0] != 1 || sender.sent[1] != 2 {
		t.Fatalf("both recipients should get exactly one copy, sent = %v", sender.sent)
	}
}

func TestAbandonedClaimIsTakenOver(t *testing.T) {
	store := newFake(models.Person{ID: 1}, models.Person{ID: 2})
	svc, sender := newService(store)

	out, err := svc.Editor(context.Background(), 1, 0, ActionSaveEdit, form)
	if err != nil {
		t.Fatal(err)
	}
	id := out.Message.ID
	now := svc.now()
	store.deliveries[id] = map[int64]*time.Time{1: nil, 2: nil}
	store.claimedAt[[2]int64{id, 1}] = now.Add(-time.Hour)
	store.claimedAt[[2]int64{id, 2}] = now.Add(-time.Minute)

	if _, err := svc.Editor(context.Background(), 1, id, ActionSaveSend, form); err != nil {
		t.Fatal(err)
	}
	if len(sender.sent) != 1 || sender.sent[0] != 1 {
		t.Fatalf("only the stale claim should be taken over, sent = %v", sender.sent)
	}
}

func TestUnknownActionDoesNotSave(t *testing.T) {
	store := newFake(models.Person{ID: 1})
	svc, _ := newService(store)

	out, err := svc.Editor(context.Background(), 1, 0, ActionSaveEdit, form)
	if err != nil {
		t.Fatal(err)
	}
	id := out.Message.ID

	changed := form
	changed.Body = "changed"
	out, err = svc.Editor(context.Background(), 1, id, "save-publish", changed)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Flashes) != 1 || out.Flashes[0].Text != "Tuntematon toiminto." {
		t.Fatalf("flashes = %v", out.Flashes)
	}
	if store.messages[id].Body != form.Body {
		t.Fatalf("stored body = %q", store.messages[id].Body)
	}
}

func TestLogSender(t *testing.T) {
	s := LogSender{Log: zap.NewNop()}
	if err := s.Send(context.Background(), models.Person{ID: 1}, models.Message{}); !errors.Is(err, ErrUnreachable) {
		t.Fatalf("want ErrUnreachable, got %v", err)
	}
	if err := s.Send(context.Background(), models.Person{ID: 1, Email: "a@example.com"}, models.Message{}); err != nil {
		t.Fatal(err)
	}
}
