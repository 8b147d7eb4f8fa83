package programme

import (
	"errors"
	"testing"
	"time"

	"github.com/kompassi/kompassi/internal/models"
)

func intPtr(i int) *int { return &i }

func TestPrepareSaveEndTime(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	start := time.Date(2024, 9, 7, 12, 0, 0, 0, time.UTC)

	t.Run("both_set", func(t *testing.T) {
		p := models.Programme{Title: "Animeklubi", StartTime: &start, Length: intPtr(45)}
		PrepareSave(&p, now)
		if p.EndTime == nil || !p.EndTime.Equal(start.Add(45*time.Minute)) {
			t.Fatalf("end time = %v", p.EndTime)
		}
	})

	t.Run("recomputed_on_every_save", func(t *testing.T) {
		stale := start.Add(10 * time.Hour)
		p := models.Programme{Title: "x", StartTime: &start, Length: intPtr(90), EndTime: &stale}
		PrepareSave(&p, now)
		if !p.EndTime.Equal(start.Add(90 * time.Minute)) {
			t.Fatalf("end time = %v", p.EndTime)
		}
	})

	t.Run("length_missing", func(t *testing.T) {
		p := models.Programme{Title: "x", StartTime: &start}
		PrepareSave(&p, now)
		if p.EndTime != nil {
			t.Fatalf("end time should stay unset, got %v", p.EndTime)
		}
	})
}

func TestPrepareSaveDefaults(t *testing.T) {
	now := time.Now()
	p := models.Programme{Title: "Pääsylippujen myynti & info"}
	PrepareSave(&p, now)
	if p.Slug != "paasylippujen-myynti-info" {
		t.Fatalf("slug = %q", p.Slug)
	}
	if p.State != models.StateAccepted {
		t.Fatalf("state = %q", p.State)
	}
	if !p.UpdatedAt.Equal(now) || !p.CreatedAt.Equal(now) {
		t.Fatal("timestamps not stamped")
	}

	p2 := models.Programme{Title: "New title", Slug: "kept"}
	PrepareSave(&p2, now)
	if p2.Slug != "kept" {
		t.Fatalf("existing slug changed to %q", p2.Slug)
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Hello World":         "hello-world",
		"  Ööliikkujat  ":     "ooliikkujat",
		"Q&A -- with guests!": "qa-with-guests",
		"":                    "",
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestStates(t *testing.T) {
	for _, s := range ActiveStates {
		if !IsActive(s) {
			t.Errorf("%s should be active", s)
		}
	}
	for _, s := range InactiveStates {
		if IsActive(s) {
			t.Errorf("%s should be inactive", s)
		}
	}

	if _, err := ParseState("draft"); !errors.Is(err, ErrNotImplemented) {
		t.Fatalf("want ErrNotImplemented, got %v", err)
	}
	if _, err := StateCSS("draft"); !errors.Is(err, ErrNotImplemented) {
		t.Fatalf("want ErrNotImplemented, got %v", err)
	}
	if css, _ := StateCSS(models.StatePublished); css != "label-success" {
		t.Fatalf("css = %q", css)
	}

	if !CanTransition(models.StateAccepted, models.StatePublished) {
		t.Fatal("accepted → published should be allowed")
	}
	if CanTransition(models.StateRejected, models.StatePublished) {
		t.Fatal("rejected → published should not be allowed")
	}
	if !CanTransition(models.StateCancelled, models.StateCancelled) {
		t.Fatal("staying put should be allowed")
	}
	for _, from := range States {
		if _, ok := transitions[from]; !ok {
			t.Errorf("state %s missing from transition table", from)
		}
	}
}

func TestHostCanEdit(t *testing.T) {
	now := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	future := now.Add(72 * time.Hour)
	past := now.Add(-time.Hour)
	ev := models.Event{EndTime: &future}

	p := models.Programme{State: models.StateAccepted}
	if !HostCanEdit(p, ev, now) {
		t.Fatal("accepted programme should be editable")
	}

	cases := []struct {
		name string
		p    models.Programme
		ev   models.Event
		want string
	}{
		{"cancelled", models.Programme{State: models.StateCancelled}, ev, "You have cancelled this programme."},
		{"rejected", models.Programme{State: models.StateRejected}, ev, "This programme has been rejected by the programme manager."},
		{"frozen", models.Programme{State: models.StateAccepted, Frozen: true}, ev, "This programme has been frozen by the programme manager."},
		{"archived", models.Programme{State: models.StateAccepted}, models.Event{EndTime: &past}, "The event has ended and the programme has been archived."},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if HostCanEdit(c.p, c.ev, now) {
				t.Fatal("should not be editable")
			}
			got, err := HostCannotEditExplanation(c.p, c.ev, now)
			if err != nil {
				t.Fatal(err)
			}
			if got != c.want {
				t.Fatalf("explanation = %q", got)
			}
		})
	}

	if _, err := HostCannotEditExplanation(p, ev, now); !errors.Is(err, ErrNotImplemented) {
		t.Fatalf("editable programme has no explanation, got %v", err)
	}
}

func TestFeedbackAndSignupLink(t *testing.T) {
	now := time.Date(2024, 9, 7, 12, 0, 0, 0, time.UTC)
	before := now.Add(-time.Hour)
	after := now.Add(time.Hour)

	if !IsOpenForFeedback(models.Programme{StartTime: &before}, models.Event{}, now) {
		t.Fatal("started programme should be open for feedback")
	}
	if IsOpenForFeedback(models.Programme{StartTime: &after}, models.Event{EndTime: &after}, now) {
		t.Fatal("future programme should not be open for feedback")
	}

	p := models.Programme{SignupLink: "https://example.com/signup", StartTime: &after}
	if !ShowSignupLink(p, models.Event{}, now) {
		t.Fatal("signup link should be shown before start")
	}
	p.StartTime = &before
	if ShowSignupLink(p, models.Event{StartTime: &before}, now) {
		t.Fatal("signup link should be hidden after start")
	}
}

func TestCanPaikkalize(t *testing.T) {
	start := time.Now()
	room := &models.Room{PaikkalaSchema: "tampere-talo/iso-sali"}
	p := models.Programme{StartTime: &start, Length: intPtr(60)}
	if !CanPaikkalize(p, room) {
		t.Fatal("should be paikkalizable")
	}
	if CanPaikkalize(p, &models.Room{}) {
		t.Fatal("room without schema")
	}
	if CanPaikkalize(p, nil) {
		t.Fatal("no room")
	}
}
