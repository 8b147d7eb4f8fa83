package schemas

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/kompassi/kompassi/internal/models"
)

func TestLookup(t *testing.T) {
	for _, name := range []string{"programme", "aicon2016", "tylycon2017", "frostbite2019", "enrollment-default"} {
		if _, err := Lookup(name); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
	}
	if _, err := Lookup("tracon2099"); !errors.Is(err, ErrUnknownSchema) {
		t.Fatalf("want ErrUnknownSchema, got %v", err)
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	Register(Schema{Name: "programme"})
}

func TestCleanAicon(t *testing.T) {
	s, _ := Lookup("aicon2016")

	got, err := s.Clean(map[string]any{
		"shift_type":  "yksipitka",
		"total_work":  "12h",
		"email_alias": "  Tyovoima ",
		"ignored":     "x",
	})
	if err != nil {
		t.Fatal(err)
	}
	if got["email_alias"] != "tyovoima" {
		t.Fatalf("email_alias = %v", got["email_alias"])
	}
	if got["want_certificate"] != false || got["free_text"] != "" {
		t.Fatalf("defaults not filled: %v", got)
	}
	if _, ok := got["ignored"]; ok {
		t.Fatal("unknown keys should be dropped")
	}
}

func TestCleanErrors(t *testing.T) {
	tyly, _ := Lookup("tylycon2017")
	aicon, _ := Lookup("aicon2016")

	cases := []struct {
		name    string
		s       Schema
		answers map[string]any
		want    []string
	}{
		{"missing required", tyly, map[string]any{}, []string{"shift_type", "total_work"}},
		{"choice of another event", tyly, map[string]any{"shift_type": "kaikkikay", "total_work": "yli12h"}, []string{"total_work"}},
		{"bad alias", aicon, map[string]any{"shift_type": "kaikkikay", "total_work": "8h", "email_alias": "pj@aicon"}, []string{"email_alias"}},
		{"long alias", aicon, map[string]any{"shift_type": "kaikkikay", "total_work": "8h", "email_alias": strings.Repeat("a", 33)}, []string{"email_alias"}},
		{"wrong type", aicon, map[string]any{"shift_type": 3, "total_work": "8h"}, []string{"shift_type"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := c.s.Clean(c.answers)
			var fe FieldErrors
			if !errors.As(err, &fe) {
				t.Fatalf("want FieldErrors, got %v", err)
			}
			if len(fe) != len(c.want) {
				t.Fatalf("got %d errors: %v", len(fe), err)
			}
			for i, name := range c.want {
				if !strings.HasPrefix(fe[i].Error(), name+":") {
					t.Fatalf("error %d = %v, want field %s", i, fe[i], name)
				}
			}
		})
	}
}

func TestFrostbiteShirtDefault(t *testing.T) {
	s, _ := Lookup("frostbite2019")
	got, err := s.Clean(map[string]any{"shift_type": "kaikkikay", "total_work": "8h"})
	if err != nil {
		t.Fatal(err)
	}
	if got["shirt_type"] != "TOOLATE" {
		t.Fatalf("shirt_type = %v", got["shirt_type"])
	}
}

func TestCleanDiets(t *testing.T) {
	s, _ := Lookup("aicon2016")
	got, err := s.CleanDiets([]string{"Vegaaninen", "Gluteeniton", "Vegaaninen"})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []string{"Gluteeniton", "Vegaaninen"}) {
		t.Fatalf("got %v", got)
	}
	if _, err := s.CleanDiets([]string{"Karnivoori"}); err == nil {
		t.Fatal("unknown diet should fail")
	}
}

func TestCapabilities(t *testing.T) {
	p, _ := Lookup("programme")
	if !p.SupportsProgramme || p.RecordsSpecialDiets() {
		t.Fatal("programme schema supports programme and records no diets")
	}

	extra := models.SignupExtra{IsActive: true}
	p.ApplyState(&extra, false)
	if extra.IsActive {
		t.Fatal("programme extra should follow active roles")
	}
	p.ApplyState(&extra, true)
	if !extra.IsActive {
		t.Fatal("programme extra should follow active roles")
	}

	a, _ := Lookup("aicon2016")
	extra.IsActive = true
	a.ApplyState(&extra, false)
	if !extra.IsActive {
		t.Fatal("labour schemas ignore programme state")
	}
}
