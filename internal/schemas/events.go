package schemas

import "github.com/kompassi/kompassi/internal/models"

// activeWithProgramme keeps a programme-only signup extra active exactly while its person
// has an active programme role in the event.
func activeWithProgramme(extra *models.SignupExtra, hasActiveProgrammeRole bool) {
	extra.IsActive = hasActiveProgrammeRole
}

var shiftTypeChoices = []Choice{
	{"yksipitka", "Yksi pitkä vuoro"},
	{"montalyhytta", "Monta lyhyempää vuoroa"},
	{"kaikkikay", "Kumpi tahansa käy"},
}

var standardDiets = []string{
	"Gluteeniton",
	"Kasvis",
	"Laktoositon",
	"Maidoton",
	"Vegaaninen",
}

func workFields(totalWork []Choice) []Field {
	return []Field{
		{Name: "shift_type", Label: "Toivottu työvuoron pituus", Kind: KindChoice, Required: true, MaxLength: 15, Choices: shiftTypeChoices},
		{Name: "total_work", Label: "Toivottu kokonaistyömäärä", Kind: KindChoice, Required: true, MaxLength: 15, Choices: totalWork},
		{Name: "want_certificate", Label: "Haluan todistuksen työskentelystäni", Kind: KindBool},
		{Name: "certificate_delivery_address", Label: "Työtodistuksen toimitusosoite", Kind: KindText},
		{Name: "need_lodging", Label: "Tarvitsen lattiamajoitusta", Kind: KindBool},
		{Name: "prior_experience", Label: "Työkokemus", Kind: KindText},
		{Name: "free_text", Label: "Vapaa alue", Kind: KindText},
	}
}

func init() {
	Register(Schema{
		Name:              "programme",
		SupportsProgramme: true,
		ApplyState:        activeWithProgramme,
	})

	Register(Schema{
		Name:             "aicon2016",
		SpecialDiets:     standardDiets,
		SpecialDietOther: true,
		Fields: append(workFields([]Choice{
			{"8h", "Minimi - 8 tuntia"},
			{"12h", "10–12 tuntia"},
			{"yli12h", "Työn Sankari! Yli 12 tuntia!"},
		}), Field{Name: "email_alias", Label: "Sähköpostialias", Kind: KindSlug, MaxLength: 32}),
	})

	Register(Schema{
		Name:             "tylycon2017",
		SpecialDiets:     standardDiets,
		SpecialDietOther: true,
		Fields: workFields([]Choice{
			{"4h", "Minimi - 4 tuntia"},
			{"6h", "6 tuntia"},
			{"8h", "8 tuntia"},
			{"12h", "10–12 tuntia"},
		}),
	})

	Register(Schema{
		Name:             "frostbite2019",
		SpecialDiets:     standardDiets,
		SpecialDietOther: true,
		Fields: append(workFields([]Choice{
			{"8h", "8 tuntia"},
			{"12h", "12 tuntia"},
			{"yli12h", "Yli 12 tuntia"},
		}), Field{
			Name:      "shirt_type",
			Label:     "Paidan tyyppi",
			Kind:      KindChoice,
			Required:  true,
			MaxLength: 8,
			Default:   "TOOLATE",
			Choices: []Choice{
				{"NO_SHIRT", "Ei paitaa"},
				{"STAFF", "Staff"},
				{"DESURITY", "Desurity"},
				{"DESUTV", "DesuTV"},
				{"KUVAAJA", "Kuvaaja"},
				{"VENDOR", "Myynti"},
				{"TOOLATE", "Myöhästyi paitatilauksesta"},
			},
		}),
	})

	// Enrollment forms.
	Register(Schema{
		Name: "enrollment-default",
		Fields: []Field{
			{Name: "message", Label: "Viesti järjestäjille", Kind: KindText, MaxLength: 1000},
			{Name: "accept_terms", Label: "Hyväksyn ehdot", Kind: KindBool, Required: true},
		},
	})
}
