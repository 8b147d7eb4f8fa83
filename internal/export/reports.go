package export

import (
	"strconv"
	"strings"
	"time"

	"github.com/kompassi/kompassi/internal/labour"
	"github.com/kompassi/kompassi/internal/programme"
)

const timeLayout = "02.01.2006 15:04"

func formatTime(t *time.Time, loc *time.Location) string {
	if t == nil {
		return ""
	}
	return t.In(loc).Format(timeLayout)
}

// ProgrammeSheet lists programmes for the programme admin.
func ProgrammeSheet(views []programme.View, loc *time.Location) SheetSpec {
	spec := SheetSpec{
		Title:  "Ohjelma",
		Header: []string{"ID", "Otsikko", "Kategoria", "Tila", "Sali", "Alkaa", "Päättyy", "Kesto (min)", "Järjestäjät", "Tagit", "Paikkala"},
	}
	for _, v := range views {
		p := v.Programme
		room := ""
		if v.Room != nil {
			room = v.Room.Name
		}
		length := ""
		if p.Length != nil {
			length = strconv.Itoa(*p.Length)
		}
		seats := ""
		if p.IsUsingPaikkala {
			seats = "kyllä"
		}
		spec.Rows = append(spec.Rows, []string{
			strconv.FormatInt(p.ID, 10),
			p.Title,
			v.Category.Title,
			string(p.State),
			room,
			formatTime(p.StartTime, loc),
			formatTime(p.EndTime, loc),
			length,
			v.FormattedHosts(),
			strings.Join(v.Tags, ", "),
			seats,
		})
	}
	return spec
}

// SpecialDietSheets renders the diet counts and the free-text diets on separate sheets.
func SpecialDietSheets(r labour.SpecialDietReport) []SheetSpec {
	counts := SheetSpec{Title: "Erikoisruokavaliot", Header: []string{"Ruokavalio", "Lukumäärä"}}
	for _, d := range r.SpecialDiets {
		counts.Rows = append(counts.Rows, []string{d.Name, strconv.Itoa(d.Count)})
	}
	others := SheetSpec{Title: "Muut ruokavaliot", Header: []string{"Nimi", "Sähköposti", "Muu erikoisruokavalio"}}
	for _, o := range r.Others {
		others.Rows = append(others.Rows, []string{o.Name, o.Email, o.SpecialDietOther})
	}
	return []SheetSpec{counts, others}
}
