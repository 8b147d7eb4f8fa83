package programme

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/kompassi/kompassi/internal/models"
)

var (
	Genres = []string{"fantasy", "scifi", "historical", "modern", "war", "horror", "exploration", "mystery", "drama", "humor"}
	Styles = []string{"serious", "light", "rules_heavy", "rules_light", "story_driven", "character_driven", "combat_driven"}
)

// PrepareSave applies the derivations done on every save: end time from start time and
// length, slug from title, and the timestamps.
func PrepareSave(p *models.Programme, now time.Time) {
	if p.StartTime != nil && p.Length != nil {
		end := p.StartTime.Add(time.Duration(*p.Length) * time.Minute)
		p.EndTime = &end
	}
	if p.Title != "" && p.Slug == "" {
		p.Slug = Slugify(p.Title)
	}
	if p.State == "" {
		p.State = models.StateAccepted
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
}

var (
	slugStrip = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugDash  = regexp.MustCompile(`[-\s]+`)
)

// Slugify folds diacritics (ä → a) and reduces s to lowercase ascii words joined by dashes.
func Slugify(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)
	folded = slugStrip.ReplaceAllString(folded, "")
	folded = strings.TrimSpace(folded)
	return strings.Trim(slugDash.ReplaceAllString(folded, "-"), "-")
}

func HostCanEdit(p models.Programme, ev models.Event, now time.Time) bool {
	return IsActive(p.State) &&
		!p.Frozen &&
		!(ev.EndTime != nil && !now.Before(*ev.EndTime))
}

// HostCannotEditExplanation must only be called when HostCanEdit is false.
func HostCannotEditExplanation(p models.Programme, ev models.Event, now time.Time) (string, error) {
	switch {
	case p.State == models.StateCancelled:
		return "You have cancelled this programme.", nil
	case p.State == models.StateRejected:
		return "This programme has been rejected by the programme manager.", nil
	case p.Frozen:
		return "This programme has been frozen by the programme manager.", nil
	case ev.EndTime != nil && !now.Before(*ev.EndTime):
		return "The event has ended and the programme has been archived.", nil
	default:
		return "", ErrNotImplemented
	}
}

// IsOpenForFeedback is true once the programme has started or the event is over.
func IsOpenForFeedback(p models.Programme, ev models.Event, now time.Time) bool {
	return (p.StartTime != nil && !now.Before(*p.StartTime)) ||
		(ev.EndTime != nil && !now.Before(*ev.EndTime))
}

func ShowSignupLink(p models.Programme, ev models.Event, now time.Time) bool {
	return p.SignupLink != "" && ((p.StartTime != nil && !now.After(*p.StartTime)) ||
		(ev.StartTime != nil && !now.After(*ev.StartTime)))
}

// CanPaikkalize reports whether the programme carries everything seat reservation needs.
func CanPaikkalize(p models.Programme, room *models.Room) bool {
	return room != nil &&
		room.HasPaikkalaSchema() &&
		p.StartTime != nil &&
		p.Length != nil
}
