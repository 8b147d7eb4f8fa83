package models

import "time"

type ProgrammeState string

const (
	StateIdea      ProgrammeState = "idea"
	StateAsked     ProgrammeState = "asked"
	StateOffered   ProgrammeState = "offered"
	StateAccepted  ProgrammeState = "accepted"
	StatePublished ProgrammeState = "published"
	StateCancelled ProgrammeState = "cancelled"
	StateRejected  ProgrammeState = "rejected"
)

type Category struct {
	ID      int64  `db:"id" json:"id"`
	EventID int64  `db:"event_id" json:"event_id"`
	Slug    string `db:"slug" json:"slug"`
	Title   string `db:"title" json:"title"`
	Style   string `db:"style" json:"style"`
	Public  bool   `db:"public" json:"public"`
}

type Room struct {
	ID      int64  `db:"id" json:"id"`
	EventID int64  `db:"event_id" json:"event_id"`
	Slug    string `db:"slug" json:"slug"`
	Name    string `db:"name" json:"name"`

	// PaikkalaSchema names a registered seating layout; empty means no reservable seats.
	PaikkalaSchema string `db:"paikkala_schema" json:"paikkala_schema"`
	PaikkalaRoomID *int64 `db:"paikkala_room_id" json:"paikkala_room_id"`
}

func (r Room) HasPaikkalaSchema() bool { return r.PaikkalaSchema != "" }

type Role struct {
	ID                 int64  `db:"id" json:"id"`
	PersonnelClassID   int64  `db:"personnel_class_id" json:"personnel_class_id"`
	Title              string `db:"title" json:"title"`
	IsPublic           bool   `db:"is_public" json:"is_public"`
	IsDefault          bool   `db:"is_default" json:"is_default"`
	RequireContactInfo bool   `db:"require_contact_info" json:"require_contact_info"`
}

type Programme struct {
	ID                   int64          `db:"id" json:"id"`
	CategoryID           int64          `db:"category_id" json:"category_id"`
	Slug                 string         `db:"slug" json:"slug"`
	Title                string         `db:"title" json:"title"`
	Description          string         `db:"description" json:"description"`
	LongDescription      string         `db:"long_description" json:"long_description"`
	ThreeWordDescription string         `db:"three_word_description" json:"three_word_description"`
	State                ProgrammeState `db:"state" json:"state"`
	Frozen               bool           `db:"frozen" json:"frozen"`
	StartTime            *time.Time     `db:"start_time" json:"start_time"`

	// Length is in minutes.
	Length    *int       `db:"length" json:"length"`
	EndTime   *time.Time `db:"end_time" json:"end_time"`
	RoomID    *int64     `db:"room_id" json:"room_id"`
	Language  string     `db:"language" json:"language"`
	RPGSystem string     `db:"rpg_system" json:"rpg_system"`

	IsEnglishOK                          bool     `db:"is_english_ok" json:"is_english_ok"`
	IsChildrenFriendly                   bool     `db:"is_children_friendly" json:"is_children_friendly"`
	IsAgeRestricted                      bool     `db:"is_age_restricted" json:"is_age_restricted"`
	IsBeginnerFriendly                   bool     `db:"is_beginner_friendly" json:"is_beginner_friendly"`
	IsIntendedForExperiencedParticipants bool     `db:"is_intended_for_experienced_participants" json:"is_intended_for_experienced_participants"`
	MinPlayers                           int      `db:"min_players" json:"min_players"`
	MaxPlayers                           int      `db:"max_players" json:"max_players"`
	RopeconIsNoLanguage                  bool     `db:"ropecon2018_is_no_language" json:"ropecon2018_is_no_language"`
	RopeconGenres                        []string `db:"ropecon_genres" json:"ropecon_genres"`
	RopeconStyles                        []string `db:"ropecon_styles" json:"ropecon_styles"`

	IsUsingPaikkala   bool   `db:"is_using_paikkala" json:"is_using_paikkala"`
	PaikkalaProgramID *int64 `db:"paikkala_program_id" json:"paikkala_program_id"`

	Notes      string    `db:"notes" json:"notes"`
	VideoLink  string    `db:"video_link" json:"video_link"`
	SignupLink string    `db:"signup_link" json:"signup_link"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

type ProgrammeRole struct {
	ID          int64 `db:"id" json:"id"`
	ProgrammeID int64 `db:"programme_id" json:"programme_id"`
	PersonID    int64 `db:"person_id" json:"person_id"`
	RoleID      int64 `db:"role_id" json:"role_id"`
	IsActive    bool  `db:"is_active" json:"is_active"`
}

type FreeformOrganizer struct {
	ID          int64  `db:"id" json:"id"`
	ProgrammeID int64  `db:"programme_id" json:"programme_id"`
	Text        string `db:"text" json:"text"`
}

type Tag struct {
	ID      int64  `db:"id" json:"id"`
	EventID int64  `db:"event_id" json:"event_id"`
	Slug    string `db:"slug" json:"slug"`
	Title   string `db:"title" json:"title"`
}
