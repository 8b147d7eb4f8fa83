package models

import "strings"

type Person struct {
	ID             int64  `db:"id" json:"id"`
	FirstName      string `db:"first_name" json:"first_name"`
	Surname        string `db:"surname" json:"surname"`
	Nick           string `db:"nick" json:"nick"`
	Email          string `db:"email" json:"email"`
	UserID         *int64 `db:"user_id" json:"user_id"`
	TelegramChatID *int64 `db:"telegram_chat_id" json:"telegram_chat_id"`
}

// DisplayName renders `First "Nick" Surname`, dropping empty parts.
func (p Person) DisplayName() string {
	parts := make([]string, 0, 3)
	if p.FirstName != "" {
		parts = append(parts, p.FirstName)
	}
	if p.Nick != "" {
		parts = append(parts, `"`+p.Nick+`"`)
	}
	if p.Surname != "" {
		parts = append(parts, p.Surname)
	}
	return strings.Join(parts, " ")
}

// FirstnameSurname is the name format used by the ropecon listing.
func (p Person) FirstnameSurname() string {
	return strings.TrimSpace(p.FirstName + " " + p.Surname)
}

type User struct {
	ID       int64  `db:"id" json:"id"`
	Username string `db:"username" json:"username"`
}

type Group struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}
