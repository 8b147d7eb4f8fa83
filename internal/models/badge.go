package models

import "time"

type Badge struct {
	ID                 int64      `db:"id" json:"id"`
	EventID            int64      `db:"event_id" json:"event_id"`
	PersonID           *int64     `db:"person_id" json:"person_id"`
	PersonnelClassID   *int64     `db:"personnel_class_id" json:"personnel_class_id"`
	FirstName          string     `db:"first_name" json:"first_name"`
	Surname            string     `db:"surname" json:"surname"`
	Nick               string     `db:"nick" json:"nick"`
	JobTitle           string     `db:"job_title" json:"job_title"`
	IsFirstNameVisible bool       `db:"is_first_name_visible" json:"is_first_name_visible"`
	IsSurnameVisible   bool       `db:"is_surname_visible" json:"is_surname_visible"`
	IsNickVisible      bool       `db:"is_nick_visible" json:"is_nick_visible"`
	CreatedBy          *int64     `db:"created_by" json:"created_by"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	PrintedAt          *time.Time `db:"printed_at" json:"printed_at"`
	RevokedAt          *time.Time `db:"revoked_at" json:"revoked_at"`
}
