package models

// PersonSignupExtra is a signup extra joined with the person it belongs to.
type PersonSignupExtra struct {
	SignupExtra
	Person Person
}
