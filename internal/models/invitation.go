package models

import "time"

// FixedData is the set of profile fields pre-populated into an invitation so
// the enrollee cannot alter them. Field names follow the backend wire shape.
type FixedData struct {
	Name          string   `json:"name"`
	Username      string   `json:"username"`
	Email         string   `json:"email"`
	Phone         string   `json:"phone"`
	GroupsToAdd   []string `json:"groups_to_add"`
	InviteExpires string   `json:"invite_expires"`
}

// Invitation is a backend-issued, single-use enrollment invitation. It is
// read-only to this system after creation.
type Invitation struct {
	ID        string    `json:"pk"`
	Name      string    `json:"name"`
	Expires   time.Time `json:"expires"`
	FixedData FixedData `json:"fixed_data"`
	SingleUse bool      `json:"single_use"`
	FlowID    string    `json:"flow"`
}

// EnrollmentFlow is a backend-defined workflow a new user completes via an
// invitation link to finish account setup.
type EnrollmentFlow struct {
	ID          string `json:"pk"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Designation string `json:"designation"`
}

// FlowDesignationEnrollment is the designation value selecting flows usable
// for invitations.
const FlowDesignationEnrollment = "enrollment"
