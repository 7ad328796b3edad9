package models

import "fmt"

// UserProfile is the validated, normalized representation of a prospective
// account. It is constructed once per provisioning attempt and never mutated
// afterwards.
type UserProfile struct {
	FirstName     string
	MiddleName    string
	MiddleInitial string
	LastName      string

	Username string
	Email    string
	// Phone is the region-formatted display string, empty when none supplied.
	Phone string
	// Groups keeps the caller's order; unknown groups have been filtered out.
	Groups []string
}

// FullName renders the display name. A full middle name takes precedence
// over a middle initial.
func (p UserProfile) FullName() string {
	switch {
	case p.MiddleName != "":
		return fmt.Sprintf("%s %s %s", p.FirstName, p.MiddleName, p.LastName)
	case p.MiddleInitial != "":
		return fmt.Sprintf("%s %s. %s", p.FirstName, p.MiddleInitial, p.LastName)
	default:
		return fmt.Sprintf("%s %s", p.FirstName, p.LastName)
	}
}

// HasGroup reports whether the profile's filtered group set contains name.
func (p UserProfile) HasGroup(name string) bool {
	for _, g := range p.Groups {
		if g == name {
			return true
		}
	}
	return false
}

// InviteFixedData derives the fixed-data payload pre-populated into an
// invitation. The expiration is filled in by the provisioning service once
// it is computed.
func (p UserProfile) InviteFixedData() FixedData {
	return FixedData{
		Name:        p.FullName(),
		Username:    p.Username,
		Email:       p.Email,
		Phone:       p.Phone,
		GroupsToAdd: p.Groups,
	}
}
