package models

import "fmt"

// NameMode controls how a name component contributes to a generated username.
type NameMode string

const (
	// NameModeFull uses the whole lowercased component.
	NameModeFull NameMode = "full"
	// NameModeInitial uses the first lowercased character.
	NameModeInitial NameMode = "initial"
	// NameModeOmit drops the component and its adjacent separator.
	NameModeOmit NameMode = "omit"
)

// UsernameFormat specifies how usernames are derived from name parts.
type UsernameFormat struct {
	First     NameMode `mapstructure:"first"`
	Middle    NameMode `mapstructure:"middle"`
	Last      NameMode `mapstructure:"last"`
	Separator string   `mapstructure:"separator"`
}

// Validate rejects modes outside full/initial/omit.
func (f UsernameFormat) Validate() error {
	for _, mode := range []NameMode{f.First, f.Middle, f.Last} {
		switch mode {
		case NameModeFull, NameModeInitial, NameModeOmit:
		default:
			return fmt.Errorf("username format: unknown mode %q", mode)
		}
	}
	return nil
}

// PhoneRegionFormat is a country-specific phone display rule: expected digit
// count after the country code, grouping sizes, and the divider inserted
// between groups. The region table is loaded once at start and immutable
// thereafter.
type PhoneRegionFormat struct {
	Code      string   `mapstructure:"code"`
	Countries []string `mapstructure:"countries"`
	Length    int      `mapstructure:"length"`
	Grouping  []int    `mapstructure:"grouping"`
	Divider   string   `mapstructure:"divider"`
}

// Validate enforces the table invariant: grouping sums to the expected length.
func (f PhoneRegionFormat) Validate() error {
	if f.Code == "" {
		return fmt.Errorf("phone region: country code is required")
	}
	if f.Length <= 0 {
		return fmt.Errorf("phone region %s: length must be positive", f.Code)
	}

	sum := 0
	for _, g := range f.Grouping {
		if g <= 0 {
			return fmt.Errorf("phone region %s: group sizes must be positive", f.Code)
		}
		sum += g
	}
	if sum != f.Length {
		return fmt.Errorf("phone region %s: grouping sums to %d, want %d", f.Code, sum, f.Length)
	}
	return nil
}
