// Package identity holds the pure field-normalization rules applied to raw
// operator input: phone display formatting, email validation, and username
// derivation. Nothing here talks to the backend.
package identity

import (
	"strings"

	"github.com/noahsroberts/invitekit/internal/models"
	apperrors "github.com/noahsroberts/invitekit/pkg/errors"
)

// MatchRegion finds the region format whose country-code prefix matches the
// start of the raw number. The scan is linear and the last match wins, so
// later table entries override earlier ones on prefix collision.
func MatchRegion(raw string, regions []models.PhoneRegionFormat) (models.PhoneRegionFormat, bool) {
	var (
		matched models.PhoneRegionFormat
		found   bool
	)
	for _, region := range regions {
		if strings.HasPrefix(raw, region.Code) {
			matched = region
			found = true
		}
	}
	return matched, found
}

// FormatPhone renders a raw phone number (country calling code followed by
// digits, with optional literal dashes and spaces) as the matched region's
// grouped display string, e.g. "1 406-217-3981".
func FormatPhone(raw string, regions []models.PhoneRegionFormat) (string, error) {
	region, ok := MatchRegion(raw, regions)
	if !ok {
		return "", apperrors.ErrFormatMismatch.WithMessagef("No region format matches number %q", raw)
	}

	rest := raw[len(region.Code):]
	var digits strings.Builder
	for _, ch := range rest {
		if ch == '-' || ch == ' ' {
			continue
		}
		digits.WriteRune(ch)
	}

	if digits.Len() != region.Length {
		return "", apperrors.ErrFormatMismatch.WithMessagef(
			"Incorrect length for region +%s: got %d digits, want %d", region.Code, digits.Len(), region.Length)
	}

	stripped := digits.String()
	var grouped strings.Builder
	group := 0
	boundary := region.Grouping[0]
	for i := 0; i < region.Length; i++ {
		if i == boundary {
			grouped.WriteString(region.Divider)
			group++
			boundary += region.Grouping[group]
		}
		grouped.WriteByte(stripped[i])
	}

	return region.Code + " " + grouped.String(), nil
}
