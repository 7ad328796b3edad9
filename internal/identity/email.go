package identity

import (
	"strings"

	apperrors "github.com/noahsroberts/invitekit/pkg/errors"
)

// ValidateEmail structurally parses an address and round-trips it: the
// canonical form rebuilt from the parsed parts must equal the input exactly.
// This deliberately rejects multi-dot domains; it is not an RFC validator.
// The single exception is a bare "localhost" domain, which needs no TLD.
func ValidateEmail(raw string) (string, error) {
	prefix, domainPart, ok := strings.Cut(raw, "@")
	if !ok || prefix == "" || domainPart == "" {
		return "", apperrors.ErrMalformed.WithMessagef("Address %q is missing a prefix or domain", raw)
	}

	domain, rest, hasDot := strings.Cut(domainPart, ".")

	// A localhost domain label always canonicalizes to prefix@localhost, so
	// a trailing TLD fails the round trip.
	if domain == "localhost" {
		canonical := prefix + "@localhost"
		if canonical != raw {
			return "", apperrors.ErrMalformed.WithMessagef("Address %q failed round-trip validation", raw)
		}
		return canonical, nil
	}

	if !hasDot || domain == "" {
		return "", apperrors.ErrMalformed.WithMessagef("Address %q is missing a domain or TLD", raw)
	}

	// Only the segment up to the next dot counts as the TLD; anything beyond
	// it fails the round-trip check below.
	tld, _, _ := strings.Cut(rest, ".")
	if tld == "" {
		return "", apperrors.ErrMalformed.WithMessagef("Address %q is missing a TLD", raw)
	}

	canonical := prefix + "@" + domain + "." + tld
	if canonical != raw {
		return "", apperrors.ErrMalformed.WithMessagef("Address %q failed round-trip validation", raw)
	}
	return canonical, nil
}

// CheckEmail reports whether raw is a valid canonical address.
func CheckEmail(raw string) bool {
	_, err := ValidateEmail(raw)
	return err == nil
}
