package identity

import (
	"strings"

	"github.com/noahsroberts/invitekit/internal/models"
)

// GenerateUsername derives a canonical lowercase username from name parts
// under the configured format. It is a pure function: no backend lookups.
// Components that resolve to nothing also drop their adjacent separator, so
// the output never carries leading, trailing, or doubled separators.
func GenerateUsername(first, middleName, middleInitial, last string, format models.UsernameFormat) string {
	segments := make([]string, 0, 3)

	if s := applyMode(first, format.First); s != "" {
		segments = append(segments, s)
	}

	middle := middleName
	if format.Middle == models.NameModeInitial {
		middle = middleInitial
	}
	if s := applyMode(middle, format.Middle); s != "" {
		segments = append(segments, s)
	}

	if s := applyMode(last, format.Last); s != "" {
		segments = append(segments, s)
	}

	return strings.Join(segments, format.Separator)
}

func applyMode(component string, mode models.NameMode) string {
	component = strings.ToLower(strings.TrimSpace(component))

	switch mode {
	case models.NameModeFull:
		return component
	case models.NameModeInitial:
		if component == "" {
			return ""
		}
		return string([]rune(component)[0])
	default:
		return ""
	}
}
