package main

import (
	"bufio"
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noahsroberts/invitekit/internal/models"
	"github.com/noahsroberts/invitekit/internal/services"
)

func TestParseFlowChoice(t *testing.T) {
	idx, err := parseFlowChoice(" 2 ", 3)
	require.NoError(t, err)
	require.Equal(t, 1, idx)

	_, err = parseFlowChoice("abc", 3)
	require.Error(t, err)

	_, err = parseFlowChoice("0", 3)
	require.Error(t, err)

	_, err = parseFlowChoice("4", 3)
	require.Error(t, err)
}

func TestSplitGroups(t *testing.T) {
	require.Equal(t, []string{"users", "elevated"}, splitGroups("users, elevated"))
	require.Equal(t, []string{"users"}, splitGroups(" ,users,, "))
	require.Nil(t, splitGroups(""))
}

func TestInviteLink(t *testing.T) {
	flow := models.EnrollmentFlow{Slug: "welcome"}
	invitation := models.Invitation{ID: "11111111-2222-3333-4444-555555555555"}

	link := inviteLink("https://auth.example.com/", flow, invitation)
	require.Equal(t, "https://auth.example.com/if/flow/welcome/?itoken=11111111-2222-3333-4444-555555555555", link)
}

func TestPromptRequestReadsAllFields(t *testing.T) {
	input := strings.Join([]string{
		"Noah", "", "S", "Roberts", "", "nroberts@example.com", "14062173981", "users, elevated",
	}, "\n") + "\n"

	var out bytes.Buffer
	req, err := promptRequest(bufio.NewReader(strings.NewReader(input)), &out)
	require.NoError(t, err)

	require.Equal(t, "Noah", req.FirstName)
	require.Empty(t, req.MiddleName)
	require.Equal(t, "S", req.MiddleInitial)
	require.Equal(t, "Roberts", req.LastName)
	require.Empty(t, req.Username)
	require.Equal(t, "nroberts@example.com", req.Email)
	require.Equal(t, "14062173981", req.Phone)
	require.Equal(t, []string{"users", "elevated"}, req.Groups)
	require.Contains(t, out.String(), "First name:")
}

func TestPromptRequestInputClosedEarly(t *testing.T) {
	var out bytes.Buffer
	_, err := promptRequest(bufio.NewReader(strings.NewReader("Noah\n")), &out)
	require.Error(t, err)
	require.Contains(t, err.Error(), "input closed")
}

func TestReportOutcomePartialFailure(t *testing.T) {
	flow := models.EnrollmentFlow{Slug: "welcome"}
	profile := models.UserProfile{Username: "nroberts", Email: "nroberts@example.com"}
	invitation := models.Invitation{
		ID:      "aaaa1111-2222-3333-4444-555555555555",
		Name:    "nroberts-invite",
		Expires: time.Date(2026, time.September, 15, 12, 0, 0, 0, time.UTC),
	}

	var out bytes.Buffer
	err := reportOutcome(&out, "auth.example.com", flow, services.Outcome{
		State:      models.AttemptStateInvited,
		Profile:    &profile,
		Invitation: &invitation,
		NotifyErr:  errDeliveryFailed,
	})
	require.NoError(t, err)

	text := out.String()
	require.Contains(t, text, `Invitation "nroberts-invite" created`)
	require.Contains(t, text, "itoken=aaaa1111-2222-3333-4444-555555555555")
	require.Contains(t, text, "Email delivery failed")
	require.Contains(t, text, "invitation remains valid")
}

var errDeliveryFailed = &deliveryError{}

type deliveryError struct{}

func (e *deliveryError) Error() string { return "smtp: connection refused" }

func TestReportOutcomeFailure(t *testing.T) {
	var out bytes.Buffer
	wantErr := &deliveryError{}
	err := reportOutcome(&out, "auth.example.com", models.EnrollmentFlow{}, services.Outcome{
		State: models.AttemptStateRejected,
		Err:   wantErr,
	})
	require.ErrorIs(t, err, wantErr)
	require.Contains(t, out.String(), `state "rejected"`)
}

func TestLoadApplicationConfigMissingPath(t *testing.T) {
	_, err := loadApplicationConfig("/does/not/exist")
	require.Error(t, err)
	require.Contains(t, err.Error(), "does not exist")
}
