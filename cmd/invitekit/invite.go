package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/noahsroberts/invitekit/internal/models"
	"github.com/noahsroberts/invitekit/internal/services"
)

// runInvite drives one interactive provisioning attempt: flow selection,
// profile prompts, then the full pipeline with a per-stage report.
func runInvite(ctx context.Context, rt *runtime, in *bufio.Reader, out io.Writer) error {
	flows, err := rt.backend.ListEnrollmentFlows(ctx)
	if err != nil {
		return fmt.Errorf("list enrollment flows: %w", err)
	}
	if len(flows) == 0 {
		return errors.New("the backend has no enrollment flows; create one before inviting users")
	}

	fmt.Fprintln(out, "Enrollment flows:")
	for i, flow := range flows {
		fmt.Fprintf(out, "  %d) %s (%s)\n", i+1, flow.Name, flow.Slug)
	}

	choice, err := promptLine(in, out, "Flow number")
	if err != nil {
		return err
	}
	idx, err := parseFlowChoice(choice, len(flows))
	if err != nil {
		return err
	}
	flow := flows[idx]

	if groups, err := rt.backend.ListGroups(ctx); err == nil && len(groups) > 0 {
		fmt.Fprintf(out, "Known groups: %s\n", strings.Join(groups, ", "))
	}

	req, err := promptRequest(in, out)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Provisioning %s %s via flow %q...\n", req.FirstName, req.LastName, flow.Slug)

	outcome := rt.provisioner.Provision(ctx, req, flow)
	return reportOutcome(out, rt.cfg.Authentik.URL, flow, outcome)
}

func promptRequest(in *bufio.Reader, out io.Writer) (services.ProvisionRequest, error) {
	var req services.ProvisionRequest
	fields := []struct {
		label string
		dest  *string
	}{
		{"First name", &req.FirstName},
		{"Middle name (optional)", &req.MiddleName},
		{"Middle initial (optional)", &req.MiddleInitial},
		{"Last name", &req.LastName},
		{"Username (blank to derive)", &req.Username},
		{"Email", &req.Email},
		{"Phone (optional)", &req.Phone},
	}
	for _, field := range fields {
		value, err := promptLine(in, out, field.label)
		if err != nil {
			return req, err
		}
		*field.dest = value
	}

	groupsRaw, err := promptLine(in, out, "Groups (comma separated, optional)")
	if err != nil {
		return req, err
	}
	req.Groups = splitGroups(groupsRaw)

	return req, nil
}

func reportOutcome(out io.Writer, authHost string, flow models.EnrollmentFlow, outcome services.Outcome) error {
	if outcome.Err != nil {
		fmt.Fprintf(out, "Attempt ended in state %q.\n", outcome.State)
		return outcome.Err
	}

	invitation := outcome.Invitation
	fmt.Fprintf(out, "Invitation %q created, expires %s.\n",
		invitation.Name, invitation.Expires.Format(time.RFC1123))
	fmt.Fprintf(out, "Enrollment link: %s\n", inviteLink(authHost, flow, *invitation))

	if outcome.NotifyErr != nil {
		fmt.Fprintf(out, "Email delivery failed: %v\n", outcome.NotifyErr)
		fmt.Fprintln(out, "The invitation remains valid; share the link above or redispatch the email.")
		return nil
	}

	if outcome.State == models.AttemptStateNotified {
		fmt.Fprintf(out, "Onboarding email sent to %s.\n", outcome.Profile.Email)
	} else {
		fmt.Fprintln(out, "Email delivery is disabled; share the link above with the new user.")
	}
	return nil
}

// runCheck verifies the backend is reachable with the configured credentials
// and summarises the effective setup.
func runCheck(ctx context.Context, rt *runtime, out io.Writer) error {
	groups, err := rt.backend.ListGroups(ctx)
	if err != nil {
		return fmt.Errorf("backend check failed: %w", err)
	}
	flows, err := rt.backend.ListEnrollmentFlows(ctx)
	if err != nil {
		return fmt.Errorf("backend check failed: %w", err)
	}

	fmt.Fprintf(out, "Backend %s reachable: %d groups, %d enrollment flows.\n",
		rt.cfg.Authentik.URL, len(groups), len(flows))

	if rt.cfg.Email.SMTP.Enabled {
		fmt.Fprintf(out, "Email delivery enabled via %s:%d.\n", rt.cfg.Email.SMTP.Host, rt.cfg.Email.SMTP.Port)
	} else {
		fmt.Fprintln(out, "Email delivery disabled.")
	}

	if rt.history != nil {
		fmt.Fprintf(out, "History store ready at %s.\n", rt.cfg.History.Path)
	} else {
		fmt.Fprintln(out, "History store disabled.")
	}

	return nil
}

// runHistory prints recorded provisioning attempts, newest first.
func runHistory(ctx context.Context, rt *runtime, state string, limit int, out io.Writer) error {
	if rt.history == nil {
		return errors.New("the history store is disabled; enable history in the configuration")
	}

	attempts, err := rt.history.List(ctx, state, limit)
	if err != nil {
		return fmt.Errorf("list provisioning history: %w", err)
	}
	if len(attempts) == 0 {
		fmt.Fprintln(out, "No provisioning attempts recorded.")
		return nil
	}

	for _, attempt := range attempts {
		line := fmt.Sprintf("%s  %-17s %s <%s>",
			attempt.CreatedAt.Format("2006-01-02 15:04"), attempt.State, attempt.Username, attempt.Email)
		if attempt.FailureMessage != "" {
			line += "  " + attempt.FailureMessage
		}
		fmt.Fprintln(out, line)
	}
	return nil
}

func promptLine(in *bufio.Reader, out io.Writer, label string) (string, error) {
	fmt.Fprintf(out, "%s: ", label)
	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		if errors.Is(err, io.EOF) {
			return "", errors.New("input closed before all prompts were answered")
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func parseFlowChoice(input string, count int) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		return 0, fmt.Errorf("flow choice %q is not a number", input)
	}
	if n < 1 || n > count {
		return 0, fmt.Errorf("flow choice %d is out of range 1-%d", n, count)
	}
	return n - 1, nil
}

func splitGroups(input string) []string {
	var groups []string
	for _, part := range strings.Split(input, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			groups = append(groups, trimmed)
		}
	}
	return groups
}

func inviteLink(authHost string, flow models.EnrollmentFlow, invitation models.Invitation) string {
	host := strings.TrimPrefix(strings.TrimPrefix(authHost, "https://"), "http://")
	host = strings.TrimRight(host, "/")
	return fmt.Sprintf("https://%s/if/flow/%s/?itoken=%s", host, flow.Slug, invitation.ID)
}
