// Package authentik provides a narrow client over the identity backend's
// REST API: exactly the five operations the provisioning pipeline needs.
// Test doubles implement Backend; nothing else in the repo touches the wire.
package authentik

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/noahsroberts/invitekit/internal/models"
	apperrors "github.com/noahsroberts/invitekit/pkg/errors"
)

// Backend exposes the identity-backend operations consumed by the
// provisioning service.
type Backend interface {
	ListGroups(ctx context.Context) ([]string, error)
	ListUsers(ctx context.Context) ([]string, error)
	ListEnrollmentFlows(ctx context.Context) ([]models.EnrollmentFlow, error)
	ListInvitations(ctx context.Context) ([]models.Invitation, error)
	CreateInvitation(ctx context.Context, req InvitationRequest) (*models.Invitation, error)
}

// InvitationRequest is the payload for invitation creation.
type InvitationRequest struct {
	Name      string           `json:"name"`
	Expires   time.Time        `json:"expires"`
	FixedData models.FixedData `json:"fixed_data"`
	SingleUse bool             `json:"single_use"`
	Flow      string           `json:"flow"`
}

// Config carries the connection settings for the HTTP client.
type Config struct {
	// Host is the backend's public host, e.g. "auth.example.com". A full URL
	// with scheme is also accepted.
	Host  string
	Token string
	// Timeout bounds each request at the transport boundary.
	Timeout time.Duration
}

// Client is the HTTP implementation of Backend against an authentik-style
// /api/v3 surface.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
}

var _ Backend = (*Client)(nil)

// NewClient builds an HTTP backend client from the provided config.
func NewClient(cfg Config) (*Client, error) {
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		return nil, errors.New("authentik: host is required")
	}
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("authentik: API token is required")
	}

	base := host
	if !strings.Contains(base, "://") {
		base = "https://" + base
	}
	base = strings.TrimRight(base, "/") + "/api/v3"

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL: base,
		token:   cfg.Token,
		httpc:   &http.Client{Timeout: timeout},
	}, nil
}

// listEnvelope is the paginated result wrapper the backend puts around every
// list endpoint.
type listEnvelope[T any] struct {
	Results []T `json:"results"`
}

// ListGroups returns the names of all groups known to the backend.
func (c *Client) ListGroups(ctx context.Context) ([]string, error) {
	var envelope listEnvelope[struct {
		Name string `json:"name"`
	}]
	if err := c.get(ctx, "/core/groups/", &envelope); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(envelope.Results))
	for _, group := range envelope.Results {
		names = append(names, group.Name)
	}
	return names, nil
}

// ListUsers returns the usernames of all existing users.
func (c *Client) ListUsers(ctx context.Context) ([]string, error) {
	var envelope listEnvelope[struct {
		Username string `json:"username"`
	}]
	if err := c.get(ctx, "/core/users/", &envelope); err != nil {
		return nil, err
	}

	usernames := make([]string, 0, len(envelope.Results))
	for _, user := range envelope.Results {
		usernames = append(usernames, user.Username)
	}
	return usernames, nil
}

// ListEnrollmentFlows returns the flows whose designation is enrollment,
// filtered client-side from the full flow list.
func (c *Client) ListEnrollmentFlows(ctx context.Context) ([]models.EnrollmentFlow, error) {
	var envelope listEnvelope[models.EnrollmentFlow]
	if err := c.get(ctx, "/flows/instances/", &envelope); err != nil {
		return nil, err
	}

	var flows []models.EnrollmentFlow
	for _, flow := range envelope.Results {
		if flow.Designation == models.FlowDesignationEnrollment {
			flows = append(flows, flow)
		}
	}
	return flows, nil
}

// ListInvitations returns all outstanding invitations.
func (c *Client) ListInvitations(ctx context.Context) ([]models.Invitation, error) {
	var envelope listEnvelope[models.Invitation]
	if err := c.get(ctx, "/stages/invitation/invitations/", &envelope); err != nil {
		return nil, err
	}
	return envelope.Results, nil
}

// CreateInvitation asks the backend to issue a new invitation.
func (c *Client) CreateInvitation(ctx context.Context, req InvitationRequest) (*models.Invitation, error) {
	var invitation models.Invitation
	if err := c.post(ctx, "/stages/invitation/invitations/", req, &invitation); err != nil {
		return nil, err
	}
	return &invitation, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return apperrors.Wrap(err, "Encode request body")
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(payload), out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return apperrors.Wrap(err, "Build backend request")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return apperrors.ErrBackend.WithMessagef("Backend request %s %s failed", method, path).WithInternal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return apperrors.ErrBackend.
			WithMessagef("Backend returned %d for %s %s", resp.StatusCode, method, path).
			WithInternal(fmt.Errorf("response: %s", strings.TrimSpace(string(detail))))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.ErrBackend.WithMessagef("Decode %s %s response", method, path).WithInternal(err)
	}
	return nil
}
