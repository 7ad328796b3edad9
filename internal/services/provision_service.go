package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	playground "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noahsroberts/invitekit/internal/authentik"
	"github.com/noahsroberts/invitekit/internal/identity"
	"github.com/noahsroberts/invitekit/internal/models"
	apperrors "github.com/noahsroberts/invitekit/pkg/errors"
	"github.com/noahsroberts/invitekit/pkg/logger"
	"github.com/noahsroberts/invitekit/pkg/validator"
)

const defaultInviteTTL = 14 * 24 * time.Hour

// handlePattern matches the account names the backend accepts: lowercase
// alphanumerics with internal dots, dashes, or underscores.
var handlePattern = regexp.MustCompile(`^[a-z0-9]+(?:[._-][a-z0-9]+)*$`)

func init() {
	err := validator.RegisterValidation("handle", func(fl playground.FieldLevel) bool {
		return handlePattern.MatchString(fl.Field().String())
	})
	if err != nil {
		panic(fmt.Sprintf("register handle validation: %v", err))
	}
}

// ProvisionRequest is the raw operator input for one provisioning attempt.
type ProvisionRequest struct {
	FirstName     string   `json:"first_name" validate:"required"`
	MiddleName    string   `json:"middle_name"`
	MiddleInitial string   `json:"middle_initial"`
	LastName      string   `json:"last_name" validate:"required"`
	Email         string   `json:"email" validate:"required"`
	Phone         string   `json:"phone"`
	// Username forces the account name instead of deriving one.
	Username string   `json:"username" validate:"omitempty,handle"`
	Groups   []string `json:"groups" validate:"dive,required"`
}

// Notifier dispatches the onboarding email for a freshly created invitation.
type Notifier interface {
	Notify(ctx context.Context, profile models.UserProfile, invitation models.Invitation, flow models.EnrollmentFlow) error
}

// Recorder persists the outcome of a provisioning attempt.
type Recorder interface {
	Record(ctx context.Context, attempt *models.ProvisionAttempt) error
}

// ProvisionOption customises ProvisionService behaviour.
type ProvisionOption func(*ProvisionService)

// WithInviteTTL overrides the invitation lifetime.
func WithInviteTTL(d time.Duration) ProvisionOption {
	return func(s *ProvisionService) {
		if d > 0 {
			s.inviteTTL = d
		}
	}
}

// WithProvisionClock injects a custom clock primarily for testing.
func WithProvisionClock(clock func() time.Time) ProvisionOption {
	return func(s *ProvisionService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithNotifier attaches the onboarding-email dispatcher.
func WithNotifier(n Notifier) ProvisionOption {
	return func(s *ProvisionService) {
		s.notifier = n
	}
}

// WithRecorder attaches the local attempt-history store.
func WithRecorder(r Recorder) ProvisionOption {
	return func(s *ProvisionService) {
		s.recorder = r
	}
}

// ProvisionService orchestrates one provisioning attempt: profile build,
// duplicate checks, invitation issuance, and notification dispatch. The
// backend is the sole source of truth for known users, groups, and open
// invitations; nothing is cached across attempts.
type ProvisionService struct {
	backend        authentik.Backend
	usernameFormat models.UsernameFormat
	regions        []models.PhoneRegionFormat
	inviteTTL      time.Duration
	notifier       Notifier
	recorder       Recorder
	now            func() time.Time
	log            *zap.Logger
}

// NewProvisionService constructs a ProvisionService with the provided dependencies.
func NewProvisionService(backend authentik.Backend, usernameFormat models.UsernameFormat, regions []models.PhoneRegionFormat, opts ...ProvisionOption) (*ProvisionService, error) {
	if backend == nil {
		return nil, errors.New("provision service: backend is required")
	}
	if err := usernameFormat.Validate(); err != nil {
		return nil, fmt.Errorf("provision service: %w", err)
	}
	for _, region := range regions {
		if err := region.Validate(); err != nil {
			return nil, fmt.Errorf("provision service: %w", err)
		}
	}

	service := &ProvisionService{
		backend:        backend,
		usernameFormat: usernameFormat,
		regions:        regions,
		inviteTTL:      defaultInviteTTL,
		now:            time.Now,
		log:            logger.WithModule("provision"),
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// BuildProfile validates and normalizes raw input into a UserProfile. The
// duplicate-user check runs here, before any mutating backend call. Unknown
// groups are dropped with a warning; every other failure aborts the attempt.
func (s *ProvisionService) BuildProfile(ctx context.Context, req ProvisionRequest) (*models.UserProfile, error) {
	if err := validator.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("provision: invalid request: %w", err)
	}

	email, err := identity.ValidateEmail(strings.TrimSpace(req.Email))
	if err != nil {
		return nil, err
	}

	phone := ""
	if strings.TrimSpace(req.Phone) != "" {
		phone, err = identity.FormatPhone(strings.TrimSpace(req.Phone), s.regions)
		if err != nil {
			return nil, err
		}
	}

	username := strings.TrimSpace(req.Username)
	if username == "" {
		username = identity.GenerateUsername(req.FirstName, req.MiddleName, req.MiddleInitial, req.LastName, s.usernameFormat)
	}
	if username == "" {
		return nil, fmt.Errorf("provision: username format %v produced an empty username", s.usernameFormat)
	}

	knownUsers, err := s.backend.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	if containsString(knownUsers, username) {
		return nil, apperrors.ErrDuplicateUser.WithMessagef("User %s already exists", username)
	}

	knownGroups, err := s.backend.ListGroups(ctx)
	if err != nil {
		return nil, err
	}

	groups := make([]string, 0, len(req.Groups))
	for _, group := range normaliseNames(req.Groups) {
		if !containsString(knownGroups, group) {
			s.log.Warn("dropping unknown group", zap.String("group", group), zap.String("username", username))
			continue
		}
		groups = append(groups, group)
	}

	return &models.UserProfile{
		FirstName:     strings.TrimSpace(req.FirstName),
		MiddleName:    strings.TrimSpace(req.MiddleName),
		MiddleInitial: strings.TrimSpace(req.MiddleInitial),
		LastName:      strings.TrimSpace(req.LastName),
		Username:      username,
		Email:         email,
		Phone:         phone,
		Groups:        groups,
	}, nil
}

// InvitationExists reports whether any outstanding invitation's fixed-data
// username equals the profile's username. The whole list is scanned, not
// just the first entry.
func (s *ProvisionService) InvitationExists(ctx context.Context, profile models.UserProfile) (bool, error) {
	invitations, err := s.backend.ListInvitations(ctx)
	if err != nil {
		return false, err
	}

	for _, invitation := range invitations {
		if invitation.FixedData.Username == profile.Username {
			return true, nil
		}
	}
	return false, nil
}

// CreateInvitation requests a single-use invitation from the backend with
// expiration now + 14 days (unless overridden) and the profile's fixed data.
func (s *ProvisionService) CreateInvitation(ctx context.Context, profile models.UserProfile, flow models.EnrollmentFlow) (*models.Invitation, error) {
	expires := s.now().Add(s.inviteTTL)

	fixedData := profile.InviteFixedData()
	fixedData.InviteExpires = expires.Format(time.RFC3339)

	invitation, err := s.backend.CreateInvitation(ctx, authentik.InvitationRequest{
		Name:      profile.Username + "-invite",
		Expires:   expires,
		FixedData: fixedData,
		SingleUse: true,
		Flow:      flow.ID,
	})
	if err != nil {
		return nil, err
	}

	if uuid.Validate(invitation.ID) != nil {
		return nil, apperrors.ErrBackend.WithMessagef("Backend issued malformed invitation token %q", invitation.ID)
	}

	return invitation, nil
}

// Outcome reports how far a provisioning attempt progressed. NotifyErr set
// alongside an Invitation means the invitation was created but the email
// failed; redispatching the email is the only remediation needed.
type Outcome struct {
	State      string
	Profile    *models.UserProfile
	Invitation *models.Invitation
	NotifyErr  error
	Err        error
}

// Provision runs the full pipeline for one attempt: Draft -> Validated ->
// DuplicateChecked -> Invited -> Notified, exiting early to Rejected or
// BackendError. The outcome is also recorded in the local history store
// when one is attached.
func (s *ProvisionService) Provision(ctx context.Context, req ProvisionRequest, flow models.EnrollmentFlow) Outcome {
	outcome := Outcome{State: models.AttemptStateDraft}
	defer func() { s.record(ctx, req, flow, outcome) }()

	profile, err := s.BuildProfile(ctx, req)
	if err != nil {
		outcome.State = failureState(err)
		outcome.Err = err
		return outcome
	}
	outcome.Profile = profile
	outcome.State = models.AttemptStateValidated

	exists, err := s.InvitationExists(ctx, *profile)
	if err != nil {
		outcome.State = models.AttemptStateBackendError
		outcome.Err = err
		return outcome
	}
	if exists {
		outcome.State = models.AttemptStateRejected
		outcome.Err = apperrors.ErrDuplicateInvitation.WithMessagef("An open invitation already exists for %s", profile.Username)
		return outcome
	}
	outcome.State = models.AttemptStateDuplicateChecked

	invitation, err := s.CreateInvitation(ctx, *profile, flow)
	if err != nil {
		outcome.State = models.AttemptStateBackendError
		outcome.Err = err
		return outcome
	}
	outcome.Invitation = invitation
	outcome.State = models.AttemptStateInvited

	if s.notifier == nil {
		// No mail collaborator attached; the invitation link must be
		// shared out of band and the attempt stays at invited.
		return outcome
	}
	if err := s.notifier.Notify(ctx, *profile, *invitation, flow); err != nil {
		// The invitation stays valid; only the email needs redispatching.
		outcome.NotifyErr = err
		return outcome
	}

	outcome.State = models.AttemptStateNotified
	return outcome
}

func (s *ProvisionService) record(ctx context.Context, req ProvisionRequest, flow models.EnrollmentFlow, outcome Outcome) {
	if s.recorder == nil {
		return
	}

	attempt := &models.ProvisionAttempt{
		State:    outcome.State,
		FlowSlug: flow.Slug,
	}
	if outcome.Profile != nil {
		attempt.Username = outcome.Profile.Username
		attempt.Email = outcome.Profile.Email
		attempt.FullName = outcome.Profile.FullName()
	} else {
		attempt.Username = strings.TrimSpace(req.Username)
		attempt.Email = strings.TrimSpace(req.Email)
	}
	if outcome.Invitation != nil {
		attempt.InvitationID = outcome.Invitation.ID
		expires := outcome.Invitation.Expires
		attempt.InviteExpiresAt = &expires
	}

	failure := outcome.Err
	if failure == nil {
		failure = outcome.NotifyErr
	}
	if failure != nil {
		var appErr *apperrors.AppError
		if errors.As(failure, &appErr) {
			attempt.FailureKind = string(appErr.Kind)
		}
		attempt.FailureMessage = failure.Error()
	}

	if err := s.recorder.Record(ctx, attempt); err != nil {
		s.log.Warn("recording provisioning attempt failed", zap.Error(err))
	}
}

// failureState maps a BuildProfile error to the matching failure exit.
// Backend faults get their own state; everything else (duplicates, malformed
// fields, bad raw input) is operator-correctable and rejected.
func failureState(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Kind == apperrors.KindBackendError {
		return models.AttemptStateBackendError
	}
	return models.AttemptStateRejected
}
