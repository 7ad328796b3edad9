package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Attempt states, in pipeline order. Rejected and BackendError are failure
// exits reachable from any non-terminal state.
const (
	AttemptStateDraft            = "draft"
	AttemptStateValidated        = "validated"
	AttemptStateDuplicateChecked = "duplicate_checked"
	AttemptStateInvited          = "invited"
	AttemptStateNotified         = "notified"
	AttemptStateRejected         = "rejected"
	AttemptStateBackendError     = "backend_error"
)

// ProvisionAttempt is the local history record of one provisioning run. It
// makes "invitation created, email failed" auditable after the fact: the
// invitation remains valid in the backend and only the email needs
// redispatching.
type ProvisionAttempt struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Username string `gorm:"index" json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`

	State        string `gorm:"index" json:"state"`
	InvitationID string `json:"invitation_id"`
	FlowSlug     string `json:"flow_slug"`

	InviteExpiresAt *time.Time `json:"invite_expires_at"`

	FailureKind    string `json:"failure_kind"`
	FailureMessage string `json:"failure_message"`
}

// BeforeCreate ensures a UUID identifier is generated automatically.
func (a *ProvisionAttempt) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
