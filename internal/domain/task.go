package domain

import (
	"time"
)

// TaskKind distinguishes outbound phone calls from outbound emails.
type TaskKind string

const (
	TaskKindCall  TaskKind = "call"
	TaskKindEmail TaskKind = "email"
)

// TaskStatus is the canonical lifecycle state owned by the task service.
// Transitions are validated there; nothing else writes this field.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Terminal reports whether no further automatic transitions occur.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// Outcome is the semantic result of a terminal task. Set only by the webhook
// ingester or the manual-fail action.
type Outcome string

const (
	OutcomeSuccess        Outcome = "success"
	OutcomePartial        Outcome = "partial"
	OutcomeFailed         Outcome = "failed"
	OutcomeCallbackNeeded Outcome = "callback_needed"
	OutcomeWaitlisted     Outcome = "waitlisted"
	OutcomeVoicemail      Outcome = "voicemail"
	OutcomeNoAnswer       Outcome = "no_answer"
	OutcomeUnknown        Outcome = "unknown"
)

// Refundable reports whether this outcome means the call never productively
// connected, so the credit spent on it must be returned.
func (o Outcome) Refundable() bool {
	switch o {
	case OutcomeVoicemail, OutcomeNoAnswer, OutcomeFailed:
		return true
	}
	return false
}

// ProviderStatus mirrors the voice provider's own call status for display
// purposes. It is deliberately decoupled from the canonical TaskStatus.
type ProviderStatus string

const (
	ProviderStatusQueued     ProviderStatus = "queued"
	ProviderStatusRinging    ProviderStatus = "ringing"
	ProviderStatusInProgress ProviderStatus = "in-progress"
	ProviderStatusEnded      ProviderStatus = "ended"
	ProviderStatusCompleted  ProviderStatus = "completed"
)

// Tier marks how involved the errand is expected to be. It shapes nothing in
// billing today (every task costs its frozen CreditsUsed) and exists for
// display and prioritisation.
type Tier string

const (
	TierSimple  Tier = "simple"
	TierComplex Tier = "complex"
)

// Task is the unit of work: one call or email errand run on behalf of an
// account. Cultural fields are resolved from the profile store at creation
// time and frozen here; later profile edits never alter an existing Task.
type Task struct {
	ID      string   `json:"id" gorm:"column:id;primaryKey"`
	OwnerID string   `json:"owner_id" gorm:"column:owner_id;index"`
	Kind    TaskKind `json:"kind" gorm:"column:kind"`
	Tier    Tier     `json:"tier" gorm:"column:tier"`

	Status         TaskStatus     `json:"status" gorm:"column:status;index"`
	Outcome        Outcome        `json:"outcome,omitempty" gorm:"column:outcome"`
	ProviderHandle string         `json:"provider_handle,omitempty" gorm:"column:provider_handle;index"`
	ProviderStatus ProviderStatus `json:"provider_status,omitempty" gorm:"column:provider_status"`

	BusinessName string `json:"business_name" gorm:"column:business_name"`
	ContactPhone string `json:"contact_phone,omitempty" gorm:"column:contact_phone"`
	ContactEmail string `json:"contact_email,omitempty" gorm:"column:contact_email"`

	Country       string `json:"country" gorm:"column:country"`
	Language      string `json:"language" gorm:"column:language"`
	CulturalNotes string `json:"cultural_notes,omitempty" gorm:"column:cultural_notes"`

	Objective       string `json:"objective" gorm:"column:objective"`
	DetailedNotes   string `json:"detailed_notes,omitempty" gorm:"column:detailed_notes"`
	TonePreference  string `json:"tone_preference" gorm:"column:tone_preference"`
	Constraints     string `json:"constraints,omitempty" gorm:"column:constraints"`
	FallbackOptions string `json:"fallback_options,omitempty" gorm:"column:fallback_options"`

	OpeningScript string `json:"opening_script,omitempty" gorm:"column:opening_script"`
	CallPlan      string `json:"call_plan,omitempty" gorm:"column:call_plan"`

	// CreditsUsed is fixed at creation and never mutated afterwards; refunds
	// are separate ledger entries referencing this task.
	CreditsUsed int `json:"credits_used" gorm:"column:credits_used"`

	Transcript   string `json:"transcript,omitempty" gorm:"column:transcript"`
	Summary      string `json:"summary,omitempty" gorm:"column:summary"`
	ActionItems  string `json:"action_items,omitempty" gorm:"column:action_items"`
	RecordingURL string `json:"recording_url,omitempty" gorm:"column:recording_url"`

	EmailSubject   string     `json:"email_subject,omitempty" gorm:"column:email_subject"`
	EmailBody      string     `json:"email_body,omitempty" gorm:"column:email_body"`
	EmailMessageID string     `json:"email_message_id,omitempty" gorm:"column:email_message_id"`
	EmailSentAt    *time.Time `json:"email_sent_at,omitempty" gorm:"column:email_sent_at"`

	CreatedAt   time.Time  `json:"created_at" gorm:"column:created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty" gorm:"column:started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" gorm:"column:completed_at"`
	UpdatedAt   time.Time  `json:"updated_at" gorm:"column:updated_at"`
}

func (Task) TableName() string {
	return "tasks"
}
