package model

import "time"

// OccurrenceStatus is the lifecycle state of a single chore occurrence.
type OccurrenceStatus string

const (
	StatusPending   OccurrenceStatus = "pending"
	StatusCompleted OccurrenceStatus = "completed"
	StatusIgnored   OccurrenceStatus = "ignored"
)

// ChoreDefinition is the reusable template for a chore: who does it, what it
// pays, and how it recurs. Occurrences reference it by ID.
type ChoreDefinition struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	AssignedTo     *string   `json:"assigned_to"`
	Recurrence     string    `json:"recurrence"`
	Points         int       `json:"points"`
	ProviderTaskID *string   `json:"provider_task_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ChoreOccurrence is one concrete due-date instance of a definition.
type ChoreOccurrence struct {
	ID           int64            `json:"id"`
	DefinitionID string           `json:"definition_id"`
	DueDate      time.Time        `json:"due_date"`
	Status       OccurrenceStatus `json:"status"`
	CompletedAt  *time.Time       `json:"completed_at"`
	IgnoredAt    *time.Time       `json:"ignored_at"`
}

// ChoreOccurrenceView is an occurrence joined with its definition, as shown
// on the dashboard.
type ChoreOccurrenceView struct {
	OccurrenceID int64            `json:"occurrence_id"`
	DefinitionID string           `json:"definition_id"`
	Title        string           `json:"title"`
	AssignedTo   *string          `json:"assigned_to"`
	DueDate      time.Time        `json:"due_date"`
	Status       OccurrenceStatus `json:"status"`
	Points       int              `json:"points"`
	CompletedAt  *time.Time       `json:"completed_at"`
	IgnoredAt    *time.Time       `json:"ignored_at"`
}
