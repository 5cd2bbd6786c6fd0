// Package memory implements per-user semantic memory: typed personalization
// facts embedded and recalled by similarity, partitioned by owner. Records
// are append-mostly and immutable once written; corrections are new records,
// and every read path filters by owner identity in SQL, so one user's facts
// can never surface in another user's recall.
package memory

import (
	"time"

	"github.com/google/uuid"
)

// Type classifies what kind of personalization fact a record holds.
type Type string

const (
	TypeProfile    Type = "profile"    // Stable traits: age band, risk bands
	TypeConstraint Type = "constraint" // SDOH limits: budget, safety, schedule
	TypeHabitPlan  Type = "habit_plan" // Agreed behavior-change plans
	TypeOutcome    Type = "outcome"    // Reported results and check-ins
)

// Valid reports whether t is one of the defined memory types.
func (t Type) Valid() bool {
	switch t {
	case TypeProfile, TypeConstraint, TypeHabitPlan, TypeOutcome:
		return true
	}
	return false
}

const (
	// MaxContentLength caps a single memory record.
	MaxContentLength = 2000

	// DefaultTopK is the recall result count when the caller passes none.
	DefaultTopK = 5

	// MaxTopK caps recall size regardless of the caller's request.
	MaxTopK = 20

	// EmbedTimeout bounds the embedding call on the save and recall paths.
	EmbedTimeout = 15 * time.Second
)

// Record is one stored personalization fact. Immutable after creation.
type Record struct {
	ID        uuid.UUID
	OwnerID   string
	Content   string
	Type      Type
	Metadata  map[string]string
	CreatedAt time.Time
}
