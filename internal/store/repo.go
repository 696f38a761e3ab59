package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/blueprint/internal/itempool"
	"github.com/abhisek/blueprint/internal/scoring"
)

// Version is one imported revision of a blueprint's item bank.
type Version struct {
	ID               uuid.UUID
	TemplateID       string
	BlueprintName    string
	BlueprintVersion string
	Active           bool
	CreatedAt        time.Time
}

// Response is a normalized response to one bank item.
type Response struct {
	ItemID uuid.UUID
	Score  float64
}

// Result is a persisted score summary.
type Result struct {
	Sequence     int64           `json:"sequence"`
	AssessmentID uuid.UUID       `json:"assessment_id"`
	TemplateID   string          `json:"template_id"`
	Summary      scoring.Summary `json:"summary"`
	CreatedAt    time.Time       `json:"created_at"`
}

// VersionRepo manages assessment versions.
type VersionRepo interface {
	// Create registers a new active version.
	Create(ctx context.Context, templateID, name, blueprintVersion string) (*Version, error)

	// Latest returns the active version with the highest semantic version,
	// or nil if the template has none.
	Latest(ctx context.Context, templateID string) (*Version, error)

	// List returns every version of a template, oldest first.
	List(ctx context.Context, templateID string) ([]Version, error)
}

// BankRepo manages item-bank records and their usage statistics.
type BankRepo interface {
	// Import stores records under a version, replacing records with the same
	// code. Records without an ItemID are assigned one.
	Import(ctx context.Context, versionID uuid.UUID, records []itempool.BankRecord) ([]itempool.BankRecord, error)

	// Records returns the records of a version ordered by code.
	Records(ctx context.Context, versionID uuid.UUID) ([]itempool.BankRecord, error)

	// Stats returns the statistics of every item of a version that has any.
	Stats(ctx context.Context, versionID uuid.UUID) ([]itempool.ItemStats, error)

	// RecordAdministration registers the delivery of items to an assessment
	// and refreshes the exposure ratio of every item in the version.
	RecordAdministration(ctx context.Context, versionID, assessmentID uuid.UUID, itemIDs []uuid.UUID) error
}

// ResponseRepo records item responses.
type ResponseRepo interface {
	// Save stores responses and updates correct counts and facility.
	Save(ctx context.Context, assessmentID uuid.UUID, responses []Response) error

	// SeenCodes returns the codes of items delivered to or answered in any
	// of the given assessments.
	SeenCodes(ctx context.Context, assessmentIDs []uuid.UUID) (map[string]bool, error)
}

// ResultRepo stores score summaries.
type ResultRepo interface {
	// Save appends a result for an assessment.
	Save(ctx context.Context, assessmentID uuid.UUID, templateID string, summary scoring.Summary) (*Result, error)

	// Latest returns the most recent result of an assessment, or nil if none exist.
	Latest(ctx context.Context, assessmentID uuid.UUID) (*Result, error)
}
