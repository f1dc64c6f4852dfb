package repository

import (
	"context"

	"leadflow_backend/internal/stages/domain"

	"github.com/google/uuid"
)

// Stage is the persistence model for one pipeline column.
type Stage struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	Key            string
	Name           string
	Color          *string
	SortOrder      float64
	IsDefault      bool
	IsActive       bool
	CreatedAt      string
	UpdatedAt      string
}

// CreateParams contains data for appending a stage at the end of the pipeline.
type CreateParams struct {
	OrganizationID uuid.UUID
	Key            string
	Name           string
	Color          *string
	IsDefault      bool
}

// InsertAdjacentParams contains data for inserting a stage next to a pivot.
type InsertAdjacentParams struct {
	OrganizationID uuid.UUID
	PivotID        uuid.UUID
	Where          domain.Placement
	Key            string
	Name           string
	Color          *string
}

// UpdatePatch contains the optional fields of a stage update; nil means keep.
type UpdatePatch struct {
	Name      *string
	Key       *string
	Color     *string
	IsActive  *bool
	IsDefault *bool
}

// DeleteResult reports what a delete-with-reassign did.
type DeleteResult struct {
	StageName      string
	TargetStageKey string
	MovedLeadIDs   []uuid.UUID
}

// Repository is the persistence boundary for pipeline stages. Every
// multi-step write runs inside a single transaction; sort keys are never
// written outside this package.
type Repository interface {
	List(ctx context.Context, organizationID uuid.UUID, includeInactive bool) ([]Stage, error)
	GetByID(ctx context.Context, organizationID uuid.UUID, id uuid.UUID) (Stage, error)
	Count(ctx context.Context, organizationID uuid.UUID) (int, error)

	CreateAtEnd(ctx context.Context, params CreateParams) (Stage, error)
	InsertAdjacent(ctx context.Context, params InsertAdjacentParams) (Stage, error)
	Update(ctx context.Context, organizationID uuid.UUID, id uuid.UUID, patch UpdatePatch) (Stage, error)
	DeleteWithReassign(ctx context.Context, organizationID uuid.UUID, id uuid.UUID, targetID *uuid.UUID) (DeleteResult, error)
	Reorder(ctx context.Context, organizationID uuid.UUID, orderedIDs []uuid.UUID) ([]Stage, error)
	Reindex(ctx context.Context, organizationID uuid.UUID) (int, error)
	SeedDefaults(ctx context.Context, organizationID uuid.UUID, defaults []CreateParams) ([]Stage, error)

	// OrganizationsWithGapBelow lists tenants whose smallest gap between
	// adjacent sort keys dropped under threshold (maintenance reindex input).
	OrganizationsWithGapBelow(ctx context.Context, threshold float64) ([]uuid.UUID, error)
}
