package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Lead is the persistence model for a lead. StageID is the canonical
// pipeline position; Status mirrors it for legacy consumers.
type Lead struct {
	ID              uuid.UUID
	OrganizationID  uuid.UUID
	StageID         uuid.UUID
	Status          string
	Name            string
	Email           *string
	Phone           *string
	PhoneNormalized *string
	City            *string
	AssignedTo      *uuid.UUID
	CreatedBy       *uuid.UUID
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type CreateLeadParams struct {
	OrganizationID  uuid.UUID
	StageID         uuid.UUID
	Status          string
	Name            string
	Email           *string
	Phone           *string
	PhoneNormalized *string
	City            *string
	AssignedTo      *uuid.UUID
	CreatedBy       *uuid.UUID
}

type UpdateLeadParams struct {
	Name            *string
	Email           *string
	Phone           *string
	PhoneNormalized *string
	City            *string
	AssignedTo      *uuid.UUID
	AssignedToSet   bool
}

// ListParams filters the lead listing. ViewerID, when set, restricts results
// to leads the viewer owns (assigned to them or created by them).
type ListParams struct {
	OrganizationID   uuid.UUID
	StageID          *uuid.UUID
	Status           *string
	AssignedTo       *uuid.UUID
	Search           string
	NormalizedSearch string
	ViewerID         *uuid.UUID
	Limit            int
	Offset           int
	SortBy           string
	SortOrder        string
}

// ColumnParams selects one board column's page of leads. The filter fields
// mirror ListParams so a filtered board stays consistent with the flat list.
type ColumnParams struct {
	OrganizationID   uuid.UUID
	StageID          uuid.UUID
	Status           *string
	AssignedTo       *uuid.UUID
	Search           string
	NormalizedSearch string
	ViewerID         *uuid.UUID
	Limit            int
	Offset           int
}

type Activity struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	LeadID         uuid.UUID
	UserID         *uuid.UUID
	Action         string
	Metadata       map[string]interface{}
	CreatedAt      time.Time
}

type ActivityParams struct {
	OrganizationID uuid.UUID
	LeadID         uuid.UUID
	UserID         *uuid.UUID
	Action         string
	Metadata       map[string]interface{}
}

// Repository is the persistence boundary for leads and their activity log.
type Repository interface {
	List(ctx context.Context, params ListParams) ([]Lead, int, error)
	GetByID(ctx context.Context, organizationID uuid.UUID, id uuid.UUID) (Lead, error)
	Create(ctx context.Context, params CreateLeadParams) (Lead, error)
	Update(ctx context.Context, organizationID uuid.UUID, id uuid.UUID, params UpdateLeadParams) (Lead, error)
	SoftDelete(ctx context.Context, organizationID uuid.UUID, id uuid.UUID) error

	// SetPosition updates the lead's stage and mirrored status together.
	SetPosition(ctx context.Context, organizationID uuid.UUID, id uuid.UUID, stageID uuid.UUID, status string) (Lead, error)

	// ListByStage returns one page of a single board column.
	ListByStage(ctx context.Context, params ColumnParams) ([]Lead, int, error)

	AddActivity(ctx context.Context, params ActivityParams) error
	AddActivities(ctx context.Context, activities []ActivityParams) error
	ListActivities(ctx context.Context, organizationID uuid.UUID, leadID uuid.UUID, limit, offset int) ([]Activity, int, error)
}
