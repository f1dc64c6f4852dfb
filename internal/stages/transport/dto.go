package transport

import "github.com/google/uuid"

// CreateStageRequest contains data for appending a new stage.
type CreateStageRequest struct {
	Name      string  `json:"name" validate:"required,min=1,max=100"`
	Color     *string `json:"color,omitempty" validate:"omitempty,max=20"`
	IsDefault bool    `json:"isDefault"`
}

// CreateAdjacentStageRequest contains data for inserting a stage next to a pivot.
type CreateAdjacentStageRequest struct {
	PivotID uuid.UUID `json:"pivotId" validate:"required"`
	Where   string    `json:"where" validate:"required,oneof=before after"`
	Name    string    `json:"name" validate:"required,min=1,max=100"`
	Color   *string   `json:"color,omitempty" validate:"omitempty,max=20"`
}

// UpdateStageRequest contains the optional fields of a stage patch.
type UpdateStageRequest struct {
	Name      *string `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	Color     *string `json:"color,omitempty" validate:"omitempty,max=20"`
	Active    *bool   `json:"active,omitempty"`
	IsDefault *bool   `json:"isDefault,omitempty"`
}

// DeleteStageRequest optionally names the stage that takes over the leads.
type DeleteStageRequest struct {
	TargetStageID *uuid.UUID `json:"targetStageId,omitempty"`
}

// DeleteStageResponse reports the outcome of a stage deletion.
type DeleteStageResponse struct {
	Deleted    bool `json:"deleted"`
	MovedLeads int  `json:"movedLeads"`
}

// ReorderStagesRequest lists every stage id in its new position.
type ReorderStagesRequest struct {
	OrderIDs []uuid.UUID `json:"orderIds" validate:"required,min=1"`
}

// StageResponse represents a stage in API responses.
type StageResponse struct {
	ID        uuid.UUID `json:"id"`
	Key       string    `json:"key"`
	Name      string    `json:"name"`
	Color     *string   `json:"color,omitempty"`
	Order     float64   `json:"order"`
	IsDefault bool      `json:"isDefault"`
	IsActive  bool      `json:"isActive"`
	CreatedAt string    `json:"createdAt"`
	UpdatedAt string    `json:"updatedAt"`
}

// StageListResponse wraps an ordered list of stages.
type StageListResponse struct {
	Items []StageResponse `json:"items"`
	Total int             `json:"total"`
}
