package transport

import (
	"time"

	"github.com/google/uuid"
)

type CreateLeadRequest struct {
	Name       string     `json:"name" validate:"required,min=1,max=200"`
	Email      *string    `json:"email" validate:"omitempty,email"`
	Phone      *string    `json:"phone" validate:"omitempty,max=40"`
	City       *string    `json:"city" validate:"omitempty,max=100"`
	StageID    *uuid.UUID `json:"stageId"`
	AssignedTo *uuid.UUID `json:"assignedTo"`
}

type UpdateLeadRequest struct {
	Name       *string    `json:"name" validate:"omitempty,min=1,max=200"`
	Email      *string    `json:"email" validate:"omitempty,email"`
	Phone      *string    `json:"phone" validate:"omitempty,max=40"`
	City       *string    `json:"city" validate:"omitempty,max=100"`
	AssignedTo *uuid.UUID `json:"assignedTo"`
}

type ChangeStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type MoveStageRequest struct {
	StageID uuid.UUID `json:"stageId" validate:"required"`
}

type ListLeadsQuery struct {
	Page       int    `form:"page"`
	Limit      int    `form:"limit"`
	StageID    string `form:"stageId"`
	Status     string `form:"status"`
	AssignedTo string `form:"assignedTo"`
	Search     string `form:"search"`
	SortBy     string `form:"sortBy"`
	SortOrder  string `form:"sortOrder"`
}

type LeadResponse struct {
	ID         uuid.UUID  `json:"id"`
	StageID    uuid.UUID  `json:"stageId"`
	Status     string     `json:"status"`
	Name       string     `json:"name"`
	Email      *string    `json:"email,omitempty"`
	Phone      *string    `json:"phone,omitempty"`
	City       *string    `json:"city,omitempty"`
	AssignedTo *uuid.UUID `json:"assignedTo,omitempty"`
	CreatedBy  *uuid.UUID `json:"createdBy,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

type LeadListResponse struct {
	Items []LeadResponse `json:"items"`
	Total int            `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}

type ActivityResponse struct {
	ID        uuid.UUID              `json:"id"`
	LeadID    uuid.UUID              `json:"leadId"`
	UserID    *uuid.UUID             `json:"userId,omitempty"`
	Action    string                 `json:"action"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"createdAt"`
}

type ActivityListResponse struct {
	Items []ActivityResponse `json:"items"`
	Total int                `json:"total"`
}
