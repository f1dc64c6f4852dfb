package transport

import (
	"github.com/google/uuid"

	leadstransport "leadflow_backend/internal/leads/transport"
)

// ColumnPageRequest selects one column's page. Zero values fall back to the
// first page with the default column size.
type ColumnPageRequest struct {
	Page  int
	Limit int
}

type BoardStage struct {
	ID    uuid.UUID `json:"id"`
	Key   string    `json:"key"`
	Name  string    `json:"name"`
	Color *string   `json:"color,omitempty"`
	Order float64   `json:"order"`
}

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// BoardColumn is one stage's column: its page of leads plus the pagination
// state for that column alone.
type BoardColumn struct {
	Stage      BoardStage                    `json:"stage"`
	Items      []leadstransport.LeadResponse `json:"items"`
	Pagination Pagination                    `json:"pagination"`
}

type BoardResponse struct {
	Columns    []BoardColumn `json:"columns"`
	TotalLeads int           `json:"totalLeads"`
}
