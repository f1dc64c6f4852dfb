package adapters

import (
	"context"

	"github.com/google/uuid"

	boardservice "leadflow_backend/internal/board/service"
	leadsrepo "leadflow_backend/internal/leads/repository"
	leadsservice "leadflow_backend/internal/leads/service"
	leadstransport "leadflow_backend/internal/leads/transport"
)

// LeadColumnAdapter adapts the leads service for board column reads.
// It implements board/service.ColumnReader.
type LeadColumnAdapter struct {
	svc *leadsservice.Service
}

func NewLeadColumnAdapter(svc *leadsservice.Service) *LeadColumnAdapter {
	return &LeadColumnAdapter{svc: svc}
}

func (a *LeadColumnAdapter) ColumnPage(ctx context.Context, organizationID uuid.UUID, stageID uuid.UUID, viewerID *uuid.UUID, filter boardservice.ColumnFilter, limit, offset int) ([]leadstransport.LeadResponse, int, error) {
	return a.svc.ColumnPage(ctx, leadsrepo.ColumnParams{
		OrganizationID: organizationID,
		StageID:        stageID,
		Status:         filter.Status,
		AssignedTo:     filter.AssignedTo,
		Search:         filter.Search,
		ViewerID:       viewerID,
		Limit:          limit,
		Offset:         offset,
	})
}
