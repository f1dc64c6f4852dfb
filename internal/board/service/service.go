package service

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"leadflow_backend/internal/board/transport"
	leadstransport "leadflow_backend/internal/leads/transport"
	"leadflow_backend/platform/logger"
)

const (
	defaultColumnSize = 10
	maxColumnSize     = 50

	// How many column queries run concurrently per board request.
	columnFetchLimit = 4
)

// Stage is the slice of a pipeline stage the board needs.
type Stage struct {
	ID    uuid.UUID
	Key   string
	Name  string
	Color *string
	Order float64
}

// StageLister supplies the active stages in pipeline order.
type StageLister interface {
	ActiveStages(ctx context.Context, organizationID uuid.UUID) ([]Stage, error)
}

// ColumnFilter narrows every column with the same predicate the flat lead
// list uses.
type ColumnFilter struct {
	Status     *string
	AssignedTo *uuid.UUID
	Search     string
}

// ColumnReader fetches one stage's page of leads, scoped to the viewer and
// narrowed by the board-wide filter.
type ColumnReader interface {
	ColumnPage(ctx context.Context, organizationID uuid.UUID, stageID uuid.UUID, viewerID *uuid.UUID, filter ColumnFilter, limit, offset int) ([]leadstransport.LeadResponse, int, error)
}

// Service assembles the kanban board: one independently paginated column
// per active stage.
type Service struct {
	stages StageLister
	leads  ColumnReader
	log    *logger.Logger
}

func New(stages StageLister, leads ColumnReader, log *logger.Logger) *Service {
	return &Service{stages: stages, leads: leads, log: log}
}

// Board returns the viewer's board. pages maps stage keys to the requested
// page for that column; columns without an entry get the first page. Column
// queries run concurrently, but the returned columns always follow the
// pipeline order.
func (s *Service) Board(ctx context.Context, organizationID uuid.UUID, viewerID *uuid.UUID, filter ColumnFilter, pages map[string]transport.ColumnPageRequest) (transport.BoardResponse, error) {
	stageList, err := s.stages.ActiveStages(ctx, organizationID)
	if err != nil {
		return transport.BoardResponse{}, err
	}

	columns := make([]transport.BoardColumn, len(stageList))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(columnFetchLimit)
	for i, stage := range stageList {
		g.Go(func() error {
			page, limit := columnPage(pages[stage.Key])
			items, total, err := s.leads.ColumnPage(gctx, organizationID, stage.ID, viewerID, filter, limit, (page-1)*limit)
			if err != nil {
				return err
			}
			columns[i] = transport.BoardColumn{
				Stage: transport.BoardStage{
					ID:    stage.ID,
					Key:   stage.Key,
					Name:  stage.Name,
					Color: stage.Color,
					Order: stage.Order,
				},
				Items: items,
				Pagination: transport.Pagination{
					Page:       page,
					Limit:      limit,
					Total:      total,
					TotalPages: totalPages(total, limit),
				},
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return transport.BoardResponse{}, err
	}

	totalLeads := 0
	for _, col := range columns {
		totalLeads += col.Pagination.Total
	}
	return transport.BoardResponse{Columns: columns, TotalLeads: totalLeads}, nil
}

func columnPage(req transport.ColumnPageRequest) (int, int) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	limit := req.Limit
	if limit < 1 {
		limit = defaultColumnSize
	}
	if limit > maxColumnSize {
		limit = maxColumnSize
	}
	return page, limit
}

func totalPages(total, limit int) int {
	if total == 0 {
		return 0
	}
	return (total + limit - 1) / limit
}
