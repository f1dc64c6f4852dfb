package adapters

import (
	"context"

	"github.com/google/uuid"

	boardservice "leadflow_backend/internal/board/service"
	leadsservice "leadflow_backend/internal/leads/service"
	stagesservice "leadflow_backend/internal/stages/service"
	"leadflow_backend/platform/apperr"
)

// StagesAdapter adapts the stages service for the leads and board domains.
// It implements leads/service.StageDirectory and board/service.StageLister.
type StagesAdapter struct {
	svc *stagesservice.Service
}

func NewStagesAdapter(svc *stagesservice.Service) *StagesAdapter {
	return &StagesAdapter{svc: svc}
}

func (a *StagesAdapter) ByID(ctx context.Context, organizationID uuid.UUID, id uuid.UUID) (leadsservice.StageRef, error) {
	st, err := a.svc.GetByID(ctx, organizationID, id)
	if err != nil {
		return leadsservice.StageRef{}, err
	}
	return leadsservice.StageRef{ID: st.ID, Key: st.Key, Name: st.Name}, nil
}

func (a *StagesAdapter) ByKey(ctx context.Context, organizationID uuid.UUID, key string) (leadsservice.StageRef, error) {
	stages, err := a.svc.ActiveStages(ctx, organizationID)
	if err != nil {
		return leadsservice.StageRef{}, err
	}
	for _, st := range stages {
		if st.Key == key {
			return leadsservice.StageRef{ID: st.ID, Key: st.Key, Name: st.Name}, nil
		}
	}
	return leadsservice.StageRef{}, apperr.NotFound("stage not found")
}

// Default returns the tenant's default stage, falling back to the first
// stage in pipeline order when none is flagged.
func (a *StagesAdapter) Default(ctx context.Context, organizationID uuid.UUID) (leadsservice.StageRef, error) {
	stages, err := a.svc.ActiveStages(ctx, organizationID)
	if err != nil {
		return leadsservice.StageRef{}, err
	}
	if len(stages) == 0 {
		return leadsservice.StageRef{}, apperr.Conflict("tenant has no pipeline stages")
	}
	for _, st := range stages {
		if st.IsDefault {
			return leadsservice.StageRef{ID: st.ID, Key: st.Key, Name: st.Name}, nil
		}
	}
	first := stages[0]
	return leadsservice.StageRef{ID: first.ID, Key: first.Key, Name: first.Name}, nil
}

func (a *StagesAdapter) ActiveStages(ctx context.Context, organizationID uuid.UUID) ([]boardservice.Stage, error) {
	stages, err := a.svc.ActiveStages(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	out := make([]boardservice.Stage, len(stages))
	for i, st := range stages {
		out[i] = boardservice.Stage{
			ID:    st.ID,
			Key:   st.Key,
			Name:  st.Name,
			Color: st.Color,
			Order: st.SortOrder,
		}
	}
	return out, nil
}
