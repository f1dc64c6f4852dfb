package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"leadflow_backend/internal/events"
	"leadflow_backend/internal/stages/domain"
	"leadflow_backend/internal/stages/repository"
	"leadflow_backend/internal/stages/transport"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/cache"
	"leadflow_backend/platform/logger"
)

// Service is the stage lifecycle manager: every structural mutation of the
// stage set goes through here, so sort keys are never written by callers.
type Service struct {
	repo  repository.Repository
	cache *cache.Cache
	bus   events.Bus
	log   *logger.Logger
}

// New creates a new stage service. cache may be nil (caching disabled).
func New(repo repository.Repository, c *cache.Cache, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, cache: c, bus: bus, log: log}
}

func activeListCacheKey(organizationID uuid.UUID) string {
	return "stages:active:" + organizationID.String()
}

// List returns the tenant's stages in pipeline order. A tenant with no stages
// yet gets the default pipeline seeded first. The active-only listing is
// served from cache when possible.
func (s *Service) List(ctx context.Context, organizationID uuid.UUID, includeInactive bool) (transport.StageListResponse, error) {
	if !includeInactive {
		var cached transport.StageListResponse
		if err := s.cache.Get(ctx, activeListCacheKey(organizationID), &cached); err == nil {
			return cached, nil
		}
	}

	items, err := s.repo.List(ctx, organizationID, includeInactive)
	if err != nil {
		return transport.StageListResponse{}, err
	}

	if len(items) == 0 {
		items, err = s.seedDefaults(ctx, organizationID, includeInactive)
		if err != nil {
			return transport.StageListResponse{}, err
		}
	}

	resp := toListResponse(items)
	if !includeInactive {
		if err := s.cache.Set(ctx, activeListCacheKey(organizationID), resp); err != nil {
			s.log.Warn("stage list cache write failed", "error", err)
		}
	}
	return resp, nil
}

// ActiveStages returns the active stages in pipeline order (board input).
func (s *Service) ActiveStages(ctx context.Context, organizationID uuid.UUID) ([]repository.Stage, error) {
	items, err := s.repo.List(ctx, organizationID, false)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return s.seedDefaults(ctx, organizationID, false)
	}
	return items, nil
}

func (s *Service) seedDefaults(ctx context.Context, organizationID uuid.UUID, includeInactive bool) ([]repository.Stage, error) {
	defaults := domain.DefaultPipeline()
	params := make([]repository.CreateParams, len(defaults))
	for i, d := range defaults {
		color := d.Color
		params[i] = repository.CreateParams{
			OrganizationID: organizationID,
			Key:            domain.DeriveKey(d.Name),
			Name:           d.Name,
			Color:          &color,
			IsDefault:      d.IsDefault,
		}
	}

	items, err := s.repo.SeedDefaults(ctx, organizationID, params)
	if err != nil {
		return nil, err
	}
	s.log.Info("default pipeline seeded", "organizationId", organizationID, "stages", len(items))

	if !includeInactive {
		active := items[:0:0]
		for _, st := range items {
			if st.IsActive {
				active = append(active, st)
			}
		}
		return active, nil
	}
	return items, nil
}

// GetByID retrieves a single stage.
func (s *Service) GetByID(ctx context.Context, organizationID uuid.UUID, id uuid.UUID) (transport.StageResponse, error) {
	st, err := s.repo.GetByID(ctx, organizationID, id)
	if err != nil {
		return transport.StageResponse{}, err
	}
	return toResponse(st), nil
}

// Create appends a stage at the end of the pipeline (order = max + 1).
// Setting isDefault clears the flag on every other stage first.
func (s *Service) Create(ctx context.Context, organizationID uuid.UUID, req transport.CreateStageRequest) (transport.StageResponse, error) {
	key := domain.DeriveKey(req.Name)
	if key == "" {
		return transport.StageResponse{}, apperr.Validation("stage name must contain at least one letter or digit")
	}

	st, err := s.repo.CreateAtEnd(ctx, repository.CreateParams{
		OrganizationID: organizationID,
		Key:            key,
		Name:           req.Name,
		Color:          req.Color,
		IsDefault:      req.IsDefault,
	})
	if err != nil {
		return transport.StageResponse{}, err
	}

	s.invalidate(ctx, organizationID)
	s.log.StageEvent("created", organizationID.String(), st.ID.String())
	return toResponse(st), nil
}

// CreateAdjacent inserts a stage immediately before or after a pivot without
// renumbering the rest of the pipeline. A write conflict with a concurrent
// insert beside the same pivot is retried once with a fresh neighbor lookup.
func (s *Service) CreateAdjacent(ctx context.Context, organizationID uuid.UUID, req transport.CreateAdjacentStageRequest) (transport.StageResponse, error) {
	where, ok := domain.ParsePlacement(req.Where)
	if !ok {
		return transport.StageResponse{}, apperr.Validation(fmt.Sprintf("where must be %q or %q", domain.PlacementBefore, domain.PlacementAfter))
	}
	key := domain.DeriveKey(req.Name)
	if key == "" {
		return transport.StageResponse{}, apperr.Validation("stage name must contain at least one letter or digit")
	}

	params := repository.InsertAdjacentParams{
		OrganizationID: organizationID,
		PivotID:        req.PivotID,
		Where:          where,
		Key:            key,
		Name:           req.Name,
		Color:          req.Color,
	}

	st, err := s.repo.InsertAdjacent(ctx, params)
	if err != nil && repository.IsWriteConflict(err) {
		s.log.Warn("adjacent insert conflicted, retrying",
			"organizationId", organizationID, "pivotId", req.PivotID)
		st, err = s.repo.InsertAdjacent(ctx, params)
		if err != nil && repository.IsWriteConflict(err) {
			return transport.StageResponse{}, apperr.Wrap(apperr.KindConflict, "write conflict inserting stage, retry", err)
		}
	}
	if err != nil {
		return transport.StageResponse{}, err
	}

	s.invalidate(ctx, organizationID)
	s.log.StageEvent("created_adjacent", organizationID.String(), st.ID.String())
	return toResponse(st), nil
}

// Update renames, recolors, toggles active, or promotes a stage to default.
func (s *Service) Update(ctx context.Context, organizationID uuid.UUID, id uuid.UUID, req transport.UpdateStageRequest) (transport.StageResponse, error) {
	patch := repository.UpdatePatch{
		Name:      req.Name,
		Color:     req.Color,
		IsActive:  req.Active,
		IsDefault: req.IsDefault,
	}
	if req.Name != nil {
		key := domain.DeriveKey(*req.Name)
		if key == "" {
			return transport.StageResponse{}, apperr.Validation("stage name must contain at least one letter or digit")
		}
		patch.Key = &key
	}

	st, err := s.repo.Update(ctx, organizationID, id, patch)
	if err != nil {
		return transport.StageResponse{}, err
	}

	s.invalidate(ctx, organizationID)
	s.log.StageEvent("updated", organizationID.String(), st.ID.String())
	return toResponse(st), nil
}

// Delete removes a stage. A stage still holding leads requires a target
// stage; its leads are bulk-moved there before the stage row goes away.
func (s *Service) Delete(ctx context.Context, organizationID uuid.UUID, actorID uuid.UUID, id uuid.UUID, targetID *uuid.UUID) (transport.DeleteStageResponse, error) {
	result, err := s.repo.DeleteWithReassign(ctx, organizationID, id, targetID)
	if err != nil {
		return transport.DeleteStageResponse{}, err
	}

	s.invalidate(ctx, organizationID)
	s.log.StageEvent("deleted", organizationID.String(), id.String())

	s.bus.Publish(ctx, events.StageDeleted{
		BaseEvent:      events.NewBaseEvent(),
		OrganizationID: organizationID,
		StageID:        id,
		StageName:      result.StageName,
		TargetStageID:  targetID,
		TargetStageKey: result.TargetStageKey,
		MovedLeadIDs:   result.MovedLeadIDs,
		ActorID:        actorID,
	})

	return transport.DeleteStageResponse{Deleted: true, MovedLeads: len(result.MovedLeadIDs)}, nil
}

// Reorder applies a full manual drag-reorder of the column set.
func (s *Service) Reorder(ctx context.Context, organizationID uuid.UUID, req transport.ReorderStagesRequest) (transport.StageListResponse, error) {
	items, err := s.repo.Reorder(ctx, organizationID, req.OrderIDs)
	if err != nil {
		return transport.StageListResponse{}, err
	}

	s.invalidate(ctx, organizationID)
	s.log.Info("stages reordered", "organizationId", organizationID, "count", len(items))
	return toListResponse(items), nil
}

// Reindex rewrites the tenant's sort keys to restore even spacing.
func (s *Service) Reindex(ctx context.Context, organizationID uuid.UUID) (int, error) {
	count, err := s.repo.Reindex(ctx, organizationID)
	if err != nil {
		return 0, err
	}

	s.invalidate(ctx, organizationID)
	s.bus.Publish(ctx, events.StageOrdersReindexed{
		BaseEvent:      events.NewBaseEvent(),
		OrganizationID: organizationID,
		StageCount:     count,
	})
	return count, nil
}

func (s *Service) invalidate(ctx context.Context, organizationID uuid.UUID) {
	if err := s.cache.Delete(ctx, activeListCacheKey(organizationID)); err != nil {
		s.log.Warn("stage list cache invalidation failed", "error", err)
	}
}

// toResponse converts a repository Stage to a transport response.
func toResponse(st repository.Stage) transport.StageResponse {
	return transport.StageResponse{
		ID:        st.ID,
		Key:       st.Key,
		Name:      st.Name,
		Color:     st.Color,
		Order:     st.SortOrder,
		IsDefault: st.IsDefault,
		IsActive:  st.IsActive,
		CreatedAt: st.CreatedAt,
		UpdatedAt: st.UpdatedAt,
	}
}

func toListResponse(items []repository.Stage) transport.StageListResponse {
	responses := make([]transport.StageResponse, len(items))
	for i, item := range items {
		responses[i] = toResponse(item)
	}
	return transport.StageListResponse{Items: responses, Total: len(responses)}
}
