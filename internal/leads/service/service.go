package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"leadflow_backend/internal/events"
	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/repository"
	"leadflow_backend/internal/leads/transport"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/phone"
)

const (
	defaultPageSize = 25
	maxPageSize     = 100
)

// StageRef is the slice of a pipeline stage the lead workflow needs.
type StageRef struct {
	ID   uuid.UUID
	Key  string
	Name string
}

// StageDirectory resolves pipeline stages for lead moves. Implemented by an
// adapter over the stages service.
type StageDirectory interface {
	ByID(ctx context.Context, organizationID uuid.UUID, id uuid.UUID) (StageRef, error)
	ByKey(ctx context.Context, organizationID uuid.UUID, key string) (StageRef, error)
	Default(ctx context.Context, organizationID uuid.UUID) (StageRef, error)
}

// Service owns lead CRUD and the controlled stage/status mutation path.
type Service struct {
	repo   repository.Repository
	stages StageDirectory
	policy domain.TransitionPolicy
	bus    events.Bus
	log    *logger.Logger
}

func New(repo repository.Repository, stages StageDirectory, policy domain.TransitionPolicy, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, stages: stages, policy: policy, bus: bus, log: log}
}

// List returns a page of the tenant's leads. A non-nil viewerID restricts
// results to leads the viewer owns.
func (s *Service) List(ctx context.Context, organizationID uuid.UUID, viewerID *uuid.UUID, query transport.ListLeadsQuery) (transport.LeadListResponse, error) {
	page, limit := normalizePage(query.Page, query.Limit)

	params := repository.ListParams{
		OrganizationID: organizationID,
		ViewerID:       viewerID,
		Limit:          limit,
		Offset:         (page - 1) * limit,
		SortBy:         query.SortBy,
		SortOrder:      query.SortOrder,
	}
	if query.StageID != "" {
		stageID, err := uuid.Parse(query.StageID)
		if err != nil {
			return transport.LeadListResponse{}, apperr.Validation("invalid stageId filter")
		}
		params.StageID = &stageID
	}
	if query.Status != "" {
		if !domain.Status(query.Status).IsValid() {
			return transport.LeadListResponse{}, apperr.Validation("unknown status filter " + query.Status)
		}
		params.Status = &query.Status
	}
	if query.AssignedTo != "" {
		assignedTo, err := uuid.Parse(query.AssignedTo)
		if err != nil {
			return transport.LeadListResponse{}, apperr.Validation("invalid assignedTo filter")
		}
		params.AssignedTo = &assignedTo
	}
	params.Search, params.NormalizedSearch = normalizeSearch(query.Search)

	items, total, err := s.repo.List(ctx, params)
	if err != nil {
		return transport.LeadListResponse{}, err
	}

	responses := make([]transport.LeadResponse, len(items))
	for i, item := range items {
		responses[i] = toResponse(item)
	}
	return transport.LeadListResponse{Items: responses, Total: total, Page: page, Limit: limit}, nil
}

// Get returns a single lead. Non-owners with a restricted view get a not
// found, never a hint the lead exists.
func (s *Service) Get(ctx context.Context, organizationID uuid.UUID, viewerID *uuid.UUID, id uuid.UUID) (transport.LeadResponse, error) {
	lead, err := s.repo.GetByID(ctx, organizationID, id)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	if !visibleTo(lead, viewerID) {
		return transport.LeadResponse{}, apperr.NotFound("lead not found")
	}
	return toResponse(lead), nil
}

// Create registers a new lead. Without an explicit stage the lead lands on
// the tenant's default stage, with the status mirrored from the stage key.
func (s *Service) Create(ctx context.Context, organizationID uuid.UUID, actorID uuid.UUID, req transport.CreateLeadRequest) (transport.LeadResponse, error) {
	var stage StageRef
	var err error
	if req.StageID != nil {
		stage, err = s.stages.ByID(ctx, organizationID, *req.StageID)
	} else {
		stage, err = s.stages.Default(ctx, organizationID)
	}
	if err != nil {
		return transport.LeadResponse{}, err
	}

	params := repository.CreateLeadParams{
		OrganizationID: organizationID,
		StageID:        stage.ID,
		Status:         string(mirrorStatus(stage.Key, domain.StatusNew)),
		Name:           req.Name,
		Email:          req.Email,
		City:           req.City,
		AssignedTo:     req.AssignedTo,
		CreatedBy:      &actorID,
	}
	params.Phone, params.PhoneNormalized = normalizePhone(req.Phone)

	lead, err := s.repo.Create(ctx, params)
	if err != nil {
		return transport.LeadResponse{}, err
	}

	if err := s.repo.AddActivity(ctx, repository.ActivityParams{
		OrganizationID: organizationID,
		LeadID:         lead.ID,
		UserID:         &actorID,
		Action:         "lead.created",
		Metadata:       map[string]interface{}{"stage": stage.Key},
	}); err != nil {
		s.log.Warn("lead activity write failed", "error", err, "leadId", lead.ID)
	}

	return toResponse(lead), nil
}

// Update patches a lead's contact fields.
func (s *Service) Update(ctx context.Context, organizationID uuid.UUID, viewerID *uuid.UUID, id uuid.UUID, req transport.UpdateLeadRequest) (transport.LeadResponse, error) {
	if viewerID != nil {
		if _, err := s.Get(ctx, organizationID, viewerID, id); err != nil {
			return transport.LeadResponse{}, err
		}
	}

	params := repository.UpdateLeadParams{
		Name:  req.Name,
		Email: req.Email,
		City:  req.City,
	}
	if req.Phone != nil {
		params.Phone, params.PhoneNormalized = normalizePhone(req.Phone)
	}
	if req.AssignedTo != nil {
		params.AssignedTo = req.AssignedTo
		params.AssignedToSet = true
	}

	lead, err := s.repo.Update(ctx, organizationID, id, params)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	return toResponse(lead), nil
}

// Delete soft-deletes a lead.
func (s *Service) Delete(ctx context.Context, organizationID uuid.UUID, actorID uuid.UUID, id uuid.UUID) error {
	if err := s.repo.SoftDelete(ctx, organizationID, id); err != nil {
		return err
	}
	if err := s.repo.AddActivity(ctx, repository.ActivityParams{
		OrganizationID: organizationID,
		LeadID:         id,
		UserID:         &actorID,
		Action:         "lead.deleted",
	}); err != nil {
		s.log.Warn("lead activity write failed", "error", err, "leadId", id)
	}
	return nil
}

// ChangeStatus moves a lead through the legacy status enum. The stage is
// kept in lockstep: the target status must map to a stage key.
func (s *Service) ChangeStatus(ctx context.Context, organizationID uuid.UUID, actorID uuid.UUID, id uuid.UUID, status string) (transport.LeadResponse, error) {
	lead, err := s.repo.GetByID(ctx, organizationID, id)
	if err != nil {
		return transport.LeadResponse{}, err
	}

	next := domain.Status(status)
	if err := s.policy.Validate(domain.Status(lead.Status), next); err != nil {
		return transport.LeadResponse{}, err
	}

	stage, err := s.stages.ByKey(ctx, organizationID, string(next))
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return transport.LeadResponse{}, apperr.Conflict("no pipeline stage maps to status " + status)
		}
		return transport.LeadResponse{}, err
	}

	return s.move(ctx, organizationID, actorID, lead, stage, next)
}

// MoveStage moves a lead to another pipeline stage (board drag-and-drop).
// The mirrored status changes only when the target stage maps to one.
func (s *Service) MoveStage(ctx context.Context, organizationID uuid.UUID, actorID uuid.UUID, id uuid.UUID, stageID uuid.UUID) (transport.LeadResponse, error) {
	lead, err := s.repo.GetByID(ctx, organizationID, id)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	if lead.StageID == stageID {
		return toResponse(lead), nil
	}

	stage, err := s.stages.ByID(ctx, organizationID, stageID)
	if err != nil {
		return transport.LeadResponse{}, err
	}

	next := mirrorStatus(stage.Key, domain.Status(lead.Status))
	if next != domain.Status(lead.Status) {
		if err := s.policy.Validate(domain.Status(lead.Status), next); err != nil {
			return transport.LeadResponse{}, err
		}
	}

	return s.move(ctx, organizationID, actorID, lead, stage, next)
}

func (s *Service) move(ctx context.Context, organizationID uuid.UUID, actorID uuid.UUID, lead repository.Lead, stage StageRef, status domain.Status) (transport.LeadResponse, error) {
	updated, err := s.repo.SetPosition(ctx, organizationID, lead.ID, stage.ID, string(status))
	if err != nil {
		return transport.LeadResponse{}, err
	}

	if err := s.repo.AddActivity(ctx, repository.ActivityParams{
		OrganizationID: organizationID,
		LeadID:         lead.ID,
		UserID:         &actorID,
		Action:         "lead.stage_changed",
		Metadata: map[string]interface{}{
			"fromStageId": lead.StageID.String(),
			"toStageId":   stage.ID.String(),
			"fromStatus":  lead.Status,
			"toStatus":    string(status),
		},
	}); err != nil {
		s.log.Warn("lead activity write failed", "error", err, "leadId", lead.ID)
	}

	s.bus.Publish(ctx, events.LeadStageChanged{
		BaseEvent:      events.NewBaseEvent(),
		OrganizationID: organizationID,
		LeadID:         lead.ID,
		FromStageID:    lead.StageID,
		ToStageID:      stage.ID,
		ActorID:        actorID,
	})

	return toResponse(updated), nil
}

// Activities returns a lead's activity log, newest first.
func (s *Service) Activities(ctx context.Context, organizationID uuid.UUID, leadID uuid.UUID, page, limit int) (transport.ActivityListResponse, error) {
	p, l := normalizePage(page, limit)
	items, total, err := s.repo.ListActivities(ctx, organizationID, leadID, l, (p-1)*l)
	if err != nil {
		return transport.ActivityListResponse{}, err
	}

	responses := make([]transport.ActivityResponse, len(items))
	for i, item := range items {
		responses[i] = transport.ActivityResponse{
			ID:        item.ID,
			LeadID:    item.LeadID,
			UserID:    item.UserID,
			Action:    item.Action,
			Metadata:  item.Metadata,
			CreatedAt: item.CreatedAt,
		}
	}
	return transport.ActivityListResponse{Items: responses, Total: total}, nil
}

// ColumnPage returns one board column's page of leads, narrowed by the same
// filters the flat list accepts.
func (s *Service) ColumnPage(ctx context.Context, params repository.ColumnParams) ([]transport.LeadResponse, int, error) {
	if params.Status != nil && !domain.Status(*params.Status).IsValid() {
		return nil, 0, apperr.Validation("unknown status filter " + *params.Status)
	}
	params.Search, params.NormalizedSearch = normalizeSearch(params.Search)

	items, total, err := s.repo.ListByStage(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	responses := make([]transport.LeadResponse, len(items))
	for i, item := range items {
		responses[i] = toResponse(item)
	}
	return responses, total, nil
}

// HandleStageDeleted records an activity entry for every lead that was bulk
// moved when its stage was removed.
func (s *Service) HandleStageDeleted(ctx context.Context, event events.Event) error {
	deleted, ok := event.(events.StageDeleted)
	if !ok {
		return nil
	}
	if len(deleted.MovedLeadIDs) == 0 {
		return nil
	}

	activities := make([]repository.ActivityParams, len(deleted.MovedLeadIDs))
	for i, leadID := range deleted.MovedLeadIDs {
		activities[i] = repository.ActivityParams{
			OrganizationID: deleted.OrganizationID,
			LeadID:         leadID,
			UserID:         &deleted.ActorID,
			Action:         "lead.stage_reassigned",
			Metadata: map[string]interface{}{
				"deletedStage": deleted.StageName,
				"toStageKey":   deleted.TargetStageKey,
			},
		}
	}
	return s.repo.AddActivities(ctx, activities)
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}

// normalizeSearch trims the term and, when it parses as a phone number,
// derives the E.164 form for exact matching.
func normalizeSearch(raw string) (string, string) {
	search := strings.TrimSpace(raw)
	if search == "" {
		return "", ""
	}
	if normalized := phone.NormalizeE164(search); strings.HasPrefix(normalized, "+") {
		return search, normalized
	}
	return search, ""
}

func normalizePhone(raw *string) (*string, *string) {
	if raw == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*raw)
	if trimmed == "" {
		return nil, nil
	}
	normalized := phone.NormalizeE164(trimmed)
	return &trimmed, &normalized
}

// mirrorStatus maps a stage key to the legacy status enum. Custom stages
// keep the lead's current status.
func mirrorStatus(stageKey string, current domain.Status) domain.Status {
	if candidate := domain.Status(stageKey); candidate.IsValid() {
		return candidate
	}
	return current
}

func toResponse(lead repository.Lead) transport.LeadResponse {
	return transport.LeadResponse{
		ID:         lead.ID,
		StageID:    lead.StageID,
		Status:     lead.Status,
		Name:       lead.Name,
		Email:      lead.Email,
		Phone:      lead.Phone,
		City:       lead.City,
		AssignedTo: lead.AssignedTo,
		CreatedBy:  lead.CreatedBy,
		CreatedAt:  lead.CreatedAt,
		UpdatedAt:  lead.UpdatedAt,
	}
}

func visibleTo(lead repository.Lead, viewerID *uuid.UUID) bool {
	if viewerID == nil {
		return true
	}
	if lead.AssignedTo != nil && *lead.AssignedTo == *viewerID {
		return true
	}
	return lead.CreatedBy != nil && *lead.CreatedBy == *viewerID
}
