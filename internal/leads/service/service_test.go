package service

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"leadflow_backend/internal/events"
	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/repository"
	"leadflow_backend/internal/leads/transport"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/logger"
)

type fakeLeadRepo struct {
	leads      map[uuid.UUID]repository.Lead
	activities []repository.ActivityParams
	positions  int

	lastList   repository.ListParams
	lastColumn repository.ColumnParams
}

func newFakeLeadRepo(leads ...repository.Lead) *fakeLeadRepo {
	byID := make(map[uuid.UUID]repository.Lead, len(leads))
	for _, l := range leads {
		byID[l.ID] = l
	}
	return &fakeLeadRepo{leads: byID}
}

func (f *fakeLeadRepo) List(_ context.Context, params repository.ListParams) ([]repository.Lead, int, error) {
	f.lastList = params
	out := []repository.Lead{}
	for _, l := range f.leads {
		if l.OrganizationID != params.OrganizationID {
			continue
		}
		if params.ViewerID != nil {
			owned := (l.AssignedTo != nil && *l.AssignedTo == *params.ViewerID) ||
				(l.CreatedBy != nil && *l.CreatedBy == *params.ViewerID)
			if !owned {
				continue
			}
		}
		out = append(out, l)
	}
	return out, len(out), nil
}

func (f *fakeLeadRepo) GetByID(_ context.Context, organizationID uuid.UUID, id uuid.UUID) (repository.Lead, error) {
	l, ok := f.leads[id]
	if !ok || l.OrganizationID != organizationID {
		return repository.Lead{}, apperr.NotFound("lead not found")
	}
	return l, nil
}

func (f *fakeLeadRepo) Create(_ context.Context, params repository.CreateLeadParams) (repository.Lead, error) {
	l := repository.Lead{
		ID:              uuid.New(),
		OrganizationID:  params.OrganizationID,
		StageID:         params.StageID,
		Status:          params.Status,
		Name:            params.Name,
		Email:           params.Email,
		Phone:           params.Phone,
		PhoneNormalized: params.PhoneNormalized,
		City:            params.City,
		AssignedTo:      params.AssignedTo,
		CreatedBy:       params.CreatedBy,
	}
	f.leads[l.ID] = l
	return l, nil
}

func (f *fakeLeadRepo) Update(_ context.Context, organizationID uuid.UUID, id uuid.UUID, params repository.UpdateLeadParams) (repository.Lead, error) {
	l, ok := f.leads[id]
	if !ok || l.OrganizationID != organizationID {
		return repository.Lead{}, apperr.NotFound("lead not found")
	}
	if params.Name != nil {
		l.Name = *params.Name
	}
	if params.Phone != nil {
		l.Phone = params.Phone
		l.PhoneNormalized = params.PhoneNormalized
	}
	f.leads[id] = l
	return l, nil
}

func (f *fakeLeadRepo) SoftDelete(_ context.Context, organizationID uuid.UUID, id uuid.UUID) error {
	l, ok := f.leads[id]
	if !ok || l.OrganizationID != organizationID {
		return apperr.NotFound("lead not found")
	}
	delete(f.leads, id)
	return nil
}

func (f *fakeLeadRepo) SetPosition(_ context.Context, organizationID uuid.UUID, id uuid.UUID, stageID uuid.UUID, status string) (repository.Lead, error) {
	l, ok := f.leads[id]
	if !ok || l.OrganizationID != organizationID {
		return repository.Lead{}, apperr.NotFound("lead not found")
	}
	l.StageID = stageID
	l.Status = status
	f.leads[id] = l
	f.positions++
	return l, nil
}

func (f *fakeLeadRepo) ListByStage(_ context.Context, params repository.ColumnParams) ([]repository.Lead, int, error) {
	f.lastColumn = params
	out := []repository.Lead{}
	for _, l := range f.leads {
		if l.OrganizationID == params.OrganizationID && l.StageID == params.StageID {
			out = append(out, l)
		}
	}
	return out, len(out), nil
}

func (f *fakeLeadRepo) AddActivity(_ context.Context, params repository.ActivityParams) error {
	f.activities = append(f.activities, params)
	return nil
}

func (f *fakeLeadRepo) AddActivities(_ context.Context, activities []repository.ActivityParams) error {
	f.activities = append(f.activities, activities...)
	return nil
}

func (f *fakeLeadRepo) ListActivities(_ context.Context, _ uuid.UUID, leadID uuid.UUID, _, _ int) ([]repository.Activity, int, error) {
	out := []repository.Activity{}
	for _, a := range f.activities {
		if a.LeadID == leadID {
			out = append(out, repository.Activity{
				LeadID:   a.LeadID,
				UserID:   a.UserID,
				Action:   a.Action,
				Metadata: a.Metadata,
			})
		}
	}
	return out, len(out), nil
}

type fakeStageDirectory struct {
	stages []StageRef
}

func (f *fakeStageDirectory) ByID(_ context.Context, _ uuid.UUID, id uuid.UUID) (StageRef, error) {
	for _, st := range f.stages {
		if st.ID == id {
			return st, nil
		}
	}
	return StageRef{}, apperr.NotFound("stage not found")
}

func (f *fakeStageDirectory) ByKey(_ context.Context, _ uuid.UUID, key string) (StageRef, error) {
	for _, st := range f.stages {
		if st.Key == key {
			return st, nil
		}
	}
	return StageRef{}, apperr.NotFound("stage not found")
}

func (f *fakeStageDirectory) Default(_ context.Context, _ uuid.UUID) (StageRef, error) {
	if len(f.stages) == 0 {
		return StageRef{}, apperr.NotFound("stage not found")
	}
	return f.stages[0], nil
}

type recordingBus struct {
	published []events.Event
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) {
	b.published = append(b.published, event)
}

func (b *recordingBus) PublishSync(_ context.Context, event events.Event) error {
	b.published = append(b.published, event)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

type fixture struct {
	svc   *Service
	repo  *fakeLeadRepo
	bus   *recordingBus
	org   uuid.UUID
	actor uuid.UUID

	stageNew       StageRef
	stageInterview StageRef
	stageCompleted StageRef
	stageCustom    StageRef
}

func newFixture(policy domain.TransitionPolicy, leads ...repository.Lead) *fixture {
	f := &fixture{
		repo:           newFakeLeadRepo(leads...),
		bus:            &recordingBus{},
		org:            uuid.New(),
		actor:          uuid.New(),
		stageNew:       StageRef{ID: uuid.New(), Key: "new", Name: "New"},
		stageInterview: StageRef{ID: uuid.New(), Key: "interview_scheduled", Name: "Interview Scheduled"},
		stageCompleted: StageRef{ID: uuid.New(), Key: "completed", Name: "Completed"},
		stageCustom:    StageRef{ID: uuid.New(), Key: "site_visit", Name: "Site Visit"},
	}
	dir := &fakeStageDirectory{stages: []StageRef{f.stageNew, f.stageInterview, f.stageCompleted, f.stageCustom}}
	f.svc = New(f.repo, dir, policy, f.bus, logger.New("test"))
	return f
}

func (f *fixture) seedLead(stage StageRef, status domain.Status) repository.Lead {
	l := repository.Lead{
		ID:             uuid.New(),
		OrganizationID: f.org,
		StageID:        stage.ID,
		Status:         string(status),
		Name:           "Jan Jansen",
	}
	f.repo.leads[l.ID] = l
	return l
}

func TestChangeStatusRejectsSkippingInterview(t *testing.T) {
	f := newFixture(domain.FixedEnumPolicy{})
	lead := f.seedLead(f.stageNew, domain.StatusNew)

	_, err := f.svc.ChangeStatus(context.Background(), f.org, f.actor, lead.ID, "completed")
	if !apperr.Is(err, apperr.KindInvalidTransition) {
		t.Fatalf("expected invalid transition error, got %v", err)
	}
	if f.repo.positions != 0 {
		t.Error("expected no position write on rejected transition")
	}
	if len(f.bus.published) != 0 {
		t.Error("expected no events on rejected transition")
	}
}

func TestChangeStatusMovesStageInLockstep(t *testing.T) {
	f := newFixture(domain.FixedEnumPolicy{})
	lead := f.seedLead(f.stageNew, domain.StatusNew)

	resp, err := f.svc.ChangeStatus(context.Background(), f.org, f.actor, lead.ID, "interview_scheduled")
	if err != nil {
		t.Fatalf("ChangeStatus failed: %v", err)
	}
	if resp.Status != "interview_scheduled" {
		t.Errorf("expected status interview_scheduled, got %q", resp.Status)
	}
	if resp.StageID != f.stageInterview.ID {
		t.Error("expected stage to follow status")
	}
	if len(f.bus.published) != 1 || f.bus.published[0].EventName() != "pipeline.lead.stage_changed" {
		t.Fatalf("expected one stage-changed event, got %v", f.bus.published)
	}
	if len(f.repo.activities) != 1 || f.repo.activities[0].Action != "lead.stage_changed" {
		t.Fatalf("expected one stage-changed activity, got %v", f.repo.activities)
	}
}

func TestChangeStatusWithoutMappedStageConflicts(t *testing.T) {
	f := newFixture(domain.FixedEnumPolicy{})
	lead := f.seedLead(f.stageInterview, domain.StatusInterviewScheduled)

	// Remove the rejected stage from the directory.
	dir := &fakeStageDirectory{stages: []StageRef{f.stageNew, f.stageInterview, f.stageCompleted}}
	f.svc = New(f.repo, dir, domain.FixedEnumPolicy{}, f.bus, logger.New("test"))

	_, err := f.svc.ChangeStatus(context.Background(), f.org, f.actor, lead.ID, "rejected")
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict when no stage maps to status, got %v", err)
	}
}

func TestMoveStageToCustomStageKeepsStatus(t *testing.T) {
	f := newFixture(domain.FixedEnumPolicy{})
	lead := f.seedLead(f.stageInterview, domain.StatusInterviewScheduled)

	resp, err := f.svc.MoveStage(context.Background(), f.org, f.actor, lead.ID, f.stageCustom.ID)
	if err != nil {
		t.Fatalf("MoveStage failed: %v", err)
	}
	if resp.StageID != f.stageCustom.ID {
		t.Error("expected lead on custom stage")
	}
	if resp.Status != "interview_scheduled" {
		t.Errorf("expected status unchanged for custom stage, got %q", resp.Status)
	}
}

func TestMoveStageSameStageIsNoOp(t *testing.T) {
	f := newFixture(domain.FixedEnumPolicy{})
	lead := f.seedLead(f.stageNew, domain.StatusNew)

	resp, err := f.svc.MoveStage(context.Background(), f.org, f.actor, lead.ID, f.stageNew.ID)
	if err != nil {
		t.Fatalf("MoveStage failed: %v", err)
	}
	if resp.StageID != f.stageNew.ID {
		t.Error("expected lead to stay put")
	}
	if f.repo.positions != 0 || len(f.bus.published) != 0 {
		t.Error("expected no writes or events for a same-stage move")
	}
}

func TestMoveStageFixedPolicyBlocksTerminalExit(t *testing.T) {
	f := newFixture(domain.FixedEnumPolicy{})
	lead := f.seedLead(f.stageCompleted, domain.StatusCompleted)

	_, err := f.svc.MoveStage(context.Background(), f.org, f.actor, lead.ID, f.stageNew.ID)
	if !apperr.Is(err, apperr.KindInvalidTransition) {
		t.Fatalf("expected invalid transition out of terminal stage, got %v", err)
	}
}

func TestMoveStageFreePolicyAllowsBackwardMove(t *testing.T) {
	f := newFixture(domain.FreeStagePolicy{})
	lead := f.seedLead(f.stageCompleted, domain.StatusCompleted)

	resp, err := f.svc.MoveStage(context.Background(), f.org, f.actor, lead.ID, f.stageNew.ID)
	if err != nil {
		t.Fatalf("expected free policy to allow backward move, got %v", err)
	}
	if resp.Status != "new" {
		t.Errorf("expected mirrored status new, got %q", resp.Status)
	}
}

func TestCreateDefaultsStageAndNormalizesPhone(t *testing.T) {
	f := newFixture(domain.FixedEnumPolicy{})

	phone := "06 12 34 56 78"
	resp, err := f.svc.Create(context.Background(), f.org, f.actor, transport.CreateLeadRequest{
		Name:  "Jan Jansen",
		Phone: &phone,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if resp.StageID != f.stageNew.ID {
		t.Error("expected lead on default stage")
	}
	if resp.Status != "new" {
		t.Errorf("expected mirrored status new, got %q", resp.Status)
	}
	stored := f.repo.leads[resp.ID]
	if stored.PhoneNormalized == nil || *stored.PhoneNormalized != "+31612345678" {
		t.Errorf("expected normalized phone +31612345678, got %v", stored.PhoneNormalized)
	}
	if len(f.repo.activities) != 1 || f.repo.activities[0].Action != "lead.created" {
		t.Fatalf("expected created activity, got %v", f.repo.activities)
	}
}

func TestGetHidesUnownedLeadFromRestrictedViewer(t *testing.T) {
	f := newFixture(domain.FixedEnumPolicy{})
	owner := uuid.New()
	lead := f.seedLead(f.stageNew, domain.StatusNew)
	lead.AssignedTo = &owner
	f.repo.leads[lead.ID] = lead

	viewer := uuid.New()
	if _, err := f.svc.Get(context.Background(), f.org, &viewer, lead.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found for unowned lead, got %v", err)
	}
	if _, err := f.svc.Get(context.Background(), f.org, &owner, lead.ID); err != nil {
		t.Fatalf("expected owner to see the lead, got %v", err)
	}
	if _, err := f.svc.Get(context.Background(), f.org, nil, lead.ID); err != nil {
		t.Fatalf("expected unrestricted viewer to see the lead, got %v", err)
	}
}

func TestGetReturnsEveryLeadField(t *testing.T) {
	f := newFixture(domain.FixedEnumPolicy{})
	email, phoneRaw, city := "jan@example.nl", "+31612345678", "Utrecht"
	assignee, creator := uuid.New(), uuid.New()
	lead := repository.Lead{
		ID:             uuid.New(),
		OrganizationID: f.org,
		StageID:        f.stageNew.ID,
		Status:         "new",
		Name:           "Jan Jansen",
		Email:          &email,
		Phone:          &phoneRaw,
		City:           &city,
		AssignedTo:     &assignee,
		CreatedBy:      &creator,
	}
	f.repo.leads[lead.ID] = lead

	resp, err := f.svc.Get(context.Background(), f.org, nil, lead.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if resp.ID != lead.ID || resp.StageID != lead.StageID || resp.Status != "new" || resp.Name != "Jan Jansen" {
		t.Errorf("identity fields not carried over: %+v", resp)
	}
	if resp.Email == nil || *resp.Email != email || resp.Phone == nil || *resp.Phone != phoneRaw || resp.City == nil || *resp.City != city {
		t.Errorf("contact fields not carried over: %+v", resp)
	}
	if resp.AssignedTo == nil || *resp.AssignedTo != assignee || resp.CreatedBy == nil || *resp.CreatedBy != creator {
		t.Errorf("ownership fields not carried over: %+v", resp)
	}
}

func TestListForwardsAssignedToFilter(t *testing.T) {
	f := newFixture(domain.FixedEnumPolicy{})
	assignee := uuid.New()

	_, err := f.svc.List(context.Background(), f.org, nil, transport.ListLeadsQuery{AssignedTo: assignee.String()})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if f.repo.lastList.AssignedTo == nil || *f.repo.lastList.AssignedTo != assignee {
		t.Errorf("expected assignedTo filter to reach the repository, got %v", f.repo.lastList.AssignedTo)
	}

	_, err = f.svc.List(context.Background(), f.org, nil, transport.ListLeadsQuery{AssignedTo: "not-a-uuid"})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for malformed assignedTo, got %v", err)
	}
}

func TestColumnPageRejectsUnknownStatusFilter(t *testing.T) {
	f := newFixture(domain.FixedEnumPolicy{})
	status := "archived"

	_, _, err := f.svc.ColumnPage(context.Background(), repository.ColumnParams{
		OrganizationID: f.org,
		StageID:        f.stageNew.ID,
		Status:         &status,
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestColumnPageNormalizesPhoneSearch(t *testing.T) {
	f := newFixture(domain.FixedEnumPolicy{})

	_, _, err := f.svc.ColumnPage(context.Background(), repository.ColumnParams{
		OrganizationID: f.org,
		StageID:        f.stageNew.ID,
		Search:         " 0612345678 ",
		Limit:          10,
	})
	if err != nil {
		t.Fatalf("ColumnPage failed: %v", err)
	}
	if f.repo.lastColumn.Search != "0612345678" {
		t.Errorf("expected trimmed search, got %q", f.repo.lastColumn.Search)
	}
	if f.repo.lastColumn.NormalizedSearch != "+31612345678" {
		t.Errorf("expected normalized phone search, got %q", f.repo.lastColumn.NormalizedSearch)
	}
}

func TestHandleStageDeletedRecordsReassignments(t *testing.T) {
	f := newFixture(domain.FixedEnumPolicy{})
	moved := []uuid.UUID{uuid.New(), uuid.New()}

	err := f.svc.HandleStageDeleted(context.Background(), events.StageDeleted{
		BaseEvent:      events.NewBaseEvent(),
		OrganizationID: f.org,
		StageID:        uuid.New(),
		StageName:      "Site Visit",
		TargetStageKey: "new",
		MovedLeadIDs:   moved,
		ActorID:        f.actor,
	})
	if err != nil {
		t.Fatalf("HandleStageDeleted failed: %v", err)
	}
	if len(f.repo.activities) != 2 {
		t.Fatalf("expected 2 activity entries, got %d", len(f.repo.activities))
	}
	for _, a := range f.repo.activities {
		if a.Action != "lead.stage_reassigned" {
			t.Errorf("unexpected action %q", a.Action)
		}
		if a.Metadata["toStageKey"] != "new" {
			t.Errorf("expected target stage key in metadata, got %v", a.Metadata)
		}
	}
}
