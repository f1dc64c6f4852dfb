package leads

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"leadflow_backend/internal/events"
	apphttp "leadflow_backend/internal/http"
	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/handler"
	"leadflow_backend/internal/leads/repository"
	"leadflow_backend/internal/leads/service"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/validator"
)

// Module wires the leads feature.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// New constructs the leads module. The transition mode selects how strictly
// lead moves are validated.
func New(pool *pgxpool.Pool, stages service.StageDirectory, transitionMode string, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	policy := domain.PolicyForMode(transitionMode)
	svc := service.New(repo, stages, policy, bus, log)
	h := handler.New(svc, val)

	bus.Subscribe(events.StageDeleted{}.EventName(), events.HandlerFunc(svc.HandleStageDeleted))

	return &Module{handler: h, service: svc}
}

// Name implements the HTTP module interface.
func (m *Module) Name() string { return "leads" }

// Service exposes the lead service for in-process consumers (board assembly).
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts the lead endpoints.
func (m *Module) RegisterRoutes(r *apphttp.RouterContext) {
	leads := r.Protected.Group("/leads")
	{
		leads.GET("", m.handler.List)
		leads.POST("", m.handler.Create)
		leads.GET("/:id", m.handler.Get)
		leads.PATCH("/:id", m.handler.Update)
		leads.PATCH("/:id/status", m.handler.ChangeStatus)
		leads.PATCH("/:id/stage", m.handler.MoveStage)
		leads.GET("/:id/activities", m.handler.Activities)
	}

	r.Admin.DELETE("/leads/:id", m.handler.Delete)
}
