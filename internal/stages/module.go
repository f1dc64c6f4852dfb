package stages

import (
	"github.com/jackc/pgx/v5/pgxpool"

	apphttp "leadflow_backend/internal/http"
	"leadflow_backend/internal/stages/handler"
	"leadflow_backend/internal/stages/repository"
	"leadflow_backend/internal/stages/service"
	"leadflow_backend/platform/cache"
	"leadflow_backend/platform/events"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/validator"
)

// Module wires the pipeline stages feature.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// New constructs the stages module.
func New(pool *pgxpool.Pool, stageCache *cache.Cache, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, stageCache, bus, log)
	h := handler.New(svc, val)
	return &Module{handler: h, service: svc}
}

// Name implements the HTTP module interface.
func (m *Module) Name() string { return "stages" }

// Service exposes the stage service for in-process consumers
// (board assembly, the order compaction worker).
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts the stage endpoints.
func (m *Module) RegisterRoutes(r *apphttp.RouterContext) {
	r.Protected.GET("/stages", m.handler.List)

	admin := r.Admin.Group("/stages")
	{
		admin.POST("", m.handler.Create)
		admin.POST("/adjacent", m.handler.CreateAdjacent)
		admin.PATCH("/reorder", m.handler.Reorder)
		admin.PATCH("/:id", m.handler.Update)
		admin.DELETE("/:id", m.handler.Delete)
	}
}
