package board

import (
	apphttp "leadflow_backend/internal/http"
	"leadflow_backend/internal/board/handler"
	"leadflow_backend/internal/board/service"
	"leadflow_backend/platform/logger"
)

// Module wires the kanban board feature.
type Module struct {
	handler *handler.Handler
}

// New constructs the board module on top of the stages and leads services.
func New(stages service.StageLister, leads service.ColumnReader, log *logger.Logger) *Module {
	svc := service.New(stages, leads, log)
	return &Module{handler: handler.New(svc)}
}

// Name implements the HTTP module interface.
func (m *Module) Name() string { return "board" }

// RegisterRoutes mounts the board endpoint.
func (m *Module) RegisterRoutes(r *apphttp.RouterContext) {
	r.Protected.GET("/kanban/board", m.handler.Board)
}
