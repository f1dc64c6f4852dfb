package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"leadflow_backend/internal/board/service"
	"leadflow_backend/internal/board/transport"
	"leadflow_backend/platform/httpkit"
)

// Handler handles HTTP requests for the kanban board.
type Handler struct {
	svc *service.Service
}

// New creates a new board handler.
func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Board returns the viewer's kanban board. search, status and assignedTo
// narrow every column; each column paginates on its own via <stageKey>Page
// and <stageKey>Limit query parameters, e.g. ?newPage=2&newLimit=20&search=jansen.
// GET /api/v1/kanban/board
func (h *Handler) Board(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	tenantID := identity.TenantID()
	if tenantID == nil {
		httpkit.Error(c, http.StatusBadRequest, "tenant ID is required", nil)
		return
	}

	filter, err := parseColumnFilter(c)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	result, err := h.svc.Board(c.Request.Context(), *tenantID, viewerFor(identity), filter, parseColumnPages(c))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// parseColumnFilter reads the board-wide filters shared with the lead list.
func parseColumnFilter(c *gin.Context) (service.ColumnFilter, error) {
	filter := service.ColumnFilter{Search: strings.TrimSpace(c.Query("search"))}
	if status := c.Query("status"); status != "" {
		filter.Status = &status
	}
	if raw := c.Query("assignedTo"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return service.ColumnFilter{}, errors.New("invalid assignedTo filter")
		}
		filter.AssignedTo = &id
	}
	return filter, nil
}

// parseColumnPages collects the per-column pagination parameters. Unknown
// stage keys are harmless: the board only looks up keys it renders.
func parseColumnPages(c *gin.Context) map[string]transport.ColumnPageRequest {
	pages := make(map[string]transport.ColumnPageRequest)
	for name, values := range c.Request.URL.Query() {
		if len(values) == 0 {
			continue
		}
		value, err := strconv.Atoi(values[0])
		if err != nil {
			continue
		}
		switch {
		case strings.HasSuffix(name, "Page"):
			key := strings.TrimSuffix(name, "Page")
			req := pages[key]
			req.Page = value
			pages[key] = req
		case strings.HasSuffix(name, "Limit"):
			key := strings.TrimSuffix(name, "Limit")
			req := pages[key]
			req.Limit = value
			pages[key] = req
		}
	}
	return pages
}

func viewerFor(identity httpkit.Identity) *uuid.UUID {
	for _, role := range identity.Roles() {
		if role == "admin" {
			return nil
		}
	}
	userID := identity.UserID()
	return &userID
}
