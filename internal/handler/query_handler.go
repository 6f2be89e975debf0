package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/greenloop-event-service/internal/domain"
	"github.com/prohmpiriya/greenloop-event-service/internal/dto"
	"github.com/prohmpiriya/greenloop-event-service/internal/service"
	"github.com/prohmpiriya/greenloop-event-service/pkg/response"
)

// QueryHandler serves personal listings and public aggregates
type QueryHandler struct {
	queryService service.QueryService
}

// NewQueryHandler creates a new QueryHandler
func NewQueryHandler(queryService service.QueryService) *QueryHandler {
	return &QueryHandler{
		queryService: queryService,
	}
}

// Types handles GET /events/types
func (h *QueryHandler) Types(c *gin.Context) {
	types := h.queryService.EventTypes()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	c.JSON(http.StatusOK, response.Success(&dto.EventTypesResponse{Types: out}))
}

// MyUpcoming handles GET /me/events/upcoming
func (h *QueryHandler) MyUpcoming(c *gin.Context) {
	h.userList(c, h.queryService.UpcomingJoined)
}

// MyPast handles GET /me/events/past
func (h *QueryHandler) MyPast(c *gin.Context) {
	h.userList(c, h.queryService.PastJoined)
}

// Discover handles GET /me/events/discover
func (h *QueryHandler) Discover(c *gin.Context) {
	h.userList(c, h.queryService.UpcomingNotJoined)
}

func (h *QueryHandler) userList(c *gin.Context, list func(ctx context.Context, userID string) ([]*domain.Event, error)) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}

	events, err := list(c.Request.Context(), caller.UserID)
	if err != nil {
		respondError(c, err, "Failed to list events")
		return
	}

	c.JSON(http.StatusOK, response.Success(toEventResponses(events, caller.IsAdmin())))
}

// CountOpen handles GET /events/stats/open/total
func (h *QueryHandler) CountOpen(c *gin.Context) {
	h.count(c, h.queryService.CountOpenEvents)
}

// CountUpcoming handles GET /events/stats/upcoming/30days
func (h *QueryHandler) CountUpcoming(c *gin.Context) {
	h.count(c, h.queryService.CountUpcoming30Days)
}

// CountParticipants handles GET /events/stats/open/participants
func (h *QueryHandler) CountParticipants(c *gin.Context) {
	h.count(c, h.queryService.TotalParticipantsInOpenEvents)
}

func (h *QueryHandler) count(c *gin.Context, fn func(ctx context.Context) (int, error)) {
	n, err := fn(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to compute statistics")
		return
	}
	c.JSON(http.StatusOK, response.Success(&dto.CountResponse{Count: n}))
}
