package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/greenloop-event-service/internal/dto"
	"github.com/prohmpiriya/greenloop-event-service/internal/service"
	"github.com/prohmpiriya/greenloop-event-service/pkg/response"
)

// EventHandler handles event-related HTTP requests
type EventHandler struct {
	eventService service.EventService
	queryService service.QueryService
}

// NewEventHandler creates a new EventHandler
func NewEventHandler(eventService service.EventService, queryService service.QueryService) *EventHandler {
	return &EventHandler{
		eventService: eventService,
		queryService: queryService,
	}
}

// List handles GET /events - lists events with pagination and filters
func (h *EventHandler) List(c *gin.Context) {
	var filter dto.EventListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest("Invalid query parameters"))
		return
	}

	events, total, err := h.queryService.ListEvents(c.Request.Context(), &filter)
	if err != nil {
		respondError(c, err, "Failed to list events")
		return
	}

	caller, _ := callerFrom(c)
	c.JSON(http.StatusOK, response.Paginated(
		toEventResponses(events, caller.IsAdmin()),
		filter.Offset/filter.Limit+1,
		filter.Limit,
		int64(total),
	))
}

// Get handles GET /events/:id
func (h *EventHandler) Get(c *gin.Context) {
	event, err := h.eventService.GetEvent(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to get event")
		return
	}

	caller, _ := callerFrom(c)
	c.JSON(http.StatusOK, response.Success(toEventResponse(event, caller.IsAdmin())))
}

// Create handles POST /events (admin)
func (h *EventHandler) Create(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}

	var req dto.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest("Invalid request body"))
		return
	}

	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, response.ValidationError(err.Error()))
		return
	}

	event, err := h.eventService.CreateEvent(c.Request.Context(), caller, &req)
	if err != nil {
		respondError(c, err, "Failed to create event")
		return
	}

	c.JSON(http.StatusCreated, response.Success(toEventResponse(event, true)))
}

// Update handles PUT /events/:id (admin)
func (h *EventHandler) Update(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}

	var req dto.UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest("Invalid request body"))
		return
	}

	event, err := h.eventService.UpdateEvent(c.Request.Context(), caller, c.Param("id"), &req)
	if err != nil {
		respondError(c, err, "Failed to update event")
		return
	}

	c.JSON(http.StatusOK, response.Success(toEventResponse(event, true)))
}

// Delete handles DELETE /events/:id (admin)
func (h *EventHandler) Delete(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}

	if err := h.eventService.DeleteEvent(c.Request.Context(), caller, c.Param("id")); err != nil {
		respondError(c, err, "Failed to delete event")
		return
	}

	c.JSON(http.StatusOK, response.Success(map[string]string{"message": "Event deleted successfully"}))
}

// RegenerateQRToken handles POST /events/:id/qr/regenerate (admin)
func (h *EventHandler) RegenerateQRToken(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}

	event, err := h.eventService.RegenerateQRToken(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to regenerate QR token")
		return
	}

	c.JSON(http.StatusOK, response.Success(toEventResponse(event, true)))
}
