package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/greenloop-event-service/internal/dto"
	"github.com/prohmpiriya/greenloop-event-service/internal/service"
	"github.com/prohmpiriya/greenloop-event-service/pkg/response"
)

// RegistrationHandler handles registration endpoints
type RegistrationHandler struct {
	registrationService service.RegistrationService
}

// NewRegistrationHandler creates a new RegistrationHandler
func NewRegistrationHandler(registrationService service.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{
		registrationService: registrationService,
	}
}

// Register handles POST /events/:id/register
func (h *RegistrationHandler) Register(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}

	attendee, err := h.registrationService.Register(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to register for event")
		return
	}

	c.JSON(http.StatusCreated, response.Success(toAttendeeResponse(attendee)))
}

// Deregister handles DELETE /events/:id/register
func (h *RegistrationHandler) Deregister(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}

	if err := h.registrationService.Deregister(c.Request.Context(), caller, c.Param("id")); err != nil {
		respondError(c, err, "Failed to cancel registration")
		return
	}

	c.JSON(http.StatusOK, response.Success(map[string]string{"message": "Registration cancelled"}))
}

// IsRegistered handles GET /events/:id/is-registered
func (h *RegistrationHandler) IsRegistered(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}

	eventID := c.Param("id")
	registered, err := h.registrationService.IsRegistered(c.Request.Context(), caller, eventID)
	if err != nil {
		respondError(c, err, "Failed to check registration")
		return
	}

	c.JSON(http.StatusOK, response.Success(&dto.IsRegisteredResponse{
		EventID:    eventID,
		Registered: registered,
	}))
}

// ListParticipants handles GET /events/:id/participants (admin)
func (h *RegistrationHandler) ListParticipants(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}

	attendees, err := h.registrationService.ListAttendees(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to list participants")
		return
	}

	out := make([]*dto.AttendeeResponse, len(attendees))
	for i, a := range attendees {
		out[i] = toAttendeeResponse(a)
	}
	c.JSON(http.StatusOK, response.Success(out))
}

// RemoveParticipant handles DELETE /events/:id/participants/:userId (admin)
func (h *RegistrationHandler) RemoveParticipant(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}

	if err := h.registrationService.RemoveAttendee(c.Request.Context(), caller, c.Param("id"), c.Param("userId")); err != nil {
		respondError(c, err, "Failed to remove participant")
		return
	}

	c.JSON(http.StatusOK, response.Success(map[string]string{"message": "Participant removed"}))
}
