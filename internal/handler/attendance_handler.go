package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/greenloop-event-service/internal/domain"
	"github.com/prohmpiriya/greenloop-event-service/internal/dto"
	"github.com/prohmpiriya/greenloop-event-service/internal/service"
	"github.com/prohmpiriya/greenloop-event-service/pkg/response"
)

// AttendanceHandler handles QR scan endpoints
type AttendanceHandler struct {
	attendanceService service.AttendanceService
}

// NewAttendanceHandler creates a new AttendanceHandler
func NewAttendanceHandler(attendanceService service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{
		attendanceService: attendanceService,
	}
}

// Scan handles POST /events/scan - the caller scans an event QR code
func (h *AttendanceHandler) Scan(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}

	var req dto.ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ValidationError(domain.ErrMissingQRToken.Error()))
		return
	}

	attendee, event, err := h.attendanceService.MarkAttendance(c.Request.Context(), caller, req.QRToken)
	if err != nil {
		respondError(c, err, "Failed to mark attendance")
		return
	}

	c.JSON(http.StatusOK, response.Success(toAttendanceResponse(attendee, event)))
}

// AdminScan handles POST /events/:id/scan - an admin marks a user on an event
func (h *AttendanceHandler) AdminScan(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}

	var req dto.AdminScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest("Invalid request body"))
		return
	}

	attendee, event, err := h.attendanceService.MarkAttendanceByEvent(c.Request.Context(), caller, c.Param("id"), &req)
	if err != nil {
		respondError(c, err, "Failed to mark attendance")
		return
	}

	c.JSON(http.StatusOK, response.Success(toAttendanceResponse(attendee, event)))
}

func toAttendanceResponse(a *domain.Attendee, e *domain.Event) *dto.AttendanceResponse {
	return &dto.AttendanceResponse{
		Attendee:    toAttendeeResponse(a),
		EventName:   e.Name,
		CoinsEarned: e.Coins,
	}
}
