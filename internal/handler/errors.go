package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/greenloop-event-service/internal/domain"
	"github.com/prohmpiriya/greenloop-event-service/pkg/logger"
	"github.com/prohmpiriya/greenloop-event-service/pkg/middleware"
	"github.com/prohmpiriya/greenloop-event-service/pkg/response"
	"go.uber.org/zap"
)

var kindStatus = map[domain.ErrorKind]int{
	domain.KindNotFound:     http.StatusNotFound,
	domain.KindConflict:     http.StatusConflict,
	domain.KindInvalidState: http.StatusUnprocessableEntity,
	domain.KindForbidden:    http.StatusForbidden,
	domain.KindValidation:   http.StatusBadRequest,
}

// respondError writes the response for a service error. Domain errors keep
// their stable code and message; anything else is logged and reported as a
// 500 with a generic message.
func respondError(c *gin.Context, err error, failure string) {
	kind, code, matched := domain.Classify(err)
	if status, ok := kindStatus[kind]; ok && matched != nil {
		c.JSON(status, response.Error(code, matched.Error()))
		return
	}

	logger.Get().Error(failure,
		zap.String("path", c.FullPath()),
		zap.String("request_id", middleware.GetRequestID(c)),
		zap.Error(err),
	)
	c.JSON(http.StatusInternalServerError, response.InternalError(failure))
}

// callerFrom builds the authenticated caller from the JWT middleware context
func callerFrom(c *gin.Context) (domain.Caller, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return domain.Caller{}, false
	}
	email, _ := middleware.GetEmail(c)
	username, _ := middleware.GetUsername(c)
	role, _ := middleware.GetRole(c)

	return domain.Caller{
		UserID:   userID,
		Email:    email,
		Username: username,
		Role:     domain.Role(role),
	}, true
}

// requireCaller writes 401 and returns false when no caller is present
func requireCaller(c *gin.Context) (domain.Caller, bool) {
	caller, ok := callerFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Unauthorized("User not authenticated"))
	}
	return caller, ok
}
