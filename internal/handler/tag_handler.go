package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/greenloop-event-service/internal/dto"
	"github.com/prohmpiriya/greenloop-event-service/internal/service"
	"github.com/prohmpiriya/greenloop-event-service/pkg/response"
)

// TagHandler handles tag endpoints
type TagHandler struct {
	tagService service.TagService
}

// NewTagHandler creates a new TagHandler
func NewTagHandler(tagService service.TagService) *TagHandler {
	return &TagHandler{
		tagService: tagService,
	}
}

// List handles GET /tags
func (h *TagHandler) List(c *gin.Context) {
	tags, err := h.tagService.ListTags(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to list tags")
		return
	}
	c.JSON(http.StatusOK, response.Success(toTagResponses(tags)))
}

// ListByEvent handles GET /events/:id/tags
func (h *TagHandler) ListByEvent(c *gin.Context) {
	tags, err := h.tagService.ListEventTags(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to list event tags")
		return
	}
	c.JSON(http.StatusOK, response.Success(toTagResponses(tags)))
}

// Add handles POST /events/:id/tags (admin)
func (h *TagHandler) Add(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}

	var req dto.TagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest("Invalid request body"))
		return
	}

	tag, err := h.tagService.AddTag(c.Request.Context(), caller, c.Param("id"), req.Name)
	if err != nil {
		respondError(c, err, "Failed to add tag")
		return
	}

	c.JSON(http.StatusCreated, response.Success(&dto.TagResponse{ID: tag.ID, Name: tag.Name}))
}

// Remove handles DELETE /events/:id/tags/:name (admin)
func (h *TagHandler) Remove(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}

	if err := h.tagService.RemoveTag(c.Request.Context(), caller, c.Param("id"), c.Param("name")); err != nil {
		respondError(c, err, "Failed to remove tag")
		return
	}

	c.JSON(http.StatusOK, response.Success(map[string]string{"message": "Tag removed"}))
}
