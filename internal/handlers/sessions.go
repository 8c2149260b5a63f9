package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"codepair/api/internal/middleware"
	"codepair/api/internal/models"
)

type createSessionRequest struct {
	Problem    string `json:"problem"`
	Difficulty string `json:"difficulty"`
}

func (h HandlerSet) CreateSession(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	detail, err := h.sessionService.Create(c.Request.Context(), user, req.Problem, req.Difficulty)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"session": toSessionResponse(detail),
	})
}

func (h HandlerSet) ActiveSessions(c *gin.Context) {
	details, err := h.sessionService.ListActive(c.Request.Context())
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"sessions": toSessionResponses(details)})
}

func (h HandlerSet) MyRecentSessions(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	details, err := h.sessionService.ListRecentForUser(c.Request.Context(), user.ID)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"sessions": toSessionResponses(details)})
}

func (h HandlerSet) SessionByID(c *gin.Context) {
	detail, err := h.sessionService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"session": toSessionResponse(detail)})
}

func (h HandlerSet) JoinSession(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	detail, err := h.sessionService.Join(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"session": toSessionResponse(detail)})
}

func (h HandlerSet) EndSession(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	detail, err := h.sessionService.End(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session": toSessionResponse(detail),
		"message": "session ended",
	})
}

func toSessionResponses(details []models.SessionDetail) []sessionResponse {
	responses := make([]sessionResponse, 0, len(details))
	for _, detail := range details {
		responses = append(responses, toSessionResponse(detail))
	}
	return responses
}
