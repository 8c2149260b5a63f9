package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"codepair/api/internal/middleware"
	"codepair/api/internal/models"
)

type profileResponse struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	ProfileImage   *string   `json:"profileImage,omitempty"`
	ProblemsSolved int       `json:"problemsSolved"`
	IsPremium      bool      `json:"isPremium"`
	Tier           string    `json:"subscriptionTier"`
	CreatedAt      time.Time `json:"createdAt"`
}

func toProfileResponse(user models.User) profileResponse {
	return profileResponse{
		ID:             user.ID,
		Name:           user.Name,
		Email:          user.Email,
		ProfileImage:   user.ProfileImage,
		ProblemsSolved: user.ProblemsSolved,
		IsPremium:      user.IsPremium,
		Tier:           string(user.Tier),
		CreatedAt:      user.CreatedAt,
	}
}

func (h HandlerSet) Leaderboard(c *gin.Context) {
	users, err := h.userService.Leaderboard(c.Request.Context())
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (h HandlerSet) Me(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": toProfileResponse(user)})
}

type upgradeRequest struct {
	TransactionID string `json:"transactionId"`
}

func (h HandlerSet) Upgrade(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req upgradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	upgraded, err := h.userService.Upgrade(c.Request.Context(), user, req.TransactionID)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "upgraded to pro",
		"user":    toProfileResponse(upgraded),
	})
}
