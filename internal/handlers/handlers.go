package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"codepair/api/internal/config"
	"codepair/api/internal/middleware"
	"codepair/api/internal/models"
	"codepair/api/internal/repository"
	"codepair/api/internal/service"
)

type HandlerSet struct {
	log            zerolog.Logger
	cfg            *config.AppConfig
	sessionService *service.SessionService
	userService    *service.UserService
	resolver       middleware.UserResolver
	db             *pgxpool.Pool
	cache          *redis.Client
}

func NewHandlerSet(
	log zerolog.Logger,
	cfg *config.AppConfig,
	sessionService *service.SessionService,
	userService *service.UserService,
	resolver middleware.UserResolver,
	db *pgxpool.Pool,
	cache *redis.Client,
) HandlerSet {
	return HandlerSet{
		log:            log,
		cfg:            cfg,
		sessionService: sessionService,
		userService:    userService,
		resolver:       resolver,
		db:             db,
		cache:          cache,
	}
}

// Register mounts the API surface onto the /api group.
func (h HandlerSet) Register(router *gin.RouterGroup) {
	auth := middleware.Auth(h.cfg.Identity.JWTSecret, h.resolver, h.log)

	users := router.Group("/users")
	users.GET("/leaderboard", h.Leaderboard)
	users.GET("/me", auth, h.Me)
	users.POST("/upgrade", auth, h.Upgrade)

	sessions := router.Group("/sessions")
	sessions.Use(auth)
	sessions.POST("", h.CreateSession)
	sessions.GET("/active", h.ActiveSessions)
	sessions.GET("/my-recent", h.MyRecentSessions)
	sessions.GET("/:id", h.SessionByID)
	sessions.POST("/:id/join", h.JoinSession)
	sessions.POST("/:id/end", h.EndSession)
}

type sessionResponse struct {
	ID          string             `json:"id"`
	CallID      string             `json:"callId"`
	Problem     string             `json:"problem"`
	Difficulty  string             `json:"difficulty"`
	Status      string             `json:"status"`
	Host        models.PublicUser  `json:"host"`
	Participant *models.PublicUser `json:"participant,omitempty"`
	CreatedAt   time.Time          `json:"createdAt"`
}

func toSessionResponse(detail models.SessionDetail) sessionResponse {
	return sessionResponse{
		ID:          detail.ID,
		CallID:      detail.CallID,
		Problem:     detail.Problem,
		Difficulty:  detail.Difficulty,
		Status:      string(detail.Status),
		Host:        detail.Host,
		Participant: detail.Participant,
		CreatedAt:   detail.CreatedAt,
	}
}

// writeServiceError maps service sentinels onto the HTTP error
// taxonomy. Unclassified failures become a generic 500 with the detail
// logged, never returned.
func (h HandlerSet) writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrMissingFields),
		errors.Is(err, service.ErrInvalidTransaction),
		errors.Is(err, service.ErrSessionCompleted),
		errors.Is(err, service.ErrHostJoin),
		errors.Is(err, service.ErrAlreadyCompleted):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, repository.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotHost):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrSessionFull):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_server_error"})
	}
}
