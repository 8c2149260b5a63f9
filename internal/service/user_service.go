package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"codepair/api/internal/models"
)

var ErrInvalidTransaction = errors.New("invalid transaction id")

const (
	leaderboardSize = 20
	leaderboardKey  = "leaderboard:top"

	// minTransactionIDLen is the only verification applied to upgrade
	// transaction references; real payment verification is out of scope.
	minTransactionIDLen = 10
)

type UserService struct {
	users    UserStore
	cache    *redis.Client
	cacheTTL time.Duration
	log      zerolog.Logger
}

func NewUserService(users UserStore, cache *redis.Client, cacheTTL time.Duration, log zerolog.Logger) *UserService {
	return &UserService{
		users:    users,
		cache:    cache,
		cacheTTL: cacheTTL,
		log:      log,
	}
}

// Leaderboard returns the top users by solved count, public fields only.
// The result sits in redis for a short TTL; a cache failure falls
// through to the store.
func (s *UserService) Leaderboard(ctx context.Context) ([]models.PublicUser, error) {
	if cached, ok := s.cachedLeaderboard(ctx); ok {
		return cached, nil
	}

	users, err := s.users.Leaderboard(ctx, leaderboardSize)
	if err != nil {
		return nil, err
	}

	public := make([]models.PublicUser, 0, len(users))
	for _, user := range users {
		public = append(public, user.Public())
	}

	s.storeLeaderboard(ctx, public)
	return public, nil
}

func (s *UserService) cachedLeaderboard(ctx context.Context) ([]models.PublicUser, bool) {
	if s.cache == nil {
		return nil, false
	}

	raw, err := s.cache.Get(ctx, leaderboardKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Warn().Err(err).Msg("leaderboard cache read failed")
		}
		return nil, false
	}

	var users []models.PublicUser
	if err := json.Unmarshal(raw, &users); err != nil {
		s.log.Warn().Err(err).Msg("leaderboard cache decode failed")
		return nil, false
	}
	return users, true
}

func (s *UserService) storeLeaderboard(ctx context.Context, users []models.PublicUser) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return
	}

	raw, err := json.Marshal(users)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, leaderboardKey, raw, s.cacheTTL).Err(); err != nil {
		s.log.Warn().Err(err).Msg("leaderboard cache write failed")
	}
}

// Upgrade flips a user to premium/pro after checking the transaction
// reference by length only.
func (s *UserService) Upgrade(ctx context.Context, user models.User, transactionID string) (models.User, error) {
	if len(strings.TrimSpace(transactionID)) < minTransactionIDLen {
		return models.User{}, ErrInvalidTransaction
	}

	return s.users.Upgrade(ctx, user.ID, models.TierPro)
}
