package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"codepair/api/internal/ids"
	"codepair/api/internal/models"
	"codepair/api/internal/repository"
	"codepair/api/internal/rtc"
	"codepair/api/internal/saga"
)

var (
	ErrMissingFields    = errors.New("problem and difficulty are required")
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionCompleted = errors.New("cannot join a completed session")
	ErrHostJoin         = errors.New("host cannot join their own session")
	ErrSessionFull      = errors.New("session already has a participant")
	ErrNotHost          = errors.New("only the host can end this session")
	ErrAlreadyCompleted = errors.New("session is already completed")
)

// pageSize bounds every session listing.
const pageSize = 20

type SessionStore interface {
	Create(ctx context.Context, session models.Session) error
	GetByID(ctx context.Context, id string) (models.Session, error)
	GetDetail(ctx context.Context, id string) (models.SessionDetail, error)
	Delete(ctx context.Context, id string) error
	ClaimParticipant(ctx context.Context, id string, userID string) error
	ReleaseParticipant(ctx context.Context, id string, userID string) error
	MarkCompleted(ctx context.Context, id string) error
	ListActive(ctx context.Context, limit int) ([]models.SessionDetail, error)
	ListCompletedForUser(ctx context.Context, userID string, limit int) ([]models.SessionDetail, error)
	ListStaleActive(ctx context.Context, cutoff time.Time, limit int) ([]models.Session, error)
}

type UserStore interface {
	Create(ctx context.Context, user models.User) error
	GetByID(ctx context.Context, id string) (models.User, error)
	FindByExternalID(ctx context.Context, externalID string) (models.User, error)
	Leaderboard(ctx context.Context, limit int) ([]models.User, error)
	AdjustSolved(ctx context.Context, id string, delta int) error
	Upgrade(ctx context.Context, id string, tier models.SubscriptionTier) (models.User, error)
}

type VideoProvider interface {
	UpsertUser(ctx context.Context, user rtc.User) error
	CreateCall(ctx context.Context, callID string, createdBy string, custom map[string]any) error
	DeleteCall(ctx context.Context, callID string, hard bool) error
}

type ChatProvider interface {
	UpsertUser(ctx context.Context, user rtc.User) error
	CreateChannel(ctx context.Context, callID string, name string, createdBy string, members []string) error
	AddMembers(ctx context.Context, callID string, userIDs []string) error
	DeleteChannel(ctx context.Context, callID string) error
}

// SessionService coordinates the session lifecycle across the local
// store and both real-time backends. Multi-resource paths run through
// the saga runner so a partial failure rolls back what already landed.
type SessionService struct {
	sessions SessionStore
	users    UserStore
	video    VideoProvider
	chat     ChatProvider
	runner   *saga.Runner
	log      zerolog.Logger
}

func NewSessionService(
	sessions SessionStore,
	users UserStore,
	video VideoProvider,
	chat ChatProvider,
	log zerolog.Logger,
) *SessionService {
	return &SessionService{
		sessions: sessions,
		users:    users,
		video:    video,
		chat:     chat,
		runner:   saga.NewRunner(log),
		log:      log,
	}
}

// Create provisions a session across all three systems: the local
// record, a video call and a chat channel, the latter two keyed by a
// freshly generated shared call id. Any step failing unwinds the ones
// before it; a call-id collision in the store counts as a creation
// failure, never an overwrite.
func (s *SessionService) Create(ctx context.Context, requester models.User, problem, difficulty string) (models.SessionDetail, error) {
	problem = strings.TrimSpace(problem)
	difficulty = strings.TrimSpace(difficulty)
	if problem == "" || difficulty == "" {
		return models.SessionDetail{}, ErrMissingFields
	}

	// Idempotent registration with both backends happens outside the
	// saga: an upsert leaves nothing to compensate and a failure here
	// only matters if call provisioning fails too.
	s.upsertRTCUser(ctx, requester)

	session := models.Session{
		ID:         ids.New(),
		CallID:     ids.NewCallID(),
		Problem:    problem,
		Difficulty: difficulty,
		Status:     models.SessionStatusActive,
		HostID:     requester.ID,
	}

	steps := []saga.Step{
		{
			Name: "persist session",
			Run: func(ctx context.Context) error {
				return s.sessions.Create(ctx, session)
			},
			Compensate: func(ctx context.Context) error {
				return s.sessions.Delete(ctx, session.ID)
			},
		},
		{
			Name: "create video call",
			Run: func(ctx context.Context) error {
				return s.video.CreateCall(ctx, session.CallID, requester.ExternalID, map[string]any{
					"problem":    problem,
					"difficulty": difficulty,
					"sessionId":  session.ID,
				})
			},
			Compensate: func(ctx context.Context) error {
				return s.video.DeleteCall(ctx, session.CallID, true)
			},
		},
		{
			Name: "create chat channel",
			Run: func(ctx context.Context) error {
				return s.chat.CreateChannel(ctx, session.CallID, problem+" Session",
					requester.ExternalID, []string{requester.ExternalID})
			},
			Compensate: func(ctx context.Context) error {
				return s.chat.DeleteChannel(ctx, session.CallID)
			},
		},
	}

	if err := s.runner.Execute(ctx, "create session", steps); err != nil {
		return models.SessionDetail{}, err
	}

	return s.sessions.GetDetail(ctx, session.ID)
}

// Join claims the participant slot for the requester and adds them to
// the chat channel. The claim is a conditional update, so a racing join
// loses cleanly instead of overwriting; a failed chat add releases the
// slot again.
func (s *SessionService) Join(ctx context.Context, requester models.User, id string) (models.SessionDetail, error) {
	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return models.SessionDetail{}, classifyNotFound(err)
	}

	if session.Status != models.SessionStatusActive {
		return models.SessionDetail{}, ErrSessionCompleted
	}
	if session.HostID == requester.ID {
		return models.SessionDetail{}, ErrHostJoin
	}
	if session.ParticipantID != nil {
		return models.SessionDetail{}, ErrSessionFull
	}

	steps := []saga.Step{
		{
			Name: "claim participant slot",
			Run: func(ctx context.Context) error {
				return s.sessions.ClaimParticipant(ctx, session.ID, requester.ID)
			},
			Compensate: func(ctx context.Context) error {
				return s.sessions.ReleaseParticipant(ctx, session.ID, requester.ID)
			},
		},
		{
			Name: "add chat member",
			Run: func(ctx context.Context) error {
				return s.chat.AddMembers(ctx, session.CallID, []string{requester.ExternalID})
			},
		},
	}

	if err := s.runner.Execute(ctx, "join session", steps); err != nil {
		if errors.Is(err, repository.ErrSlotUnavailable) {
			return models.SessionDetail{}, ErrSessionFull
		}
		return models.SessionDetail{}, err
	}

	return s.sessions.GetDetail(ctx, session.ID)
}

// End tears the session down: remote call and channel deleted, solved
// counters bumped for both parties, status flipped to completed. The
// remote deletions are irreversible and carry no compensation; the
// counter increments are undone if the final persist fails.
func (s *SessionService) End(ctx context.Context, requester models.User, id string) (models.SessionDetail, error) {
	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return models.SessionDetail{}, classifyNotFound(err)
	}

	if session.HostID != requester.ID {
		return models.SessionDetail{}, ErrNotHost
	}
	if session.Status == models.SessionStatusCompleted {
		return models.SessionDetail{}, ErrAlreadyCompleted
	}

	steps := []saga.Step{
		{
			Name: "delete video call",
			Run: func(ctx context.Context) error {
				return s.video.DeleteCall(ctx, session.CallID, true)
			},
		},
		{
			Name: "delete chat channel",
			Run: func(ctx context.Context) error {
				return s.chat.DeleteChannel(ctx, session.CallID)
			},
		},
		{
			Name: "credit host",
			Run: func(ctx context.Context) error {
				return s.users.AdjustSolved(ctx, session.HostID, 1)
			},
			Compensate: func(ctx context.Context) error {
				return s.users.AdjustSolved(ctx, session.HostID, -1)
			},
		},
	}

	if participantID := session.ParticipantID; participantID != nil {
		steps = append(steps, saga.Step{
			Name: "credit participant",
			Run: func(ctx context.Context) error {
				return s.users.AdjustSolved(ctx, *participantID, 1)
			},
			Compensate: func(ctx context.Context) error {
				return s.users.AdjustSolved(ctx, *participantID, -1)
			},
		})
	}

	steps = append(steps, saga.Step{
		Name: "mark completed",
		Run: func(ctx context.Context) error {
			return s.sessions.MarkCompleted(ctx, session.ID)
		},
	})

	if err := s.runner.Execute(ctx, "end session", steps); err != nil {
		return models.SessionDetail{}, err
	}

	return s.sessions.GetDetail(ctx, session.ID)
}

func (s *SessionService) ListActive(ctx context.Context) ([]models.SessionDetail, error) {
	return s.sessions.ListActive(ctx, pageSize)
}

func (s *SessionService) ListRecentForUser(ctx context.Context, userID string) ([]models.SessionDetail, error) {
	return s.sessions.ListCompletedForUser(ctx, userID, pageSize)
}

func (s *SessionService) Get(ctx context.Context, id string) (models.SessionDetail, error) {
	detail, err := s.sessions.GetDetail(ctx, id)
	if err != nil {
		return models.SessionDetail{}, classifyNotFound(err)
	}
	return detail, nil
}

// ExpireStale completes sessions that stayed active past maxAge. Remote
// resources are deleted best-effort and nobody gets solved credit for an
// abandoned session. Returns the number of sessions expired.
func (s *SessionService) ExpireStale(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)
	stale, err := s.sessions.ListStaleActive(ctx, cutoff, 100)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, session := range stale {
		if err := s.video.DeleteCall(ctx, session.CallID, true); err != nil {
			s.log.Warn().Err(err).Str("session_id", session.ID).Msg("expire: video delete failed")
		}
		if err := s.chat.DeleteChannel(ctx, session.CallID); err != nil {
			s.log.Warn().Err(err).Str("session_id", session.ID).Msg("expire: chat delete failed")
		}
		if err := s.sessions.MarkCompleted(ctx, session.ID); err != nil {
			s.log.Error().Err(err).Str("session_id", session.ID).Msg("expire: mark completed failed")
			continue
		}
		expired++
	}
	return expired, nil
}

func (s *SessionService) upsertRTCUser(ctx context.Context, user models.User) {
	rtcUser := rtc.User{
		ID:    user.ExternalID,
		Name:  user.Name,
		Image: user.Image(),
	}
	if err := s.video.UpsertUser(ctx, rtcUser); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("video user upsert failed")
	}
	if err := s.chat.UpsertUser(ctx, rtcUser); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("chat user upsert failed")
	}
}

func classifyNotFound(err error) error {
	if errors.Is(err, repository.ErrSessionNotFound) {
		return ErrSessionNotFound
	}
	return err
}
