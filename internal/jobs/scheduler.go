package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"codepair/api/internal/config"
	"codepair/api/internal/service"
)

// Scheduler runs the stale-session reaper on a cron schedule. Sessions
// left active past the configured age get their remote resources torn
// down and their status flipped to completed, with no solved credit.
type Scheduler struct {
	cron     *cron.Cron
	sessions *service.SessionService
	cfg      config.SessionsConfig
	log      zerolog.Logger
}

func NewScheduler(sessions *service.SessionService, cfg config.SessionsConfig, log zerolog.Logger) *Scheduler {
	c := cron.New(cron.WithSeconds())
	return &Scheduler{
		cron:     c,
		sessions: sessions,
		cfg:      cfg,
		log:      log,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.ReapSchedule, s.reapStale); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop waits for any running job to finish, up to five seconds.
func (s *Scheduler) Stop() {
	done := s.cron.Stop().Done()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		s.log.Warn().Msg("scheduler stop timed out")
	}
}

func (s *Scheduler) reapStale() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	expired, err := s.sessions.ExpireStale(ctx, s.cfg.MaxAge)
	if err != nil {
		s.log.Error().Err(err).Msg("stale session reap failed")
		return
	}
	if expired > 0 {
		s.log.Info().Int("expired", expired).Msg("stale sessions reaped")
	}
}
