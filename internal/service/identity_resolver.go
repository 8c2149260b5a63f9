package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"codepair/api/internal/identity"
	"codepair/api/internal/ids"
	"codepair/api/internal/models"
	"codepair/api/internal/repository"
	"codepair/api/internal/rtc"
)

type IdentityProvider interface {
	GetUser(ctx context.Context, externalID string) (identity.Profile, error)
}

// IdentityResolver maps a verified external identity to a local user,
// creating the local record the first time the identity is seen and
// keeping both real-time backends aware of the user.
type IdentityResolver struct {
	users    UserStore
	provider IdentityProvider
	video    VideoProvider
	chat     ChatProvider
	log      zerolog.Logger
}

func NewIdentityResolver(
	users UserStore,
	provider IdentityProvider,
	video VideoProvider,
	chat ChatProvider,
	log zerolog.Logger,
) *IdentityResolver {
	return &IdentityResolver{
		users:    users,
		provider: provider,
		video:    video,
		chat:     chat,
		log:      log,
	}
}

func (r *IdentityResolver) Resolve(ctx context.Context, externalID string) (models.User, error) {
	user, err := r.users.FindByExternalID(ctx, externalID)
	if errors.Is(err, repository.ErrUserNotFound) {
		user, err = r.createFromProvider(ctx, externalID)
	}
	if err != nil {
		return models.User{}, err
	}

	// Registration with both backends is an idempotent upsert; a
	// failure is logged, not surfaced, matching session creation which
	// retries the upsert anyway.
	rtcUser := rtc.User{ID: user.ExternalID, Name: user.Name, Image: user.Image()}
	if err := r.video.UpsertUser(ctx, rtcUser); err != nil {
		r.log.Warn().Err(err).Str("user_id", user.ID).Msg("video user upsert failed")
	}
	if err := r.chat.UpsertUser(ctx, rtcUser); err != nil {
		r.log.Warn().Err(err).Str("user_id", user.ID).Msg("chat user upsert failed")
	}

	return user, nil
}

// createFromProvider fills the local record from the provider's profile
// API, falling back to a placeholder when the provider is unreachable so
// a provider outage does not lock users out.
func (r *IdentityResolver) createFromProvider(ctx context.Context, externalID string) (models.User, error) {
	user := models.User{
		ID:         ids.New(),
		ExternalID: externalID,
		Name:       "New User",
		Email:      fmt.Sprintf("user_%s@temporary.invalid", externalID),
		Tier:       models.TierFree,
	}

	profile, err := r.provider.GetUser(ctx, externalID)
	if err != nil {
		r.log.Warn().Err(err).Str("external_id", externalID).Msg("provider profile fetch failed, using placeholder")
	} else {
		user.Name = profile.DisplayName()
		if profile.Email != "" {
			user.Email = profile.Email
		}
		if profile.ImageURL != "" {
			image := profile.ImageURL
			user.ProfileImage = &image
		}
	}

	if err := r.users.Create(ctx, user); err != nil {
		// A racing request may have created the record between the
		// lookup and the insert; the unique external_id makes the
		// re-read authoritative.
		if existing, ferr := r.users.FindByExternalID(ctx, externalID); ferr == nil {
			return existing, nil
		}
		return models.User{}, fmt.Errorf("create user: %w", err)
	}

	r.log.Info().Str("external_id", externalID).Str("name", user.Name).Msg("local user created")
	return user, nil
}
