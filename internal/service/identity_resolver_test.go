package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"codepair/api/internal/identity"
	"codepair/api/internal/models"
)

type fakeProvider struct {
	getUserFn func(ctx context.Context, externalID string) (identity.Profile, error)
}

func (p *fakeProvider) GetUser(ctx context.Context, externalID string) (identity.Profile, error) {
	return p.getUserFn(ctx, externalID)
}

func TestResolve_ExistingUserNotRecreated(t *testing.T) {
	existing := models.User{ID: "u1", ExternalID: "ext-1", Name: "Ada", Email: "ada@example.com"}
	users := newFakeUserStore(existing)
	provider := &fakeProvider{getUserFn: func(ctx context.Context, externalID string) (identity.Profile, error) {
		t.Fatal("provider must not be called for a known identity")
		return identity.Profile{}, nil
	}}

	r := NewIdentityResolver(users, provider, newFakeVideo(), newFakeChat(), zerolog.Nop())

	user, err := r.Resolve(context.Background(), "ext-1")
	if err != nil {
		t.Fatalf("Resolve() = %v", err)
	}
	if user.ID != existing.ID {
		t.Errorf("user = %q, want %q", user.ID, existing.ID)
	}
	if len(users.byID) != 1 {
		t.Errorf("user count = %d, want 1", len(users.byID))
	}
}

func TestResolve_FirstSightCreatesFromProfile(t *testing.T) {
	users := newFakeUserStore()
	provider := &fakeProvider{getUserFn: func(ctx context.Context, externalID string) (identity.Profile, error) {
		return identity.Profile{
			ID:        externalID,
			FirstName: "Grace",
			LastName:  "Hopper",
			Email:     "grace@example.com",
			ImageURL:  "https://img.example.com/grace.png",
		}, nil
	}}

	r := NewIdentityResolver(users, provider, newFakeVideo(), newFakeChat(), zerolog.Nop())

	user, err := r.Resolve(context.Background(), "ext-new")
	if err != nil {
		t.Fatalf("Resolve() = %v", err)
	}

	if user.Name != "Grace Hopper" {
		t.Errorf("name = %q, want %q", user.Name, "Grace Hopper")
	}
	if user.Email != "grace@example.com" {
		t.Errorf("email = %q", user.Email)
	}
	if user.ProfileImage == nil || *user.ProfileImage != "https://img.example.com/grace.png" {
		t.Error("profile image must be carried over")
	}
	if user.ExternalID != "ext-new" {
		t.Errorf("external id = %q", user.ExternalID)
	}
	if _, err := users.FindByExternalID(context.Background(), "ext-new"); err != nil {
		t.Error("user must be persisted")
	}
}

func TestResolve_ProviderDownFallsBackToPlaceholder(t *testing.T) {
	users := newFakeUserStore()
	provider := &fakeProvider{getUserFn: func(ctx context.Context, externalID string) (identity.Profile, error) {
		return identity.Profile{}, errors.New("provider timeout")
	}}

	r := NewIdentityResolver(users, provider, newFakeVideo(), newFakeChat(), zerolog.Nop())

	user, err := r.Resolve(context.Background(), "ext-orphan")
	if err != nil {
		t.Fatalf("Resolve() = %v", err)
	}

	if user.Name != "New User" {
		t.Errorf("name = %q, want placeholder", user.Name)
	}
	if user.Email != "user_ext-orphan@temporary.invalid" {
		t.Errorf("email = %q, want placeholder", user.Email)
	}
	if user.ProfileImage != nil {
		t.Error("placeholder must have no image")
	}
}

func TestResolve_CreateRaceReusesWinner(t *testing.T) {
	users := newFakeUserStore()
	winner := models.User{ID: "u-winner", ExternalID: "ext-race", Name: "Winner", Email: "w@example.com"}

	provider := &fakeProvider{getUserFn: func(ctx context.Context, externalID string) (identity.Profile, error) {
		// simulate a concurrent request winning the insert between the
		// miss and our create
		users.byID[winner.ID] = winner
		users.failCreate = errors.New("unique violation")
		return identity.Profile{ID: externalID, FirstName: "Loser"}, nil
	}}

	r := NewIdentityResolver(users, provider, newFakeVideo(), newFakeChat(), zerolog.Nop())

	user, err := r.Resolve(context.Background(), "ext-race")
	if err != nil {
		t.Fatalf("Resolve() = %v", err)
	}
	if user.ID != winner.ID {
		t.Errorf("user = %q, want the racing winner %q", user.ID, winner.ID)
	}
}

func TestResolve_UpsertsIntoBothBackends(t *testing.T) {
	existing := models.User{ID: "u1", ExternalID: "ext-1", Name: "Ada", Email: "ada@example.com"}
	users := newFakeUserStore(existing)
	video := newFakeVideo()
	chat := newFakeChat()

	r := NewIdentityResolver(users, &fakeProvider{}, video, chat, zerolog.Nop())

	if _, err := r.Resolve(context.Background(), "ext-1"); err != nil {
		t.Fatalf("Resolve() = %v", err)
	}

	if len(video.upserts) != 1 || video.upserts[0].ID != "ext-1" {
		t.Errorf("video upserts = %v", video.upserts)
	}
	if len(chat.upserts) != 1 || chat.upserts[0].ID != "ext-1" {
		t.Errorf("chat upserts = %v", chat.upserts)
	}
	if video.upserts[0].Image != "" {
		t.Error("unset profile image must map to empty image")
	}
}

func TestResolve_RTCUpsertFailureDoesNotBlock(t *testing.T) {
	existing := models.User{ID: "u1", ExternalID: "ext-1", Name: "Ada", Email: "ada@example.com"}
	users := newFakeUserStore(existing)
	video := newFakeVideo()
	video.failUpsert = errors.New("video down")

	r := NewIdentityResolver(users, &fakeProvider{}, video, newFakeChat(), zerolog.Nop())

	if _, err := r.Resolve(context.Background(), "ext-1"); err != nil {
		t.Fatalf("Resolve() = %v, want nil despite upsert failure", err)
	}
}
