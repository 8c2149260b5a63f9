package rtc

import (
	"context"
	"fmt"
	"net/http"

	"codepair/api/internal/config"
)

const callType = "default"

// VideoClient provisions call resources on the video backend.
type VideoClient struct {
	*client
}

func NewVideoClient(cfg config.RTCConfig) (*VideoClient, error) {
	c, err := newClient(cfg.VideoBaseURL, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, err
	}
	return &VideoClient{client: c}, nil
}

func (v *VideoClient) UpsertUser(ctx context.Context, user User) error {
	payload := map[string]any{
		"users": map[string]User{user.ID: user},
	}
	return v.do(ctx, http.MethodPost, "/users", payload, nil)
}

// CreateCall provisions (get-or-create) a call keyed by callID, carrying
// the session metadata as custom call data.
func (v *VideoClient) CreateCall(ctx context.Context, callID string, createdBy string, custom map[string]any) error {
	payload := map[string]any{
		"data": map[string]any{
			"created_by_id": createdBy,
			"custom":        custom,
		},
	}
	path := fmt.Sprintf("/call/%s/%s", callType, callID)
	return v.do(ctx, http.MethodPost, path, payload, nil)
}

// DeleteCall removes a call. Hard deletion erases the resource instead
// of archiving it.
func (v *VideoClient) DeleteCall(ctx context.Context, callID string, hard bool) error {
	path := fmt.Sprintf("/call/%s/%s/delete", callType, callID)
	payload := map[string]any{"hard": hard}
	return v.do(ctx, http.MethodPost, path, payload, nil)
}
