package rtc

import (
	"context"
	"fmt"
	"net/http"

	"codepair/api/internal/config"
)

const channelType = "messaging"

// ChatClient provisions messaging channels on the chat backend.
type ChatClient struct {
	*client
}

func NewChatClient(cfg config.RTCConfig) (*ChatClient, error) {
	c, err := newClient(cfg.ChatBaseURL, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, err
	}
	return &ChatClient{client: c}, nil
}

func (ch *ChatClient) UpsertUser(ctx context.Context, user User) error {
	payload := map[string]any{
		"users": map[string]User{user.ID: user},
	}
	return ch.do(ctx, http.MethodPost, "/users", payload, nil)
}

// CreateChannel creates a messaging channel keyed by callID with the
// given initial members.
func (ch *ChatClient) CreateChannel(ctx context.Context, callID string, name string, createdBy string, members []string) error {
	payload := map[string]any{
		"data": map[string]any{
			"name":          name,
			"created_by_id": createdBy,
			"members":       members,
		},
	}
	path := fmt.Sprintf("/channels/%s/%s", channelType, callID)
	return ch.do(ctx, http.MethodPost, path, payload, nil)
}

func (ch *ChatClient) AddMembers(ctx context.Context, callID string, userIDs []string) error {
	payload := map[string]any{"add_members": userIDs}
	path := fmt.Sprintf("/channels/%s/%s", channelType, callID)
	return ch.do(ctx, http.MethodPost, path, payload, nil)
}

func (ch *ChatClient) DeleteChannel(ctx context.Context, callID string) error {
	path := fmt.Sprintf("/channels/%s/%s", channelType, callID)
	return ch.do(ctx, http.MethodDelete, path, nil, nil)
}
