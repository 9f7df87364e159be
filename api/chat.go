package api

import (
	"context"
	"fmt"
	"net/http"
)

// ChatService covers the conversation endpoints. Live messaging goes over
// the realtime package; these are the history and HTTP-fallback calls.
type ChatService struct {
	client *Client
}

// Interlocutor is the other participant of a conversation.
type Interlocutor struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
}

// MessagePreview is the last-message snippet shown in the conversation list.
type MessagePreview struct {
	Body   string `json:"contenu"`
	SentAt string `json:"date_envoi"`
}

// ConversationSummary is one row of the conversation list.
type ConversationSummary struct {
	ID           int             `json:"id"`
	Interlocutor Interlocutor    `json:"interlocuteur"`
	LastMessage  *MessagePreview `json:"dernier_message"`
	UnreadCount  int             `json:"messages_non_lus"`
	CreatedAt    string          `json:"date_creation"`
}

// ChatMessage is one persisted chat message.
type ChatMessage struct {
	ID         int    `json:"id"`
	SenderName string `json:"nom_expediteur"`
	SenderID   int    `json:"expediteur"`
	Body       string `json:"contenu"`
	IsRead     bool   `json:"is_read"`
	SentAt     string `json:"date_envoi"`
}

// Conversation is the conversation detail, messages included.
type Conversation struct {
	ID           int           `json:"id"`
	Interlocutor Interlocutor  `json:"interlocuteur"`
	Messages     []ChatMessage `json:"messages"`
	CreatedAt    string        `json:"date_creation"`
}

// Conversations lists the user's conversations.
func (s *ChatService) Conversations(ctx context.Context) ([]ConversationSummary, error) {
	var conversations []ConversationSummary
	if err := s.client.Do(ctx, http.MethodGet, "/api/chat/", nil, &conversations); err != nil {
		return nil, err
	}
	return conversations, nil
}

// Create starts (or returns the existing) conversation with another user.
// The backend responds with the conversation list row, not the detail, so
// fetch the history with Get afterwards if needed.
func (s *ChatService) Create(ctx context.Context, userID int) (*ConversationSummary, error) {
	body := map[string]int{"utilisateur_id": userID}

	var conversation ConversationSummary
	if err := s.client.Do(ctx, http.MethodPost, "/api/chat/creer/", body, &conversation); err != nil {
		return nil, err
	}
	return &conversation, nil
}

// Get fetches a conversation with its message history.
func (s *ChatService) Get(ctx context.Context, id int) (*Conversation, error) {
	var conversation Conversation
	if err := s.client.Do(ctx, http.MethodGet, fmt.Sprintf("/api/chat/%d/", id), nil, &conversation); err != nil {
		return nil, err
	}
	return &conversation, nil
}

// SendMessage posts a message over HTTP. This is the fallback path for when
// the realtime channel is down; the live path is realtime.ChatClient.Send.
func (s *ChatService) SendMessage(ctx context.Context, id int, text string) (*ChatMessage, error) {
	body := map[string]string{"contenu": text}

	var message ChatMessage
	if err := s.client.Do(ctx, http.MethodPost, fmt.Sprintf("/api/chat/%d/envoyer/", id), body, &message); err != nil {
		return nil, err
	}
	return &message, nil
}

// MarkRead marks every message of a conversation as read.
func (s *ChatService) MarkRead(ctx context.Context, id int) error {
	return s.client.Do(ctx, http.MethodPost, fmt.Sprintf("/api/chat/%d/marquer_lu/", id), nil, nil)
}
