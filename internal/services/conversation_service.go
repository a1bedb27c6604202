package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"prompt-image-studio/internal/apperr"
	"prompt-image-studio/internal/models"
	"prompt-image-studio/internal/store"
)

const (
	DefaultConversationTitle = "New conversation"
	maxDerivedTitle          = 50
)

type ConversationService struct {
	store store.ConversationStore
}

func NewConversationService(st store.ConversationStore) *ConversationService {
	return &ConversationService{store: st}
}

func (s *ConversationService) Create(ctx context.Context, req models.CreateConversationRequest) (*models.Conversation, error) {
	conv := &models.Conversation{Title: ConversationTitle(req.Title, req.Prompt)}
	if err := s.store.CreateConversation(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

func (s *ConversationService) Get(ctx context.Context, rawID string) (*models.Conversation, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, apperr.NotFound("conversation", rawID)
	}
	return s.store.GetConversation(ctx, id)
}

func (s *ConversationService) List(ctx context.Context) ([]models.Conversation, error) {
	return s.store.ListConversations(ctx)
}

// Messages lists a conversation's messages oldest first.
func (s *ConversationService) Messages(ctx context.Context, rawID string) ([]models.Message, error) {
	conv, err := s.Get(ctx, rawID)
	if err != nil {
		return nil, err
	}
	return s.store.ListMessages(ctx, conv.ID)
}

// ConversationTitle uses the explicit title, else the first 50 characters of
// the prompt, else a fixed default.
func ConversationTitle(title, prompt string) string {
	if t := strings.TrimSpace(title); t != "" {
		return t
	}
	p := strings.Join(strings.Fields(prompt), " ")
	if p == "" {
		return DefaultConversationTitle
	}
	if utf8.RuneCountInString(p) > maxDerivedTitle {
		runes := []rune(p)
		return strings.TrimSpace(string(runes[:maxDerivedTitle])) + "..."
	}
	return p
}
