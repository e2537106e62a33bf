package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/pulse-social/pulse/internal/domain"
	"github.com/pulse-social/pulse/internal/repository"
	"github.com/pulse-social/pulse/pkg/log"
	"github.com/pulse-social/pulse/pkg/pubsub"
)

type messageServiceImpl struct {
	repo      repository.MessageRepository
	users     repository.UserRepository
	publisher pubsub.Publisher
}

// NewMessageService creates a direct message service. publisher may be nil.
func NewMessageService(repo repository.MessageRepository, users repository.UserRepository, publisher pubsub.Publisher) MessageService {
	return &messageServiceImpl{
		repo:      repo,
		users:     users,
		publisher: publisher,
	}
}

// GetConversations groups the user's messages by partner, newest
// conversation first.
func (s *messageServiceImpl) GetConversations(ctx context.Context, userID int64) ([]*domain.Conversation, error) {
	l := log.Ctx(ctx)

	messages, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		l.Error().Err(err).Int64(log.FieldUserID, userID).Msg("failed to list messages")
		return nil, err
	}

	byPartner := make(map[int64]*domain.Conversation)
	for _, m := range messages {
		partnerID := m.PartnerOf(userID)
		conv, ok := byPartner[partnerID]
		if !ok {
			conv = &domain.Conversation{PartnerID: partnerID}
			byPartner[partnerID] = conv
		}
		if isLater(m, conv.LastMessage) {
			conv.LastMessage = m
		}
		if m.ReceiverID == userID && !m.Read {
			conv.UnreadCount++
		}
	}

	ids := make([]int64, 0, len(byPartner))
	for id := range byPartner {
		ids = append(ids, id)
	}
	partners, err := s.users.GetByIDs(ctx, ids)
	if err != nil {
		l.Error().Err(err).Int64(log.FieldUserID, userID).Msg("failed to load conversation partners")
		return nil, err
	}

	out := make([]*domain.Conversation, 0, len(byPartner))
	for id, conv := range byPartner {
		partner, ok := partners[id]
		if !ok {
			continue
		}
		conv.Partner = partner.Summary()
		out = append(out, conv)
	}
	sort.Slice(out, func(i, j int) bool {
		return isLater(out[i].LastMessage, out[j].LastMessage)
	})
	return out, nil
}

// isLater reports whether a was sent after b. Equal timestamps fall back to
// the id.
func isLater(a, b *domain.Message) bool {
	if b == nil {
		return true
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

func (s *messageServiceImpl) GetMessages(ctx context.Context, userID, partnerID int64) ([]*domain.Message, error) {
	messages, err := s.repo.ListBetween(ctx, userID, partnerID)
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Int64(log.FieldUserID, userID).Int64(log.FieldTargetUserID, partnerID).Msg("failed to list messages")
		return nil, err
	}
	return messages, nil
}

func (s *messageServiceImpl) Send(ctx context.Context, senderID, receiverID int64, content string) (*domain.Message, error) {
	l := log.Ctx(ctx)

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, invalid("message content is required")
	}

	for _, id := range []int64{senderID, receiverID} {
		if _, err := s.users.GetByID(ctx, id); err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return nil, ErrUserNotFound
			}
			return nil, err
		}
	}

	msg := &domain.Message{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
	}
	if err := s.repo.Create(ctx, msg); err != nil {
		l.Error().Err(err).Int64(log.FieldUserID, senderID).Int64(log.FieldTargetUserID, receiverID).Msg("failed to send message")
		return nil, err
	}

	s.publish(ctx, receiverID, pubsub.EventMessageCreated, msg)
	return msg, nil
}

// MarkAsRead flips the partner's messages to the user. The user's own
// messages to the partner are left alone.
func (s *messageServiceImpl) MarkAsRead(ctx context.Context, userID, partnerID int64) (int64, error) {
	n, err := s.repo.MarkRead(ctx, userID, partnerID)
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Int64(log.FieldUserID, userID).Int64(log.FieldTargetUserID, partnerID).Msg("failed to mark messages read")
		return 0, err
	}
	if n > 0 {
		s.publish(ctx, partnerID, pubsub.EventMessagesRead, pubsub.MessagesReadPayload{ReaderID: userID, Count: n})
	}
	return n, nil
}

func (s *messageServiceImpl) SearchConversations(ctx context.Context, userID int64, query string) ([]*domain.Conversation, error) {
	conversations, err := s.GetConversations(ctx, userID)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return conversations, nil
	}

	out := make([]*domain.Conversation, 0)
	for _, c := range conversations {
		if strings.Contains(strings.ToLower(c.Partner.DisplayName), q) ||
			strings.Contains(strings.ToLower(c.Partner.Username), q) ||
			strings.Contains(strings.ToLower(c.LastMessage.Content), q) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *messageServiceImpl) publish(ctx context.Context, userID int64, eventType string, payload interface{}) {
	if s.publisher == nil {
		return
	}

	l := log.Ctx(ctx)
	event, err := pubsub.NewEvent(eventType, userID, payload)
	if err != nil {
		l.Warn().Err(err).Str("event", eventType).Msg("failed to build message event")
		return
	}
	if err := s.publisher.Publish(ctx, pubsub.UserChannel(userID), event); err != nil {
		l.Warn().Err(err).Str("event", eventType).Int64(log.FieldTargetUserID, userID).Msg("failed to publish message event")
	}
}
