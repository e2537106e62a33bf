package domain

import (
	"time"
)

// Message is a direct message between two users.
type Message struct {
	ID         int64     `json:"id"`
	SenderID   int64     `json:"sender_id"`
	ReceiverID int64     `json:"receiver_id"`
	Content    string    `json:"content"`
	Read       bool      `json:"read"`
	CreatedAt  time.Time `json:"created_at"`
}

// PartnerOf returns the other side of the message relative to userID.
func (m *Message) PartnerOf(userID int64) int64 {
	if m.SenderID == userID {
		return m.ReceiverID
	}
	return m.SenderID
}

// Conversation summarizes the messages between a user and one partner.
type Conversation struct {
	PartnerID   int64        `json:"partner_id"`
	Partner     *UserSummary `json:"partner"`
	LastMessage *Message     `json:"last_message"`
	UnreadCount int64        `json:"unread_count"`
}

type SendMessageRequest struct {
	Content string `json:"content" binding:"required,max=5000"`
}

type MarkReadResponse struct {
	Count int64 `json:"count"`
}
