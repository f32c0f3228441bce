package models

import "time"

const (
	ConversationDirect = "direct"
	ConversationGroup  = "group"
)

type Conversation struct {
	ID             int64     `json:"id"`
	Kind           string    `json:"kind"`
	Title          *string   `json:"title,omitempty"`
	ParticipantIDs []int64   `json:"participant_ids"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (c *Conversation) HasParticipant(peerID int64) bool {
	for _, id := range c.ParticipantIDs {
		if id == peerID {
			return true
		}
	}
	return false
}

type Message struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	SenderID       int64     `json:"sender_id"`
	Body           string    `json:"body"`
	CreatedAt      time.Time `json:"created_at"`
	ReadBy         []int64   `json:"read_by"`
}

type ConversationSummary struct {
	Conversation
	LastMessage *Message            `json:"last_message,omitempty"`
	UnreadCount int                 `json:"unread_count"`
	Profile     ConversationProfile `json:"profile,omitempty"`
}
