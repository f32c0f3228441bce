// Package memory holds the in-process store implementations used when no
// database is configured. Each collection is guarded by its own mutex;
// message appends within a conversation are linearized by the conversation
// store's write lock.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Lwazi-M/studyconnect-2.0/internal/models"
	"github.com/Lwazi-M/studyconnect-2.0/internal/store"
)

type conversationState struct {
	conv     models.Conversation
	messages []models.Message
	// markers maps peer id to the last message id that peer has read.
	markers map[int64]int64
}

type ConversationStore struct {
	mu            sync.RWMutex
	nextConvID    int64
	nextMessageID int64
	conversations map[int64]*conversationState
}

func NewConversationStore() *ConversationStore {
	return &ConversationStore{
		conversations: make(map[int64]*conversationState),
	}
}

func (s *ConversationStore) CreateConversation(
	_ context.Context,
	kind string,
	title *string,
	participantIDs []int64,
) (*models.Conversation, error) {
	unique := dedupe(participantIDs)
	if len(unique) < 2 {
		return nil, store.ErrInvalidParticipants
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextConvID++
	now := time.Now().UTC()
	state := &conversationState{
		conv: models.Conversation{
			ID:             s.nextConvID,
			Kind:           kind,
			Title:          title,
			ParticipantIDs: unique,
			CreatedAt:      now,
			UpdatedAt:      now,
		},
		markers: make(map[int64]int64),
	}
	s.conversations[state.conv.ID] = state

	conv := cloneConversation(state.conv)
	return &conv, nil
}

func (s *ConversationStore) GetForParticipant(
	_ context.Context,
	conversationID, peerID int64,
) (*models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.conversations[conversationID]
	if !ok || !state.conv.HasParticipant(peerID) {
		return nil, store.ErrNotFound
	}

	conv := cloneConversation(state.conv)
	return &conv, nil
}

func (s *ConversationStore) AppendMessage(
	_ context.Context,
	conversationID, senderID int64,
	body string,
) (*models.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, store.ErrEmptyBody
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.conversations[conversationID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if !state.conv.HasParticipant(senderID) {
		return nil, store.ErrNotAParticipant
	}

	now := time.Now().UTC()
	if n := len(state.messages); n > 0 && now.Before(state.messages[n-1].CreatedAt) {
		// Keep timestamps non-decreasing within the log; ties are broken
		// by id.
		now = state.messages[n-1].CreatedAt
	}

	s.nextMessageID++
	message := models.Message{
		ID:             s.nextMessageID,
		ConversationID: conversationID,
		SenderID:       senderID,
		Body:           body,
		CreatedAt:      now,
	}
	state.messages = append(state.messages, message)
	state.conv.UpdatedAt = now

	out := message
	out.ReadBy = []int64{}
	return &out, nil
}

func (s *ConversationStore) ListMessages(
	_ context.Context,
	conversationID int64,
	limit, offset int,
) ([]models.Message, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.conversations[conversationID]
	if !ok {
		return nil, 0, store.ErrNotFound
	}

	total := len(state.messages)
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	end := total
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	messages := make([]models.Message, 0, end-offset)
	for _, message := range state.messages[offset:end] {
		message.ReadBy = state.readBy(message)
		messages = append(messages, message)
	}
	return messages, total, nil
}

func (s *ConversationStore) ListForPeer(
	_ context.Context,
	peerID int64,
) ([]models.ConversationSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]models.ConversationSummary, 0)
	for _, state := range s.conversations {
		if !state.conv.HasParticipant(peerID) {
			continue
		}

		summary := models.ConversationSummary{Conversation: cloneConversation(state.conv)}
		if n := len(state.messages); n > 0 {
			last := state.messages[n-1]
			last.ReadBy = state.readBy(last)
			summary.LastMessage = &last
		}
		summary.UnreadCount = state.unreadCount(peerID)
		summaries = append(summaries, summary)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		a, b := lastActivity(summaries[i]), lastActivity(summaries[j])
		if a.Equal(b) {
			return summaries[i].ID < summaries[j].ID
		}
		return a.After(b)
	})
	return summaries, nil
}

func lastActivity(summary models.ConversationSummary) time.Time {
	if summary.LastMessage != nil {
		return summary.LastMessage.CreatedAt
	}
	return summary.CreatedAt
}

func (s *ConversationStore) MarkRead(
	_ context.Context,
	conversationID, peerID, uptoMessageID int64,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.conversations[conversationID]
	if !ok {
		return store.ErrNotFound
	}
	if !state.conv.HasParticipant(peerID) {
		return store.ErrNotAParticipant
	}

	if n := len(state.messages); n > 0 && uptoMessageID > state.messages[n-1].ID {
		uptoMessageID = state.messages[n-1].ID
	}
	// Markers only move forward; regressions are silent no-ops.
	if uptoMessageID > state.markers[peerID] {
		state.markers[peerID] = uptoMessageID
	}
	return nil
}

// readBy lists the participants, other than the sender, whose read marker
// covers the message.
func (state *conversationState) readBy(message models.Message) []int64 {
	readers := make([]int64, 0)
	for _, id := range state.conv.ParticipantIDs {
		if id == message.SenderID {
			continue
		}
		if state.markers[id] >= message.ID {
			readers = append(readers, id)
		}
	}
	return readers
}

// unreadCount is derived from the read marker on every call; it is never
// stored, so it cannot drift.
func (state *conversationState) unreadCount(peerID int64) int {
	marker := state.markers[peerID]
	count := 0
	for _, message := range state.messages {
		if message.SenderID != peerID && message.ID > marker {
			count++
		}
	}
	return count
}

func cloneConversation(conv models.Conversation) models.Conversation {
	conv.ParticipantIDs = append([]int64(nil), conv.ParticipantIDs...)
	return conv
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	unique := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	sort.Slice(unique, func(i, j int) bool { return unique[i] < unique[j] })
	return unique
}
