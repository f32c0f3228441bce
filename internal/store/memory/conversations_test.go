package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Lwazi-M/studyconnect-2.0/internal/models"
	"github.com/Lwazi-M/studyconnect-2.0/internal/store"
)

func TestCreateConversationRejectsFewerThanTwoParticipants(t *testing.T) {
	s := NewConversationStore()
	ctx := context.Background()

	_, err := s.CreateConversation(ctx, models.ConversationDirect, nil, []int64{1})
	require.ErrorIs(t, err, store.ErrInvalidParticipants)

	// Duplicates collapse before the check.
	_, err = s.CreateConversation(ctx, models.ConversationDirect, nil, []int64{1, 1, 1})
	require.ErrorIs(t, err, store.ErrInvalidParticipants)
}

func TestCreateConversationDedupesParticipants(t *testing.T) {
	s := NewConversationStore()

	conv, err := s.CreateConversation(context.Background(), models.ConversationGroup, nil, []int64{3, 1, 3, 2})
	require.NoError(t, err)
	require.Equal(t, []int64{1, 2, 3}, conv.ParticipantIDs)
}

func TestAppendMessageValidation(t *testing.T) {
	s := NewConversationStore()
	ctx := context.Background()

	conv, err := s.CreateConversation(ctx, models.ConversationDirect, nil, []int64{1, 2})
	require.NoError(t, err)

	_, err = s.AppendMessage(ctx, conv.ID, 1, "   ")
	require.ErrorIs(t, err, store.ErrEmptyBody)

	_, err = s.AppendMessage(ctx, conv.ID, 99, "hello")
	require.ErrorIs(t, err, store.ErrNotAParticipant)

	_, err = s.AppendMessage(ctx, 404, 1, "hello")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestMessagesListOldestFirstWithNonDecreasingTimestamps(t *testing.T) {
	s := NewConversationStore()
	ctx := context.Background()

	conv, err := s.CreateConversation(ctx, models.ConversationDirect, nil, []int64{1, 2})
	require.NoError(t, err)

	for _, body := range []string{"first", "second", "third"} {
		_, err := s.AppendMessage(ctx, conv.ID, 1, body)
		require.NoError(t, err)
	}

	messages, total, err := s.ListMessages(ctx, conv.ID, 0, 0)
	require.NoError(t, err)
	require.Equal(t, 3, total)
	require.Len(t, messages, 3)

	for i := 1; i < len(messages); i++ {
		require.False(t, messages[i].CreatedAt.Before(messages[i-1].CreatedAt))
		require.Greater(t, messages[i].ID, messages[i-1].ID)
	}
	require.Equal(t, "first", messages[0].Body)
	require.Equal(t, "third", messages[2].Body)
}

func TestListMessagesPagination(t *testing.T) {
	s := NewConversationStore()
	ctx := context.Background()

	conv, err := s.CreateConversation(ctx, models.ConversationDirect, nil, []int64{1, 2})
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err := s.AppendMessage(ctx, conv.ID, 1, "msg")
		require.NoError(t, err)
	}

	page, total, err := s.ListMessages(ctx, conv.ID, 2, 3)
	require.NoError(t, err)
	require.Equal(t, 5, total)
	require.Len(t, page, 2)

	past, total, err := s.ListMessages(ctx, conv.ID, 2, 10)
	require.NoError(t, err)
	require.Equal(t, 5, total)
	require.Empty(t, past)
}

func TestUnreadCountsExcludeOwnMessages(t *testing.T) {
	s := NewConversationStore()
	ctx := context.Background()

	conv, err := s.CreateConversation(ctx, models.ConversationDirect, nil, []int64{1, 2})
	require.NoError(t, err)

	_, err = s.AppendMessage(ctx, conv.ID, 1, "hey, did you get the notes?")
	require.NoError(t, err)
	reply, err := s.AppendMessage(ctx, conv.ID, 2, "yes, sending now")
	require.NoError(t, err)

	// Each peer is only behind on the other's message.
	summaries, err := s.ListForPeer(ctx, 1)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	require.Equal(t, 1, summaries[0].UnreadCount)
	require.Equal(t, reply.ID, summaries[0].LastMessage.ID)

	summaries, err = s.ListForPeer(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, 1, summaries[0].UnreadCount)

	require.NoError(t, s.MarkRead(ctx, conv.ID, 1, reply.ID))
	summaries, err = s.ListForPeer(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 0, summaries[0].UnreadCount)
}

func TestMarkReadIsForwardOnly(t *testing.T) {
	s := NewConversationStore()
	ctx := context.Background()

	conv, err := s.CreateConversation(ctx, models.ConversationDirect, nil, []int64{1, 2})
	require.NoError(t, err)

	first, err := s.AppendMessage(ctx, conv.ID, 2, "one")
	require.NoError(t, err)
	second, err := s.AppendMessage(ctx, conv.ID, 2, "two")
	require.NoError(t, err)

	require.NoError(t, s.MarkRead(ctx, conv.ID, 1, second.ID))

	// A stale marker is a silent no-op, not an error.
	require.NoError(t, s.MarkRead(ctx, conv.ID, 1, first.ID))

	summaries, err := s.ListForPeer(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 0, summaries[0].UnreadCount)
}

func TestMarkReadClampsToLastMessage(t *testing.T) {
	s := NewConversationStore()
	ctx := context.Background()

	conv, err := s.CreateConversation(ctx, models.ConversationDirect, nil, []int64{1, 2})
	require.NoError(t, err)
	last, err := s.AppendMessage(ctx, conv.ID, 2, "only")
	require.NoError(t, err)

	require.NoError(t, s.MarkRead(ctx, conv.ID, 1, last.ID+1000))

	messages, _, err := s.ListMessages(ctx, conv.ID, 0, 0)
	require.NoError(t, err)
	require.Equal(t, []int64{1}, messages[0].ReadBy)
}

func TestMarkReadRejectsNonParticipants(t *testing.T) {
	s := NewConversationStore()
	ctx := context.Background()

	conv, err := s.CreateConversation(ctx, models.ConversationDirect, nil, []int64{1, 2})
	require.NoError(t, err)

	require.ErrorIs(t, s.MarkRead(ctx, conv.ID, 99, 1), store.ErrNotAParticipant)
	require.ErrorIs(t, s.MarkRead(ctx, 404, 1, 1), store.ErrNotFound)
}

func TestReadByNeverIncludesSender(t *testing.T) {
	s := NewConversationStore()
	ctx := context.Background()

	conv, err := s.CreateConversation(ctx, models.ConversationGroup, nil, []int64{1, 2, 3})
	require.NoError(t, err)
	message, err := s.AppendMessage(ctx, conv.ID, 1, "group update")
	require.NoError(t, err)

	require.NoError(t, s.MarkRead(ctx, conv.ID, 1, message.ID))
	require.NoError(t, s.MarkRead(ctx, conv.ID, 3, message.ID))

	messages, _, err := s.ListMessages(ctx, conv.ID, 0, 0)
	require.NoError(t, err)
	require.Equal(t, []int64{3}, messages[0].ReadBy)
}

func TestListForPeerOrdersByRecentActivity(t *testing.T) {
	s := NewConversationStore()
	ctx := context.Background()

	older, err := s.CreateConversation(ctx, models.ConversationDirect, nil, []int64{1, 2})
	require.NoError(t, err)
	newer, err := s.CreateConversation(ctx, models.ConversationDirect, nil, []int64{1, 3})
	require.NoError(t, err)
	foreign, err := s.CreateConversation(ctx, models.ConversationDirect, nil, []int64{2, 3})
	require.NoError(t, err)

	_, err = s.AppendMessage(ctx, newer.ID, 3, "ping")
	require.NoError(t, err)
	_, err = s.AppendMessage(ctx, older.ID, 2, "pong")
	require.NoError(t, err)

	summaries, err := s.ListForPeer(ctx, 1)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	require.Equal(t, older.ID, summaries[0].ID)
	require.Equal(t, newer.ID, summaries[1].ID)
	for _, summary := range summaries {
		require.NotEqual(t, foreign.ID, summary.ID)
	}
}
