package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Lwazi-M/studyconnect-2.0/internal/models"
	"github.com/Lwazi-M/studyconnect-2.0/internal/store"
)

type peerReader interface {
	GetByID(ctx context.Context, peerID int64) (*models.Peer, error)
}

type MessagingService struct {
	conversations store.ConversationStore
	directory     peerReader
}

// MessageDelivery carries an appended message plus the peers it should be
// fanned out to.
type MessageDelivery struct {
	Conversation *models.Conversation
	Message      *models.Message
	RecipientIDs []int64
}

func NewMessagingService(conversations store.ConversationStore, directory peerReader) *MessagingService {
	return &MessagingService{
		conversations: conversations,
		directory:     directory,
	}
}

func (s *MessagingService) ListConversations(
	ctx context.Context,
	actorID int64,
) ([]models.ConversationSummary, error) {
	if actorID <= 0 {
		return nil, ErrInvalidInput
	}

	summaries, err := s.conversations.ListForPeer(ctx, actorID)
	if err != nil {
		return nil, err
	}
	for i := range summaries {
		summaries[i].Profile = s.profileFor(ctx, actorID, &summaries[i].Conversation)
	}
	return summaries, nil
}

// profileFor resolves what the list entry shows: the other peer for a direct
// conversation, the group itself otherwise.
func (s *MessagingService) profileFor(
	ctx context.Context,
	actorID int64,
	conversation *models.Conversation,
) models.ConversationProfile {
	if conversation.Kind == models.ConversationGroup {
		title := ""
		if conversation.Title != nil {
			title = *conversation.Title
		}
		return models.GroupProfile{
			Title:       title,
			MemberCount: len(conversation.ParticipantIDs),
		}
	}

	for _, id := range conversation.ParticipantIDs {
		if id == actorID {
			continue
		}
		peer, err := s.directory.GetByID(ctx, id)
		if err != nil {
			return nil
		}
		return models.PeerProfile{
			PeerID:      peer.ID,
			DisplayName: peer.DisplayName,
			Initials:    peer.Initials,
			AvatarColor: peer.AvatarColor,
			Online:      peer.Online,
		}
	}
	return nil
}

func (s *MessagingService) CreateConversation(
	ctx context.Context,
	actorID int64,
	participantIDs []int64,
	title *string,
) (*models.Conversation, error) {
	if actorID <= 0 {
		return nil, ErrInvalidInput
	}

	unique := make(map[int64]struct{}, len(participantIDs)+1)
	unique[actorID] = struct{}{}
	ids := []int64{actorID}
	for _, id := range participantIDs {
		if id <= 0 {
			return nil, ErrInvalidInput
		}
		if _, seen := unique[id]; seen {
			continue
		}
		unique[id] = struct{}{}
		ids = append(ids, id)
	}
	if len(ids) < 2 {
		return nil, store.ErrInvalidParticipants
	}

	for _, id := range ids {
		if id == actorID {
			continue
		}
		peer, err := s.directory.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, ErrPeerNotFound
			}
			return nil, err
		}
		if !peer.Active() {
			return nil, ErrPeerNotFound
		}
	}

	kind := models.ConversationDirect
	if len(ids) > 2 {
		kind = models.ConversationGroup
	}
	if title != nil {
		trimmed := strings.TrimSpace(*title)
		if trimmed == "" {
			title = nil
		} else {
			title = &trimmed
		}
	}

	return s.conversations.CreateConversation(ctx, kind, title, ids)
}

func (s *MessagingService) ListMessages(
	ctx context.Context,
	actorID int64,
	conversationID int64,
	page int,
	limit int,
) ([]models.Message, int, error) {
	if actorID <= 0 || conversationID <= 0 || page <= 0 || limit <= 0 {
		return nil, 0, ErrInvalidInput
	}

	if _, err := s.conversations.GetForParticipant(ctx, conversationID, actorID); err != nil {
		return nil, 0, err
	}

	return s.conversations.ListMessages(ctx, conversationID, limit, (page-1)*limit)
}

func (s *MessagingService) SendMessage(
	ctx context.Context,
	actorID int64,
	conversationID int64,
	body string,
) (*MessageDelivery, error) {
	if actorID <= 0 || conversationID <= 0 {
		return nil, ErrInvalidInput
	}

	body = strings.TrimSpace(body)
	if body == "" {
		return nil, store.ErrEmptyBody
	}

	message, err := s.conversations.AppendMessage(ctx, conversationID, actorID, body)
	if err != nil {
		return nil, err
	}

	conversation, err := s.conversations.GetForParticipant(ctx, conversationID, actorID)
	if err != nil {
		return nil, err
	}

	recipients := make([]int64, 0, len(conversation.ParticipantIDs)-1)
	for _, id := range conversation.ParticipantIDs {
		if id != actorID {
			recipients = append(recipients, id)
		}
	}

	return &MessageDelivery{
		Conversation: conversation,
		Message:      message,
		RecipientIDs: recipients,
	}, nil
}

func (s *MessagingService) MarkRead(
	ctx context.Context,
	actorID int64,
	conversationID int64,
	uptoMessageID int64,
) error {
	if actorID <= 0 || conversationID <= 0 || uptoMessageID <= 0 {
		return ErrInvalidInput
	}
	return s.conversations.MarkRead(ctx, conversationID, actorID, uptoMessageID)
}

func FormatChatTimestamp(ts time.Time) string {
	return ts.UTC().Format(time.RFC3339)
}
