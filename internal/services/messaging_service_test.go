package services

import (
	"context"
	"errors"
	"testing"

	"github.com/Lwazi-M/studyconnect-2.0/internal/models"
	"github.com/Lwazi-M/studyconnect-2.0/internal/store"
	"github.com/Lwazi-M/studyconnect-2.0/internal/store/memory"
)

func newMessagingFixture(t *testing.T, names ...string) (*MessagingService, []int64) {
	t.Helper()

	directory := memory.NewPeerDirectory()
	ids := make([]int64, 0, len(names))
	for i, name := range names {
		peer, err := directory.UpsertPeer(context.Background(), store.UpsertPeerInput{
			Email:       name + "@uct.ac.za",
			DisplayName: name,
			University:  "UCT",
		})
		if err != nil {
			t.Fatalf("register peer %d: %v", i, err)
		}
		ids = append(ids, peer.ID)
	}

	return NewMessagingService(memory.NewConversationStore(), directory), ids
}

func TestCreateConversationIncludesActor(t *testing.T) {
	service, ids := newMessagingFixture(t, "nomsa", "khotso")

	conv, err := service.CreateConversation(context.Background(), ids[0], []int64{ids[1]}, nil)
	if err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}
	if !conv.HasParticipant(ids[0]) || !conv.HasParticipant(ids[1]) {
		t.Fatalf("expected both peers as participants, got %v", conv.ParticipantIDs)
	}
	if conv.Kind != models.ConversationDirect {
		t.Errorf("expected direct conversation, got %q", conv.Kind)
	}
}

func TestCreateConversationKindFollowsParticipantCount(t *testing.T) {
	service, ids := newMessagingFixture(t, "nomsa", "khotso", "thandi")

	title := "Study group"
	conv, err := service.CreateConversation(context.Background(), ids[0], ids[1:], &title)
	if err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}
	if conv.Kind != models.ConversationGroup {
		t.Errorf("expected group conversation, got %q", conv.Kind)
	}
	if conv.Title == nil || *conv.Title != "Study group" {
		t.Errorf("expected title to survive, got %v", conv.Title)
	}
}

func TestCreateConversationRejectsUnknownOrInactivePeers(t *testing.T) {
	service, ids := newMessagingFixture(t, "nomsa", "khotso")
	ctx := context.Background()

	if _, err := service.CreateConversation(ctx, ids[0], []int64{999}, nil); !errors.Is(err, ErrPeerNotFound) {
		t.Errorf("unknown peer: expected ErrPeerNotFound, got %v", err)
	}

	if _, err := service.CreateConversation(ctx, ids[0], nil, nil); !errors.Is(err, store.ErrInvalidParticipants) {
		t.Errorf("solo conversation: expected ErrInvalidParticipants, got %v", err)
	}
}

func TestListConversationsResolvesProfiles(t *testing.T) {
	service, ids := newMessagingFixture(t, "nomsa", "khotso", "thandi")
	ctx := context.Background()

	direct, err := service.CreateConversation(ctx, ids[0], []int64{ids[1]}, nil)
	if err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}
	title := "Finals prep"
	group, err := service.CreateConversation(ctx, ids[0], ids[1:], &title)
	if err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}

	summaries, err := service.ListConversations(ctx, ids[0])
	if err != nil {
		t.Fatalf("ListConversations failed: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(summaries))
	}

	for _, summary := range summaries {
		switch profile := summary.Profile.(type) {
		case models.PeerProfile:
			if summary.ID != direct.ID {
				t.Errorf("peer profile on conversation %d", summary.ID)
			}
			if profile.DisplayName != "khotso" {
				t.Errorf("expected the other peer's name, got %q", profile.DisplayName)
			}
		case models.GroupProfile:
			if summary.ID != group.ID {
				t.Errorf("group profile on conversation %d", summary.ID)
			}
			if profile.Title != "Finals prep" || profile.MemberCount != 3 {
				t.Errorf("unexpected group profile %+v", profile)
			}
		default:
			t.Errorf("conversation %d has no profile", summary.ID)
		}
	}
}

func TestSendMessageFansOutToOtherParticipants(t *testing.T) {
	service, ids := newMessagingFixture(t, "nomsa", "khotso", "thandi")
	ctx := context.Background()

	conv, err := service.CreateConversation(ctx, ids[0], ids[1:], nil)
	if err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}

	delivery, err := service.SendMessage(ctx, ids[0], conv.ID, "exam is moved to friday")
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if delivery.Message.Body != "exam is moved to friday" {
		t.Errorf("unexpected body %q", delivery.Message.Body)
	}
	if len(delivery.RecipientIDs) != 2 {
		t.Fatalf("expected 2 recipients, got %v", delivery.RecipientIDs)
	}
	for _, id := range delivery.RecipientIDs {
		if id == ids[0] {
			t.Errorf("sender must not be a recipient")
		}
	}
}

func TestSendMessageValidation(t *testing.T) {
	service, ids := newMessagingFixture(t, "nomsa", "khotso")
	ctx := context.Background()

	conv, err := service.CreateConversation(ctx, ids[0], []int64{ids[1]}, nil)
	if err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}

	if _, err := service.SendMessage(ctx, ids[0], conv.ID, "   "); !errors.Is(err, store.ErrEmptyBody) {
		t.Errorf("blank body: expected ErrEmptyBody, got %v", err)
	}
	if _, err := service.SendMessage(ctx, 999, conv.ID, "hi"); !errors.Is(err, store.ErrNotAParticipant) {
		t.Errorf("outsider: expected ErrNotAParticipant, got %v", err)
	}
	if _, err := service.SendMessage(ctx, ids[0], 404, "hi"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("missing conversation: expected ErrNotFound, got %v", err)
	}
}

func TestListMessagesRequiresMembership(t *testing.T) {
	service, ids := newMessagingFixture(t, "nomsa", "khotso", "thandi")
	ctx := context.Background()

	conv, err := service.CreateConversation(ctx, ids[0], []int64{ids[1]}, nil)
	if err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}
	if _, err := service.SendMessage(ctx, ids[0], conv.ID, "hello"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	messages, total, err := service.ListMessages(ctx, ids[1], conv.ID, 1, 10)
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if total != 1 || len(messages) != 1 {
		t.Fatalf("expected one message, got total=%d len=%d", total, len(messages))
	}

	if _, _, err := service.ListMessages(ctx, ids[2], conv.ID, 1, 10); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("outsider: expected ErrNotFound, got %v", err)
	}
}

func TestMarkReadClearsUnread(t *testing.T) {
	service, ids := newMessagingFixture(t, "nomsa", "khotso")
	ctx := context.Background()

	conv, err := service.CreateConversation(ctx, ids[0], []int64{ids[1]}, nil)
	if err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}
	delivery, err := service.SendMessage(ctx, ids[0], conv.ID, "see the new notes")
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	summaries, err := service.ListConversations(ctx, ids[1])
	if err != nil {
		t.Fatalf("ListConversations failed: %v", err)
	}
	if summaries[0].UnreadCount != 1 {
		t.Fatalf("expected unread count 1, got %d", summaries[0].UnreadCount)
	}

	if err := service.MarkRead(ctx, ids[1], conv.ID, delivery.Message.ID); err != nil {
		t.Fatalf("MarkRead failed: %v", err)
	}
	summaries, err = service.ListConversations(ctx, ids[1])
	if err != nil {
		t.Fatalf("ListConversations failed: %v", err)
	}
	if summaries[0].UnreadCount != 0 {
		t.Fatalf("expected unread count 0 after read, got %d", summaries[0].UnreadCount)
	}
}
