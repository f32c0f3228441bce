package store

import (
	"context"
	"errors"
	"time"

	"github.com/Lwazi-M/studyconnect-2.0/internal/models"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidParticipants = errors.New("conversation needs at least two unique participants")
	ErrNotAParticipant     = errors.New("sender is not a participant")
	ErrEmptyBody           = errors.New("message body is empty")
	ErrDuplicateID         = errors.New("peer id exists with conflicting immutable fields")
)

// ConversationStore owns conversations and their append-only message logs.
// Appends within one conversation are linearized by the implementation;
// messages are totally ordered by (created_at, id).
type ConversationStore interface {
	CreateConversation(ctx context.Context, kind string, title *string, participantIDs []int64) (*models.Conversation, error)
	GetForParticipant(ctx context.Context, conversationID, peerID int64) (*models.Conversation, error)
	AppendMessage(ctx context.Context, conversationID, senderID int64, body string) (*models.Message, error)
	ListMessages(ctx context.Context, conversationID int64, limit, offset int) ([]models.Message, int, error)
	// ListForPeer returns summaries ordered by last-message timestamp
	// descending, conversation id ascending on ties. Unread counts are
	// derived from read markers, never stored.
	ListForPeer(ctx context.Context, peerID int64) ([]models.ConversationSummary, error)
	// MarkRead moves the peer's read marker forward only; an attempt to
	// move it backward is a silent no-op.
	MarkRead(ctx context.Context, conversationID, peerID, uptoMessageID int64) error
}

type UpsertPeerInput struct {
	ID           int64
	Email        string
	PasswordHash string
	DisplayName  string
	Initials     string
	AvatarColor  string
	University   string
	Course       string
	YearOfStudy  int
}

// PeerDirectory tracks peer identities and presence. Peers are soft
// deactivated, never removed.
type PeerDirectory interface {
	// UpsertPeer creates the peer when input.ID is zero, otherwise updates
	// the mutable fields. ID and university are immutable; a conflicting
	// update fails with ErrDuplicateID.
	UpsertPeer(ctx context.Context, input UpsertPeerInput) (*models.Peer, error)
	GetByID(ctx context.Context, peerID int64) (*models.Peer, error)
	GetByEmail(ctx context.Context, email string) (*models.Peer, error)
	SetOnline(ctx context.Context, peerID int64, online bool) error
	Deactivate(ctx context.Context, peerID int64) error
	// ListActive returns all non-deactivated peers ordered by display name
	// ascending (case-insensitive), id ascending on ties.
	ListActive(ctx context.Context) ([]models.Peer, error)
}

type CreateResourceInput struct {
	Title      string
	Subject    string
	FileType   string
	SizeBytes  int64
	UploaderID int64
	FileURL    string
	ExpiresAt  *time.Time
}

type ResourceStore interface {
	Insert(ctx context.Context, input CreateResourceInput) (*models.Resource, error)
	GetByID(ctx context.Context, resourceID int64) (*models.Resource, error)
	// ListAll returns resources newest first (uploaded_at descending, id
	// descending on ties).
	ListAll(ctx context.Context) ([]models.Resource, error)
	Delete(ctx context.Context, resourceID int64) error
	// PurgeExpired removes every resource whose expiry is before now and
	// returns the removed resources. Safe to call concurrently with
	// inserts.
	PurgeExpired(ctx context.Context, now time.Time) ([]models.Resource, error)
}
