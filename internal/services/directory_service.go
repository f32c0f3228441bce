package services

import (
	"context"
	"strings"

	"github.com/Lwazi-M/studyconnect-2.0/internal/models"
	"github.com/Lwazi-M/studyconnect-2.0/internal/search"
	"github.com/Lwazi-M/studyconnect-2.0/internal/store"
)

// PeerSearchFilter narrows a peer search; zero values match everything.
type PeerSearchFilter struct {
	University  string
	Course      string
	YearOfStudy int
}

type UpdatePeerInput struct {
	DisplayName string
	AvatarColor string
	Course      string
	YearOfStudy int
}

type DirectoryService struct {
	directory store.PeerDirectory
}

func NewDirectoryService(directory store.PeerDirectory) *DirectoryService {
	return &DirectoryService{directory: directory}
}

func (s *DirectoryService) GetPeer(ctx context.Context, peerID int64) (*models.Peer, error) {
	if peerID <= 0 {
		return nil, ErrInvalidInput
	}
	return s.directory.GetByID(ctx, peerID)
}

func (s *DirectoryService) UpdateProfile(
	ctx context.Context,
	peerID int64,
	input UpdatePeerInput,
) (*models.Peer, error) {
	if peerID <= 0 {
		return nil, ErrInvalidInput
	}

	displayName := strings.TrimSpace(input.DisplayName)
	upsert := store.UpsertPeerInput{
		ID:          peerID,
		DisplayName: displayName,
		AvatarColor: strings.TrimSpace(input.AvatarColor),
		Course:      strings.TrimSpace(input.Course),
		YearOfStudy: input.YearOfStudy,
	}
	if displayName != "" {
		upsert.Initials = PeerInitials(displayName)
	}
	return s.directory.UpsertPeer(ctx, upsert)
}

// SetPresence is idempotent; flipping a peer to the state it is already in
// just refreshes the last-seen timestamp.
func (s *DirectoryService) SetPresence(ctx context.Context, peerID int64, online bool) error {
	if peerID <= 0 {
		return ErrInvalidInput
	}
	return s.directory.SetOnline(ctx, peerID, online)
}

func (s *DirectoryService) Deactivate(ctx context.Context, peerID int64) error {
	if peerID <= 0 {
		return ErrInvalidInput
	}
	return s.directory.Deactivate(ctx, peerID)
}

// SearchPeers matches the query as a case-insensitive substring of the
// display name and every supplied filter attribute exactly. Results keep the
// directory's name-ascending order.
func (s *DirectoryService) SearchPeers(
	ctx context.Context,
	query string,
	filter PeerSearchFilter,
) ([]models.Peer, error) {
	peers, err := s.directory.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	return search.Filter(peers,
		search.Text(query, func(peer models.Peer) []string {
			return []string{peer.DisplayName}
		}),
		search.Attr(filter.University, func(peer models.Peer) string { return peer.University }),
		search.Attr(filter.Course, func(peer models.Peer) string { return peer.Course }),
		search.AttrInt(filter.YearOfStudy, func(peer models.Peer) int { return peer.YearOfStudy }),
	), nil
}

// PeerInitials derives the avatar initials shown next to a display name.
func PeerInitials(displayName string) string {
	parts := strings.Fields(displayName)
	if len(parts) == 0 {
		return ""
	}

	initials := strings.Builder{}
	for _, part := range parts[:min(len(parts), 2)] {
		runes := []rune(part)
		initials.WriteString(strings.ToUpper(string(runes[0])))
	}
	return initials.String()
}

// AvatarPalette is the set of color tags handed out round-robin at
// registration.
var AvatarPalette = []string{"teal", "violet", "amber", "rose", "indigo", "lime"}

func PickAvatarColor(seed int64) string {
	if seed < 0 {
		seed = -seed
	}
	return AvatarPalette[seed%int64(len(AvatarPalette))]
}
