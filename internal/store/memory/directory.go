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

type PeerDirectory struct {
	mu      sync.RWMutex
	nextID  int64
	peers   map[int64]*models.Peer
	byEmail map[string]int64
}

func NewPeerDirectory() *PeerDirectory {
	return &PeerDirectory{
		peers:   make(map[int64]*models.Peer),
		byEmail: make(map[string]int64),
	}
}

func (d *PeerDirectory) UpsertPeer(
	_ context.Context,
	input store.UpsertPeerInput,
) (*models.Peer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now().UTC()
	email := strings.ToLower(strings.TrimSpace(input.Email))

	if input.ID == 0 {
		if _, taken := d.byEmail[email]; taken {
			return nil, store.ErrDuplicateID
		}
		d.nextID++
		peer := &models.Peer{
			ID:           d.nextID,
			Email:        email,
			PasswordHash: input.PasswordHash,
			DisplayName:  input.DisplayName,
			Initials:     input.Initials,
			AvatarColor:  input.AvatarColor,
			University:   input.University,
			Course:       input.Course,
			YearOfStudy:  input.YearOfStudy,
			LastSeenAt:   now,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		d.peers[peer.ID] = peer
		d.byEmail[email] = peer.ID
		out := *peer
		return &out, nil
	}

	peer, ok := d.peers[input.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	// ID, email and university are immutable once registered.
	if email != "" && email != peer.Email {
		return nil, store.ErrDuplicateID
	}
	if input.University != "" && !strings.EqualFold(input.University, peer.University) {
		return nil, store.ErrDuplicateID
	}

	if input.DisplayName != "" {
		peer.DisplayName = input.DisplayName
	}
	if input.Initials != "" {
		peer.Initials = input.Initials
	}
	if input.AvatarColor != "" {
		peer.AvatarColor = input.AvatarColor
	}
	if input.Course != "" {
		peer.Course = input.Course
	}
	if input.YearOfStudy > 0 {
		peer.YearOfStudy = input.YearOfStudy
	}
	peer.UpdatedAt = now

	out := *peer
	return &out, nil
}

func (d *PeerDirectory) GetByID(_ context.Context, peerID int64) (*models.Peer, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	peer, ok := d.peers[peerID]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := *peer
	return &out, nil
}

func (d *PeerDirectory) GetByEmail(_ context.Context, email string) (*models.Peer, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	id, ok := d.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := *d.peers[id]
	return &out, nil
}

func (d *PeerDirectory) SetOnline(_ context.Context, peerID int64, online bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	peer, ok := d.peers[peerID]
	if !ok {
		return store.ErrNotFound
	}
	peer.Online = online
	peer.LastSeenAt = time.Now().UTC()
	return nil
}

func (d *PeerDirectory) Deactivate(_ context.Context, peerID int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	peer, ok := d.peers[peerID]
	if !ok {
		return store.ErrNotFound
	}
	if peer.DeactivatedAt == nil {
		now := time.Now().UTC()
		peer.DeactivatedAt = &now
		peer.Online = false
	}
	return nil
}

func (d *PeerDirectory) ListActive(_ context.Context) ([]models.Peer, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	peers := make([]models.Peer, 0, len(d.peers))
	for _, peer := range d.peers {
		if peer.Active() {
			peers = append(peers, *peer)
		}
	}

	sort.SliceStable(peers, func(i, j int) bool {
		a, b := strings.ToLower(peers[i].DisplayName), strings.ToLower(peers[j].DisplayName)
		if a == b {
			return peers[i].ID < peers[j].ID
		}
		return a < b
	})
	return peers, nil
}
