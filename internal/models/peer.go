package models

import "time"

type Peer struct {
	ID            int64      `json:"id"`
	Email         string     `json:"email"`
	PasswordHash  string     `json:"-"`
	DisplayName   string     `json:"display_name"`
	Initials      string     `json:"initials"`
	AvatarColor   string     `json:"avatar_color"`
	University    string     `json:"university"`
	Course        string     `json:"course"`
	YearOfStudy   int        `json:"year_of_study"`
	Online        bool       `json:"online"`
	LastSeenAt    time.Time  `json:"last_seen_at"`
	DeactivatedAt *time.Time `json:"deactivated_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Active reports whether the peer is still discoverable. Peers are never
// hard-deleted, only deactivated.
func (p *Peer) Active() bool {
	return p.DeactivatedAt == nil
}
