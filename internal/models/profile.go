package models

// ConversationProfile is what a client renders in a conversation list entry.
// Direct conversations show the other peer, group conversations show the
// group itself; the two variants carry only their own fields.
type ConversationProfile interface {
	isConversationProfile()
}

type PeerProfile struct {
	PeerID      int64  `json:"peer_id"`
	DisplayName string `json:"display_name"`
	Initials    string `json:"initials"`
	AvatarColor string `json:"avatar_color"`
	Online      bool   `json:"online"`
}

type GroupProfile struct {
	Title       string `json:"title"`
	MemberCount int    `json:"member_count"`
}

func (PeerProfile) isConversationProfile()  {}
func (GroupProfile) isConversationProfile() {}
