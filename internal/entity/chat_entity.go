package entity

import "time"

// UnreadCount keeps one slot per participant. The recipient's slot is
// incremented on send and reset when that participant lists messages.
type UnreadCount struct {
	Mentee int `bson:"mentee" json:"mentee"`
	Mentor int `bson:"mentor" json:"mentor"`
}

// Chat is the persistent mentee-mentor conversation container. At most one
// chat exists per (menteeId, mentorId) pair, enforced by a unique compound
// index.
type Chat struct {
	Id             string      `bson:"_id" json:"id"`
	MenteeId       string      `bson:"menteeId" json:"menteeId"`
	MentorId       string      `bson:"mentorId" json:"mentorId"`
	LastMessageId  string      `bson:"lastMessageId,omitempty" json:"lastMessageId,omitempty"`
	LastActivityAt time.Time   `bson:"lastActivityAt" json:"lastActivityAt"`
	UnreadCount    UnreadCount `bson:"unreadCount" json:"unreadCount"`
	IsActive       bool        `bson:"isActive" json:"isActive"`
	CreatedAt      time.Time   `bson:"createdAt" json:"createdAt"`
}

// IsParticipant reports whether userId is one of the two chat members.
func (c Chat) IsParticipant(userId string) bool {
	return userId == c.MenteeId || userId == c.MentorId
}

// Slot returns the unread-count slot name owned by userId, or "" when the
// user is not a participant.
func (c Chat) Slot(userId string) string {
	switch userId {
	case c.MenteeId:
		return "mentee"
	case c.MentorId:
		return "mentor"
	}
	return ""
}

// OtherParticipant returns the counterpart of userId in the chat.
func (c Chat) OtherParticipant(userId string) string {
	if userId == c.MenteeId {
		return c.MentorId
	}
	return c.MenteeId
}

// ChatSummary is a chat joined with the counterpart's profile for listings.
type ChatSummary struct {
	Chat    Chat  `json:"chat"`
	Partner *User `json:"partner,omitempty"`
}
