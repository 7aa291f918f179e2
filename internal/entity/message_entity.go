package entity

import (
	"strings"
	"time"
)

const (
	MessageTypeText  = "text"
	MessageTypeFile  = "file"
	MessageTypeImage = "image"

	// MaxContentLength bounds the text body of a single message.
	MaxContentLength = 2000

	// DeletedContent replaces the body of a tombstoned message. The record
	// stays in the chat history; only the text is rewritten.
	DeletedContent = "This message was deleted"
)

// Attachment is the normalized descriptor of a stored upload carried on a
// non-text message.
type Attachment struct {
	Filename     string `bson:"filename" json:"filename"`
	OriginalName string `bson:"originalName" json:"originalName"`
	Url          string `bson:"url" json:"url"`
	Size         int64  `bson:"size" json:"size"`
	Mimetype     string `bson:"mimetype" json:"mimetype"`
}

// ReadReceipt records that a participant has seen a message. A userId
// appears at most once in a message's readBy set.
type ReadReceipt struct {
	UserId string    `bson:"userId" json:"userId"`
	ReadAt time.Time `bson:"readAt" json:"readAt"`
}

// Reaction is one (user, emoji) entry. Re-submitting the same pair removes
// it instead of duplicating.
type Reaction struct {
	UserId    string    `bson:"userId" json:"userId"`
	Emoji     string    `bson:"emoji" json:"emoji"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

type Message struct {
	Id          string        `bson:"_id" json:"id"`
	ChatId      string        `bson:"chatId" json:"chatId"`
	SenderId    string        `bson:"senderId" json:"senderId"`
	Content     string        `bson:"content" json:"content"`
	MessageType string        `bson:"messageType" json:"messageType"`
	Attachment  *Attachment   `bson:"attachment,omitempty" json:"attachment,omitempty"`
	ReadBy      []ReadReceipt `bson:"readBy" json:"readBy"`
	Reactions   []Reaction    `bson:"reactions" json:"reactions"`
	IsEdited    bool          `bson:"isEdited" json:"isEdited"`
	EditedAt    *time.Time    `bson:"editedAt,omitempty" json:"editedAt,omitempty"`
	IsDeleted   bool          `bson:"isDeleted" json:"isDeleted"`
	DeletedAt   *time.Time    `bson:"deletedAt,omitempty" json:"deletedAt,omitempty"`
	CreatedAt   time.Time     `bson:"createdAt" json:"createdAt"`
}

// MessageTypeFor derives the message type from an optional attachment.
func MessageTypeFor(att *Attachment) string {
	if att == nil {
		return MessageTypeText
	}
	if strings.HasPrefix(att.Mimetype, "image/") {
		return MessageTypeImage
	}
	return MessageTypeFile
}

// HasRead reports whether userId is already in the readBy set.
func (m Message) HasRead(userId string) bool {
	for _, r := range m.ReadBy {
		if r.UserId == userId {
			return true
		}
	}
	return false
}

// HasReaction reports whether the (userId, emoji) pair is currently set.
func (m Message) HasReaction(userId, emoji string) bool {
	for _, r := range m.Reactions {
		if r.UserId == userId && r.Emoji == emoji {
			return true
		}
	}
	return false
}
