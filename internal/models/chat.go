package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Chat is a conversation between two users, optionally tied to a project.
// Uniqueness per (participant pair, project context) is enforced by a
// lookup-before-create in the handler, the pair is unordered.
type Chat struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Participant1ID uuid.UUID  `gorm:"type:uuid;index;not null" json:"participant1_id"`
	Participant2ID uuid.UUID  `gorm:"type:uuid;index;not null" json:"participant2_id"`
	ProjectID      *uuid.UUID `gorm:"type:uuid;index" json:"project_context_id,omitempty"`

	LastMessageAt *time.Time `json:"last_message_timestamp,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	Participant1 *User    `gorm:"foreignKey:Participant1ID" json:"participant1,omitempty"`
	Participant2 *User    `gorm:"foreignKey:Participant2ID" json:"participant2,omitempty"`
	Project      *Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Messages     []Message `gorm:"foreignKey:ChatID" json:"messages,omitempty"`
}

func (ch *Chat) BeforeCreate(tx *gorm.DB) (err error) {
	if ch.ID == uuid.Nil {
		ch.ID = uuid.New()
	}
	return
}

// HasParticipant reports whether the user takes part in this chat.
func (ch *Chat) HasParticipant(userID uuid.UUID) bool {
	return ch.Participant1ID == userID || ch.Participant2ID == userID
}

type Message struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ChatID     uuid.UUID `gorm:"type:uuid;index;not null" json:"chat_id"`
	SenderID   uuid.UUID `gorm:"type:uuid;index;not null" json:"sender_id"`
	ReceiverID uuid.UUID `gorm:"type:uuid;index;not null" json:"receiver_id"`

	Content string     `gorm:"type:text;not null" json:"content"`
	IsRead  bool       `gorm:"default:false" json:"is_read"`
	ReadAt  *time.Time `json:"read_at,omitempty"`

	CreatedAt time.Time `json:"timestamp"`

	Sender *User `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return
}
