package models

import "time"

// User is a registered account. Password holds the bcrypt hash and is never
// serialized.
type User struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	Name      string    `gorm:"not null" json:"name"`
	Picture   string    `json:"picture"`
	Password  string    `gorm:"not null" json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AIBot is a configured chat persona. SystemInstruction is derived from the
// description once at creation time and never changes afterwards.
type AIBot struct {
	ID                string    `gorm:"type:uuid;primaryKey" json:"id"`
	Name              string    `gorm:"not null" json:"name"`
	Description       string    `gorm:"not null" json:"description"`
	SystemInstruction string    `gorm:"not null" json:"-"`
	CreatorID         string    `gorm:"type:uuid;index;not null" json:"creatorId"`
	CreatedAt         time.Time `json:"createdAt"`
}

// Message is a persisted direct message. For bot conversations AIBotID is set
// and SenderID == ReceiverID (the initiating human); IsFromAI marks replies
// produced by the bot. The auto-increment ID doubles as the tie-breaker when
// two rows share a creation timestamp.
type Message struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Content    string    `gorm:"not null" json:"content"`
	SenderID   string    `gorm:"type:uuid;index;not null" json:"senderId"`
	ReceiverID string    `gorm:"type:uuid;index;not null" json:"receiverId"`
	AIBotID    *string   `gorm:"type:uuid;index" json:"aiBotId,omitempty"`
	IsFromAI   bool      `gorm:"not null;default:false" json:"isFromAI"`
	CreatedAt  time.Time `json:"createdAt"`
}
