package message

import "time"

// Message represents the messages table
type Message struct {
	ID         int       `gorm:"primaryKey" json:"id"`
	SenderID   int       `gorm:"index;not null" json:"senderId"`
	ReceiverID int       `gorm:"index;not null" json:"receiverId"`
	Message    string    `gorm:"not null" json:"message"`
	CreatedAt  time.Time `json:"createdAt"`
}
