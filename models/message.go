package models

import (
	"time"
)

// RequestMessage is one entry of the conversation attached to a service request
type RequestMessage struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)" bson:"_id" json:"id"`
	RequestID  string    `gorm:"type:varchar(36);not null;index" bson:"request_id" json:"requestId"`
	SenderID   string    `gorm:"type:varchar(36);not null;index" bson:"sender_id" json:"senderId"`
	SenderRole Role      `gorm:"type:varchar(20);not null" bson:"sender_role" json:"senderRole"`
	Text       string    `gorm:"type:text;not null" bson:"text" json:"text"`
	CreatedAt  time.Time `gorm:"index" bson:"created_at" json:"createdAt"`
}

// TableName specifies the table name for the RequestMessage model
func (RequestMessage) TableName() string {
	return "request_messages"
}
