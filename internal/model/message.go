package model

import (
	"time"

	"gorm.io/gorm"
)

// Message 求助下的聊天消息，只追加不修改
// swagger:model Message
type Message struct {
	ID        string       `gorm:"primaryKey;type:varchar(36)" json:"id"`
	RequestID string       `gorm:"index:idx_message_request_created;type:varchar(36);not null" json:"requestId"`
	Request   *HelpRequest `gorm:"foreignKey:RequestID" json:"-"`
	CreatedAt time.Time    `gorm:"index:idx_message_request_created" json:"createdAt"`
	SenderID  uint         `gorm:"index;not null" json:"senderId"`
	Sender    *User        `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	Text      string       `gorm:"type:text;not null" json:"text"`
}

func (Message) TableName() string {
	return "messages"
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = GenerateUUID()
	}
	return nil
}
