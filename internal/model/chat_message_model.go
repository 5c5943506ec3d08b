package model

import (
	"time"
)

type ChatMessage struct {
	Id        uint      `gorm:"primaryKey;autoIncrement"`
	UserId    string    `gorm:"type:varchar(256);not null;index"`
	Role      string    `gorm:"type:varchar(16);not null"`
	Content   string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}
