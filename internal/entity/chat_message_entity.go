package entity

import (
	"time"
)

type ChatMessage struct {
	Id        uint
	UserId    string
	Role      string
	Content   string
	CreatedAt time.Time
}
