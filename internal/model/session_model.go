package model

import (
	"time"

	"gorm.io/datatypes"
)

// ChatSession is the persisted form of a chat session. The conversation log
// and the research workflow are stored as JSON documents.
type ChatSession struct {
	Id        string         `gorm:"type:varchar(64);primaryKey"`
	Service   string         `gorm:"type:varchar(32);primaryKey"`
	Messages  datatypes.JSON `gorm:"not null"`
	Workflow  datatypes.JSON
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (ChatSession) TableName() string {
	return "chat_sessions"
}
