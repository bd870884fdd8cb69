package notification

import (
	"time"
)

type Notification struct {
	ID        string    `gorm:"column:id;primaryKey"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UserID    string    `gorm:"column:user_id;index"`
	Message   string    `gorm:"column:message"`
	IsRead    bool      `gorm:"column:is_read"`
}
