package models

import "time"

const (
	NotificationCategoryApproval = "APPROVAL"
	NotificationCategoryTask     = "TASK"
)

type Notification struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	Title     string    `json:"title" db:"title"`
	Message   string    `json:"message" db:"message"`
	Category  string    `json:"category" db:"category"`
	EntityID  *int64    `json:"entity_id,omitempty" db:"entity_id"`
	IsRead    bool      `json:"is_read" db:"is_read"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
