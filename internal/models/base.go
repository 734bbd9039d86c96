package models

import "time"

// BaseModel defines the common fields for all models.
// Rows are hard-deleted, so unique indexes only ever see live rows.
type BaseModel struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
