package models

import "time"

// OrphanFile records an upload that is no longer referenced by any listing
// but could not be removed inline. A background sweeper retries the deletion.
type OrphanFile struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Path      string    `gorm:"size:1024;not null" json:"path"` // public path like /uploads/listings/...
	Attempts  int       `gorm:"not null;default:0" json:"attempts"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
