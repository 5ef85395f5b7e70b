package models

import "time"

// Follow links a user to a store they follow.
type Follow struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	FollowerID uint      `gorm:"index:idx_follows_pair,unique;not null" json:"follower_id"`
	StoreID    uint      `gorm:"index;index:idx_follows_pair,unique;not null" json:"store_id"`
	CreatedAt  time.Time `json:"created_at"`
	Store      Store     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"store"`
}
