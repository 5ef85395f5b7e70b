package models

import "time"

// Rating is a 1-5 score a user leaves for a seller. One row per
// (rater, target) pair; re-rating updates the existing row.
type Rating struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	RaterID   uint      `gorm:"index:idx_ratings_pair,unique;not null" json:"rater_id"`
	TargetID  uint      `gorm:"index;index:idx_ratings_pair,unique;not null" json:"target_id"`
	Score     int       `gorm:"not null" json:"score"`
	Comment   string    `gorm:"size:512" json:"comment"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Rater     User      `gorm:"foreignKey:RaterID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"rater"`
}
