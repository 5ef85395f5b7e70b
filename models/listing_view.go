package models

import "time"

// ListingView stores aggregated detail-page view counts per day and listing.
type ListingView struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Date      time.Time `gorm:"index:idx_lv_date_listing,unique;type:date;not null" json:"date"`
	ListingID uint      `gorm:"index;index:idx_lv_date_listing,unique;not null" json:"listing_id"`
	Count     int64     `gorm:"not null;default:0" json:"count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
