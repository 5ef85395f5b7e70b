package models

import "time"

// Message is one entry in a buyer/seller conversation about a listing.
// A conversation is identified by (listing_id, buyer_id); the seller side is
// always the listing owner at send time.
type Message struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	ListingID   uint       `gorm:"index:idx_messages_thread;not null" json:"listing_id"`
	BuyerID     uint       `gorm:"index:idx_messages_thread;not null" json:"buyer_id"`
	SenderID    uint       `gorm:"index;not null" json:"sender_id"`
	RecipientID uint       `gorm:"index;not null" json:"recipient_id"`
	Body        string     `gorm:"type:text;not null" json:"body"`
	ReadAt      *time.Time `json:"read_at"`
	CreatedAt   time.Time  `json:"created_at"`
	Sender      User       `gorm:"foreignKey:SenderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"sender"`
}
