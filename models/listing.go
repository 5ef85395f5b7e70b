package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// Listing condition states.
const (
	StatusNew         = "new"
	StatusUsed        = "used"
	StatusNeedsRepair = "needs-repair"
)

// MaxListingImages caps how many photos a listing may reference at any time.
const MaxListingImages = 4

// Listing represents a classified ad created by a user. Image paths are kept
// as an ordered JSON array in the images column; ImageList carries the decoded
// form in API responses.
type Listing struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"index;not null" json:"user_id"`
	StoreID     *uint     `gorm:"index" json:"store_id"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	Price       float64   `gorm:"not null" json:"price"`
	Status      string    `gorm:"size:16;default:'used'" json:"status"`
	Category    string    `gorm:"size:64;index" json:"category"`
	City        string    `gorm:"size:64;index" json:"city"`
	Images      string    `gorm:"type:text" json:"-"`
	ImageList   []string  `gorm:"-" json:"images"`
	Version     int       `gorm:"not null;default:0" json:"version"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	User        User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"owner"`
}

// ValidStatus reports whether s is one of the recognized condition values.
func ValidStatus(s string) bool {
	return s == StatusNew || s == StatusUsed || s == StatusNeedsRepair
}

// AfterFind decodes the stored JSON column so API clients always see an
// array, never the raw string. A malformed column yields an empty list;
// callers that care about the mismatch can compare Images against ImageList.
func (l *Listing) AfterFind(tx *gorm.DB) error {
	l.ImageList = DecodeImageList(l.Images)
	return nil
}

// SetImageList serializes paths into the stored column and mirrors the
// decoded representation.
func (l *Listing) SetImageList(paths []string) {
	l.ImageList = paths
	l.Images = EncodeImageList(paths)
}

// DecodeImageList parses a stored JSON array of image paths. Empty or
// malformed input decodes to an empty slice.
func DecodeImageList(raw string) []string {
	if raw == "" {
		return []string{}
	}
	var paths []string
	if err := json.Unmarshal([]byte(raw), &paths); err != nil {
		return []string{}
	}
	if paths == nil {
		paths = []string{}
	}
	return paths
}

// EncodeImageList serializes image paths for the images column.
func EncodeImageList(paths []string) string {
	if paths == nil {
		paths = []string{}
	}
	b, err := json.Marshal(paths)
	if err != nil {
		return "[]"
	}
	return string(b)
}
