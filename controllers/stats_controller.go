package controllers

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/bazaarche/bazaarche/models"
	"github.com/bazaarche/bazaarche/utils"
)

// StatsController provides marketplace statistics such as counts and views.
type StatsController struct {
	db *gorm.DB
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(db *gorm.DB) *StatsController {
	return &StatsController{db: db}
}

// GetStats returns aggregate statistics for the marketplace.
func (s *StatsController) GetStats(ctx *gin.Context) {
	var userCount int64
	var listingCount int64
	var storeCount int64
	var viewsToday int64

	// Fall back to 0 per metric instead of failing the whole endpoint.
	if err := s.db.Model(&models.User{}).Count(&userCount).Error; err != nil {
		userCount = 0
	}
	if err := s.db.Model(&models.Listing{}).Count(&listingCount).Error; err != nil {
		listingCount = 0
	}
	if err := s.db.Model(&models.Store{}).Count(&storeCount).Error; err != nil {
		storeCount = 0
	}

	// String date equality avoids timezone/type mismatches with the DATE column.
	today := time.Now().In(time.Local).Format("2006-01-02")
	if err := s.db.Model(&models.ListingView{}).
		Where("date = ?", today).
		Select("COALESCE(SUM(count),0)").
		Scan(&viewsToday).Error; err != nil {
		viewsToday = 0
	}

	utils.Success(ctx, gin.H{
		"user_count":    userCount,
		"listing_count": listingCount,
		"store_count":   storeCount,
		"views_today":   viewsToday,
	})
}

// GetListingStats returns total detail views for a given listing id.
func (s *StatsController) GetListingStats(ctx *gin.Context) {
	id := ctx.Param("id")

	var views int64
	if err := s.db.Model(&models.ListingView{}).
		Where("listing_id = ?", id).
		Select("COALESCE(SUM(count),0)").
		Scan(&views).Error; err != nil {
		views = 0
	}

	utils.Success(ctx, gin.H{"views": views})
}
