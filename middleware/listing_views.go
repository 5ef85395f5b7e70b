package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bazaarche/bazaarche/models"
)

const listingDetailPrefix = "/api/v1/listings/"

// ListingViewRecorder counts successful listing detail reads per day.
func ListingViewRecorder(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Request.Method != "GET" {
			return
		}
		status := c.Writer.Status()
		if status < 200 || status >= 400 {
			return
		}

		id, ok := listingIDFromPath(c.Request.URL.Path)
		if !ok {
			return
		}

		// Use local midnight to align with the DATE column.
		now := time.Now().In(time.Local)
		localMidnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

		// Atomic upsert to avoid duplicate key errors under concurrency.
		_ = db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "date"}, {Name: "listing_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"count": gorm.Expr("count + 1"), "updated_at": time.Now()}),
		}).Create(&models.ListingView{Date: localMidnight, ListingID: id, Count: 1}).Error
	}
}

// listingIDFromPath extracts the numeric id from /api/v1/listings/{id};
// deeper paths (sub-resources) are not counted as detail views.
func listingIDFromPath(path string) (uint, bool) {
	if !strings.HasPrefix(path, listingDetailPrefix) {
		return 0, false
	}
	rest := strings.TrimPrefix(path, listingDetailPrefix)
	if rest == "" || strings.Contains(rest, "/") {
		return 0, false
	}
	n, err := strconv.ParseUint(rest, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(n), true
}
