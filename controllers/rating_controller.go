package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bazaarche/bazaarche/models"
	"github.com/bazaarche/bazaarche/utils"
)

// RatingController manages seller ratings.
type RatingController struct {
	db *gorm.DB
}

// NewRatingController creates a new RatingController instance.
func NewRatingController(db *gorm.DB) *RatingController {
	return &RatingController{db: db}
}

// RateUser records or replaces the caller's rating for a seller. One row per
// (rater, target) pair; posting again overwrites score and comment.
func (r *RatingController) RateUser(ctx *gin.Context) {
	raterID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	targetID, err := parseID(ctx.Param("id"))
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40050, "invalid user id")
		return
	}
	if targetID == raterID {
		utils.Error(ctx, http.StatusBadRequest, 40095, "you cannot rate yourself")
		return
	}

	var req struct {
		Score   int    `json:"score" binding:"required"`
		Comment string `json:"comment"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40096, "invalid request payload")
		return
	}
	if req.Score < 1 || req.Score > 5 {
		utils.Error(ctx, http.StatusBadRequest, 40097, "score must be between 1 and 5")
		return
	}

	var target models.User
	if err := r.db.First(&target, targetID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40410, "user not found")
		return
	}

	comment := utils.Sanitize(strings.TrimSpace(req.Comment))
	if rs := []rune(comment); len(rs) > 512 {
		comment = string(rs[:512])
	}

	rating := models.Rating{
		RaterID:  raterID,
		TargetID: targetID,
		Score:    req.Score,
		Comment:  comment,
	}

	// Atomic upsert keyed on the (rater, target) unique index.
	if err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "rater_id"}, {Name: "target_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"score", "comment", "updated_at"}),
	}).Create(&rating).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50095, "failed to save rating")
		return
	}

	utils.InvalidateByPrefix("cache:user:public:" + strconv.Itoa(int(targetID)))
	utils.Success(ctx, gin.H{"rating": rating})
}

// ListUserRatings returns paginated ratings received by a user (public).
func (r *RatingController) ListUserRatings(ctx *gin.Context) {
	targetID := strings.TrimSpace(ctx.Param("id"))
	if _, err := parseID(targetID); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40050, "invalid user id")
		return
	}
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	var ratings []models.Rating
	var total int64
	q := r.db.Where("target_id = ?", targetID).Preload("Rater").Order("created_at DESC")
	if err := q.Model(&models.Rating{}).Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50096, "failed to count ratings")
		return
	}
	if err := q.Offset((page - 1) * pageSize).Limit(pageSize).Find(&ratings).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50097, "failed to list ratings")
		return
	}

	utils.Success(ctx, gin.H{
		"items":      ratings,
		"pagination": paginationMeta(page, pageSize, total),
	})
}
