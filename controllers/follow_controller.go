package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bazaarche/bazaarche/models"
	"github.com/bazaarche/bazaarche/utils"
)

// FollowController manages store follows.
type FollowController struct {
	db *gorm.DB
}

// NewFollowController creates a new FollowController instance.
func NewFollowController(db *gorm.DB) *FollowController {
	return &FollowController{db: db}
}

// FollowStore subscribes the authenticated user to a store. Following an
// already followed store is a no-op.
func (f *FollowController) FollowStore(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	storeID, err := parseID(ctx.Param("id"))
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40042, "invalid store id")
		return
	}

	var store models.Store
	if err := f.db.First(&store, storeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40440, "store not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50041, "failed to load store")
		return
	}
	if store.UserID == userID {
		utils.Error(ctx, http.StatusBadRequest, 40098, "you cannot follow your own store")
		return
	}

	follow := models.Follow{FollowerID: userID, StoreID: storeID}
	if err := f.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&follow).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50098, "failed to follow store")
		return
	}

	utils.InvalidateByPrefix("cache:store:detail:" + strconv.Itoa(int(storeID)))
	utils.Success(ctx, gin.H{"message": "following"})
}

// UnfollowStore removes the subscription. Unfollowing a store that was never
// followed is a no-op.
func (f *FollowController) UnfollowStore(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	storeID, err := parseID(ctx.Param("id"))
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40042, "invalid store id")
		return
	}

	if err := f.db.Where("follower_id = ? AND store_id = ?", userID, storeID).
		Delete(&models.Follow{}).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50099, "failed to unfollow store")
		return
	}

	utils.InvalidateByPrefix("cache:store:detail:" + strconv.Itoa(int(storeID)))
	utils.Success(ctx, gin.H{"message": "unfollowed"})
}

// ListFollowing returns the stores the authenticated user follows.
func (f *FollowController) ListFollowing(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	var follows []models.Follow
	var total int64
	q := f.db.Where("follower_id = ?", userID).Preload("Store").Order("created_at DESC")
	if err := q.Model(&models.Follow{}).Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50100, "failed to count follows")
		return
	}
	if err := q.Offset((page - 1) * pageSize).Limit(pageSize).Find(&follows).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50101, "failed to list follows")
		return
	}

	utils.Success(ctx, gin.H{
		"items":      follows,
		"pagination": paginationMeta(page, pageSize, total),
	})
}
