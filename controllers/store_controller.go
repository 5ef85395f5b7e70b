package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/bazaarche/bazaarche/models"
	"github.com/bazaarche/bazaarche/utils"
)

// StoreController manages seller store pages.
type StoreController struct {
	db *gorm.DB
}

// NewStoreController creates a new StoreController instance.
func NewStoreController(db *gorm.DB) *StoreController {
	return &StoreController{db: db}
}

type storeRequest struct {
	Name        string  `json:"name" binding:"required,min=1,max=128"`
	Description string  `json:"description"`
	Address     string  `json:"address"`
	City        string  `json:"city"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

// CreateStore opens a store for the authenticated user. One store per user.
func (s *StoreController) CreateStore(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var req storeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40040, "invalid request payload")
		return
	}

	name := utils.SanitizeStrict(strings.TrimSpace(req.Name))
	if name == "" {
		utils.Error(ctx, http.StatusBadRequest, 40041, "store name cannot be empty")
		return
	}

	var existing models.Store
	if err := s.db.Where("user_id = ?", userID).First(&existing).Error; err == nil {
		utils.Error(ctx, http.StatusConflict, 40940, "you already have a store")
		return
	}

	store := models.Store{
		UserID:      userID,
		Name:        name,
		Description: utils.Sanitize(req.Description),
		Address:     strings.TrimSpace(req.Address),
		City:        strings.TrimSpace(req.City),
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
	}

	if err := s.db.Create(&store).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to create store")
		return
	}

	utils.Success(ctx, gin.H{"store": store})
}

// UpdateStore edits the authenticated user's own store.
func (s *StoreController) UpdateStore(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var store models.Store
	if err := s.db.Where("user_id = ?", userID).First(&store).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40440, "store not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50041, "failed to load store")
		return
	}

	var req storeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40040, "invalid request payload")
		return
	}

	if name := utils.SanitizeStrict(strings.TrimSpace(req.Name)); name != "" {
		store.Name = name
	}
	if strings.TrimSpace(req.Description) != "" {
		store.Description = utils.Sanitize(req.Description)
	}
	if strings.TrimSpace(req.Address) != "" {
		store.Address = strings.TrimSpace(req.Address)
	}
	if strings.TrimSpace(req.City) != "" {
		store.City = strings.TrimSpace(req.City)
	}
	if req.Latitude != 0 || req.Longitude != 0 {
		store.Latitude = req.Latitude
		store.Longitude = req.Longitude
	}

	if err := s.db.Save(&store).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50042, "failed to update store")
		return
	}
	utils.InvalidateByPrefix("cache:store:detail:" + strconv.Itoa(int(store.ID)))

	utils.Success(ctx, gin.H{"store": store})
}

// MyStore returns the authenticated user's store.
func (s *StoreController) MyStore(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var store models.Store
	if err := s.db.Where("user_id = ?", userID).First(&store).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40440, "store not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50041, "failed to load store")
		return
	}

	utils.Success(ctx, gin.H{"store": store})
}

// GetStore returns a store page with its follower count (public).
func (s *StoreController) GetStore(ctx *gin.Context) {
	id := strings.TrimSpace(ctx.Param("id"))
	if _, err := parseID(id); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40042, "invalid store id")
		return
	}

	if b, ok := utils.CacheGetBytes("cache:store:detail:" + id); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	var store models.Store
	if err := s.db.Preload("User").First(&store, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40440, "store not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50041, "failed to load store")
		return
	}

	var followers int64
	if err := s.db.Model(&models.Follow{}).Where("store_id = ?", store.ID).Count(&followers).Error; err != nil {
		followers = 0
	}

	payload := gin.H{"store": store, "follower_count": followers}
	utils.CacheSetJSON("cache:store:detail:"+id, utils.JSONResponse{Success: true, Message: "success", Data: payload}, time.Hour)
	utils.Success(ctx, payload)
}

// ListStoreListings returns paginated listings belonging to a store (public).
func (s *StoreController) ListStoreListings(ctx *gin.Context) {
	id := strings.TrimSpace(ctx.Param("id"))
	if _, err := parseID(id); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40042, "invalid store id")
		return
	}
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	var listings []models.Listing
	var total int64
	q := s.db.Where("store_id = ?", id).Preload("User").Order("created_at DESC")
	if err := q.Model(&models.Listing{}).Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50043, "failed to count store listings")
		return
	}
	if err := q.Offset((page - 1) * pageSize).Limit(pageSize).Find(&listings).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50044, "failed to list store listings")
		return
	}

	utils.Success(ctx, gin.H{
		"items":      listings,
		"pagination": paginationMeta(page, pageSize, total),
	})
}
