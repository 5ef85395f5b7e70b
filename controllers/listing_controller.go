package controllers

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/bazaarche/bazaarche/config"
	"github.com/bazaarche/bazaarche/middleware"
	"github.com/bazaarche/bazaarche/models"
	"github.com/bazaarche/bazaarche/utils"
)

// ListingController manages CRUD operations for listings, including the
// multipart image update pipeline.
type ListingController struct {
	db *gorm.DB
}

// NewListingController creates a new ListingController instance.
func NewListingController(db *gorm.DB) *ListingController {
	return &ListingController{db: db}
}

// CreateListing allows authenticated users to publish a new listing with up
// to four photos submitted as image_{n} multipart parts.
func (l *ListingController) CreateListing(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	form, err := ctx.MultipartForm()
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40080, "multipart form required")
		return
	}

	title, ok := formValue(form, "title")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40081, "title cannot be empty")
		return
	}
	title = utils.SanitizeStrict(title)
	if title == "" {
		utils.Error(ctx, http.StatusBadRequest, 40081, "title cannot be empty")
		return
	}

	priceStr, _ := formValue(form, "price")
	price, err := strconv.ParseFloat(priceStr, 64)
	if err != nil || price <= 0 {
		utils.Error(ctx, http.StatusBadRequest, 40082, "price must be a positive number")
		return
	}

	listing := models.Listing{
		UserID: userID,
		Title:  title,
		Price:  price,
		Status: models.StatusUsed,
	}
	if v, ok := formValue(form, "description"); ok {
		listing.Description = utils.Sanitize(v)
	}
	if v, ok := formValue(form, "status"); ok {
		if !models.ValidStatus(v) {
			utils.Error(ctx, http.StatusBadRequest, 40083, "invalid status")
			return
		}
		listing.Status = v
	}
	if v, ok := formValue(form, "category"); ok {
		listing.Category = v
	}
	if v, ok := formValue(form, "city"); ok {
		listing.City = v
	}
	if v, ok := formValue(form, "store_id"); ok {
		storeID, err := parseID(v)
		if err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40084, "invalid store id")
			return
		}
		var store models.Store
		if err := l.db.First(&store, storeID).Error; err != nil || store.UserID != userID {
			utils.Error(ctx, http.StatusForbidden, 40330, "you can only publish into your own store")
			return
		}
		listing.StoreID = &store.ID
	}

	uploaded, err := l.stageUploads(imageFileParts(form))
	if err != nil {
		respondUploadError(ctx, err)
		return
	}
	images, dropped := capImages(uploaded)
	discardUploads(dropped)
	listing.SetImageList(images)

	if err := l.db.Create(&listing).Error; err != nil {
		discardUploads(images)
		utils.Error(ctx, http.StatusInternalServerError, 50080, "failed to create listing")
		return
	}

	utils.InvalidateByPrefix("cache:listings:list:")
	utils.InvalidateByPrefix("cache:user:" + strconv.Itoa(int(userID)) + ":listings:")

	utils.Success(ctx, gin.H{"listing": listing})
}

// ListListings returns paginated listings including owner information.
func (l *ListingController) ListListings(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))
	search := strings.TrimSpace(ctx.Query("search"))
	category := strings.TrimSpace(ctx.Query("category"))
	city := strings.TrimSpace(ctx.Query("city"))
	status := strings.TrimSpace(ctx.Query("status"))

	// Cache browse pages when no search term to avoid cache key explosion.
	cacheKey := fmt.Sprintf("cache:listings:list:cat=%s:city=%s:status=%s:page=%d:size=%d", category, city, status, page, pageSize)
	if search == "" {
		if b, ok := utils.CacheGetBytes(cacheKey); ok {
			ctx.Data(200, "application/json", b)
			return
		}
	}

	var listings []models.Listing
	var total int64

	query := l.db.Preload("User").Order("created_at DESC")
	if search != "" {
		query = query.Where("title LIKE ? OR description LIKE ?", "%"+search+"%", "%"+search+"%")
	}
	if category != "" {
		query = query.Where("category = ?", category)
	}
	if city != "" {
		query = query.Where("city = ?", city)
	}
	if status != "" && models.ValidStatus(status) {
		query = query.Where("status = ?", status)
	}

	if err := query.Model(&models.Listing{}).Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50081, "failed to count listings")
		return
	}
	offset := (page - 1) * pageSize
	if err := query.Offset(offset).Limit(pageSize).Find(&listings).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50082, "failed to list listings")
		return
	}

	payload := gin.H{
		"items":      listings,
		"pagination": paginationMeta(page, pageSize, total),
	}
	if search == "" {
		utils.CacheSetJSON(cacheKey, utils.JSONResponse{Success: true, Message: "success", Data: payload}, time.Hour)
	}
	utils.Success(ctx, payload)
}

// GetListing returns a single listing. The images field is always a decoded
// array, never the raw stored JSON string.
func (l *ListingController) GetListing(ctx *gin.Context) {
	id := ctx.Param("id")
	if _, err := parseID(id); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40085, "invalid listing id")
		return
	}

	if b, ok := utils.CacheGetBytes("cache:listing:detail:" + id); ok {
		ctx.Data(200, "application/json", b)
		return
	}

	var listing models.Listing
	if err := l.db.Preload("User").First(&listing, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40430, "listing not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50083, "failed to load listing")
		return
	}
	if listing.Images != "" && len(listing.ImageList) == 0 {
		utils.Sugar.Warnf("listing %d has malformed images column", listing.ID)
	}

	payload := gin.H{"listing": listing}
	utils.CacheSetJSON("cache:listing:detail:"+id, utils.JSONResponse{Success: true, Message: "success", Data: payload}, time.Hour)
	utils.Success(ctx, payload)
}

// UpdateListing applies a multipart edit to a listing: decode the form into
// a typed intent, reconcile the stored image list against deletions and new
// uploads, persist via compare-and-swap on the version column, then clean up
// files no longer referenced.
func (l *ListingController) UpdateListing(ctx *gin.Context) {
	idStr := ctx.Param("id")
	id, err := parseID(idStr)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40085, "invalid listing id")
		return
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	form, err := ctx.MultipartForm()
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40080, "multipart form required")
		return
	}

	edit := parseListingEdit(form)
	if edit.DeleteMalformed {
		utils.Sugar.Warnf("listing %d update: malformed deleteImages field ignored", id)
	}
	if edit.Empty() {
		utils.Error(ctx, http.StatusBadRequest, 40086, "no field to update")
		return
	}

	var listing models.Listing
	if err := l.db.First(&listing, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40430, "listing not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50083, "failed to load listing")
		return
	}
	if listing.UserID != userID && !isAdmin(ctx) {
		utils.Error(ctx, http.StatusForbidden, 40331, "you can only update your own listings")
		return
	}

	// Stage new image files before touching the record. Staged files become
	// referenced only when the row update commits; until then they are plain
	// files we can discard.
	uploaded, err := l.stageUploads(edit.Files)
	if err != nil {
		respondUploadError(ctx, err)
		return
	}

	var original, final []string
	for attempt := 0; ; attempt++ {
		original = listing.ImageList
		var imagesChanged bool
		final, imagesChanged = finalImageSet(original, edit, uploaded)

		updates := map[string]interface{}{"version": listing.Version + 1}
		if edit.Title != nil {
			updates["title"] = utils.SanitizeStrict(*edit.Title)
		}
		if edit.Description != nil {
			updates["description"] = utils.Sanitize(*edit.Description)
		}
		if edit.Price != nil {
			updates["price"] = *edit.Price
		}
		if edit.Status != nil {
			updates["status"] = *edit.Status
		}
		if edit.Category != nil {
			updates["category"] = *edit.Category
		}
		if edit.City != nil {
			updates["city"] = *edit.City
		}
		if imagesChanged {
			updates["images"] = models.EncodeImageList(final)
		}

		res := l.db.Model(&models.Listing{}).
			Where("id = ? AND version = ?", listing.ID, listing.Version).
			Updates(updates)
		if res.Error != nil {
			discardUploads(uploaded)
			utils.Error(ctx, http.StatusInternalServerError, 50084, "failed to update listing")
			return
		}
		if res.RowsAffected > 0 {
			break
		}
		// Lost the compare-and-swap: re-read once and recompute against the
		// fresh image list, then give up with a conflict.
		if attempt >= 1 {
			discardUploads(uploaded)
			utils.Error(ctx, http.StatusConflict, 40980, "listing was modified concurrently")
			return
		}
		if err := l.db.First(&listing, id).Error; err != nil {
			discardUploads(uploaded)
			status, code, msg := retryReadFailure(err)
			utils.Error(ctx, status, code, msg)
			return
		}
	}

	// Best-effort cleanup after commit: anything previously stored or newly
	// staged that did not survive into the final list is now unreferenced.
	// Individual failures are logged and handed to the orphan sweeper; they
	// never fail the request.
	for _, path := range removedImagePaths(original, uploaded, final) {
		if err := utils.RemoveUpload(path); err != nil {
			utils.Sugar.Warnf("failed to remove image %s: %v", path, err)
			utils.RecordOrphan(path)
		}
	}

	utils.InvalidateByPrefix("cache:listings:list:")
	utils.InvalidateByPrefix("cache:listing:detail:" + idStr)
	utils.InvalidateByPrefix("cache:user:" + strconv.Itoa(int(listing.UserID)) + ":listings:")

	var updated models.Listing
	if err := l.db.Preload("User").First(&updated, id).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50083, "failed to load listing")
		return
	}
	utils.Success(ctx, gin.H{"listing": updated})
}

// DeleteListing allows the owner or an admin to delete a listing along with
// its stored images.
func (l *ListingController) DeleteListing(ctx *gin.Context) {
	idStr := ctx.Param("id")
	var listing models.Listing
	if err := l.db.First(&listing, idStr).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40430, "listing not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50083, "failed to load listing")
		return
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	if listing.UserID != userID && !isAdmin(ctx) {
		utils.Error(ctx, http.StatusForbidden, 40332, "you can only delete your own listings")
		return
	}

	if err := l.db.Delete(&listing).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50085, "failed to delete listing")
		return
	}

	for _, path := range listing.ImageList {
		if err := utils.RemoveUpload(path); err != nil {
			utils.Sugar.Warnf("failed to remove image %s: %v", path, err)
			utils.RecordOrphan(path)
		}
	}

	utils.InvalidateByPrefix("cache:listings:list:")
	utils.InvalidateByPrefix("cache:listing:detail:" + idStr)
	utils.InvalidateByPrefix("cache:user:" + strconv.Itoa(int(listing.UserID)) + ":listings:")

	utils.Success(ctx, gin.H{"message": "listing deleted"})
}

// ListMyListings returns listings created by the authenticated user.
func (l *ListingController) ListMyListings(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	l.listByUser(ctx, strconv.Itoa(int(userID)), false)
}

// ListUserListings returns listings created by a specific user (public).
func (l *ListingController) ListUserListings(ctx *gin.Context) {
	userID := strings.TrimSpace(ctx.Param("id"))
	if userID == "" {
		utils.Error(ctx, http.StatusBadRequest, 40087, "missing user id")
		return
	}
	l.listByUser(ctx, userID, true)
}

func (l *ListingController) listByUser(ctx *gin.Context, userID string, cached bool) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))
	cacheKey := fmt.Sprintf("cache:user:%s:listings:page=%d:size=%d", userID, page, pageSize)
	if cached {
		if b, ok := utils.CacheGetBytes(cacheKey); ok {
			ctx.Data(200, "application/json", b)
			return
		}
	}

	var listings []models.Listing
	var total int64
	q := l.db.Where("user_id = ?", userID).Preload("User").Order("created_at DESC")
	if err := q.Model(&models.Listing{}).Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50086, "failed to count user listings")
		return
	}
	if err := q.Offset((page - 1) * pageSize).Limit(pageSize).Find(&listings).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50087, "failed to list user listings")
		return
	}

	payload := gin.H{
		"items":      listings,
		"pagination": paginationMeta(page, pageSize, total),
	}
	if cached {
		utils.CacheSetJSON(cacheKey, utils.JSONResponse{Success: true, Message: "success", Data: payload}, time.Hour)
	}
	utils.Success(ctx, payload)
}

// finalImageSet applies the edit to the original image list. The second
// return value is false when the edit does not touch images at all.
func finalImageSet(original []string, edit *listingEdit, uploaded []string) ([]string, bool) {
	switch {
	case edit.HasReplaceImages:
		kept, dropped := capImages(edit.ReplaceImages)
		logDroppedImages(dropped)
		return kept, true
	case len(uploaded) > 0:
		kept, dropped := capImages(reconcileImages(original, edit.DeleteImages, uploaded))
		logDroppedImages(dropped)
		return kept, true
	case len(edit.DeleteImages) > 0:
		return reconcileImages(original, edit.DeleteImages, nil), true
	default:
		return original, false
	}
}

func logDroppedImages(dropped []string) {
	if len(dropped) > 0 {
		utils.Sugar.Warnf("image list capped at %d, dropped %d entries", models.MaxListingImages, len(dropped))
	}
}

// removedImagePaths lists every previously stored or newly staged path that
// does not appear in the final list.
func removedImagePaths(original, uploaded, final []string) []string {
	var removed []string
	for _, p := range original {
		if !utils.ContainsString(final, p) && !utils.ContainsString(removed, p) {
			removed = append(removed, p)
		}
	}
	for _, p := range uploaded {
		if !utils.ContainsString(final, p) && !utils.ContainsString(removed, p) {
			removed = append(removed, p)
		}
	}
	return removed
}

// stageUploads writes new image parts to the upload store, discarding
// anything already staged when one of them fails.
func (l *ListingController) stageUploads(files []*multipart.FileHeader) ([]string, error) {
	uploaded := make([]string, 0, len(files))
	for _, fh := range files {
		path, err := utils.SaveListingImage(fh)
		if err != nil {
			discardUploads(uploaded)
			return nil, err
		}
		uploaded = append(uploaded, path)
	}
	return uploaded, nil
}

func discardUploads(paths []string) {
	for _, p := range paths {
		if err := utils.RemoveUpload(p); err != nil {
			utils.Sugar.Warnf("failed to discard staged upload %s: %v", p, err)
		}
	}
}

// retryReadFailure maps a failed re-read after a lost compare-and-swap. A
// row that vanished was deleted concurrently and reads as not found; any
// other failure keeps the conflict semantics.
func retryReadFailure(err error) (status, code int, msg string) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return http.StatusNotFound, 40430, "listing not found"
	}
	return http.StatusConflict, 40980, "listing was modified concurrently"
}

func respondUploadError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, utils.ErrUnsupportedImage):
		utils.Error(ctx, http.StatusBadRequest, 40088, "only jpeg, png, gif and webp images are accepted")
	case errors.Is(err, utils.ErrImageTooLarge):
		utils.Error(ctx, http.StatusBadRequest, 40089, fmt.Sprintf("image exceeds %dMB limit", config.Get().UploadMaxImageMB))
	default:
		utils.Error(ctx, http.StatusInternalServerError, 50088, "failed to store image")
	}
}

func parseID(s string) (uint, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("invalid id: %q", s)
	}
	return uint(n), nil
}

func parsePagination(pageStr, sizeStr string) (int, int) {
	page := 1
	pageSize := 10
	if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
		page = p
	}
	if s, err := strconv.Atoi(sizeStr); err == nil && s > 0 && s <= 100 {
		pageSize = s
	}
	return page, pageSize
}

func paginationMeta(page, pageSize int, total int64) gin.H {
	return gin.H{
		"page":        page,
		"page_size":   pageSize,
		"total":       total,
		"total_pages": int((total + int64(pageSize) - 1) / int64(pageSize)),
	}
}

func getUserID(ctx *gin.Context) (uint, bool) {
	value, exists := ctx.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		return uint(v), true
	case int64:
		return uint(v), true
	case float64:
		return uint(v), true
	default:
		return 0, false
	}
}

func isAdmin(ctx *gin.Context) bool {
	unameVal, exists := ctx.Get(middleware.ContextUsernameKey)
	if !exists {
		return false
	}
	uname, _ := unameVal.(string)
	if uname == "" {
		return false
	}
	cfg := config.Get()
	for _, u := range cfg.AdminUsernames {
		if strings.EqualFold(strings.TrimSpace(u), uname) {
			return true
		}
	}
	return false
}
