package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/bazaarche/bazaarche/models"
	"github.com/bazaarche/bazaarche/utils"
)

// MessageController handles buyer/seller conversations about listings.
type MessageController struct {
	db *gorm.DB
}

// NewMessageController creates a new MessageController instance.
func NewMessageController(db *gorm.DB) *MessageController {
	return &MessageController{db: db}
}

// SendMessage posts a message in the conversation about a listing. A buyer
// writes to the listing owner; the owner replies within an existing
// conversation by naming the buyer.
func (m *MessageController) SendMessage(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	listingID, err := parseID(ctx.Param("id"))
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40085, "invalid listing id")
		return
	}

	var req struct {
		Body    string `json:"body" binding:"required"`
		BuyerID uint   `json:"buyer_id"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40090, "invalid request payload")
		return
	}

	body := utils.Sanitize(req.Body)
	if body == "" {
		utils.Error(ctx, http.StatusBadRequest, 40091, "message body cannot be empty")
		return
	}

	var listing models.Listing
	if err := m.db.First(&listing, listingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40430, "listing not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50083, "failed to load listing")
		return
	}

	msg := models.Message{
		ListingID: listing.ID,
		SenderID:  userID,
		Body:      body,
	}
	if userID == listing.UserID {
		// Owner replying: the buyer side must already exist.
		if req.BuyerID == 0 || req.BuyerID == userID {
			utils.Error(ctx, http.StatusBadRequest, 40092, "missing buyer id")
			return
		}
		var count int64
		if err := m.db.Model(&models.Message{}).
			Where("listing_id = ? AND buyer_id = ?", listing.ID, req.BuyerID).
			Count(&count).Error; err != nil || count == 0 {
			utils.Error(ctx, http.StatusNotFound, 40450, "conversation not found")
			return
		}
		msg.BuyerID = req.BuyerID
		msg.RecipientID = req.BuyerID
	} else {
		msg.BuyerID = userID
		msg.RecipientID = listing.UserID
	}

	if err := m.db.Create(&msg).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50090, "failed to send message")
		return
	}

	if err := m.db.Preload("Sender").First(&msg, msg.ID).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50091, "failed to load message")
		return
	}

	utils.Success(ctx, gin.H{"message": msg})
}

// conversation is one inbox entry: a (listing, buyer) thread with its most
// recent message and the caller's unread count.
type conversation struct {
	ListingID    uint            `json:"listing_id"`
	ListingTitle string          `json:"listing_title"`
	BuyerID      uint            `json:"buyer_id"`
	LastMessage  *models.Message `json:"last_message"`
	Unread       int64           `json:"unread"`
}

// messageThread is one grouped row of the inbox query.
type messageThread struct {
	ListingID uint
	BuyerID   uint
	LastID    uint
}

// ListConversations returns the authenticated user's conversations, newest
// first, with the latest message and unread count per thread. Threads are
// grouped in SQL so message volume never truncates the inbox.
func (m *MessageController) ListConversations(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	participant := m.db.Model(&models.Message{}).
		Where("sender_id = ? OR recipient_id = ?", userID, userID)

	var total int64
	if err := participant.Session(&gorm.Session{}).
		Distinct("listing_id, buyer_id").Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50092, "failed to list conversations")
		return
	}

	var threads []messageThread
	if err := participant.Session(&gorm.Session{}).
		Select("listing_id, buyer_id, MAX(id) AS last_id").
		Group("listing_id, buyer_id").
		Order("last_id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Scan(&threads).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50092, "failed to list conversations")
		return
	}

	lastMessages := map[uint]*models.Message{}
	if len(threads) > 0 {
		lastIDs := make([]uint, 0, len(threads))
		for _, t := range threads {
			lastIDs = append(lastIDs, t.LastID)
		}
		var messages []models.Message
		if err := m.db.Preload("Sender").Find(&messages, lastIDs).Error; err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50092, "failed to list conversations")
			return
		}
		for i := range messages {
			lastMessages[messages[i].ID] = &messages[i]
		}
	}

	unread := map[[2]uint]int64{}
	var unreadRows []struct {
		ListingID uint
		BuyerID   uint
		Unread    int64
	}
	if err := m.db.Model(&models.Message{}).
		Select("listing_id, buyer_id, COUNT(*) AS unread").
		Where("recipient_id = ? AND read_at IS NULL", userID).
		Group("listing_id, buyer_id").
		Scan(&unreadRows).Error; err == nil {
		for _, row := range unreadRows {
			unread[[2]uint{row.ListingID, row.BuyerID}] = row.Unread
		}
	}

	items := assembleConversations(threads, lastMessages, unread)

	// One batched lookup for the listing titles shown in the inbox.
	var listingIDs []uint
	for _, t := range threads {
		listingIDs = append(listingIDs, t.ListingID)
	}
	if ids := utils.UniqueUint(listingIDs); len(ids) > 0 {
		var listings []models.Listing
		if err := m.db.Select("id", "title").Find(&listings, ids).Error; err == nil {
			titles := make(map[uint]string, len(listings))
			for _, l := range listings {
				titles[l.ID] = l.Title
			}
			for _, conv := range items {
				conv.ListingTitle = titles[conv.ListingID]
			}
		}
	}

	utils.Success(ctx, gin.H{
		"items":      items,
		"pagination": paginationMeta(page, pageSize, total),
	})
}

// assembleConversations joins grouped thread rows with their latest messages
// and unread counts, preserving the query's newest-first order.
func assembleConversations(threads []messageThread, last map[uint]*models.Message, unread map[[2]uint]int64) []*conversation {
	items := make([]*conversation, 0, len(threads))
	for _, t := range threads {
		items = append(items, &conversation{
			ListingID:   t.ListingID,
			BuyerID:     t.BuyerID,
			LastMessage: last[t.LastID],
			Unread:      unread[[2]uint{t.ListingID, t.BuyerID}],
		})
	}
	return items
}

// ListThread returns all messages of one conversation and marks the
// caller's incoming messages as read.
func (m *MessageController) ListThread(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	listingID, err := parseID(ctx.Param("id"))
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40085, "invalid listing id")
		return
	}
	buyerID, err := parseID(ctx.Param("buyerId"))
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40093, "invalid buyer id")
		return
	}

	var listing models.Listing
	if err := m.db.First(&listing, listingID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40430, "listing not found")
		return
	}
	// Only the two participants may read the thread.
	if userID != buyerID && userID != listing.UserID {
		utils.Error(ctx, http.StatusForbidden, 40390, "not a participant in this conversation")
		return
	}

	var messages []models.Message
	if err := m.db.
		Where("listing_id = ? AND buyer_id = ?", listingID, buyerID).
		Order("created_at ASC").
		Preload("Sender").
		Find(&messages).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50093, "failed to load messages")
		return
	}

	now := time.Now()
	_ = m.db.Model(&models.Message{}).
		Where("listing_id = ? AND buyer_id = ? AND recipient_id = ? AND read_at IS NULL", listingID, buyerID, userID).
		Update("read_at", now).Error

	utils.Success(ctx, gin.H{"items": messages})
}

// UnreadCount returns how many messages await the authenticated user.
func (m *MessageController) UnreadCount(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var count int64
	if err := m.db.Model(&models.Message{}).
		Where("recipient_id = ? AND read_at IS NULL", userID).
		Count(&count).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50094, "failed to count unread messages")
		return
	}

	utils.Success(ctx, gin.H{"unread": count})
}
