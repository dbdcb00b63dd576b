package handlers

import (
	"log"
	"math"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/taskvera/marketplace_be/internal/models"
)

type FreelancerDashboardHandler struct {
	DB *gorm.DB
}

func NewFreelancerDashboardHandler(db *gorm.DB) *FreelancerDashboardHandler {
	return &FreelancerDashboardHandler{DB: db}
}

func (h *FreelancerDashboardHandler) Routes(r fiber.Router, authMiddleware ...fiber.Handler) {
	g := r.Group("/freelancer", authMiddleware...)
	g.Get("/dashboard/stats", h.GetDashboardStats)
	g.Get("/earnings", h.GetEarnings)
}

// GetDashboardStats returns the summary numbers for the dashboard.
func (h *FreelancerDashboardHandler) GetDashboardStats(c *fiber.Ctx) error {
	userID, err := getAuth(c)
	if err != nil {
		return err
	}

	// 1. Pending bids
	var activeBids int64
	if err := h.DB.Model(&models.Bid{}).
		Where("freelancer_id = ?", userID).
		Where("status = ?", models.BidStatusPending).
		Count(&activeBids).Error; err != nil {
		log.Printf("[DashboardStats] Error counting active bids for user %v: %v", userID, err)
	}

	// 2. Active contracts
	var activeContracts int64
	h.DB.Model(&models.Contract{}).
		Where("freelancer_id = ?", userID).
		Where("status = ?", models.ContractStatusActive).
		Count(&activeContracts)

	// 3. Unread chats
	var unreadChats int64
	h.DB.Table("messages").
		Joins("JOIN chats ON messages.chat_id = chats.id").
		Where("chats.participant1_id = ? OR chats.participant2_id = ?", userID, userID).
		Where("messages.sender_id != ?", userID).
		Where("messages.is_read = ?", false).
		Count(&unreadChats)

	// 4. Earnings (completed payments where I am the payee)
	var totalEarnings float64
	h.DB.Model(&models.Transaction{}).
		Where("payee_id = ?", userID).
		Where("type = ? AND status = ?", models.TransactionTypeProjectPayment, models.TransactionStatusCompleted).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&totalEarnings)

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"active_bids":      activeBids,
			"active_contracts": activeContracts,
			"unread_chats":     unreadChats,
			"total_earnings":   totalEarnings,
		},
	})
}

// GetEarnings returns the freelancer's incoming transactions, paginated.
func (h *FreelancerDashboardHandler) GetEarnings(c *fiber.Ctx) error {
	userID, err := getAuth(c)
	if err != nil {
		return err
	}

	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 20)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := (page - 1) * limit

	q := h.DB.Model(&models.Transaction{}).
		Where("payee_id = ?", userID)

	var total int64
	q.Count(&total)

	var history []models.Transaction
	if err := q.Order("transaction_date DESC").
		Limit(limit).
		Offset(offset).
		Find(&history).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to fetch earnings history",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    history,
		"meta": fiber.Map{
			"page":        page,
			"limit":       limit,
			"total_items": total,
			"total_pages": int(math.Ceil(float64(total) / float64(limit))),
		},
	})
}
