package handlers

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/taskvera/marketplace_be/internal/models"
)

type PaymentHandler struct {
	DB *gorm.DB
}

func NewPaymentHandler(db *gorm.DB) *PaymentHandler {
	return &PaymentHandler{DB: db}
}

// Checkout records the client's payment for a completed project. The
// payment itself is simulated; the ledger entry goes straight to
// completed. One completed payment per project.
func (h *PaymentHandler) Checkout(c *fiber.Ctx) error {
	uid, errResp := getAuth(c)
	if errResp != nil {
		return errResp
	}
	projectID := c.Params("id")

	var out models.Transaction
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		var p models.Project
		if err := lockForUpdate(tx).
			Where("id = ?", projectID).First(&p).Error; err != nil {
			return err
		}
		if p.ClientID != uid {
			return errNotOwner
		}
		if p.Status != models.ProjectStatusCompleted || p.FreelancerID == nil {
			return errInvalidState
		}

		var count int64
		if err := tx.Model(&models.Transaction{}).
			Where("project_id = ? AND type = ? AND status = ?",
				p.ID, models.TransactionTypeProjectPayment, models.TransactionStatusCompleted).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return errDuplicate
		}

		// amount: budget kalau ada, kalau tidak pakai bid yang diterima
		amount := 0.0
		if p.Budget != nil && *p.Budget > 0 {
			amount = *p.Budget
		} else {
			var bid models.Bid
			err := tx.Where("project_id = ? AND freelancer_id = ? AND status = ?",
				p.ID, *p.FreelancerID, models.BidStatusAccepted).First(&bid).Error
			if err == gorm.ErrRecordNotFound {
				return errInvalidState
			}
			if err != nil {
				return err
			}
			amount = bid.Amount
		}
		if amount <= 0 {
			return errInvalidState
		}

		clientID := p.ClientID
		out = models.Transaction{
			ProjectID:       &p.ID,
			PayerID:         &clientID,
			PayeeID:         *p.FreelancerID,
			Amount:          amount,
			Type:            models.TransactionTypeProjectPayment,
			Status:          models.TransactionStatusCompleted,
			TransactionDate: time.Now(),
		}
		return tx.Create(&out).Error
	})
	if err != nil {
		switch err {
		case gorm.ErrRecordNotFound:
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"success": false,
				"message": "Project tidak ditemukan",
			})
		case errNotOwner:
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"success": false,
				"message": "Project ini bukan milik Anda",
			})
		case errInvalidState:
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "Project belum bisa dibayar",
			})
		case errDuplicate:
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"success": false,
				"message": "Project ini sudah dibayar",
			})
		}
		log.Println("Error on checkout:", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Gagal memproses pembayaran",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Pembayaran berhasil dicatat",
		"data":    out,
	})
}

type WithdrawReq struct {
	Amount float64 `json:"amount"`
}

// Withdraw records a payout request. The platform is the payer, so
// payer_id stays null; the entry waits in pending.
func (h *PaymentHandler) Withdraw(c *fiber.Ctx) error {
	uid, errResp := getAuth(c)
	if errResp != nil {
		return errResp
	}

	var req WithdrawReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Request tidak valid",
		})
	}
	if req.Amount <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Jumlah penarikan harus lebih dari 0",
		})
	}

	tr := models.Transaction{
		PayeeID:         uid,
		Amount:          req.Amount,
		Type:            models.TransactionTypeWithdrawal,
		Status:          models.TransactionStatusPending,
		TransactionDate: time.Now(),
	}
	if err := h.DB.Create(&tr).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Gagal membuat penarikan",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Permintaan penarikan dicatat",
		"data":    tr,
	})
}

// History unions entries where the caller paid or was paid, newest
// first.
func (h *PaymentHandler) History(c *fiber.Ctx) error {
	uid, errResp := getAuth(c)
	if errResp != nil {
		return errResp
	}

	var txs []models.Transaction
	if err := h.DB.
		Where("payer_id = ? OR payee_id = ?", uid, uid).
		Order("transaction_date DESC").
		Find(&txs).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Gagal mengambil riwayat transaksi",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    txs,
	})
}
