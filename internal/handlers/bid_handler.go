package handlers

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/taskvera/marketplace_be/internal/models"
)

type BidHandler struct {
	DB *gorm.DB
}

func NewBidHandler(db *gorm.DB) *BidHandler {
	return &BidHandler{DB: db}
}

type SubmitBidReq struct {
	Amount                  float64 `json:"amount"`
	Proposal                string  `json:"proposal"`
	EstimatedCompletionTime string  `json:"estimated_completion_time"`
}

func (h *BidHandler) SubmitBid(c *fiber.Ctx) error {
	uid, errResp := getAuth(c)
	if errResp != nil {
		return errResp
	}
	projectID := c.Params("id")

	var req SubmitBidReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Request tidak valid",
		})
	}

	fe := FieldErrors{}
	if req.Amount <= 0 {
		fe.Add("amount", "Jumlah bid harus lebih dari 0")
	}
	if strings.TrimSpace(req.Proposal) == "" {
		fe.Add("proposal", "Proposal wajib diisi")
	}
	if len(fe) > 0 {
		return validationFail(c, fe)
	}

	var out models.Bid
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		var p models.Project
		if err := tx.Where("id = ?", projectID).First(&p).Error; err != nil {
			return err
		}
		if p.Status != models.ProjectStatusOpen {
			return errInvalidState
		}
		if p.ClientID == uid {
			return errNotOwner
		}

		// at most one live bid per freelancer per project
		var count int64
		if err := tx.Model(&models.Bid{}).
			Where("project_id = ? AND freelancer_id = ? AND status <> ?",
				p.ID, uid, models.BidStatusWithdrawn).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return errDuplicate
		}

		out = models.Bid{
			ProjectID:               p.ID,
			FreelancerID:            uid,
			Amount:                  req.Amount,
			Proposal:                strings.TrimSpace(req.Proposal),
			EstimatedCompletionTime: strings.TrimSpace(req.EstimatedCompletionTime),
			Status:                  models.BidStatusPending,
			Version:                 1,
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
		case errInvalidState:
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "Project sudah tidak menerima bid",
			})
		case errNotOwner:
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "Tidak bisa bid pada project sendiri",
			})
		case errDuplicate:
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"success": false,
				"message": "Anda sudah mengajukan bid untuk project ini",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Gagal mengajukan bid",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Bid berhasil diajukan",
		"data":    out,
	})
}

// ListProjectBids is for the project owner only.
func (h *BidHandler) ListProjectBids(c *fiber.Ctx) error {
	uid, errResp := getAuth(c)
	if errResp != nil {
		return errResp
	}
	projectID := c.Params("id")

	var p models.Project
	if err := h.DB.Where("id = ?", projectID).First(&p).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"success": false,
				"message": "Project tidak ditemukan",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Gagal mengambil project",
		})
	}
	if p.ClientID != uid {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"message": "Project ini bukan milik Anda",
		})
	}

	var bids []models.Bid
	if err := h.DB.
		Where("project_id = ?", p.ID).
		Order("created_at DESC").
		Find(&bids).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Gagal mengambil bid",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    bids,
	})
}

func (h *BidHandler) GetBid(c *fiber.Ctx) error {
	uid, errResp := getAuth(c)
	if errResp != nil {
		return errResp
	}
	id := c.Params("id")

	var b models.Bid
	if err := h.DB.Preload("Project").Where("id = ?", id).First(&b).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"success": false,
				"message": "Bid tidak ditemukan",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Gagal mengambil bid",
		})
	}

	if b.FreelancerID != uid && (b.Project == nil || b.Project.ClientID != uid) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"message": "Anda tidak punya akses ke bid ini",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    b,
	})
}

// UpdateBidReq: the only status change a freelancer may request here is
// a withdrawal; accept/reject happen through the owner's accept endpoint.
type UpdateBidReq struct {
	Amount                  *float64 `json:"amount"`
	Proposal                *string  `json:"proposal"`
	EstimatedCompletionTime *string  `json:"estimated_completion_time"`
	Status                  *string  `json:"status"`
	Version                 *int     `json:"version"`
}

func (h *BidHandler) UpdateBid(c *fiber.Ctx) error {
	uid, errResp := getAuth(c)
	if errResp != nil {
		return errResp
	}
	id := c.Params("id")

	var req UpdateBidReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Request tidak valid",
		})
	}

	if req.Status != nil && models.BidStatus(*req.Status) != models.BidStatusWithdrawn {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Status bid hanya bisa diubah menjadi withdrawn",
		})
	}

	var out models.Bid
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		var b models.Bid
		if err := lockForUpdate(tx).
			Where("id = ?", id).First(&b).Error; err != nil {
			return err
		}
		if b.FreelancerID != uid {
			return errNotOwner
		}
		if b.Status != models.BidStatusPending {
			return errInvalidState
		}
		if req.Version != nil && *req.Version != b.Version {
			return errVersionConflict
		}

		var p models.Project
		if err := tx.Where("id = ?", b.ProjectID).First(&p).Error; err != nil {
			return err
		}
		if p.Status != models.ProjectStatusOpen {
			return errInvalidState
		}

		updates := map[string]interface{}{}
		if req.Amount != nil {
			if *req.Amount <= 0 {
				return errInvalidState
			}
			updates["amount"] = *req.Amount
		}
		if req.Proposal != nil {
			updates["proposal"] = strings.TrimSpace(*req.Proposal)
		}
		if req.EstimatedCompletionTime != nil {
			updates["estimated_completion_time"] = strings.TrimSpace(*req.EstimatedCompletionTime)
		}
		if req.Status != nil {
			updates["status"] = models.BidStatusWithdrawn
		}

		if len(updates) > 0 {
			updates["version"] = b.Version + 1
			if err := tx.Model(&b).Updates(updates).Error; err != nil {
				return err
			}
		}

		out = b
		return nil
	})
	if err != nil {
		switch err {
		case gorm.ErrRecordNotFound:
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"success": false,
				"message": "Bid tidak ditemukan",
			})
		case errNotOwner:
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"success": false,
				"message": "Bid ini bukan milik Anda",
			})
		case errVersionConflict:
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"success": false,
				"message": "Bid sudah berubah, muat ulang lalu coba lagi",
			})
		case errInvalidState:
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "Bid sudah tidak bisa diubah",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Gagal memperbarui bid",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Bid berhasil diperbarui",
		"data":    out,
	})
}

// AcceptBid runs the whole acceptance as one transaction: the bid is
// accepted, siblings rejected, the project assigned and moved to
// in_progress, and the contract created. Either all of it commits or
// none of it does.
func (h *BidHandler) AcceptBid(c *fiber.Ctx) error {
	uid, errResp := getAuth(c)
	if errResp != nil {
		return errResp
	}
	projectID := c.Params("id")
	bidID := c.Params("bidId")

	var (
		outBid      models.Bid
		outProject  models.Project
		outContract models.Contract
	)

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		var p models.Project
		if err := lockForUpdate(tx).
			Where("id = ?", projectID).First(&p).Error; err != nil {
			return err
		}
		if p.ClientID != uid {
			return errNotOwner
		}
		if !p.Status.CanTransitionTo(models.ProjectStatusInProgress) {
			return errInvalidState
		}

		var b models.Bid
		if err := lockForUpdate(tx).
			Where("id = ? AND project_id = ?", bidID, p.ID).First(&b).Error; err != nil {
			return err
		}
		if b.Status != models.BidStatusPending {
			return errInvalidState
		}

		if err := tx.Model(&b).Updates(map[string]interface{}{
			"status":  models.BidStatusAccepted,
			"version": b.Version + 1,
		}).Error; err != nil {
			return err
		}

		// sibling pending bids are rejected in the same commit; a
		// failure here only loses the bulk reject, not the acceptance
		if err := tx.Model(&models.Bid{}).
			Where("project_id = ? AND id <> ? AND status = ?",
				p.ID, b.ID, models.BidStatusPending).
			Update("status", models.BidStatusRejected).Error; err != nil {
			log.Println("Error rejecting sibling bids:", err)
		}

		if err := tx.Model(&p).Updates(map[string]interface{}{
			"status":        models.ProjectStatusInProgress,
			"freelancer_id": b.FreelancerID,
			"version":       p.Version + 1,
		}).Error; err != nil {
			return err
		}

		contract := models.Contract{
			ProjectID:    p.ID,
			ClientID:     p.ClientID,
			FreelancerID: b.FreelancerID,
			Terms:        fmt.Sprintf("Contract for project %s as bid by the freelancer.", p.Title),
			AgreedAmount: b.Amount,
			StartDate:    time.Now(),
			Status:       models.ContractStatusActive,
		}
		if err := tx.Create(&contract).Error; err != nil {
			return err
		}

		outBid = b
		outProject = p
		outContract = contract
		return nil
	})
	if err != nil {
		switch err {
		case gorm.ErrRecordNotFound:
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"success": false,
				"message": "Project atau bid tidak ditemukan",
			})
		case errNotOwner:
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"success": false,
				"message": "Project ini bukan milik Anda",
			})
		case errInvalidState:
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "Bid tidak bisa diterima pada status saat ini",
			})
		}
		log.Println("Error accepting bid:", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Gagal menerima bid",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Bid diterima, contract dibuat",
		"data": fiber.Map{
			"bid":      outBid,
			"project":  outProject,
			"contract": outContract,
		},
	})
}
