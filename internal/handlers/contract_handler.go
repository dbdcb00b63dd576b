package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/taskvera/marketplace_be/internal/models"
)

type ContractHandler struct {
	DB *gorm.DB
}

func NewContractHandler(db *gorm.DB) *ContractHandler {
	return &ContractHandler{DB: db}
}

// ListMyContracts returns contracts where the caller is either side.
func (h *ContractHandler) ListMyContracts(c *fiber.Ctx) error {
	uid, errResp := getAuth(c)
	if errResp != nil {
		return errResp
	}

	var contracts []models.Contract
	if err := h.DB.
		Where("client_id = ? OR freelancer_id = ?", uid, uid).
		Order("created_at DESC").
		Find(&contracts).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Gagal mengambil contract",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    contracts,
	})
}

func (h *ContractHandler) GetContract(c *fiber.Ctx) error {
	uid, errResp := getAuth(c)
	if errResp != nil {
		return errResp
	}
	id := c.Params("id")

	var contract models.Contract
	if err := h.DB.Where("id = ?", id).First(&contract).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"success": false,
				"message": "Contract tidak ditemukan",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Gagal mengambil contract",
		})
	}

	if contract.ClientID != uid && contract.FreelancerID != uid {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"message": "Anda tidak punya akses ke contract ini",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    contract,
	})
}

type UpdateContractStatusReq struct {
	Status string `json:"status"`
}

// UpdateContractStatus lets a participant move the contract itself.
// This does not touch the project workflow.
func (h *ContractHandler) UpdateContractStatus(c *fiber.Ctx) error {
	uid, errResp := getAuth(c)
	if errResp != nil {
		return errResp
	}
	id := c.Params("id")

	var req UpdateContractStatusReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Request tidak valid",
		})
	}

	next := models.ContractStatus(req.Status)
	switch next {
	case models.ContractStatusActive, models.ContractStatusCompleted,
		models.ContractStatusTerminated, models.ContractStatusDisputed:
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Status contract tidak dikenal",
		})
	}

	var contract models.Contract
	if err := h.DB.Where("id = ?", id).First(&contract).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"success": false,
				"message": "Contract tidak ditemukan",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Gagal mengambil contract",
		})
	}

	if contract.ClientID != uid && contract.FreelancerID != uid {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"message": "Anda tidak punya akses ke contract ini",
		})
	}

	updates := map[string]interface{}{"status": next}
	if next != models.ContractStatusActive && contract.EndDate == nil {
		now := time.Now()
		updates["end_date"] = now
	}

	if err := h.DB.Model(&contract).Updates(updates).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Gagal memperbarui contract",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Status contract diperbarui",
		"data":    contract,
	})
}
