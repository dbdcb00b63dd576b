package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/taskvera/marketplace_be/internal/models"
)

type UserHandler struct {
	DB *gorm.DB
}

func NewUserHandler(db *gorm.DB) *UserHandler {
	return &UserHandler{DB: db}
}

// GetUser returns a user's public profile, role profile included.
func (h *UserHandler) GetUser(c *fiber.Ctx) error {
	id := c.Params("id")

	var u models.User
	err := h.DB.
		Preload("ClientProfile").
		Preload("FreelancerProfile").
		Where("id = ?", id).
		First(&u).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"success": false,
				"message": "User tidak ditemukan",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Gagal mengambil user",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    u,
	})
}

// UpdateProfileReq only carries fields callers are allowed to change.
// Pointer fields distinguish "absent" from "set to zero".
type UpdateProfileReq struct {
	FullName *string `json:"full_name"`
	Phone    *string `json:"phone"`
	PhotoURL *string `json:"photo_url"`

	// client profile
	CompanyName    *string         `json:"company_name"`
	PaymentDetails *datatypes.JSON `json:"payment_details"`

	// freelancer profile
	Skills        *datatypes.JSON `json:"skills"`
	Bio           *string         `json:"bio"`
	PortfolioURL  *string         `json:"portfolio_url"`
	HourlyRate    *float64        `json:"hourly_rate"`
	PayoutDetails *datatypes.JSON `json:"payout_details"`
}

// UpdateMyProfile does a partial update of the caller's account and
// upserts the role-specific profile row.
func (h *UserHandler) UpdateMyProfile(c *fiber.Ctx) error {
	uid, errResp := getAuth(c)
	if errResp != nil {
		return errResp
	}

	var req UpdateProfileReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Request tidak valid",
		})
	}

	var u models.User
	if err := h.DB.Where("id = ?", uid).First(&u).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "User tidak ditemukan",
		})
	}

	userUpdates := map[string]interface{}{}
	if req.FullName != nil {
		if strings.TrimSpace(*req.FullName) == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "Nama lengkap tidak boleh kosong",
			})
		}
		userUpdates["full_name"] = strings.TrimSpace(*req.FullName)
	}
	if req.Phone != nil {
		userUpdates["phone"] = strings.TrimSpace(*req.Phone)
	}
	if req.PhotoURL != nil {
		userUpdates["photo_url"] = strings.TrimSpace(*req.PhotoURL)
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if len(userUpdates) > 0 {
			if err := tx.Model(&u).Updates(userUpdates).Error; err != nil {
				return err
			}
		}

		switch u.Role {
		case models.RoleClient:
			var cp models.ClientProfile
			err := tx.Where("user_id = ?", u.ID).First(&cp).Error
			if err == gorm.ErrRecordNotFound {
				cp = models.ClientProfile{UserID: u.ID}
				if err := tx.Create(&cp).Error; err != nil {
					return err
				}
			} else if err != nil {
				return err
			}

			cpUpdates := map[string]interface{}{}
			if req.CompanyName != nil {
				cpUpdates["company_name"] = strings.TrimSpace(*req.CompanyName)
			}
			if req.PaymentDetails != nil {
				cpUpdates["payment_details"] = *req.PaymentDetails
			}
			if len(cpUpdates) > 0 {
				if err := tx.Model(&cp).Updates(cpUpdates).Error; err != nil {
					return err
				}
			}

		case models.RoleFreelancer:
			var fp models.FreelancerProfile
			err := tx.Where("user_id = ?", u.ID).First(&fp).Error
			if err == gorm.ErrRecordNotFound {
				fp = models.FreelancerProfile{UserID: u.ID}
				if err := tx.Create(&fp).Error; err != nil {
					return err
				}
			} else if err != nil {
				return err
			}

			fpUpdates := map[string]interface{}{}
			if req.Skills != nil {
				fpUpdates["skills"] = *req.Skills
			}
			if req.Bio != nil {
				fpUpdates["bio"] = strings.TrimSpace(*req.Bio)
			}
			if req.PortfolioURL != nil {
				fpUpdates["portfolio_url"] = strings.TrimSpace(*req.PortfolioURL)
			}
			if req.HourlyRate != nil {
				if *req.HourlyRate < 0 {
					return errInvalidHourlyRate
				}
				fpUpdates["hourly_rate"] = *req.HourlyRate
			}
			if req.PayoutDetails != nil {
				fpUpdates["payout_details"] = *req.PayoutDetails
			}
			if len(fpUpdates) > 0 {
				if err := tx.Model(&fp).Updates(fpUpdates).Error; err != nil {
					return err
				}
			}
		}

		return nil
	})
	if err != nil {
		if err == errInvalidHourlyRate {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "Tarif per jam tidak boleh negatif",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Gagal memperbarui profil",
		})
	}

	var out models.User
	if err := h.DB.
		Preload("ClientProfile").
		Preload("FreelancerProfile").
		Where("id = ?", u.ID).
		First(&out).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Gagal mengambil profil",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Profil berhasil diperbarui",
		"data":    out,
	})
}
