package handlers

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/taskvera/marketplace_be/internal/models"
)

type ReviewHandler struct {
	DB *gorm.DB
}

func NewReviewHandler(db *gorm.DB) *ReviewHandler {
	return &ReviewHandler{DB: db}
}

type CreateReviewReq struct {
	ProjectID string `json:"project_id"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
}

// CreateReview pairs reviewer and reviewee from the project: the client
// reviews the assigned freelancer, the freelancer reviews the client.
// Only completed projects can be reviewed.
func (h *ReviewHandler) CreateReview(c *fiber.Ctx) error {
	uid, errResp := getAuth(c)
	if errResp != nil {
		return errResp
	}

	var req CreateReviewReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Request tidak valid",
		})
	}

	fe := FieldErrors{}
	projectID, err := uuid.Parse(strings.TrimSpace(req.ProjectID))
	if err != nil {
		fe.Add("project_id", "Project ID tidak valid")
	}
	if req.Rating < 1 || req.Rating > 5 {
		fe.Add("rating", "Rating harus antara 1 sampai 5")
	}
	if len(fe) > 0 {
		return validationFail(c, fe)
	}

	var out models.Review
	err = h.DB.Transaction(func(tx *gorm.DB) error {
		var p models.Project
		if err := tx.Where("id = ?", projectID).First(&p).Error; err != nil {
			return err
		}
		if p.Status != models.ProjectStatusCompleted {
			return errInvalidState
		}
		if p.FreelancerID == nil {
			return errInvalidState
		}

		var revieweeID uuid.UUID
		switch uid {
		case p.ClientID:
			revieweeID = *p.FreelancerID
		case *p.FreelancerID:
			revieweeID = p.ClientID
		default:
			return errNotOwner
		}

		var count int64
		if err := tx.Model(&models.Review{}).
			Where("project_id = ? AND reviewer_id = ? AND reviewee_id = ?",
				p.ID, uid, revieweeID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return errDuplicate
		}

		out = models.Review{
			ProjectID:  p.ID,
			ReviewerID: uid,
			RevieweeID: revieweeID,
			Rating:     req.Rating,
			Comment:    strings.TrimSpace(req.Comment),
		}
		if err := tx.Create(&out).Error; err != nil {
			return err
		}

		// rollup hanya untuk review client -> freelancer
		if uid == p.ClientID {
			if err := h.recomputeAverageRating(tx, revieweeID); err != nil {
				log.Println("Review saved but rating rollup failed:", err)
			}
		}

		return nil
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
				"message": "Project belum selesai, belum bisa direview",
			})
		case errNotOwner:
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"success": false,
				"message": "Anda bukan peserta project ini",
			})
		case errDuplicate:
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"success": false,
				"message": "Anda sudah memberi review untuk project ini",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Gagal menyimpan review",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Review berhasil disimpan",
		"data":    out,
	})
}

// recomputeAverageRating averages client->freelancer reviews into the
// freelancer profile.
func (h *ReviewHandler) recomputeAverageRating(tx *gorm.DB, freelancerID uuid.UUID) error {
	var avg float64
	err := tx.Model(&models.Review{}).
		Where("reviewee_id = ?", freelancerID).
		Select("COALESCE(AVG(rating), 0)").
		Scan(&avg).Error
	if err != nil {
		return err
	}

	return tx.Model(&models.FreelancerProfile{}).
		Where("user_id = ?", freelancerID).
		Update("average_rating", avg).Error
}

func (h *ReviewHandler) ListByUser(c *fiber.Ctx) error {
	userID := c.Params("id")

	var reviews []models.Review
	if err := h.DB.
		Where("reviewee_id = ?", userID).
		Order("created_at DESC").
		Find(&reviews).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Gagal mengambil review",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    reviews,
	})
}

func (h *ReviewHandler) ListByProject(c *fiber.Ctx) error {
	projectID := c.Params("id")

	var reviews []models.Review
	if err := h.DB.
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Find(&reviews).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Gagal mengambil review",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    reviews,
	})
}
