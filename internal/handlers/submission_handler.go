package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/taskvera/marketplace_be/internal/models"
)

type SubmissionHandler struct {
	DB *gorm.DB
}

func NewSubmissionHandler(db *gorm.DB) *SubmissionHandler {
	return &SubmissionHandler{DB: db}
}

type SubmitWorkReq struct {
	Files *datatypes.JSON `json:"files"`
	Notes string          `json:"notes"`
}

// SubmitWork creates the next version of the deliverable and moves the
// project to awaiting_review. Versions only ever grow; an earlier
// submission is never edited in place.
func (h *SubmissionHandler) SubmitWork(c *fiber.Ctx) error {
	uid, errResp := getAuth(c)
	if errResp != nil {
		return errResp
	}
	projectID := c.Params("id")

	var req SubmitWorkReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Request tidak valid",
		})
	}

	var out models.WorkSubmission
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		var p models.Project
		if err := lockForUpdate(tx).
			Where("id = ?", projectID).First(&p).Error; err != nil {
			return err
		}
		if p.FreelancerID == nil || *p.FreelancerID != uid {
			return errNotOwner
		}
		if !p.Status.CanTransitionTo(models.ProjectStatusAwaitingReview) {
			return errInvalidState
		}

		var contract models.Contract
		err := tx.Where("project_id = ? AND freelancer_id = ? AND status = ?",
			p.ID, uid, models.ContractStatusActive).First(&contract).Error
		if err == gorm.ErrRecordNotFound {
			return errInvalidState
		}
		if err != nil {
			return err
		}

		var maxVersion int
		if err := tx.Model(&models.WorkSubmission{}).
			Where("project_id = ?", p.ID).
			Select("COALESCE(MAX(version), 0)").
			Scan(&maxVersion).Error; err != nil {
			return err
		}

		out = models.WorkSubmission{
			ProjectID:    p.ID,
			FreelancerID: uid,
			Version:      maxVersion + 1,
			Notes:        req.Notes,
		}
		if req.Files != nil {
			out.Files = *req.Files
		}
		if err := tx.Create(&out).Error; err != nil {
			return err
		}

		if err := tx.Model(&p).Updates(map[string]interface{}{
			"status":  models.ProjectStatusAwaitingReview,
			"version": p.Version + 1,
		}).Error; err != nil {
			log.Println("Submission saved but project status update failed:", err)
			return err
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
		case errNotOwner:
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"success": false,
				"message": "Anda bukan freelancer pada project ini",
			})
		case errInvalidState:
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "Project tidak dalam status pengerjaan",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Gagal menyimpan submission",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Submission berhasil dikirim",
		"data":    out,
	})
}

// ListSubmissions returns versions ascending, owner or assigned
// freelancer only.
func (h *SubmissionHandler) ListSubmissions(c *fiber.Ctx) error {
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

	isFreelancer := p.FreelancerID != nil && *p.FreelancerID == uid
	if p.ClientID != uid && !isFreelancer {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"message": "Anda tidak punya akses ke submission project ini",
		})
	}

	var subs []models.WorkSubmission
	if err := h.DB.
		Where("project_id = ?", p.ID).
		Order("version ASC").
		Find(&subs).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Gagal mengambil submission",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    subs,
	})
}

// ApproveSubmission completes the project. The contract completion is
// best effort; a failure there is logged, not rolled back.
func (h *SubmissionHandler) ApproveSubmission(c *fiber.Ctx) error {
	uid, errResp := getAuth(c)
	if errResp != nil {
		return errResp
	}
	projectID := c.Params("id")
	submissionID := c.Params("submissionId")

	var outProject models.Project
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		var p models.Project
		if err := lockForUpdate(tx).
			Where("id = ?", projectID).First(&p).Error; err != nil {
			return err
		}
		if p.ClientID != uid {
			return errNotOwner
		}
		if !p.Status.CanTransitionTo(models.ProjectStatusCompleted) {
			return errInvalidState
		}

		var sub models.WorkSubmission
		if err := tx.Where("id = ? AND project_id = ?", submissionID, p.ID).
			First(&sub).Error; err != nil {
			return err
		}

		if err := tx.Model(&p).Updates(map[string]interface{}{
			"status":  models.ProjectStatusCompleted,
			"version": p.Version + 1,
		}).Error; err != nil {
			return err
		}

		res := tx.Model(&models.Contract{}).
			Where("project_id = ? AND status = ?", p.ID, models.ContractStatusActive).
			Update("status", models.ContractStatusCompleted)
		if res.Error != nil {
			log.Println("Project completed but contract update failed:", res.Error)
		}

		outProject = p
		return nil
	})
	if err != nil {
		switch err {
		case gorm.ErrRecordNotFound:
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"success": false,
				"message": "Project atau submission tidak ditemukan",
			})
		case errNotOwner:
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"success": false,
				"message": "Project ini bukan milik Anda",
			})
		case errInvalidState:
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "Project tidak sedang menunggu review",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Gagal menyetujui submission",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Submission disetujui, project selesai",
		"data":    outProject,
	})
}
