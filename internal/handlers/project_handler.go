package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/taskvera/marketplace_be/internal/models"
)

type ProjectHandler struct {
	DB *gorm.DB
}

func NewProjectHandler(db *gorm.DB) *ProjectHandler {
	return &ProjectHandler{DB: db}
}

type CreateProjectReq struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Budget      *float64        `json:"budget"`
	Deadline    *time.Time      `json:"deadline"`
	Tags        *datatypes.JSON `json:"tags"`
}

func (h *ProjectHandler) CreateProject(c *fiber.Ctx) error {
	uid, errResp := getAuth(c)
	if errResp != nil {
		return errResp
	}

	var req CreateProjectReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Request tidak valid",
		})
	}

	fe := FieldErrors{}
	if strings.TrimSpace(req.Title) == "" {
		fe.Add("title", "Judul wajib diisi")
	}
	if strings.TrimSpace(req.Description) == "" {
		fe.Add("description", "Deskripsi wajib diisi")
	}
	if req.Budget != nil && *req.Budget < 0 {
		fe.Add("budget", "Budget tidak boleh negatif")
	}
	if len(fe) > 0 {
		return validationFail(c, fe)
	}

	p := models.Project{
		ClientID:    uid,
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Budget:      req.Budget,
		Deadline:    req.Deadline,
		Status:      models.ProjectStatusOpen,
		Version:     1,
	}
	if req.Tags != nil {
		p.Tags = *req.Tags
	}

	if err := h.DB.Create(&p).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Gagal membuat project",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Project berhasil dibuat",
		"data":    p,
	})
}

// ListProjects returns open projects, newest first.
func (h *ProjectHandler) ListProjects(c *fiber.Ctx) error {
	var projects []models.Project
	err := h.DB.
		Where("status = ?", models.ProjectStatusOpen).
		Order("created_at DESC").
		Find(&projects).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Gagal mengambil project",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    projects,
	})
}

func (h *ProjectHandler) GetProject(c *fiber.Ctx) error {
	id := c.Params("id")

	var p models.Project
	if err := h.DB.Where("id = ?", id).First(&p).Error; err != nil {
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

	return c.JSON(fiber.Map{
		"success": true,
		"data":    p,
	})
}

// UpdateProjectReq is the allow-list for project edits. Status is not
// here on purpose: status only moves through the workflow endpoints.
type UpdateProjectReq struct {
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	Budget      *float64        `json:"budget"`
	Deadline    *time.Time      `json:"deadline"`
	Tags        *datatypes.JSON `json:"tags"`
	Version     *int            `json:"version"`
}

func (h *ProjectHandler) UpdateProject(c *fiber.Ctx) error {
	uid, errResp := getAuth(c)
	if errResp != nil {
		return errResp
	}
	id := c.Params("id")

	var req UpdateProjectReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Request tidak valid",
		})
	}

	var out models.Project
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		var p models.Project
		if err := lockForUpdate(tx).
			Where("id = ?", id).First(&p).Error; err != nil {
			return err
		}
		if p.ClientID != uid {
			return errNotOwner
		}
		if req.Version != nil && *req.Version != p.Version {
			return errVersionConflict
		}

		updates := map[string]interface{}{}
		if req.Title != nil {
			if strings.TrimSpace(*req.Title) == "" {
				return errInvalidState
			}
			updates["title"] = strings.TrimSpace(*req.Title)
		}
		if req.Description != nil {
			updates["description"] = strings.TrimSpace(*req.Description)
		}
		if req.Budget != nil {
			if *req.Budget < 0 {
				return errInvalidState
			}
			updates["budget"] = *req.Budget
		}
		if req.Deadline != nil {
			updates["deadline"] = *req.Deadline
		}
		if req.Tags != nil {
			updates["tags"] = *req.Tags
		}

		if len(updates) > 0 {
			updates["version"] = p.Version + 1
			if err := tx.Model(&p).Updates(updates).Error; err != nil {
				return err
			}
		}

		out = p
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
				"message": "Project ini bukan milik Anda",
			})
		case errVersionConflict:
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"success": false,
				"message": "Project sudah berubah, muat ulang lalu coba lagi",
			})
		case errInvalidState:
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "Data project tidak valid",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Gagal memperbarui project",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Project berhasil diperbarui",
		"data":    out,
	})
}

func (h *ProjectHandler) DeleteProject(c *fiber.Ctx) error {
	uid, errResp := getAuth(c)
	if errResp != nil {
		return errResp
	}
	id := c.Params("id")

	var p models.Project
	if err := h.DB.Where("id = ?", id).First(&p).Error; err != nil {
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

	if err := h.DB.Delete(&p).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Gagal menghapus project",
		})
	}

	return c.SendStatus(fiber.StatusNoContent)
}
