package controller

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"reeflog_backend/internal/model"
	"reeflog_backend/pkg/utils/image"
	"reeflog_backend/pkg/utils/jwt"
	"reeflog_backend/pkg/utils/storage"
)

type UploadController struct {
	db     *gorm.DB
	photos *storage.PhotoStorage
}

func NewUploadController(db *gorm.DB, photos *storage.PhotoStorage) *UploadController {
	return &UploadController{db: db, photos: photos}
}

// UploadTankPhoto validates, re-encodes and stores a photo, then records it
// against the tank.
func (ctrl *UploadController) UploadTankPhoto(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	var tank model.Tank
	if err := ctrl.db.First(&tank, c.Params("tank_id")).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Tank not found",
		})
	}

	file, err := c.FormFile("photo")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No photo provided",
		})
	}

	if err := image.ValidateUpload(file); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	buf, contentType, err := image.ProcessImage(file)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Could not process image",
		})
	}

	url, err := ctrl.photos.UploadPhoto(c.Context(), buf, contentType, claims.UserID, tank.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not upload photo",
		})
	}

	photo := model.TankPhoto{
		TankID:  tank.ID,
		URL:     url,
		Caption: c.FormValue("caption"),
	}
	if err := ctrl.db.Create(&photo).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not save photo record",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(photo)
}

func (ctrl *UploadController) DeleteTankPhoto(c *fiber.Ctx) error {
	var photo model.TankPhoto
	if err := ctrl.db.First(&photo, c.Params("photo_id")).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Photo not found",
		})
	}

	if err := ctrl.photos.DeletePhoto(c.Context(), photo.URL); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not delete photo from storage",
		})
	}

	if err := ctrl.db.Delete(&photo).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not delete photo record",
		})
	}

	return c.JSON(fiber.Map{"message": "Photo deleted"})
}
