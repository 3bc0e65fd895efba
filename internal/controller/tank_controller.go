package controller

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/gosimple/slug"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"reeflog_backend/internal/model"
	"reeflog_backend/pkg/utils/jwt"
)

type TankController struct {
	db *gorm.DB
}

func NewTankController(db *gorm.DB) *TankController {
	return &TankController{db: db}
}

type TankInput struct {
	Name        string   `json:"name" validate:"required"`
	WaterType   string   `json:"water_type"`
	VolumeL     float64  `json:"volume_l"`
	Description string   `json:"description"`
	Equipment   []string `json:"equipment"`
}

func (ctrl *TankController) CreateTank(c *fiber.Ctx) error {
	input := new(TankInput)
	if err := c.BodyParser(input); err != nil || input.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	claims := c.Locals("user").(*jwt.Claims)

	waterType := model.WaterType(input.WaterType)
	if waterType == "" {
		waterType = model.WaterTypeReef
	}

	tank := model.Tank{
		Name:        input.Name,
		Slug:        slug.Make(input.Name),
		WaterType:   waterType,
		VolumeL:     input.VolumeL,
		Description: input.Description,
		UserID:      claims.UserID,
	}

	if len(input.Equipment) > 0 {
		raw, err := json.Marshal(input.Equipment)
		if err == nil {
			tank.Equipment = datatypes.JSON(raw)
		}
	}

	if err := ctrl.db.Create(&tank).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not create tank",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(tank)
}

func (ctrl *TankController) ListMyTanks(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	var tanks []model.Tank
	if err := ctrl.db.Where("user_id = ?", claims.UserID).Order("created_at DESC").Find(&tanks).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not fetch tanks",
		})
	}
	return c.JSON(tanks)
}

func (ctrl *TankController) GetTank(c *fiber.Ctx) error {
	var tank model.Tank
	if err := ctrl.db.Preload("Photos").First(&tank, c.Params("id")).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Tank not found",
		})
	}
	return c.JSON(tank)
}

func (ctrl *TankController) UpdateTank(c *fiber.Ctx) error {
	input := new(TankInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	var tank model.Tank
	if err := ctrl.db.First(&tank, c.Params("id")).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Tank not found",
		})
	}

	updates := map[string]interface{}{
		"description": input.Description,
	}
	if input.Name != "" {
		updates["name"] = input.Name
		updates["slug"] = slug.Make(input.Name)
	}
	if input.WaterType != "" {
		updates["water_type"] = input.WaterType
	}
	if input.VolumeL > 0 {
		updates["volume_l"] = input.VolumeL
	}
	if len(input.Equipment) > 0 {
		if raw, err := json.Marshal(input.Equipment); err == nil {
			updates["equipment"] = datatypes.JSON(raw)
		}
	}

	if err := ctrl.db.Model(&tank).Updates(updates).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not update tank",
		})
	}

	return c.JSON(tank)
}

func (ctrl *TankController) DeleteTank(c *fiber.Ctx) error {
	if err := ctrl.db.Delete(&model.Tank{}, c.Params("id")).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not delete tank",
		})
	}
	return c.JSON(fiber.Map{"message": "Tank deleted"})
}
