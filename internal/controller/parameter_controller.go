package controller

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"reeflog_backend/internal/model"
)

type ParameterController struct {
	db *gorm.DB
}

func NewParameterController(db *gorm.DB) *ParameterController {
	return &ParameterController{db: db}
}

type ParameterInput struct {
	MeasuredAt  *time.Time `json:"measured_at"`
	Salinity    *float64   `json:"salinity"`
	Temperature *float64   `json:"temperature"`
	PH          *float64   `json:"ph"`
	Alkalinity  *float64   `json:"alkalinity"`
	Calcium     *float64   `json:"calcium"`
	Magnesium   *float64   `json:"magnesium"`
	Nitrate     *float64   `json:"nitrate"`
	Phosphate   *float64   `json:"phosphate"`
	Notes       string     `json:"notes"`
}

func (ctrl *ParameterController) CreateLog(c *fiber.Ctx) error {
	input := new(ParameterInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	var tank model.Tank
	if err := ctrl.db.First(&tank, c.Params("tank_id")).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Tank not found",
		})
	}

	measuredAt := time.Now()
	if input.MeasuredAt != nil {
		measuredAt = *input.MeasuredAt
	}

	entry := model.ParameterLog{
		TankID:      tank.ID,
		MeasuredAt:  measuredAt,
		Salinity:    input.Salinity,
		Temperature: input.Temperature,
		PH:          input.PH,
		Alkalinity:  input.Alkalinity,
		Calcium:     input.Calcium,
		Magnesium:   input.Magnesium,
		Nitrate:     input.Nitrate,
		Phosphate:   input.Phosphate,
		Notes:       input.Notes,
	}

	if err := ctrl.db.Create(&entry).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not save parameter log",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(entry)
}

func (ctrl *ParameterController) ListLogs(c *fiber.Ctx) error {
	var logs []model.ParameterLog
	err := ctrl.db.Where("tank_id = ?", c.Params("tank_id")).
		Order("measured_at DESC").
		Limit(200).
		Find(&logs).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not fetch parameter logs",
		})
	}
	return c.JSON(logs)
}

func (ctrl *ParameterController) DeleteLog(c *fiber.Ctx) error {
	if err := ctrl.db.Delete(&model.ParameterLog{}, c.Params("id")).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not delete parameter log",
		})
	}
	return c.JSON(fiber.Map{"message": "Parameter log deleted"})
}
