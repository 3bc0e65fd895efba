package model

import (
	"time"

	"gorm.io/gorm"
)

// ParameterLog is a single water test entry. All readings are optional so a
// partial test (e.g. only salinity and alkalinity) still logs cleanly.
type ParameterLog struct {
	gorm.Model
	TankID     uint      `json:"tank_id" gorm:"index;not null"`
	MeasuredAt time.Time `json:"measured_at" gorm:"index;not null"`

	Salinity    *float64 `json:"salinity"`     // specific gravity
	Temperature *float64 `json:"temperature"`  // celsius
	PH          *float64 `json:"ph"`
	Alkalinity  *float64 `json:"alkalinity"`   // dKH
	Calcium     *float64 `json:"calcium"`      // ppm
	Magnesium   *float64 `json:"magnesium"`    // ppm
	Nitrate     *float64 `json:"nitrate"`      // ppm
	Phosphate   *float64 `json:"phosphate"`    // ppm

	Notes string `json:"notes"`

	Tank Tank `json:"-" gorm:"foreignKey:TankID"`
}
