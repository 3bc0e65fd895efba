package model

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Water types
type WaterType string

const (
	WaterTypeReef       WaterType = "Reef"
	WaterTypeSaltwater  WaterType = "Saltwater"
	WaterTypeBrackish   WaterType = "Brackish"
	WaterTypeFreshwater WaterType = "Freshwater"
)

type Tank struct {
	gorm.Model
	Name        string    `json:"name" gorm:"not null"`
	Slug        string    `json:"slug" gorm:"uniqueIndex:idx_user_tank_slug;not null"`
	WaterType   WaterType `json:"water_type" gorm:"not null"`
	VolumeL     float64   `json:"volume_l" gorm:"not null"`
	Description string    `json:"description" gorm:"type:text"`

	// Equipment is a free-form list (lights, skimmer, dosing pumps...)
	Equipment datatypes.JSON `json:"equipment"`

	UserID uint `json:"user_id" gorm:"uniqueIndex:idx_user_tank_slug"`

	User          User           `json:"-" gorm:"foreignKey:UserID"`
	ParameterLogs []ParameterLog `json:"-"`
	Photos        []TankPhoto    `json:"photos,omitempty"`
}

type TankPhoto struct {
	gorm.Model
	TankID  uint   `json:"tank_id" gorm:"index"`
	URL     string `json:"url" gorm:"not null"`
	Caption string `json:"caption"`

	Tank Tank `json:"-" gorm:"foreignKey:TankID"`
}
