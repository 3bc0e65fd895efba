package model

import (
	"strings"

	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	Email    string `json:"email" gorm:"uniqueIndex;not null"`
	Password string `json:"-" gorm:"not null"`
	Username string `json:"username" gorm:"uniqueIndex;not null"`

	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`

	IsAdmin bool `json:"is_admin" gorm:"default:false"`

	Tanks        []Tank        `json:"-"`
	Subscription *Subscription `json:"-" gorm:"foreignKey:UserID"`
}

func (u *User) GetFullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
