package models

import (
	"gorm.io/gorm"
)

// Статусы участника ротации. В любой момент активен не более чем один участник.
const (
	MemberPending  = "pending"
	MemberActive   = "active"
	MemberFinished = "finished"
)

type QueueMember struct {
	gorm.Model
	UserID      uint   `gorm:"uniqueIndex;not null"`
	User        User   `gorm:"foreignKey:UserID"`
	DisplayName string `gorm:"not null"`
	Order       int    `gorm:"column:turn_order;uniqueIndex;not null"` // Порядок хода, задаётся при посеве по порядку регистрации
	Status      string `gorm:"index;not null;default:pending"`
}
