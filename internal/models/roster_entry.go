package models

import (
	"time"

	"gorm.io/gorm"
)

// ConfirmedCapacity — вместимость основного списка; всё сверх уходит в лист ожидания.
const ConfirmedCapacity = 12

type RosterEntry struct {
	gorm.Model
	PlayerName string    `gorm:"not null"`
	SkillLevel string    `gorm:"not null"`
	MarkedByID uint      `gorm:"index;not null"` // Кто отметил имя (участник, чей был ход)
	MarkedBy   User      `gorm:"foreignKey:MarkedByID"`
	MarkedAt   time.Time `gorm:"not null"`
	Position   int       `gorm:"index;not null"` // Позиция внутри своего списка; после удаления не пересчитывается
	IsWaiting  bool      `gorm:"index;default:false"`
}
