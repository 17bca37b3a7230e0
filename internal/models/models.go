package models

import (
	"gorm.io/gorm"
)

// Уровни подготовки игрока (значения как в исходной таблице волейбольной очереди).
const (
	SkillBeginner     = "iniciante"
	SkillIntermediate = "intermediario"
	SkillAdvanced     = "avancado"
)

// SkillValue возвращает числовой вес уровня для подсчёта среднего по команде.
func SkillValue(skill string) int {
	switch skill {
	case SkillBeginner:
		return 1
	case SkillIntermediate:
		return 2
	case SkillAdvanced:
		return 3
	default:
		return 1
	}
}

type User struct {
	gorm.Model
	Name         string `gorm:"not null"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	SkillLevel   string `gorm:"not null;default:iniciante"` // Уровень по умолчанию — новичок
	IsAdmin      bool   `gorm:"default:false"`
}
