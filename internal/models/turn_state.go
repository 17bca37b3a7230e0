package models

import (
	"time"

	"gorm.io/gorm"
)

// TurnState — единственная строка с состоянием текущего хода.
// Остаток времени нигде не хранится: он всегда вычисляется от TurnStartedAt,
// чтобы расхождение часов клиентов не влияло на результат.
type TurnState struct {
	gorm.Model
	ActiveMemberID *uint        `gorm:"index"` // nil — никто не ходит (ротация не начата или исчерпана)
	ActiveMember   *QueueMember `gorm:"foreignKey:ActiveMemberID"`
	TurnStartedAt  *time.Time   // Момент, когда участник стал активным
	MarksUsed      int          `gorm:"not null;default:0"` // Сколько имён отмечено за текущий ход (0..2)
	Version        int64        `gorm:"not null;default:0"` // Счётчик для условных обновлений (compare-and-swap)
}
