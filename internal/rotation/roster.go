package rotation

import (
	"errors"
	"strings"
	"time"

	"volley_queue/internal/models"
	"volley_queue/internal/storage"

	"gorm.io/gorm"
)

func validSkill(skill string) bool {
	switch skill {
	case models.SkillBeginner, models.SkillIntermediate, models.SkillAdvanced:
		return true
	}
	return false
}

// MarkName отмечает имя игрока в списке от лица участника, чей сейчас ход.
// Проверки (свой ход, время не вышло, лимит двух имён) и инкремент счётчика
// выполняются одним условным обновлением, поэтому две конкурирующие отметки
// не могут вдвоём пройти лимит. Ход при этом не продвигается — это делает
// только AdvanceIfDue.
func MarkName(callerUserID uint, playerName, skillLevel string, now time.Time) (*models.RosterEntry, error) {
	playerName = strings.TrimSpace(playerName)
	if playerName == "" || !validSkill(skillLevel) {
		return nil, ErrInvalidInput
	}

	var entry models.RosterEntry
	err := storage.DB.Transaction(func(tx *gorm.DB) error {
		state, err := ensureState(tx)
		if err != nil {
			return err
		}
		if state.ActiveMemberID == nil || state.ActiveMember == nil ||
			state.ActiveMember.UserID != callerUserID {
			return ErrNotYourTurn
		}
		if RemainingSeconds(state, now) <= 0 {
			return ErrTurnExpired
		}
		if state.MarksUsed >= 2 {
			return ErrQuotaExceeded
		}

		res := tx.Model(&models.TurnState{}).
			Where("id = ? AND version = ? AND active_member_id = ? AND marks_used < 2",
				state.ID, state.Version, *state.ActiveMemberID).
			Updates(map[string]interface{}{
				"marks_used": state.MarksUsed + 1,
				"version":    state.Version + 1,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Состояние ушло из-под нас: либо ход сменился, либо лимит
			// выбран параллельной отметкой
			var fresh models.TurnState
			if err := tx.Preload("ActiveMember").Order("id ASC").First(&fresh).Error; err != nil {
				return err
			}
			if fresh.ActiveMemberID == nil || fresh.ActiveMember == nil ||
				fresh.ActiveMember.UserID != callerUserID {
				return ErrNotYourTurn
			}
			if fresh.MarksUsed >= 2 {
				return ErrQuotaExceeded
			}
			return ErrConflict
		}

		// Позиция — следующая за максимальной в своём списке (удаление
		// оставляет разрыв, позиции не пересчитываются)
		var confirmed int64
		if err := tx.Model(&models.RosterEntry{}).
			Where("is_waiting = ?", false).Count(&confirmed).Error; err != nil {
			return err
		}
		isWaiting := confirmed >= models.ConfirmedCapacity

		// Максимум берём с учётом удалённых записей, чтобы позиция не переиспользовалась
		var maxPosition int
		row := tx.Unscoped().Model(&models.RosterEntry{}).
			Where("is_waiting = ?", isWaiting).
			Select("COALESCE(MAX(position),0)").Row()
		if err := row.Scan(&maxPosition); err != nil {
			return err
		}

		entry = models.RosterEntry{
			PlayerName: playerName,
			SkillLevel: skillLevel,
			MarkedByID: callerUserID,
			MarkedAt:   now,
			Position:   maxPosition + 1,
			IsWaiting:  isWaiting,
		}
		return tx.Create(&entry).Error
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// DeleteEntry удаляет отмеченное имя. Разрешено только автору отметки либо
// администратору; на состояние хода удаление не влияет.
func DeleteEntry(callerUserID uint, entryID uint, isAdmin bool) error {
	var entry models.RosterEntry
	if err := storage.DB.First(&entry, entryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if entry.MarkedByID != callerUserID && !isAdmin {
		return ErrUnauthorized
	}
	return storage.DB.Delete(&entry).Error
}

// ClearRoster удаляет все отметки (admin). Состояние хода не трогает.
func ClearRoster() error {
	return storage.DB.Unscoped().Where("1 = 1").Delete(&models.RosterEntry{}).Error
}

// ListRoster возвращает подтверждённый список и лист ожидания по позициям.
func ListRoster() (confirmed []models.RosterEntry, waiting []models.RosterEntry, err error) {
	if err = storage.DB.Where("is_waiting = ?", false).
		Order("position ASC").Find(&confirmed).Error; err != nil {
		return nil, nil, err
	}
	if err = storage.DB.Where("is_waiting = ?", true).
		Order("position ASC").Find(&waiting).Error; err != nil {
		return nil, nil, err
	}
	return confirmed, waiting, nil
}
