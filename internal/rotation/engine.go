package rotation

import (
	"errors"
	"log"
	"time"

	"volley_queue/internal/liveness"
	"volley_queue/internal/models"
	"volley_queue/internal/storage"

	"gorm.io/gorm"
)

const (
	// TurnWindowSeconds — время на один ход.
	TurnWindowSeconds = 60
	// OfflineGrace — минимальное время с начала хода, после которого
	// участника без heartbeat можно пропустить досрочно.
	OfflineGrace = 10 * time.Second
)

// Причина продвижения ротации, попадает в ответ и в ws-событие.
const (
	ReasonNone    = "none"
	ReasonTimeout = "timeout"
	ReasonOffline = "offline"
)

// StateSnapshot — снимок текущего хода для клиентов.
type StateSnapshot struct {
	ActiveMemberID   *uint      `json:"active_member_id"`
	ActiveUserID     *uint      `json:"active_user_id"`
	ActiveName       string     `json:"active_name,omitempty"`
	TurnStartedAt    *time.Time `json:"turn_started_at,omitempty"`
	RemainingSeconds int        `json:"remaining_seconds"`
	MarksUsed        int        `json:"marks_used"`
	RotationDone     bool       `json:"rotation_done"`
}

// AdvanceResult — результат AdvanceIfDue. WasAdvanced=true ровно у одного
// из конкурирующих вызовов, поэтому уведомление о переходе показывается один раз.
type AdvanceResult struct {
	State       StateSnapshot `json:"state"`
	WasAdvanced bool          `json:"was_advanced"`
	Reason      string        `json:"reason"`
}

// ensureState возвращает единственную строку TurnState, создавая её при первом обращении.
func ensureState(tx *gorm.DB) (*models.TurnState, error) {
	var state models.TurnState
	if err := tx.Preload("ActiveMember").Order("id ASC").First(&state).Error; err == nil {
		return &state, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	// Строка-одиночка живёт под фиксированным id: два первых конкурирующих
	// вызова не смогут создать дубликат, проигравший упрётся в первичный ключ
	state = models.TurnState{}
	state.ID = 1
	if err := tx.Create(&state).Error; err != nil {
		// Параллельный вызов создал строку раньше нас
		if err2 := tx.Preload("ActiveMember").Order("id ASC").First(&state).Error; err2 == nil {
			return &state, nil
		}
		return nil, err
	}
	return &state, nil
}

// EnsureSeeded заполняет порядок ротации из зарегистрированных пользователей.
// Повторный вызов при уже существующих участниках — no-op.
func EnsureSeeded(now time.Time) error {
	var count int64
	if err := storage.DB.Model(&models.QueueMember{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	if err := storage.DB.Transaction(func(tx *gorm.DB) error {
		return seedMembers(tx, now)
	}); err != nil {
		// Параллельный вызов мог посеять раньше нас: уникальные индексы
		// не дадут создать участников дважды
		storage.DB.Model(&models.QueueMember{}).Count(&count)
		if count > 0 {
			return nil
		}
		return err
	}
	return nil
}

// seedMembers создаёт участников по порядку регистрации и активирует первого.
func seedMembers(tx *gorm.DB, now time.Time) error {
	var users []models.User
	if err := tx.Order("id ASC").Find(&users).Error; err != nil {
		return err
	}
	if len(users) == 0 {
		return nil
	}

	members := make([]models.QueueMember, 0, len(users))
	for i, u := range users {
		status := models.MemberPending
		if i == 0 {
			status = models.MemberActive
		}
		members = append(members, models.QueueMember{
			UserID:      u.ID,
			DisplayName: u.Name,
			Order:       i + 1,
			Status:      status,
		})
	}
	if err := tx.Create(&members).Error; err != nil {
		return err
	}

	state, err := ensureState(tx)
	if err != nil {
		return err
	}
	res := tx.Model(&models.TurnState{}).
		Where("id = ? AND version = ?", state.ID, state.Version).
		Updates(map[string]interface{}{
			"active_member_id": members[0].ID,
			"turn_started_at":  now,
			"marks_used":       0,
			"version":          state.Version + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

// RemainingSeconds вычисляет остаток времени хода от сохранённого старта.
// Клиентским таймерам не доверяем: любой сдвиг часов исправится на следующем опросе.
func RemainingSeconds(state *models.TurnState, now time.Time) int {
	if state.ActiveMemberID == nil || state.TurnStartedAt == nil {
		return 0
	}
	elapsed := int(now.Sub(*state.TurnStartedAt).Seconds())
	remaining := TurnWindowSeconds - elapsed
	if remaining < 0 {
		return 0
	}
	// Часы наблюдателя могли отстать от штампа в базе
	if remaining > TurnWindowSeconds {
		return TurnWindowSeconds
	}
	return remaining
}

func snapshot(state *models.TurnState, now time.Time) (StateSnapshot, error) {
	snap := StateSnapshot{
		ActiveMemberID:   state.ActiveMemberID,
		TurnStartedAt:    state.TurnStartedAt,
		RemainingSeconds: RemainingSeconds(state, now),
		MarksUsed:        state.MarksUsed,
	}
	if state.ActiveMember != nil {
		snap.ActiveName = state.ActiveMember.DisplayName
		uid := state.ActiveMember.UserID
		snap.ActiveUserID = &uid
	}
	if state.ActiveMemberID == nil {
		var total, pending int64
		if err := storage.DB.Model(&models.QueueMember{}).Count(&total).Error; err != nil {
			return snap, err
		}
		if err := storage.DB.Model(&models.QueueMember{}).
			Where("status = ?", models.MemberPending).Count(&pending).Error; err != nil {
			return snap, err
		}
		snap.RotationDone = total > 0 && pending == 0
	}
	return snap, nil
}

// CurrentState возвращает снимок текущего хода без побочных переходов.
func CurrentState(now time.Time) (StateSnapshot, error) {
	if err := EnsureSeeded(now); err != nil {
		return StateSnapshot{}, err
	}
	state, err := ensureState(storage.DB)
	if err != nil {
		return StateSnapshot{}, err
	}
	return snapshot(state, now)
}

// AdvanceIfDue — идемпотентное продвижение ротации. Вызывается любым клиентом
// в любой момент; переход происходит только при выполнении одного из условий:
// никто не активен и есть ожидающие, время хода вышло, либо активный участник
// офлайн дольше допустимого. Конкурирующие вызовы разрешаются условным
// обновлением по version: проигравший перечитывает состояние и возвращает
// was_advanced=false.
func AdvanceIfDue(now time.Time) (AdvanceResult, error) {
	if err := EnsureSeeded(now); err != nil {
		return AdvanceResult{}, err
	}

	state, err := ensureState(storage.DB)
	if err != nil {
		return AdvanceResult{}, err
	}

	reason := ReasonNone
	due := false

	if state.ActiveMemberID == nil {
		var pending int64
		if err := storage.DB.Model(&models.QueueMember{}).
			Where("status = ?", models.MemberPending).Count(&pending).Error; err != nil {
			return AdvanceResult{}, err
		}
		due = pending > 0
	} else if state.TurnStartedAt != nil {
		elapsed := now.Sub(*state.TurnStartedAt)
		if elapsed >= TurnWindowSeconds*time.Second {
			due = true
			reason = ReasonTimeout
		} else if elapsed > OfflineGrace && state.ActiveMember != nil {
			stale, err := liveness.IsStale(state.ActiveMember.UserID, now)
			if err != nil {
				// Redis недоступен — офлайн-пропуск откладываем до таймаута
				log.Println("Ошибка проверки heartbeat:", err)
			} else if stale {
				due = true
				reason = ReasonOffline
			}
		}
	}

	if !due {
		snap, err := snapshot(state, now)
		if err != nil {
			return AdvanceResult{}, err
		}
		return AdvanceResult{State: snap, WasAdvanced: false, Reason: ReasonNone}, nil
	}

	won, err := advance(state, now)
	if err != nil {
		return AdvanceResult{}, err
	}

	// Перечитываем состояние: и победитель, и проигравший отдают снимок после перехода
	state, err = ensureState(storage.DB)
	if err != nil {
		return AdvanceResult{}, err
	}
	snap, err := snapshot(state, now)
	if err != nil {
		return AdvanceResult{}, err
	}
	if !won {
		reason = ReasonNone
	}
	return AdvanceResult{State: snap, WasAdvanced: won, Reason: reason}, nil
}

// advance выполняет единственный переход ротации. Возвращает false, если
// условное обновление проиграло конкурирующему вызову.
func advance(state *models.TurnState, now time.Time) (bool, error) {
	won := false
	err := storage.DB.Transaction(func(tx *gorm.DB) error {
		var next models.QueueMember
		hasNext := true
		if err := tx.Where("status = ?", models.MemberPending).
			Order("turn_order ASC").First(&next).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			hasNext = false
		}

		updates := map[string]interface{}{
			"marks_used": 0,
			"version":    state.Version + 1,
		}
		if hasNext {
			updates["active_member_id"] = next.ID
			updates["turn_started_at"] = now
		} else {
			// Ротация исчерпана: активного нет, возобновление — только через admin reset
			updates["active_member_id"] = nil
			updates["turn_started_at"] = nil
		}

		res := tx.Model(&models.TurnState{}).
			Where("id = ? AND version = ?", state.ID, state.Version).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Проиграли гонку — переход уже сделан другим вызовом
			return nil
		}

		if state.ActiveMemberID != nil {
			if err := tx.Model(&models.QueueMember{}).
				Where("id = ?", *state.ActiveMemberID).
				Update("status", models.MemberFinished).Error; err != nil {
				return err
			}
		}
		if hasNext {
			if err := tx.Model(&models.QueueMember{}).
				Where("id = ?", next.ID).
				Update("status", models.MemberActive).Error; err != nil {
				return err
			}
		}
		won = true
		return nil
	})
	return won, err
}

// ResetRotation сбрасывает состояние и пересеивает порядок из текущих
// пользователей. Единственный способ перезапустить исчерпанную ротацию.
func ResetRotation(now time.Time) error {
	return storage.DB.Transaction(func(tx *gorm.DB) error {
		state, err := ensureState(tx)
		if err != nil {
			return err
		}
		res := tx.Model(&models.TurnState{}).
			Where("id = ? AND version = ?", state.ID, state.Version).
			Updates(map[string]interface{}{
				"active_member_id": nil,
				"turn_started_at":  nil,
				"marks_used":       0,
				"version":          state.Version + 1,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConflict
		}
		if err := tx.Unscoped().Where("1 = 1").Delete(&models.QueueMember{}).Error; err != nil {
			return err
		}
		return seedMembers(tx, now)
	})
}
