package handlers

import (
	"net/http"
	"time"

	"volley_queue/internal/liveness"
	"volley_queue/internal/models"
	"volley_queue/internal/response"
	"volley_queue/internal/rotation"
	"volley_queue/internal/ws"

	"github.com/gin-gonic/gin"
)

// RosterItem — одна отметка в списке игроков.
type RosterItem struct {
	EntryID    uint   `json:"entry_id"`
	PlayerName string `json:"player_name"`
	SkillLevel string `json:"skill_level"`
	MarkedByID uint   `json:"marked_by_id"`
	MarkedAt   string `json:"marked_at"`
	Position   int    `json:"position"`
}

// FilaStateResponse — текущее состояние хода и снимок списков.
type FilaStateResponse struct {
	State     rotation.StateSnapshot `json:"state"`
	Confirmed []RosterItem           `json:"confirmed"`
	Waiting   []RosterItem           `json:"waiting"`
	SpotsLeft int                    `json:"spots_left"`
}

func toRosterItems(entries []models.RosterEntry) []RosterItem {
	items := make([]RosterItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, RosterItem{
			EntryID:    e.ID,
			PlayerName: e.PlayerName,
			SkillLevel: e.SkillLevel,
			MarkedByID: e.MarkedByID,
			MarkedAt:   e.MarkedAt.Format(time.RFC3339),
			Position:   e.Position,
		})
	}
	return items
}

// GetFilaStateHandler обрабатывает опрос состояния очереди
// @Summary		Состояние очереди
// @Description	Возвращает чей сейчас ход, остаток времени и списки игроков
// @Tags			fila
// @Produce		json
// @Security		BearerAuth
// @Success		200	{object}	FilaStateResponse		"Текущее состояние"
// @Failure		500	{object}	response.ErrorResponse	"Ошибка сервера (DB_ERROR)"
// @Router			/api/fila/state [get]
func GetFilaStateHandler(c *gin.Context) {
	state, err := rotation.CurrentState(time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка чтения состояния очереди",
			Details: err.Error(),
		})
		return
	}

	confirmed, waiting, err := rotation.ListRoster()
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка загрузки списка игроков",
			Details: err.Error(),
		})
		return
	}

	spots := models.ConfirmedCapacity - len(confirmed)
	if spots < 0 {
		spots = 0
	}

	c.JSON(http.StatusOK, FilaStateResponse{
		State:     state,
		Confirmed: toRosterItems(confirmed),
		Waiting:   toRosterItems(waiting),
		SpotsLeft: spots,
	})
}

// AdvanceFilaHandler обрабатывает продвижение ротации
// @Summary		Продвижение очереди
// @Description	Идемпотентно продвигает ход, если время вышло или активный участник офлайн
// @Tags			fila
// @Produce		json
// @Security		BearerAuth
// @Success		200	{object}	rotation.AdvanceResult	"Состояние после проверки"
// @Failure		500	{object}	response.ErrorResponse	"Ошибка сервера (DB_ERROR)"
// @Router			/api/fila/advance [post]
func AdvanceFilaHandler(c *gin.Context) {
	result, err := rotation.AdvanceIfDue(time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка продвижения очереди",
			Details: err.Error(),
		})
		return
	}

	// Событие рассылает только победивший вызов, иначе каждый опрашивающий
	// клиент продублировал бы уведомление
	if result.WasAdvanced {
		BroadcastAdvance(result)
	}

	c.JSON(http.StatusOK, result)
}

// BroadcastAdvance шлёт ws-событие о переходе хода.
func BroadcastAdvance(result rotation.AdvanceResult) {
	data := map[string]interface{}{
		"reason":            result.Reason,
		"remaining_seconds": result.State.RemainingSeconds,
		"rotation_done":     result.State.RotationDone,
	}
	if result.State.ActiveName != "" {
		data["active_name"] = result.State.ActiveName
	}
	ws.HubInstance.BroadcastWSMessage(ws.WSMessage{
		EventType: ws.EventTurnAdvanced,
		Data:      data,
	})
}

// HeartbeatHandler обрабатывает сигнал присутствия
// @Summary		Heartbeat участника
// @Description	Обновляет отметку присутствия; участник без отметок пропускается досрочно
// @Tags			fila
// @Produce		json
// @Security		BearerAuth
// @Success		200	{object}	response.SuccessResponse	"Отметка обновлена"
// @Failure		500	{object}	response.ErrorResponse		"Ошибка сервера (REDIS_ERROR)"
// @Router			/api/fila/heartbeat [post]
func HeartbeatHandler(c *gin.Context) {
	userID := c.GetUint("userID")
	if err := liveness.Heartbeat(userID, time.Now()); err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "REDIS_ERROR",
			Message: "Ошибка сохранения heartbeat",
			Details: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, response.SuccessResponse{Message: "Отметка присутствия обновлена"})
}
