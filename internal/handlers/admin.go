package handlers

import (
	"net/http"
	"time"

	"volley_queue/internal/models"
	"volley_queue/internal/response"
	"volley_queue/internal/rotation"
	"volley_queue/internal/storage"
	"volley_queue/internal/teams"
	"volley_queue/internal/ws"

	"github.com/gin-gonic/gin"
)

// ResetFilaHandler обрабатывает сброс порядка ходов
// @Summary		Сброс ротации
// @Description	Очищает состояние хода и пересеивает порядок из всех зарегистрированных пользователей
// @Tags			admin
// @Produce		json
// @Security		BearerAuth
// @Success		200	{object}	response.SuccessResponse	"Ротация перезапущена"
// @Failure		403	{object}	response.ErrorResponse	"Нет прав (FORBIDDEN)"
// @Failure		500	{object}	response.ErrorResponse	"Ошибка сервера (DB_ERROR)"
// @Router			/api/admin/fila/reset [post]
func ResetFilaHandler(c *gin.Context) {
	if err := rotation.ResetRotation(time.Now()); err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка сброса ротации",
			Details: err.Error(),
		})
		return
	}

	ws.HubInstance.BroadcastWSMessage(ws.WSMessage{EventType: ws.EventFilaReset})

	c.JSON(http.StatusOK, response.SuccessResponse{Message: "Порядок ходов перезапущен"})
}

// ClearRosterHandler обрабатывает очистку списка игроков
// @Summary		Очистка списка
// @Description	Удаляет все отметки; состояние хода не меняется
// @Tags			admin
// @Produce		json
// @Security		BearerAuth
// @Success		200	{object}	response.SuccessResponse	"Список очищен"
// @Failure		403	{object}	response.ErrorResponse	"Нет прав (FORBIDDEN)"
// @Failure		500	{object}	response.ErrorResponse	"Ошибка сервера (DB_ERROR)"
// @Router			/api/admin/roster/clear [post]
func ClearRosterHandler(c *gin.Context) {
	if err := rotation.ClearRoster(); err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка очистки списка",
			Details: err.Error(),
		})
		return
	}

	ws.HubInstance.BroadcastWSMessage(ws.WSMessage{EventType: ws.EventRosterCleared})

	c.JSON(http.StatusOK, response.SuccessResponse{Message: "Список игроков очищен"})
}

// BalancedTeamsResponse — две сбалансированные команды.
type BalancedTeamsResponse struct {
	Team1 teams.Team `json:"team1"`
	Team2 teams.Team `json:"team2"`
}

// GetBalancedTeamsHandler обрабатывает генерацию сбалансированных команд
// @Summary		Генерация команд
// @Description	Делит 12 подтверждённых игроков на две команды по уровню
// @Tags			admin
// @Produce		json
// @Security		BearerAuth
// @Success		200	{object}	BalancedTeamsResponse	"Сбалансированные команды"
// @Failure		400	{object}	response.ErrorResponse	"Недостаточно игроков (NOT_ENOUGH_PLAYERS)"
// @Failure		403	{object}	response.ErrorResponse	"Нет прав (FORBIDDEN)"
// @Failure		500	{object}	response.ErrorResponse	"Ошибка сервера (DB_ERROR)"
// @Router			/api/admin/teams [get]
func GetBalancedTeamsHandler(c *gin.Context) {
	var confirmed []models.RosterEntry
	if err := storage.DB.Where("is_waiting = ?", false).
		Order("position ASC").Find(&confirmed).Error; err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка загрузки списка игроков",
			Details: err.Error(),
		})
		return
	}

	team1, team2, err := teams.Balance(confirmed)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "NOT_ENOUGH_PLAYERS",
			Message: "Для генерации команд нужно ровно 12 подтверждённых игроков",
		})
		return
	}

	c.JSON(http.StatusOK, BalancedTeamsResponse{Team1: team1, Team2: team2})
}
