package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"volley_queue/internal/models"
	"volley_queue/internal/response"
	"volley_queue/internal/rotation"
	"volley_queue/internal/storage"
	"volley_queue/internal/ws"

	"github.com/gin-gonic/gin"
)

type MarkNameRequest struct {
	PlayerName string `json:"player_name" binding:"required"`
	SkillLevel string `json:"skill_level" binding:"required,oneof=iniciante intermediario avancado"`
}

// rotationError переводит типизированную ошибку движка в HTTP-ответ.
func rotationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, rotation.ErrNotYourTurn):
		c.JSON(http.StatusForbidden, response.ErrorResponse{
			Code:    "NOT_YOUR_TURN",
			Message: "Сейчас не ваш ход",
		})
	case errors.Is(err, rotation.ErrTurnExpired):
		c.JSON(http.StatusForbidden, response.ErrorResponse{
			Code:    "TURN_EXPIRED",
			Message: "Время вашего хода истекло",
		})
	case errors.Is(err, rotation.ErrQuotaExceeded):
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "QUOTA_EXCEEDED",
			Message: "За один ход можно отметить не более двух имён",
		})
	case errors.Is(err, rotation.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Имя игрока не может быть пустым",
		})
	case errors.Is(err, rotation.ErrNotFound):
		c.JSON(http.StatusNotFound, response.ErrorResponse{
			Code:    "NOT_FOUND",
			Message: "Запись не найдена",
		})
	case errors.Is(err, rotation.ErrUnauthorized):
		c.JSON(http.StatusForbidden, response.ErrorResponse{
			Code:    "FORBIDDEN",
			Message: "Удалять запись может только её автор или администратор",
		})
	case errors.Is(err, rotation.ErrConflict):
		c.JSON(http.StatusConflict, response.ErrorResponse{
			Code:    "CONFLICT_RETRY",
			Message: "Состояние очереди изменилось, обновите страницу и повторите",
		})
	default:
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка сервера",
			Details: err.Error(),
		})
	}
}

// MarkNameHandler обрабатывает отметку имени игрока
// @Summary		Отметить имя
// @Description	Добавляет игрока в список от лица участника, чей сейчас ход (до двух имён за ход)
// @Tags			roster
// @Accept			json
// @Produce		json
// @Param			entry	body	MarkNameRequest	true	"Имя и уровень игрока"
// @Security		BearerAuth
// @Success		200	{object}	RosterItem				"Созданная отметка"
// @Failure		400	{object}	response.ErrorResponse	"Ошибка валидации (VALIDATION_ERROR, QUOTA_EXCEEDED)"
// @Failure		403	{object}	response.ErrorResponse	"Не ваш ход (NOT_YOUR_TURN) или время вышло (TURN_EXPIRED)"
// @Failure		409	{object}	response.ErrorResponse	"Гонка обновления (CONFLICT_RETRY)"
// @Failure		500	{object}	response.ErrorResponse	"Ошибка сервера (DB_ERROR)"
// @Router			/api/roster/mark [post]
func MarkNameHandler(c *gin.Context) {
	var req MarkNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Ошибка валидации данных",
			Details: err.Error(),
		})
		return
	}

	userID := c.GetUint("userID")
	entry, err := rotation.MarkName(userID, req.PlayerName, req.SkillLevel, time.Now())
	if err != nil {
		rotationError(c, err)
		return
	}

	ws.HubInstance.BroadcastWSMessage(ws.WSMessage{
		EventType: ws.EventNameMarked,
		Data: map[string]interface{}{
			"player_name": entry.PlayerName,
			"position":    entry.Position,
			"is_waiting":  entry.IsWaiting,
		},
	})

	c.JSON(http.StatusOK, RosterItem{
		EntryID:    entry.ID,
		PlayerName: entry.PlayerName,
		SkillLevel: entry.SkillLevel,
		MarkedByID: entry.MarkedByID,
		MarkedAt:   entry.MarkedAt.Format(time.RFC3339),
		Position:   entry.Position,
	})
}

// DeleteEntryHandler обрабатывает удаление отметки
// @Summary		Удалить отметку
// @Description	Удаляет запись из списка; позиции остальных не пересчитываются, ход не меняется
// @Tags			roster
// @Produce		json
// @Param			id	path	string	true	"ID записи"
// @Security		BearerAuth
// @Success		200	{object}	response.SuccessResponse	"Запись удалена"
// @Failure		400	{object}	response.ErrorResponse	"Неверный идентификатор (INVALID_ENTRY_ID)"
// @Failure		403	{object}	response.ErrorResponse	"Нет прав (FORBIDDEN)"
// @Failure		404	{object}	response.ErrorResponse	"Запись не найдена (NOT_FOUND)"
// @Failure		500	{object}	response.ErrorResponse	"Ошибка сервера (DB_ERROR)"
// @Router			/api/roster/entries/{id} [delete]
func DeleteEntryHandler(c *gin.Context) {
	entryID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "INVALID_ENTRY_ID",
			Message: "Неверный идентификатор записи",
		})
		return
	}

	userID := c.GetUint("userID")

	var user models.User
	isAdmin := false
	if err := storage.DB.First(&user, userID).Error; err == nil {
		isAdmin = user.IsAdmin
	}

	if err := rotation.DeleteEntry(userID, uint(entryID), isAdmin); err != nil {
		rotationError(c, err)
		return
	}

	ws.HubInstance.BroadcastWSMessage(ws.WSMessage{
		EventType: ws.EventEntryDeleted,
		Data: map[string]interface{}{
			"entry_id": entryID,
		},
	})

	c.JSON(http.StatusOK, response.SuccessResponse{Message: "Запись удалена"})
}
