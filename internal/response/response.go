package response

// SuccessResponse представляет успешный ответ API
type SuccessResponse struct {
	Message string `json:"message" example:"Операция успешно выполнена"`
}

// ErrorResponse представляет ответ с ошибкой API
type ErrorResponse struct {
	// Код ошибки для программной обработки
	// example: NOT_YOUR_TURN
	Code string `json:"code"`

	// Человекочитаемое сообщение об ошибке
	// example: Сейчас не ваш ход
	Message string `json:"message"`

	// Дополнительные детали об ошибке (опционально)
	// example: активный участник сменился
	Details string `json:"details,omitempty"`
}

// TokenResponse представляет ответ с токенами авторизации
type TokenResponse struct {
	// JWT токен для доступа к защищенным эндпоинтам
	AccessToken string `json:"access_token"`

	// JWT токен для обновления access токена
	RefreshToken string `json:"refresh_token"`
}
