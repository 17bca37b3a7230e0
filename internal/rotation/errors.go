package rotation

import "errors"

// Типизированные ошибки движка ротации. Обработчики превращают их
// в коды ответа для клиента, внутрь они не фатальны.
var (
	ErrNotYourTurn   = errors.New("сейчас не ваш ход")
	ErrTurnExpired   = errors.New("время хода истекло")
	ErrQuotaExceeded = errors.New("лимит имён за ход исчерпан")
	ErrInvalidInput  = errors.New("некорректные данные")
	ErrNotFound      = errors.New("запись не найдена")
	ErrUnauthorized  = errors.New("нет прав на операцию")
	ErrConflict      = errors.New("состояние изменилось, повторите запрос")
)
