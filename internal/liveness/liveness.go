package liveness

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"volley_queue/internal/storage"

	"github.com/go-redis/redis/v8"
)

var ctx = context.Background()

// StaleThreshold строго больше интервала heartbeat клиентов (10 секунд),
// чтобы один пропущенный сигнал не считался уходом в офлайн.
const (
	HeartbeatInterval = 10 * time.Second
	StaleThreshold    = 25 * time.Second
)

func heartbeatKey(userID uint) string {
	return fmt.Sprintf("heartbeat:%d", userID)
}

// Heartbeat обновляет отметку присутствия участника. Последняя запись побеждает,
// порядок конкурентных вызовов значения не имеет.
func Heartbeat(userID uint, now time.Time) error {
	return storage.RedisClient.Set(ctx, heartbeatKey(userID), now.Unix(), 0).Err()
}

// IsStale сообщает, считается ли участник офлайн: отметки нет вообще
// или она старше порога.
func IsStale(userID uint, now time.Time) (bool, error) {
	val, err := storage.RedisClient.Get(ctx, heartbeatKey(userID)).Result()
	if err == redis.Nil {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	ts, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return true, nil
	}
	return now.Sub(time.Unix(ts, 0)) > StaleThreshold, nil
}
