package tasks

import (
	"log"
	"time"

	"volley_queue/internal/handlers"
	"volley_queue/internal/rotation"

	"github.com/robfig/cron/v3"
)

// AutoAdvanceFila продвигает ротацию, даже если никто из клиентов не опрашивает
// сервер: ход с истёкшим временем или офлайн-участником закрывается фоном.
// Вызов идемпотентен, совпадение с клиентским advance даёт ровно один переход.
func AutoAdvanceFila() {
	result, err := rotation.AdvanceIfDue(time.Now())
	if err != nil {
		log.Println("Ошибка фонового продвижения очереди:", err)
		return
	}
	if result.WasAdvanced {
		log.Printf("Фоновое продвижение очереди: причина=%s, следующий=%s\n",
			result.Reason, result.State.ActiveName)
		handlers.BroadcastAdvance(result)
	}
}

// InitScheduler инициализирует планировщик cron-задач.
func InitScheduler() *cron.Cron {
	c := cron.New(cron.WithSeconds())

	// Проверка ротации каждые 5 секунд.
	_, err := c.AddFunc("*/5 * * * * *", AutoAdvanceFila)
	if err != nil {
		log.Println("Ошибка запуска cron-задачи AutoAdvanceFila:", err)
	}

	c.Start()
	log.Println("Cron-планировщик запущен.")
	return c
}
