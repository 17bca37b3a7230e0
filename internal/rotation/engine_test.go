package rotation

import (
	"fmt"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"volley_queue/internal/liveness"
	"volley_queue/internal/models"
	"volley_queue/internal/storage"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
)

func setupTestDB(t *testing.T) {
	key := os.Getenv("ENV_CHEK")
	if key == "" {
		fmt.Println("Подключение к .env")
		if err := godotenv.Load("../../.env"); err != nil {
			log.Fatal("Ошибка получения .env")
		}
	}

	storage.ConnectTestingDatabase()
	storage.DB.Exec("TRUNCATE TABLE users, queue_members, turn_states, roster_entries RESTART IDENTITY CASCADE;")

	if err := storage.DB.AutoMigrate(&models.User{}, &models.QueueMember{}, &models.TurnState{}, &models.RosterEntry{}); err != nil {
		log.Fatal("Ошибка при миграции... ", err.Error())
	}

	storage.InitRedis()
}

func createTestUsers(t *testing.T, n int) []models.User {
	users := make([]models.User, 0, n)
	for i := 1; i <= n; i++ {
		u := models.User{
			Name:         fmt.Sprintf("Участник %d", i),
			Email:        fmt.Sprintf("user%d_%d@example.com", i, time.Now().UnixNano()),
			PasswordHash: "hashed",
			SkillLevel:   models.SkillBeginner,
		}
		assert.NoError(t, storage.DB.Create(&u).Error)
		// Heartbeat сразу, чтобы офлайн-пропуск не срабатывал там, где не ожидается
		assert.NoError(t, liveness.Heartbeat(u.ID, time.Now()))
		users = append(users, u)
	}
	return users
}

// forceTurnStart сдвигает начало текущего хода в прошлое.
func forceTurnStart(t *testing.T, ago time.Duration) {
	started := time.Now().Add(-ago)
	assert.NoError(t, storage.DB.Model(&models.TurnState{}).
		Where("1 = 1").Update("turn_started_at", started).Error)
}

func activeMember(t *testing.T) *models.QueueMember {
	var members []models.QueueMember
	assert.NoError(t, storage.DB.Where("status = ?", models.MemberActive).Find(&members).Error)
	assert.LessOrEqual(t, len(members), 1, "активным должен быть не более чем один участник")
	if len(members) == 0 {
		return nil
	}
	return &members[0]
}

func TestSeedingIsIdempotent(t *testing.T) {
	setupTestDB(t)
	users := createTestUsers(t, 3)

	assert.NoError(t, EnsureSeeded(time.Now()))
	assert.NoError(t, EnsureSeeded(time.Now()))

	var count int64
	storage.DB.Model(&models.QueueMember{}).Count(&count)
	assert.EqualValues(t, 3, count, "повторный посев не должен создавать участников")

	active := activeMember(t)
	assert.NotNil(t, active)
	assert.Equal(t, users[0].ID, active.UserID, "активным должен стать первый по регистрации")
	assert.Equal(t, 1, active.Order)
}

func TestTurnStateSingleRow(t *testing.T) {
	setupTestDB(t)
	createTestUsers(t, 2)

	// Два клиента одновременно обращаются к пустой таблице состояния:
	// строка-одиночка создаётся под фиксированным id, дубликат невозможен
	const callers = 2
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = CurrentState(time.Now())
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		assert.NoError(t, errs[i])
	}

	var count int64
	storage.DB.Model(&models.TurnState{}).Count(&count)
	assert.EqualValues(t, 1, count, "строка состояния должна быть ровно одна")

	state := loadTurnState(t)
	assert.EqualValues(t, 1, state.ID)
}

func TestAdvanceIsNoopBeforeTimeout(t *testing.T) {
	setupTestDB(t)
	createTestUsers(t, 3)
	assert.NoError(t, EnsureSeeded(time.Now()))

	first, err := AdvanceIfDue(time.Now())
	assert.NoError(t, err)
	assert.False(t, first.WasAdvanced)
	assert.Equal(t, ReasonNone, first.Reason)

	second, err := AdvanceIfDue(time.Now())
	assert.NoError(t, err)
	assert.False(t, second.WasAdvanced, "повторный вызов без истёкшего времени должен быть no-op")
	assert.Equal(t, first.State.ActiveMemberID, second.State.ActiveMemberID)
	assert.Equal(t, first.State.MarksUsed, second.State.MarksUsed)
}

func TestTimeoutAdvancesToNextMember(t *testing.T) {
	setupTestDB(t)
	users := createTestUsers(t, 3)
	assert.NoError(t, EnsureSeeded(time.Now()))
	forceTurnStart(t, 61*time.Second)

	result, err := AdvanceIfDue(time.Now())
	assert.NoError(t, err)
	assert.True(t, result.WasAdvanced)
	assert.Equal(t, ReasonTimeout, result.Reason)
	assert.Equal(t, 0, result.State.MarksUsed, "счётчик отметок должен сброситься")

	active := activeMember(t)
	assert.NotNil(t, active)
	assert.Equal(t, users[1].ID, active.UserID, "ход должен перейти ко второму участнику")

	// Статусы монотонны по порядку: до активного — finished, после — pending
	var members []models.QueueMember
	assert.NoError(t, storage.DB.Order("turn_order ASC").Find(&members).Error)
	for _, m := range members {
		switch {
		case m.Order < active.Order:
			assert.Equal(t, models.MemberFinished, m.Status)
		case m.Order > active.Order:
			assert.Equal(t, models.MemberPending, m.Status)
		}
	}
}

func TestOfflineMemberIsSkipped(t *testing.T) {
	setupTestDB(t)
	users := createTestUsers(t, 2)
	assert.NoError(t, EnsureSeeded(time.Now()))

	// Активный участник давно не присылал heartbeat, ход идёт дольше грейс-периода
	old := time.Now().Add(-liveness.StaleThreshold - time.Minute)
	assert.NoError(t, liveness.Heartbeat(users[0].ID, old))
	forceTurnStart(t, OfflineGrace+5*time.Second)

	result, err := AdvanceIfDue(time.Now())
	assert.NoError(t, err)
	assert.True(t, result.WasAdvanced)
	assert.Equal(t, ReasonOffline, result.Reason, "пропуск офлайн-участника должен помечаться отдельно от таймаута")

	active := activeMember(t)
	assert.NotNil(t, active)
	assert.Equal(t, users[1].ID, active.UserID)
}

func TestOnlineMemberIsNotSkippedEarly(t *testing.T) {
	setupTestDB(t)
	users := createTestUsers(t, 2)
	assert.NoError(t, EnsureSeeded(time.Now()))

	assert.NoError(t, liveness.Heartbeat(users[0].ID, time.Now()))
	forceTurnStart(t, OfflineGrace+5*time.Second)

	result, err := AdvanceIfDue(time.Now())
	assert.NoError(t, err)
	assert.False(t, result.WasAdvanced, "живой участник не должен пропускаться до таймаута")
}

func TestRotationExhaustionAndReset(t *testing.T) {
	setupTestDB(t)
	createTestUsers(t, 2)
	assert.NoError(t, EnsureSeeded(time.Now()))

	for i := 0; i < 2; i++ {
		forceTurnStart(t, 61*time.Second)
		result, err := AdvanceIfDue(time.Now())
		assert.NoError(t, err)
		assert.True(t, result.WasAdvanced)
	}

	state, err := CurrentState(time.Now())
	assert.NoError(t, err)
	assert.Nil(t, state.ActiveMemberID, "после последнего участника активного быть не должно")
	assert.True(t, state.RotationDone)
	assert.Equal(t, 0, state.RemainingSeconds)

	// Новый пользователь не попадает в исчерпанную ротацию сам по себе
	createTestUsers(t, 1)
	result, err := AdvanceIfDue(time.Now())
	assert.NoError(t, err)
	assert.False(t, result.WasAdvanced, "возобновление возможно только явным сбросом")

	// Сброс пересеивает порядок уже из трёх пользователей
	assert.NoError(t, ResetRotation(time.Now()))
	var count int64
	storage.DB.Model(&models.QueueMember{}).Count(&count)
	assert.EqualValues(t, 3, count)
	active := activeMember(t)
	assert.NotNil(t, active)
	assert.Equal(t, 1, active.Order)
}

func TestConcurrentAdvanceSingleTransition(t *testing.T) {
	setupTestDB(t)
	users := createTestUsers(t, 3)
	assert.NoError(t, EnsureSeeded(time.Now()))
	forceTurnStart(t, 61*time.Second)

	const callers = 2
	results := make([]AdvanceResult, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = AdvanceIfDue(time.Now())
		}(i)
	}
	wg.Wait()

	advanced := 0
	for i := 0; i < callers; i++ {
		assert.NoError(t, errs[i])
		if results[i].WasAdvanced {
			advanced++
		}
	}
	assert.Equal(t, 1, advanced, "из конкурирующих вызовов продвинуть ход должен ровно один")

	active := activeMember(t)
	assert.NotNil(t, active)
	assert.Equal(t, users[1].ID, active.UserID)
	for i := 0; i < callers; i++ {
		assert.NotNil(t, results[i].State.ActiveMemberID)
		assert.Equal(t, active.ID, *results[i].State.ActiveMemberID,
			"оба вызова должны вернуть состояние после единственного перехода")
	}
}

func TestRemainingSecondsDerivedFromStoredStart(t *testing.T) {
	started := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	id := uint(1)
	state := &models.TurnState{ActiveMemberID: &id, TurnStartedAt: &started}

	// Остаток всегда пересчитывается от сохранённого старта: сдвиг часов
	// клиента самоисправляется на следующем опросе
	assert.Equal(t, TurnWindowSeconds, RemainingSeconds(state, started))
	assert.Equal(t, 35, RemainingSeconds(state, started.Add(25*time.Second)))
	assert.Equal(t, 0, RemainingSeconds(state, started.Add(61*time.Second)))
	assert.Equal(t, 0, RemainingSeconds(state, started.Add(time.Hour)))

	// Часы наблюдателя отстали от штампа в базе — остаток не выходит за окно
	assert.Equal(t, TurnWindowSeconds, RemainingSeconds(state, started.Add(-5*time.Second)))
}
