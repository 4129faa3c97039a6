package schedule

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"tg-clip-bot/internal/domain"
	"tg-clip-bot/internal/infra/metrics"
)

// ErrInvalidTime возвращается на токен времени вне формата ЧЧ:ММ.
var ErrInvalidTime = errors.New("некорректное время, нужен формат ЧЧ:ММ")

// Ранний допуск поглощает гранулярность тика: задача, до которой осталось
// меньше этого, считается наступившей.
const earlyAllowance = 5 * time.Second

// KeyFunc приводит ссылку задачи к каноническому ключу при продвижении.
type KeyFunc func(rawURL string, platform domain.Platform) string

// Service хранит отложенные публикации и по тику продвигает наступившие
// в очередь. Просроченные сверх грейс-окна задачи отбрасываются без
// попытки публикации, чтобы после простоя не выстрелил залп устаревших.
type Service struct {
	log   zerolog.Logger
	store domain.TaskStore
	queue domain.PublishQueue
	keyFn KeyFunc
	grace time.Duration
	loc   *time.Location

	mu    sync.Mutex
	tasks []domain.ScheduledTask
}

// NewService восстанавливает отложенные задачи из хранилища.
func NewService(log zerolog.Logger, store domain.TaskStore, queue domain.PublishQueue, keyFn KeyFunc, grace time.Duration, loc *time.Location) (*Service, error) {
	if grace <= 0 {
		grace = 2 * time.Minute
	}
	if loc == nil {
		loc = time.Local
	}
	tasks, err := store.LoadTasks()
	if err != nil {
		return nil, fmt.Errorf("загрузка отложенных задач: %w", err)
	}
	return &Service{log: log, store: store, queue: queue, keyFn: keyFn, grace: grace, loc: loc, tasks: tasks}, nil
}

// ParseTargetTime разбирает токен ЧЧ:ММ и возвращает ближайший момент
// локального времени: сегодня, а если время уже прошло — завтра.
func (s *Service) ParseTargetTime(token string, now time.Time) (time.Time, error) {
	parsed, err := time.Parse("15:04", strings.TrimSpace(token))
	if err != nil {
		return time.Time{}, ErrInvalidTime
	}
	localNow := now.In(s.loc)
	target := time.Date(localNow.Year(), localNow.Month(), localNow.Day(),
		parsed.Hour(), parsed.Minute(), 0, 0, s.loc)
	if !target.After(localNow) {
		target = target.AddDate(0, 0, 1)
	}
	return target, nil
}

// Add сохраняет задачу. Список на диске переписывается целиком.
func (s *Service) Add(task domain.ScheduledTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	updated := append(append([]domain.ScheduledTask(nil), s.tasks...), task)
	if err := s.store.SaveTasks(updated); err != nil {
		return fmt.Errorf("сохранение задач: %w", err)
	}
	s.tasks = updated
	return nil
}

// Pending возвращает копию списка отложенных задач.
func (s *Service) Pending() []domain.ScheduledTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ScheduledTask(nil), s.tasks...)
}

// Run крутит тики до отмены контекста.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Tick(ctx, now)
		}
	}
}

// Tick продвигает наступившие задачи и отбрасывает просроченные.
// Задача покидает список в обоих случаях: повторов не бывает.
func (s *Service) Tick(ctx context.Context, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var remaining []domain.ScheduledTask
	changed := false
	for _, task := range s.tasks {
		wait := task.TargetTime.Sub(now)
		if wait > earlyAllowance {
			remaining = append(remaining, task)
			continue
		}
		changed = true
		if now.Sub(task.TargetTime) > s.grace {
			metrics.ScheduledDropped.Inc()
			s.log.Warn().Str("url", task.URL).Time("target", task.TargetTime).
				Msg("schedule: задача просрочена сверх грейс-окна, пропускаем")
			continue
		}
		job := domain.PublishJob{
			URL:        task.URL,
			Platform:   task.Platform,
			ContentKey: s.keyFn(task.URL, task.Platform),
			ChatID:     task.ChatID,
			Requester:  task.Requester,
			EnqueuedAt: now,
		}
		if err := s.queue.Enqueue(ctx, job); err != nil {
			s.log.Error().Err(err).Str("url", task.URL).Msg("schedule: не удалось поставить задачу в очередь")
			// Задача всё равно покидает список: отложенный повтор не обещан.
			continue
		}
		metrics.ScheduledPromoted.Inc()
		s.log.Info().Str("url", task.URL).Time("target", task.TargetTime).Msg("schedule: задача продвинута")
	}

	if !changed {
		return
	}
	s.tasks = remaining
	if err := s.store.SaveTasks(remaining); err != nil {
		s.log.Error().Err(err).Msg("schedule: не удалось переписать список задач")
	}
}
