package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"tg-clip-bot/internal/domain"
)

type stubTaskStore struct {
	tasks []domain.ScheduledTask
	saves int
}

func (s *stubTaskStore) LoadTasks() ([]domain.ScheduledTask, error) { return s.tasks, nil }
func (s *stubTaskStore) SaveTasks(tasks []domain.ScheduledTask) error {
	s.tasks = append([]domain.ScheduledTask(nil), tasks...)
	s.saves++
	return nil
}

type captureQueue struct {
	jobs []domain.PublishJob
}

func (q *captureQueue) Enqueue(_ context.Context, job domain.PublishJob) error {
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *captureQueue) Pop(context.Context) (domain.PublishJob, error) {
	return domain.PublishJob{}, errors.New("not implemented")
}

func rawKey(rawURL string, platform domain.Platform) string {
	return string(platform) + ":" + rawURL
}

func newTestService(t *testing.T, store domain.TaskStore, queue domain.PublishQueue) *Service {
	t.Helper()
	s, err := NewService(zerolog.Nop(), store, queue, rawKey, 2*time.Minute, time.UTC)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	return s
}

func TestParseTargetTimeToday(t *testing.T) {
	s := newTestService(t, &stubTaskStore{}, &captureQueue{})
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	target, err := s.ParseTargetTime("18:30", now)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	want := time.Date(2025, 3, 10, 18, 30, 0, 0, time.UTC)
	if !target.Equal(want) {
		t.Fatalf("ожидали %v, получили %v", want, target)
	}
}

func TestParseTargetTimeRollsToTomorrow(t *testing.T) {
	s := newTestService(t, &stubTaskStore{}, &captureQueue{})
	now := time.Date(2025, 3, 10, 19, 0, 0, 0, time.UTC)
	target, err := s.ParseTargetTime("18:30", now)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	want := time.Date(2025, 3, 11, 18, 30, 0, 0, time.UTC)
	if !target.Equal(want) {
		t.Fatalf("ожидали завтрашний день %v, получили %v", want, target)
	}
}

func TestParseTargetTimeInvalid(t *testing.T) {
	s := newTestService(t, &stubTaskStore{}, &captureQueue{})
	if _, err := s.ParseTargetTime("25:61", time.Now()); !errors.Is(err, ErrInvalidTime) {
		t.Fatalf("ожидали ErrInvalidTime, получили %v", err)
	}
}

func TestTickDropsStaleTask(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	store := &stubTaskStore{tasks: []domain.ScheduledTask{{
		URL:        "https://youtu.be/abcXYZ123",
		Platform:   domain.PlatformYouTube,
		TargetTime: now.Add(-2*time.Minute - time.Second),
	}}}
	queue := &captureQueue{}
	s := newTestService(t, store, queue)

	s.Tick(context.Background(), now)

	if len(queue.jobs) != 0 {
		t.Fatalf("просроченная задача не должна публиковаться")
	}
	if len(s.Pending()) != 0 {
		t.Fatalf("просроченная задача должна покинуть список")
	}
	if store.saves != 1 {
		t.Fatalf("изменившийся список должен быть переписан")
	}
}

func TestTickPromotesLateWithinGrace(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	store := &stubTaskStore{tasks: []domain.ScheduledTask{{
		URL:        "https://youtu.be/abcXYZ123",
		Platform:   domain.PlatformYouTube,
		TargetTime: now.Add(-time.Minute),
		Requester:  42,
		ChatID:     42,
	}}}
	queue := &captureQueue{}
	s := newTestService(t, store, queue)

	s.Tick(context.Background(), now)

	if len(queue.jobs) != 1 {
		t.Fatalf("задача в пределах грейс-окна должна публиковаться")
	}
	job := queue.jobs[0]
	if job.ContentKey != "youtube:https://youtu.be/abcXYZ123" {
		t.Fatalf("ключ должен строиться при продвижении, получили %q", job.ContentKey)
	}
	if len(s.Pending()) != 0 {
		t.Fatalf("продвинутая задача должна покинуть список")
	}
}

func TestTickAbsorbsPollGranularity(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	store := &stubTaskStore{tasks: []domain.ScheduledTask{{
		URL:        "https://vk.com/video-1_2",
		Platform:   domain.PlatformVK,
		TargetTime: now.Add(3 * time.Second),
	}}}
	queue := &captureQueue{}
	s := newTestService(t, store, queue)

	s.Tick(context.Background(), now)

	if len(queue.jobs) != 1 {
		t.Fatalf("задача на несколько секунд раньше срока должна публиковаться")
	}
}

func TestTickKeepsFutureTask(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	store := &stubTaskStore{tasks: []domain.ScheduledTask{{
		URL:        "https://vk.com/video-1_2",
		Platform:   domain.PlatformVK,
		TargetTime: now.Add(10 * time.Minute),
	}}}
	queue := &captureQueue{}
	s := newTestService(t, store, queue)

	s.Tick(context.Background(), now)

	if len(queue.jobs) != 0 {
		t.Fatalf("будущая задача не должна публиковаться")
	}
	if len(s.Pending()) != 1 {
		t.Fatalf("будущая задача должна остаться в списке")
	}
	if store.saves != 0 {
		t.Fatalf("без изменений список не переписывается")
	}
}

func TestAddPersists(t *testing.T) {
	store := &stubTaskStore{}
	s := newTestService(t, store, &captureQueue{})
	task := domain.ScheduledTask{
		URL:        "https://youtu.be/abcXYZ123",
		Platform:   domain.PlatformYouTube,
		TargetTime: time.Now().Add(time.Hour),
		Requester:  42,
	}
	if err := s.Add(task); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if store.saves != 1 || len(store.tasks) != 1 {
		t.Fatalf("задача должна быть сохранена")
	}
	if len(s.Pending()) != 1 {
		t.Fatalf("задача должна числиться в ожидании")
	}
}
