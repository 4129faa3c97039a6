package bot

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"tg-clip-bot/internal/domain"
	"tg-clip-bot/internal/usecase/links"
	"tg-clip-bot/internal/usecase/schedule"
)

type stubGuard struct {
	allowed map[int64]bool
	admins  map[int64]bool
	added   []int64
}

func (g *stubGuard) IsAllowed(id int64) bool { return g.allowed[id] }
func (g *stubGuard) IsAdmin(id int64) bool   { return g.admins[id] }
func (g *stubGuard) AddMember(id int64) (domain.AccessResult, error) {
	if g.allowed[id] {
		return domain.AccessAlreadyPresent, nil
	}
	g.allowed[id] = true
	g.added = append(g.added, id)
	return domain.AccessAdded, nil
}
func (g *stubGuard) RemoveMember(id int64) (domain.AccessResult, error) {
	if g.admins[id] {
		return domain.AccessRejectedAdmin, nil
	}
	if !g.allowed[id] {
		return domain.AccessNotFound, nil
	}
	delete(g.allowed, id)
	return domain.AccessRemoved, nil
}
func (g *stubGuard) Members() []int64 { return g.added }

type stubLedger struct {
	duplicate bool
}

func (l *stubLedger) IsDuplicate(string, string) bool { return l.duplicate }
func (l *stubLedger) Commit(string, string) error     { return nil }

type fakeQueue struct {
	jobs []domain.PublishJob
}

func (q *fakeQueue) Enqueue(_ context.Context, job domain.PublishJob) error {
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *fakeQueue) Pop(context.Context) (domain.PublishJob, error) {
	return domain.PublishJob{}, errors.New("not implemented")
}

type replyRecorder struct {
	texts []string
}

func (r *replyRecorder) SendVideo(int64, string, string, string) error { return nil }
func (r *replyRecorder) SendPoll(int64, string, []string) error        { return nil }
func (r *replyRecorder) Reply(_ int64, text string)                    { r.texts = append(r.texts, text) }

func (r *replyRecorder) last(t *testing.T) string {
	t.Helper()
	if len(r.texts) == 0 {
		t.Fatalf("ожидали хотя бы один ответ")
	}
	return r.texts[len(r.texts)-1]
}

type taskRecorder struct {
	tasks []domain.ScheduledTask
}

func (s *taskRecorder) LoadTasks() ([]domain.ScheduledTask, error) { return s.tasks, nil }
func (s *taskRecorder) SaveTasks(tasks []domain.ScheduledTask) error {
	s.tasks = append([]domain.ScheduledTask(nil), tasks...)
	return nil
}

type handlerEnv struct {
	handler *Handler
	guard   *stubGuard
	ledger  *stubLedger
	queue   *fakeQueue
	replies *replyRecorder
	tasks   *taskRecorder
}

func newHandlerEnv(t *testing.T) *handlerEnv {
	t.Helper()
	guard := &stubGuard{allowed: map[int64]bool{1: true, 42: true}, admins: map[int64]bool{1: true}}
	ledger := &stubLedger{}
	queue := &fakeQueue{}
	replies := &replyRecorder{}
	tasks := &taskRecorder{}

	linksUC := links.NewService(zerolog.Nop(), nil, false)
	scheduleUC, err := schedule.NewService(zerolog.Nop(), tasks, queue, func(rawURL string, platform domain.Platform) string {
		return linksUC.Normalize(rawURL, platform)
	}, 2*time.Minute, time.UTC)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}

	return &handlerEnv{
		handler: NewHandler(zerolog.Nop(), guard, linksUC, ledger, queue, scheduleUC, replies),
		guard:   guard,
		ledger:  ledger,
		queue:   queue,
		replies: replies,
		tasks:   tasks,
	}
}

func (e *handlerEnv) send(userID int64, text string) {
	e.handler.HandleUpdate(context.Background(), tgbotapi.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: userID},
		Chat: &tgbotapi.Chat{ID: userID},
		Text: text,
	}})
}

func TestIgnoresUnknownUsers(t *testing.T) {
	env := newHandlerEnv(t)
	env.send(999, "https://youtu.be/abcXYZ123")
	if len(env.replies.texts) != 0 {
		t.Fatalf("посторонний не должен получать ответов, получили %v", env.replies.texts)
	}
	if len(env.queue.jobs) != 0 {
		t.Fatalf("ссылка постороннего не должна попадать в очередь")
	}
}

func TestStartGreeting(t *testing.T) {
	env := newHandlerEnv(t)
	env.send(42, "/start")
	if !strings.Contains(env.replies.last(t), "Кидай ссылку") {
		t.Fatalf("ожидали приветствие, получили %q", env.replies.last(t))
	}
}

func TestLinkEnqueuedImmediately(t *testing.T) {
	env := newHandlerEnv(t)
	env.send(42, "https://youtu.be/abcXYZ123")

	if !strings.Contains(env.replies.last(t), "Загружаю") {
		t.Fatalf("ожидали подтверждение загрузки, получили %q", env.replies.last(t))
	}
	if len(env.queue.jobs) != 1 {
		t.Fatalf("ссылка должна попасть в очередь")
	}
	job := env.queue.jobs[0]
	if job.Platform != domain.PlatformYouTube || job.ContentKey != "youtube:abcXYZ123" {
		t.Fatalf("задача искажена: %+v", job)
	}
	if job.Requester != 42 {
		t.Fatalf("отправитель должен сохраняться в задаче, получили %d", job.Requester)
	}
}

func TestDuplicatePreCheck(t *testing.T) {
	env := newHandlerEnv(t)
	env.ledger.duplicate = true
	env.send(42, "https://youtu.be/abcXYZ123")

	if !strings.Contains(env.replies.last(t), "уже публиковалось") {
		t.Fatalf("ожидали отказ по дублю, получили %q", env.replies.last(t))
	}
	if len(env.queue.jobs) != 0 {
		t.Fatalf("дубль не должен попадать в очередь")
	}
}

func TestUnsupportedLink(t *testing.T) {
	env := newHandlerEnv(t)
	env.send(42, "https://example.com/watch?v=abc")
	if !strings.Contains(env.replies.last(t), "Неподдерживаемая") {
		t.Fatalf("ожидали отказ по ссылке, получили %q", env.replies.last(t))
	}
}

func TestScheduleFlow(t *testing.T) {
	env := newHandlerEnv(t)

	env.send(42, "/schedule")
	if !strings.Contains(env.replies.last(t), "Отправьте ссылку") {
		t.Fatalf("ожидали запрос ссылки, получили %q", env.replies.last(t))
	}

	env.send(42, "https://youtu.be/abcXYZ123")
	if !strings.Contains(env.replies.last(t), "Когда опубликовать") {
		t.Fatalf("ожидали запрос времени, получили %q", env.replies.last(t))
	}
	if len(env.queue.jobs) != 0 {
		t.Fatalf("отложенная ссылка не должна публиковаться сразу")
	}

	// Неверное время не сбрасывает ожидание.
	env.send(42, "25:61")
	if !strings.Contains(env.replies.last(t), "Некорректное время") {
		t.Fatalf("ожидали отказ по времени, получили %q", env.replies.last(t))
	}

	env.send(42, "18:30")
	if !strings.Contains(env.replies.last(t), "Запланировано") {
		t.Fatalf("ожидали подтверждение планирования, получили %q", env.replies.last(t))
	}
	if len(env.tasks.tasks) != 1 {
		t.Fatalf("задача должна сохраниться")
	}
	task := env.tasks.tasks[0]
	if task.Platform != domain.PlatformYouTube || task.Requester != 42 {
		t.Fatalf("задача искажена: %+v", task)
	}

	// После планирования токен времени снова обычный текст.
	env.send(42, "19:00")
	if !strings.Contains(env.replies.last(t), "Неподдерживаемая") {
		t.Fatalf("без ожидания токен времени — обычный текст, получили %q", env.replies.last(t))
	}
}

func TestAddUserAdminOnly(t *testing.T) {
	env := newHandlerEnv(t)

	env.send(42, "/add_user 77")
	if !strings.Contains(env.replies.last(t), "только администратору") {
		t.Fatalf("не-админ должен получать отказ, получили %q", env.replies.last(t))
	}

	env.send(1, "/add_user 77")
	if !strings.Contains(env.replies.last(t), "добавлен") {
		t.Fatalf("ожидали подтверждение, получили %q", env.replies.last(t))
	}
	if !env.guard.allowed[77] {
		t.Fatalf("пользователь должен быть допущен")
	}

	env.send(1, "/add_user 77")
	if !strings.Contains(env.replies.last(t), "уже в списке") {
		t.Fatalf("повтор должен сообщать о наличии, получили %q", env.replies.last(t))
	}

	env.send(1, "/add_user не-число")
	if !strings.Contains(env.replies.last(t), "числовой ID") {
		t.Fatalf("нечисловой ID должен отклоняться, получили %q", env.replies.last(t))
	}
}

func TestRemoveUserCommand(t *testing.T) {
	env := newHandlerEnv(t)

	env.send(1, "/remove_user 42")
	if !strings.Contains(env.replies.last(t), "удалён") {
		t.Fatalf("ожидали подтверждение удаления, получили %q", env.replies.last(t))
	}

	env.send(1, "/remove_user 42")
	if !strings.Contains(env.replies.last(t), "не найден") {
		t.Fatalf("повторное удаление должно сообщать об отсутствии, получили %q", env.replies.last(t))
	}

	env.send(1, "/remove_user 1")
	if !strings.Contains(env.replies.last(t), "нельзя") {
		t.Fatalf("удаление администратора должно отклоняться, получили %q", env.replies.last(t))
	}
}

func TestUnknownCommand(t *testing.T) {
	env := newHandlerEnv(t)
	env.send(42, "/ping")
	if !strings.Contains(env.replies.last(t), "Неизвестная команда") {
		t.Fatalf("ожидали подсказку, получили %q", env.replies.last(t))
	}
}
