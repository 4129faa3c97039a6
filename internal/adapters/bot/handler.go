package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"tg-clip-bot/internal/domain"
	"tg-clip-bot/internal/infra/metrics"
	"tg-clip-bot/internal/usecase/links"
	"tg-clip-bot/internal/usecase/schedule"
)

// pendingLink ссылка, ожидающая токен времени ЧЧ:ММ.
type pendingLink struct {
	url      string
	platform domain.Platform
	key      string
}

// Handler обслуживает входящие сообщения бота.
type Handler struct {
	log        zerolog.Logger
	guard      domain.AccessGuard
	links      *links.Service
	ledger     domain.Ledger
	queue      domain.PublishQueue
	scheduleUC *schedule.Service
	replies    domain.Publisher

	mu           sync.Mutex
	awaitingLink map[int64]struct{}
	pendingTime  map[int64]pendingLink
}

// NewHandler создаёт обработчик.
func NewHandler(log zerolog.Logger, guard domain.AccessGuard, linksUC *links.Service, ledger domain.Ledger, queue domain.PublishQueue, scheduleUC *schedule.Service, replies domain.Publisher) *Handler {
	return &Handler{
		log:          log,
		guard:        guard,
		links:        linksUC,
		ledger:       ledger,
		queue:        queue,
		scheduleUC:   scheduleUC,
		replies:      replies,
		awaitingLink: make(map[int64]struct{}),
		pendingTime:  make(map[int64]pendingLink),
	}
}

// HandleUpdate обрабатывает входящий апдейт.
func (h *Handler) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message != nil {
		h.handleMessage(ctx, upd.Message)
	}
}

func (h *Handler) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	// Не из списка доступа — молчим: бот не выдаёт себя посторонним.
	if !h.guard.IsAllowed(msg.From.ID) {
		return
	}
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	if !strings.HasPrefix(text, "/") {
		if h.tryHandleTimeToken(msg.Chat.ID, msg.From.ID, text) {
			return
		}
	}

	switch {
	case strings.HasPrefix(text, "/start"):
		h.handleStart(msg.Chat.ID)
	case strings.HasPrefix(text, "/add_user"):
		payload := strings.TrimSpace(strings.TrimPrefix(text, "/add_user"))
		h.handleAddUser(msg.Chat.ID, msg.From.ID, payload)
	case strings.HasPrefix(text, "/remove_user"):
		payload := strings.TrimSpace(strings.TrimPrefix(text, "/remove_user"))
		h.handleRemoveUser(msg.Chat.ID, msg.From.ID, payload)
	case strings.HasPrefix(text, "/list_users"):
		h.handleListUsers(msg.Chat.ID)
	case strings.HasPrefix(text, "/schedule"):
		h.handleSchedule(msg.Chat.ID, msg.From.ID)
	case strings.HasPrefix(text, "/"):
		h.replies.Reply(msg.Chat.ID, "Неизвестная команда. Отправьте ссылку на видео или /start")
	default:
		h.handleLink(ctx, msg.Chat.ID, msg.From.ID, text)
	}
}

func (h *Handler) handleStart(chatID int64) {
	h.replies.Reply(chatID, strings.Join([]string{
		"🎬 Кидай ссылку:",
		"• YouTube / Shorts",
		"• VK / VK Video",
		"• TikTok",
		"",
		"Команда /schedule — отложенная публикация.",
	}, "\n"))
}

func (h *Handler) handleAddUser(chatID, userID int64, payload string) {
	if !h.guard.IsAdmin(userID) {
		h.replies.Reply(chatID, "Команда доступна только администратору")
		return
	}
	target, err := strconv.ParseInt(payload, 10, 64)
	if err != nil {
		h.replies.Reply(chatID, "Укажите числовой ID: /add_user 123456")
		return
	}
	result, err := h.guard.AddMember(target)
	if err != nil {
		h.log.Error().Err(err).Int64("target", target).Msg("bot: не удалось добавить пользователя")
		h.replies.Reply(chatID, "Не удалось сохранить пользователя, попробуйте позже")
		return
	}
	switch result {
	case domain.AccessAlreadyPresent:
		h.replies.Reply(chatID, "Пользователь уже в списке")
	default:
		h.replies.Reply(chatID, fmt.Sprintf("Пользователь %d добавлен", target))
	}
}

func (h *Handler) handleRemoveUser(chatID, userID int64, payload string) {
	if !h.guard.IsAdmin(userID) {
		h.replies.Reply(chatID, "Команда доступна только администратору")
		return
	}
	target, err := strconv.ParseInt(payload, 10, 64)
	if err != nil {
		h.replies.Reply(chatID, "Укажите числовой ID: /remove_user 123456")
		return
	}
	result, err := h.guard.RemoveMember(target)
	if err != nil {
		h.log.Error().Err(err).Int64("target", target).Msg("bot: не удалось удалить пользователя")
		h.replies.Reply(chatID, "Не удалось обновить список, попробуйте позже")
		return
	}
	switch result {
	case domain.AccessRejectedAdmin:
		h.replies.Reply(chatID, "Администратора удалить нельзя")
	case domain.AccessNotFound:
		h.replies.Reply(chatID, "Пользователь не найден в списке")
	default:
		h.replies.Reply(chatID, fmt.Sprintf("Пользователь %d удалён", target))
	}
}

func (h *Handler) handleListUsers(chatID int64) {
	members := h.guard.Members()
	if len(members) == 0 {
		h.replies.Reply(chatID, "В списке пока только администраторы")
		return
	}
	var b strings.Builder
	b.WriteString("Допущенные пользователи:\n")
	for i, id := range members {
		b.WriteString(fmt.Sprintf("%d. %d\n", i+1, id))
	}
	h.replies.Reply(chatID, b.String())
}

func (h *Handler) handleSchedule(chatID, userID int64) {
	h.mu.Lock()
	h.awaitingLink[userID] = struct{}{}
	delete(h.pendingTime, userID)
	h.mu.Unlock()
	h.replies.Reply(chatID, "Отправьте ссылку на видео, затем время публикации в формате ЧЧ:ММ")
}

// handleLink принимает ссылку: классификация, раскрытие короткой формы,
// канонический ключ, пре-чек дублей — и либо немедленная очередь, либо
// ожидание времени после /schedule.
func (h *Handler) handleLink(ctx context.Context, chatID, userID int64, text string) {
	platform := h.links.Classify(text)
	if platform == domain.PlatformUnknown {
		h.replies.Reply(chatID, "❌ Неподдерживаемая ссылка")
		return
	}

	expanded := h.links.ExpandShortLink(ctx, text, platform)
	key := h.links.Normalize(expanded, platform)

	if h.ledger.IsDuplicate(key, "") {
		metrics.DuplicateRejections.Inc()
		h.replies.Reply(chatID, "⚠️ Это видео уже публиковалось")
		return
	}

	h.mu.Lock()
	_, deferred := h.awaitingLink[userID]
	if deferred {
		delete(h.awaitingLink, userID)
		h.pendingTime[userID] = pendingLink{url: expanded, platform: platform, key: key}
	}
	h.mu.Unlock()

	if deferred {
		h.replies.Reply(chatID, "Когда опубликовать? Отправьте время в формате ЧЧ:ММ")
		return
	}

	h.replies.Reply(chatID, fmt.Sprintf("⏳ Загружаю (%s)...", platform))
	job := domain.PublishJob{
		URL:        expanded,
		Platform:   platform,
		ContentKey: key,
		ChatID:     chatID,
		Requester:  userID,
		EnqueuedAt: time.Now(),
	}
	if err := h.queue.Enqueue(ctx, job); err != nil {
		h.log.Error().Err(err).Str("url", expanded).Msg("bot: не удалось поставить задачу в очередь")
		h.replies.Reply(chatID, "Не удалось поставить видео в очередь, попробуйте позже")
	}
}

// tryHandleTimeToken обрабатывает токен ЧЧ:ММ, если у пользователя есть
// ссылка в ожидании. Неверный токен не сбрасывает ожидание: пользователь
// может просто прислать время ещё раз.
func (h *Handler) tryHandleTimeToken(chatID, userID int64, text string) bool {
	h.mu.Lock()
	pending, ok := h.pendingTime[userID]
	h.mu.Unlock()
	if !ok {
		return false
	}

	target, err := h.scheduleUC.ParseTargetTime(text, time.Now())
	if err != nil {
		h.replies.Reply(chatID, "❌ Некорректное время. Отправьте в формате ЧЧ:ММ, например 18:30")
		return true
	}

	task := domain.ScheduledTask{
		URL:        pending.url,
		Platform:   pending.platform,
		TargetTime: target,
		Requester:  userID,
		ChatID:     chatID,
	}
	if err := h.scheduleUC.Add(task); err != nil {
		h.log.Error().Err(err).Str("url", pending.url).Msg("bot: не удалось сохранить отложенную задачу")
		h.replies.Reply(chatID, "Не удалось сохранить задачу, попробуйте позже")
		return true
	}

	h.mu.Lock()
	delete(h.pendingTime, userID)
	h.mu.Unlock()

	h.replies.Reply(chatID, fmt.Sprintf("🗓 Запланировано на %s", target.Format("02.01 15:04")))
	return true
}
