package bot

import (
	"context"
	"errors"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"tg-clip-bot/internal/infra/metrics"
)

const (
	pollTimeoutSeconds  = 30
	maxConflictRetries  = 10
	maxConflictBackoff  = time.Minute
	transportRetryPause = 5 * time.Second
)

// ErrConflictExhausted второй экземпляр бота так и не ушёл с long polling.
var ErrConflictExhausted = errors.New("bot: конфликт long polling не разрешился")

// Poller длинный опрос Bot API. Конфликт 409 (второй экземпляр бота на
// том же токене) не валит процесс сразу: отступаем с растущей паузой и
// сдаёмся только после исчерпания попыток.
type Poller struct {
	bot     *tgbotapi.BotAPI
	log     zerolog.Logger
	handler *Handler
}

// NewPoller создаёт поллер.
func NewPoller(bot *tgbotapi.BotAPI, log zerolog.Logger, handler *Handler) *Poller {
	return &Poller{bot: bot, log: log, handler: handler}
}

// Run крутит цикл получения апдейтов до отмены контекста.
func (p *Poller) Run(ctx context.Context) error {
	offset := 0
	conflicts := 0
	backoff := time.Second

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		u := tgbotapi.NewUpdate(offset)
		u.Timeout = pollTimeoutSeconds

		start := time.Now()
		updates, err := p.bot.GetUpdates(u)
		metrics.ObserveNetworkRequest("telegram_bot", "get_updates", start, err)
		if err != nil {
			if isConflict(err) {
				conflicts++
				metrics.TransportConflicts.Inc()
				if conflicts > maxConflictRetries {
					p.log.Error().Err(err).Msg("bot: конфликт не разрешился, выходим")
					return ErrConflictExhausted
				}
				p.log.Warn().Err(err).Int("attempt", conflicts).Dur("backoff", backoff).
					Msg("bot: обнаружен второй экземпляр, отступаем")
				sleepCtx(ctx, backoff)
				backoff *= 2
				if backoff > maxConflictBackoff {
					backoff = maxConflictBackoff
				}
				continue
			}
			p.log.Error().Err(err).Msg("bot: ошибка получения апдейтов")
			sleepCtx(ctx, transportRetryPause)
			continue
		}

		conflicts = 0
		backoff = time.Second

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			p.handler.HandleUpdate(ctx, upd)
		}
	}
}

func isConflict(err error) bool {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == 409 {
		return true
	}
	return strings.Contains(err.Error(), "Conflict")
}

func sleepCtx(ctx context.Context, d time.Duration) {
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}
