package publish

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"tg-clip-bot/internal/domain"
	"tg-clip-bot/internal/infra/metrics"
)

// Worker единственный потребитель очереди публикаций: скачивание и
// доставка строго последовательны, после каждой успешной публикации
// выдерживается пауза — платформы наказывают за всплески трафика.
type Worker struct {
	log            zerolog.Logger
	queue          domain.PublishQueue
	resolver       domain.Resolver
	pipeline       *Service
	ledger         domain.Ledger
	replies        domain.Publisher
	pausePrimary   time.Duration
	pauseSecondary time.Duration
}

// NewWorker создаёт воркера.
func NewWorker(log zerolog.Logger, queue domain.PublishQueue, resolver domain.Resolver, pipeline *Service, ledger domain.Ledger, replies domain.Publisher, pausePrimary, pauseSecondary time.Duration) *Worker {
	return &Worker{
		log:            log,
		queue:          queue,
		resolver:       resolver,
		pipeline:       pipeline,
		ledger:         ledger,
		replies:        replies,
		pausePrimary:   pausePrimary,
		pauseSecondary: pauseSecondary,
	}
}

// Run крутит цикл обработки до отмены контекста.
func (w *Worker) Run(ctx context.Context) {
	for {
		job, err := w.queue.Pop(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			w.log.Error().Err(err).Msg("worker: ошибка чтения очереди")
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}
		if w.handle(ctx, job) {
			w.pause(ctx, job.Platform)
		}
	}
}

// handle обрабатывает одну задачу; true означает успешную публикацию.
func (w *Worker) handle(ctx context.Context, job domain.PublishJob) bool {
	jobLog := w.log.With().
		Str("url", job.URL).
		Str("platform", string(job.Platform)).
		Int64("requester", job.Requester).
		Logger()

	artifact, err := w.resolver.Resolve(ctx, job.URL, job.Platform)
	if err != nil {
		jobLog.Error().Err(err).Msg("worker: скачивание не удалось")
		w.replies.Reply(job.ChatID, downloadFailureReply(err))
		return false
	}

	// Вторая ось дедупликации: media ID известен только после скачивания
	// и ловит одинаковый контент за разными ссылками.
	if w.ledger.IsDuplicate(job.ContentKey, artifact.Meta.ID) {
		Cleanup(artifact)
		metrics.DuplicateRejections.Inc()
		jobLog.Info().Str("media_id", artifact.Meta.ID).Msg("worker: дубль по media ID")
		w.replies.Reply(job.ChatID, "⚠️ Это видео уже публиковалось")
		return false
	}

	if err := w.pipeline.Publish(ctx, artifact, job.Platform, job.ContentKey); err != nil {
		jobLog.Error().Err(err).Msg("worker: публикация не удалась")
		w.replies.Reply(job.ChatID, "❌ Не удалось отправить видео в канал, попробуйте позже")
		return false
	}

	w.replies.Reply(job.ChatID, "✅ Опубликовано")
	return true
}

func (w *Worker) pause(ctx context.Context, platform domain.Platform) {
	pause := w.pauseSecondary
	if platform == domain.PlatformYouTube {
		pause = w.pausePrimary
	}
	if pause <= 0 {
		return
	}
	select {
	case <-time.After(pause):
	case <-ctx.Done():
	}
}

// downloadFailureReply переводит классифицированную ошибку скачивания
// в ответ отправителю.
func downloadFailureReply(err error) string {
	var dlErr *domain.DownloadError
	if !errors.As(err, &dlErr) {
		return "❌ Не удалось скачать видео"
	}
	switch dlErr.Kind {
	case domain.FailureTerminal:
		return "❌ Видео недоступно: приватное, удалено или заблокировано в регионе"
	case domain.FailureRetryable:
		if dlErr.TriedAll {
			return "❌ Перепробовали все варианты скачивания. Попробуйте другую ссылку или повторите позже"
		}
		return "❌ Платформа не отдала видео, попробуйте позже"
	default:
		return "❌ Не удалось скачать видео"
	}
}
