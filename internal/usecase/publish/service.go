package publish

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"tg-clip-bot/internal/domain"
	"tg-clip-bot/internal/infra/metrics"
)

// Вопрос и варианты опроса вовлечённости, публикуемого каждым N-м постом.
var (
	pollQuestion = "Как вам видео?"
	pollOptions  = []string{"🔥 Огонь", "😐 Нормально", "👎 Не зашло"}
)

// Service публикует скачанный артефакт в канал: подпись, обложка,
// доставка, фиксация в журнале, каждый N-й пост — опрос.
type Service struct {
	log        zerolog.Logger
	captioner  domain.Captioner
	thumbnails domain.Thumbnailer
	publisher  domain.Publisher
	ledger     domain.Ledger
	counter    domain.CounterStore
	channelID  int64
	pollEvery  int64
}

// NewService создаёт пайплайн публикации.
func NewService(log zerolog.Logger, captioner domain.Captioner, thumbnails domain.Thumbnailer, publisher domain.Publisher, ledger domain.Ledger, counter domain.CounterStore, channelID, pollEvery int64) *Service {
	if pollEvery <= 0 {
		pollEvery = 5
	}
	return &Service{
		log:        log,
		captioner:  captioner,
		thumbnails: thumbnails,
		publisher:  publisher,
		ledger:     ledger,
		counter:    counter,
		channelID:  channelID,
		pollEvery:  pollEvery,
	}
}

// Publish доставляет артефакт в канал. Локальные файлы удаляются на любом
// исходе; журнал фиксируется строго после подтверждённой доставки.
func (s *Service) Publish(ctx context.Context, artifact domain.MediaArtifact, platform domain.Platform, contentKey string) error {
	defer Cleanup(artifact)

	caption, err := s.captioner.Caption(ctx, artifact.Meta)
	if err != nil {
		// Генератор подписей сам падает на шаблон; сюда попадаем, только
		// если и шаблон не собрался. Публикуем без подписи.
		s.log.Warn().Err(err).Msg("publish: подпись не собралась")
		caption = domain.Caption{}
	}

	thumbPath := ""
	if s.thumbnails != nil {
		thumbPath, err = s.thumbnails.Extract(artifact.Path)
		if err != nil {
			s.log.Debug().Err(err).Msg("publish: обложка не извлеклась, отправляем без неё")
			thumbPath = ""
		}
	}

	if err := s.publisher.SendVideo(s.channelID, artifact.Path, caption.Text, thumbPath); err != nil {
		metrics.PublishTotal.WithLabelValues(string(platform), "error").Inc()
		return fmt.Errorf("доставка в канал: %w", err)
	}

	if err := s.ledger.Commit(contentKey, artifact.Meta.ID); err != nil {
		// Доставка состоялась, поэтому ошибка журнала не отменяет публикацию:
		// в худшем случае получим редкий дубль, но не потерю контента.
		s.log.Error().Err(err).Str("key", contentKey).Msg("publish: не удалось зафиксировать журнал")
	}

	total := s.bumpCounter()
	if total > 0 && total%s.pollEvery == 0 {
		if err := s.publisher.SendPoll(s.channelID, pollQuestion, pollOptions); err != nil {
			s.log.Warn().Err(err).Msg("publish: опрос не отправился")
		}
	}

	metrics.PublishTotal.WithLabelValues(string(platform), "success").Inc()
	s.log.Info().Str("key", contentKey).Str("media_id", artifact.Meta.ID).Int64("total", total).
		Msg("publish: опубликовано")
	return nil
}

func (s *Service) bumpCounter() int64 {
	value, err := s.counter.LoadCounter()
	if err != nil {
		s.log.Error().Err(err).Msg("publish: счётчик не прочитался")
		return 0
	}
	value++
	if err := s.counter.SaveCounter(value); err != nil {
		s.log.Error().Err(err).Msg("publish: счётчик не сохранился")
	}
	return value
}

// Cleanup удаляет рабочую директорию артефакта вместе с обложкой.
func Cleanup(artifact domain.MediaArtifact) {
	if artifact.WorkDir != "" {
		_ = os.RemoveAll(artifact.WorkDir)
		return
	}
	if artifact.Path != "" {
		_ = os.Remove(artifact.Path)
	}
}
