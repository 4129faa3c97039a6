package telegram

import (
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"tg-clip-bot/internal/infra/metrics"
)

// Лимиты Telegram: длина сообщения и длина подписи к медиа.
const (
	messageLimit = 4096
	captionLimit = 1024
)

// Sender отправляет видео, опросы и текстовые ответы через Bot API.
type Sender struct {
	bot *tgbotapi.BotAPI
	log zerolog.Logger
}

// NewSender создаёт отправителя.
func NewSender(bot *tgbotapi.BotAPI, log zerolog.Logger) *Sender {
	return &Sender{bot: bot, log: log}
}

// SendVideo доставляет ролик в канал. thumbPath может быть пустым.
func (s *Sender) SendVideo(channelID int64, videoPath, caption, thumbPath string) error {
	video := tgbotapi.NewVideo(channelID, tgbotapi.FilePath(videoPath))
	video.Caption = TrimCaption(caption)
	video.SupportsStreaming = true
	if thumbPath != "" {
		video.Thumb = tgbotapi.FilePath(thumbPath)
	}
	start := time.Now()
	_, err := s.bot.Send(video)
	metrics.ObserveNetworkRequest("telegram_bot", "send_video", start, err)
	if err != nil {
		return fmt.Errorf("отправка видео в канал: %w", err)
	}
	return nil
}

// SendPoll публикует опрос вовлечённости. Ошибка отдаётся вызывающему,
// который решает, фатальна ли она (для опроса — нет).
func (s *Sender) SendPoll(channelID int64, question string, options []string) error {
	poll := tgbotapi.NewPoll(channelID, question, options...)
	poll.IsAnonymous = true
	start := time.Now()
	_, err := s.bot.Send(poll)
	metrics.ObserveNetworkRequest("telegram_bot", "send_poll", start, err)
	if err != nil {
		return fmt.Errorf("отправка опроса: %w", err)
	}
	return nil
}

// Reply отвечает отправителю. Длинный текст режется по лимиту сообщений.
func (s *Sender) Reply(chatID int64, text string) {
	for _, part := range SplitMessage(text) {
		msg := tgbotapi.NewMessage(chatID, part)
		start := time.Now()
		_, err := s.bot.Send(msg)
		metrics.ObserveNetworkRequest("telegram_bot", "send_message", start, err)
		if err != nil {
			s.log.Error().Err(err).Int64("chat", chatID).Msg("telegram: не удалось отправить сообщение")
			return
		}
	}
}

// TrimCaption укорачивает подпись до лимита Telegram, сохраняя целые строки,
// где это возможно.
func TrimCaption(caption string) string {
	runes := []rune(strings.TrimSpace(caption))
	if len(runes) <= captionLimit {
		return string(runes)
	}
	cut := string(runes[:captionLimit])
	if idx := strings.LastIndex(cut, "\n"); idx > 0 {
		return strings.TrimSpace(cut[:idx])
	}
	return strings.TrimSpace(cut)
}

// SplitMessage режет текст на части в пределах лимита сообщения,
// предпочитая границы строк.
func SplitMessage(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	runes := []rune(trimmed)
	if len(runes) <= messageLimit {
		return []string{trimmed}
	}
	var parts []string
	for len(runes) > 0 {
		if len(runes) <= messageLimit {
			if chunk := strings.Trim(string(runes), "\n"); chunk != "" {
				parts = append(parts, chunk)
			}
			break
		}
		split := messageLimit
		for i := messageLimit; i > 0; i-- {
			if runes[i-1] == '\n' {
				split = i
				break
			}
		}
		if chunk := strings.Trim(string(runes[:split]), "\n"); chunk != "" {
			parts = append(parts, chunk)
		}
		runes = runes[split:]
	}
	return parts
}
