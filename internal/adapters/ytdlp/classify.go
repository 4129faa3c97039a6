package ytdlp

import (
	"strings"

	"tg-clip-bot/internal/domain"
)

// Таблица соответствий текста ошибок yt-dlp классам отказов, версия 1.
// yt-dlp отдаёт только свободный текст, поэтому сабстринг-эвристика
// изолирована здесь целиком. Всё, что не попало в таблицу, уходит в
// корзину unclassified и логируется вызывающей стороной — не угадываем.
var retryableMarkers = []string{
	"sign in to confirm",         // антибот-проверка
	"login required",             // требуется авторизация
	"http error 403",             // защитный отлуп
	"http error 429",             // rate limiting
	"rate-limit",                 //
	"unable to extract",          // разъехалась схема извлечения
	"requested format is not available", // формат пропал между попытками
}

var terminalMarkers = []string{
	"private video",                 // явно приватное
	"video unavailable",             // удалено или скрыто
	"has been removed",              //
	"account associated with this video has been terminated",
	"not available in your country", // гео-блокировка
	"geo restricted",                //
	"no video formats found",        // нечего проигрывать
}

// classifyFailure относит ошибку yt-dlp к классу по stderr.
func classifyFailure(stderr string) domain.FailureKind {
	lowered := strings.ToLower(stderr)
	for _, marker := range terminalMarkers {
		if strings.Contains(lowered, marker) {
			return domain.FailureTerminal
		}
	}
	for _, marker := range retryableMarkers {
		if strings.Contains(lowered, marker) {
			return domain.FailureRetryable
		}
	}
	return domain.FailureUnclassified
}
