package domain

import "fmt"

// FailureKind классифицирует ошибку извлечения.
type FailureKind string

const (
	// FailureRetryable временная защита платформы: имеет смысл пробовать следующий профиль.
	FailureRetryable FailureKind = "retryable"
	// FailureTerminal контент недоступен навсегда: приватный, удалён, недоступен в регионе.
	FailureTerminal FailureKind = "terminal"
	// FailureUnclassified не попала в таблицу соответствий; профили не перебираем вслепую.
	FailureUnclassified FailureKind = "unclassified"
)

// DownloadError структурная ошибка резолвера скачивания.
type DownloadError struct {
	Kind     FailureKind
	Profile  string
	TriedAll bool
	Err      error
}

func (e *DownloadError) Error() string {
	if e.TriedAll {
		return fmt.Sprintf("download: все профили исчерпаны (последний %q): %v", e.Profile, e.Err)
	}
	return fmt.Sprintf("download: профиль %q: %s: %v", e.Profile, e.Kind, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }
