package domain

import "time"

// Platform определяет поддерживаемый видеохостинг.
type Platform string

const (
	// PlatformYouTube основная платформа с антибот-защитой.
	PlatformYouTube Platform = "youtube"
	// PlatformTikTok включает короткие редирект-домены vt/vm.
	PlatformTikTok Platform = "tiktok"
	// PlatformVK покрывает vk.com, vk.ru и vkvideo.ru.
	PlatformVK Platform = "vk"
	// PlatformInstagram доступна только при включённом флаге конфигурации.
	PlatformInstagram Platform = "instagram"
	// PlatformUnknown возвращается, если текст не похож на поддерживаемую ссылку.
	PlatformUnknown Platform = ""
)

// MediaMeta содержит метаданные, извлечённые вместе с файлом.
type MediaMeta struct {
	ID       string
	Title    string
	Duration float64
	Uploader string
	Tags     []string
}

// MediaArtifact описывает скачанный файл. Владелец артефакта обязан
// удалить рабочую директорию до возврата управления.
type MediaArtifact struct {
	Path    string
	WorkDir string
	Meta    MediaMeta
}

// PublishJob задача на публикацию одного видео в канал.
type PublishJob struct {
	URL        string    `json:"url"`
	Platform   Platform  `json:"platform"`
	ContentKey string    `json:"content_key"`
	ChatID     int64     `json:"chat_id"`
	Requester  int64     `json:"requester"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// ScheduledTask отложенная публикация. TargetTime хранится в локальном времени.
type ScheduledTask struct {
	URL        string    `json:"url"`
	Platform   Platform  `json:"platform"`
	TargetTime time.Time `json:"target_time"`
	Requester  int64     `json:"requester"`
	ChatID     int64     `json:"chat_id"`
}

// Caption результат работы генератора подписей.
type Caption struct {
	Text string
}
