package domain

import "context"

// AccessResult исход мутации списка доступа.
type AccessResult string

const (
	AccessAdded          AccessResult = "added"
	AccessAlreadyPresent AccessResult = "already_present"
	AccessRemoved        AccessResult = "removed"
	AccessNotFound       AccessResult = "not_found"
	AccessRejectedAdmin  AccessResult = "rejected_admin"
)

// AccessGuard гейт всех входящих команд.
type AccessGuard interface {
	IsAllowed(id int64) bool
	IsAdmin(id int64) bool
	AddMember(id int64) (AccessResult, error)
	RemoveMember(id int64) (AccessResult, error)
	Members() []int64
}

// Ledger двухосевой журнал опубликованного: по media ID и по каноническому ключу.
type Ledger interface {
	IsDuplicate(contentKey, mediaID string) bool
	Commit(contentKey, mediaID string) error
}

// Resolver скачивает видео, перебирая профили до первого успеха.
type Resolver interface {
	Resolve(ctx context.Context, rawURL string, platform Platform) (MediaArtifact, error)
}

// Captioner строит подпись по метаданным.
type Captioner interface {
	Caption(ctx context.Context, meta MediaMeta) (Caption, error)
}

// Thumbnailer извлекает обложку из файла. Ошибка не блокирует публикацию.
type Thumbnailer interface {
	Extract(videoPath string) (string, error)
}

// Publisher доставляет контент в канал и отвечает отправителям.
type Publisher interface {
	SendVideo(channelID int64, videoPath, caption, thumbPath string) error
	SendPoll(channelID int64, question string, options []string) error
	Reply(chatID int64, text string)
}

// PublishQueue сериализует публикации через одного воркера.
type PublishQueue interface {
	Enqueue(ctx context.Context, job PublishJob) error
	Pop(ctx context.Context) (PublishJob, error)
}

// TaskStore хранит отложенные задачи; список переписывается целиком.
type TaskStore interface {
	LoadTasks() ([]ScheduledTask, error)
	SaveTasks(tasks []ScheduledTask) error
}

// CounterStore монотонный счётчик публикаций.
type CounterStore interface {
	LoadCounter() (int64, error)
	SaveCounter(value int64) error
}
