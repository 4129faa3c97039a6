package config

import (
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию бота.
type AppConfig struct {
	AppEnv string `envconfig:"APP_ENV" default:"dev"`
	TZ     string `envconfig:"TZ" default:"Europe/Moscow"`

	Telegram struct {
		Token     string `envconfig:"TG_BOT_TOKEN"`
		ChannelID int64  `envconfig:"TG_CHANNEL_ID"`
	} `envconfig:""`

	AdminIDs []int64 `envconfig:"ADMIN_IDS"`

	// Явно пустой REDIS_ADDR включает встроенную очередь вместо Redis.
	RedisAddr string `envconfig:"REDIS_ADDR" default:"localhost:6379"`

	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9090"`

	Storage struct {
		Dir string `envconfig:"STATE_DIR" default:"./state"`
	} `envconfig:""`

	Download struct {
		WorkDir     string        `envconfig:"DOWNLOAD_DIR" default:"./downloads"`
		BinaryPath  string        `envconfig:"YTDLP_PATH" default:"yt-dlp"`
		CookiesFile string        `envconfig:"YT_COOKIES_FILE"`
		Timeout     time.Duration `envconfig:"DOWNLOAD_TIMEOUT" default:"120s"`
		Retries     int           `envconfig:"DOWNLOAD_RETRIES" default:"3"`
	} `envconfig:""`

	Publish struct {
		PausePrimary   time.Duration `envconfig:"PUBLISH_PAUSE_PRIMARY" default:"8s"`
		PauseSecondary time.Duration `envconfig:"PUBLISH_PAUSE_SECONDARY" default:"3s"`
		PollEvery      int64         `envconfig:"PUBLISH_POLL_EVERY" default:"5"`
		CaptionFooter  string        `envconfig:"CAPTION_FOOTER" default:"Подписывайся 👇"`
	} `envconfig:""`

	Scheduler struct {
		TickInterval time.Duration `envconfig:"SCHEDULER_TICK" default:"15s"`
		GraceWindow  time.Duration `envconfig:"SCHEDULER_GRACE" default:"2m"`
	} `envconfig:""`

	Queues struct {
		Publish string `envconfig:"PUBLISH_QUEUE_KEY" default:"publish_jobs"`
	} `envconfig:""`

	OpenAI struct {
		APIKey  string        `envconfig:"OPENAI_API_KEY"`
		BaseURL string        `envconfig:"OPENAI_BASE_URL"`
		Model   string        `envconfig:"OPENAI_MODEL" default:"gpt-4.1-mini"`
		Timeout time.Duration `envconfig:"OPENAI_TIMEOUT" default:"15s"`
	} `envconfig:""`

	EnableInstagram bool `envconfig:"ENABLE_INSTAGRAM" default:"false"`
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}
