package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	"tg-clip-bot/internal/adapters/bot"
	"tg-clip-bot/internal/adapters/caption"
	"tg-clip-bot/internal/adapters/telegram"
	"tg-clip-bot/internal/adapters/thumbnail"
	"tg-clip-bot/internal/adapters/ytdlp"
	"tg-clip-bot/internal/domain"
	"tg-clip-bot/internal/infra/config"
	applog "tg-clip-bot/internal/infra/log"
	"tg-clip-bot/internal/infra/metrics"
	"tg-clip-bot/internal/infra/openai"
	"tg-clip-bot/internal/infra/queue"
	"tg-clip-bot/internal/infra/storage"
	"tg-clip-bot/internal/usecase/access"
	"tg-clip-bot/internal/usecase/ledger"
	"tg-clip-bot/internal/usecase/links"
	"tg-clip-bot/internal/usecase/publish"
	"tg-clip-bot/internal/usecase/schedule"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv)

	if cfg.Telegram.Token == "" {
		logger.Fatal().Msg("bot: не указан токен Telegram (TG_BOT_TOKEN)")
	}
	if cfg.Telegram.ChannelID == 0 {
		logger.Fatal().Msg("bot: не указан канал публикации (TG_CHANNEL_ID)")
	}
	if len(cfg.AdminIDs) == 0 {
		logger.Fatal().Msg("bot: не указаны администраторы (ADMIN_IDS)")
	}

	loc, err := time.LoadLocation(cfg.TZ)
	if err != nil {
		logger.Warn().Err(err).Str("tz", cfg.TZ).Msg("bot: часовой пояс не загрузился, используем локальный")
		loc = time.Local
	}

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.StartServer(ctx, logger.With().Str("component", "metrics").Logger(), cfg.MetricsAddr)

	store, err := storage.NewFiles(cfg.Storage.Dir)
	if err != nil {
		logger.Fatal().Err(err).Msg("bot: хранилище состояния не инициализировалось")
	}

	guard, err := access.NewService(store, cfg.AdminIDs)
	if err != nil {
		logger.Fatal().Err(err).Msg("bot: список доступа не загрузился")
	}

	ledgerSvc, err := ledger.NewService(store)
	if err != nil {
		logger.Fatal().Err(err).Msg("bot: журнал публикаций не загрузился")
	}

	// Пустой REDIS_ADDR переключает очередь на встроенную: удобно для
	// одиночного запуска без внешних сервисов.
	var publishQueue domain.PublishQueue
	if cfg.RedisAddr != "" {
		redisClient := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		publishQueue = queue.NewRedisPublishQueue(redisClient, cfg.Queues.Publish)
	} else {
		publishQueue = queue.NewMemoryPublishQueue(0)
	}

	linksSvc := links.NewService(logger.With().Str("component", "links").Logger(), nil, cfg.EnableInstagram)

	resolver := ytdlp.NewResolver(
		logger.With().Str("component", "ytdlp").Logger(),
		cfg.Download.BinaryPath,
		cfg.Download.WorkDir,
		cfg.Download.CookiesFile,
		cfg.Download.Timeout,
		cfg.Download.Retries,
	)

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logger.Fatal().Err(err).Msg("bot: не удалось создать бота")
	}
	sender := telegram.NewSender(botAPI, logger.With().Str("component", "telegram").Logger())

	template := caption.NewTemplate(cfg.Publish.CaptionFooter)
	var captioner domain.Captioner = template
	if cfg.OpenAI.APIKey != "" {
		openaiClient := openai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Timeout)
		captioner = caption.NewOpenAI(openaiClient, cfg.OpenAI.Model, cfg.OpenAI.Timeout, template)
	}

	pipeline := publish.NewService(
		logger.With().Str("component", "publish").Logger(),
		captioner,
		thumbnail.NewFFmpeg(),
		sender,
		ledgerSvc,
		store,
		cfg.Telegram.ChannelID,
		cfg.Publish.PollEvery,
	)

	scheduler, err := schedule.NewService(
		logger.With().Str("component", "schedule").Logger(),
		store,
		publishQueue,
		func(rawURL string, platform domain.Platform) string {
			return linksSvc.Normalize(rawURL, platform)
		},
		cfg.Scheduler.GraceWindow,
		loc,
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("bot: отложенные задачи не восстановились")
	}

	worker := publish.NewWorker(
		logger.With().Str("component", "worker").Logger(),
		publishQueue,
		resolver,
		pipeline,
		ledgerSvc,
		sender,
		cfg.Publish.PausePrimary,
		cfg.Publish.PauseSecondary,
	)

	handler := bot.NewHandler(
		logger.With().Str("component", "bot").Logger(),
		guard,
		linksSvc,
		ledgerSvc,
		publishQueue,
		scheduler,
		sender,
	)
	poller := bot.NewPoller(botAPI, logger.With().Str("component", "poller").Logger(), handler)

	go worker.Run(ctx)
	go scheduler.Run(ctx, cfg.Scheduler.TickInterval)

	logger.Info().Int64("channel", cfg.Telegram.ChannelID).Msg("bot: запущен")
	if err := poller.Run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("bot: остановлен с ошибкой транспорта")
	}
	logger.Info().Msg("bot: остановлен")
}

var _ domain.AccessGuard = (*access.Service)(nil)
var _ domain.Ledger = (*ledger.Service)(nil)
var _ domain.Resolver = (*ytdlp.Resolver)(nil)
var _ domain.Publisher = (*telegram.Sender)(nil)
var _ domain.PublishQueue = (*queue.RedisPublishQueue)(nil)
var _ domain.PublishQueue = (*queue.MemoryPublishQueue)(nil)
var _ domain.TaskStore = (*storage.Files)(nil)
var _ domain.CounterStore = (*storage.Files)(nil)
var _ domain.Captioner = (*caption.OpenAI)(nil)
var _ domain.Thumbnailer = (*thumbnail.FFmpeg)(nil)
