package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tg-clip-bot/internal/domain"
	"tg-clip-bot/internal/infra/metrics"
)

// Resolver скачивает видео локальным бинарником yt-dlp, перебирая
// профили до первого успеха. Каждая попытка пишет в свежую директорию,
// чтобы параллельные запросы разных ревизий не затирали друг друга.
type Resolver struct {
	log         zerolog.Logger
	binaryPath  string
	workDir     string
	cookiesFile string
	timeout     time.Duration
	retries     int
}

// NewResolver создаёт резолвер.
func NewResolver(log zerolog.Logger, binaryPath, workDir, cookiesFile string, timeout time.Duration, retries int) *Resolver {
	if binaryPath == "" {
		binaryPath = "yt-dlp"
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	if retries <= 0 {
		retries = 3
	}
	return &Resolver{
		log:         log,
		binaryPath:  binaryPath,
		workDir:     workDir,
		cookiesFile: cookiesFile,
		timeout:     timeout,
		retries:     retries,
	}
}

// mediaInfo подмножество JSON-выдачи yt-dlp --dump-single-json.
type mediaInfo struct {
	ID                 string   `json:"id"`
	Title              string   `json:"title"`
	Duration           float64  `json:"duration"`
	Uploader           string   `json:"uploader"`
	Tags               []string `json:"tags"`
	RequestedDownloads []struct {
		Filepath string `json:"filepath"`
	} `json:"requested_downloads"`
}

// Resolve пробует профили по порядку. Ретраебельная ошибка двигает цикл
// дальше; терминальная и неклассифицированная прерывают его сразу —
// профили лечат известные защиты, а не всё подряд.
func (r *Resolver) Resolve(ctx context.Context, rawURL string, platform domain.Platform) (domain.MediaArtifact, error) {
	profiles := buildProfiles(platform, cookiesUsable(r.cookiesFile))

	var lastErr error
	lastProfile := ""
	for _, profile := range profiles {
		artifact, err := r.attempt(ctx, rawURL, platform, profile)
		if err == nil {
			return artifact, nil
		}
		kind := domain.FailureUnclassified
		var dlErr *downloadAttemptError
		if errors.As(err, &dlErr) {
			kind = dlErr.kind
		}
		metrics.DownloadAttempts.WithLabelValues(string(platform), profile.Name, string(kind)).Inc()
		switch kind {
		case domain.FailureRetryable:
			r.log.Warn().Err(err).Str("profile", profile.Name).Str("platform", string(platform)).
				Msg("ytdlp: профиль не прошёл, пробуем следующий")
			lastErr = err
			lastProfile = profile.Name
			continue
		case domain.FailureTerminal:
			return domain.MediaArtifact{}, &domain.DownloadError{
				Kind: domain.FailureTerminal, Profile: profile.Name, Err: err,
			}
		default:
			r.log.Error().Err(err).Str("profile", profile.Name).
				Msg("ytdlp: неклассифицированная ошибка, профили не перебираем")
			return domain.MediaArtifact{}, &domain.DownloadError{
				Kind: domain.FailureUnclassified, Profile: profile.Name, Err: err,
			}
		}
	}
	return domain.MediaArtifact{}, &domain.DownloadError{
		Kind: domain.FailureRetryable, Profile: lastProfile, TriedAll: true, Err: lastErr,
	}
}

// downloadAttemptError ошибка одной попытки с уже определённым классом.
type downloadAttemptError struct {
	kind   domain.FailureKind
	stderr string
	err    error
}

func (e *downloadAttemptError) Error() string {
	return fmt.Sprintf("yt-dlp: %v: %s", e.err, clipTail(e.stderr, 300))
}

func (e *downloadAttemptError) Unwrap() error { return e.err }

func (r *Resolver) attempt(ctx context.Context, rawURL string, platform domain.Platform, profile Profile) (domain.MediaArtifact, error) {
	dir := filepath.Join(r.workDir, uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return domain.MediaArtifact{}, fmt.Errorf("создание рабочей директории: %w", err)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	args := []string{
		"--dump-single-json",
		"--no-simulate",
		"--no-warnings",
		"--no-check-certificates",
		"-f", "bv*[ext=mp4]+ba[ext=m4a]/b[ext=mp4]/b",
		"--merge-output-format", "mp4",
		"--retries", strconv.Itoa(r.retries),
		"-o", filepath.Join(dir, "%(id)s.%(ext)s"),
	}
	if profile.PlayerClient != "" {
		args = append(args, "--extractor-args", "youtube:player_client="+profile.PlayerClient)
	}
	if profile.UserAgent != "" {
		args = append(args, "--user-agent", profile.UserAgent)
	}
	if profile.UseCookies && r.cookiesFile != "" {
		args = append(args, "--cookies", r.cookiesFile)
	}
	args = append(args, rawURL)

	cmd := exec.CommandContext(attemptCtx, r.binaryPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	if runErr != nil {
		os.RemoveAll(dir)
		return domain.MediaArtifact{}, &downloadAttemptError{
			kind:   classifyFailure(stderr.String()),
			stderr: stderr.String(),
			err:    runErr,
		}
	}

	var info mediaInfo
	if err := json.Unmarshal(stdout.Bytes(), &info); err != nil {
		os.RemoveAll(dir)
		return domain.MediaArtifact{}, &downloadAttemptError{
			kind: domain.FailureUnclassified,
			err:  fmt.Errorf("разбор метаданных: %w", err),
		}
	}

	path := ""
	if len(info.RequestedDownloads) > 0 && info.RequestedDownloads[0].Filepath != "" {
		path = info.RequestedDownloads[0].Filepath
	} else {
		path = filepath.Join(dir, info.ID+".mp4")
	}
	if _, err := os.Stat(path); err != nil {
		os.RemoveAll(dir)
		return domain.MediaArtifact{}, &downloadAttemptError{
			kind: domain.FailureUnclassified,
			err:  fmt.Errorf("файл не найден после скачивания: %w", err),
		}
	}

	metrics.DownloadAttempts.WithLabelValues(string(platform), profile.Name, "success").Inc()
	metrics.DownloadSeconds.WithLabelValues(string(platform)).Observe(time.Since(start).Seconds())
	r.log.Info().Str("profile", profile.Name).Str("media_id", info.ID).
		Dur("took", time.Since(start)).Msg("ytdlp: скачано")

	return domain.MediaArtifact{
		Path:    path,
		WorkDir: dir,
		Meta: domain.MediaMeta{
			ID:       info.ID,
			Title:    info.Title,
			Duration: info.Duration,
			Uploader: info.Uploader,
			Tags:     info.Tags,
		},
	}, nil
}

func clipTail(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[len(runes)-limit:])
}
