package links

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"tg-clip-bot/internal/domain"
	"tg-clip-bot/internal/infra/metrics"
)

// Паттерны платформ. Порядок проверки фиксированный: YouTube, VK, TikTok,
// Instagram — пересечения возможны только в патологических ссылках,
// и тогда побеждает первый.
var (
	youtubePattern   = regexp.MustCompile(`(youtube\.com|youtu\.be)`)
	vkPattern        = regexp.MustCompile(`(vk\.com|vk\.ru|vkvideo\.ru)`)
	tiktokPattern    = regexp.MustCompile(`(tiktok\.com|vt\.tiktok\.com|vm\.tiktok\.com)`)
	instagramPattern = regexp.MustCompile(`(instagram\.com)`)
)

// Упорядоченные паттерны извлечения ID ролика YouTube: обычная ссылка,
// короткий домен, shorts, embed.
var youtubeIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`youtube\.com/watch\?(?:[^#\s]*&)?v=([A-Za-z0-9_-]{6,})`),
	regexp.MustCompile(`youtu\.be/([A-Za-z0-9_-]{6,})`),
	regexp.MustCompile(`youtube\.com/shorts/([A-Za-z0-9_-]{6,})`),
	regexp.MustCompile(`youtube\.com/embed/([A-Za-z0-9_-]{6,})`),
}

var instagramShortcode = regexp.MustCompile(`instagram\.com/(?:p|reel|tv)/([A-Za-z0-9_-]+)`)

// Короткие редирект-домены TikTok.
var tiktokShortHosts = map[string]struct{}{
	"vt.tiktok.com": {},
	"vm.tiktok.com": {},
}

const expandTimeout = 15 * time.Second

// Service классифицирует ссылки и приводит их к каноническому ключу.
type Service struct {
	log             zerolog.Logger
	http            *http.Client
	enableInstagram bool
}

// NewService создаёт сервис. httpClient может быть nil, тогда берётся
// клиент с таймаутом раскрытия коротких ссылок.
func NewService(log zerolog.Logger, httpClient *http.Client, enableInstagram bool) *Service {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: expandTimeout}
	}
	return &Service{log: log, http: httpClient, enableInstagram: enableInstagram}
}

// Classify определяет платформу по тексту сообщения.
func (s *Service) Classify(text string) domain.Platform {
	switch {
	case youtubePattern.MatchString(text):
		return domain.PlatformYouTube
	case vkPattern.MatchString(text):
		return domain.PlatformVK
	case tiktokPattern.MatchString(text):
		return domain.PlatformTikTok
	case s.enableInstagram && instagramPattern.MatchString(text):
		return domain.PlatformInstagram
	default:
		return domain.PlatformUnknown
	}
}

// ExpandShortLink раскрывает короткую редирект-ссылку одним GET-запросом.
// Любая ошибка не фатальна: возвращается исходная ссылка.
func (s *Service) ExpandShortLink(ctx context.Context, rawURL string, platform domain.Platform) string {
	if platform != domain.PlatformTikTok {
		return rawURL
	}
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return rawURL
	}
	if _, short := tiktokShortHosts[parsed.Host]; !short {
		return rawURL
	}

	reqCtx, cancel := context.WithTimeout(ctx, expandTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return rawURL
	}
	start := time.Now()
	resp, err := s.http.Do(req)
	metrics.ObserveNetworkRequest("links", "expand_short_link", start, err)
	if err != nil {
		s.log.Debug().Err(err).Str("url", rawURL).Msg("links: короткая ссылка не раскрылась")
		return rawURL
	}
	defer resp.Body.Close()
	if resp.Request == nil || resp.Request.URL == nil {
		return rawURL
	}
	return resp.Request.URL.String()
}

// Normalize приводит ссылку к каноническому ключу вида platform:id.
// Если ни один паттерн не подошёл, ключом становится обрезанный исходный
// текст — потеря точности логируется, а не проглатывается.
func (s *Service) Normalize(rawURL string, platform domain.Platform) string {
	trimmed := strings.TrimSpace(rawURL)
	switch platform {
	case domain.PlatformYouTube:
		for _, pattern := range youtubeIDPatterns {
			if m := pattern.FindStringSubmatch(trimmed); m != nil {
				return "youtube:" + m[1]
			}
		}
	case domain.PlatformTikTok:
		if path := pathKey(trimmed); path != "" {
			return "tiktok:" + path
		}
	case domain.PlatformVK:
		if path := pathKey(trimmed); path != "" {
			return "vk:" + path
		}
	case domain.PlatformInstagram:
		if m := instagramShortcode.FindStringSubmatch(trimmed); m != nil {
			return "instagram:" + m[1]
		}
	}
	s.log.Warn().Str("url", trimmed).Str("platform", string(platform)).
		Msg("links: ссылка не нормализовалась, используем сырой ключ")
	return trimmed
}

// pathKey возвращает путь ссылки без query-строки и ведущего слеша.
func pathKey(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.TrimSuffix(parsed.Path, "/"), "/")
}
