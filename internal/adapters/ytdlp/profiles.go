package ytdlp

import (
	"os"
	"strings"

	"tg-clip-bot/internal/domain"
)

// Profile набор параметров запроса для одной попытки извлечения:
// клиент плеера, user-agent и использование сохранённых куки.
type Profile struct {
	Name         string
	PlayerClient string
	UserAgent    string
	UseCookies   bool
}

const (
	androidUA = "com.google.android.youtube/19.09.37 (Linux; U; Android 14) gzip"
	iosUA     = "com.google.ios.youtube/19.09.3 (iPhone16,2; U; CPU iOS 17_4 like Mac OS X)"
	desktopUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

// buildProfiles возвращает упорядоченный список профилей. Для YouTube
// первыми идут мобильные клиенты (эмпирически устойчивее к антиботу),
// при валидных куки — их куки-варианты ещё раньше; затем десктопный веб
// и запасной профиль без специальных заголовков. Остальным платформам
// хватает одного профиля.
func buildProfiles(platform domain.Platform, cookiesValid bool) []Profile {
	if platform != domain.PlatformYouTube {
		return []Profile{{Name: "default"}}
	}
	var profiles []Profile
	if cookiesValid {
		profiles = append(profiles,
			Profile{Name: "android_cookies", PlayerClient: "android", UserAgent: androidUA, UseCookies: true},
			Profile{Name: "ios_cookies", PlayerClient: "ios", UserAgent: iosUA, UseCookies: true},
		)
	}
	profiles = append(profiles,
		Profile{Name: "android", PlayerClient: "android", UserAgent: androidUA},
		Profile{Name: "ios", PlayerClient: "ios", UserAgent: iosUA},
		Profile{Name: "web", PlayerClient: "web", UserAgent: desktopUA},
		Profile{Name: "bare"},
	)
	return profiles
}

// cookiesUsable проверяет файл куки эвристикой: существует, не пуст и
// содержит ожидаемый маркер домена. Валидность самих куки не гарантируется;
// протухший файл просто уронит куки-профили ретраебельно.
func cookiesUsable(path string) bool {
	if path == "" {
		return false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	content := string(data)
	return strings.TrimSpace(content) != "" && strings.Contains(content, "youtube.com")
}
