package ytdlp

import (
	"os"
	"path/filepath"
	"testing"

	"tg-clip-bot/internal/domain"
)

func profileNames(profiles []Profile) []string {
	names := make([]string, 0, len(profiles))
	for _, p := range profiles {
		names = append(names, p.Name)
	}
	return names
}

func TestBuildProfilesYouTubeWithoutCookies(t *testing.T) {
	got := profileNames(buildProfiles(domain.PlatformYouTube, false))
	want := []string{"android", "ios", "web", "bare"}
	if len(got) != len(want) {
		t.Fatalf("ожидали %v, получили %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ожидали %v, получили %v", want, got)
		}
	}
}

func TestBuildProfilesYouTubeWithCookies(t *testing.T) {
	got := profileNames(buildProfiles(domain.PlatformYouTube, true))
	want := []string{"android_cookies", "ios_cookies", "android", "ios", "web", "bare"}
	if len(got) != len(want) {
		t.Fatalf("ожидали %v, получили %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("куки-профили должны идти первыми: ожидали %v, получили %v", want, got)
		}
	}
}

func TestBuildProfilesOtherPlatforms(t *testing.T) {
	for _, platform := range []domain.Platform{domain.PlatformTikTok, domain.PlatformVK, domain.PlatformInstagram} {
		profiles := buildProfiles(platform, true)
		if len(profiles) != 1 || profiles[0].Name != "default" {
			t.Fatalf("%s: ожидали единственный профиль default, получили %v", platform, profileNames(profiles))
		}
	}
}

func TestCookiesUsable(t *testing.T) {
	dir := t.TempDir()

	if cookiesUsable("") {
		t.Fatalf("пустой путь не должен считаться валидным")
	}
	if cookiesUsable(filepath.Join(dir, "нет-такого")) {
		t.Fatalf("отсутствующий файл не должен считаться валидным")
	}

	empty := filepath.Join(dir, "empty.txt")
	if err := os.WriteFile(empty, []byte("   \n"), 0o644); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if cookiesUsable(empty) {
		t.Fatalf("пустой файл не должен считаться валидным")
	}

	foreign := filepath.Join(dir, "foreign.txt")
	if err := os.WriteFile(foreign, []byte(".example.com\tTRUE\t/\tFALSE\t0\tsid\tx\n"), 0o644); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if cookiesUsable(foreign) {
		t.Fatalf("файл без маркера youtube.com не должен считаться валидным")
	}

	valid := filepath.Join(dir, "cookies.txt")
	if err := os.WriteFile(valid, []byte(".youtube.com\tTRUE\t/\tFALSE\t0\tsid\tx\n"), 0o644); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if !cookiesUsable(valid) {
		t.Fatalf("валидный файл куки должен проходить проверку")
	}
}
