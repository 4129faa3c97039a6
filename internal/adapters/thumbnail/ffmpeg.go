package thumbnail

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// FFmpeg извлекает один кадр ролика в JPEG рядом с исходным файлом.
type FFmpeg struct{}

// NewFFmpeg создаёт извлекатель обложек.
func NewFFmpeg() *FFmpeg {
	return &FFmpeg{}
}

// Extract берёт кадр на первой секунде. Ошибка не блокирует публикацию,
// вызывающая сторона просто отправит видео без обложки.
func (f *FFmpeg) Extract(videoPath string) (string, error) {
	base := strings.TrimSuffix(videoPath, filepath.Ext(videoPath))
	thumbPath := base + "_thumb.jpg"

	err := ffmpeg.Input(videoPath, ffmpeg.KwArgs{"ss": "00:00:01"}).
		Output(thumbPath, ffmpeg.KwArgs{
			"vframes": 1,
			"q:v":     2,
			"vf":      "scale=320:-1",
		}).
		OverWriteOutput().
		Silent(true).
		Run()
	if err != nil {
		return "", fmt.Errorf("ffmpeg: извлечение кадра: %w", err)
	}
	if _, statErr := os.Stat(thumbPath); statErr != nil {
		return "", fmt.Errorf("ffmpeg: обложка не создана: %w", statErr)
	}
	return thumbPath, nil
}
