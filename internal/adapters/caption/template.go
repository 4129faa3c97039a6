package caption

import (
	"context"
	"strings"

	"tg-clip-bot/internal/domain"
)

// Template статическая подпись: название ролика плюс фиксированный футер.
// Используется как запасной вариант и как единственный генератор,
// когда ключ OpenAI не задан.
type Template struct {
	footer string
}

// NewTemplate создаёт шаблонный генератор.
func NewTemplate(footer string) *Template {
	return &Template{footer: footer}
}

// Caption собирает подпись из метаданных.
func (t *Template) Caption(_ context.Context, meta domain.MediaMeta) (domain.Caption, error) {
	var lines []string
	if title := strings.TrimSpace(meta.Title); title != "" {
		lines = append(lines, title)
	}
	if t.footer != "" {
		lines = append(lines, t.footer)
	}
	return domain.Caption{Text: strings.Join(lines, "\n")}, nil
}
