package caption

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"tg-clip-bot/internal/domain"
	openai "tg-clip-bot/internal/infra/openai"
)

type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAI строит подпись к видео через Chat Completions.
type OpenAI struct {
	client   chatClient
	model    string
	timeout  time.Duration
	fallback *Template
}

// NewOpenAI создаёт генератор подписей с запасным шаблоном.
func NewOpenAI(client chatClient, model string, timeout time.Duration, fallback *Template) *OpenAI {
	if model == "" {
		model = "gpt-4.1-mini"
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &OpenAI{client: client, model: model, timeout: timeout, fallback: fallback}
}

type captionPayload struct {
	Title    string   `json:"title"`
	Hashtags []string `json:"hashtags"`
}

// Caption строит подпись по метаданным ролика. Любая ошибка коллаборатора
// не фатальна: возвращается статический шаблон.
func (c *OpenAI) Caption(ctx context.Context, meta domain.MediaMeta) (domain.Caption, error) {
	generated, err := c.generate(ctx, meta)
	if err != nil {
		return c.fallback.Caption(ctx, meta)
	}
	return generated, nil
}

func (c *OpenAI) generate(ctx context.Context, meta domain.MediaMeta) (domain.Caption, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	userPrompt := fmt.Sprintf(`Придумай короткую подпись для видео в телеграм-канале.
Верни JSON формата {"title": "...", "hashtags": ["..."]} без пояснений.
Название ролика: %s
Автор: %s
Теги: %s`, clipRunes(meta.Title, 200), meta.Uploader, strings.Join(meta.Tags, ", "))

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0.7,
		MaxTokens:   150,
		Messages: []openai.ChatMessage{
			{
				Role:    openai.RoleSystem,
				Content: "Ты редактор развлекательного канала. Пиши коротко, по-русски, без кавычек вокруг ответа.",
			},
			{
				Role:    openai.RoleUser,
				Content: userPrompt,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ResponseFormatTypeJSONObject},
	}

	resp, err := c.client.CreateChatCompletion(reqCtx, req)
	if err != nil {
		return domain.Caption{}, fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return domain.Caption{}, fmt.Errorf("openai completion: пустой ответ")
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	var parsed captionPayload
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return domain.Caption{}, fmt.Errorf("распаковка ответа LLM: %w", err)
	}
	title := strings.TrimSpace(parsed.Title)
	if title == "" {
		return domain.Caption{}, fmt.Errorf("пустая подпись от LLM")
	}
	lines := []string{title}
	if tags := joinHashtags(parsed.Hashtags); tags != "" {
		lines = append(lines, tags)
	}
	if c.fallback != nil && c.fallback.footer != "" {
		lines = append(lines, c.fallback.footer)
	}
	return domain.Caption{Text: strings.Join(lines, "\n")}, nil
}

func joinHashtags(tags []string) string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		trimmed := strings.TrimSpace(strings.TrimPrefix(tag, "#"))
		if trimmed == "" {
			continue
		}
		out = append(out, "#"+trimmed)
	}
	return strings.Join(out, " ")
}

func clipRunes(text string, limit int) string {
	if limit <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
