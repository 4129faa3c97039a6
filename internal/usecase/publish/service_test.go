package publish

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"tg-clip-bot/internal/domain"
)

type stubCaptioner struct {
	caption domain.Caption
	err     error
}

func (c *stubCaptioner) Caption(context.Context, domain.MediaMeta) (domain.Caption, error) {
	return c.caption, c.err
}

type stubThumbnailer struct {
	path string
	err  error
}

func (t *stubThumbnailer) Extract(string) (string, error) { return t.path, t.err }

type sentVideo struct {
	path    string
	caption string
	thumb   string
}

type fakePublisher struct {
	videos   []sentVideo
	polls    []string
	replies  []string
	sendErr  error
	pollErr  error
}

func (p *fakePublisher) SendVideo(_ int64, videoPath, caption, thumbPath string) error {
	if p.sendErr != nil {
		return p.sendErr
	}
	p.videos = append(p.videos, sentVideo{path: videoPath, caption: caption, thumb: thumbPath})
	return nil
}

func (p *fakePublisher) SendPoll(_ int64, question string, _ []string) error {
	if p.pollErr != nil {
		return p.pollErr
	}
	p.polls = append(p.polls, question)
	return nil
}

func (p *fakePublisher) Reply(_ int64, text string) { p.replies = append(p.replies, text) }

type fakeLedger struct {
	duplicate bool
	commits   []string
	commitErr error
}

func (l *fakeLedger) IsDuplicate(string, string) bool { return l.duplicate }
func (l *fakeLedger) Commit(contentKey, mediaID string) error {
	if l.commitErr != nil {
		return l.commitErr
	}
	l.commits = append(l.commits, contentKey+"|"+mediaID)
	return nil
}

type memCounter struct {
	value int64
}

func (c *memCounter) LoadCounter() (int64, error)  { return c.value, nil }
func (c *memCounter) SaveCounter(v int64) error    { c.value = v; return nil }

// testArtifact раскладывает видеофайл во временной директории,
// чтобы проверить зачистку после публикации.
func testArtifact(t *testing.T, mediaID string) domain.MediaArtifact {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "job")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	path := filepath.Join(dir, mediaID+".mp4")
	if err := os.WriteFile(path, []byte("video"), 0o644); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	return domain.MediaArtifact{
		Path:    path,
		WorkDir: dir,
		Meta:    domain.MediaMeta{ID: mediaID, Title: "Заголовок"},
	}
}

func newTestPipeline(captioner domain.Captioner, thumbs domain.Thumbnailer, pub *fakePublisher, ledger *fakeLedger, counter *memCounter, pollEvery int64) *Service {
	return NewService(zerolog.Nop(), captioner, thumbs, pub, ledger, counter, -100500, pollEvery)
}

func TestPublishCommitsAfterDelivery(t *testing.T) {
	pub := &fakePublisher{}
	ledger := &fakeLedger{}
	counter := &memCounter{}
	s := newTestPipeline(&stubCaptioner{caption: domain.Caption{Text: "Заголовок\n\n#видео"}}, &stubThumbnailer{}, pub, ledger, counter, 5)

	artifact := testArtifact(t, "abcXYZ123")
	if err := s.Publish(context.Background(), artifact, domain.PlatformYouTube, "youtube:abcXYZ123"); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}

	if len(pub.videos) != 1 || pub.videos[0].caption != "Заголовок\n\n#видео" {
		t.Fatalf("видео должно уйти с подписью, получили %+v", pub.videos)
	}
	if len(ledger.commits) != 1 || ledger.commits[0] != "youtube:abcXYZ123|abcXYZ123" {
		t.Fatalf("журнал должен фиксироваться после доставки, получили %v", ledger.commits)
	}
	if counter.value != 1 {
		t.Fatalf("счётчик должен увеличиться, получили %d", counter.value)
	}
	if _, err := os.Stat(artifact.WorkDir); !os.IsNotExist(err) {
		t.Fatalf("рабочая директория должна удаляться после публикации")
	}
}

func TestPublishDeliveryFailureNoCommit(t *testing.T) {
	pub := &fakePublisher{sendErr: errors.New("api: 500")}
	ledger := &fakeLedger{}
	counter := &memCounter{}
	s := newTestPipeline(&stubCaptioner{}, &stubThumbnailer{}, pub, ledger, counter, 5)

	artifact := testArtifact(t, "abcXYZ123")
	if err := s.Publish(context.Background(), artifact, domain.PlatformYouTube, "youtube:abcXYZ123"); err == nil {
		t.Fatalf("ожидали ошибку доставки")
	}

	if len(ledger.commits) != 0 {
		t.Fatalf("без доставки журнал не фиксируется")
	}
	if counter.value != 0 {
		t.Fatalf("без доставки счётчик не растёт")
	}
	if _, err := os.Stat(artifact.WorkDir); !os.IsNotExist(err) {
		t.Fatalf("файлы должны удаляться и при неудаче")
	}
}

func TestPublishPollEveryNth(t *testing.T) {
	pub := &fakePublisher{}
	s := newTestPipeline(&stubCaptioner{}, &stubThumbnailer{}, pub, &fakeLedger{}, &memCounter{}, 2)

	for i := 0; i < 4; i++ {
		artifact := testArtifact(t, "id")
		if err := s.Publish(context.Background(), artifact, domain.PlatformVK, "vk:video-1_2"); err != nil {
			t.Fatalf("не ожидали ошибку: %v", err)
		}
	}

	if len(pub.polls) != 2 {
		t.Fatalf("каждый второй пост должен сопровождаться опросом, получили %d", len(pub.polls))
	}
}

func TestPublishCaptionFailureSendsWithoutCaption(t *testing.T) {
	pub := &fakePublisher{}
	s := newTestPipeline(&stubCaptioner{err: errors.New("шаблон не собрался")}, &stubThumbnailer{}, pub, &fakeLedger{}, &memCounter{}, 5)

	if err := s.Publish(context.Background(), testArtifact(t, "id"), domain.PlatformTikTok, "tiktok:@u/video/1"); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(pub.videos) != 1 || pub.videos[0].caption != "" {
		t.Fatalf("при сбое подписи видео уходит без неё, получили %+v", pub.videos)
	}
}

func TestPublishThumbnailFailureBestEffort(t *testing.T) {
	pub := &fakePublisher{}
	s := newTestPipeline(&stubCaptioner{}, &stubThumbnailer{err: errors.New("ffmpeg: сбой")}, pub, &fakeLedger{}, &memCounter{}, 5)

	if err := s.Publish(context.Background(), testArtifact(t, "id"), domain.PlatformVK, "vk:video-1_2"); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(pub.videos) != 1 || pub.videos[0].thumb != "" {
		t.Fatalf("при сбое обложки видео уходит без неё, получили %+v", pub.videos)
	}
}
