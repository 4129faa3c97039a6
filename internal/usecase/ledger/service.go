package ledger

import (
	"fmt"
	"sync"
)

// Store персистентность журналов: обе оси дописываются построчно.
type Store interface {
	LoadPostedIDs() ([]string, error)
	AppendPostedID(id string) error
	LoadPostedKeys() ([]string, error)
	AppendPostedKey(key string) error
}

// Service двухосевой журнал опубликованного: по media ID платформы и по
// каноническому ключу ссылки. Попадание в любую ось блокирует повтор.
// Журнал делят горутины поллера и воркера, поэтому обе оси под мьютексом.
type Service struct {
	store Store

	mu         sync.RWMutex
	mediaIDs   map[string]struct{}
	contentKey map[string]struct{}
}

// NewService загружает оба журнала с диска.
func NewService(store Store) (*Service, error) {
	s := &Service{
		store:      store,
		mediaIDs:   make(map[string]struct{}),
		contentKey: make(map[string]struct{}),
	}
	ids, err := store.LoadPostedIDs()
	if err != nil {
		return nil, fmt.Errorf("загрузка журнала media ID: %w", err)
	}
	for _, id := range ids {
		s.mediaIDs[id] = struct{}{}
	}
	keys, err := store.LoadPostedKeys()
	if err != nil {
		return nil, fmt.Errorf("загрузка журнала ключей: %w", err)
	}
	for _, key := range keys {
		s.contentKey[key] = struct{}{}
	}
	return s, nil
}

// IsDuplicate проверяет обе оси. mediaID может быть пустым (пре-чек до скачивания).
func (s *Service) IsDuplicate(contentKey, mediaID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if contentKey != "" {
		if _, ok := s.contentKey[contentKey]; ok {
			return true
		}
	}
	if mediaID != "" {
		if _, ok := s.mediaIDs[mediaID]; ok {
			return true
		}
	}
	return false
}

// Commit идемпотентно фиксирует публикацию в обеих осях.
// Вызывается строго после подтверждённой доставки.
func (s *Service) Commit(contentKey, mediaID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if contentKey != "" {
		if _, ok := s.contentKey[contentKey]; !ok {
			if err := s.store.AppendPostedKey(contentKey); err != nil {
				return fmt.Errorf("запись ключа: %w", err)
			}
			s.contentKey[contentKey] = struct{}{}
		}
	}
	if mediaID != "" {
		if _, ok := s.mediaIDs[mediaID]; !ok {
			if err := s.store.AppendPostedID(mediaID); err != nil {
				return fmt.Errorf("запись media ID: %w", err)
			}
			s.mediaIDs[mediaID] = struct{}{}
		}
	}
	return nil
}

// Size возвращает размеры обеих осей (для тестов и логов).
func (s *Service) Size() (keys, ids int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.contentKey), len(s.mediaIDs)
}
