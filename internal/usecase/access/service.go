package access

import (
	"fmt"
	"sort"

	"tg-clip-bot/internal/domain"
)

// Store персистентность списка доступа: дозапись при добавлении,
// полная перезапись при удалении.
type Store interface {
	LoadMembers() ([]int64, error)
	AppendMember(id int64) error
	RewriteMembers(ids []int64) error
}

// Service держит авторитетный список доступа в памяти процесса.
// Админы задаются конфигурацией и не могут быть удалены.
type Service struct {
	store   Store
	admins  map[int64]struct{}
	members map[int64]struct{}
}

// NewService загружает сохранённых участников и объединяет их с админами.
func NewService(store Store, adminIDs []int64) (*Service, error) {
	s := &Service{
		store:   store,
		admins:  make(map[int64]struct{}, len(adminIDs)),
		members: make(map[int64]struct{}),
	}
	for _, id := range adminIDs {
		s.admins[id] = struct{}{}
	}
	saved, err := store.LoadMembers()
	if err != nil {
		return nil, fmt.Errorf("загрузка списка доступа: %w", err)
	}
	for _, id := range saved {
		s.members[id] = struct{}{}
	}
	return s, nil
}

// IsAllowed проверяет, допущен ли отправитель.
func (s *Service) IsAllowed(id int64) bool {
	if _, ok := s.admins[id]; ok {
		return true
	}
	_, ok := s.members[id]
	return ok
}

// IsAdmin проверяет права администратора.
func (s *Service) IsAdmin(id int64) bool {
	_, ok := s.admins[id]
	return ok
}

// AddMember добавляет участника. Запись на диск происходит до ответа.
func (s *Service) AddMember(id int64) (domain.AccessResult, error) {
	if s.IsAllowed(id) {
		return domain.AccessAlreadyPresent, nil
	}
	if err := s.store.AppendMember(id); err != nil {
		return "", fmt.Errorf("сохранение участника: %w", err)
	}
	s.members[id] = struct{}{}
	return domain.AccessAdded, nil
}

// RemoveMember удаляет участника. Админа удалить нельзя.
func (s *Service) RemoveMember(id int64) (domain.AccessResult, error) {
	if _, ok := s.admins[id]; ok {
		return domain.AccessRejectedAdmin, nil
	}
	if _, ok := s.members[id]; !ok {
		return domain.AccessNotFound, nil
	}
	rest := make([]int64, 0, len(s.members)-1)
	for member := range s.members {
		if member != id {
			rest = append(rest, member)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i] < rest[j] })
	if err := s.store.RewriteMembers(rest); err != nil {
		return "", fmt.Errorf("перезапись списка доступа: %w", err)
	}
	delete(s.members, id)
	return domain.AccessRemoved, nil
}

// Members возвращает отсортированный список участников без админов.
func (s *Service) Members() []int64 {
	out := make([]int64, 0, len(s.members))
	for id := range s.members {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
