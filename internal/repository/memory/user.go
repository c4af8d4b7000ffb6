package memory

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/lalith-99/storyverse/internal/models"
	"github.com/lalith-99/storyverse/internal/repository"
)

const defaultUsername = "Anonyme"

type userRepo struct {
	s *Store
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r userRepo) Create(_ context.Context, u models.User) (*models.User, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	key := normalizeEmail(u.Email)
	if key != "" {
		if _, taken := s.userIDsByEmail[key]; taken {
			return nil, repository.ErrEmailTaken
		}
	}

	u.ID = uuid.New()
	u.CreatedAt = s.stamp()
	if strings.TrimSpace(u.Username) == "" {
		u.Username = defaultUsername
	}
	if u.Level < 1 {
		u.Level = 1
	}
	if u.XP < 0 {
		u.XP = 0
	}
	if u.Badges == nil {
		u.Badges = []models.Badge{}
	}

	s.users[u.ID] = u
	if key != "" {
		s.userIDsByEmail[key] = u.ID
	}
	return cloneUser(u), nil
}

func (r userRepo) GetByID(_ context.Context, userID uuid.UUID) (*models.User, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, nil
	}
	return cloneUser(u), nil
}

func (r userRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.userIDsByEmail[normalizeEmail(email)]
	if !ok {
		return nil, nil
	}
	return cloneUser(s.users[id]), nil
}

func (r userRepo) Update(_ context.Context, userID uuid.UUID, patch models.UserPatch) (*models.User, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, nil
	}
	if patch.Username != nil {
		u.Username = *patch.Username
	}
	if patch.Avatar != nil {
		u.Avatar = *patch.Avatar
	}
	if patch.XP != nil {
		u.XP = *patch.XP
	}
	if patch.Level != nil {
		u.Level = *patch.Level
	}
	if patch.Badges != nil {
		u.Badges = append(make([]models.Badge, 0, len(patch.Badges)), patch.Badges...)
	}
	s.users[userID] = u
	return cloneUser(u), nil
}
