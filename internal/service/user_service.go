package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Freeeeeet/skillswap/internal/model"
	"go.uber.org/zap"
)

type UserService struct {
	stores Stores
	logger *zap.Logger
}

func NewUserService(stores Stores, logger *zap.Logger) *UserService {
	return &UserService{
		stores: stores,
		logger: logger,
	}
}

// ProfileUpdate изменяемые поля профиля. nil - поле не меняется.
type ProfileUpdate struct {
	Name           *string
	Email          *string
	WhatsApp       *string
	TelegramChatID *int64
	Location       *string
	IsPublic       *bool
}

// RegisterUser регистрирует нового пользователя
func (s *UserService) RegisterUser(ctx context.Context, user *model.User) (*model.User, error) {
	user.Name = strings.TrimSpace(user.Name)
	if user.Name == "" {
		return nil, validationf("name is required")
	}

	// По умолчанию обычный пользователь
	if user.Role == "" {
		user.Role = model.RoleUser
	}
	if !user.Role.Valid() {
		return nil, validationf("unknown role %q", user.Role)
	}

	if err := s.stores.Users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("New user registered",
		zap.Int64("user_id", user.ID),
		zap.String("name", user.Name),
		zap.String("role", string(user.Role)),
	)

	return user, nil
}

// GetByID получает пользователя по ID
func (s *UserService) GetByID(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.stores.Users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, notFound("user")
	}
	return user, nil
}

// UpdateProfile обновляет профиль пользователя
func (s *UserService) UpdateProfile(ctx context.Context, userID int64, update ProfileUpdate) (*model.User, error) {
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return nil, validationf("name is required")
		}
		user.Name = name
	}
	if update.Email != nil {
		user.Email = strings.TrimSpace(*update.Email)
	}
	if update.WhatsApp != nil {
		user.WhatsApp = strings.TrimSpace(*update.WhatsApp)
	}
	if update.TelegramChatID != nil {
		user.TelegramChatID = update.TelegramChatID
	}
	if update.Location != nil {
		user.Location = strings.TrimSpace(*update.Location)
	}
	if update.IsPublic != nil {
		user.IsPublic = *update.IsPublic
	}

	if err := s.stores.Users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	s.logger.Info("Profile updated", zap.Int64("user_id", userID))

	return user, nil
}

// CreateSkill создаёт навык или возвращает существующий с тем же именем
func (s *UserService) CreateSkill(ctx context.Context, name string) (*model.Skill, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationf("skill name is required")
	}

	existing, err := s.stores.Skills.GetByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("get skill: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	skill := &model.Skill{Name: name}
	created, err := s.stores.Skills.Create(ctx, skill)
	if err != nil {
		return nil, fmt.Errorf("create skill: %w", err)
	}

	if !created {
		// Параллельный запрос успел создать навык с тем же именем
		existing, err := s.stores.Skills.GetByName(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("get skill: %w", err)
		}
		if existing == nil {
			return nil, fmt.Errorf("skill %q vanished after conflict", name)
		}
		return existing, nil
	}

	s.logger.Info("Skill created",
		zap.Int64("skill_id", skill.ID),
		zap.String("name", skill.Name),
	)

	return skill, nil
}

// SetSkill добавляет пользователю навык, который он преподаёт или изучает, или меняет уровень
func (s *UserService) SetSkill(ctx context.Context, userID, skillID int64, kind model.SkillKind, level model.SkillLevel) error {
	if !kind.Valid() {
		return validationf("unknown skill kind %q", kind)
	}
	if !level.Valid() {
		return validationf("unknown skill level %q", level)
	}

	if _, err := s.GetByID(ctx, userID); err != nil {
		return err
	}

	skill, err := s.stores.Skills.GetByID(ctx, skillID)
	if err != nil {
		return fmt.Errorf("get skill: %w", err)
	}
	if skill == nil {
		return notFound("skill")
	}

	err = s.stores.Skills.UpsertAssociation(ctx, model.SkillAssociation{
		UserID:  userID,
		SkillID: skillID,
		Kind:    kind,
		Level:   level,
	})
	if err != nil {
		return fmt.Errorf("set skill: %w", err)
	}

	s.logger.Info("User skill set",
		zap.Int64("user_id", userID),
		zap.Int64("skill_id", skillID),
		zap.String("kind", string(kind)),
		zap.String("level", string(level)),
	)

	return nil
}

// RemoveSkill удаляет навык пользователя
func (s *UserService) RemoveSkill(ctx context.Context, userID, skillID int64, kind model.SkillKind) error {
	removed, err := s.stores.Skills.DeleteAssociation(ctx, userID, skillID, kind)
	if err != nil {
		return fmt.Errorf("remove skill: %w", err)
	}
	if !removed {
		return notFound("user skill")
	}

	s.logger.Info("User skill removed",
		zap.Int64("user_id", userID),
		zap.Int64("skill_id", skillID),
		zap.String("kind", string(kind)),
	)

	return nil
}
